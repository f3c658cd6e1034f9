// Package console implements a sink that prints events as JSON lines.
// It is meant for local debugging of a topology.
package console

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/bft-labs/logship/pkg/ack"
	"github.com/bft-labs/logship/pkg/event"
	"github.com/bft-labs/logship/pkg/log"
	"github.com/bft-labs/logship/pkg/sinks"
)

// KindName is the topology name of the console sink.
const KindName = "console"

// Target selects the stream the sink writes to.
type Target string

const (
	TargetStdout Target = "stdout"
	TargetStderr Target = "stderr"
)

// UnmarshalText rejects unknown targets while decoding.
func (t *Target) UnmarshalText(text []byte) error {
	switch v := Target(text); v {
	case TargetStdout, TargetStderr:
		*t = v
		return nil
	default:
		return fmt.Errorf("unknown target %q (want stdout or stderr)", string(text))
	}
}

// Config is the console sink table.
type Config struct {
	Target Target `toml:"target"`
}

// Register adds the "console" kind to reg.
func Register(reg *sinks.Registry) {
	reg.MustRegister(sinks.NewDescription[Config](KindName))
}

// Build implements sinks.Config.
func (c *Config) Build(cx sinks.Context) (sinks.Sink, sinks.Healthcheck, error) {
	var w io.Writer = os.Stdout
	if c.Target == TargetStderr {
		w = os.Stderr
	}
	return newSink(w, cx), sinks.Healthy, nil
}

// InputType implements sinks.Config.
func (c *Config) InputType() event.DataType { return event.Any }

// SinkType implements sinks.Config.
func (c *Config) SinkType() string { return KindName }

type sink struct {
	w      io.Writer
	acker  ack.Acker
	logger log.Logger
}

func newSink(w io.Writer, cx sinks.Context) *sink {
	cx = cx.WithDefaults()
	return &sink{w: w, acker: cx.Acker, logger: cx.Logger}
}

// Run implements sinks.Sink. Every event is acknowledged once written or
// dropped.
func (s *sink) Run(ctx context.Context, in <-chan event.Event) error {
	enc := json.NewEncoder(s.w)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-in:
			if !ok {
				return nil
			}
			if err := enc.Encode(ev); err != nil {
				s.logger.Warn("console write failed", log.Err(err))
			}
			s.acker.Ack(1)
		}
	}
}
