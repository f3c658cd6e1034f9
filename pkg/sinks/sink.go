package sinks

import (
	"context"

	"github.com/bft-labs/logship/pkg/ack"
	"github.com/bft-labs/logship/pkg/event"
	"github.com/bft-labs/logship/pkg/log"
)

// Sink consumes events until in is closed or ctx is done. Pending data
// is flushed before Run returns.
type Sink interface {
	Run(ctx context.Context, in <-chan event.Event) error
}

// Healthcheck checks the sink's destination. A nil error means healthy.
type Healthcheck func(ctx context.Context) error

// Healthy is a Healthcheck that always succeeds.
func Healthy(context.Context) error { return nil }

// Context carries the collaborators a sink needs at build time.
type Context struct {
	// Acker receives acknowledgements for delivered batches. Sinks pass it
	// through unmodified.
	Acker ack.Acker

	// Logger is scoped to the sink being built.
	Logger log.Logger
}

// WithDefaults fills unset collaborators with no-op implementations.
func (cx Context) WithDefaults() Context {
	if cx.Acker == nil {
		cx.Acker = ack.Noop{}
	}
	if cx.Logger == nil {
		cx.Logger = log.NewNoopLogger()
	}
	return cx
}

// Config is implemented by every sink kind.
type Config interface {
	// Build turns the configuration into a runnable sink and a healthcheck.
	Build(cx Context) (Sink, Healthcheck, error)

	// InputType declares which events the sink accepts.
	InputType() event.DataType

	// SinkType is the kind name used in diagnostics.
	SinkType() string
}
