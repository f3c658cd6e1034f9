// Package source provides the event producers a topology can wire to
// sinks.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/logship/pkg/event"
	"github.com/bft-labs/logship/pkg/sinks"
)

// Source produces events until ctx is done or its input is exhausted.
// Run must not close out.
type Source interface {
	Run(ctx context.Context, out chan<- event.Event) error
	OutputType() event.DataType
}

// Kinds lists the source kinds Decode understands.
var Kinds = []string{KindHeartbeat, KindStdin}

// Decode builds the source of kind from its topology table. Unknown kinds
// and unknown keys are configuration errors.
func Decode(kind string, table map[string]any) (Source, error) {
	switch kind {
	case KindStdin:
		var cfg StdinConfig
		if err := decodeStrict(table, &cfg); err != nil {
			return nil, err
		}
		return NewStdin(cfg), nil
	case KindHeartbeat:
		var cfg HeartbeatConfig
		if err := decodeStrict(table, &cfg); err != nil {
			return nil, err
		}
		return NewHeartbeat(cfg)
	default:
		return nil, &sinks.ConfigError{
			Kind:  sinks.KindInvalidValue,
			Field: "type",
			Msg:   fmt.Sprintf("unknown source kind %q (known: %v)", kind, Kinds),
		}
	}
}

func decodeStrict(table map[string]any, v any) error {
	b, err := toml.Marshal(table)
	if err != nil {
		return fmt.Errorf("re-encode source table: %w", err)
	}
	dec := toml.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return &sinks.ConfigError{Kind: sinks.KindInvalidValue, Msg: "unknown field", Err: errors.New(strict.String())}
		}
		return &sinks.ConfigError{Kind: sinks.KindInvalidValue, Msg: "decode source configuration", Err: err}
	}
	return nil
}

// emit sends ev unless ctx is done first.
func emit(ctx context.Context, out chan<- event.Event, ev event.Event) error {
	select {
	case out <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
