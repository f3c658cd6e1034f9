package sinks

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/bft-labs/logship/pkg/event"
)

type stubConfig struct {
	Target string `toml:"target"`
	Limit  int    `toml:"limit"`
}

type stubSink struct{}

func (stubSink) Run(context.Context, <-chan event.Event) error { return nil }

func (c *stubConfig) Build(Context) (Sink, Healthcheck, error) { return stubSink{}, Healthy, nil }
func (c *stubConfig) InputType() event.DataType                { return event.Any }
func (c *stubConfig) SinkType() string                         { return "stub" }

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register(NewDescription[stubConfig]("stub")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := reg.Register(NewDescription[stubConfig]("stub")); err == nil {
		t.Error("Register() accepted a duplicate kind")
	}
	if err := reg.Register(Description{Name: "nameless"}); err == nil {
		t.Error("Register() accepted a description without constructor")
	}

	d, ok := reg.Lookup("stub")
	if !ok || d.Name != "stub" {
		t.Fatalf("Lookup(stub) = %+v, %v", d, ok)
	}
	if _, ok := d.New().(*stubConfig); !ok {
		t.Errorf("New() returned %T", d.New())
	}
	if _, ok := reg.Lookup("missing"); ok {
		t.Error("Lookup(missing) succeeded")
	}
}

func TestRegistry_MustRegisterPanicsOnDuplicate(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(NewDescription[stubConfig]("stub"))

	defer func() {
		if recover() == nil {
			t.Error("MustRegister() did not panic")
		}
	}()
	reg.MustRegister(NewDescription[stubConfig]("stub"))
}

func TestRegistry_Kinds(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		reg.MustRegister(NewDescription[stubConfig](name))
	}

	want := []string{"alpha", "mid", "zeta"}
	if got := reg.Kinds(); !reflect.DeepEqual(got, want) {
		t.Errorf("Kinds() = %v, want %v", got, want)
	}
}

func TestRegistry_IsolatedInstances(t *testing.T) {
	a, b := NewRegistry(), NewRegistry()
	a.MustRegister(NewDescription[stubConfig]("stub"))

	if _, ok := b.Lookup("stub"); ok {
		t.Error("registration leaked between registries")
	}
}

func TestRegistry_Decode(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(NewDescription[stubConfig]("stub"))

	cfg, err := reg.Decode("stub", map[string]any{"target": "x", "limit": int64(3)})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	got := cfg.(*stubConfig)
	if got.Target != "x" || got.Limit != 3 {
		t.Errorf("Decode() = %+v", got)
	}

	tests := []struct {
		name  string
		kind  string
		table map[string]any
		want  error
	}{
		{"unknown kind", "nope", nil, ErrUnknownSinkKind},
		{"unknown field", "stub", map[string]any{"bogus": true}, ErrInvalidValue},
		{"wrong type", "stub", map[string]any{"limit": "many"}, ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Decode(tt.kind, tt.table)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestConfigError(t *testing.T) {
	inner := errors.New("boom")
	err := &ConfigError{Kind: KindInvalidValue, Field: "batch_size", Msg: "must be positive", Err: inner}

	if got := err.Error(); got != "batch_size: must be positive: boom" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrInvalidValue) {
		t.Error("errors.Is(err, ErrInvalidValue) = false")
	}
	if errors.Is(err, ErrMissingCredential) {
		t.Error("matched a sentinel of another kind")
	}
	if !errors.Is(err, inner) {
		t.Error("wrapped error not reachable")
	}

	var ce *ConfigError
	if !errors.As(error(err), &ce) || ce.Field != "batch_size" {
		t.Errorf("errors.As() = %+v", ce)
	}

	bare := &ConfigError{Kind: KindTypeMismatch}
	if !strings.Contains(bare.Error(), "type-mismatch") {
		t.Errorf("Error() = %q", bare.Error())
	}
}

func TestContext_WithDefaults(t *testing.T) {
	cx := Context{}.WithDefaults()
	if cx.Acker == nil || cx.Logger == nil {
		t.Fatalf("WithDefaults() left nil collaborators: %+v", cx)
	}
	cx.Acker.Ack(1)
	cx.Logger.Info("ok")
}
