package console

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bft-labs/logship/pkg/ack"
	"github.com/bft-labs/logship/pkg/event"
	"github.com/bft-labs/logship/pkg/sinks"
)

func TestSink_WritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	tracker := ack.NewTracker()
	s := newSink(&buf, sinks.Context{Acker: tracker})

	in := make(chan event.Event, 2)
	in <- &event.Log{Message: "hello", Fields: map[string]any{"host": "a"}}
	in <- &event.Metric{Name: "up", Value: 1, Timestamp: time.Unix(0, 0).UTC()}
	close(in)

	if err := s.Run(context.Background(), in); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines: %q", len(lines), buf.String())
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("line 0 is not JSON: %v", err)
	}
	if first["message"] != "hello" || first["host"] != "a" {
		t.Errorf("line 0 = %v", first)
	}
	if !strings.Contains(lines[1], `"name":"up"`) {
		t.Errorf("line 1 = %s", lines[1])
	}
	if got := tracker.Acked(); got != 2 {
		t.Errorf("acked = %d, want 2", got)
	}
}

func TestSink_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newSink(&bytes.Buffer{}, sinks.Context{})
	if err := s.Run(ctx, make(chan event.Event)); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRegister_Target(t *testing.T) {
	reg := sinks.NewRegistry()
	Register(reg)

	cfg, err := reg.Decode(KindName, map[string]any{"target": "stderr"})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if c := cfg.(*Config); c.Target != TargetStderr || c.InputType() != event.Any {
		t.Errorf("Decode() = %+v", c)
	}

	if _, err := reg.Decode(KindName, map[string]any{"target": "printer"}); !errors.Is(err, sinks.ErrInvalidValue) {
		t.Errorf("Decode(printer) error = %v, want invalid-value", err)
	}
}
