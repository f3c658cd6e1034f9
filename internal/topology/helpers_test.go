package topology

import (
	"context"
	"errors"
	"sync"

	"github.com/bft-labs/logship/pkg/event"
	"github.com/bft-labs/logship/pkg/sinks"
)

// recorder collects what a capture sink received.
type recorder struct {
	mu     sync.Mutex
	events []event.Event
	notify chan struct{}
}

func newRecorder() *recorder {
	return &recorder{notify: make(chan struct{}, 1)}
}

func (r *recorder) add(ev event.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

func (r *recorder) Events() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Event(nil), r.events...)
}

// recorders lets capture sinks decoded from TOML find their recorder.
var recorders sync.Map

func recorderFor(name string) *recorder {
	r, _ := recorders.LoadOrStore(name, newRecorder())
	return r.(*recorder)
}

// captureConfig is a test sink kind. Mode "fail" returns an error from
// Run; "hang" ignores its input and never returns until cancelled.
type captureConfig struct {
	Name     string `toml:"name"`
	Mode     string `toml:"mode"`
	Logs     bool   `toml:"logs_only"`
	Unwell   bool   `toml:"unhealthy"`
	BuildErr bool   `toml:"build_error"`
}

var errUnhealthy = errors.New("destination unreachable")

func (c *captureConfig) Build(cx sinks.Context) (sinks.Sink, sinks.Healthcheck, error) {
	if c.BuildErr {
		return nil, nil, errors.New("cannot build")
	}
	cx = cx.WithDefaults()
	hc := sinks.Healthcheck(sinks.Healthy)
	if c.Unwell {
		hc = func(context.Context) error { return errUnhealthy }
	}
	return &captureSink{rec: recorderFor(c.Name), mode: c.Mode, cx: cx}, hc, nil
}

func (c *captureConfig) InputType() event.DataType {
	if c.Logs {
		return event.Log
	}
	return event.Any
}

func (c *captureConfig) SinkType() string { return "capture" }

type captureSink struct {
	rec  *recorder
	mode string
	cx   sinks.Context
}

var errSinkFailed = errors.New("sink failed")

func (s *captureSink) Run(ctx context.Context, in <-chan event.Event) error {
	switch s.mode {
	case "fail":
		for range in {
			s.cx.Acker.Ack(1)
		}
		return errSinkFailed
	case "hang":
		<-ctx.Done()
		return ctx.Err()
	}
	for ev := range in {
		s.rec.add(ev)
		s.cx.Acker.Ack(1)
	}
	return nil
}

func testRegistry() *sinks.Registry {
	reg := sinks.NewRegistry()
	reg.MustRegister(sinks.NewDescription[captureConfig]("capture"))
	return reg
}
