package topology

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/logship/internal/source"
	"github.com/bft-labs/logship/pkg/event"
	"github.com/bft-labs/logship/pkg/lifecycle"
	"github.com/bft-labs/logship/pkg/sinks"
)

func readerSource(id, input string) SourceSpec {
	return SourceSpec{ID: id, Kind: source.KindStdin, Source: source.NewReader(strings.NewReader(input), source.StdinConfig{})}
}

func TestPipeline_RunsUntilSourcesExhausted(t *testing.T) {
	topo := &Topology{
		Sources: []SourceSpec{readerSource("a", "one\ntwo\n"), readerSource("b", "three\n")},
		Sinks: []SinkSpec{
			{ID: "both", Kind: "capture", Inputs: []string{"a", "b"}, Config: &captureConfig{Name: t.Name() + "/both"}},
			{ID: "only-a", Kind: "capture", Inputs: []string{"a"}, Config: &captureConfig{Name: t.Name() + "/a"}},
		},
	}

	p, err := topo.Build(nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if err := p.Run(context.Background(), time.Second); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if p.State() != lifecycle.StateStopped {
		t.Errorf("state = %v, want Stopped", p.State())
	}

	if got := len(recorderFor(t.Name() + "/both").Events()); got != 3 {
		t.Errorf("both received %d events, want 3", got)
	}
	got := recorderFor(t.Name() + "/a").Events()
	if len(got) != 2 || got[0].(*event.Log).Message != "one" || got[1].(*event.Log).Message != "two" {
		t.Errorf("only-a received %v", got)
	}
	for _, s := range p.sinks {
		if s.tracker.Pending() != 0 {
			t.Errorf("sink %s has %d pending acks", s.id, s.tracker.Pending())
		}
	}

	if err := p.Run(context.Background(), time.Second); !errors.Is(err, lifecycle.ErrAlreadyRunning) {
		t.Errorf("second Run() error = %v, want ErrAlreadyRunning", err)
	}
}

// blockingSource emits one event and then waits for cancellation.
type blockingSource struct{}

func (blockingSource) OutputType() event.DataType { return event.Log }

func (blockingSource) Run(ctx context.Context, out chan<- event.Event) error {
	out <- event.NewLog("first")
	<-ctx.Done()
	return ctx.Err()
}

func TestPipeline_StopsOnCancel(t *testing.T) {
	name := t.Name()
	topo := &Topology{
		Sources: []SourceSpec{{ID: "live", Source: blockingSource{}}},
		Sinks:   []SinkSpec{{ID: "c", Inputs: []string{"live"}, Config: &captureConfig{Name: name}}},
	}
	p, err := topo.Build(nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, time.Second) }()

	select {
	case <-recorderFor(name).notify:
	case <-time.After(2 * time.Second):
		t.Fatal("sink never received the event")
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
	if p.State() != lifecycle.StateStopped {
		t.Errorf("state = %v, want Stopped", p.State())
	}
}

// burstSource emits n events as fast as it can, then cancels the run
// while they are still queued.
type burstSource struct {
	n      int
	cancel context.CancelFunc
}

func (burstSource) OutputType() event.DataType { return event.Log }

func (s burstSource) Run(ctx context.Context, out chan<- event.Event) error {
	for i := 0; i < s.n; i++ {
		out <- event.NewLog(strconv.Itoa(i))
	}
	s.cancel()
	return nil
}

func TestPipeline_CancelDeliversQueuedEvents(t *testing.T) {
	const n = 3000
	name := t.Name()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	topo := &Topology{
		Sources: []SourceSpec{{ID: "burst", Source: burstSource{n: n, cancel: cancel}}},
		Sinks:   []SinkSpec{{ID: "c", Inputs: []string{"burst"}, Config: &captureConfig{Name: name}}},
	}
	p, err := topo.Build(nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if err := p.Run(ctx, 5*time.Second); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := recorderFor(name).Events()
	if len(got) != n {
		t.Fatalf("sink received %d events, want %d", len(got), n)
	}
	for i, ev := range got {
		if msg := ev.(*event.Log).Message; msg != strconv.Itoa(i) {
			t.Fatalf("event %d = %q, out of order", i, msg)
		}
	}
	if s := p.sinks[0]; s.tracker.Acked() != n || s.tracker.Pending() != 0 {
		t.Errorf("acked %d, pending %d, want %d acked", s.tracker.Acked(), s.tracker.Pending(), n)
	}
}

// stuckSource emits one event and then ignores cancellation.
type stuckSource struct{ release chan struct{} }

func (stuckSource) OutputType() event.DataType { return event.Log }

func (s stuckSource) Run(_ context.Context, out chan<- event.Event) error {
	out <- event.NewLog("only")
	<-s.release
	return nil
}

func TestPipeline_StuckSourceDoesNotBlockShutdown(t *testing.T) {
	name := t.Name()
	release := make(chan struct{})
	defer close(release)

	topo := &Topology{
		Sources: []SourceSpec{{ID: "stuck", Source: stuckSource{release: release}}},
		Sinks:   []SinkSpec{{ID: "c", Inputs: []string{"stuck"}, Config: &captureConfig{Name: name}}},
	}
	p, err := topo.Build(nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, 50*time.Millisecond) }()

	select {
	case <-recorderFor(name).notify:
	case <-time.After(2 * time.Second):
		t.Fatal("sink never received the event")
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after the shutdown timeout")
	}
	if got := len(recorderFor(name).Events()); got != 1 {
		t.Errorf("sink received %d events, want 1", got)
	}
}

func TestPipeline_ShutdownTimeout(t *testing.T) {
	topo := &Topology{
		Sources: []SourceSpec{readerSource("a", "x\n")},
		Sinks:   []SinkSpec{{ID: "stuck", Inputs: []string{"a"}, Config: &captureConfig{Mode: "hang"}}},
	}
	p, err := topo.Build(nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if err := p.Run(context.Background(), 20*time.Millisecond); !errors.Is(err, lifecycle.ErrShutdownTimeout) {
		t.Errorf("Run() error = %v, want ErrShutdownTimeout", err)
	}
	if p.State() != lifecycle.StateCrashed {
		t.Errorf("state = %v, want Crashed", p.State())
	}
}

func TestPipeline_SinkError(t *testing.T) {
	topo := &Topology{
		Sources: []SourceSpec{readerSource("a", "x\n")},
		Sinks:   []SinkSpec{{ID: "bad", Inputs: []string{"a"}, Config: &captureConfig{Mode: "fail"}}},
	}
	p, err := topo.Build(nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	err = p.Run(context.Background(), time.Second)
	if !errors.Is(err, errSinkFailed) || !strings.Contains(err.Error(), `sink "bad"`) {
		t.Errorf("Run() error = %v", err)
	}
	if p.State() != lifecycle.StateCrashed {
		t.Errorf("state = %v, want Crashed", p.State())
	}
}

func TestTopology_BuildError(t *testing.T) {
	topo := &Topology{Sinks: []SinkSpec{{ID: "x", Config: &captureConfig{BuildErr: true}}}}
	if _, err := topo.Build(nil); err == nil || !strings.Contains(err.Error(), `build sink "x"`) {
		t.Errorf("Build() error = %v", err)
	}
}

func TestPipeline_Healthcheck(t *testing.T) {
	topo := &Topology{Sinks: []SinkSpec{
		{ID: "ok", Config: &captureConfig{}},
		{ID: "down", Config: &captureConfig{Unwell: true}},
	}}
	p, err := topo.Build(nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	err = p.Healthcheck(context.Background())
	if !errors.Is(err, errUnhealthy) || !strings.Contains(err.Error(), `sink "down"`) {
		t.Errorf("Healthcheck() error = %v", err)
	}
	if strings.Contains(err.Error(), `"ok"`) {
		t.Errorf("healthy sink reported: %v", err)
	}
}

func TestPipeline_HTTPSinkEndToEnd(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies [][]map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		var batch []map[string]any
		if err := json.Unmarshal(b, &batch); err != nil {
			t.Errorf("body is not a JSON array: %s", b)
		}
		if r.Header.Get("X-Api-Key") != "secret" {
			t.Errorf("X-Api-Key = %q", r.Header.Get("X-Api-Key"))
		}
		mu.Lock()
		bodies = append(bodies, batch)
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	doc := `
[sources.app]
type = "stdin"

[sinks.out]
type = "http"
inputs = ["app"]
uri = "` + srv.URL + `"
headers = { "X-Api-Key" = "secret" }
`
	topo, err := Parse([]byte(doc), fullRegistry())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	topo.Sources[0].Source = source.NewReader(strings.NewReader("alpha\nbeta\n"), source.StdinConfig{})

	p, err := topo.Build(nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if err := p.Run(context.Background(), 5*time.Second); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	var messages []string
	for _, batch := range bodies {
		for _, rec := range batch {
			messages = append(messages, rec["message"].(string))
		}
	}
	if strings.Join(messages, ",") != "alpha,beta" {
		t.Errorf("delivered %v", messages)
	}
}

var _ sinks.Config = (*captureConfig)(nil)
