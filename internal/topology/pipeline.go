package topology

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/logship/internal/source"
	"github.com/bft-labs/logship/pkg/ack"
	"github.com/bft-labs/logship/pkg/event"
	"github.com/bft-labs/logship/pkg/lifecycle"
	"github.com/bft-labs/logship/pkg/log"
	"github.com/bft-labs/logship/pkg/sinks"
)

const (
	sourceBuffer = 256
	sinkBuffer   = 1024
)

type builtSource struct {
	id  string
	src source.Source
}

type builtSink struct {
	id          string
	kind        string
	inputs      []string
	sink        sinks.Sink
	healthcheck sinks.Healthcheck
	tracker     *ack.Tracker
}

// Pipeline is a built topology ready to run. A Pipeline runs once.
type Pipeline struct {
	sources []builtSource
	sinks   []builtSink
	logger  log.Logger
	manager *lifecycle.Manager
	started atomic.Bool
}

// Build instantiates every sink. Each sink gets its own ack.Tracker and a
// logger scoped to its id.
func (t *Topology) Build(logger log.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	p := &Pipeline{logger: logger, manager: lifecycle.NewManager(logger, nil)}

	for _, s := range t.Sources {
		p.sources = append(p.sources, builtSource{id: s.ID, src: s.Source})
	}
	for _, s := range t.Sinks {
		tracker := ack.NewTracker()
		cx := sinks.Context{
			Acker:  tracker,
			Logger: log.With(logger, log.String("sink", s.ID), log.String("kind", s.Kind)),
		}
		sink, hc, err := s.Config.Build(cx)
		if err != nil {
			return nil, fmt.Errorf("build sink %q: %w", s.ID, err)
		}
		p.sinks = append(p.sinks, builtSink{
			id:          s.ID,
			kind:        s.Kind,
			inputs:      s.Inputs,
			sink:        sink,
			healthcheck: hc,
			tracker:     tracker,
		})
	}
	return p, nil
}

// State reports where the pipeline is in its lifecycle.
func (p *Pipeline) State() lifecycle.State {
	return p.manager.State()
}

// Healthcheck checks every sink concurrently and joins the failures.
func (p *Pipeline) Healthcheck(ctx context.Context) error {
	errs := make([]error, len(p.sinks))

	var g errgroup.Group
	for i, s := range p.sinks {
		if s.healthcheck == nil {
			continue
		}
		g.Go(func() error {
			if err := s.healthcheck(ctx); err != nil {
				errs[i] = fmt.Errorf("sink %q: %w", s.id, err)
				p.logger.Warn("healthcheck failed", log.String("sink", s.id), log.Err(err))
				return nil
			}
			p.logger.Debug("healthcheck passed", log.String("sink", s.id))
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

type subscriber struct {
	ch      chan<- event.Event
	tracker *ack.Tracker
}

// Run streams events from sources to the sinks that list them as inputs.
// It returns when every source is exhausted or ctx is done. On cancel,
// events the sources already queued are still forwarded. Draining and
// sink flushing share shutdownTimeout.
func (p *Pipeline) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	if !p.started.CompareAndSwap(false, true) {
		return fmt.Errorf("pipeline: %w", lifecycle.ErrAlreadyRunning)
	}
	if err := p.manager.TransitionTo(lifecycle.StateStarting, "run"); err != nil {
		return err
	}

	// Sinks outlive ctx so they can flush after sources stop.
	sinkCtx, cancelSinks := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelSinks()

	subs := make(map[string][]subscriber)
	chans := make([]chan event.Event, len(p.sinks))
	sinkErrs := make([]error, len(p.sinks))

	for i, s := range p.sinks {
		ch := make(chan event.Event, sinkBuffer)
		chans[i] = ch
		for _, id := range s.inputs {
			subs[id] = append(subs[id], subscriber{ch: ch, tracker: s.tracker})
		}
		p.manager.Go(func() {
			if err := s.sink.Run(sinkCtx, ch); err != nil && !errors.Is(err, context.Canceled) {
				sinkErrs[i] = fmt.Errorf("sink %q: %w", s.id, err)
				p.logger.Error("sink stopped with error", log.String("sink", s.id), log.Err(err))
			}
		})
	}

	// Forwarders keep draining after ctx is done so events a source has
	// already queued still reach the sinks. drainCtx bounds that.
	drainCtx, stopDrain := context.WithCancel(sinkCtx)
	defer stopDrain()

	var fanout sync.WaitGroup
	for _, src := range p.sources {
		targets := subs[src.id]
		if len(targets) == 0 {
			p.logger.Warn("source has no consumers, not starting it", log.String("source", src.id))
			continue
		}

		out := make(chan event.Event, sourceBuffer)
		go func() {
			defer close(out)
			if err := src.src.Run(ctx, out); err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Error("source stopped with error", log.String("source", src.id), log.Err(err))
			}
		}()

		fanout.Add(1)
		go func() {
			defer fanout.Done()
			p.forward(drainCtx, src.id, out, targets)
		}()
	}
	drained := make(chan struct{})
	go func() {
		fanout.Wait()
		close(drained)
	}()

	_ = p.manager.TransitionTo(lifecycle.StateRunning, "sources started")
	select {
	case <-drained:
	case <-ctx.Done():
	}

	reason := "sources exhausted"
	if ctx.Err() != nil {
		reason = "shutdown requested"
	}
	_ = p.manager.TransitionTo(lifecycle.StateStopping, reason)

	deadline := time.Now().Add(shutdownTimeout)
	select {
	case <-drained:
	case <-time.After(shutdownTimeout):
		p.logger.Warn("sources did not drain before the shutdown timeout")
		stopDrain()
		<-drained
	}

	for _, ch := range chans {
		close(ch)
	}

	if err := p.manager.WaitWithTimeout(time.Until(deadline)); err != nil {
		cancelSinks()
		_ = p.manager.TransitionTo(lifecycle.StateCrashed, "sinks did not stop in time")
		return err
	}

	waitCtx, cancel := context.WithDeadline(context.WithoutCancel(ctx), deadline)
	defer cancel()
	for _, s := range p.sinks {
		if err := s.tracker.Wait(waitCtx); err != nil {
			p.logger.Warn("events left unacknowledged",
				log.String("sink", s.id),
				log.Int64("pending", s.tracker.Pending()),
			)
		}
	}

	if err := errors.Join(sinkErrs...); err != nil {
		_ = p.manager.TransitionTo(lifecycle.StateCrashed, "sink failed")
		return err
	}
	_ = p.manager.TransitionTo(lifecycle.StateStopped, reason)
	return nil
}

// forward copies events from one source to its subscribers until the
// source closes out. It gives up early only when ctx is done, logging
// how many queued events were dropped.
func (p *Pipeline) forward(ctx context.Context, id string, out <-chan event.Event, targets []subscriber) {
	for {
		select {
		case <-ctx.Done():
			p.dropQueued(id, out)
			return
		case ev, ok := <-out:
			if !ok {
				return
			}
			for _, t := range targets {
				select {
				case t.ch <- ev:
					t.tracker.Sent(1)
				case <-ctx.Done():
					p.dropQueued(id, out)
					return
				}
			}
		}
	}
}

func (p *Pipeline) dropQueued(id string, out <-chan event.Event) {
	if n := len(out); n > 0 {
		p.logger.Warn("dropping queued events", log.String("source", id), log.Int("events", n))
	}
}
