// Package ack reports delivery of batches back to the pipeline.
//
// A sink calls Ack once a batch reaches its final outcome. The topology
// hands every sink its own Tracker and uses it on shutdown to wait until
// everything it forwarded has been acknowledged.
package ack

import (
	"context"
	"sync"
)

// Acker receives acknowledgements for n events.
type Acker interface {
	Ack(n int)
}

// Noop discards acknowledgements.
type Noop struct{}

// Ack implements Acker.
func (Noop) Ack(int) {}

// Tracker counts events handed to a sink and events acknowledged by it.
type Tracker struct {
	mu    sync.Mutex
	cond  chan struct{}
	sent  int64
	acked int64
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{cond: make(chan struct{})}
}

// Sent records n events forwarded to the sink.
func (t *Tracker) Sent(n int) {
	t.mu.Lock()
	t.sent += int64(n)
	t.mu.Unlock()
}

// Ack implements Acker.
func (t *Tracker) Ack(n int) {
	t.mu.Lock()
	t.acked += int64(n)
	close(t.cond)
	t.cond = make(chan struct{})
	t.mu.Unlock()
}

// Pending returns the number of sent events not yet acknowledged.
func (t *Tracker) Pending() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sent - t.acked
}

// Acked returns the total number of acknowledged events.
func (t *Tracker) Acked() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.acked
}

// Wait blocks until nothing is pending or ctx is done.
func (t *Tracker) Wait(ctx context.Context) error {
	for {
		t.mu.Lock()
		if t.sent <= t.acked {
			t.mu.Unlock()
			return nil
		}
		ch := t.cond
		t.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}
