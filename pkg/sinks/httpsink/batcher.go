package httpsink

import "time"

// batcher accumulates encoded events until a size or time trigger fires.
// totalBytes tracks the size of the framed body: one separator per item
// plus the opening bracket of a JSON array. Line encodings come out one
// byte smaller, so maxBytes bounds the request body for every encoding.
type batcher struct {
	items      [][]byte
	totalBytes int
	maxBytes   int
	timeout    time.Duration
	opened     time.Time
}

func newBatcher(maxBytes int, timeout time.Duration) *batcher {
	return &batcher{
		maxBytes: maxBytes,
		timeout:  timeout,
	}
}

// wouldOverflow reports whether adding n bytes would push a non-empty
// batch past the limit. The caller flushes first in that case.
func (b *batcher) wouldOverflow(n int) bool {
	return b.hasPending() && b.totalBytes+n+1 > b.maxBytes
}

// add appends an encoded event. An event larger than the limit is still
// accepted and makes the batch full on its own.
func (b *batcher) add(data []byte) {
	if len(b.items) == 0 {
		b.opened = time.Now()
		b.totalBytes = 1
	}
	b.items = append(b.items, data)
	b.totalBytes += len(data) + 1
}

// full reports the size trigger.
func (b *batcher) full() bool {
	return b.hasPending() && b.totalBytes >= b.maxBytes
}

// expired reports the time trigger, measured from the first event.
func (b *batcher) expired() bool {
	return b.hasPending() && time.Since(b.opened) >= b.timeout
}

func (b *batcher) hasPending() bool {
	return len(b.items) > 0
}

// take returns the pending events and starts a new batch.
func (b *batcher) take() ([][]byte, int) {
	items, size := b.items, b.totalBytes
	b.items = nil
	b.totalBytes = 0
	return items, size
}

// tickInterval is how often the run loop checks the time trigger.
func (b *batcher) tickInterval() time.Duration {
	d := b.timeout / 10
	if d < 5*time.Millisecond {
		d = 5 * time.Millisecond
	}
	if d > time.Second {
		d = time.Second
	}
	return d
}
