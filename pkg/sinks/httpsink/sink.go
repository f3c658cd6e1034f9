package httpsink

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/bft-labs/logship/pkg/ack"
	"github.com/bft-labs/logship/pkg/event"
	"github.com/bft-labs/logship/pkg/log"
)

// httpSink batches events and posts them to cfg.URI.
type httpSink struct {
	cfg     Config
	batch   batchSettings
	client  *retryablehttp.Client
	limiter *rate.Limiter
	sem     *semaphore.Weighted
	acker   ack.Acker
	logger  log.Logger
}

// Run implements sinks.Sink.
func (s *httpSink) Run(ctx context.Context, in <-chan event.Event) error {
	b := newBatcher(s.batch.maxBytes, s.batch.timeout)
	ticker := time.NewTicker(b.tickInterval())
	defer ticker.Stop()

	var wg sync.WaitGroup
	flush := func() {
		if !b.hasPending() {
			return
		}
		items, size := b.take()
		s.dispatch(ctx, &wg, items, size)
	}

	for {
		select {
		case <-ctx.Done():
			if b.hasPending() {
				items, size := b.take()
				s.logger.Warn("dropping pending batch on cancel",
					log.Int("events", len(items)),
					log.String("size", humanize.IBytes(uint64(size))))
				s.acker.Ack(len(items))
			}
			wg.Wait()
			return ctx.Err()

		case ev, ok := <-in:
			if !ok {
				flush()
				wg.Wait()
				return nil
			}

			data, err := encodeEvent(s.cfg.Encoding, ev)
			if err != nil {
				s.logger.Error("dropping event that cannot be encoded", log.Err(err))
				s.acker.Ack(1)
				continue
			}

			if b.wouldOverflow(len(data)) {
				flush()
			}
			b.add(data)
			if b.full() {
				flush()
			}

		case <-ticker.C:
			if b.expired() {
				flush()
			}
		}
	}
}

// dispatch sends items on a new goroutine once an in-flight slot is free.
// The batch is acknowledged whatever the outcome.
func (s *httpSink) dispatch(ctx context.Context, wg *sync.WaitGroup, items [][]byte, size int) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.acker.Ack(len(items))
		return
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer s.sem.Release(1)

		batchID := uuid.NewString()
		start := time.Now()
		err := s.send(ctx, items)
		s.acker.Ack(len(items))

		fields := []log.Field{
			log.String("batch_id", batchID),
			log.Int("events", len(items)),
			log.String("size", humanize.IBytes(uint64(size))),
			log.Duration("duration", time.Since(start)),
		}
		if err != nil {
			s.logger.Error("batch dropped", append(fields, log.Err(err))...)
			return
		}
		s.logger.Debug("batch delivered", fields...)
	}()
}

func (s *httpSink) send(ctx context.Context, items [][]byte) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	body, err := compress(s.cfg.Compression, encodeBatch(s.cfg.Encoding, items))
	if err != nil {
		return err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, string(s.cfg.Method), s.cfg.URI, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	s.cfg.Headers.apply(req.Header)
	req.Header.Set("Content-Type", contentType(s.cfg.Encoding))
	if s.cfg.Compression == CompressionGzip {
		req.Header.Set("Content-Encoding", "gzip")
	}
	if s.cfg.BasicAuth != nil {
		req.SetBasicAuth(s.cfg.BasicAuth.User, s.cfg.BasicAuth.Password)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
