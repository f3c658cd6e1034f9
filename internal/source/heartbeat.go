package source

import (
	"context"
	"time"

	"github.com/bft-labs/logship/pkg/event"
	"github.com/bft-labs/logship/pkg/sinks"
)

// KindHeartbeat emits a metric sample on a fixed interval.
const KindHeartbeat = "heartbeat"

// HeartbeatConfig is the heartbeat source table.
type HeartbeatConfig struct {
	Name         string            `toml:"name"`
	IntervalSecs uint64            `toml:"interval_secs"`
	Tags         map[string]string `toml:"tags"`
}

// Heartbeat emits an event.Metric with value 1 every interval.
type Heartbeat struct {
	name     string
	interval time.Duration
	tags     map[string]string
}

// NewHeartbeat validates cfg. Name defaults to "logship.heartbeat" and
// the interval to 10 seconds.
func NewHeartbeat(cfg HeartbeatConfig) (*Heartbeat, error) {
	h := &Heartbeat{name: cfg.Name, interval: 10 * time.Second, tags: cfg.Tags}
	if h.name == "" {
		h.name = "logship.heartbeat"
	}
	if cfg.IntervalSecs > 0 {
		h.interval = time.Duration(cfg.IntervalSecs) * time.Second
	}
	if h.interval > 24*time.Hour {
		return nil, &sinks.ConfigError{Kind: sinks.KindInvalidValue, Field: "interval_secs", Msg: "must be at most one day"}
	}
	return h, nil
}

// OutputType implements Source.
func (h *Heartbeat) OutputType() event.DataType { return event.Metric }

// Run implements Source. It only returns once ctx is done.
func (h *Heartbeat) Run(ctx context.Context, out chan<- event.Event) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			ev := &event.Metric{Name: h.name, Value: 1, Timestamp: now.UTC(), Tags: h.tags}
			if err := emit(ctx, out, ev); err != nil {
				return nil
			}
		}
	}
}
