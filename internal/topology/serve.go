package topology

import (
	"context"
	"fmt"
	"time"

	"github.com/bft-labs/logship/pkg/lifecycle"
	"github.com/bft-labs/logship/pkg/log"
	"github.com/bft-labs/logship/pkg/sinks"
)

// ServeOptions configures Serve.
type ServeOptions struct {
	Logger          log.Logger
	ShutdownTimeout time.Duration

	// RequireHealthy turns failed healthchecks into a startup error
	// instead of a warning.
	RequireHealthy bool

	// Watch reloads the topology when the file changes. A change that
	// does not load or build is logged and the running pipeline is kept.
	Watch         bool
	DebounceDelay time.Duration
}

// Serve loads the topology at path, builds it and runs it until ctx is
// done or every source is exhausted.
func Serve(ctx context.Context, path string, reg *sinks.Registry, opts ServeOptions) error {
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = lifecycle.ShutdownTimeout
	}

	p, err := prepare(ctx, path, reg, opts)
	if err != nil {
		return err
	}
	if !opts.Watch {
		return p.Run(ctx, opts.ShutdownTimeout)
	}

	changes := make(chan struct{}, 1)
	go func() {
		err := Watch(ctx, path, opts.DebounceDelay, opts.Logger, func() {
			select {
			case changes <- struct{}{}:
			default:
			}
		})
		if err != nil {
			opts.Logger.Error("topology watch disabled", log.Err(err))
		}
	}()

	for {
		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func(p *Pipeline) { done <- p.Run(runCtx, opts.ShutdownTimeout) }(p)

		next, err := waitForReload(ctx, path, reg, opts, changes, done)
		if next == nil {
			cancel()
			return err
		}

		cancel()
		if err := <-done; err != nil {
			opts.Logger.Warn("previous pipeline stopped with error", log.Err(err))
		}
		opts.Logger.Info("topology reloaded", log.String("path", path))
		p = next
	}
}

// waitForReload blocks until the running pipeline finishes or a valid new
// pipeline is ready. A nil pipeline means Serve should return err.
func waitForReload(ctx context.Context, path string, reg *sinks.Registry, opts ServeOptions, changes <-chan struct{}, done <-chan error) (*Pipeline, error) {
	for {
		select {
		case err := <-done:
			return nil, err
		case <-changes:
			next, err := prepare(ctx, path, reg, opts)
			if err != nil {
				opts.Logger.Error("ignoring invalid topology change", log.String("path", path), log.Err(err))
				continue
			}
			return next, nil
		}
	}
}

func prepare(ctx context.Context, path string, reg *sinks.Registry, opts ServeOptions) (*Pipeline, error) {
	t, err := Load(path, reg)
	if err != nil {
		return nil, err
	}
	p, err := t.Build(opts.Logger)
	if err != nil {
		return nil, err
	}
	if err := p.Healthcheck(ctx); err != nil {
		if opts.RequireHealthy {
			return nil, fmt.Errorf("healthcheck: %w", err)
		}
		opts.Logger.Warn("starting with unhealthy sinks", log.Err(err))
	}
	opts.Logger.Info("topology loaded",
		log.String("path", path),
		log.Int("sources", len(t.Sources)),
		log.Int("sinks", len(t.Sinks)),
	)
	return p, nil
}
