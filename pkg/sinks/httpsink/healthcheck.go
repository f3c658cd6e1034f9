package httpsink

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/bft-labs/logship/pkg/sinks"
)

// newHealthcheck sends a GET to HealthcheckURI. Without a URI the sink
// has nothing to check and reports healthy.
func newHealthcheck(cfg Config, client *http.Client) sinks.Healthcheck {
	if cfg.HealthcheckURI == "" {
		return sinks.Healthy
	}

	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.HealthcheckURI, nil)
		if err != nil {
			return fmt.Errorf("create healthcheck request: %w", err)
		}
		cfg.Headers.apply(req.Header)
		if cfg.BasicAuth != nil {
			req.SetBasicAuth(cfg.BasicAuth.User, cfg.BasicAuth.Password)
		}

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("healthcheck request: %w", err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode/100 != 2 {
			return fmt.Errorf("healthcheck returned %d", resp.StatusCode)
		}
		return nil
	}
}
