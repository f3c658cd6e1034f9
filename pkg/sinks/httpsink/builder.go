package httpsink

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/bft-labs/logship/pkg/log"
	"github.com/bft-labs/logship/pkg/sinks"
)

// Builder turns a descriptor into a running sink.
type Builder interface {
	Build(cfg Config, cx sinks.Context) (sinks.Sink, sinks.Healthcheck, error)
}

// BuilderFunc adapts a function to Builder.
type BuilderFunc func(cfg Config, cx sinks.Context) (sinks.Sink, sinks.Healthcheck, error)

// Build implements Builder.
func (f BuilderFunc) Build(cfg Config, cx sinks.Context) (sinks.Sink, sinks.Healthcheck, error) {
	return f(cfg, cx)
}

// NewBuilder returns the default Builder.
func NewBuilder() Builder {
	return BuilderFunc(Build)
}

// Build validates cfg and constructs the sink and its healthcheck. The
// acker in cx is used unmodified for every batch.
func Build(cfg Config, cx sinks.Context) (sinks.Sink, sinks.Healthcheck, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	cx = cx.WithDefaults()

	if cfg.Method == "" {
		cfg.Method = MethodPost
	}
	if cfg.Compression == "" {
		cfg.Compression = CompressionNone
	}

	transport, err := newTransport(cfg.TLS)
	if err != nil {
		return nil, nil, err
	}

	batch := cfg.Batch.resolve()
	req := cfg.Request.resolve()
	transport.MaxIdleConnsPerHost = req.inFlightLimit

	httpClient := &http.Client{Timeout: req.timeout, Transport: transport}

	client := retryablehttp.NewClient()
	client.HTTPClient = httpClient
	client.RetryMax = req.retryAttempts
	client.RetryWaitMin = req.retryBackoff
	client.RetryWaitMax = req.retryBackoff * defaultRetryBackoffMaxFactor
	client.Logger = retryLogger{logger: cx.Logger}

	every := req.rateLimitDuration / time.Duration(req.rateLimitNum)

	s := &httpSink{
		cfg:     cfg,
		batch:   batch,
		client:  client,
		limiter: rate.NewLimiter(rate.Every(every), req.rateLimitNum),
		sem:     semaphore.NewWeighted(int64(req.inFlightLimit)),
		acker:   cx.Acker,
		logger:  cx.Logger,
	}

	cx.Logger.Debug("http sink built",
		log.String("uri", cfg.URI),
		log.String("method", string(cfg.Method)),
		log.String("encoding", string(cfg.Encoding)),
		log.String("compression", string(cfg.Compression)),
		log.Int("batch_max_bytes", batch.maxBytes),
		log.Duration("batch_timeout", batch.timeout),
		log.Int("in_flight_limit", req.inFlightLimit),
		log.Int("rate_limit_num", req.rateLimitNum),
		log.Duration("rate_limit_duration", req.rateLimitDuration),
		log.Int("retry_attempts", req.retryAttempts),
	)

	return s, newHealthcheck(cfg, httpClient), nil
}

func newTransport(cfg *TLSConfig) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg == nil {
		return transport, nil
	}

	tlsCfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}
	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, &sinks.ConfigError{Kind: sinks.KindInvalidValue, Field: "tls.ca_file", Msg: "no certificates found"}
		}
		tlsCfg.RootCAs = pool
	}
	transport.TLSClientConfig = tlsCfg
	return transport, nil
}
