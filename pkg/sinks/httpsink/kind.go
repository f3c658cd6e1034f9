package httpsink

import (
	"time"

	"github.com/bft-labs/logship/pkg/event"
	"github.com/bft-labs/logship/pkg/sinks"
)

// KindName is the topology name of the plain HTTP sink.
const KindName = "http"

// FileConfig is the "http" sink kind as written in topology files. Batch
// and request knobs are flattened into the sink table.
type FileConfig struct {
	URI            string            `toml:"uri"`
	Method         Method            `toml:"method"`
	HealthcheckURI string            `toml:"healthcheck_uri"`
	BasicAuth      *BasicAuth        `toml:"basic_auth"`
	Headers        map[string]string `toml:"headers"`
	Compression    Compression       `toml:"compression"`
	Encoding       Encoding          `toml:"encoding"`
	TLS            *TLSConfig        `toml:"tls"`

	BatchSize    *int    `toml:"batch_size"`
	BatchTimeout *uint64 `toml:"batch_timeout"`

	RequestInFlightLimit         *int    `toml:"request_in_flight_limit"`
	RequestTimeoutSecs           *uint64 `toml:"request_timeout_secs"`
	RequestRateLimitDurationSecs *uint64 `toml:"request_rate_limit_duration_secs"`
	RequestRateLimitNum          *uint64 `toml:"request_rate_limit_num"`
	RequestRetryAttempts         *int    `toml:"request_retry_attempts"`
	RequestRetryBackoffSecs      *uint64 `toml:"request_retry_backoff_secs"`
}

// Register adds the "http" kind to reg.
func Register(reg *sinks.Registry) {
	reg.MustRegister(sinks.NewDescription[FileConfig](KindName))
}

// Descriptor converts the file form into a Config. Headers from the file
// are sorted by name.
func (c *FileConfig) Descriptor() (Config, error) {
	var timeout *time.Duration
	if c.BatchTimeout != nil {
		d := time.Duration(*c.BatchTimeout) * time.Second
		timeout = &d
	}
	encoding := c.Encoding
	if encoding == "" {
		encoding = EncodingJSON
	}

	return Config{
		URI:            c.URI,
		Method:         c.Method,
		HealthcheckURI: c.HealthcheckURI,
		BasicAuth:      c.BasicAuth,
		Headers:        HeadersFromMap(c.Headers),
		Compression:    c.Compression,
		Encoding:       encoding,
		Batch:          BatchConfig{Size: c.BatchSize, Timeout: timeout},
		Request: RequestConfig{
			InFlightLimit:         c.RequestInFlightLimit,
			TimeoutSecs:           c.RequestTimeoutSecs,
			RateLimitDurationSecs: c.RequestRateLimitDurationSecs,
			RateLimitNum:          c.RequestRateLimitNum,
			RetryAttempts:         c.RequestRetryAttempts,
			RetryBackoffSecs:      c.RequestRetryBackoffSecs,
		},
		TLS: c.TLS,
	}, nil
}

// Build implements sinks.Config.
func (c *FileConfig) Build(cx sinks.Context) (sinks.Sink, sinks.Healthcheck, error) {
	desc, err := c.Descriptor()
	if err != nil {
		return nil, nil, err
	}
	return Build(desc, cx)
}

// InputType implements sinks.Config.
func (c *FileConfig) InputType() event.DataType { return event.Log }

// SinkType implements sinks.Config.
func (c *FileConfig) SinkType() string { return KindName }

// Describer is implemented by sink kinds that resolve to an HTTP
// descriptor. The CLI uses it to print what a sink will send.
type Describer interface {
	Descriptor() (Config, error)
}

var _ Describer = (*FileConfig)(nil)
