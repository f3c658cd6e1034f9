// Package newrelic implements the new_relic_logs sink kind, which ships
// log events to the New Relic Log API through the generic HTTP sink.
package newrelic

import (
	"fmt"
	"strings"
	"time"

	"github.com/bft-labs/logship/pkg/event"
	"github.com/bft-labs/logship/pkg/sinks"
	"github.com/bft-labs/logship/pkg/sinks/httpsink"
)

// KindName is the topology name of this sink kind.
const KindName = "new_relic_logs"

// DefaultBatchSize keeps batches well under the Log API's 10 MiB request
// limit.
const DefaultBatchSize = 5 << 20

// Provider-specific request defaults.
const (
	DefaultInFlightLimit = 100
	DefaultRateLimitNum  = 100
)

const (
	licenseKeyHeader = "X-License-Key"
	insertKeyHeader  = "X-Insert-Key"
)

// Region selects the Log API endpoint.
type Region string

const (
	RegionUS Region = "us"
	RegionEU Region = "eu"
)

// UnmarshalText rejects anything but "us" and "eu".
func (r *Region) UnmarshalText(text []byte) error {
	switch v := Region(strings.ToLower(string(text))); v {
	case RegionUS, RegionEU:
		*r = v
		return nil
	default:
		return fmt.Errorf("unknown region %q (want us or eu)", text)
	}
}

// Endpoint returns the Log API URI for the region.
func (r Region) Endpoint() string {
	if r == RegionEU {
		return "https://log-api.eu.newrelic.com/log/v1"
	}
	return "https://log-api.newrelic.com/log/v1"
}

// Config is the new_relic_logs sink configuration. One of LicenseKey or
// InsertKey is required; LicenseKey wins when both are set.
type Config struct {
	LicenseKey *string `toml:"license_key"`
	InsertKey  *string `toml:"insert_key"`
	Region     *Region `toml:"region"`

	BatchSize    *int    `toml:"batch_size"`
	BatchTimeout *uint64 `toml:"batch_timeout"`

	RequestInFlightLimit         *int    `toml:"request_in_flight_limit"`
	RequestTimeoutSecs           *uint64 `toml:"request_timeout_secs"`
	RequestRateLimitDurationSecs *uint64 `toml:"request_rate_limit_duration_secs"`
	RequestRateLimitNum          *uint64 `toml:"request_rate_limit_num"`
	RequestRetryAttempts         *int    `toml:"request_retry_attempts"`
	RequestRetryBackoffSecs      *uint64 `toml:"request_retry_backoff_secs"`
}

// Register adds the new_relic_logs kind to reg.
func Register(reg *sinks.Registry) {
	reg.MustRegister(sinks.NewDescription[Config](KindName))
}

var (
	_ sinks.Config       = (*Config)(nil)
	_ httpsink.Describer = (*Config)(nil)
)

// Build resolves the descriptor and hands it to the HTTP sink.
func (c *Config) Build(cx sinks.Context) (sinks.Sink, sinks.Healthcheck, error) {
	return c.build(cx, httpsink.NewBuilder())
}

func (c *Config) build(cx sinks.Context, b httpsink.Builder) (sinks.Sink, sinks.Healthcheck, error) {
	desc, err := c.Descriptor()
	if err != nil {
		return nil, nil, err
	}
	return b.Build(desc, cx)
}

// InputType implements sinks.Config. Only log events are accepted.
func (c *Config) InputType() event.DataType { return event.Log }

// SinkType implements sinks.Config.
func (c *Config) SinkType() string { return KindName }

// Descriptor resolves the configuration into the HTTP sink descriptor.
func (c *Config) Descriptor() (httpsink.Config, error) {
	header, err := c.resolveCredential()
	if err != nil {
		return httpsink.Config{}, err
	}

	region := RegionUS
	if c.Region != nil {
		region = *c.Region
	}

	return httpsink.Config{
		URI:         region.Endpoint(),
		Method:      httpsink.MethodPost,
		Headers:     httpsink.Headers{header},
		Compression: httpsink.CompressionNone,
		Encoding:    httpsink.EncodingJSON,
		Batch:       c.resolveBatch(),
		Request:     c.resolveRequest(),
	}, nil
}

func (c *Config) resolveCredential() (httpsink.Header, error) {
	switch {
	case c.LicenseKey != nil:
		return httpsink.Header{Name: licenseKeyHeader, Value: *c.LicenseKey}, nil
	case c.InsertKey != nil:
		return httpsink.Header{Name: insertKeyHeader, Value: *c.InsertKey}, nil
	default:
		return httpsink.Header{}, &sinks.ConfigError{
			Kind: sinks.KindMissingCredential,
			Msg:  "must provide either 'license_key' or 'insert_key'",
		}
	}
}

// resolveBatch does not clamp user sizes to the 10 MiB API limit;
// oversized requests are rejected by the API.
func (c *Config) resolveBatch() httpsink.BatchConfig {
	size := DefaultBatchSize
	if c.BatchSize != nil {
		size = *c.BatchSize
	}

	var timeout *time.Duration
	if c.BatchTimeout != nil {
		d := time.Duration(*c.BatchTimeout) * time.Second
		timeout = &d
	}
	return httpsink.BatchConfig{Size: &size, Timeout: timeout}
}

func (c *Config) resolveRequest() httpsink.RequestConfig {
	inFlight := DefaultInFlightLimit
	if c.RequestInFlightLimit != nil {
		inFlight = *c.RequestInFlightLimit
	}
	var rateNum uint64 = DefaultRateLimitNum
	if c.RequestRateLimitNum != nil {
		rateNum = *c.RequestRateLimitNum
	}

	return httpsink.RequestConfig{
		InFlightLimit:         &inFlight,
		TimeoutSecs:           c.RequestTimeoutSecs,
		RateLimitDurationSecs: c.RequestRateLimitDurationSecs,
		RateLimitNum:          &rateNum,
		RetryAttempts:         c.RequestRetryAttempts,
		RetryBackoffSecs:      c.RequestRetryBackoffSecs,
	}
}
