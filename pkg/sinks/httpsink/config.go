package httpsink

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/bft-labs/logship/pkg/sinks"
)

// Method is the HTTP method used for batch requests.
type Method string

const (
	MethodPost Method = "POST"
	MethodPut  Method = "PUT"
)

// UnmarshalText accepts method names in any case.
func (m *Method) UnmarshalText(text []byte) error {
	switch v := Method(strings.ToUpper(string(text))); v {
	case MethodPost, MethodPut:
		*m = v
		return nil
	default:
		return fmt.Errorf("unsupported method %q (want post or put)", text)
	}
}

// Compression is the request body compression.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
)

// UnmarshalText validates the compression name.
func (c *Compression) UnmarshalText(text []byte) error {
	switch v := Compression(strings.ToLower(string(text))); v {
	case CompressionNone, CompressionGzip:
		*c = v
		return nil
	default:
		return fmt.Errorf("unsupported compression %q (want none or gzip)", text)
	}
}

// Encoding is the request body encoding.
type Encoding string

const (
	// EncodingJSON sends each batch as a JSON array.
	EncodingJSON Encoding = "json"
	// EncodingNDJSON sends one JSON object per line.
	EncodingNDJSON Encoding = "ndjson"
	// EncodingText sends one log message per line.
	EncodingText Encoding = "text"
)

// UnmarshalText validates the encoding name.
func (e *Encoding) UnmarshalText(text []byte) error {
	switch v := Encoding(strings.ToLower(string(text))); v {
	case EncodingJSON, EncodingNDJSON, EncodingText:
		*e = v
		return nil
	default:
		return fmt.Errorf("unsupported encoding %q (want json, ndjson or text)", text)
	}
}

// Defaults applied by the sink when the descriptor leaves a knob unset.
const (
	DefaultBatchSize             = 1 << 20
	DefaultBatchTimeout          = time.Second
	DefaultInFlightLimit         = 5
	DefaultTimeout               = 60 * time.Second
	DefaultRateLimitDuration     = time.Second
	DefaultRateLimitNum          = 5
	DefaultRetryAttempts         = 5
	DefaultRetryBackoff          = time.Second
	defaultRetryBackoffMaxFactor = 16
)

// BasicAuth holds credentials for HTTP basic authentication.
type BasicAuth struct {
	User     string `toml:"user" json:"user" validate:"required"`
	Password string `toml:"password" json:"password"`
}

// TLSConfig tunes the TLS client.
type TLSConfig struct {
	CAFile             string `toml:"ca_file" json:"ca_file,omitempty" validate:"omitempty,file"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify" json:"insecure_skip_verify,omitempty"`
}

// BatchConfig bounds a batch. Nil fields use the sink defaults.
type BatchConfig struct {
	Size    *int           `json:"size,omitempty" validate:"omitempty,gt=0"`
	Timeout *time.Duration `json:"timeout,omitempty" validate:"omitempty,gt=0"`
}

// RequestConfig tunes request execution. Nil fields use the sink defaults.
type RequestConfig struct {
	InFlightLimit         *int    `json:"in_flight_limit,omitempty" validate:"omitempty,gt=0"`
	TimeoutSecs           *uint64 `json:"timeout_secs,omitempty" validate:"omitempty,gt=0"`
	RateLimitDurationSecs *uint64 `json:"rate_limit_duration_secs,omitempty" validate:"omitempty,gt=0"`
	RateLimitNum          *uint64 `json:"rate_limit_num,omitempty" validate:"omitempty,gt=0"`
	RetryAttempts         *int    `json:"retry_attempts,omitempty" validate:"omitempty,gte=0"`
	RetryBackoffSecs      *uint64 `json:"retry_backoff_secs,omitempty"`
}

// Config is the fully resolved descriptor of an HTTP sink.
type Config struct {
	URI            string        `json:"uri" validate:"required,url"`
	Method         Method        `json:"method" validate:"omitempty,oneof=POST PUT"`
	HealthcheckURI string        `json:"healthcheck_uri,omitempty" validate:"omitempty,url"`
	BasicAuth      *BasicAuth    `json:"basic_auth,omitempty"`
	Headers        Headers       `json:"headers" validate:"dive"`
	Compression    Compression   `json:"compression" validate:"omitempty,oneof=none gzip"`
	Encoding       Encoding      `json:"encoding" validate:"required,oneof=json ndjson text"`
	Batch          BatchConfig   `json:"batch"`
	Request        RequestConfig `json:"request"`
	TLS            *TLSConfig    `json:"tls,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the descriptor and reports the first offending field.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		return &sinks.ConfigError{
			Kind:  sinks.KindInvalidValue,
			Field: field,
			Msg:   fmt.Sprintf("failed %q validation (value %v)", fe.Tag(), fe.Value()),
		}
	}
	return &sinks.ConfigError{Kind: sinks.KindInvalidValue, Err: err}
}

// Redacted returns a copy with header values and the basic auth password
// masked, safe to print.
func (c Config) Redacted() Config {
	const mask = "*****"
	out := c
	if len(c.Headers) > 0 {
		out.Headers = make(Headers, len(c.Headers))
		for i, h := range c.Headers {
			out.Headers[i] = Header{Name: h.Name, Value: mask}
		}
	}
	if c.BasicAuth != nil {
		out.BasicAuth = &BasicAuth{User: c.BasicAuth.User, Password: mask}
	}
	return out
}

// batchSettings is BatchConfig with defaults applied.
type batchSettings struct {
	maxBytes int
	timeout  time.Duration
}

func (b BatchConfig) resolve() batchSettings {
	s := batchSettings{maxBytes: DefaultBatchSize, timeout: DefaultBatchTimeout}
	if b.Size != nil {
		s.maxBytes = *b.Size
	}
	if b.Timeout != nil {
		s.timeout = *b.Timeout
	}
	return s
}

// requestSettings is RequestConfig with defaults applied.
type requestSettings struct {
	inFlightLimit     int
	timeout           time.Duration
	rateLimitDuration time.Duration
	rateLimitNum      int
	retryAttempts     int
	retryBackoff      time.Duration
}

func (r RequestConfig) resolve() requestSettings {
	s := requestSettings{
		inFlightLimit:     DefaultInFlightLimit,
		timeout:           DefaultTimeout,
		rateLimitDuration: DefaultRateLimitDuration,
		rateLimitNum:      DefaultRateLimitNum,
		retryAttempts:     DefaultRetryAttempts,
		retryBackoff:      DefaultRetryBackoff,
	}
	if r.InFlightLimit != nil {
		s.inFlightLimit = *r.InFlightLimit
	}
	if r.TimeoutSecs != nil {
		s.timeout = time.Duration(*r.TimeoutSecs) * time.Second
	}
	if r.RateLimitDurationSecs != nil {
		s.rateLimitDuration = time.Duration(*r.RateLimitDurationSecs) * time.Second
	}
	if r.RateLimitNum != nil {
		s.rateLimitNum = int(*r.RateLimitNum)
	}
	if r.RetryAttempts != nil {
		s.retryAttempts = *r.RetryAttempts
	}
	if r.RetryBackoffSecs != nil {
		s.retryBackoff = time.Duration(*r.RetryBackoffSecs) * time.Second
	}
	return s
}
