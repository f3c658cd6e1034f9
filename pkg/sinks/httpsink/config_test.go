package httpsink

import (
	"testing"
	"time"

	"github.com/bft-labs/logship/pkg/sinks"
)

func TestHeaders_SetGetPreservesOrder(t *testing.T) {
	var h Headers
	h.Set("X-B", "1")
	h.Set("X-A", "2")
	h.Set("x-b", "3")

	if got := h.Names(); len(got) != 2 || got[0] != "X-B" || got[1] != "X-A" {
		t.Errorf("Names() = %v, want [X-B X-A]", got)
	}
	if v, ok := h.Get("X-B"); !ok || v != "3" {
		t.Errorf("Get(X-B) = %q, %v; want 3, true", v, ok)
	}
	if _, ok := h.Get("X-C"); ok {
		t.Error("Get(X-C) found a header that was never set")
	}
}

func TestHeadersFromMap_SortsByName(t *testing.T) {
	h := HeadersFromMap(map[string]string{"b": "2", "a": "1", "c": "3"})
	if got := h.Names(); len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("Names() = %v, want [a b c]", got)
	}
	if HeadersFromMap(nil) != nil {
		t.Error("HeadersFromMap(nil) should be nil")
	}
}

func TestConfig_Redacted(t *testing.T) {
	cfg := Config{
		Headers:   Headers{{Name: "X-License-Key", Value: "secret"}},
		BasicAuth: &BasicAuth{User: "u", Password: "pw"},
	}
	r := cfg.Redacted()

	if r.Headers[0].Value == "secret" || r.BasicAuth.Password == "pw" {
		t.Errorf("secrets leaked: %+v", r)
	}
	if r.Headers[0].Name != "X-License-Key" || r.BasicAuth.User != "u" {
		t.Errorf("names changed: %+v", r)
	}
	if cfg.Headers[0].Value != "secret" {
		t.Error("Redacted modified the original headers")
	}
}

func TestRequestConfig_ResolveDefaults(t *testing.T) {
	s := RequestConfig{}.resolve()
	if s.inFlightLimit != DefaultInFlightLimit || s.rateLimitNum != DefaultRateLimitNum {
		t.Errorf("defaults not applied: %+v", s)
	}
	if s.timeout != DefaultTimeout || s.retryBackoff != DefaultRetryBackoff {
		t.Errorf("defaults not applied: %+v", s)
	}

	s = RequestConfig{
		InFlightLimit:         intPtr(100),
		TimeoutSecs:           u64Ptr(3),
		RateLimitDurationSecs: u64Ptr(2),
		RateLimitNum:          u64Ptr(100),
		RetryAttempts:         intPtr(0),
		RetryBackoffSecs:      u64Ptr(4),
	}.resolve()
	want := requestSettings{
		inFlightLimit:     100,
		timeout:           3 * time.Second,
		rateLimitDuration: 2 * time.Second,
		rateLimitNum:      100,
		retryAttempts:     0,
		retryBackoff:      4 * time.Second,
	}
	if s != want {
		t.Errorf("resolve() = %+v, want %+v", s, want)
	}
}

func TestBatchConfig_Resolve(t *testing.T) {
	s := BatchConfig{}.resolve()
	if s.maxBytes != DefaultBatchSize || s.timeout != DefaultBatchTimeout {
		t.Errorf("defaults not applied: %+v", s)
	}
	s = BatchConfig{Size: intPtr(42), Timeout: durPtr(time.Minute)}.resolve()
	if s.maxBytes != 42 || s.timeout != time.Minute {
		t.Errorf("resolve() = %+v", s)
	}
}

func TestEnumUnmarshalText(t *testing.T) {
	var m Method
	if err := m.UnmarshalText([]byte("put")); err != nil || m != MethodPut {
		t.Errorf("Method = %q, %v", m, err)
	}
	if err := m.UnmarshalText([]byte("delete")); err == nil {
		t.Error("expected error for delete")
	}

	var c Compression
	if err := c.UnmarshalText([]byte("GZIP")); err != nil || c != CompressionGzip {
		t.Errorf("Compression = %q, %v", c, err)
	}
	if err := c.UnmarshalText([]byte("zstd")); err == nil {
		t.Error("expected error for zstd")
	}

	var e Encoding
	if err := e.UnmarshalText([]byte("ndjson")); err != nil || e != EncodingNDJSON {
		t.Errorf("Encoding = %q, %v", e, err)
	}
	if err := e.UnmarshalText([]byte("avro")); err == nil {
		t.Error("expected error for avro")
	}
}

func TestFileConfig_DecodeThroughRegistry(t *testing.T) {
	reg := sinks.NewRegistry()
	Register(reg)

	cfg, err := reg.Decode(KindName, map[string]any{
		"uri":                     "https://logs.example.com/ingest",
		"method":                  "put",
		"compression":             "gzip",
		"batch_size":              int64(2048),
		"batch_timeout":           int64(5),
		"request_in_flight_limit": int64(7),
		"headers":                 map[string]any{"X-Token": "t", "Accept": "*/*"},
	})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	fc, ok := cfg.(*FileConfig)
	if !ok {
		t.Fatalf("Decode() returned %T, want *FileConfig", cfg)
	}
	desc, err := fc.Descriptor()
	if err != nil {
		t.Fatalf("Descriptor() error = %v", err)
	}

	if desc.Method != MethodPut || desc.Compression != CompressionGzip || desc.Encoding != EncodingJSON {
		t.Errorf("unexpected descriptor: %+v", desc)
	}
	if *desc.Batch.Size != 2048 || *desc.Batch.Timeout != 5*time.Second {
		t.Errorf("batch = %+v", desc.Batch)
	}
	if *desc.Request.InFlightLimit != 7 || desc.Request.RateLimitNum != nil {
		t.Errorf("request = %+v", desc.Request)
	}
	if names := desc.Headers.Names(); len(names) != 2 || names[0] != "Accept" {
		t.Errorf("headers = %v", names)
	}
	if cfg.SinkType() != KindName {
		t.Errorf("SinkType() = %s", cfg.SinkType())
	}
}

func TestFileConfig_RejectsUnknownKeys(t *testing.T) {
	reg := sinks.NewRegistry()
	Register(reg)

	_, err := reg.Decode(KindName, map[string]any{"uri": "https://x", "batch_bytes": int64(1)})
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
}
