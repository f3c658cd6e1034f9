// Package httpsink implements the generic batching HTTP sink.
//
// Provider-specific sink kinds (for example new_relic_logs) do not talk
// HTTP themselves. They resolve their own configuration into a [Config]
// descriptor and hand it to a [Builder], which owns batching, in-flight
// limiting, rate limiting, retries, compression and TLS for the lifetime
// of the sink.
//
//	sink, healthcheck, err := httpsink.NewBuilder().Build(httpsink.Config{
//	    URI:      "https://logs.example.com/ingest",
//	    Method:   httpsink.MethodPost,
//	    Encoding: httpsink.EncodingJSON,
//	    Headers:  httpsink.Headers{{Name: "X-Api-Key", Value: key}},
//	}, sinks.Context{Acker: acker, Logger: logger})
//
// The package also registers the plain "http" sink kind, which exposes the
// descriptor directly in topology files.
package httpsink
