package sinks

import (
	"fmt"
)

// ErrorKind classifies configuration errors.
type ErrorKind string

const (
	KindMissingCredential ErrorKind = "missing-credential"
	KindInvalidValue      ErrorKind = "invalid-value"
	KindUnknownSinkKind   ErrorKind = "unknown-sink-kind"
	KindTypeMismatch      ErrorKind = "type-mismatch"
)

// Sentinels for errors.Is. They match any ConfigError of the same kind.
var (
	ErrMissingCredential = &ConfigError{Kind: KindMissingCredential}
	ErrInvalidValue      = &ConfigError{Kind: KindInvalidValue}
	ErrUnknownSinkKind   = &ConfigError{Kind: KindUnknownSinkKind}
	ErrTypeMismatch      = &ConfigError{Kind: KindTypeMismatch}
)

// ConfigError reports a configuration that cannot produce a sink.
type ConfigError struct {
	Kind  ErrorKind
	Field string
	Msg   string
	Err   error
}

func (e *ConfigError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Is matches sentinels that carry only a kind.
func (e *ConfigError) Is(target error) bool {
	t, ok := target.(*ConfigError)
	if !ok {
		return false
	}
	return t.Field == "" && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}
