// Package event defines the events that flow from sources to sinks and
// the data types sinks declare they accept.
package event

import (
	"encoding/json"
	"time"
)

// DataType classifies events so a topology can reject a sink wired to a
// source it cannot consume.
type DataType int

const (
	// Any is accepted by sinks that handle every event kind.
	Any DataType = iota
	Log
	Metric
)

// String returns the type name used in configuration errors.
func (d DataType) String() string {
	switch d {
	case Any:
		return "any"
	case Log:
		return "log"
	case Metric:
		return "metric"
	default:
		return "unknown"
	}
}

// Accepts reports whether a sink declaring d can consume events produced
// by a source declaring produced.
func (d DataType) Accepts(produced DataType) bool {
	return d == Any || d == produced
}

// Event is a unit of data moving through the pipeline.
type Event interface {
	Type() DataType
}

// Log is a single log record. Fields are merged into the top level of
// the JSON encoding next to "message" and "timestamp".
type Log struct {
	Timestamp time.Time
	Message   string
	Fields    map[string]any
}

// NewLog returns a Log stamped with the current time.
func NewLog(message string) *Log {
	return &Log{Timestamp: time.Now().UTC(), Message: message}
}

// Type implements Event.
func (*Log) Type() DataType { return Log }

// MarshalJSON flattens Fields into the encoded object. Message and
// timestamp always win over fields of the same name.
func (l *Log) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(l.Fields)+2)
	for k, v := range l.Fields {
		out[k] = v
	}
	out["message"] = l.Message
	if !l.Timestamp.IsZero() {
		out["timestamp"] = l.Timestamp.UnixMilli()
	}
	return json.Marshal(out)
}

// Metric is a single named sample.
type Metric struct {
	Name      string            `json:"name"`
	Value     float64           `json:"value"`
	Timestamp time.Time         `json:"timestamp"`
	Tags      map[string]string `json:"tags,omitempty"`
}

// Type implements Event.
func (*Metric) Type() DataType { return Metric }
