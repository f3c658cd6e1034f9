package httpsink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/klauspost/compress/gzip"

	"github.com/bft-labs/logship/pkg/event"
)

// encodeEvent renders one event for the given encoding.
func encodeEvent(enc Encoding, ev event.Event) ([]byte, error) {
	if enc != EncodingText {
		return json.Marshal(ev)
	}

	switch e := ev.(type) {
	case *event.Log:
		return []byte(e.Message), nil
	case *event.Metric:
		return []byte(e.Name + " " + strconv.FormatFloat(e.Value, 'g', -1, 64)), nil
	default:
		return nil, fmt.Errorf("text encoding does not support %T", ev)
	}
}

// encodeBatch joins encoded events into a request body.
func encodeBatch(enc Encoding, items [][]byte) []byte {
	var buf bytes.Buffer
	switch enc {
	case EncodingJSON:
		buf.WriteByte('[')
		buf.Write(bytes.Join(items, []byte{','}))
		buf.WriteByte(']')
	default:
		for _, item := range items {
			buf.Write(item)
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes()
}

func contentType(enc Encoding) string {
	switch enc {
	case EncodingJSON:
		return "application/json"
	case EncodingNDJSON:
		return "application/x-ndjson"
	default:
		return "text/plain"
	}
}

// compress applies c to body.
func compress(c Compression, body []byte) ([]byte, error) {
	if c != CompressionGzip {
		return body, nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(body); err != nil {
		return nil, fmt.Errorf("gzip body: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip body: %w", err)
	}
	return buf.Bytes(), nil
}
