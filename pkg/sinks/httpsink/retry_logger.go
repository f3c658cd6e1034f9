package httpsink

import (
	"fmt"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/bft-labs/logship/pkg/log"
)

// retryLogger adapts log.Logger to retryablehttp.LeveledLogger. Request
// chatter goes to debug so retries only surface through the sink's own
// error entries.
type retryLogger struct {
	logger log.Logger
}

var _ retryablehttp.LeveledLogger = retryLogger{}

func (r retryLogger) Error(msg string, kv ...interface{}) { r.logger.Warn(msg, fields(kv)...) }
func (r retryLogger) Warn(msg string, kv ...interface{})  { r.logger.Warn(msg, fields(kv)...) }
func (r retryLogger) Info(msg string, kv ...interface{})  { r.logger.Debug(msg, fields(kv)...) }
func (r retryLogger) Debug(msg string, kv ...interface{}) { r.logger.Debug(msg, fields(kv)...) }

func fields(kv []interface{}) []log.Field {
	out := make([]log.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, log.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
