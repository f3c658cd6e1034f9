// Package log provides the logging abstraction shared by logship sinks,
// sources and the topology runner.
//
// Components never import zerolog directly; they receive a Logger through
// their build context. The zerolog adapter is the production
// implementation and the no-op logger is used in tests.
//
//	logger, err := log.New(log.Options{Level: "debug", Format: log.FormatJSON})
//	if err != nil {
//	    return err
//	}
//	logger.Info("sink started", log.String("sink", "nr"))
//
// Loggers can be scoped with With, which returns a child logger carrying
// the given fields on every entry:
//
//	sinkLogger := log.With(logger, log.String("sink_type", "new_relic_logs"))
package log
