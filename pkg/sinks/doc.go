// Package sinks defines the contract every sink kind implements and the
// registry that maps the kind names used in topology files to their
// configuration types.
//
// # Contract
//
// A sink kind is a configuration type implementing [Config]. The topology
// never branches on the concrete type: it decodes the configuration
// through the [Registry], checks [Config.InputType] against the sources
// wired into the sink, and calls [Config.Build] to get a runnable [Sink]
// and its [Healthcheck].
//
// # Registry
//
// The registry is an ordinary value owned by the caller. Built-in kinds
// contribute their [Description] from a Register function, and the
// process builds one registry at startup and passes it to the topology:
//
//	reg := sinks.NewRegistry()
//	newrelic.Register(reg)
//	httpsink.Register(reg)
//
//	cfg, err := reg.Decode("new_relic_logs", table)
package sinks
