// Package logship wires the built-in sink kinds into a registry.
//
// Example usage:
//
//	reg := logship.NewRegistry()
//	topo, err := topology.Load("logship.toml", reg)
//	if err != nil {
//	    log.Fatal(err)
//	}
package logship

import (
	"github.com/bft-labs/logship/pkg/sinks"
	"github.com/bft-labs/logship/pkg/sinks/console"
	"github.com/bft-labs/logship/pkg/sinks/httpsink"
	"github.com/bft-labs/logship/pkg/sinks/newrelic"
)

// NewRegistry returns a registry holding every built-in sink kind. Each
// call returns an independent registry; callers may add their own kinds.
func NewRegistry() *sinks.Registry {
	reg := sinks.NewRegistry()
	console.Register(reg)
	httpsink.Register(reg)
	newrelic.Register(reg)
	return reg
}
