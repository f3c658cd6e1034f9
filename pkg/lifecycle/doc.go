// Package lifecycle tracks the run state of a topology.
//
// A Manager moves through a fixed set of states and keeps count of the
// goroutines it launched so shutdown can wait for them:
//
//	m := lifecycle.NewManager(logger, nil)
//	if err := m.TransitionTo(lifecycle.StateStarting, "run"); err != nil {
//	    return err
//	}
//	m.Go(func() { sink.Run(ctx, in) })
//	_ = m.TransitionTo(lifecycle.StateRunning, "sinks started")
//	...
//	_ = m.TransitionTo(lifecycle.StateStopping, "signal")
//	err := m.WaitWithTimeout(30 * time.Second)
//
// # State Machine
//
// Valid state transitions:
//   - Stopped -> Starting
//   - Starting -> Running, Stopping, Crashed
//   - Running -> Stopping, Crashed
//   - Stopping -> Stopped, Crashed
//   - Crashed -> Starting
package lifecycle
