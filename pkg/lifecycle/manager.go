package lifecycle

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/logship/pkg/log"
)

// Common lifecycle errors.
var (
	ErrNotRunning      = errors.New("not running")
	ErrAlreadyRunning  = errors.New("already running")
	ErrShutdownTimeout = errors.New("shutdown timeout")
)

// ShutdownTimeout is the default maximum time to wait for graceful shutdown.
const ShutdownTimeout = 30 * time.Second

// Manager guards the state machine and the goroutines started under it.
type Manager struct {
	mu      sync.RWMutex
	state   State
	wg      sync.WaitGroup
	logger  log.Logger
	emitter EventEmitter
}

// NewManager creates a manager in StateStopped. emitter may be nil.
func NewManager(logger log.Logger, emitter EventEmitter) *Manager {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Manager{
		state:   StateStopped,
		logger:  logger,
		emitter: emitter,
	}
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// TransitionTo moves to next. An invalid transition leaves the state
// unchanged and returns ErrNotRunning when leaving an idle state,
// ErrAlreadyRunning otherwise.
func (m *Manager) TransitionTo(next State, reason string) error {
	m.mu.Lock()
	prev := m.state
	if !CanTransition(prev, next) {
		m.mu.Unlock()
		base := ErrAlreadyRunning
		if prev == StateStopped || prev == StateCrashed {
			base = ErrNotRunning
		}
		return fmt.Errorf("%w: %s -> %s", base, prev, next)
	}
	m.state = next
	m.mu.Unlock()

	if m.emitter != nil {
		m.emitter.OnStateChange(prev, next, reason)
	}
	m.logger.Info("state transition",
		log.String("from", prev.String()),
		log.String("to", next.String()),
		log.String("reason", reason),
	)
	return nil
}

// CanStart reports whether the manager is idle.
func (m *Manager) CanStart() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateStopped || m.state == StateCrashed
}

// CanStop reports whether a stop is meaningful.
func (m *Manager) CanStop() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateRunning || m.state == StateStarting
}

// Go runs fn in a goroutine counted by WaitWithTimeout.
func (m *Manager) Go(fn func()) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		fn()
	}()
}

// WaitWithTimeout waits for every goroutine started with Go. It returns
// ErrShutdownTimeout if they are still running after timeout.
func (m *Manager) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		m.logger.Warn("shutdown timeout, forcing exit",
			log.Duration("timeout", timeout),
		)
		return ErrShutdownTimeout
	}
}
