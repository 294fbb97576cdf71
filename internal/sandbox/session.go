package sandbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"

	"github.com/clippy-ai/clippy-ctl/internal/audit"
	"github.com/clippy-ai/clippy-ctl/internal/errors"
	"github.com/clippy-ai/clippy-ctl/internal/logging"
	"github.com/clippy-ai/clippy-ctl/internal/runtime"
)

// Default boot retry settings.
const (
	DefaultBootRetries   = 3
	DefaultBootBaseDelay = time.Second
)

// State is the boot state of a session.
type State int

const (
	StateUninitialized State = iota
	StateBooting
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateBooting:
		return "booting"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "uninitialized"
	}
}

// MarshalText renders the state by name in JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Session owns one booted sandbox instance.
type Session struct {
	rt         runtime.Runtime
	env        Environment
	name       string
	auditLog   *audit.Logger
	baseDelay  time.Duration
	maxRetries uint64

	group singleflight.Group

	mu       sync.Mutex
	state    State
	instance runtime.Instance
	err      error
	attempts int
	delays   []time.Duration
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithEnvironment sets the viewer environment checked before booting.
func WithEnvironment(env Environment) SessionOption {
	return func(s *Session) {
		s.env = env
	}
}

// WithBackoff sets the first retry delay and the number of retries.
func WithBackoff(base time.Duration, retries uint64) SessionOption {
	return func(s *Session) {
		if base > 0 {
			s.baseDelay = base
		}
		s.maxRetries = retries
	}
}

// WithSessionAudit records boot events under name.
func WithSessionAudit(logger *audit.Logger, name string) SessionOption {
	return func(s *Session) {
		s.auditLog = logger
		s.name = name
	}
}

// NewSession creates an unbooted session for rt.
func NewSession(rt runtime.Runtime, opts ...SessionOption) *Session {
	s := &Session{
		rt:         rt,
		env:        HostEnvironment(),
		baseDelay:  DefaultBootBaseDelay,
		maxRetries: DefaultBootRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Boot returns the session's instance, booting it on first use. Callers
// arriving while a boot is in flight wait for that boot.
func (s *Session) Boot(ctx context.Context) (runtime.Instance, error) {
	s.mu.Lock()
	switch s.state {
	case StateReady:
		inst := s.instance
		s.mu.Unlock()
		return inst, nil
	case StateError:
		err := s.err
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	v, err, shared := s.group.Do("boot", func() (interface{}, error) {
		return s.boot(ctx)
	})
	if shared {
		logging.Debug("joined in-flight sandbox boot")
	}
	if err != nil {
		return nil, err
	}
	return v.(runtime.Instance), nil
}

func (s *Session) boot(ctx context.Context) (runtime.Instance, error) {
	s.mu.Lock()
	if s.state == StateReady {
		inst := s.instance
		s.mu.Unlock()
		return inst, nil
	}
	if s.state == StateError {
		err := s.err
		s.mu.Unlock()
		return nil, err
	}
	s.state = StateBooting
	s.mu.Unlock()

	s.audit(audit.EventBoot, "runtime="+s.rt.Name())

	if err := s.env.Check(); err != nil {
		return nil, s.fail(err)
	}
	if err := s.rt.Preflight(ctx); err != nil {
		if !errors.HasCode(err, errors.ExitCapability) {
			err = errors.Wrap(errors.ExitCapability, "sandbox runtime unavailable", err)
		}
		return nil, s.fail(err)
	}

	base := retry.WithMaxRetries(s.maxRetries, retry.NewExponential(s.baseDelay))
	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		next, stop := base.Next()
		if stop {
			return 0, true
		}
		s.mu.Lock()
		s.delays = append(s.delays, next)
		attempt := s.attempts
		s.mu.Unlock()
		logging.Warn("sandbox boot failed, retrying", "attempt", attempt, "delay", next)
		s.audit(audit.EventBootRetry, fmt.Sprintf("attempt=%d delay=%s", attempt, next))
		return next, false
	})

	var inst runtime.Instance
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		s.mu.Lock()
		s.attempts++
		s.mu.Unlock()

		booted, err := s.rt.Boot(ctx)
		if err != nil {
			logging.Debug("boot attempt failed", "error", err)
			return retry.RetryableError(err)
		}
		inst = booted
		return nil
	})
	if err != nil {
		s.mu.Lock()
		attempts := s.attempts
		s.mu.Unlock()
		return nil, s.fail(errors.BootFailed(attempts, err))
	}

	s.mu.Lock()
	s.state = StateReady
	s.instance = inst
	attempts := s.attempts
	s.mu.Unlock()

	logging.Debug("sandbox ready", "runtime", s.rt.Name(), "attempts", attempts)
	s.audit(audit.EventReady, fmt.Sprintf("attempts=%d", attempts))
	return inst, nil
}

func (s *Session) fail(err error) error {
	s.mu.Lock()
	s.state = StateError
	s.err = err
	s.mu.Unlock()
	s.audit(audit.EventError, err.Error())
	return err
}

func (s *Session) audit(event audit.EventType, details string) {
	if s.auditLog == nil {
		return
	}
	if err := s.auditLog.LogEvent(event, s.name, details); err != nil {
		logging.Debug("failed to write audit event", "error", err)
	}
}

// State returns the current boot state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the terminal error once the session is in StateError.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Instance returns the booted instance, or nil before the session is ready.
func (s *Session) Instance() runtime.Instance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instance
}

// Attempts returns the number of boot attempts made.
func (s *Session) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// RetryCount returns the number of retries made, at most the retry limit.
func (s *Session) RetryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.delays)
}

// Delays returns the backoff delays waited before each retry.
func (s *Session) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

// RuntimeName returns the name of the underlying runtime.
func (s *Session) RuntimeName() string {
	return s.rt.Name()
}

// Close releases the instance, if any.
func (s *Session) Close() error {
	s.mu.Lock()
	inst := s.instance
	s.mu.Unlock()
	if inst == nil {
		return nil
	}
	return inst.Close()
}
