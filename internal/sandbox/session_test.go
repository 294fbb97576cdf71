package sandbox

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clippy-ai/clippy-ctl/internal/audit"
	"github.com/clippy-ai/clippy-ctl/internal/errors"
	"github.com/clippy-ai/clippy-ctl/internal/runtime"
)

func TestSession_BootRetriesThenReady(t *testing.T) {
	rt := runtime.NewMockRuntime()
	rt.BootFailures = 2

	s := NewSession(rt, WithBackoff(time.Millisecond, DefaultBootRetries))
	inst, err := s.Boot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, inst)

	assert.Equal(t, StateReady, s.State())
	assert.Equal(t, 3, s.Attempts())
	assert.Equal(t, 2, s.RetryCount())
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, s.Delays())
	assert.Len(t, rt.GetCallsFor("Boot"), 3)
}

func TestSession_BootExhausted(t *testing.T) {
	rt := runtime.NewMockRuntime()
	rt.SetError("Boot", fmt.Errorf("no capacity"))

	s := NewSession(rt, WithBackoff(time.Millisecond, DefaultBootRetries))
	_, err := s.Boot(context.Background())
	require.Error(t, err)

	assert.True(t, errors.HasCode(err, errors.ExitBoot))
	assert.Contains(t, err.Error(), "no capacity")
	assert.Equal(t, StateError, s.State())
	assert.Equal(t, 4, s.Attempts())
	assert.Equal(t, DefaultBootRetries, s.RetryCount())
	assert.Equal(t, []time.Duration{
		time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond,
	}, s.Delays())

	// Error is terminal: no further boot attempts.
	_, again := s.Boot(context.Background())
	assert.Equal(t, err, again)
	assert.Len(t, rt.GetCallsFor("Boot"), 4)
}

func TestSession_CapabilityErrors(t *testing.T) {
	tests := []struct {
		name string
		env  Environment
		want string
	}{
		{"shared memory", Environment{ServiceWorker: true, SecureContext: true}, MsgSharedArrayBuffer},
		{"service worker", Environment{SharedArrayBuffer: true, SecureContext: true}, MsgServiceWorker},
		{"secure context", Environment{SharedArrayBuffer: true, ServiceWorker: true}, MsgSecureContext},
		{"shared memory checked first", Environment{}, MsgSharedArrayBuffer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := runtime.NewMockRuntime()
			s := NewSession(rt, WithEnvironment(tt.env), WithBackoff(time.Millisecond, 3))

			_, err := s.Boot(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
			assert.True(t, errors.HasCode(err, errors.ExitCapability))
			assert.Equal(t, StateError, s.State())
			assert.Empty(t, rt.GetCallsFor("Boot"))
			assert.Zero(t, s.RetryCount())
		})
	}
}

func TestSession_PreflightFailureIsTerminal(t *testing.T) {
	rt := runtime.NewMockRuntime()
	rt.SetError("Preflight", fmt.Errorf("docker daemon not running"))

	s := NewSession(rt, WithBackoff(time.Millisecond, 3))
	_, err := s.Boot(context.Background())
	require.Error(t, err)

	assert.True(t, errors.HasCode(err, errors.ExitCapability))
	assert.Empty(t, rt.GetCallsFor("Boot"))
	assert.Equal(t, StateError, s.State())
}

func TestSession_ConcurrentBootCoalesced(t *testing.T) {
	rt := runtime.NewMockRuntime()
	rt.BootFailures = 1
	s := NewSession(rt, WithBackoff(20*time.Millisecond, 3))

	var wg sync.WaitGroup
	results := make([]runtime.Instance, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inst, err := s.Boot(context.Background())
			assert.NoError(t, err)
			results[i] = inst
		}(i)
	}
	wg.Wait()

	assert.Len(t, rt.Instances(), 1)
	for _, inst := range results {
		assert.Same(t, rt.Instances()[0], inst)
	}
}

func TestSession_ReadyIsCached(t *testing.T) {
	rt := runtime.NewMockRuntime()
	s := NewSession(rt)

	first, err := s.Boot(context.Background())
	require.NoError(t, err)
	second, err := s.Boot(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Len(t, rt.GetCallsFor("Boot"), 1)
	assert.Zero(t, s.RetryCount())
}

func TestSession_Audit(t *testing.T) {
	logger := audit.NewLogger(t.TempDir())
	rt := runtime.NewMockRuntime()
	rt.BootFailures = 1

	s := NewSession(rt, WithBackoff(time.Millisecond, 3), WithSessionAudit(logger, "demo"))
	_, err := s.Boot(context.Background())
	require.NoError(t, err)

	events, err := logger.Events("demo")
	require.NoError(t, err)

	var types []audit.EventType
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []audit.EventType{audit.EventBoot, audit.EventBootRetry, audit.EventReady}, types)
}

func TestSession_Close(t *testing.T) {
	rt := runtime.NewMockRuntime()
	s := NewSession(rt)
	require.NoError(t, s.Close())

	_, err := s.Boot(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.True(t, rt.Instances()[0].Closed())
}
