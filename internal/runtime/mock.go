package runtime

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/clippy-ai/clippy-ctl/internal/mount"
)

// MockScript describes how a mock process behaves
type MockScript struct {
	// Output chunks delivered in order
	Output []string

	// ExitCode returned by Wait
	ExitCode int

	// WaitError returned by Wait
	WaitError error

	// SpawnError makes Spawn fail
	SpawnError error

	// ReadyPort and ReadyURL, when set, are announced after Output
	ReadyPort int
	ReadyURL  string

	// Hold keeps the process running until closed or killed
	Hold chan struct{}
}

// MockRuntime is a mock implementation of Runtime for testing
type MockRuntime struct {
	mu sync.RWMutex

	// Errors allows injecting errors for specific operations
	// ("Preflight", "Boot", "Mount", "Spawn")
	Errors map[string]error

	// BootFailures is the number of boots that fail before one succeeds
	BootFailures int

	// BootError is returned by failing boots (default: a generic error)
	BootError error

	// Scripts maps command lines (e.g. "npm install") to process behavior
	Scripts map[string]*MockScript

	// CallLog records all method calls for verification
	CallLog []MockCall

	boots     int
	instances []*MockInstance
}

// MockCall represents a recorded method call
type MockCall struct {
	Method string
	Args   []interface{}
}

// NewMockRuntime creates a new mock runtime
func NewMockRuntime() *MockRuntime {
	return &MockRuntime{
		Errors:  make(map[string]error),
		Scripts: make(map[string]*MockScript),
		CallLog: make([]MockCall, 0),
	}
}

func (m *MockRuntime) record(method string, args ...interface{}) {
	m.CallLog = append(m.CallLog, MockCall{Method: method, Args: args})
}

// SetError sets an error to be returned for a specific operation
func (m *MockRuntime) SetError(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[operation] = err
}

// SetScript sets the behavior of processes started with commandLine
func (m *MockRuntime) SetScript(commandLine string, script *MockScript) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Scripts[commandLine] = script
}

// GetCalls returns all recorded calls
func (m *MockRuntime) GetCalls() []MockCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	calls := make([]MockCall, len(m.CallLog))
	copy(calls, m.CallLog)
	return calls
}

// GetCallsFor returns all calls for a specific method
func (m *MockRuntime) GetCallsFor(method string) []MockCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var calls []MockCall
	for _, call := range m.CallLog {
		if call.Method == method {
			calls = append(calls, call)
		}
	}
	return calls
}

// Instances returns every instance booted so far
func (m *MockRuntime) Instances() []*MockInstance {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*MockInstance(nil), m.instances...)
}

// Reset clears all state
func (m *MockRuntime) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors = make(map[string]error)
	m.Scripts = make(map[string]*MockScript)
	m.CallLog = make([]MockCall, 0)
	m.BootFailures = 0
	m.boots = 0
	m.instances = nil
}

// Name returns the runtime identifier
func (m *MockRuntime) Name() string {
	return "mock"
}

// Preflight returns the injected "Preflight" error, if any
func (m *MockRuntime) Preflight(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Preflight")
	return m.Errors["Preflight"]
}

// Boot fails BootFailures times, then returns a new MockInstance
func (m *MockRuntime) Boot(ctx context.Context) (Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boots++
	m.record("Boot", m.boots)

	if err, ok := m.Errors["Boot"]; ok {
		return nil, err
	}
	if m.boots <= m.BootFailures {
		if m.BootError != nil {
			return nil, m.BootError
		}
		return nil, fmt.Errorf("mock boot failure %d", m.boots)
	}

	inst := &MockInstance{rt: m, listeners: make(map[int]ServerReadyFunc)}
	m.instances = append(m.instances, inst)
	return inst, nil
}

// MockInstance is an instance booted by MockRuntime
type MockInstance struct {
	rt *MockRuntime

	mu        sync.Mutex
	mounts    []mount.Tree
	processes []*MockProcess
	listeners map[int]ServerReadyFunc
	nextID    int
	closed    bool
}

// Mount records the projection
func (i *MockInstance) Mount(ctx context.Context, tree mount.Tree) error {
	i.rt.mu.Lock()
	i.rt.record("Mount", len(mount.Files(tree)))
	err := i.rt.Errors["Mount"]
	i.rt.mu.Unlock()
	if err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.mounts = append(i.mounts, tree)
	return nil
}

// Mounts returns every projection mounted so far
func (i *MockInstance) Mounts() []mount.Tree {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]mount.Tree(nil), i.mounts...)
}

// Processes returns every process spawned so far
func (i *MockInstance) Processes() []*MockProcess {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]*MockProcess(nil), i.processes...)
}

// Closed reports whether Close was called
func (i *MockInstance) Closed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.closed
}

// Spawn starts a scripted process; unknown commands exit 0 with no output
func (i *MockInstance) Spawn(ctx context.Context, opts SpawnOptions) (Process, error) {
	line := strings.TrimSpace(opts.Command + " " + strings.Join(opts.Args, " "))

	i.rt.mu.Lock()
	i.rt.record("Spawn", line, opts.Dir)
	err := i.rt.Errors["Spawn"]
	script := i.rt.Scripts[line]
	i.rt.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if script == nil {
		script = &MockScript{}
	}
	if script.SpawnError != nil {
		return nil, script.SpawnError
	}

	p := &MockProcess{
		CommandLine: line,
		Dir:         opts.Dir,
		out:         make(chan string, len(script.Output)),
		done:        make(chan struct{}),
		killed:      make(chan struct{}),
		exitCode:    script.ExitCode,
		waitErr:     script.WaitError,
	}
	for _, chunk := range script.Output {
		p.out <- chunk
	}

	i.mu.Lock()
	i.processes = append(i.processes, p)
	i.mu.Unlock()

	go p.run(i, script)
	return p, nil
}

func (i *MockInstance) announce(port int, url string) {
	i.mu.Lock()
	fns := make([]ServerReadyFunc, 0, len(i.listeners))
	for _, fn := range i.listeners {
		fns = append(fns, fn)
	}
	i.mu.Unlock()
	for _, fn := range fns {
		fn(port, url)
	}
}

// OnServerReady registers a listener
func (i *MockInstance) OnServerReady(fn ServerReadyFunc) func() {
	i.mu.Lock()
	defer i.mu.Unlock()
	id := i.nextID
	i.nextID++
	i.listeners[id] = fn
	return func() {
		i.mu.Lock()
		defer i.mu.Unlock()
		delete(i.listeners, id)
	}
}

// Listeners returns the number of registered server-ready listeners
func (i *MockInstance) Listeners() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.listeners)
}

// Close kills all processes
func (i *MockInstance) Close() error {
	i.rt.mu.Lock()
	i.rt.record("Close")
	i.rt.mu.Unlock()

	i.mu.Lock()
	i.closed = true
	procs := append([]*MockProcess(nil), i.processes...)
	i.mu.Unlock()

	for _, p := range procs {
		_ = p.Kill()
	}
	return nil
}

// MockProcess is a process started by MockInstance
type MockProcess struct {
	CommandLine string
	Dir         string

	out      chan string
	done     chan struct{}
	killed   chan struct{}
	killOnce sync.Once

	mu       sync.Mutex
	exitCode int
	waitErr  error
	wasKill  bool
}

func (p *MockProcess) run(inst *MockInstance, script *MockScript) {
	if script.ReadyURL != "" {
		inst.announce(script.ReadyPort, script.ReadyURL)
	}
	if script.Hold != nil {
		select {
		case <-script.Hold:
		case <-p.killed:
		}
	}
	close(p.out)
	close(p.done)
}

// Output returns the scripted output
func (p *MockProcess) Output() <-chan string {
	return p.out
}

// Wait returns the scripted exit code once the process ends
func (p *MockProcess) Wait(ctx context.Context) (int, error) {
	select {
	case <-p.done:
	case <-ctx.Done():
		return -1, ctx.Err()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.wasKill {
		return -1, nil
	}
	return p.exitCode, p.waitErr
}

// Kill ends a held process
func (p *MockProcess) Kill() error {
	p.killOnce.Do(func() {
		p.mu.Lock()
		select {
		case <-p.done:
		default:
			p.wasKill = true
		}
		p.mu.Unlock()
		close(p.killed)
	})
	return nil
}

// Killed reports whether Kill was called before the process ended
func (p *MockProcess) Killed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.wasKill
}

// Ensure the mocks implement the runtime interfaces
var (
	_ Runtime  = (*MockRuntime)(nil)
	_ Instance = (*MockInstance)(nil)
	_ Process  = (*MockProcess)(nil)
)
