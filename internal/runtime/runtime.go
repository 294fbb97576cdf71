package runtime

import (
	"context"

	"github.com/clippy-ai/clippy-ctl/internal/mount"
)

// SpawnOptions holds options for starting a process in an instance
type SpawnOptions struct {
	Command string   // Executable, e.g. "npm"
	Args    []string // Arguments
	Dir     string   // Working directory relative to the project root
	Env     []string // Extra environment variables (KEY=value)
}

// ServerReadyFunc receives the port and URL of a dev server that started listening
type ServerReadyFunc func(port int, url string)

// Runtime is the interface that sandbox backends must implement.
// All methods should be safe for concurrent use.
type Runtime interface {
	// Name returns the runtime identifier (e.g., "local", "docker")
	Name() string

	// Preflight checks that the host can run this runtime at all.
	// Errors are capability errors and should not be retried.
	Preflight(ctx context.Context) error

	// Boot starts a fresh instance
	Boot(ctx context.Context) (Instance, error)
}

// Instance is one booted sandbox.
type Instance interface {
	// Mount writes a projection into the instance's project root
	Mount(ctx context.Context, tree mount.Tree) error

	// Spawn starts a process. The process outlives ctx cancellation;
	// use Kill to stop it.
	Spawn(ctx context.Context, opts SpawnOptions) (Process, error)

	// OnServerReady registers fn for dev servers announced by processes
	// spawned after the call. The returned function unregisters it.
	OnServerReady(fn ServerReadyFunc) (cancel func())

	// Close stops every process and releases the instance
	Close() error
}

// Process is a running command.
type Process interface {
	// Output streams raw stdout and stderr chunks. The channel is closed
	// once the process has exited and all output was delivered.
	Output() <-chan string

	// Wait blocks until the process exits and returns its exit code
	Wait(ctx context.Context) (int, error)

	// Kill stops the process
	Kill() error
}
