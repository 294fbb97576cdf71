package runtime

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/clippy-ai/clippy-ctl/internal/errors"
	"github.com/clippy-ai/clippy-ctl/internal/logging"
)

// LocalRuntime runs projects with the host's node toolchain.
type LocalRuntime struct {
	// WorkDir is where per-instance project directories are created
	WorkDir string

	// KeepFiles leaves project directories behind on Close
	KeepFiles bool

	// lookPath is exec.LookPath, replaceable in tests
	lookPath func(string) (string, error)
}

// NewLocalRuntime creates a local runtime rooted at workDir.
// An empty workDir uses the system temp directory.
func NewLocalRuntime(workDir string) *LocalRuntime {
	return &LocalRuntime{WorkDir: workDir, lookPath: exec.LookPath}
}

// Name returns the runtime identifier
func (r *LocalRuntime) Name() string {
	return string(RuntimeLocal)
}

// Preflight checks that node and npm are on PATH.
func (r *LocalRuntime) Preflight(ctx context.Context) error {
	lookPath := r.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	for _, tool := range []string{"node", "npm"} {
		if _, err := lookPath(tool); err != nil {
			return errors.CapabilityUnavailable(fmt.Sprintf(
				"Live preview requires %s on PATH. Please install Node.js 18 or newer.", tool))
		}
	}
	return nil
}

// Boot creates a fresh project directory.
func (r *LocalRuntime) Boot(ctx context.Context) (Instance, error) {
	if r.WorkDir != "" {
		if err := os.MkdirAll(r.WorkDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create work directory: %w", err)
		}
	}
	root, err := os.MkdirTemp(r.WorkDir, "project-")
	if err != nil {
		return nil, fmt.Errorf("failed to create project directory: %w", err)
	}
	logging.Debug("booted local instance", "root", root)

	command := func(ctx context.Context, opts SpawnOptions) (*exec.Cmd, error) {
		dir, err := securejoin.SecureJoin(root, opts.Dir)
		if err != nil {
			return nil, fmt.Errorf("invalid working directory %q: %w", opts.Dir, err)
		}
		cmd := exec.Command(opts.Command, opts.Args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(), opts.Env...)
		return cmd, nil
	}

	cleanup := func() error {
		if r.KeepFiles {
			return nil
		}
		return os.RemoveAll(root)
	}

	return newHostInstance(root, command, nil, cleanup), nil
}

var _ Runtime = (*LocalRuntime)(nil)
