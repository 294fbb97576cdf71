package runtime

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/clippy-ai/clippy-ctl/internal/errors"
	"github.com/clippy-ai/clippy-ctl/internal/logging"
)

// containerRoot is where the project directory is mounted inside the container
const containerRoot = "/workspace"

// DockerRuntime implements the Runtime interface using Docker or Podman.
type DockerRuntime struct {
	// Command is the container command to use (docker or podman)
	Command string

	// ContainerPrefix is prepended to instance names to form container names
	ContainerPrefix string

	// Image is the node image projects run in
	Image string

	// WorkDir is where per-instance project directories are created
	WorkDir string

	// Ports are the container ports published for dev servers
	Ports []int
}

// NewDockerRuntime creates a new Docker/Podman runtime.
// An empty command auto-detects podman, then docker.
func NewDockerRuntime(command string, cfg *Config) (*DockerRuntime, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if command == "" {
		for _, candidate := range []string{"podman", "docker"} {
			if _, err := exec.LookPath(candidate); err == nil {
				command = candidate
				break
			}
		}
	}
	if command == "" {
		return nil, fmt.Errorf("neither podman nor docker found in PATH")
	}

	return &DockerRuntime{
		Command:         command,
		ContainerPrefix: cfg.ContainerPrefix,
		Image:           cfg.Image,
		WorkDir:         cfg.WorkDir,
		Ports:           cfg.Ports,
	}, nil
}

// containerName returns the full container name for an instance
func (r *DockerRuntime) containerName(instance string) string {
	return r.ContainerPrefix + instance
}

// Name returns the runtime identifier
func (r *DockerRuntime) Name() string {
	return r.Command
}

// runCmd executes a docker/podman command
func (r *DockerRuntime) runCmd(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, r.Command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s %s failed: %s: %w", r.Command, args[0], strings.TrimSpace(stderr.String()), err)
	}

	return stdout.String(), nil
}

// Preflight checks that the container engine answers.
func (r *DockerRuntime) Preflight(ctx context.Context) error {
	if _, err := exec.LookPath(r.Command); err != nil {
		return errors.CapabilityUnavailable(fmt.Sprintf("Live preview requires %s on PATH.", r.Command))
	}
	if _, err := r.runCmd(ctx, "info"); err != nil {
		logging.Debug("container engine not reachable", "runtime", r.Command, "error", err)
		return errors.CapabilityUnavailable(fmt.Sprintf(
			"Live preview requires a running %s engine. Please start it and try again.", r.Command))
	}
	return nil
}

// createArgs builds the arguments that start an idle container serving root.
func (r *DockerRuntime) createArgs(name, root string) []string {
	args := []string{"run", "-d", "--rm", "--name", name,
		"-v", fmt.Sprintf("%s:%s", root, containerRoot),
		"-w", containerRoot,
	}
	for _, port := range r.Ports {
		args = append(args, "-p", fmt.Sprintf("127.0.0.1::%d", port))
	}
	return append(args, r.Image, "sleep", "infinity")
}

// execArgs builds the arguments that run opts inside the container.
func (r *DockerRuntime) execArgs(name string, opts SpawnOptions) []string {
	args := []string{"exec", "-w", path.Join(containerRoot, path.Clean("/"+opts.Dir))}
	// Dev servers must listen beyond the container's loopback to be published.
	args = append(args, "-e", "HOST=0.0.0.0")
	for _, env := range opts.Env {
		args = append(args, "-e", env)
	}
	args = append(args, name, opts.Command)
	return append(args, opts.Args...)
}

// Boot starts a container with a fresh project directory mounted.
func (r *DockerRuntime) Boot(ctx context.Context) (Instance, error) {
	if r.WorkDir != "" {
		if err := os.MkdirAll(r.WorkDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create work directory: %w", err)
		}
	}
	root, err := os.MkdirTemp(r.WorkDir, "project-")
	if err != nil {
		return nil, fmt.Errorf("failed to create project directory: %w", err)
	}
	if root, err = filepath.Abs(root); err != nil {
		return nil, err
	}

	name := r.containerName(filepath.Base(root))
	logging.Debug("starting container", "name", name, "runtime", r.Command, "image", r.Image)

	if _, err := r.runCmd(ctx, r.createArgs(name, root)...); err != nil {
		_ = os.RemoveAll(root)
		return nil, err
	}

	command := func(ctx context.Context, opts SpawnOptions) (*exec.Cmd, error) {
		args := r.execArgs(name, opts)
		logging.Debug("container exec", "container", name, "command", shellquote.Join(args[len(args)-len(opts.Args)-1:]...))
		return exec.Command(r.Command, args...), nil
	}

	mapURL := func(ctx context.Context, port int, url string) (int, string) {
		hostPort, err := r.publishedPort(ctx, name, port)
		if err != nil {
			logging.Debug("no published port, using container URL", "port", port, "error", err)
			return port, url
		}
		return hostPort, fmt.Sprintf("http://127.0.0.1:%d", hostPort)
	}

	cleanup := func() error {
		logging.Debug("removing container", "container", name)
		_, err := r.runCmd(context.Background(), "rm", "-f", name)
		if err != nil && (strings.Contains(err.Error(), "No such container") ||
			strings.Contains(err.Error(), "no such container")) {
			err = nil
		}
		if rmErr := os.RemoveAll(root); err == nil {
			err = rmErr
		}
		return err
	}

	return newHostInstance(root, command, mapURL, cleanup), nil
}

// publishedPort returns the host port bound to a container port.
func (r *DockerRuntime) publishedPort(ctx context.Context, name string, port int) (int, error) {
	output, err := r.runCmd(ctx, "port", name, strconv.Itoa(port))
	if err != nil {
		return 0, err
	}
	return parsePortOutput(output)
}

// parsePortOutput reads the first "host:port" line of `docker port` output.
func parsePortOutput(output string) (int, error) {
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		_, p, err := net.SplitHostPort(line)
		if err != nil {
			continue
		}
		if port, err := strconv.Atoi(p); err == nil {
			return port, nil
		}
	}
	return 0, fmt.Errorf("no published port in %q", output)
}

var _ Runtime = (*DockerRuntime)(nil)
