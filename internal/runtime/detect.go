package runtime

import (
	"fmt"
	"os/exec"
	goruntime "runtime"

	"github.com/clippy-ai/clippy-ctl/internal/logging"
)

// RuntimeType identifies which sandbox runtime to use
type RuntimeType string

const (
	RuntimeLocal  RuntimeType = "local"
	RuntimeDocker RuntimeType = "docker"
	RuntimePodman RuntimeType = "podman"
	RuntimeAuto   RuntimeType = "auto"
)

// Config holds runtime configuration
type Config struct {
	// Type specifies which runtime to use (or "auto" for auto-detection)
	Type RuntimeType

	// WorkDir is where project directories are created (empty: temp dir)
	WorkDir string

	// ContainerPrefix is prepended to container names
	ContainerPrefix string

	// Image is the container image for docker/podman
	Image string

	// Ports are the dev server ports published by container runtimes
	Ports []int

	// KeepFiles leaves local project directories behind on Close
	KeepFiles bool
}

// DefaultConfig returns the default runtime configuration
func DefaultConfig() *Config {
	return &Config{
		Type:            RuntimeAuto,
		ContainerPrefix: "clippy-",
		Image:           "docker.io/library/node:20-alpine",
		Ports:           []int{5173, 3000, 8080},
	}
}

// Detect determines which sandbox runtime is available on the system.
// A host node toolchain is preferred, then podman (rootless), then docker.
func Detect() (RuntimeType, error) {
	return detect(exec.LookPath)
}

func detect(lookPath func(string) (string, error)) (RuntimeType, error) {
	logging.Debug("detecting sandbox runtime", "os", goruntime.GOOS)

	_, nodeErr := lookPath("node")
	_, npmErr := lookPath("npm")
	if nodeErr == nil && npmErr == nil {
		logging.Debug("detected host node toolchain")
		return RuntimeLocal, nil
	}

	if _, err := lookPath("podman"); err == nil {
		logging.Debug("detected podman")
		return RuntimePodman, nil
	}

	if _, err := lookPath("docker"); err == nil {
		logging.Debug("detected docker")
		return RuntimeDocker, nil
	}

	return "", fmt.Errorf("no supported sandbox runtime found (tried: node+npm, podman, docker)")
}

// New creates a new Runtime based on the configuration.
// If Type is RuntimeAuto, it auto-detects the best runtime.
func New(cfg *Config) (Runtime, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	runtimeType := cfg.Type
	if runtimeType == RuntimeAuto || runtimeType == "" {
		detected, err := Detect()
		if err != nil {
			return nil, err
		}
		runtimeType = detected
	}

	logging.Debug("creating runtime", "type", runtimeType)

	switch runtimeType {
	case RuntimeLocal:
		rt := NewLocalRuntime(cfg.WorkDir)
		rt.KeepFiles = cfg.KeepFiles
		return rt, nil

	case RuntimeDocker, RuntimePodman:
		return NewDockerRuntime(string(runtimeType), cfg)

	default:
		return nil, fmt.Errorf("unknown runtime type: %s", runtimeType)
	}
}

// Available returns a list of available runtimes on this system
func Available() []RuntimeType {
	return available(exec.LookPath)
}

func available(lookPath func(string) (string, error)) []RuntimeType {
	var out []RuntimeType

	_, nodeErr := lookPath("node")
	_, npmErr := lookPath("npm")
	if nodeErr == nil && npmErr == nil {
		out = append(out, RuntimeLocal)
	}

	if _, err := lookPath("podman"); err == nil {
		out = append(out, RuntimePodman)
	}

	if _, err := lookPath("docker"); err == nil {
		out = append(out, RuntimeDocker)
	}

	return out
}
