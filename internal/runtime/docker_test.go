package runtime

import (
	"context"
	"strings"
	"testing"

	"github.com/clippy-ai/clippy-ctl/internal/errors"
)

func TestDockerRuntime_Name(t *testing.T) {
	rt := &DockerRuntime{
		Command:         "docker",
		ContainerPrefix: "clippy-",
	}

	if rt.Name() != "docker" {
		t.Errorf("Name() = %q, want %q", rt.Name(), "docker")
	}

	rt.Command = "podman"
	if rt.Name() != "podman" {
		t.Errorf("Name() = %q, want %q", rt.Name(), "podman")
	}
}

func TestDockerRuntime_containerName(t *testing.T) {
	rt := &DockerRuntime{
		Command:         "docker",
		ContainerPrefix: "clippy-",
	}

	tests := []struct {
		instance string
		want     string
	}{
		{"project-123", "clippy-project-123"},
		{"", "clippy-"},
	}

	for _, tt := range tests {
		t.Run(tt.instance, func(t *testing.T) {
			got := rt.containerName(tt.instance)
			if got != tt.want {
				t.Errorf("containerName(%q) = %q, want %q", tt.instance, got, tt.want)
			}
		})
	}
}

func TestDockerRuntime_createArgs(t *testing.T) {
	rt := &DockerRuntime{
		Command: "podman",
		Image:   "node:20-alpine",
		Ports:   []int{5173, 3000},
	}

	got := strings.Join(rt.createArgs("clippy-p1", "/tmp/p1"), " ")
	want := "run -d --rm --name clippy-p1 -v /tmp/p1:/workspace -w /workspace " +
		"-p 127.0.0.1::5173 -p 127.0.0.1::3000 node:20-alpine sleep infinity"
	if got != want {
		t.Errorf("createArgs() = %q, want %q", got, want)
	}
}

func TestDockerRuntime_execArgs(t *testing.T) {
	rt := &DockerRuntime{Command: "docker"}

	tests := []struct {
		name string
		opts SpawnOptions
		want string
	}{
		{
			name: "root dir",
			opts: SpawnOptions{Command: "npm", Args: []string{"install"}, Dir: "/"},
			want: "exec -w /workspace -e HOST=0.0.0.0 c npm install",
		},
		{
			name: "nested dir with env",
			opts: SpawnOptions{Command: "npm", Args: []string{"run", "dev"}, Dir: "web", Env: []string{"CI=1"}},
			want: "exec -w /workspace/web -e HOST=0.0.0.0 -e CI=1 c npm run dev",
		},
		{
			name: "escaping dir",
			opts: SpawnOptions{Command: "ls", Dir: "../../etc"},
			want: "exec -w /workspace/etc -e HOST=0.0.0.0 c ls",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strings.Join(rt.execArgs("c", tt.opts), " ")
			if got != tt.want {
				t.Errorf("execArgs() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParsePortOutput(t *testing.T) {
	tests := []struct {
		output  string
		want    int
		wantErr bool
	}{
		{"127.0.0.1:49153\n", 49153, false},
		{"0.0.0.0:32768\n[::]:32768\n", 32768, false},
		{"", 0, true},
		{"garbage", 0, true},
	}

	for _, tt := range tests {
		got, err := parsePortOutput(tt.output)
		if (err != nil) != tt.wantErr {
			t.Errorf("parsePortOutput(%q) error = %v, wantErr %v", tt.output, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("parsePortOutput(%q) = %d, want %d", tt.output, got, tt.want)
		}
	}
}

func TestDockerRuntime_PreflightMissingCommand(t *testing.T) {
	rt := &DockerRuntime{Command: "definitely-not-a-container-engine"}

	err := rt.Preflight(context.Background())
	if err == nil {
		t.Fatal("Preflight() should fail for a missing command")
	}
	if !errors.HasCode(err, errors.ExitCapability) {
		t.Errorf("Preflight() error code = %d, want %d", errors.GetExitCode(err), errors.ExitCapability)
	}
}

func TestDockerRuntime_Interface(t *testing.T) {
	// Ensure DockerRuntime implements Runtime interface
	var _ Runtime = (*DockerRuntime)(nil)
}
