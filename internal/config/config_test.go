package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/clippy-ai/clippy-ctl/internal/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Backend.URL != DefaultBackendURL {
		t.Errorf("Backend.URL = %q, want %q", cfg.Backend.URL, DefaultBackendURL)
	}
	if cfg.Sandbox.BootRetries != 3 {
		t.Errorf("Sandbox.BootRetries = %d, want 3", cfg.Sandbox.BootRetries)
	}
	if cfg.Sandbox.BootBaseDelay.Duration != time.Second {
		t.Errorf("Sandbox.BootBaseDelay = %v, want 1s", cfg.Sandbox.BootBaseDelay)
	}
	if cfg.Preview.InstallWindow.Duration != 2*time.Second {
		t.Errorf("Preview.InstallWindow = %v, want 2s", cfg.Preview.InstallWindow)
	}
	if cfg.Preview.DevWindow.Duration != 3*time.Second {
		t.Errorf("Preview.DevWindow = %v, want 3s", cfg.Preview.DevWindow)
	}
	if cfg.Preview.InstallCommand != DefaultInstallCommand {
		t.Errorf("Preview.InstallCommand = %q, want %q", cfg.Preview.InstallCommand, DefaultInstallCommand)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v, want nil", err)
	}
}

func TestValidateSessionName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"todo-app", false},
		{"a", false},
		{"app_2", false},
		{"", true},
		{"-leading", true},
		{"Upper", true},
		{"../escape", true},
		{"with space", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSessionName(tt.name)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSessionName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
		})
	}
}

func TestParse(t *testing.T) {
	data := []byte(`
state_dir = "/var/lib/clippy"

[backend]
url = "https://builder.example.com"
timeout = "30s"
headers = { "X-Api-Key" = "secret" }

[sandbox]
runtime = "docker"
boot_retries = 5
boot_base_delay = "250ms"
ports = [5173]

[preview]
install_command = "pnpm install"
dev_command = "pnpm dev"
`)

	cfg := Default()
	if err := Parse(data, cfg); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Backend.URL != "https://builder.example.com" {
		t.Errorf("Backend.URL = %q", cfg.Backend.URL)
	}
	if cfg.Backend.Timeout.Duration != 30*time.Second {
		t.Errorf("Backend.Timeout = %v, want 30s", cfg.Backend.Timeout)
	}
	if cfg.Backend.Headers["X-Api-Key"] != "secret" {
		t.Errorf("Backend.Headers = %v", cfg.Backend.Headers)
	}
	if cfg.Sandbox.Runtime != "docker" {
		t.Errorf("Sandbox.Runtime = %q, want docker", cfg.Sandbox.Runtime)
	}
	if cfg.Sandbox.BootBaseDelay.Duration != 250*time.Millisecond {
		t.Errorf("Sandbox.BootBaseDelay = %v, want 250ms", cfg.Sandbox.BootBaseDelay)
	}
	if len(cfg.Sandbox.Ports) != 1 || cfg.Sandbox.Ports[0] != 5173 {
		t.Errorf("Sandbox.Ports = %v, want [5173]", cfg.Sandbox.Ports)
	}
	if cfg.Preview.DevCommand != "pnpm dev" {
		t.Errorf("Preview.DevCommand = %q", cfg.Preview.DevCommand)
	}
	// Untouched keys keep their defaults.
	if cfg.Preview.DevWindow.Duration != 3*time.Second {
		t.Errorf("Preview.DevWindow = %v, want 3s", cfg.Preview.DevWindow)
	}
	if cfg.Server.Listen != DefaultListen {
		t.Errorf("Server.Listen = %q, want %q", cfg.Server.Listen, DefaultListen)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown key", "[sandbox]\nflavour = \"vanilla\"\n"},
		{"bad duration", "[sandbox]\nboot_base_delay = \"soon\"\n"},
		{"invalid toml", "[backend\nurl = 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Parse([]byte(tt.data), Default()); err == nil {
				t.Error("Parse() error = nil, want error")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing backend url", func(c *Config) { c.Backend.URL = "" }},
		{"bad backend url", func(c *Config) { c.Backend.URL = "not a url" }},
		{"unknown runtime", func(c *Config) { c.Sandbox.Runtime = "vm" }},
		{"too many retries", func(c *Config) { c.Sandbox.BootRetries = 50 }},
		{"bad port", func(c *Config) { c.Sandbox.Ports = []int{70000} }},
		{"zero base delay", func(c *Config) { c.Sandbox.BootBaseDelay = Duration{} }},
		{"zero dev window", func(c *Config) { c.Preview.DevWindow = Duration{} }},
		{"empty dev command", func(c *Config) { c.Preview.DevCommand = "" }},
		{"blank install command", func(c *Config) { c.Preview.InstallCommand = "   " }},
		{"unbalanced dev command quote", func(c *Config) { c.Preview.DevCommand = `npm run dev -- --host "0.0.0.0` }},
		{"bad listen", func(c *Config) { c.Server.Listen = "nowhere" }},
		{"relative work dir", func(c *Config) { c.Sandbox.WorkDir = "tmp" }},
		{"missing state dir", func(c *Config) { c.StateDir = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !errors.HasCode(err, errors.ExitGeneralError) {
				t.Errorf("Validate() exit code = %d, want %d", errors.GetExitCode(err), errors.ExitGeneralError)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")
	if err := os.WriteFile(path, []byte("[backend]\nurl = \"http://file.example\"\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	t.Setenv("CLIPPY_RUNTIME", "local")
	t.Setenv("CLIPPY_BOOT_RETRIES", "1")
	t.Setenv("CLIPPY_DEV_WINDOW", "500ms")
	t.Setenv("CLIPPY_STATE_DIR", tmpDir)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Backend.URL != "http://file.example" {
		t.Errorf("Backend.URL = %q, want file value", cfg.Backend.URL)
	}
	if cfg.Sandbox.Runtime != "local" {
		t.Errorf("Sandbox.Runtime = %q, want local", cfg.Sandbox.Runtime)
	}
	if cfg.Sandbox.BootRetries != 1 {
		t.Errorf("Sandbox.BootRetries = %d, want 1", cfg.Sandbox.BootRetries)
	}
	if cfg.Preview.DevWindow.Duration != 500*time.Millisecond {
		t.Errorf("Preview.DevWindow = %v, want 500ms", cfg.Preview.DevWindow)
	}
	if cfg.StateDir != tmpDir {
		t.Errorf("StateDir = %q, want %q", cfg.StateDir, tmpDir)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")
	if err := os.WriteFile(path, []byte("[backend]\nurl = \"http://file.example\"\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	t.Setenv("CLIPPY_BACKEND_URL", "http://env.example")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Backend.URL != "http://env.example" {
		t.Errorf("Backend.URL = %q, want env value", cfg.Backend.URL)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Run("explicit path missing", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
		if !errors.HasCode(err, errors.ExitConfigError) {
			t.Errorf("Load() error = %v, want config error", err)
		}
	})

	t.Run("bad env duration", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, nil, 0644); err != nil {
			t.Fatalf("Failed to write config: %v", err)
		}
		t.Setenv("CLIPPY_BOOT_BASE_DELAY", "eventually")

		_, err := Load(path)
		if !errors.HasCode(err, errors.ExitConfigError) {
			t.Errorf("Load() error = %v, want config error", err)
		}
	})

	t.Run("bad env integer", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, nil, 0644); err != nil {
			t.Fatalf("Failed to write config: %v", err)
		}
		t.Setenv("CLIPPY_BOOT_RETRIES", "three")

		_, err := Load(path)
		if !errors.HasCode(err, errors.ExitConfigError) {
			t.Errorf("Load() error = %v, want config error", err)
		}
	})
}

func TestDuration_Text(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte(" 1m30s ")); err != nil {
		t.Fatalf("UnmarshalText() error = %v", err)
	}
	if d.Duration != 90*time.Second {
		t.Errorf("Duration = %v, want 1m30s", d.Duration)
	}
	text, err := d.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText() error = %v", err)
	}
	if string(text) != "1m30s" {
		t.Errorf("MarshalText() = %q, want %q", text, "1m30s")
	}
}
