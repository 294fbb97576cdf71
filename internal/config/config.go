package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kballard/go-shellquote"

	"github.com/clippy-ai/clippy-ctl/internal/errors"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "CLIPPY_"

	DefaultBackendURL      = "http://localhost:3000"
	DefaultRuntime         = "auto"
	DefaultContainerPrefix = "clippy-"
	DefaultImage           = "docker.io/library/node:20-alpine"
	DefaultInstallCommand  = "npm install"
	DefaultDevCommand      = "npm run dev"
	DefaultListen          = "127.0.0.1:7070"
)

// sessionNameRegex validates session names.
// Names must start with a lowercase letter or digit, followed by lowercase letters, digits, underscores, or hyphens.
// Maximum length is 63 characters (common container name limit).
var sessionNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,62}$`)

// ValidateSessionName checks if a session name is valid.
// Valid names:
//   - Start with a lowercase letter or digit
//   - Contain only lowercase letters, digits, underscores, or hyphens
//   - Are between 1 and 63 characters long
func ValidateSessionName(name string) error {
	if name == "" {
		return fmt.Errorf("session name cannot be empty")
	}

	if !sessionNameRegex.MatchString(name) {
		return fmt.Errorf("invalid session name %q: must start with a lowercase letter or digit, contain only lowercase letters, digits, underscores, or hyphens, and be at most 63 characters", name)
	}

	return nil
}

// Duration is a time.Duration written as a string ("2s") in config files.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText renders the duration as a string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the clippy-ctl configuration.
type Config struct {
	Backend BackendConfig `toml:"backend"`
	Sandbox SandboxConfig `toml:"sandbox"`
	Preview PreviewConfig `toml:"preview"`
	Server  ServerConfig  `toml:"server"`

	// StateDir holds audit logs and other session state.
	StateDir string `toml:"state_dir" validate:"required"`
}

// BackendConfig locates the generation service.
type BackendConfig struct {
	URL     string            `toml:"url" validate:"required,url"`
	Timeout Duration          `toml:"timeout"`
	Headers map[string]string `toml:"headers"`
}

// SandboxConfig selects and tunes the sandbox runtime.
type SandboxConfig struct {
	Runtime         string   `toml:"runtime" validate:"oneof=auto local docker podman"`
	WorkDir         string   `toml:"work_dir"`
	ContainerPrefix string   `toml:"container_prefix"`
	Image           string   `toml:"image"`
	Ports           []int    `toml:"ports" validate:"dive,min=1,max=65535"`
	BootRetries     int      `toml:"boot_retries" validate:"min=0,max=10"`
	BootBaseDelay   Duration `toml:"boot_base_delay"`
	KeepFiles       bool     `toml:"keep_files"`
}

// PreviewConfig configures install/start cycles.
type PreviewConfig struct {
	InstallCommand string   `toml:"install_command" validate:"required"`
	DevCommand     string   `toml:"dev_command" validate:"required"`
	InstallWindow  Duration `toml:"install_window"`
	DevWindow      Duration `toml:"dev_window"`
}

// ServerConfig configures the browser viewer.
type ServerConfig struct {
	Listen string `toml:"listen" validate:"required,hostname_port"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:     DefaultBackendURL,
			Timeout: Duration{2 * time.Minute},
		},
		Sandbox: SandboxConfig{
			Runtime:         DefaultRuntime,
			WorkDir:         os.TempDir(),
			ContainerPrefix: DefaultContainerPrefix,
			Image:           DefaultImage,
			Ports:           []int{5173, 3000, 8080},
			BootRetries:     3,
			BootBaseDelay:   Duration{time.Second},
		},
		Preview: PreviewConfig{
			InstallCommand: DefaultInstallCommand,
			DevCommand:     DefaultDevCommand,
			InstallWindow:  Duration{2 * time.Second},
			DevWindow:      Duration{3 * time.Second},
		},
		Server: ServerConfig{
			Listen: DefaultListen,
		},
		StateDir: defaultStateDir(),
	}
}

func defaultStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "clippy")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", "clippy")
	}
	return filepath.Join(os.TempDir(), "clippy-state")
}

// DefaultPath returns the config file location used when none is given.
func DefaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "clippy", "config.toml")
	}
	return ""
}

// Load builds the configuration from defaults, the TOML file at path,
// a .env file in the working directory, and CLIPPY_* environment
// variables, in increasing precedence. An empty path uses DefaultPath
// and tolerates its absence; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			if !explicit && os.IsNotExist(err) {
				err = nil
			}
			if err != nil {
				return nil, errors.ConfigError(fmt.Sprintf("failed to load config %s", path), err)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.ConfigError("failed to load .env", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return Parse(data, c)
}

// Parse decodes TOML data over cfg.
func Parse(data []byte, cfg *Config) error {
	md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// applyEnv overlays CLIPPY_* variables read through lookup.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"BACKEND_URL":      &c.Backend.URL,
		"RUNTIME":          &c.Sandbox.Runtime,
		"WORK_DIR":         &c.Sandbox.WorkDir,
		"IMAGE":            &c.Sandbox.Image,
		"CONTAINER_PREFIX": &c.Sandbox.ContainerPrefix,
		"INSTALL_COMMAND":  &c.Preview.InstallCommand,
		"DEV_COMMAND":      &c.Preview.DevCommand,
		"LISTEN":           &c.Server.Listen,
		"STATE_DIR":        &c.StateDir,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}

	durations := map[string]*Duration{
		"BACKEND_TIMEOUT": &c.Backend.Timeout,
		"BOOT_BASE_DELAY": &c.Sandbox.BootBaseDelay,
		"INSTALL_WINDOW":  &c.Preview.InstallWindow,
		"DEV_WINDOW":      &c.Preview.DevWindow,
	}
	for key, dst := range durations {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			continue
		}
		if err := dst.UnmarshalText([]byte(v)); err != nil {
			return errors.ConfigError(fmt.Sprintf("invalid %s%s", EnvPrefix, key), err)
		}
	}

	if v, ok := lookup(EnvPrefix + "BOOT_RETRIES"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.ConfigError(EnvPrefix+"BOOT_RETRIES must be an integer", err)
		}
		c.Sandbox.BootRetries = n
	}
	if v, ok := lookup(EnvPrefix + "KEEP_FILES"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.ConfigError(EnvPrefix+"KEEP_FILES must be a boolean", err)
		}
		c.Sandbox.KeepFiles = b
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the Config is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return errors.ValidationError(fmt.Sprintf("invalid config: %s failed %q", first.Namespace(), first.Tag()))
		}
		return errors.ValidationError(fmt.Sprintf("invalid config: %v", err))
	}

	for name, d := range map[string]Duration{
		"sandbox.boot_base_delay": c.Sandbox.BootBaseDelay,
		"preview.install_window":  c.Preview.InstallWindow,
		"preview.dev_window":      c.Preview.DevWindow,
	} {
		if d.Duration <= 0 {
			return errors.ValidationError(fmt.Sprintf("invalid config: %s must be positive", name))
		}
	}
	if c.Backend.Timeout.Duration < 0 {
		return errors.ValidationError("invalid config: backend.timeout cannot be negative")
	}
	for name, line := range map[string]string{
		"preview.install_command": c.Preview.InstallCommand,
		"preview.dev_command":     c.Preview.DevCommand,
	} {
		words, err := shellquote.Split(line)
		if err != nil {
			return errors.ValidationError(fmt.Sprintf("invalid config: %s: %v", name, err))
		}
		if len(words) == 0 {
			return errors.ValidationError(fmt.Sprintf("invalid config: %s is empty", name))
		}
	}
	if c.Sandbox.WorkDir != "" && !filepath.IsAbs(c.Sandbox.WorkDir) {
		return errors.ValidationError(fmt.Sprintf("invalid config: sandbox.work_dir must be an absolute path (got %q)", c.Sandbox.WorkDir))
	}
	return nil
}
