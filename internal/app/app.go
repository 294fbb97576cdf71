// Package app provides the application context for clippy-ctl.
// It allows dependency injection for testing.
package app

import (
	"fmt"
	"time"

	"github.com/clippy-ai/clippy-ctl/internal/audit"
	"github.com/clippy-ai/clippy-ctl/internal/backend"
	"github.com/clippy-ai/clippy-ctl/internal/builder"
	"github.com/clippy-ai/clippy-ctl/internal/config"
	"github.com/clippy-ai/clippy-ctl/internal/logging"
	"github.com/clippy-ai/clippy-ctl/internal/logsink"
	"github.com/clippy-ai/clippy-ctl/internal/runtime"
	"github.com/clippy-ai/clippy-ctl/internal/sandbox"
)

// App holds the application dependencies
type App struct {
	// Config is the loaded configuration
	Config *config.Config

	// Runtime is the sandbox runtime
	Runtime runtime.Runtime

	// Backend is the generation service
	Backend builder.Backend

	// Audit records session lifecycle events
	Audit *audit.Logger

	// Viewer describes where the preview is displayed
	Viewer sandbox.Environment
}

// Option is a function that configures the App
type Option func(*App)

// WithConfig sets the configuration
func WithConfig(cfg *config.Config) Option {
	return func(a *App) {
		a.Config = cfg
	}
}

// WithRuntime sets a custom runtime
func WithRuntime(r runtime.Runtime) Option {
	return func(a *App) {
		a.Runtime = r
	}
}

// WithBackend sets a custom generation service
func WithBackend(b builder.Backend) Option {
	return func(a *App) {
		a.Backend = b
	}
}

// WithViewer sets the viewer environment
func WithViewer(env sandbox.Environment) Option {
	return func(a *App) {
		a.Viewer = env
	}
}

// New creates a new App with the given options.
// If runtime is not provided via WithRuntime, it is created from the
// configuration; failure leaves it nil and is reported by RequireRuntime.
func New(opts ...Option) *App {
	app := &App{
		Config: config.Default(),
		Viewer: sandbox.HostEnvironment(),
	}

	for _, opt := range opts {
		opt(app)
	}

	if app.Audit == nil {
		app.Audit = audit.NewLogger(app.Config.StateDir)
	}

	if app.Backend == nil {
		b := app.Config.Backend
		bopts := []backend.Option{backend.WithTimeout(b.Timeout.Duration)}
		for k, v := range b.Headers {
			bopts = append(bopts, backend.WithHeader(k, v))
		}
		app.Backend = backend.New(b.URL, bopts...)
	}

	if app.Runtime == nil {
		rt, err := runtime.New(RuntimeConfig(app.Config))
		if err != nil {
			logging.Debug("failed to initialize runtime", "error", err)
		} else {
			app.Runtime = rt
		}
	}

	return app
}

// RuntimeConfig maps the sandbox section onto a runtime configuration.
func RuntimeConfig(cfg *config.Config) *runtime.Config {
	rc := runtime.DefaultConfig()
	rc.Type = runtime.RuntimeType(cfg.Sandbox.Runtime)
	rc.WorkDir = cfg.Sandbox.WorkDir
	rc.KeepFiles = cfg.Sandbox.KeepFiles
	if cfg.Sandbox.ContainerPrefix != "" {
		rc.ContainerPrefix = cfg.Sandbox.ContainerPrefix
	}
	if cfg.Sandbox.Image != "" {
		rc.Image = cfg.Sandbox.Image
	}
	if len(cfg.Sandbox.Ports) > 0 {
		rc.Ports = cfg.Sandbox.Ports
	}
	return rc
}

// RequireRuntime returns the runtime or an error explaining why none is
// available.
func (a *App) RequireRuntime() (runtime.Runtime, error) {
	if a.Runtime != nil {
		return a.Runtime, nil
	}
	_, err := runtime.New(RuntimeConfig(a.Config))
	if err == nil {
		err = fmt.Errorf("runtime not initialized")
	}
	return nil, err
}

// SessionName returns a fresh name for a build session.
func SessionName(now time.Time) string {
	return "build-" + now.UTC().Format("20060102-150405")
}

// NewBuilder wires a builder for one session.
func (a *App) NewBuilder(session string) (*builder.Builder, error) {
	if err := config.ValidateSessionName(session); err != nil {
		return nil, err
	}
	rt, err := a.RequireRuntime()
	if err != nil {
		return nil, err
	}

	sink := logsink.New()
	cfg := a.Config

	sess := sandbox.NewSession(rt,
		sandbox.WithEnvironment(a.Viewer),
		sandbox.WithBackoff(cfg.Sandbox.BootBaseDelay.Duration, uint64(cfg.Sandbox.BootRetries)),
		sandbox.WithSessionAudit(a.Audit, session),
	)
	install, err := sandbox.ParseCommand(cfg.Preview.InstallCommand)
	if err != nil {
		return nil, fmt.Errorf("invalid preview.install_command: %w", err)
	}
	dev, err := sandbox.ParseCommand(cfg.Preview.DevCommand)
	if err != nil {
		return nil, fmt.Errorf("invalid preview.dev_command: %w", err)
	}
	ctrl := sandbox.NewController(sink,
		sandbox.WithViewer(a.Viewer),
		sandbox.WithCommands(install, dev),
		sandbox.WithThrottle(cfg.Preview.InstallWindow.Duration, cfg.Preview.DevWindow.Duration),
		sandbox.WithControllerAudit(a.Audit, session),
	)

	logging.Debug("created builder", "session", session, "runtime", rt.Name(), "backend", cfg.Backend.URL)
	return builder.New(a.Backend, sess, ctrl, sink), nil
}

// Default is the default application instance
var Default = New()

// SetDefault sets the default application instance (used for testing)
func SetDefault(app *App) {
	Default = app
}

// ResetDefault resets to the default application instance
func ResetDefault() {
	Default = New()
}
