package sandbox

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/clippy-ai/clippy-ctl/internal/audit"
	"github.com/clippy-ai/clippy-ctl/internal/errors"
	"github.com/clippy-ai/clippy-ctl/internal/filetree"
	"github.com/clippy-ai/clippy-ctl/internal/logging"
	"github.com/clippy-ai/clippy-ctl/internal/manifest"
	"github.com/clippy-ai/clippy-ctl/internal/mount"
	"github.com/clippy-ai/clippy-ctl/internal/runtime"
)

// Sink receives operator log lines.
type Sink interface {
	Append(line string)
}

// PreviewState is the state of the dev server preview.
type PreviewState int

const (
	PreviewIdle PreviewState = iota
	PreviewInstalling
	PreviewStarting
	PreviewRunning
	PreviewError
)

func (p PreviewState) String() string {
	switch p {
	case PreviewInstalling:
		return "installing"
	case PreviewStarting:
		return "starting"
	case PreviewRunning:
		return "running"
	case PreviewError:
		return "error"
	default:
		return "idle"
	}
}

// MarshalText renders the state by name in JSON output.
func (p PreviewState) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Command is a program and its arguments.
type Command struct {
	Name string
	Args []string
}

// ParseCommand splits a command line into words using shell quoting rules.
func ParseCommand(line string) (Command, error) {
	words, err := shellquote.Split(line)
	if err != nil {
		return Command{}, fmt.Errorf("parse command %q: %w", line, err)
	}
	if len(words) == 0 {
		return Command{}, fmt.Errorf("parse command %q: empty command", line)
	}
	return Command{Name: words[0], Args: words[1:]}, nil
}

func (c Command) String() string {
	if c.Name == "" {
		return ""
	}
	return shellquote.Join(append([]string{c.Name}, c.Args...)...)
}

// Snapshot is what the controller is told when the tree changes.
type Snapshot struct {
	Tree *filetree.Tree
	// Generating is set while the backend is still producing steps.
	Generating bool
}

// ReadyFunc is called when the dev server reports its URL.
type ReadyFunc func(port int, url string)

// Controller runs install/start cycles against a ready instance.
type Controller struct {
	sink          Sink
	env           Environment
	install       Command
	dev           Command
	installWindow time.Duration
	devWindow     time.Duration
	now           func() time.Time
	auditLog      *audit.Logger
	session       string

	cycles sync.WaitGroup

	mu           sync.Mutex
	inst         runtime.Instance
	latest       *Snapshot
	lastManifest string
	applied      bool
	serverURL    string
	serverPort   int
	inFlight     bool
	recheck      bool
	waiting      bool
	preview      PreviewState
	devProc      runtime.Process
	cancelReady  func()
	started      int
	onReady      []ReadyFunc
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithCommands sets the install and dev server commands.
func WithCommands(install, dev Command) ControllerOption {
	return func(c *Controller) {
		if install.Name != "" {
			c.install = install
		}
		if dev.Name != "" {
			c.dev = dev
		}
	}
}

// WithThrottle sets the progress windows of the install and dev filters.
func WithThrottle(install, dev time.Duration) ControllerOption {
	return func(c *Controller) {
		c.installWindow = install
		c.devWindow = dev
	}
}

// WithClock replaces time.Now for output throttling.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) {
		c.now = now
	}
}

// WithViewer sets the viewer environment used for error advisories.
func WithViewer(env Environment) ControllerOption {
	return func(c *Controller) {
		c.env = env
	}
}

// WithControllerAudit records cycle events under session.
func WithControllerAudit(logger *audit.Logger, session string) ControllerOption {
	return func(c *Controller) {
		c.auditLog = logger
		c.session = session
	}
}

// NewController creates a controller writing to sink.
func NewController(sink Sink, opts ...ControllerOption) *Controller {
	c := &Controller{
		sink:          sink,
		env:           HostEnvironment(),
		install:       Command{Name: "npm", Args: []string{"install"}},
		dev:           Command{Name: "npm", Args: []string{"run", "dev"}},
		installWindow: InstallWindow,
		devWindow:     DevServerWindow,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnReady registers fn for every dev server URL reported.
func (c *Controller) OnReady(fn ReadyFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReady = append(c.onReady, fn)
}

// SetInstance hands the controller a ready instance and re-evaluates the
// latest snapshot.
func (c *Controller) SetInstance(ctx context.Context, inst runtime.Instance) bool {
	c.mu.Lock()
	c.inst = inst
	latest := c.latest
	c.mu.Unlock()

	if latest == nil {
		return false
	}
	return c.Observe(ctx, *latest)
}

// Observe evaluates a new snapshot and starts a cycle when needed. It
// reports whether a cycle was started.
func (c *Controller) Observe(ctx context.Context, snap Snapshot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.latest = &snap

	if c.inst == nil || snap.Generating || snap.Tree.Empty() {
		return false
	}

	node := snap.Tree.FindFile(manifest.FileName)
	if node == nil {
		if !c.waiting {
			c.waiting = true
			c.sink.Append(errors.ManifestNotFound(manifest.FileName).Error() + ", waiting for build steps to complete")
		}
		return false
	}
	c.waiting = false

	if c.inFlight {
		c.recheck = true
		return false
	}
	if c.applied && node.Content == c.lastManifest {
		return false
	}

	restart := c.applied
	hadURL := c.serverURL != ""
	prevDev, prevCancel := c.devProc, c.cancelReady

	c.inFlight = true
	c.applied = true
	c.lastManifest = node.Content
	c.serverURL = ""
	c.serverPort = 0
	c.devProc = nil
	c.cancelReady = nil
	c.started++

	logging.Debug("starting preview cycle", "cycle", c.started, "manifest", node.Path, "restart", restart)

	cycle := &cycle{
		ctrl:    c,
		gen:     c.started,
		inst:    c.inst,
		tree:    snap.Tree,
		dir:     path.Dir(node.Path),
		hadURL:  hadURL,
		prevDev: prevDev,
		cancel:  prevCancel,
	}
	c.cycles.Add(1)
	go cycle.run(ctx)
	return true
}

// Wait blocks until no cycle is running, including cycles started by
// re-evaluation.
func (c *Controller) Wait() {
	c.cycles.Wait()
}

// URL returns the dev server URL, or "" when not running.
func (c *Controller) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverURL
}

// Port returns the dev server port, or 0 when not running.
func (c *Controller) Port() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverPort
}

// State returns the preview state.
func (c *Controller) State() PreviewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preview
}

// InFlight reports whether a cycle is running.
func (c *Controller) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Cycles returns the number of cycles started.
func (c *Controller) Cycles() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// Stop kills the dev server and drops the ready listener.
func (c *Controller) Stop() {
	c.mu.Lock()
	dev, cancel := c.devProc, c.cancelReady
	c.devProc, c.cancelReady = nil, nil
	c.serverURL = ""
	c.preview = PreviewIdle
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if dev != nil {
		_ = dev.Kill()
	}
}

func (c *Controller) setPreview(p PreviewState) {
	c.mu.Lock()
	c.preview = p
	c.mu.Unlock()
}

func (c *Controller) audit(event audit.EventType, details string) {
	if c.auditLog == nil {
		return
	}
	if err := c.auditLog.LogEvent(event, c.session, details); err != nil {
		logging.Debug("failed to write audit event", "error", err)
	}
}

// cycle is one install/start sequence.
type cycle struct {
	ctrl    *Controller
	gen     int
	inst    runtime.Instance
	tree    *filetree.Tree
	dir     string
	hadURL  bool
	prevDev runtime.Process
	cancel  func()
}

func (cy *cycle) run(ctx context.Context) {
	c := cy.ctrl
	defer c.cycles.Done()

	err := cy.execute(ctx)
	if err != nil {
		c.sink.Append(fmt.Sprintf("Error starting preview: %v", err))
		if c.env.IsConstrainedDevice() {
			c.sink.Append(MobileAdvisory)
		}
		c.setPreview(PreviewError)
		c.audit(audit.EventError, err.Error())
		logging.Warn("preview cycle failed", "error", err)
	}

	c.mu.Lock()
	c.inFlight = false
	recheck := c.recheck
	c.recheck = false
	latest := c.latest
	c.mu.Unlock()

	if recheck && latest != nil {
		c.Observe(ctx, *latest)
	}
}

func (cy *cycle) execute(ctx context.Context) error {
	c := cy.ctrl

	if cy.hadURL {
		c.sink.Append("Package.json changed, reinstalling dependencies...")
	}
	if cy.cancel != nil {
		cy.cancel()
	}
	if cy.prevDev != nil {
		if err := cy.prevDev.Kill(); err != nil {
			logging.Debug("failed to stop previous dev server", "error", err)
		}
	}

	if err := cy.inst.Mount(ctx, mount.Project(cy.tree)); err != nil {
		return fmt.Errorf("mount failed: %w", err)
	}

	c.setPreview(PreviewInstalling)
	c.sink.Append(fmt.Sprintf("Starting %s...", c.install))
	c.audit(audit.EventInstall, c.install.String())

	proc, err := cy.inst.Spawn(ctx, runtime.SpawnOptions{Command: c.install.Name, Args: c.install.Args, Dir: cy.dir})
	if err != nil {
		return errors.ProcessFailed(c.install.String(), err)
	}
	drained := pipe(proc, NewInstallFilter(c.installWindow, c.now), c.sink)

	code, err := proc.Wait(ctx)
	<-drained
	if err != nil {
		return errors.ProcessFailed(c.install.String(), err)
	}
	c.sink.Append(fmt.Sprintf("%s completed with code: %d", c.install, code))

	cancel := cy.inst.OnServerReady(func(port int, url string) {
		c.mu.Lock()
		if c.started != cy.gen {
			// A newer cycle owns the preview.
			c.mu.Unlock()
			return
		}
		c.serverURL = url
		c.serverPort = port
		c.preview = PreviewRunning
		listeners := append([]ReadyFunc(nil), c.onReady...)
		c.mu.Unlock()

		c.sink.Append(fmt.Sprintf("Server ready: %s on port %d", url, port))
		c.audit(audit.EventServerReady, url)
		for _, fn := range listeners {
			fn(port, url)
		}
	})

	c.mu.Lock()
	c.cancelReady = cancel
	if c.preview != PreviewRunning {
		c.preview = PreviewStarting
	}
	c.mu.Unlock()

	c.sink.Append("Starting dev server...")
	c.audit(audit.EventStart, c.dev.String())

	dev, err := cy.inst.Spawn(ctx, runtime.SpawnOptions{Command: c.dev.Name, Args: c.dev.Args, Dir: cy.dir})
	if err != nil {
		return errors.ProcessFailed(c.dev.String(), err)
	}
	c.mu.Lock()
	c.devProc = dev
	c.mu.Unlock()

	pipe(dev, NewDevServerFilter(c.devWindow, c.now), c.sink)
	return nil
}

// pipe feeds process output through filter into sink. The returned
// channel is closed once the output stream ends.
func pipe(proc runtime.Process, filter *OutputFilter, sink Sink) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for chunk := range proc.Output() {
			for _, line := range filter.Feed(chunk) {
				sink.Append(line)
			}
		}
	}()
	return done
}
