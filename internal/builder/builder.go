package builder

import (
	"context"
	"fmt"
	"sync"

	"github.com/clippy-ai/clippy-ctl/internal/backend"
	"github.com/clippy-ai/clippy-ctl/internal/errors"
	"github.com/clippy-ai/clippy-ctl/internal/filetree"
	"github.com/clippy-ai/clippy-ctl/internal/logging"
	"github.com/clippy-ai/clippy-ctl/internal/logsink"
	"github.com/clippy-ai/clippy-ctl/internal/mount"
	"github.com/clippy-ai/clippy-ctl/internal/reconcile"
	"github.com/clippy-ai/clippy-ctl/internal/sandbox"
	"github.com/clippy-ai/clippy-ctl/internal/steps"
)

// Backend is the generation service.
type Backend interface {
	Template(ctx context.Context, prompt string) (backend.TemplateResponse, error)
	Chat(ctx context.Context, messages []backend.Message) (string, error)
}

// State is a point-in-time view of a build.
type State struct {
	Prompt      string               `json:"prompt"`
	Steps       []steps.Step         `json:"steps"`
	Tree        *filetree.Tree       `json:"tree"`
	Logs        []string             `json:"logs"`
	URL         string               `json:"url,omitempty"`
	Boot        sandbox.State        `json:"boot"`
	BootError   string               `json:"bootError,omitempty"`
	Preview     sandbox.PreviewState `json:"preview"`
	Generating  bool                 `json:"generating"`
	TemplateSet bool                 `json:"templateSet"`
}

// ChangeFunc is called after every state change.
type ChangeFunc func()

// Builder coordinates the backend, reconciler, and sandbox for one build.
type Builder struct {
	client  Backend
	session *sandbox.Session
	preview *sandbox.Controller
	rec     *reconcile.Reconciler
	sink    *logsink.Sink

	started  chan struct{}
	startErr error
	booted   chan struct{}

	mu sync.Mutex
	// life bounds the sandbox work of the build: boot, mounts and preview
	// cycles. Request contexts passed to Send only bound the chat call.
	life        context.Context
	stop        context.CancelFunc
	prompt      string
	history     []backend.Message
	generating  bool
	templateSet bool
	listeners   []ChangeFunc
}

// New creates a builder. The controller and the builder share sink.
func New(client Backend, session *sandbox.Session, preview *sandbox.Controller, sink *logsink.Sink) *Builder {
	b := &Builder{
		client:  client,
		session: session,
		preview: preview,
		rec:     reconcile.New(sink),
		sink:    sink,
		started: make(chan struct{}),
		booted:  make(chan struct{}),
	}
	preview.OnReady(func(int, string) { b.changed() })
	return b
}

// OnChange registers fn for state changes.
func (b *Builder) OnChange(fn ChangeFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

func (b *Builder) changed() {
	b.mu.Lock()
	fns := append([]ChangeFunc(nil), b.listeners...)
	b.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Start runs the initial generation for prompt. The sandbox boots
// concurrently; Booted is closed once boot settles. Start may only be
// called once. ctx bounds the whole build, including the sandbox work
// triggered by later Send calls, until Close.
func (b *Builder) Start(ctx context.Context, prompt string) error {
	b.mu.Lock()
	select {
	case <-b.started:
		b.mu.Unlock()
		return errors.New(errors.ExitGeneralError, "build already started")
	default:
	}
	b.prompt = prompt
	b.life, b.stop = context.WithCancel(ctx)
	life := b.life
	close(b.started)
	b.mu.Unlock()

	b.rec.OnTreeChange(b.treeChanged)
	go b.boot(life)

	tmpl, err := b.client.Template(ctx, prompt)
	if err != nil {
		b.sink.Append(fmt.Sprintf("Generation failed: %v", err))
		return err
	}
	if len(tmpl.UIPrompts) == 0 {
		err := errors.BackendFailed("/template", fmt.Errorf("response has no uiPrompts"))
		b.sink.Append(fmt.Sprintf("Generation failed: %v", err))
		return err
	}
	b.rec.Enqueue(steps.Parse(tmpl.UIPrompts[0], 1)...)

	b.mu.Lock()
	b.templateSet = true
	b.mu.Unlock()

	history := backend.UserMessages(append(append([]string(nil), tmpl.Prompts...), prompt)...)

	b.setGenerating(true)
	reply, err := b.client.Chat(ctx, history)
	if err != nil {
		b.setGenerating(false)
		b.sink.Append(fmt.Sprintf("Generation failed: %v", err))
		return err
	}

	b.mu.Lock()
	b.history = append(history, backend.Message{Role: backend.RoleAssistant, Content: reply})
	b.mu.Unlock()

	// Steps land before generation is marked finished so the preview sees
	// the full tree in one evaluation.
	b.rec.Enqueue(steps.Parse(reply, b.rec.Len()+1)...)
	b.setGenerating(false)
	return nil
}

// Send continues the conversation with a follow-up message. ctx bounds
// the chat call only; the preview work it triggers runs on the build's
// context.
func (b *Builder) Send(ctx context.Context, message string) error {
	select {
	case <-b.started:
	default:
		return errors.New(errors.ExitGeneralError, "build not started")
	}

	msg := backend.Message{Role: backend.RoleUser, Content: message}

	b.setGenerating(true)
	defer b.setGenerating(false)

	b.mu.Lock()
	history := append(append([]backend.Message(nil), b.history...), msg)
	b.mu.Unlock()

	reply, err := b.client.Chat(ctx, history)
	if err != nil {
		b.sink.Append(fmt.Sprintf("Generation failed: %v", err))
		return err
	}

	b.mu.Lock()
	b.history = append(b.history, msg, backend.Message{Role: backend.RoleAssistant, Content: reply})
	b.mu.Unlock()

	b.rec.Enqueue(steps.Parse(reply, b.rec.Len()+1)...)
	return nil
}

func (b *Builder) boot(ctx context.Context) {
	defer close(b.booted)

	inst, err := b.session.Boot(ctx)
	if err != nil {
		b.sink.Append(err.Error())
		logging.Warn("sandbox unavailable", "runtime", b.session.RuntimeName(), "error", err)
		b.changed()
		return
	}

	tree := b.rec.Tree()
	if !tree.Empty() {
		if err := inst.Mount(ctx, mount.Project(tree)); err != nil {
			logging.Warn("failed to mount project", "error", err)
		}
	}
	b.preview.SetInstance(ctx, inst)
	b.changed()
}

func (b *Builder) lifetime() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.life == nil {
		return context.Background()
	}
	return b.life
}

func (b *Builder) treeChanged(tree *filetree.Tree) {
	ctx := b.lifetime()
	if inst := b.session.Instance(); inst != nil {
		if err := inst.Mount(ctx, mount.Project(tree)); err != nil {
			logging.Warn("failed to mount project", "error", err)
		}
	}
	b.observe(ctx, tree)
	b.changed()
}

func (b *Builder) setGenerating(on bool) {
	b.mu.Lock()
	b.generating = on
	b.mu.Unlock()
	if !on {
		b.observe(b.lifetime(), b.rec.Tree())
	}
	b.changed()
}

func (b *Builder) observe(ctx context.Context, tree *filetree.Tree) {
	b.mu.Lock()
	generating := b.generating
	b.mu.Unlock()
	b.preview.Observe(ctx, sandbox.Snapshot{Tree: tree, Generating: generating})
}

// Booted is closed once the sandbox boot has succeeded or failed.
func (b *Builder) Booted() <-chan struct{} {
	return b.booted
}

// Wait blocks until no preview cycle is running.
func (b *Builder) Wait() {
	b.preview.Wait()
}

// Logs returns the shared log sink.
func (b *Builder) Logs() *logsink.Sink {
	return b.sink
}

// Preview returns the preview controller.
func (b *Builder) Preview() *sandbox.Controller {
	return b.preview
}

// History returns the conversation so far.
func (b *Builder) History() []backend.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]backend.Message(nil), b.history...)
}

// State returns a snapshot of the build.
func (b *Builder) State() State {
	b.mu.Lock()
	st := State{
		Prompt:      b.prompt,
		Generating:  b.generating,
		TemplateSet: b.templateSet,
	}
	b.mu.Unlock()

	st.Steps = b.rec.Steps()
	st.Tree = b.rec.Tree()
	st.Logs = b.sink.Lines()
	st.URL = b.preview.URL()
	st.Preview = b.preview.State()
	st.Boot = b.session.State()
	if err := b.session.Err(); err != nil {
		st.BootError = err.Error()
	}
	return st
}

// Close stops the preview, cancels the build's context and releases the
// sandbox.
func (b *Builder) Close() error {
	b.preview.Stop()
	b.mu.Lock()
	if b.stop != nil {
		b.stop()
	}
	b.mu.Unlock()
	return b.session.Close()
}
