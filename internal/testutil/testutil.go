// Package testutil provides test utilities for end-to-end build tests
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/clippy-ai/clippy-ctl/internal/app"
	"github.com/clippy-ai/clippy-ctl/internal/backend"
	"github.com/clippy-ai/clippy-ctl/internal/config"
	"github.com/clippy-ai/clippy-ctl/internal/runtime"
	"github.com/clippy-ai/clippy-ctl/internal/sandbox"
)

// PreviewURL is the address the mock dev server announces.
const PreviewURL = "http://localhost:5173"

// FakeBackend is an in-memory generation backend.
type FakeBackend struct {
	mu sync.Mutex

	// Response is returned by Template
	Response backend.TemplateResponse

	// Replies are returned by successive Chat calls
	Replies []string

	// TemplateErr and ChatErr make the calls fail
	TemplateErr error
	ChatErr     error

	prompts []string
	chats   [][]backend.Message
}

// Template records prompt and returns Response.
func (f *FakeBackend) Template(ctx context.Context, prompt string) (backend.TemplateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.TemplateErr != nil {
		return backend.TemplateResponse{}, f.TemplateErr
	}
	return f.Response, nil
}

// Chat records messages and returns the next reply.
func (f *FakeBackend) Chat(ctx context.Context, messages []backend.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats = append(f.chats, append([]backend.Message(nil), messages...))
	if f.ChatErr != nil {
		return "", f.ChatErr
	}
	if len(f.Replies) == 0 {
		return "", fmt.Errorf("no reply scripted for chat %d", len(f.chats))
	}
	reply := f.Replies[0]
	f.Replies = f.Replies[1:]
	return reply, nil
}

// Prompts returns the prompts sent to Template.
func (f *FakeBackend) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

// Chats returns the message lists sent to Chat.
func (f *FakeBackend) Chats() [][]backend.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]backend.Message(nil), f.chats...)
}

// TestEnv holds the test environment
type TestEnv struct {
	T       *testing.T
	TmpDir  string
	Config  *config.Config
	Runtime *runtime.MockRuntime
	Backend *FakeBackend
	App     *app.App
}

// NewTestEnv creates a test environment with a mock runtime and a fake
// backend serving the counter fixtures. The dev server announces
// PreviewURL and runs until the build is closed.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	tmpDir := t.TempDir()

	cfg := config.Default()
	cfg.StateDir = filepath.Join(tmpDir, "state")
	cfg.Sandbox.WorkDir = filepath.Join(tmpDir, "work")
	cfg.Sandbox.BootBaseDelay = config.Duration{Duration: time.Millisecond}

	rt := runtime.NewMockRuntime()
	rt.SetScript(cfg.Preview.InstallCommand, &runtime.MockScript{
		Output: []string{"added 4 packages in 1s\n"},
	})
	rt.SetScript(cfg.Preview.DevCommand, &runtime.MockScript{
		Output:    []string{"VITE v5.0.0  ready in 300 ms\n"},
		ReadyPort: 5173,
		ReadyURL:  PreviewURL,
		Hold:      make(chan struct{}),
	})

	fake := &FakeBackend{
		Response: backend.TemplateResponse{
			Prompts:   []string{"Use React with Vite."},
			UIPrompts: []string{CounterTemplate(t)},
		},
		Replies: []string{CounterReply(t)},
	}

	env := &TestEnv{
		T:       t,
		TmpDir:  tmpDir,
		Config:  cfg,
		Runtime: rt,
		Backend: fake,
	}
	env.App = app.New(
		app.WithConfig(cfg),
		app.WithRuntime(rt),
		app.WithBackend(fake),
		app.WithViewer(sandbox.HostEnvironment()),
	)
	return env
}

// Install makes env.App the default application until the test ends.
func (e *TestEnv) Install() {
	prev := app.Default
	app.SetDefault(e.App)
	e.T.Cleanup(func() { app.SetDefault(prev) })
}
