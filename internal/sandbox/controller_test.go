package sandbox

import (
	"context"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clippy-ai/clippy-ctl/internal/filetree"
	"github.com/clippy-ai/clippy-ctl/internal/logsink"
	"github.com/clippy-ai/clippy-ctl/internal/runtime"
)

const (
	manifestA = `{"name":"app","dependencies":{"react":"^18.2.0"}}`
	manifestB = `{"name":"app","dependencies":{"react":"^18.2.0","lodash":"latest"}}`
)

func projectTree(t *testing.T, manifest string) *filetree.Tree {
	t.Helper()
	tree := filetree.New()
	_, err := tree.Upsert("/package.json", manifest)
	require.NoError(t, err)
	_, err = tree.Upsert("/src/main.jsx", "console.log('hi')")
	require.NoError(t, err)
	return tree
}

// newPreview boots a mock instance whose dev server stays up and reports
// a URL.
func newPreview(t *testing.T, opts ...ControllerOption) (*Controller, *logsink.Sink, *runtime.MockRuntime, *runtime.MockInstance) {
	t.Helper()
	rt := runtime.NewMockRuntime()
	hold := make(chan struct{})
	t.Cleanup(func() { close(hold) })

	rt.SetScript("npm install", &runtime.MockScript{
		Output: []string{"\x1b[32m|\x1b[0m", "added 12 packages in 2s\n"},
	})
	rt.SetScript("npm run dev", &runtime.MockScript{
		Output:    []string{"  VITE v5.0.0  ready in 300 ms\n", "  ➜  Local:   http://localhost:5173/\n"},
		ReadyPort: 5173,
		ReadyURL:  "http://localhost:5173",
		Hold:      hold,
	})

	inst, err := rt.Boot(context.Background())
	require.NoError(t, err)

	sink := logsink.New()
	c := NewController(sink, opts...)
	c.SetInstance(context.Background(), inst)
	return c, sink, rt, inst.(*runtime.MockInstance)
}

func waitURL(t *testing.T, c *Controller) {
	t.Helper()
	require.Eventually(t, func() bool { return c.URL() != "" }, time.Second, time.Millisecond)
}

func TestController_Cycle(t *testing.T) {
	c, sink, rt, inst := newPreview(t)
	ctx := context.Background()

	require.True(t, c.Observe(ctx, Snapshot{Tree: projectTree(t, manifestA)}))
	c.Wait()
	waitURL(t, c)

	assert.Equal(t, "http://localhost:5173", c.URL())
	assert.Equal(t, 5173, c.Port())
	assert.Equal(t, PreviewRunning, c.State())
	assert.False(t, c.InFlight())

	lines := sink.Lines()
	assert.Equal(t, []string{
		"Starting npm install...",
		"Install: Installing dependencies...",
		"Install: added 12 packages in 2s",
		"npm install completed with code: 0",
		"Starting dev server...",
	}, lines[:5])
	require.Eventually(t, func() bool {
		lines := sink.Lines()
		return slices.Contains(lines, "Server ready: http://localhost:5173 on port 5173") &&
			slices.Contains(lines, "Dev server: VITE v5.0.0  ready in 300 ms")
	}, time.Second, time.Millisecond)

	mounts := inst.Mounts()
	require.Len(t, mounts, 1)
	assert.Equal(t, manifestA, mounts[0]["package.json"].File.Contents)

	spawns := rt.GetCallsFor("Spawn")
	require.Len(t, spawns, 2)
	assert.Equal(t, "npm install", spawns[0].Args[0])
	assert.Equal(t, "/", spawns[0].Args[1])
	assert.Equal(t, "npm run dev", spawns[1].Args[0])
}

func TestController_ManifestChangeDetection(t *testing.T) {
	c, sink, _, inst := newPreview(t)
	ctx := context.Background()

	require.True(t, c.Observe(ctx, Snapshot{Tree: projectTree(t, manifestA)}))
	c.Wait()
	waitURL(t, c)
	require.Equal(t, 1, c.Cycles())

	require.True(t, c.Observe(ctx, Snapshot{Tree: projectTree(t, manifestB)}))
	c.Wait()
	waitURL(t, c)
	assert.Equal(t, 2, c.Cycles())
	assert.Contains(t, sink.Lines(), "Package.json changed, reinstalling dependencies...")

	// The first dev server was replaced.
	procs := inst.Processes()
	require.Len(t, procs, 4)
	assert.True(t, procs[1].Killed())
	assert.False(t, procs[3].Killed())

	// Same manifest again, even with other files edited: no new cycle.
	tree := projectTree(t, manifestB)
	_, err := tree.Upsert("/src/App.jsx", "export default () => null")
	require.NoError(t, err)
	assert.False(t, c.Observe(ctx, Snapshot{Tree: tree}))
	c.Wait()
	assert.Equal(t, 2, c.Cycles())
}

func TestController_Preconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("generating", func(t *testing.T) {
		c, sink, _, _ := newPreview(t)
		assert.False(t, c.Observe(ctx, Snapshot{Tree: projectTree(t, manifestA), Generating: true}))
		assert.Zero(t, c.Cycles())
		assert.Empty(t, sink.Lines())
	})

	t.Run("empty tree", func(t *testing.T) {
		c, sink, _, _ := newPreview(t)
		assert.False(t, c.Observe(ctx, Snapshot{Tree: filetree.New()}))
		assert.False(t, c.Observe(ctx, Snapshot{}))
		assert.Empty(t, sink.Lines())
	})

	t.Run("no manifest logs once", func(t *testing.T) {
		c, sink, _, _ := newPreview(t)
		tree := filetree.New()
		_, err := tree.Upsert("/index.html", "<html></html>")
		require.NoError(t, err)

		assert.False(t, c.Observe(ctx, Snapshot{Tree: tree}))
		assert.False(t, c.Observe(ctx, Snapshot{Tree: tree}))
		assert.Equal(t, []string{"No package.json found, waiting for build steps to complete"}, sink.Lines())
	})

	t.Run("no instance until set", func(t *testing.T) {
		rt := runtime.NewMockRuntime()
		sink := logsink.New()
		c := NewController(sink)

		assert.False(t, c.Observe(ctx, Snapshot{Tree: projectTree(t, manifestA)}))
		assert.Zero(t, c.Cycles())

		inst, err := rt.Boot(ctx)
		require.NoError(t, err)
		assert.True(t, c.SetInstance(ctx, inst))
		c.Wait()
		assert.Equal(t, 1, c.Cycles())
	})
}

func TestController_NestedManifestDirectory(t *testing.T) {
	c, _, rt, _ := newPreview(t)
	tree := filetree.New()
	_, err := tree.Upsert("/web/package.json", manifestA)
	require.NoError(t, err)

	require.True(t, c.Observe(context.Background(), Snapshot{Tree: tree}))
	c.Wait()

	spawns := rt.GetCallsFor("Spawn")
	require.NotEmpty(t, spawns)
	assert.Equal(t, "/web", spawns[0].Args[1])
}

func TestController_EditDuringCycleIsReevaluated(t *testing.T) {
	rt := runtime.NewMockRuntime()
	release := make(chan struct{})
	rt.SetScript("npm install", &runtime.MockScript{Hold: release})

	inst, err := rt.Boot(context.Background())
	require.NoError(t, err)
	sink := logsink.New()
	c := NewController(sink)
	c.SetInstance(context.Background(), inst)

	ctx := context.Background()
	require.True(t, c.Observe(ctx, Snapshot{Tree: projectTree(t, manifestA)}))
	assert.True(t, c.InFlight())
	assert.False(t, c.Observe(ctx, Snapshot{Tree: projectTree(t, manifestB)}))

	close(release)
	c.Wait()

	assert.Equal(t, 2, c.Cycles())
	mounts := inst.(*runtime.MockInstance).Mounts()
	require.Len(t, mounts, 2)
	assert.Equal(t, manifestB, mounts[1]["package.json"].File.Contents)
}

func TestController_Errors(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(rt *runtime.MockRuntime)
		env      Environment
		wantLine string
		advisory bool
	}{
		{
			name:     "mount failure",
			setup:    func(rt *runtime.MockRuntime) { rt.SetError("Mount", fmt.Errorf("disk full")) },
			env:      HostEnvironment(),
			wantLine: "Error starting preview: mount failed: disk full",
		},
		{
			name: "install cannot start",
			setup: func(rt *runtime.MockRuntime) {
				rt.SetScript("npm install", &runtime.MockScript{SpawnError: fmt.Errorf("npm not found")})
			},
			env:      HostEnvironment(),
			wantLine: `Error starting preview: process "npm install" failed: npm not found`,
		},
		{
			name:  "mobile viewer gets advisory",
			setup: func(rt *runtime.MockRuntime) { rt.SetError("Mount", fmt.Errorf("disk full")) },
			env: Environment{
				ServiceWorker: true, SharedArrayBuffer: true, SecureContext: true,
				UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)",
			},
			wantLine: "Error starting preview: mount failed: disk full",
			advisory: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := runtime.NewMockRuntime()
			tt.setup(rt)
			inst, err := rt.Boot(context.Background())
			require.NoError(t, err)

			sink := logsink.New()
			c := NewController(sink, WithViewer(tt.env))
			c.SetInstance(context.Background(), inst)

			require.True(t, c.Observe(context.Background(), Snapshot{Tree: projectTree(t, manifestA)}))
			c.Wait()

			lines := sink.Lines()
			assert.Contains(t, lines, tt.wantLine)
			if tt.advisory {
				assert.Equal(t, MobileAdvisory, lines[len(lines)-1])
			} else {
				assert.NotContains(t, lines, MobileAdvisory)
			}
			assert.Equal(t, PreviewError, c.State())
			assert.False(t, c.InFlight())
			assert.Empty(t, c.URL())
		})
	}
}

func TestController_CustomCommands(t *testing.T) {
	rt := runtime.NewMockRuntime()
	inst, err := rt.Boot(context.Background())
	require.NoError(t, err)

	sink := logsink.New()
	install, err := ParseCommand("pnpm install")
	require.NoError(t, err)
	dev, err := ParseCommand("pnpm dev")
	require.NoError(t, err)
	c := NewController(sink, WithCommands(install, dev))
	c.SetInstance(context.Background(), inst)

	require.True(t, c.Observe(context.Background(), Snapshot{Tree: projectTree(t, manifestA)}))
	c.Wait()

	assert.Contains(t, sink.Lines(), "Starting pnpm install...")
	assert.Contains(t, sink.Lines(), "pnpm install completed with code: 0")
	spawns := rt.GetCallsFor("Spawn")
	require.Len(t, spawns, 2)
	assert.Equal(t, "pnpm dev", spawns[1].Args[0])
}

func TestController_OnReadyAndStop(t *testing.T) {
	c, _, _, inst := newPreview(t)
	urls := make(chan string, 1)
	c.OnReady(func(port int, url string) { urls <- url })

	require.True(t, c.Observe(context.Background(), Snapshot{Tree: projectTree(t, manifestA)}))
	c.Wait()

	select {
	case url := <-urls:
		assert.Equal(t, "http://localhost:5173", url)
	case <-time.After(time.Second):
		t.Fatal("ready listener not called")
	}

	c.Stop()
	assert.Empty(t, c.URL())
	assert.Equal(t, PreviewIdle, c.State())
	assert.True(t, inst.Processes()[1].Killed())
	assert.Zero(t, inst.Listeners())
}

func TestParseCommand(t *testing.T) {
	cmd, err := ParseCommand("  npm run dev ")
	require.NoError(t, err)
	assert.Equal(t, Command{Name: "npm", Args: []string{"run", "dev"}}, cmd)
	assert.Equal(t, "npm run dev", cmd.String())

	cmd, err = ParseCommand(`npm run dev -- --host "0.0.0.0" --open 'src/main page.tsx'`)
	require.NoError(t, err)
	assert.Equal(t, Command{Name: "npm", Args: []string{"run", "dev", "--", "--host", "0.0.0.0", "--open", "src/main page.tsx"}}, cmd)
	assert.Equal(t, `npm run dev -- --host 0.0.0.0 --open 'src/main page.tsx'`, cmd.String())

	_, err = ParseCommand(`npm run dev -- --host "0.0.0.0`)
	assert.Error(t, err)

	_, err = ParseCommand("   ")
	assert.Error(t, err)
}
