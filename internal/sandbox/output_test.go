package sandbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestClean(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"  padded \t", "padded"},
		{"\x1b[32madded\x1b[0m 3 packages", "added 3 packages"},
		{"\x1b[2K\x1b[1Gnpm WARN deprecated", "npm WARN deprecated"},
		{"tab\tseparated", "tab separated"},
		{"bell\x07", "bell"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsSpinner(t *testing.T) {
	spinners := []string{"|", "/", "-", "\\", "⠋", "⠙ ⠹", "...", "◐", "x"}
	for _, s := range spinners {
		assert.True(t, isSpinner(s), s)
	}
	for _, s := range []string{"added 1 package", "ok", "VITE"} {
		assert.False(t, isSpinner(s), s)
	}
}

func TestInstallFilter(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	f := NewInstallFilter(InstallWindow, clock.now)

	assert.Equal(t, []string{"Install: Installing dependencies..."}, f.Feed("\r|\r/\r-"))

	clock.advance(time.Second)
	assert.Empty(t, f.Feed("\\"))

	clock.advance(time.Second)
	assert.Equal(t, []string{"Install: Installing dependencies..."}, f.Feed("|"))

	got := f.Feed("resolving tree\nadded 120 packages, and audited 121 packages in 4s\n\nnpm warn deprecated inflight@1.0.6\n")
	assert.Equal(t, []string{
		"Install: added 120 packages, and audited 121 packages in 4s",
		"Install: npm warn deprecated inflight@1.0.6",
	}, got)
}

func TestDevServerFilter(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	f := NewDevServerFilter(DevServerWindow, clock.now)

	chunk := "\x1b[36m  VITE v5.0.8\x1b[0m  ready in 412 ms\n\n  ➜  Local:   http://localhost:5173/\n  ➜  Network: use --host to expose\n  ➜  press h + enter to show help\n"
	assert.Equal(t, []string{
		"Dev server: VITE v5.0.8  ready in 412 ms",
		"Dev server: ➜  Local:   http://localhost:5173/",
		"Dev server: ➜  Network: use --host to expose",
	}, f.Feed(chunk))

	assert.Equal(t, []string{"Dev server: Starting server..."}, f.Feed("⠋"))
	clock.advance(2 * time.Second)
	assert.Empty(t, f.Feed("⠙"))
	clock.advance(time.Second)
	assert.Equal(t, []string{"Dev server: Starting server..."}, f.Feed("⠹"))

	assert.Equal(t, []string{"Dev server: 12:00:01 [vite] hmr update /src/App.jsx"}, f.Feed("12:00:01 [vite] hmr update /src/App.jsx"))
	assert.Equal(t, []string{"Dev server: ✓ built in 1.2s"}, f.Feed("✓ built in 1.2s"))
	assert.Empty(t, f.Feed("some unrelated chatter"))
}
