package sandbox

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
)

// Default output filter settings.
const (
	InstallWindow   = 2 * time.Second
	DevServerWindow = 3 * time.Second
)

var installKeywords = []string{
	"packages", "added", "changed", "audited",
	"npm WARN", "npm ERR", "npm warn", "npm error",
}

var devKeywords = []string{
	"VITE", "Local:", "Network:", "vite]", "ready in",
	"ERROR", "WARN", "✓",
}

// OutputFilter classifies raw process output into log lines.
// It is not safe for concurrent use; each process gets its own filter.
type OutputFilter struct {
	prefix   string
	progress string
	window   time.Duration
	keywords []string
	now      func() time.Time
	last     time.Time
}

// NewInstallFilter returns the filter for dependency installation output.
func NewInstallFilter(window time.Duration, now func() time.Time) *OutputFilter {
	return newFilter("Install", "Installing dependencies...", window, installKeywords, now)
}

// NewDevServerFilter returns the filter for dev server output.
func NewDevServerFilter(window time.Duration, now func() time.Time) *OutputFilter {
	return newFilter("Dev server", "Starting server...", window, devKeywords, now)
}

func newFilter(prefix, progress string, window time.Duration, keywords []string, now func() time.Time) *OutputFilter {
	if now == nil {
		now = time.Now
	}
	return &OutputFilter{
		prefix:   prefix + ": ",
		progress: progress,
		window:   window,
		keywords: keywords,
		now:      now,
	}
}

// Feed consumes one output chunk and returns the lines worth logging.
func (f *OutputFilter) Feed(chunk string) []string {
	var out []string
	for _, raw := range strings.FieldsFunc(chunk, func(r rune) bool { return r == '\n' || r == '\r' }) {
		line := Clean(raw)
		if line == "" {
			continue
		}
		if isSpinner(line) {
			if now := f.now(); f.last.IsZero() || now.Sub(f.last) >= f.window {
				f.last = now
				out = append(out, f.prefix+f.progress)
			}
			continue
		}
		if f.matches(line) {
			out = append(out, f.prefix+line)
		}
	}
	return out
}

func (f *OutputFilter) matches(line string) bool {
	for _, k := range f.keywords {
		if strings.Contains(line, k) {
			return true
		}
	}
	return false
}

// Clean strips ANSI escape sequences and control characters from a line
// and trims surrounding space.
func Clean(line string) string {
	stripped := ansi.Strip(line)
	cleaned := strings.Map(func(r rune) rune {
		if r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, stripped)
	return strings.TrimSpace(cleaned)
}

// isSpinner reports whether line is a progress frame: a single character
// or nothing but spinner glyphs.
func isSpinner(line string) bool {
	if utf8.RuneCountInString(line) == 1 {
		return true
	}
	for _, r := range line {
		if !isSpinnerRune(r) && r != ' ' {
			return false
		}
	}
	return true
}

func isSpinnerRune(r rune) bool {
	switch r {
	case '|', '/', '-', '\\', '+', '*', '.', '◐', '◓', '◑', '◒':
		return true
	}
	// Braille patterns, used by most terminal spinners.
	return r >= 0x2800 && r <= 0x28FF
}
