package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// User-facing output functions with status prefixes.
// These write to stdout/stderr by default for CLI output,
// separate from the structured debug logging.

var (
	userMu  sync.Mutex
	userOut io.Writer = os.Stdout
	userErr io.Writer = os.Stderr
)

// SetUserOutput redirects user-facing output. Nil writers keep the current destination.
func SetUserOutput(stdout, stderr io.Writer) {
	userMu.Lock()
	defer userMu.Unlock()
	if stdout != nil {
		userOut = stdout
	}
	if stderr != nil {
		userErr = stderr
	}
}

// ResetUserOutput restores stdout/stderr as user output destinations.
func ResetUserOutput() {
	SetUserOutput(os.Stdout, os.Stderr)
}

func userPrint(w func() io.Writer, prefix, format string, args ...interface{}) {
	userMu.Lock()
	defer userMu.Unlock()
	fmt.Fprintf(w(), prefix+format+"\n", args...)
}

// UserInfo prints an info message to stdout.
func UserInfo(format string, args ...interface{}) {
	userPrint(func() io.Writer { return userOut }, "ℹ ", format, args...)
}

// UserSuccess prints a success message to stdout.
func UserSuccess(format string, args ...interface{}) {
	userPrint(func() io.Writer { return userOut }, "✓ ", format, args...)
}

// UserWarning prints a warning message to stderr.
func UserWarning(format string, args ...interface{}) {
	userPrint(func() io.Writer { return userErr }, "⚠ ", format, args...)
}

// UserError prints an error message to stderr.
func UserError(format string, args ...interface{}) {
	userPrint(func() io.Writer { return userErr }, "✗ ", format, args...)
}
