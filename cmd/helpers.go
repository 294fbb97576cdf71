package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/clippy-ai/clippy-ctl/internal/app"
	"github.com/clippy-ai/clippy-ctl/internal/builder"
	"github.com/clippy-ai/clippy-ctl/internal/logsink"
	"github.com/clippy-ai/clippy-ctl/internal/reconcile"
	"github.com/clippy-ai/clippy-ctl/internal/steps"
)

// readInput returns the contents of path, or of stdin when path is "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// reconcileInput parses directive text and applies every step to a fresh
// tree. Progress lines land in the returned sink.
func reconcileInput(text string) (*reconcile.Reconciler, *logsink.Sink) {
	sink := logsink.New()
	r := reconcile.New(sink)
	r.Enqueue(steps.Parse(text, 1)...)
	return r, sink
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newBuilder creates a builder for the named session, or a fresh one.
func newBuilder(session string) (*builder.Builder, string, error) {
	if session == "" {
		session = app.SessionName(time.Now())
	}
	b, err := app.Default.NewBuilder(session)
	if err != nil {
		return nil, "", err
	}
	return b, session, nil
}

// promptArg joins positional arguments into one prompt.
func promptArg(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
