package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/clippy-ai/clippy-ctl/internal/builder"
	"github.com/clippy-ai/clippy-ctl/internal/errors"
	"github.com/clippy-ai/clippy-ctl/internal/logsink"
	"github.com/clippy-ai/clippy-ctl/internal/sandbox"
	"github.com/clippy-ai/clippy-ctl/internal/tui"
)

var (
	buildTUI     bool
	buildSession string
	buildDetach  bool
)

var buildCmd = &cobra.Command{
	Use:   "build <prompt>",
	Short: "Generate a web app from a prompt and run its preview",
	Long: `Generate a web app from a prompt.

The prompt is sent to the generation backend while a sandbox boots. The
returned steps are applied to the project, dependencies are installed and
the dev server is started. The build log streams to stdout until Ctrl-C;
with --tui an interactive view shows steps, files and the log and accepts
follow-up messages.

Examples:
  clippy-ctl build "a todo list with dark mode"
  clippy-ctl build --tui "a pomodoro timer"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVar(&buildTUI, "tui", false, "Show the interactive live view")
	buildCmd.Flags().StringVar(&buildSession, "session", "", "Session name (default: generated from the current time)")
	buildCmd.Flags().BoolVar(&buildDetach, "exit-on-ready", false, "Return once the preview is ready instead of waiting for Ctrl-C")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	prompt := promptArg(args)
	if prompt == "" {
		return errors.ValidationError("prompt must not be empty")
	}

	ctx, stop := signalContext()
	defer stop()

	b, session, err := newBuilder(buildSession)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			logWarning("Failed to release sandbox: %v", err)
		}
	}()

	updates := make(chan struct{}, 1)
	b.OnChange(func() {
		select {
		case updates <- struct{}{}:
		default:
		}
	})

	logInfo("Building %s", session)

	if buildTUI {
		go func() {
			_ = b.Start(ctx, prompt)
		}()
		if err := tui.RunLive(ctx, b, updates); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	}

	return streamBuild(ctx, cmd.OutOrStdout(), b, prompt, updates)
}

// streamBuild runs the build and copies its log to w until the context
// ends. With --exit-on-ready it returns once generation has finished, the
// preview has announced a URL and no install cycle is running.
func streamBuild(ctx context.Context, w io.Writer, b *builder.Builder, prompt string, updates <-chan struct{}) error {
	// The subscription only wakes the loop; lines are read from the sink
	// so none are lost while the loop is busy.
	wake, cancel := b.Logs().Subscribe(1)
	defer cancel()
	tail := &logTail{sink: b.Logs(), w: w}
	defer tail.flush()

	started := make(chan error, 1)
	go func() {
		started <- b.Start(ctx, prompt)
	}()

	announced, generated := "", false
	// settled is closed once no preview cycle is running.
	var settled chan struct{}
	for {
		select {
		case <-wake:
			tail.flush()

		case err := <-started:
			if err != nil {
				return err
			}
			started = nil
			generated = true

		case <-updates:
			st := b.State()
			if st.Boot == sandbox.StateError {
				return errors.New(errors.ExitBoot, st.BootError)
			}
			if st.URL != "" && st.URL != announced {
				announced = st.URL
				logSuccess("Preview ready at %s", st.URL)
			}

		case <-settled:
			settled = nil
			// A later cycle may have replaced the announced server.
			if b.State().URL != "" {
				return nil
			}
			announced = ""

		case <-ctx.Done():
			logInfo("Stopping build")
			return nil
		}

		if buildDetach && generated && announced != "" && settled == nil {
			settled = make(chan struct{})
			go func(done chan struct{}) {
				b.Wait()
				close(done)
			}(settled)
		}
	}
}

// logTail writes the lines of a sink to w in order, resuming after the
// last line written.
type logTail struct {
	sink *logsink.Sink
	w    io.Writer
	sent int
}

func (t *logTail) flush() {
	lines := t.sink.Since(t.sent)
	for _, line := range lines {
		fmt.Fprintln(t.w, line)
	}
	t.sent += len(lines)
}
