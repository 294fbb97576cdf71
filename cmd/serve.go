package cmd

import (
	"github.com/spf13/cobra"

	"github.com/clippy-ai/clippy-ctl/internal/app"
	"github.com/clippy-ai/clippy-ctl/internal/errors"
	"github.com/clippy-ai/clippy-ctl/internal/server"
)

var (
	serveListen  string
	serveSession string
)

var serveCmd = &cobra.Command{
	Use:   "serve <prompt>",
	Short: "Generate a web app and follow it in the browser",
	Long: `Start a build like "build" and serve a browser viewer for it.

The viewer shows the steps, files, log and preview of the build, and
accepts follow-up messages. State is pushed over a websocket at /ws;
/api/state, /api/mount and /api/chat expose the same data over HTTP.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (default from config)")
	serveCmd.Flags().StringVar(&serveSession, "session", "", "Session name (default: generated from the current time)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	prompt := promptArg(args)
	if prompt == "" {
		return errors.ValidationError("prompt must not be empty")
	}

	listen := serveListen
	if listen == "" {
		listen = app.Default.Config.Server.Listen
	}

	ctx, stop := signalContext()
	defer stop()

	b, session, err := newBuilder(serveSession)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			logWarning("Failed to release sandbox: %v", err)
		}
	}()

	srv := server.New(listen, b)
	b.OnChange(srv.Notify)

	go func() {
		if err := b.Start(ctx, prompt); err != nil {
			logError("Generation failed: %v", err)
		}
	}()

	logSuccess("Session %s viewer at http://%s/", session, listen)
	return srv.ListenAndServe(ctx)
}
