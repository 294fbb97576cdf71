package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/clippy-ai/clippy-ctl/internal/app"
	"github.com/clippy-ai/clippy-ctl/internal/config"
	"github.com/clippy-ai/clippy-ctl/internal/logging"
)

var (
	verbose    bool
	jsonOutput bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "clippy-ctl",
	Short: "Clippy web app builder CLI",
	Long: `clippy-ctl turns a natural-language prompt into a running web app.

A build:
  - asks the generation backend for a template and a reply
  - parses the reply into file and shell-command steps
  - reconciles the steps into a project file tree
  - mounts the tree into a sandbox, installs dependencies and starts
    the dev server`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Setup(verbose, jsonOutput, os.Stderr)

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		app.SetDefault(app.New(app.WithConfig(cfg)))
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the config file (default: user config dir)")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Helper aliases for user-facing output (delegates to logging package)
var (
	logInfo    = logging.UserInfo
	logSuccess = logging.UserSuccess
	logWarning = logging.UserWarning
	logError   = logging.UserError
)
