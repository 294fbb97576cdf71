package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/clippy-ai/clippy-ctl/internal/app"
	"github.com/clippy-ai/clippy-ctl/internal/runtime"
)

var runtimeCmd = &cobra.Command{
	Use:   "runtime",
	Short: "Show sandbox runtime information",
	Long: `Display information about available and active sandbox runtimes.

clippy-ctl supports several sandbox runtimes:
  - local:   node and npm on the host, one temp directory per session
  - podman:  Podman (rootless containers)
  - docker:  Docker Engine

The runtime is auto-detected unless sandbox.runtime is set in the config.`,
	RunE: runRuntime,
}

func init() {
	rootCmd.AddCommand(runtimeCmd)
}

func runRuntime(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg := app.Default.Config

	fmt.Fprintf(out, "Configured runtime: %s\n", cfg.Sandbox.Runtime)

	detected, err := runtime.Detect()
	if err != nil {
		fmt.Fprintf(out, "Detection failed: %s\n", err)
	} else {
		fmt.Fprintf(out, "Detected runtime: %s\n", detected)
	}

	fmt.Fprintln(out)

	available := runtime.Available()
	fmt.Fprintln(out, "Available runtimes:")
	if len(available) == 0 {
		fmt.Fprintln(out, "  (none)")
	} else {
		for _, rt := range available {
			marker := "  "
			if rt == detected {
				marker = "* "
			}
			fmt.Fprintf(out, "%s%s\n", marker, rt)
		}
	}

	fmt.Fprintln(out)

	rt, err := app.Default.RequireRuntime()
	if err != nil {
		logWarning("No usable runtime: %v", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rt.Preflight(ctx); err != nil {
		logWarning("Preflight (%s): %v", rt.Name(), err)
		return nil
	}
	logSuccess("Preflight (%s): ok", rt.Name())
	return nil
}
