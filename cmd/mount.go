package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clippy-ai/clippy-ctl/internal/mount"
)

var mountCmd = &cobra.Command{
	Use:   "mount <file|->",
	Short: "Print the sandbox mount projection of directive text",
	Long: `Parse and reconcile directive text, then print the nested
directory/file structure that would be mounted into the sandbox.`,
	Args: cobra.ExactArgs(1),
	RunE: runMount,
}

func init() {
	rootCmd.AddCommand(mountCmd)
}

func runMount(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	r, _ := reconcileInput(text)
	data, err := json.MarshalIndent(mount.Project(r.Tree()), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal mount tree: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
