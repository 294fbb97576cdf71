package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clippy-ai/clippy-ctl/internal/steps"
)

var parseStart int

var parseCmd = &cobra.Command{
	Use:   "parse <file|->",
	Short: "Print the steps found in directive text",
	Long: `Parse directive text (a file, or "-" for stdin) and print the steps it
describes. With --json the steps are printed as a JSON array.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().IntVar(&parseStart, "start", 1, "ID of the first step")
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	parsed := steps.Parse(text, parseStart)
	out := cmd.OutOrStdout()

	if jsonOutput {
		data, err := json.MarshalIndent(parsed, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal steps: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if len(parsed) == 0 {
		logInfo("No steps found")
		return nil
	}

	for _, s := range parsed {
		switch s.Kind {
		case steps.KindCreateFile:
			fmt.Fprintf(out, "%3d  %-12s %s\n", s.ID, s.Kind, s.Path)
		case steps.KindRunCommand:
			fmt.Fprintf(out, "%3d  %-12s $ %s\n", s.ID, s.Kind, s.Command())
		default:
			fmt.Fprintf(out, "%3d  %-12s %s\n", s.ID, s.Kind, s.Title)
		}
	}
	return nil
}
