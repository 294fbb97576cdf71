package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/ddddddO/gtree"
	"github.com/spf13/cobra"

	"github.com/clippy-ai/clippy-ctl/internal/filetree"
)

var treeLog bool

var treeCmd = &cobra.Command{
	Use:   "tree <file|->",
	Short: "Reconcile directive text and show the resulting file tree",
	Long: `Parse directive text, apply every step to an empty project, and render
the resulting file tree. Install commands update package.json just as they
do during a build. With --json the tree is printed as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: runTree,
}

func init() {
	treeCmd.Flags().BoolVar(&treeLog, "log", false, "Also print the reconciliation log")
	rootCmd.AddCommand(treeCmd)
}

func runTree(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	r, sink := reconcileInput(text)
	tree := r.Tree()
	out := cmd.OutOrStdout()

	if treeLog {
		for _, line := range sink.Lines() {
			fmt.Fprintln(cmd.ErrOrStderr(), line)
		}
	}

	if jsonOutput {
		data, err := json.MarshalIndent(tree, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal tree: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if tree.Empty() {
		logInfo("No files")
		return nil
	}

	root := gtree.NewRoot(".")
	addNodes(root, tree.Root)
	if err := gtree.OutputFromRoot(out, root); err != nil {
		return fmt.Errorf("failed to render tree: %w", err)
	}
	return nil
}

func addNodes(parent *gtree.Node, nodes []*filetree.Node) {
	for _, n := range nodes {
		name := n.Name
		if n.IsFolder() {
			name += "/"
		}
		child := parent.Add(name)
		if n.IsFolder() {
			addNodes(child, n.Children)
		}
	}
}
