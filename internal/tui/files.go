package tui

import (
	"strings"

	"github.com/clippy-ai/clippy-ctl/internal/filetree"
)

// RenderFiles draws the tree as an indented listing in creation order.
func RenderFiles(tree *filetree.Tree) string {
	if tree.Empty() {
		return helpStyle.Render("(no files yet)")
	}

	var b strings.Builder
	tree.Walk(func(n *filetree.Node, depth int) {
		b.WriteString(strings.Repeat("  ", depth))
		if n.IsFolder() {
			b.WriteString("▸ " + n.Name + "/")
		} else {
			b.WriteString("  " + n.Name)
		}
		b.WriteString("\n")
	})
	return strings.TrimRight(b.String(), "\n")
}
