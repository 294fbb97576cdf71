package reconcile

import (
	"fmt"
	"strings"

	"github.com/clippy-ai/clippy-ctl/internal/errors"
	"github.com/clippy-ai/clippy-ctl/internal/filetree"
	"github.com/clippy-ai/clippy-ctl/internal/manifest"
	"github.com/clippy-ai/clippy-ctl/internal/steps"
)

// Apply performs one step against tree in place and returns the log
// lines it produced. Failures are reported as log lines, never returned.
func Apply(tree *filetree.Tree, step steps.Step) []string {
	switch step.Kind {
	case steps.KindCreateFile:
		return applyFile(tree, step)
	case steps.KindRunCommand:
		return applyCommand(tree, step)
	default:
		return nil
	}
}

func applyFile(tree *filetree.Tree, step steps.Step) []string {
	if step.Path == "" {
		return nil
	}
	change, err := tree.Upsert(step.Path, step.Code)
	if err != nil {
		return []string{fmt.Sprintf("Skipped %s: %v", step.Path, err)}
	}
	if change == filetree.Updated {
		return []string{"Updated file " + step.Path}
	}
	return []string{"Created file " + step.Path}
}

func applyCommand(tree *filetree.Tree, step steps.Step) []string {
	install, ok := manifest.ParseInstall(step.Command())
	if !ok {
		return nil
	}

	node := tree.FindFile(manifest.FileName)
	if node == nil {
		return []string{fmt.Sprintf("%v; skipped dependencies: %s",
			errors.ManifestNotFound(manifest.FileName), strings.Join(install.Names(), ", "))}
	}

	var lines []string
	sections := []struct {
		name string
		pkgs []manifest.Package
	}{
		{manifest.SectionDependencies, install.Dependencies},
		{manifest.SectionDevDependencies, install.DevDependencies},
	}
	for _, sec := range sections {
		if len(sec.pkgs) == 0 {
			continue
		}
		updated, results, err := manifest.AddDependencies(node.Content, sec.name, sec.pkgs)
		if err != nil {
			lines = append(lines, fmt.Sprintf("Failed to update %s: %v", node.Path, err))
			continue
		}
		node.Content = updated
		for _, r := range results {
			if r.Present {
				lines = append(lines, fmt.Sprintf("Dependency %s already present in %s", r.Name, node.Path))
				continue
			}
			lines = append(lines, fmt.Sprintf("Added dependency %s to %s", r.Package, node.Path))
		}
	}
	return lines
}
