// Package tui provides the terminal live view for clippy-ctl builds.
//
// This package uses the Bubble Tea framework. The live view shows the
// build steps (or the file tree, toggled with tab) next to the operator
// log, the sandbox and preview status in the header, and an input line
// for follow-up requests:
//
//	updates := make(chan struct{}, 1)
//	b.OnChange(func() {
//	    select {
//	    case updates <- struct{}{}:
//	    default:
//	    }
//	})
//	err := tui.RunLive(ctx, b, updates)
//
// # Dependencies
//
// Uses the Charm libraries:
//   - github.com/charmbracelet/bubbletea - TUI framework
//   - github.com/charmbracelet/bubbles - UI components
//   - github.com/charmbracelet/lipgloss - Styling
package tui
