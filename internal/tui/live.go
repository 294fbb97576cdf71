package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/clippy-ai/clippy-ctl/internal/builder"
	"github.com/clippy-ai/clippy-ctl/internal/sandbox"
	"github.com/clippy-ai/clippy-ctl/internal/steps"
)

// Source is the build shown by the live view.
type Source interface {
	State() builder.State
	Send(ctx context.Context, message string) error
}

// pane identifies the left-hand pane.
type pane int

const (
	paneSteps pane = iota
	paneFiles
)

// Messages
type (
	// refreshMsg asks the model to re-read the build state.
	refreshMsg struct{}

	// sentMsg reports the outcome of a follow-up message.
	sentMsg struct{ err error }
)

// stepItem implements list.Item for step display
type stepItem struct {
	step steps.Step
}

func (i stepItem) Title() string {
	icon := "○"
	if i.step.Status == steps.StatusCompleted {
		icon = "✓"
	}
	return fmt.Sprintf("%s %d. %s", icon, i.step.ID, i.step.Title)
}

func (i stepItem) Description() string {
	switch i.step.Kind {
	case steps.KindCreateFile:
		return i.step.Path
	case steps.KindRunCommand:
		return "$ " + truncate(i.step.Command(), 40)
	default:
		return i.step.Description
	}
}

func (i stepItem) FilterValue() string {
	return i.step.Title
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	urlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Underline(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238"))
)

// Model is the bubbletea model for the live build view
type Model struct {
	src     Source
	updates <-chan struct{}
	ctx     context.Context

	state   builder.State
	steps   list.Model
	logs    viewport.Model
	input   textinput.Model
	spinner spinner.Model
	pane    pane
	sendErr error
	width   int
	height  int
}

// NewLive creates the live view. A value on updates triggers a refresh.
func NewLive(ctx context.Context, src Source, updates <-chan struct{}) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = selectedStyle
	delegate.Styles.SelectedDesc = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	l := list.New(nil, delegate, 40, 20)
	l.Title = "Build Steps"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.Styles.Title = titleStyle

	ti := textinput.New()
	ti.Placeholder = "Ask for a change..."
	ti.CharLimit = 2000
	ti.Width = 60
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		src:     src,
		updates: updates,
		ctx:     ctx,
		steps:   l,
		logs:    viewport.New(60, 20),
		input:   ti,
		spinner: sp,
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.waitForUpdate())
}

func (m Model) waitForUpdate() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	updates := m.updates
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return nil
		}
		return refreshMsg{}
	}
}

func (m Model) send(message string) tea.Cmd {
	src, ctx := m.src, m.ctx
	return func() tea.Msg {
		return sentMsg{err: src.Send(ctx, message)}
	}
}

func (m *Model) refresh() {
	m.state = m.src.State()

	items := make([]list.Item, len(m.state.Steps))
	for i, s := range m.state.Steps {
		items[i] = stepItem{step: s}
	}
	m.steps.SetItems(items)

	atBottom := m.logs.AtBottom()
	m.logs.SetContent(strings.Join(m.state.Logs, "\n"))
	if atBottom {
		m.logs.GotoBottom()
	}
}

func (m *Model) resize() {
	left := m.width / 3
	right := m.width - left - 4
	body := m.height - 6
	if body < 3 {
		body = 3
	}
	m.steps.SetSize(left, body)
	m.logs.Width = right
	m.logs.Height = body
	m.input.Width = m.width - 6
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case refreshMsg:
		m.refresh()
		return m, m.waitForUpdate()

	case sentMsg:
		m.sendErr = msg.err
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "tab":
			if m.pane == paneSteps {
				m.pane = paneFiles
			} else {
				m.pane = paneSteps
			}
			return m, nil

		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.state.Generating {
				return m, nil
			}
			m.input.SetValue("")
			m.sendErr = nil
			m.state.Generating = true
			return m, m.send(text)

		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.logs, cmd = m.logs.Update(msg)
			return m, cmd

		case "up", "down":
			var cmd tea.Cmd
			m.steps, cmd = m.steps.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) header() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("clippy"))
	b.WriteString("  ")
	b.WriteString(truncate(m.state.Prompt, 60))
	b.WriteString("\n")

	switch {
	case m.state.BootError != "":
		b.WriteString(errorStyle.Render("Sandbox: " + m.state.BootError))
	case m.state.URL != "":
		b.WriteString("Preview: " + urlStyle.Render(m.state.URL))
	default:
		b.WriteString(helpStyle.Render(fmt.Sprintf("Sandbox: %s  Preview: %s", m.state.Boot, m.state.Preview)))
	}
	if m.state.Generating {
		b.WriteString("  " + m.spinner.View() + " generating")
	}
	return b.String()
}

func (m Model) View() string {
	var left string
	if m.pane == paneFiles {
		left = titleStyle.Render("Files") + "\n" + RenderFiles(m.state.Tree)
	} else {
		left = m.steps.View()
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		paneStyle.Render(left),
		paneStyle.Render(m.logs.View()),
	)

	footer := m.input.View()
	if m.sendErr != nil {
		footer += "\n" + errorStyle.Render(m.sendErr.Error())
	}
	help := helpStyle.Render("[enter] Send  [tab] Steps/Files  [pgup/pgdn] Scroll log  [esc] Quit")

	return m.header() + "\n" + body + "\n" + footer + "\n" + help
}

// State returns the last build state the view rendered.
func (m Model) State() builder.State {
	return m.state
}

// RunLive runs the live view until the user quits.
func RunLive(ctx context.Context, src Source, updates <-chan struct{}) error {
	p := tea.NewProgram(NewLive(ctx, src, updates), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// PreviewLabel summarizes the preview for non-interactive output.
func PreviewLabel(st builder.State) string {
	if st.URL != "" {
		return st.URL
	}
	if st.Boot == sandbox.StateError {
		return "unavailable"
	}
	return st.Preview.String()
}
