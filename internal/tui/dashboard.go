// Package tui is a read-only live dashboard over Environment.Status().
// It polls on a timer and never issues a mutating core call — the
// single-threaded core guarantee (spec.md §5) holds even while this
// view runs concurrently on its own goroutine.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/opaquefs/freedom/internal/env"
)

const pollInterval = time.Second

type statusMsg struct {
	state env.EnvironmentState
	err   error
}

type tickMsg time.Time

// Dashboard is the bubbletea model for `freedom status --watch`.
type Dashboard struct {
	environment *env.Environment
	state       env.EnvironmentState
	err         error
	width       int
	loading     bool
	spinner     spinner.Model
}

// NewDashboard builds a Dashboard polling e.
func NewDashboard(e *env.Environment) Dashboard {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return Dashboard{environment: e, loading: true, spinner: s}
}

func (m Dashboard) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.poll(), tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) }))
}

func (m Dashboard) poll() tea.Cmd {
	e := m.environment
	return func() tea.Msg {
		state, err := e.Status(context.Background())
		return statusMsg{state: state, err: err}
	}
}

func (m Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case statusMsg:
		m.loading = false
		m.state = msg.state
		m.err = msg.err
		return m, nil

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.poll(), tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) }))

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Dashboard) View() string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render("freedom — environment status"))
	b.WriteString("\n\n")

	if m.loading {
		b.WriteString(fmt.Sprintf("  loading...  %s\n", m.spinner.View()))
		return b.String()
	}

	if m.err != nil {
		b.WriteString(StyleWarning.Render(fmt.Sprintf("  status error: %s\n", m.err)))
		b.WriteString("\n")
		b.WriteString(StyleHelpBar.Render("  q quit"))
		return b.String()
	}

	b.WriteString(fmt.Sprintf("  %s %s\n", symbolFor(m.state.BackingActive), labeled("backing pages active", m.state.BackingActive)))

	mdLine := "not assembled"
	mdSymbol := StyleWarning.Render("○")
	if m.state.MDName != "" {
		mdLine = m.state.MDName
		mdSymbol = StyleSuccess.Render("●")
	}
	b.WriteString(fmt.Sprintf("  %s md array: %s\n", mdSymbol, mdLine))

	b.WriteString(fmt.Sprintf("  %s %s\n", symbolFor(m.state.LUKSOpen), labeled("pde mapping open", m.state.LUKSOpen)))

	b.WriteString("\n")
	b.WriteString(StyleHelpBar.Render("  q quit"))
	return b.String()
}

func symbolFor(active bool) string {
	if active {
		return StyleSuccess.Render("●")
	}
	return lipgloss.NewStyle().Foreground(ColorDim).Render("○")
}

func labeled(name string, active bool) string {
	if active {
		return name
	}
	return StyleDim.Render(name)
}
