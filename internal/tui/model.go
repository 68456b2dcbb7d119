// Package tui shows a running image pass as a terminal progress view.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
)

// Job runs a pass, reporting its completion through report, and returns a
// one-line summary.
type Job func(ctx context.Context, report func(percent float64)) (string, error)

// ErrCancelled is returned by Run when the user quits before the job ends.
var ErrCancelled = errors.New("cancelled")

type progressMsg float64

type doneMsg struct {
	summary string
	err     error
}

// Model is the progress view for one pass.
type Model struct {
	title   string
	bar     progress.Model
	spin    spinner.Model
	percent float64
	done    bool
	quit    bool
	summary string
	err     error
	width   int
	cancel  context.CancelFunc
}

// NewModel builds the view; cancel is invoked when the user quits.
func NewModel(title string, cancel context.CancelFunc) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle
	return Model{
		title:  title,
		bar:    progress.New(progress.WithDefaultGradient()),
		spin:   s,
		cancel: cancel,
	}
}

func (m Model) Init() tea.Cmd {
	return m.spin.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(min(msg.Width-12, 60), 10)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quit = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
		return m, nil

	case progressMsg:
		if p := float64(msg); p > m.percent {
			m.percent = p
		}
		return m, nil

	case doneMsg:
		m.done = true
		m.summary = msg.summary
		m.err = msg.err
		if msg.err == nil {
			m.percent = 100
		}
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString("\n\n")

	switch {
	case m.err != nil:
		sb.WriteString(errorStyle.Render("✗ " + m.err.Error()))
	case m.done:
		sb.WriteString(m.bar.ViewAs(1))
		sb.WriteString("\n\n")
		sb.WriteString(doneStyle.Render("✓ " + m.summary))
	case m.quit:
		sb.WriteString(dimStyle.Render("cancelling..."))
	default:
		sb.WriteString(m.spin.View())
		sb.WriteString(" ")
		sb.WriteString(m.bar.ViewAs(m.percent / 100))
		sb.WriteString("\n\n")
		sb.WriteString(dimStyle.Render(fmt.Sprintf("%.1f%%  %s", m.percent, keys.Quit.Help().Key+" to cancel")))
	}
	return panelStyle.Render(sb.String()) + "\n"
}

// Run shows the progress view while job runs in the background.
func Run(ctx context.Context, title string, job Job, opts ...tea.ProgramOption) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(title, cancel), opts...)
	go func() {
		summary, err := job(ctx, func(pct float64) { p.Send(progressMsg(pct)) })
		p.Send(doneMsg{summary: summary, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return "", errors.Wrap(err, "progress view")
	}
	m := final.(Model)
	if !m.done {
		return "", ErrCancelled
	}
	return m.summary, m.err
}
