package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Lipgloss styles used by the progress view and circuit printing.
var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7aa2f7")).
			Padding(1, 2)

	circuitStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#bb9af7")).
			Padding(1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff9e64"))

	spinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e0af68"))

	doneStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#9ece6a"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#f7768e"))

	qubitLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7dcfff"))

	gateStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#73daca"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#565f89"))
)

// StyleDiagram colors a text circuit diagram: qubit labels, gate cells and
// the measurement column stand out against dimmed wires. The layout is
// left as is.
func StyleDiagram(title, diagram string) string {
	lines := strings.Split(strings.TrimRight(diagram, "\n"), "\n")
	for i, line := range lines {
		label, rest, ok := strings.Cut(line, "⟩")
		if !ok {
			lines[i] = dimStyle.Render(line)
			continue
		}
		lines[i] = qubitLabelStyle.Render(label+"⟩") + styleWire(rest)
	}
	body := titleStyle.Render(title) + "\n\n" + strings.Join(lines, "\n")
	return circuitStyle.Render(body)
}

func styleWire(s string) string {
	var sb, run strings.Builder
	wire := true
	flush := func() {
		if run.Len() == 0 {
			return
		}
		if wire {
			sb.WriteString(dimStyle.Render(run.String()))
		} else {
			sb.WriteString(gateStyle.Render(run.String()))
		}
		run.Reset()
	}
	for _, r := range s {
		isWire := r == '─' || r == ' ' || r == '┼'
		if isWire != wire {
			flush()
			wire = isWire
		}
		run.WriteRune(r)
	}
	flush()
	return sb.String()
}
