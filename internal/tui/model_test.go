package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func TestProgressIsMonotonic(t *testing.T) {
	m := NewModel("negation", nil)
	m, _ = update(t, m, progressMsg(40))
	m, _ = update(t, m, progressMsg(25))
	assert.Equal(t, 40.0, m.percent)
	assert.Contains(t, m.View(), "40.0%")
}

func TestDoneQuits(t *testing.T) {
	m := NewModel("negation", nil)
	m, cmd := update(t, m, doneMsg{summary: "saved out.png"})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, m.done)
	assert.Equal(t, 100.0, m.percent)
	assert.Contains(t, m.View(), "saved out.png")
}

func TestDoneWithError(t *testing.T) {
	m := NewModel("waqi-embed", nil)
	m, _ = update(t, m, doneMsg{err: errors.New("shape mismatch")})
	assert.Contains(t, m.View(), "shape mismatch")
}

func TestQuitCancelsJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewModel("negation", cancel)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.True(t, m.quit)
	assert.Error(t, ctx.Err())
	assert.Contains(t, m.View(), "cancelling")
}

func TestWindowResize(t *testing.T) {
	m := NewModel("negation", nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 200, Height: 40})
	assert.Equal(t, 60, m.bar.Width)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 15, Height: 40})
	assert.Equal(t, 10, m.bar.Width)
}

func TestStyleDiagramKeepsText(t *testing.T) {
	diagram := "q[0] |1⟩ ┤ H ├──●──\nq[1] |0⟩ ───────⊕──"
	out := StyleDiagram("neqr-extract", diagram)
	for _, want := range []string{"neqr-extract", "q[0] |1⟩", "┤ H ├", "⊕"} {
		assert.True(t, strings.Contains(out, want), want)
	}
}
