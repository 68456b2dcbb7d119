package quantum

import (
	"fmt"
	"strings"
)

const cellW = 5 // width of each gate column in characters

// padCenter centres a string within the given width.
func padCenter(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	total := width - n
	left := total / 2
	right := total - left
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
}

func boxCell(name string) string {
	return "┤" + padCenter(name, cellW-2) + "├"
}

func wireCell(mark string) string {
	half := (cellW - 1) / 2
	return strings.Repeat("─", half) + mark + strings.Repeat("─", cellW-half-1)
}

// Diagram draws the circuit as text, one row per qubit and one column per
// gate, followed by a measurement column. Each row starts with the seeded
// basis value of its qubit.
func (c Circuit) Diagram() string {
	rows := make([]strings.Builder, c.qubits)
	labelW := len(fmt.Sprintf("q[%d]", c.qubits-1))
	for q := range rows {
		seed := uint8(0)
		if q < len(c.seed) {
			seed = c.seed[q]
		}
		fmt.Fprintf(&rows[q], "%-*s |%d⟩ ", labelW, fmt.Sprintf("q[%d]", q), seed)
	}

	for _, g := range c.gates {
		if g.Kind == GateCNOT {
			ctrl, tgt := g.Qubits[0], g.Qubits[1]
			lo, hi := min(ctrl, tgt), max(ctrl, tgt)
			for q := range rows {
				switch {
				case q == ctrl:
					rows[q].WriteString(wireCell("●"))
				case q == tgt:
					rows[q].WriteString(wireCell("⊕"))
				case q > lo && q < hi:
					rows[q].WriteString(wireCell("┼"))
				default:
					rows[q].WriteString(wireCell("─"))
				}
			}
			continue
		}
		for q := range rows {
			if q == g.Qubits[0] {
				rows[q].WriteString(boxCell(string(g.Kind)))
			} else {
				rows[q].WriteString(wireCell("─"))
			}
		}
	}

	measured := make(map[int]int, len(c.measure))
	for i, q := range c.measure {
		measured[q] = i
	}
	for q := range rows {
		if i, ok := measured[q]; ok {
			rows[q].WriteString(boxCell("M"))
			fmt.Fprintf(&rows[q], " c[%d]", i)
		} else {
			rows[q].WriteString(wireCell("─"))
		}
	}

	lines := make([]string, len(rows))
	for i := range rows {
		lines[i] = rows[i].String()
	}
	return strings.Join(lines, "\n")
}
