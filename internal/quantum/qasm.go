package quantum

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Pre-compiled regexps for QASM parsing.
var (
	singleGateRegex = regexp.MustCompile(`^(\w+)\s+q\[(\d+)\];?$`)
	twoQubitRegex   = regexp.MustCompile(`^(\w+)\s+q\[(\d+)\],\s*q\[(\d+)\];?$`)
	measureRegex    = regexp.MustCompile(`^measure\s+q\[(\d+)\]\s*->\s*\w+\[(\d+)\];?$`)
	qregRegex       = regexp.MustCompile(`qreg\s+(\w+)\[(\d+)\]`)
)

// QASM renders the circuit as OpenQASM 2.0. The seed becomes a block of x
// gates closed by a barrier so the text runs standalone.
func (c Circuit) QASM() string {
	var sb strings.Builder
	sb.WriteString("OPENQASM 2.0;\n")
	sb.WriteString("include \"qelib1.inc\";\n\n")
	fmt.Fprintf(&sb, "qreg q[%d];\n", c.qubits)
	fmt.Fprintf(&sb, "creg c[%d];\n\n", max(len(c.measure), 1))

	seeded := false
	for q, b := range c.seed {
		if b == 1 {
			fmt.Fprintf(&sb, "x q[%d];\n", q)
			seeded = true
		}
	}
	if seeded {
		sb.WriteString("barrier q;\n")
	}

	for _, g := range c.gates {
		switch g.Kind {
		case GateCNOT:
			fmt.Fprintf(&sb, "cx q[%d], q[%d];\n", g.Qubits[0], g.Qubits[1])
		default:
			fmt.Fprintf(&sb, "%s q[%d];\n", strings.ToLower(string(g.Kind)), g.Qubits[0])
		}
	}

	for i, q := range c.measure {
		fmt.Fprintf(&sb, "measure q[%d] -> c[%d];\n", q, i)
	}
	return sb.String()
}

// ParseQASM reads the subset of OpenQASM 2.0 this simulator runs: one qreg,
// x, h, cx, barrier and measure. The register starts in |0...0>, so any
// seed is expressed as leading x gates. The measurement plan is ordered by
// classical bit index.
func ParseQASM(qasm string) (Circuit, error) {
	numQubits := 0
	var gates []Gate
	type readout struct{ qubit, cbit int }
	var reads []readout

	for n, line := range strings.Split(qasm, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if strings.HasPrefix(line, "OPENQASM") ||
			strings.HasPrefix(line, "include") ||
			strings.HasPrefix(line, "creg") ||
			strings.HasPrefix(line, "barrier") {
			continue
		}
		if strings.HasPrefix(line, "qreg") {
			if matches := qregRegex.FindStringSubmatch(line); len(matches) > 2 {
				numQubits, _ = strconv.Atoi(matches[2])
			}
			continue
		}

		// Measurement: "measure q[0] -> c[0];"
		if matches := measureRegex.FindStringSubmatch(line); matches != nil {
			q, _ := strconv.Atoi(matches[1])
			cbit, _ := strconv.Atoi(matches[2])
			reads = append(reads, readout{qubit: q, cbit: cbit})
			continue
		}

		if matches := twoQubitRegex.FindStringSubmatch(line); matches != nil {
			if strings.ToUpper(matches[1]) != string(GateCNOT) {
				return Circuit{}, errors.Errorf("line %d: unsupported gate %q", n+1, matches[1])
			}
			control, _ := strconv.Atoi(matches[2])
			target, _ := strconv.Atoi(matches[3])
			gates = append(gates, CNOT(control, target))
			continue
		}

		if matches := singleGateRegex.FindStringSubmatch(line); matches != nil {
			target, _ := strconv.Atoi(matches[2])
			switch GateKind(strings.ToUpper(matches[1])) {
			case GateX:
				gates = append(gates, X(target))
			case GateH:
				gates = append(gates, H(target))
			default:
				return Circuit{}, errors.Errorf("line %d: unsupported gate %q", n+1, matches[1])
			}
			continue
		}

		return Circuit{}, errors.Errorf("line %d: cannot parse %q", n+1, line)
	}

	sort.SliceStable(reads, func(i, j int) bool { return reads[i].cbit < reads[j].cbit })
	b := NewBuilder(numQubits)
	for _, g := range gates {
		b.AddGate(g)
	}
	for _, r := range reads {
		b.Measure(r.qubit)
	}
	return b.Build()
}
