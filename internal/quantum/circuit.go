package quantum

import (
	"fmt"
	"strings"
)

// GateKind names a supported gate.
type GateKind string

const (
	GateX    GateKind = "X"
	GateH    GateKind = "H"
	GateCNOT GateKind = "CX"
)

// arity returns how many qubits the gate acts on, or 0 for an unknown kind.
func (k GateKind) arity() int {
	switch k {
	case GateX, GateH:
		return 1
	case GateCNOT:
		return 2
	}
	return 0
}

// Gate is one step of a circuit. For CNOT, Qubits is {control, target}.
type Gate struct {
	Kind   GateKind
	Qubits []int
}

func X(q int) Gate { return Gate{Kind: GateX, Qubits: []int{q}} }
func H(q int) Gate { return Gate{Kind: GateH, Qubits: []int{q}} }
func CNOT(control, target int) Gate { return Gate{Kind: GateCNOT, Qubits: []int{control, target}} }

func (g Gate) String() string {
	qs := make([]string, len(g.Qubits))
	for i, q := range g.Qubits {
		qs[i] = fmt.Sprintf("q[%d]", q)
	}
	return strings.ToLower(string(g.Kind)) + " " + strings.Join(qs, ", ")
}

// Circuit is an immutable description of a single shot: the register width,
// the classical seed loaded before any gate runs, the gates in order and the
// qubits to measure. Outcome bit i is the value of Measure[i].
type Circuit struct {
	qubits  int
	seed    []uint8
	gates   []Gate
	measure []int
}

func (c Circuit) NumQubits() int { return c.qubits }

func (c Circuit) Seed() []uint8 { return append([]uint8(nil), c.seed...) }

func (c Circuit) Gates() []Gate {
	out := make([]Gate, len(c.gates))
	for i, g := range c.gates {
		out[i] = Gate{Kind: g.Kind, Qubits: append([]int(nil), g.Qubits...)}
	}
	return out
}

func (c Circuit) MeasurementPlan() []int { return append([]int(nil), c.measure...) }

// Validate checks every index against the register and the measurement plan
// for duplicates.
func (c Circuit) Validate() error {
	if c.qubits < 1 || c.qubits > MaxQubits {
		return &MalformedCircuitError{Gate: -1, Qubit: c.qubits, Reason: fmt.Sprintf("register width must be in [1,%d]", MaxQubits)}
	}
	if len(c.seed) > c.qubits {
		return &MalformedCircuitError{Gate: -1, Qubit: len(c.seed) - 1, Reason: "seed longer than register"}
	}
	for q, b := range c.seed {
		if b > 1 {
			return &MalformedCircuitError{Gate: -1, Qubit: q, Reason: fmt.Sprintf("seed bit %d is not 0 or 1", b)}
		}
	}
	for i, g := range c.gates {
		n := g.Kind.arity()
		if n == 0 {
			return &MalformedCircuitError{Gate: i, Qubit: -1, Reason: fmt.Sprintf("unsupported gate %q", g.Kind)}
		}
		if len(g.Qubits) != n {
			return &MalformedCircuitError{Gate: i, Qubit: -1, Reason: fmt.Sprintf("%s takes %d qubits, got %d", g.Kind, n, len(g.Qubits))}
		}
		for _, q := range g.Qubits {
			if q < 0 || q >= c.qubits {
				return &MalformedCircuitError{Gate: i, Qubit: q, Reason: "qubit out of range"}
			}
		}
		if n == 2 && g.Qubits[0] == g.Qubits[1] {
			return &MalformedCircuitError{Gate: i, Qubit: g.Qubits[0], Reason: "control and target coincide"}
		}
	}
	if len(c.measure) == 0 {
		return &MalformedCircuitError{Gate: -1, Qubit: -1, Reason: "empty measurement plan"}
	}
	seen := make(map[int]bool, len(c.measure))
	for _, q := range c.measure {
		if q < 0 || q >= c.qubits {
			return &MalformedCircuitError{Gate: -1, Qubit: q, Reason: "measured qubit out of range"}
		}
		if seen[q] {
			return &MalformedCircuitError{Gate: -1, Qubit: q, Reason: "qubit measured twice"}
		}
		seen[q] = true
	}
	return nil
}

// Builder assembles a Circuit. Build copies everything, so a Builder can be
// reused as a template.
type Builder struct {
	qubits  int
	seed    []uint8
	gates   []Gate
	measure []int
}

func NewBuilder(numQubits int) *Builder {
	return &Builder{qubits: numQubits}
}

// Seed sets the classical value of qubits starting at offset.
func (b *Builder) Seed(offset int, bits ...uint8) *Builder {
	if need := offset + len(bits); need > len(b.seed) {
		b.seed = append(b.seed, make([]uint8, need-len(b.seed))...)
	}
	copy(b.seed[offset:], bits)
	return b
}

func (b *Builder) AddGate(g Gate) *Builder {
	b.gates = append(b.gates, g)
	return b
}

func (b *Builder) X(q int) *Builder { return b.AddGate(X(q)) }
func (b *Builder) H(q int) *Builder { return b.AddGate(H(q)) }
func (b *Builder) CNOT(control, target int) *Builder { return b.AddGate(CNOT(control, target)) }

func (b *Builder) Measure(qubits ...int) *Builder {
	b.measure = append(b.measure, qubits...)
	return b
}

// Build returns the circuit after validating it.
func (b *Builder) Build() (Circuit, error) {
	c := Circuit{
		qubits:  b.qubits,
		seed:    append([]uint8(nil), b.seed...),
		measure: append([]int(nil), b.measure...),
	}
	c.gates = make([]Gate, len(b.gates))
	for i, g := range b.gates {
		c.gates[i] = Gate{Kind: g.Kind, Qubits: append([]int(nil), g.Qubits...)}
	}
	if err := c.Validate(); err != nil {
		return Circuit{}, err
	}
	return c, nil
}
