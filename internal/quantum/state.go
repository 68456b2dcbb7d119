// Package quantum is a small state-vector simulator: a qubit register, the
// X, H and CNOT gates, projective measurement and a single-shot executor.
//
// Qubit q corresponds to bit q of an amplitude index, so the basis state
// |b0 b1 ... bn-1> lives at index Σ b_q<<q.
package quantum

import (
	"math"
	"math/cmplx"
)

type Complex = complex128

// MaxQubits bounds the register width; the largest pixel circuit uses 11.
const MaxQubits = 16

// State is an amplitude vector over NumQubits qubits.
type State struct {
	Amplitudes []Complex
	NumQubits  int
}

// NewState prepares the basis state |seed>. seed[q] is the classical value
// of qubit q; missing entries are 0.
func NewState(numQubits int, seed []uint8) *State {
	n := 1 << numQubits
	amps := make([]Complex, n)
	idx := 0
	for q, b := range seed {
		if q >= numQubits {
			break
		}
		if b&1 == 1 {
			idx |= 1 << q
		}
	}
	amps[idx] = 1
	return &State{Amplitudes: amps, NumQubits: numQubits}
}

// ApplyX flips qubit q.
func (s *State) ApplyX(q int) {
	n := len(s.Amplitudes)
	bit := 1 << q
	for i := 0; i < n; i++ {
		if i&bit == 0 {
			j := i | bit
			s.Amplitudes[i], s.Amplitudes[j] = s.Amplitudes[j], s.Amplitudes[i]
		}
	}
}

// ApplyH maps each pair (a, b) differing in bit q to ((a+b)/√2, (a−b)/√2).
func (s *State) ApplyH(q int) {
	hFactor := complex(1.0/math.Sqrt2, 0)
	n := len(s.Amplitudes)
	bit := 1 << q
	for i := 0; i < n; i++ {
		if i&bit == 0 {
			j := i | bit
			a, b := s.Amplitudes[i], s.Amplitudes[j]
			s.Amplitudes[i] = hFactor * (a + b)
			s.Amplitudes[j] = hFactor * (a - b)
		}
	}
}

// ApplyCNOT flips target on every basis state whose control bit is set.
func (s *State) ApplyCNOT(control, target int) {
	n := len(s.Amplitudes)
	cBit := 1 << control
	tBit := 1 << target
	for i := 0; i < n; i++ {
		if i&cBit != 0 && i&tBit == 0 {
			j := i | tBit
			s.Amplitudes[i], s.Amplitudes[j] = s.Amplitudes[j], s.Amplitudes[i]
		}
	}
}

// Apply dispatches a gate onto the state. The gate must already be
// validated against the register width.
func (s *State) Apply(g Gate) {
	switch g.Kind {
	case GateX:
		s.ApplyX(g.Qubits[0])
	case GateH:
		s.ApplyH(g.Qubits[0])
	case GateCNOT:
		s.ApplyCNOT(g.Qubits[0], g.Qubits[1])
	}
}

// Norm returns Σ|amp|².
func (s *State) Norm() float64 {
	total := 0.0
	for _, a := range s.Amplitudes {
		total += prob(a)
	}
	return total
}

// QubitProbability is the marginal distribution of one qubit.
type QubitProbability struct {
	Prob0 float64
	Prob1 float64
}

func (s *State) QubitProbabilities() []QubitProbability {
	probs := make([]QubitProbability, s.NumQubits)
	for i, a := range s.Amplitudes {
		p := prob(a)
		for q := 0; q < s.NumQubits; q++ {
			if i&(1<<q) != 0 {
				probs[q].Prob1 += p
			} else {
				probs[q].Prob0 += p
			}
		}
	}
	return probs
}

// basisIndex reports the single basis state carrying all the probability,
// if there is one.
func (s *State) basisIndex() (int, bool) {
	found := -1
	for i, a := range s.Amplitudes {
		p := prob(a)
		if p < epsilon {
			continue
		}
		if found >= 0 || math.Abs(p-1) > epsilon {
			return 0, false
		}
		found = i
	}
	return found, found >= 0
}

const epsilon = 1e-12

func prob(a Complex) float64 {
	return real(a * cmplx.Conj(a))
}
