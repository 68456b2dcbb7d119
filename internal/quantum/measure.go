package quantum

import (
	"math"

	"github.com/pkg/errors"
)

// Source supplies uniform samples in [0, 1). *rand.Rand from math/rand/v2
// satisfies it.
type Source interface {
	Float64() float64
}

// ErrNoSource is returned when a measurement needs a random sample but no
// Source was supplied.
var ErrNoSource = errors.New("quantum: measurement of a superposed state needs a random source")

// Measure projects the register onto the computational basis and returns
// the classical values of qubits, in the order given.
//
// A state with a single basis component is read out directly without
// touching src. Otherwise one basis index is drawn from the cumulative Born
// distribution over the whole register, amplitudes that disagree with the
// drawn values on the measured qubits are cleared, and the rest are
// renormalized. Measuring the same qubits again returns the same bits.
func (s *State) Measure(qubits []int, src Source) ([]uint8, error) {
	if idx, ok := s.basisIndex(); ok {
		return readBits(idx, qubits), nil
	}
	if src == nil {
		return nil, ErrNoSource
	}

	k := s.sample(src.Float64())
	bits := readBits(k, qubits)
	s.collapse(k, qubits)
	return bits, nil
}

// sample walks the cumulative distribution until it passes r.
func (s *State) sample(r float64) int {
	cumulative := 0.0
	last := 0
	for i, a := range s.Amplitudes {
		p := prob(a)
		if p == 0 {
			continue
		}
		last = i
		cumulative += p
		if r < cumulative {
			return i
		}
	}
	// Rounding can leave the total a hair under 1.
	return last
}

func (s *State) collapse(k int, qubits []int) {
	mask := 0
	for _, q := range qubits {
		mask |= 1 << q
	}
	want := k & mask

	kept := 0.0
	for i, a := range s.Amplitudes {
		if i&mask != want {
			s.Amplitudes[i] = 0
			continue
		}
		kept += prob(a)
	}

	norm := complex(math.Sqrt(kept), 0)
	for i := range s.Amplitudes {
		if s.Amplitudes[i] != 0 {
			s.Amplitudes[i] /= norm
		}
	}
}

func readBits(idx int, qubits []int) []uint8 {
	bits := make([]uint8, len(qubits))
	for i, q := range qubits {
		bits[i] = uint8(idx>>q) & 1
	}
	return bits
}
