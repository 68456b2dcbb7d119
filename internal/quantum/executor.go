package quantum

import (
	"strings"

	"github.com/pkg/errors"
)

// Outcome is the classical result of a shot. Bit i belongs to the i-th
// qubit of the measurement plan.
type Outcome []uint8

// Uint reads the outcome as an unsigned integer with bit 0 most
// significant, matching how pixel intensities are seeded.
func (o Outcome) Uint() uint64 {
	var v uint64
	for _, b := range o {
		v = v<<1 | uint64(b&1)
	}
	return v
}

func (o Outcome) String() string {
	var sb strings.Builder
	for _, b := range o {
		sb.WriteByte('0' + b&1)
	}
	return sb.String()
}

// Run executes one shot of c: the register is prepared from the seed, the
// gates are applied in order and the measurement plan is read out. src is
// only consulted when the state is in superposition at measurement time.
func Run(c Circuit, src Source) (Outcome, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	state := NewState(c.qubits, c.seed)
	for _, g := range c.gates {
		state.Apply(g)
	}

	bits, err := state.Measure(c.measure, src)
	if err != nil {
		return nil, errors.Wrap(err, "measure")
	}
	return Outcome(bits), nil
}
