package protocol

import "qpixel/internal/quantum"

// IntensityQubits is the width of an NEQR intensity register.
const IntensityQubits = 8

// Negation flips every intensity qubit; the outcome is the bitwise
// complement of the input, i.e. 255-v.
var Negation = Descriptor{
	Name:   "negation",
	Qubits: IntensityQubits,
	Encode: func(in Input) []uint8 { return Bits(in.Value) },
	Gates: func(Input) []quantum.Gate {
		gates := make([]quantum.Gate, IntensityQubits)
		for q := range gates {
			gates[q] = quantum.X(q)
		}
		return gates
	},
	Measure: []int{0, 1, 2, 3, 4, 5, 6, 7},
	Decode:  func(_ Input, out quantum.Outcome) uint8 { return uint8(out.Uint()) },
	Static:  true,
}
