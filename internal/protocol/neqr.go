package protocol

import "qpixel/internal/quantum"

// NEQR-LSB register layout: a 2-qubit position register that the gates
// never touch, the 8 intensity qubits (most significant first) and one
// auxiliary qubit that receives the least significant bit.
const (
	PositionQubits  = 2
	IntensityOffset = PositionQubits
	LSBQubit        = IntensityOffset + IntensityQubits - 1
	AuxQubit        = IntensityOffset + IntensityQubits
	NEQRQubits      = AuxQubit + 1
)

func encodeNEQR(in Input) []uint8 {
	seed := make([]uint8, NEQRQubits)
	copy(seed[IntensityOffset:], Bits(in.Value))
	return seed
}

// encodeCleared seeds the host with its LSB cleared, so the LSB qubit ends
// up holding exactly the watermark bit.
func encodeCleared(in Input) []uint8 {
	return encodeNEQR(Input{Value: in.Value & 0xFE, Bit: in.Bit})
}

// NEQREmbed prepares the host with a cleared LSB, flips that LSB when the
// watermark bit is 1 and copies it into the auxiliary qubit, which is the
// only qubit measured. Decode returns the host byte with its LSB replaced
// by the measured bit.
var NEQREmbed = Descriptor{
	Name:   "neqr-embed",
	Qubits: NEQRQubits,
	Encode: encodeCleared,
	Gates: func(in Input) []quantum.Gate {
		var gates []quantum.Gate
		if in.Bit&1 == 1 {
			gates = append(gates, quantum.X(LSBQubit))
		}
		return append(gates, quantum.CNOT(LSBQubit, AuxQubit))
	},
	Measure: []int{AuxQubit},
	Decode: func(in Input, out quantum.Outcome) uint8 {
		return in.Value&0xFE | out[0]
	},
	Static: true,
}

// NEQRExtract copies the intensity LSB into the auxiliary qubit and back.
// The Hadamard on position qubit 0 has no effect on the measured bit.
// Decode returns the measured auxiliary bit.
var NEQRExtract = Descriptor{
	Name:   "neqr-extract",
	Qubits: NEQRQubits,
	Encode: encodeNEQR,
	Gates: func(Input) []quantum.Gate {
		return []quantum.Gate{
			quantum.H(0),
			quantum.CNOT(LSBQubit, AuxQubit),
			quantum.CNOT(AuxQubit, LSBQubit),
		}
	},
	Measure: []int{AuxQubit},
	Decode:  func(_ Input, out quantum.Outcome) uint8 { return out[0] },
	Static:  true,
}
