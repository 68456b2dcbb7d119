package protocol

import "qpixel/internal/quantum"

// WaQIQubits is the width of the WaQI register: host LSB, watermark bit and
// one ancilla.
const WaQIQubits = 3

// WaQIEmbed seeds q0 with the host LSB and q1 with the watermark bit, then
// applies H(q0), CNOT(q0→q1), CNOT(q1→q2). The Hadamard makes the measured
// q0 a fresh coin flip, so every shot draws from the source. Decode
// replaces the host LSB with q0 XOR q1 of the outcome.
var WaQIEmbed = Descriptor{
	Name:   "waqi-embed",
	Qubits: WaQIQubits,
	Encode: func(in Input) []uint8 { return []uint8{in.Value & 1, in.Bit & 1, 0} },
	Gates: func(Input) []quantum.Gate {
		return []quantum.Gate{quantum.H(0), quantum.CNOT(0, 1), quantum.CNOT(1, 2)}
	},
	Measure: []int{0, 1, 2},
	Decode: func(in Input, out quantum.Outcome) uint8 {
		return in.Value&0xFE | (out[0] ^ out[1])
	},
}

// WaQIExtract runs the embedding template in reverse order with q0 seeded
// from the watermarked LSB. Decode returns q1 of the outcome.
var WaQIExtract = Descriptor{
	Name:   "waqi-extract",
	Qubits: WaQIQubits,
	Encode: func(in Input) []uint8 { return []uint8{in.Value & 1, 0, 0} },
	Gates: func(Input) []quantum.Gate {
		return []quantum.Gate{quantum.CNOT(1, 2), quantum.CNOT(0, 1), quantum.H(0)}
	},
	Measure: []int{0, 1, 2},
	Decode:  func(_ Input, out quantum.Outcome) uint8 { return out[1] },
}
