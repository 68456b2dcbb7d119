// Package protocol holds the gate-level pixel transforms. Every transform is
// a Descriptor: seed the register from the input, apply a fixed gate
// template, measure, and decode the outcome back into a byte.
package protocol

import (
	"github.com/pkg/errors"

	"qpixel/internal/quantum"
)

// Input is one element handed to a protocol: a channel value and, for
// embedding, the watermark bit to hide in it.
type Input struct {
	Value uint8
	Bit   uint8
}

// Descriptor parameterizes the seed→gates→measure→decode pipeline.
type Descriptor struct {
	Name   string
	Qubits int
	// Encode returns the seed bits, indexed by qubit.
	Encode func(in Input) []uint8
	// Gates returns the gate template for in. Most templates ignore in;
	// NEQR embedding adds a flip when the watermark bit is set.
	Gates   func(in Input) []quantum.Gate
	Measure []int
	Decode  func(in Input, out quantum.Outcome) uint8
	// Static is true when the decoded value depends on the input alone, so
	// the protocol can be served from a lookup table.
	Static bool
}

// Circuit builds the single-shot circuit for in.
func (d Descriptor) Circuit(in Input) (quantum.Circuit, error) {
	b := quantum.NewBuilder(d.Qubits).Seed(0, d.Encode(in)...)
	for _, g := range d.Gates(in) {
		b.AddGate(g)
	}
	c, err := b.Measure(d.Measure...).Build()
	if err != nil {
		return quantum.Circuit{}, errors.Wrapf(err, "%s circuit", d.Name)
	}
	return c, nil
}

// Run executes one shot for in and returns the raw outcome.
func (d Descriptor) Run(in Input, src quantum.Source) (quantum.Outcome, error) {
	c, err := d.Circuit(in)
	if err != nil {
		return nil, err
	}
	out, err := quantum.Run(c, src)
	if err != nil {
		return nil, errors.Wrapf(err, "%s run", d.Name)
	}
	return out, nil
}

// Apply executes one shot for in and decodes it.
func (d Descriptor) Apply(in Input, src quantum.Source) (uint8, error) {
	out, err := d.Run(in, src)
	if err != nil {
		return 0, err
	}
	return d.Decode(in, out), nil
}

// Bits returns v as 8 bits, most significant first.
func Bits(v uint8) []uint8 {
	bits := make([]uint8, 8)
	for i := range bits {
		bits[i] = (v >> (7 - i)) & 1
	}
	return bits
}

var registry = map[string]Descriptor{
	Negation.Name:    Negation,
	NEQREmbed.Name:   NEQREmbed,
	NEQRExtract.Name: NEQRExtract,
	WaQIEmbed.Name:   WaQIEmbed,
	WaQIExtract.Name: WaQIExtract,
}

// ByName looks a descriptor up by its Name.
func ByName(name string) (Descriptor, bool) {
	d, ok := registry[name]
	return d, ok
}

// Names lists the registered protocols in a stable order.
func Names() []string {
	return []string{Negation.Name, NEQREmbed.Name, NEQRExtract.Name, WaQIEmbed.Name, WaQIExtract.Name}
}
