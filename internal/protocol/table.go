package protocol

import (
	"math/rand/v2"
	"sync"

	"github.com/pkg/errors"
)

// Table caches a Static protocol's result for every (value, bit) pair.
type Table struct {
	values [512]uint8
}

// NewTable simulates d once per input. Superposed templates still measure a
// definite value here, so any fixed source works.
func NewTable(d Descriptor) (*Table, error) {
	if !d.Static {
		return nil, errors.Errorf("%s: outcome is random, cannot tabulate", d.Name)
	}
	src := rand.New(rand.NewPCG(0, 0))
	t := &Table{}
	for bit := 0; bit < 2; bit++ {
		for v := 0; v < 256; v++ {
			out, err := d.Apply(Input{Value: uint8(v), Bit: uint8(bit)}, src)
			if err != nil {
				return nil, errors.Wrapf(err, "tabulate %s(%d, %d)", d.Name, v, bit)
			}
			t.values[bit<<8|v] = out
		}
	}
	return t, nil
}

// Lookup returns the tabulated result for in.
func (t *Table) Lookup(in Input) uint8 {
	return t.values[int(in.Bit&1)<<8|int(in.Value)]
}

var tables = map[string]func() (*Table, error){
	Negation.Name:    sync.OnceValues(func() (*Table, error) { return NewTable(Negation) }),
	NEQREmbed.Name:   sync.OnceValues(func() (*Table, error) { return NewTable(NEQREmbed) }),
	NEQRExtract.Name: sync.OnceValues(func() (*Table, error) { return NewTable(NEQRExtract) }),
}

// TableFor returns the shared table for a Static protocol, building it on
// first use.
func TableFor(d Descriptor) (*Table, error) {
	build, ok := tables[d.Name]
	if !ok {
		return nil, errors.Errorf("%s: no lookup table", d.Name)
	}
	return build()
}

func mustTable(d Descriptor) *Table {
	t, err := TableFor(d)
	if err != nil {
		panic(err)
	}
	return t
}

// Negate returns the quantum negation of v.
func Negate(v uint8) uint8 {
	return mustTable(Negation).Lookup(Input{Value: v})
}

// EmbedLSB hides bit b in the least significant bit of h.
func EmbedLSB(h, b uint8) uint8 {
	return mustTable(NEQREmbed).Lookup(Input{Value: h, Bit: b})
}

// ExtractLSB recovers the hidden bit of w and the host byte with that bit
// cleared.
func ExtractLSB(w uint8) (bit, host uint8) {
	return mustTable(NEQRExtract).Lookup(Input{Value: w}), w & 0xFE
}
