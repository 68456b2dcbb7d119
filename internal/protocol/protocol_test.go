package protocol

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"qpixel/internal/quantum"
)

func TestNegateIsComplement(t *testing.T) {
	for v := 0; v < 256; v++ {
		got := Negate(uint8(v))
		require.Equal(t, uint8(255-v), got, "negate(%d)", v)
		require.Equal(t, uint8(v), Negate(got), "negate is not an involution at %d", v)
	}
}

func TestNegationNeverSamples(t *testing.T) {
	for v := 0; v < 256; v++ {
		// A nil source fails any measurement that needs sampling.
		got, err := Negation.Apply(Input{Value: uint8(v)}, nil)
		require.NoError(t, err)
		assert.Equal(t, uint8(255-v), got)
	}
}

func TestNEQRRoundTrip(t *testing.T) {
	src := rand.New(rand.NewPCG(3, 4))
	for h := 0; h < 256; h++ {
		for b := uint8(0); b < 2; b++ {
			w, err := NEQREmbed.Apply(Input{Value: uint8(h), Bit: b}, src)
			require.NoError(t, err)
			require.Equal(t, uint8(h)&0xFE|b, w)

			bit, err := NEQRExtract.Apply(Input{Value: w}, src)
			require.NoError(t, err)
			require.Equal(t, b, bit, "extract(embed(%d, %d))", h, b)

			gotBit, host := ExtractLSB(EmbedLSB(uint8(h), b))
			require.Equal(t, b, gotBit)
			require.Equal(t, uint8(h)&0xFE, host)
		}
	}
}

func TestNEQREmbedOverwritesOddLSB(t *testing.T) {
	c, err := NEQREmbed.Circuit(Input{Value: 1, Bit: 0})
	require.NoError(t, err)
	assert.Contains(t, c.Diagram(), "q[9]  |0⟩")

	for _, h := range []uint8{1, 3, 0x81, 0xFF} {
		assert.Equal(t, h&0xFE, EmbedLSB(h, 0), "embed(%d, 0)", h)
		assert.Equal(t, h|1, EmbedLSB(h, 1), "embed(%d, 1)", h)

		bit, _ := ExtractLSB(EmbedLSB(h, 0))
		assert.Equal(t, uint8(0), bit)
		bit, _ = ExtractLSB(EmbedLSB(h, 1))
		assert.Equal(t, uint8(1), bit)
	}
}

func TestNEQRExtractHadamardIsOnPositionRegister(t *testing.T) {
	c, err := NEQRExtract.Circuit(Input{Value: 0x81})
	require.NoError(t, err)
	assert.Equal(t, 11, c.NumQubits())

	gates := c.Gates()
	require.Equal(t, quantum.GateH, gates[0].Kind)
	assert.Less(t, gates[0].Qubits[0], IntensityOffset)

	// The extractor superposes the register, so it consumes a sample, but
	// the decoded bit does not depend on the sample.
	for _, r := range []float64{0.01, 0.99} {
		bit, err := NEQRExtract.Apply(Input{Value: 0x81}, constSource(r))
		require.NoError(t, err)
		assert.Equal(t, uint8(1), bit)
	}
}

func TestTablesMatchSimulation(t *testing.T) {
	src := rand.New(rand.NewPCG(11, 12))
	for _, d := range []Descriptor{Negation, NEQREmbed, NEQRExtract} {
		table, err := TableFor(d)
		require.NoError(t, err)
		for bit := uint8(0); bit < 2; bit++ {
			for v := 0; v < 256; v++ {
				in := Input{Value: uint8(v), Bit: bit}
				simulated, err := d.Apply(in, src)
				require.NoError(t, err)
				require.Equal(t, simulated, table.Lookup(in), "%s(%d, %d)", d.Name, v, bit)
			}
		}
	}
}

func TestRandomProtocolsHaveNoTable(t *testing.T) {
	_, err := TableFor(WaQIEmbed)
	assert.Error(t, err)
	_, err = NewTable(WaQIExtract)
	assert.Error(t, err)
}

func TestWaQIEmbedDrawsFreshCoin(t *testing.T) {
	const trials = 10000
	src := rand.New(rand.NewPCG(2024, 1))

	for _, in := range []Input{{Value: 0x10, Bit: 0}, {Value: 0x11, Bit: 1}, {Value: 0xFF, Bit: 0}} {
		q0 := make([]float64, trials)
		embedded := make([]float64, trials)
		for i := range q0 {
			out, err := WaQIEmbed.Run(in, src)
			require.NoError(t, err)
			q0[i] = float64(out[0])
			embedded[i] = float64(WaQIEmbed.Decode(in, out) & 1)

			// q1 and q2 are entangled copies: q1 = b xor q0, q2 = q1.
			require.Equal(t, out[1], out[2])
			require.Equal(t, in.Bit^out[0], out[1])
		}
		assert.InDelta(t, 0.5, stat.Mean(q0, nil), 0.05, "q0 sample for %+v", in)
		// q0 xor q1 cancels the coin, leaving the watermark bit.
		assert.Equal(t, float64(in.Bit), stat.Mean(embedded, nil))
	}
}

func TestWaQIExtractRecoversLSB(t *testing.T) {
	src := rand.New(rand.NewPCG(5, 6))
	for w := 0; w < 256; w++ {
		bit, err := WaQIExtract.Apply(Input{Value: uint8(w)}, src)
		require.NoError(t, err)
		require.Equal(t, uint8(w)&1, bit)
	}
}

func TestWaQIRoundTrip(t *testing.T) {
	src := rand.New(rand.NewPCG(8, 9))
	for h := 0; h < 256; h++ {
		for b := uint8(0); b < 2; b++ {
			w, err := WaQIEmbed.Apply(Input{Value: uint8(h), Bit: b}, src)
			require.NoError(t, err)
			require.Equal(t, uint8(h)&0xFE, w&0xFE, "upper bits changed")

			got, err := WaQIExtract.Apply(Input{Value: w}, src)
			require.NoError(t, err)
			require.Equal(t, b, got)
		}
	}
}

func TestWaQINeedsSource(t *testing.T) {
	_, err := WaQIEmbed.Apply(Input{Value: 1, Bit: 1}, nil)
	assert.ErrorIs(t, err, quantum.ErrNoSource)
}

func TestRegistry(t *testing.T) {
	for _, name := range Names() {
		d, ok := ByName(name)
		require.True(t, ok, name)
		assert.Equal(t, name, d.Name)

		c, err := d.Circuit(Input{Value: 200, Bit: 1})
		require.NoError(t, err, name)
		assert.NotEmpty(t, c.QASM())
	}
	_, ok := ByName("sobel")
	assert.False(t, ok)
}

func TestBits(t *testing.T) {
	assert.Equal(t, []uint8{1, 0, 0, 0, 0, 0, 1, 1}, Bits(131))
	assert.Equal(t, []uint8{0, 0, 0, 0, 0, 0, 0, 0}, Bits(0))
}

type constSource float64

func (c constSource) Float64() float64 { return float64(c) }
