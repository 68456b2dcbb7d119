// Package imaging runs the pixel protocols over whole images and converts
// between files and raw sample arrays.
package imaging

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Raster is an H×W×C array of 8-bit samples stored row-major with channels
// interleaved. Channels is 1 (gray), 3 (RGB) or 4 (RGBA).
type Raster struct {
	Height   int
	Width    int
	Channels int
	Pix      []uint8
}

func validChannels(c int) bool {
	return c == 1 || c == 3 || c == 4
}

// NewRaster allocates a zeroed raster.
func NewRaster(height, width, channels int) (*Raster, error) {
	if !validChannels(channels) {
		return nil, &UnsupportedFormatError{Channels: channels}
	}
	if height < 0 || width < 0 {
		return nil, errors.Errorf("imaging: negative dimensions %dx%d", height, width)
	}
	return &Raster{
		Height:   height,
		Width:    width,
		Channels: channels,
		Pix:      make([]uint8, height*width*channels),
	}, nil
}

// FromRows builds a raster from nested [row][col][channel] samples.
func FromRows(rows [][][]uint8) (*Raster, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, errors.Errorf("imaging: empty rows")
	}
	r, err := NewRaster(len(rows), len(rows[0]), len(rows[0][0]))
	if err != nil {
		return nil, err
	}
	for y, row := range rows {
		if len(row) != r.Width {
			return nil, errors.Errorf("imaging: row %d has %d columns, want %d", y, len(row), r.Width)
		}
		for x, px := range row {
			if len(px) != r.Channels {
				return nil, &UnsupportedFormatError{Channels: len(px), Detail: fmt.Sprintf("pixel (%d,%d)", y, x)}
			}
			copy(r.Pix[r.Offset(y, x, 0):], px)
		}
	}
	return r, nil
}

// Validate checks that the layout is processable and Pix has the right size.
func (r *Raster) Validate() error {
	if r == nil {
		return &UnsupportedFormatError{Detail: "nil raster"}
	}
	if !validChannels(r.Channels) {
		return &UnsupportedFormatError{Channels: r.Channels}
	}
	if want := r.Height * r.Width * r.Channels; len(r.Pix) != want {
		return &UnsupportedFormatError{Channels: r.Channels, Detail: fmt.Sprintf("%d samples for %dx%d, want %d", len(r.Pix), r.Height, r.Width, want)}
	}
	return nil
}

func (r *Raster) Offset(y, x, c int) int {
	return (y*r.Width+x)*r.Channels + c
}

func (r *Raster) At(y, x, c int) uint8 { return r.Pix[r.Offset(y, x, c)] }

func (r *Raster) Set(y, x, c int, v uint8) { r.Pix[r.Offset(y, x, c)] = v }

// Len is the number of samples, H·W·C.
func (r *Raster) Len() int { return len(r.Pix) }

// ColorChannels is the number of channels the protocols act on; alpha is
// carried through untouched.
func (r *Raster) ColorChannels() int {
	return min(r.Channels, 3)
}

func (r *Raster) Clone() *Raster {
	pix := make([]uint8, len(r.Pix))
	copy(pix, r.Pix)
	return &Raster{Height: r.Height, Width: r.Width, Channels: r.Channels, Pix: pix}
}

// SameShape reports whether r and o have identical dimensions.
func (r *Raster) SameShape(o *Raster) bool {
	return r.Height == o.Height && r.Width == o.Width && r.Channels == o.Channels
}

func (r *Raster) String() string {
	return fmt.Sprintf("%dx%dx%d", r.Height, r.Width, r.Channels)
}

// Preview formats the top-left rows×cols corner of r, one pixel per cell.
func Preview(r *Raster, rows, cols int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "shape %s\n", r)
	for y := 0; y < min(rows, r.Height); y++ {
		for x := 0; x < min(cols, r.Width); x++ {
			if x > 0 {
				sb.WriteByte(' ')
			}
			if r.Channels == 1 {
				fmt.Fprintf(&sb, "%3d", r.At(y, x, 0))
				continue
			}
			px := r.Pix[r.Offset(y, x, 0):r.Offset(y, x, r.Channels)]
			fmt.Fprintf(&sb, "%v", px)
		}
		if r.Width > cols {
			sb.WriteString(" ...")
		}
		sb.WriteByte('\n')
	}
	if r.Height > rows {
		sb.WriteString("...\n")
	}
	return sb.String()
}

// Bitmap is a binary watermark, one bit per pixel, row-major.
type Bitmap struct {
	Height int
	Width  int
	Bits   []uint8
}

func NewBitmap(height, width int) *Bitmap {
	return &Bitmap{Height: height, Width: width, Bits: make([]uint8, height*width)}
}

func (b *Bitmap) At(y, x int) uint8 { return b.Bits[y*b.Width+x] }

func (b *Bitmap) Len() int { return len(b.Bits) }

// Raster renders the bitmap as a grayscale 0/255 image.
func (b *Bitmap) Raster() *Raster {
	r := &Raster{Height: b.Height, Width: b.Width, Channels: 1, Pix: make([]uint8, len(b.Bits))}
	for i, bit := range b.Bits {
		r.Pix[i] = bit * 255
	}
	return r
}

// DefaultThreshold splits gray levels into watermark bits: above it is 1.
const DefaultThreshold = 127

// Binarize converts r to gray and thresholds it.
func Binarize(r *Raster, threshold uint8) *Bitmap {
	g := Gray(r)
	b := NewBitmap(g.Height, g.Width)
	for i, v := range g.Pix {
		if v > threshold {
			b.Bits[i] = 1
		}
	}
	return b
}

// Gray converts r to a single channel using ITU-R 601-2 luma. Gray rasters
// are returned as a copy.
func Gray(r *Raster) *Raster {
	if r.Channels == 1 {
		return r.Clone()
	}
	g := &Raster{Height: r.Height, Width: r.Width, Channels: 1, Pix: make([]uint8, r.Height*r.Width)}
	for i := range g.Pix {
		p := r.Pix[i*r.Channels:]
		l := (299*uint32(p[0]) + 587*uint32(p[1]) + 114*uint32(p[2]) + 500) / 1000
		g.Pix[i] = uint8(l)
	}
	return g
}

// Footprint is the watermark size for a host: a quarter of each dimension.
func Footprint(height, width int) (int, int, error) {
	fh, fw := height/4, width/4
	if fh == 0 || fw == 0 {
		return 0, 0, &ShapeMismatchError{
			Required:  1,
			Available: 0,
			Detail:    fmt.Sprintf("host %dx%d is smaller than 4x4 and has no watermark footprint", height, width),
		}
	}
	return fh, fw, nil
}
