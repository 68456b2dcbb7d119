package imaging

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	"gonum.org/v1/gonum/stat"
)

// Decode reads a PNG, JPEG, GIF, BMP or TIFF stream into a raster.
func Decode(r io.Reader) (*Raster, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "decode image")
	}
	return FromImage(img), nil
}

// Load decodes the image file at path.
func Load(path string) (*Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return r, nil
}

// Save encodes r to path, picking the codec from the extension. PNG is the
// default; JPEG is lossy and will not preserve embedded bits.
func Save(path string, r *Raster) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return Encode(f, r, filepath.Ext(path))
}

// Encode writes r in the format named by ext (".png", ".jpg", ".bmp",
// ".tif", ...).
func Encode(w io.Writer, r *Raster, ext string) error {
	img, err := ToImage(r)
	if err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "", "png":
		return png.Encode(w, img)
	case "jpg", "jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	case "bmp":
		return bmp.Encode(w, img)
	case "tif", "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}
	return errors.Errorf("encode: unknown image format %q", ext)
}

// FromImage converts img to a raster: gray models become 1 channel, opaque
// color images 3 channels and everything else 4 (non-premultiplied).
func FromImage(img image.Image) *Raster {
	b := img.Bounds()
	h, w := b.Dy(), b.Dx()

	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		r, _ := NewRaster(h, w, 1)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
				r.Set(y, x, 0, g.Y)
			}
		}
		return r
	}

	channels := 4
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		channels = 3
	}
	r, _ := NewRaster(h, w, channels)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			i := r.Offset(y, x, 0)
			r.Pix[i], r.Pix[i+1], r.Pix[i+2] = c.R, c.G, c.B
			if channels == 4 {
				r.Pix[i+3] = c.A
			}
		}
	}
	return r
}

// ToImage wraps r in the matching standard image type.
func ToImage(r *Raster) (image.Image, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	rect := image.Rect(0, 0, r.Width, r.Height)
	switch r.Channels {
	case 1:
		img := image.NewGray(rect)
		copy(img.Pix, r.Pix)
		return img, nil
	case 3:
		img := image.NewNRGBA(rect)
		for i := 0; i < r.Height*r.Width; i++ {
			copy(img.Pix[i*4:i*4+3], r.Pix[i*3:i*3+3])
			img.Pix[i*4+3] = 0xFF
		}
		return img, nil
	default:
		img := image.NewNRGBA(rect)
		copy(img.Pix, r.Pix)
		return img, nil
	}
}

// Resize scales r to height×width with a Catmull-Rom kernel, keeping its
// channel layout.
func Resize(r *Raster, height, width int) (*Raster, error) {
	src, err := ToImage(r)
	if err != nil {
		return nil, err
	}
	rect := image.Rect(0, 0, width, height)
	var dst draw.Image
	if r.Channels == 1 {
		dst = image.NewGray(rect)
	} else {
		dst = image.NewNRGBA(rect)
	}
	draw.CatmullRom.Scale(dst, rect, src, src.Bounds(), draw.Src, nil)

	out := FromImage(dst)
	if r.Channels == 3 && out.Channels == 4 {
		out = dropAlpha(out)
	}
	return out, nil
}

func dropAlpha(r *Raster) *Raster {
	out, _ := NewRaster(r.Height, r.Width, 3)
	for i := 0; i < r.Height*r.Width; i++ {
		copy(out.Pix[i*3:i*3+3], r.Pix[i*4:i*4+3])
	}
	return out
}

// LoadWatermark loads a watermark image, fits it to the footprint of a
// height×width host and binarizes it at threshold.
func LoadWatermark(path string, height, width int, threshold uint8) (*Bitmap, error) {
	fh, fw, err := Footprint(height, width)
	if err != nil {
		return nil, err
	}
	r, err := Load(path)
	if err != nil {
		return nil, err
	}
	resized, err := Resize(Gray(r), fh, fw)
	if err != nil {
		return nil, err
	}
	return Binarize(resized, threshold), nil
}

// MSE is the mean squared error between two rasters of the same shape.
func MSE(a, b *Raster) (float64, error) {
	if !a.SameShape(b) {
		return 0, &ShapeMismatchError{
			Required:  a.Len(),
			Available: b.Len(),
			Detail:    fmt.Sprintf("cannot compare %s with %s", a, b),
		}
	}
	if a.Len() == 0 {
		return 0, nil
	}
	sq := make([]float64, a.Len())
	for i := range a.Pix {
		d := float64(a.Pix[i]) - float64(b.Pix[i])
		sq[i] = d * d
	}
	return stat.Mean(sq, nil), nil
}

// ReadText parses a gray image written as whitespace-separated intensities,
// one row per line. A leading "H W" line is treated as a header when the
// rows that follow match it.
func ReadText(r io.Reader) (*Raster, error) {
	var rows [][]int
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for n := 1; sc.Scan(); n++ {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		row := make([]int, len(fields))
		for i, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d column %d", n, i+1)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read text image")
	}
	if hasHeader(rows) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return nil, errors.New("text image has no rows")
	}

	w := len(rows[0])
	img, _ := NewRaster(len(rows), w, 1)
	for y, row := range rows {
		if len(row) != w {
			return nil, errors.Errorf("row %d has %d values, want %d", y, len(row), w)
		}
		for x, v := range row {
			if v < 0 || v > 255 {
				return nil, errors.Errorf("row %d column %d: %d is outside [0,255]", y, x, v)
			}
			img.Pix[y*w+x] = uint8(v)
		}
	}
	return img, nil
}

func hasHeader(rows [][]int) bool {
	if len(rows) < 2 || len(rows[0]) != 2 {
		return false
	}
	h, w := rows[0][0], rows[0][1]
	if h != len(rows)-1 {
		return false
	}
	for _, row := range rows[1:] {
		if len(row) != w {
			return false
		}
	}
	return true
}

// WriteText writes a gray raster with an "H W" header line.
func WriteText(w io.Writer, r *Raster) error {
	if r.Channels != 1 {
		return &UnsupportedFormatError{Channels: r.Channels, Detail: "text images are gray only"}
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d\n", r.Height, r.Width)
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			if x > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteString(strconv.Itoa(int(r.At(y, x, 0))))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
