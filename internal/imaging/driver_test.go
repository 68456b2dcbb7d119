package imaging

import (
	"context"
	"errors"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func mustRows(rows [][][]uint8) *Raster {
	r, err := FromRows(rows)
	if err != nil {
		panic(err)
	}
	return r
}

func pattern(h, w, c int) *Raster {
	r, _ := NewRaster(h, w, c)
	for i := range r.Pix {
		r.Pix[i] = uint8(i*37 + 11)
	}
	return r
}

func checker(h, w int) *Bitmap {
	b := NewBitmap(h, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			b.Bits[y*w+x] = uint8((x + y) & 1)
		}
	}
	return b
}

func TestNegatePass(t *testing.T) {
	Convey("Given a 2x2 RGB image", t, func() {
		img := mustRows([][][]uint8{
			{{120, 60, 30}, {255, 128, 0}},
			{{0, 200, 100}, {15, 45, 75}},
		})
		ctx := context.Background()

		Convey("Negation inverts every sample", func() {
			out, err := NewDriver(Options{Workers: 1}).Negate(ctx, img)
			So(err, ShouldBeNil)
			want := mustRows([][][]uint8{
				{{135, 195, 225}, {0, 127, 255}},
				{{255, 55, 155}, {240, 210, 180}},
			})
			So(out.Pix, ShouldResemble, want.Pix)
			So(out.SameShape(img), ShouldBeTrue)
		})

		Convey("The simulated path agrees with the table path", func() {
			fast, err := NewDriver(Options{Workers: 2}).Negate(ctx, img)
			So(err, ShouldBeNil)
			slow, err := NewDriver(Options{Workers: 2, Simulate: true}).Negate(ctx, img)
			So(err, ShouldBeNil)
			So(slow.Pix, ShouldResemble, fast.Pix)
		})

		Convey("The input is left untouched", func() {
			before := img.Clone()
			_, err := NewDriver(Options{}).Negate(ctx, img)
			So(err, ShouldBeNil)
			So(img.Pix, ShouldResemble, before.Pix)
		})
	})

	Convey("Given an RGBA image", t, func() {
		img := pattern(3, 5, 4)

		Convey("Alpha is carried through", func() {
			out, err := NewDriver(Options{Workers: 3}).Negate(context.Background(), img)
			So(err, ShouldBeNil)
			for y := 0; y < img.Height; y++ {
				for x := 0; x < img.Width; x++ {
					So(out.At(y, x, 3), ShouldEqual, img.At(y, x, 3))
					So(out.At(y, x, 0), ShouldEqual, 255-img.At(y, x, 0))
				}
			}
		})
	})

	Convey("Given a malformed raster", t, func() {
		img := &Raster{Height: 2, Width: 2, Channels: 2, Pix: make([]uint8, 8)}

		Convey("The pass refuses it", func() {
			_, err := NewDriver(Options{}).Negate(context.Background(), img)
			var uf *UnsupportedFormatError
			So(errors.As(err, &uf), ShouldBeTrue)
			So(uf.Channels, ShouldEqual, 2)
		})
	})
}

func TestProgressReporting(t *testing.T) {
	Convey("Given a driver with several workers", t, func() {
		var (
			mu   sync.Mutex
			seen []float64
		)
		d := NewDriver(Options{Workers: 4, Progress: func(p float64) {
			mu.Lock()
			seen = append(seen, p)
			mu.Unlock()
		}})

		Convey("Progress never decreases and ends at 100", func() {
			_, err := d.Negate(context.Background(), pattern(37, 5, 3))
			So(err, ShouldBeNil)
			So(len(seen), ShouldBeGreaterThan, 0)
			for i := 1; i < len(seen); i++ {
				So(seen[i], ShouldBeGreaterThan, seen[i-1])
			}
			So(seen[len(seen)-1], ShouldEqual, 100)
		})

		Convey("An empty image reports completion at once", func() {
			img, _ := NewRaster(0, 0, 1)
			_, err := d.Negate(context.Background(), img)
			So(err, ShouldBeNil)
			So(seen, ShouldResemble, []float64{100})
		})
	})
}

func TestCancelledPass(t *testing.T) {
	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Convey("The pass fails with the context error", func() {
			_, err := NewDriver(Options{Workers: 2, Simulate: true}).Negate(ctx, pattern(8, 8, 1))
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestNEQRWatermark(t *testing.T) {
	ctx := context.Background()

	Convey("Given a 16x12 RGB host and its footprint watermark", t, func() {
		host := pattern(16, 12, 3)
		fh, fw, err := Footprint(host.Height, host.Width)
		So(err, ShouldBeNil)
		So(fh, ShouldEqual, 4)
		So(fw, ShouldEqual, 3)
		mark := checker(fh, fw)
		d := NewDriver(Options{Workers: 2, Seed: 7})

		Convey("Embedding changes only footprint LSBs", func() {
			out, err := d.EmbedNEQR(ctx, host, mark)
			So(err, ShouldBeNil)
			So(out.SameShape(host), ShouldBeTrue)
			for y := 0; y < host.Height; y++ {
				for x := 0; x < host.Width; x++ {
					for c := 0; c < 3; c++ {
						h, w := host.At(y, x, c), out.At(y, x, c)
						if y < fh && x < fw {
							So(w, ShouldEqual, h&0xFE|mark.At(y, x))
						} else {
							So(w, ShouldEqual, h)
						}
					}
				}
			}
		})

		Convey("Extraction recovers the watermark and the cleared host", func() {
			marked, err := d.EmbedNEQR(ctx, host, mark)
			So(err, ShouldBeNil)
			ext, err := d.ExtractNEQR(ctx, marked)
			So(err, ShouldBeNil)

			So(ext.Watermark.Height, ShouldEqual, fh)
			So(ext.Watermark.Width, ShouldEqual, fw)
			So(ext.Watermark.Channels, ShouldEqual, 3)
			for y := 0; y < fh; y++ {
				for x := 0; x < fw; x++ {
					for c := 0; c < 3; c++ {
						So(ext.Watermark.At(y, x, c), ShouldEqual, mark.At(y, x)*255)
						So(ext.Original.At(y, x, c), ShouldEqual, host.At(y, x, c)&0xFE)
					}
				}
			}
			So(ext.Original.At(fh, fw, 0), ShouldEqual, host.At(fh, fw, 0))
		})

		Convey("Simulated and tabulated passes agree", func() {
			fast, err := d.EmbedNEQR(ctx, host, mark)
			So(err, ShouldBeNil)
			slow, err := NewDriver(Options{Workers: 3, Simulate: true}).EmbedNEQR(ctx, host, mark)
			So(err, ShouldBeNil)
			So(slow.Pix, ShouldResemble, fast.Pix)
		})
	})

	Convey("Given a watermark larger than its host", t, func() {
		host := pattern(4, 4, 3)
		mark := checker(5, 5)

		Convey("Embedding reports the required and available bit counts", func() {
			_, err := NewDriver(Options{}).EmbedNEQR(ctx, host, mark)
			var sm *ShapeMismatchError
			So(errors.As(err, &sm), ShouldBeTrue)
			So(sm.Required, ShouldEqual, 75)
			So(sm.Available, ShouldEqual, 48)
		})
	})

	Convey("Given a host smaller than 4x4", t, func() {
		Convey("Extraction has no footprint", func() {
			_, err := NewDriver(Options{}).ExtractNEQR(ctx, pattern(3, 8, 1))
			var sm *ShapeMismatchError
			So(errors.As(err, &sm), ShouldBeTrue)
		})
	})

	Convey("Given an RGBA marked image", t, func() {
		host := pattern(8, 8, 4)
		mark := checker(2, 2)
		d := NewDriver(Options{})
		marked, err := d.EmbedNEQR(ctx, host, mark)
		So(err, ShouldBeNil)

		Convey("Alpha is copied into the extracted watermark", func() {
			ext, err := d.ExtractNEQR(ctx, marked)
			So(err, ShouldBeNil)
			So(ext.Watermark.Channels, ShouldEqual, 4)
			So(ext.Watermark.At(1, 1, 3), ShouldEqual, host.At(1, 1, 3))
			So(ext.Original.At(1, 1, 3), ShouldEqual, host.At(1, 1, 3))
		})
	})
}

func TestWaQIWatermark(t *testing.T) {
	ctx := context.Background()

	Convey("Given a 20x20 gray host", t, func() {
		host := pattern(20, 20, 1)
		mark := checker(5, 5)

		Convey("The bit stream round-trips through the flat samples", func() {
			d := NewDriver(Options{Workers: 3, Seed: 99, ChunkSize: 4})
			marked, err := d.EmbedWaQI(ctx, host, mark)
			So(err, ShouldBeNil)
			for i := 0; i < host.Len(); i++ {
				if i < mark.Len() {
					So(marked.Pix[i], ShouldEqual, host.Pix[i]&0xFE|mark.Bits[i])
				} else {
					So(marked.Pix[i], ShouldEqual, host.Pix[i])
				}
			}

			ext, err := d.ExtractWaQI(ctx, marked)
			So(err, ShouldBeNil)
			So(ext.Watermark.Channels, ShouldEqual, 1)
			So(ext.Watermark.Pix, ShouldResemble, mark.Raster().Pix)
			for i := 0; i < mark.Len(); i++ {
				So(ext.Original.Pix[i], ShouldEqual, host.Pix[i]&0xFE)
			}
		})

		Convey("Parallel and sequential passes produce the same image", func() {
			seq, err := NewDriver(Options{Workers: 1, Seed: 5}).EmbedWaQI(ctx, host, mark)
			So(err, ShouldBeNil)
			par, err := NewDriver(Options{Workers: 8, Seed: 5, ChunkSize: 3}).EmbedWaQI(ctx, host, mark)
			So(err, ShouldBeNil)
			So(par.Pix, ShouldResemble, seq.Pix)
		})
	})

	Convey("Given a host with fewer samples than watermark bits", t, func() {
		host := pattern(2, 2, 3)
		mark := checker(4, 4)

		Convey("Embedding fails with a shape mismatch", func() {
			_, err := NewDriver(Options{}).EmbedWaQI(ctx, host, mark)
			var sm *ShapeMismatchError
			So(errors.As(err, &sm), ShouldBeTrue)
			So(sm.Required, ShouldEqual, 16)
			So(sm.Available, ShouldEqual, 12)
		})
	})
}
