package imaging

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"qpixel/internal/protocol"
)

// ProgressFunc receives the completed share of a pass in [0, 100]. Values
// never decrease within a pass. It is called from worker goroutines and
// must not block for long.
type ProgressFunc func(percent float64)

// Options configure a Driver.
type Options struct {
	// Workers bounds how many rows or chunks run at once. 1 reproduces the
	// strictly sequential reference behaviour.
	Workers int
	// Seed fixes the random stream of every element: element i of a pass
	// samples from PCG(Seed, i).
	Seed uint64
	// Simulate forces a circuit per element even for protocols that have a
	// lookup table.
	Simulate bool
	// ChunkSize is the number of flat samples per WaQI work unit.
	ChunkSize int
	// TraceCircuits logs the QASM of the first n circuits of a pass at
	// debug level.
	TraceCircuits int
	Logger        *zap.Logger
	Progress      ProgressFunc
}

const defaultChunkSize = 1000

// Driver applies a protocol to every element of an image.
type Driver struct {
	opts Options
	log  *zap.Logger
}

func NewDriver(opts Options) *Driver {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.ChunkSize < 1 {
		opts.ChunkSize = defaultChunkSize
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{opts: opts, log: log}
}

// Extraction is the result of reading a watermark back out.
type Extraction struct {
	Watermark *Raster
	Original  *Raster
}

// kernel evaluates one element. idx is the element's flat sample index and
// selects its random stream.
type kernel func(in protocol.Input, idx int) (uint8, error)

func (d *Driver) kernelFor(desc protocol.Descriptor, log *zap.Logger) (kernel, error) {
	if desc.Static && !d.opts.Simulate {
		table, err := protocol.TableFor(desc)
		if err != nil {
			return nil, err
		}
		return func(in protocol.Input, _ int) (uint8, error) {
			return table.Lookup(in), nil
		}, nil
	}

	trace := d.opts.TraceCircuits
	if !log.Core().Enabled(zapcore.DebugLevel) {
		trace = 0
	}
	return func(in protocol.Input, idx int) (uint8, error) {
		if idx < trace {
			if c, err := desc.Circuit(in); err == nil {
				log.Debug("circuit",
					zap.Int("element", idx),
					zap.Uint8("value", in.Value),
					zap.Uint8("bit", in.Bit),
					zap.String("qasm", c.QASM()))
			}
		}
		src := rand.New(rand.NewPCG(d.opts.Seed, uint64(idx)))
		return desc.Apply(in, src)
	}, nil
}

// tracker turns completed work units into monotonically increasing
// percentages.
type tracker struct {
	mu    sync.Mutex
	total int
	done  int
	last  float64
	fn    ProgressFunc
}

func (t *tracker) step() {
	if t.fn == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done++
	pct := float64(t.done) * 100 / float64(t.total)
	if pct > t.last {
		t.last = pct
		t.fn(pct)
	}
}

// run executes units [0, n) on the worker pool. The first error cancels
// the pass and is returned; units already written stay in place but the
// caller discards the output.
func (d *Driver) run(ctx context.Context, n int, unit func(i int) error) error {
	prog := &tracker{total: n, fn: d.opts.Progress}
	if n == 0 {
		if prog.fn != nil {
			prog.fn(100)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Workers)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := unit(i); err != nil {
				return err
			}
			prog.step()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (d *Driver) begin(name string, img *Raster) (*zap.Logger, time.Time) {
	log := d.log.With(
		zap.String("pass", uuid.NewString()),
		zap.String("protocol", name))
	log.Info("pass started",
		zap.Stringer("shape", img),
		zap.Int("workers", d.opts.Workers),
		zap.Bool("simulate", d.opts.Simulate))
	return log, time.Now()
}

func finish(log *zap.Logger, start time.Time, err error) {
	if err != nil {
		log.Error("pass failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return
	}
	log.Info("pass finished", zap.Duration("elapsed", time.Since(start)))
}

// Negate applies quantum negation to every color sample of img. The output
// has the same shape; alpha is copied.
func (d *Driver) Negate(ctx context.Context, img *Raster) (out *Raster, err error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	log, start := d.begin(protocol.Negation.Name, img)
	defer func() { finish(log, start, err) }()

	k, err := d.kernelFor(protocol.Negation, log)
	if err != nil {
		return nil, err
	}

	out = img.Clone()
	err = d.run(ctx, img.Height, func(y int) error {
		for x := 0; x < img.Width; x++ {
			for c := 0; c < img.ColorChannels(); c++ {
				idx := img.Offset(y, x, c)
				v, err := k(protocol.Input{Value: img.Pix[idx]}, idx)
				if err != nil {
					return errors.Wrapf(err, "pixel (%d,%d) channel %d", y, x, c)
				}
				out.Pix[idx] = v
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func checkFits(host *Raster, mark *Bitmap) error {
	if mark.Height > host.Height || mark.Width > host.Width || mark.Len() == 0 {
		ch := host.ColorChannels()
		return &ShapeMismatchError{
			Required:  mark.Len() * ch,
			Available: host.Height * host.Width * ch,
			Detail:    "watermark must fit inside the host",
		}
	}
	return nil
}

// EmbedNEQR writes each watermark bit into the LSB of every color channel
// of the co-located host pixel. Pixels outside the watermark are copied.
func (d *Driver) EmbedNEQR(ctx context.Context, host *Raster, mark *Bitmap) (out *Raster, err error) {
	if err := host.Validate(); err != nil {
		return nil, err
	}
	if err := checkFits(host, mark); err != nil {
		return nil, err
	}
	log, start := d.begin(protocol.NEQREmbed.Name, host)
	defer func() { finish(log, start, err) }()

	k, err := d.kernelFor(protocol.NEQREmbed, log)
	if err != nil {
		return nil, err
	}

	out = host.Clone()
	err = d.run(ctx, mark.Height, func(y int) error {
		for x := 0; x < mark.Width; x++ {
			bit := mark.At(y, x)
			for c := 0; c < host.ColorChannels(); c++ {
				idx := host.Offset(y, x, c)
				v, err := k(protocol.Input{Value: host.Pix[idx], Bit: bit}, idx)
				if err != nil {
					return errors.Wrapf(err, "pixel (%d,%d) channel %d", y, x, c)
				}
				out.Pix[idx] = v
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ExtractNEQR reads the watermark from the footprint of img. The watermark
// keeps img's channel layout with bits scaled to 0/255 (alpha copied); the
// reconstruction is img with the footprint LSBs cleared.
func (d *Driver) ExtractNEQR(ctx context.Context, img *Raster) (ext *Extraction, err error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	fh, fw, err := Footprint(img.Height, img.Width)
	if err != nil {
		return nil, err
	}
	log, start := d.begin(protocol.NEQRExtract.Name, img)
	defer func() { finish(log, start, err) }()

	k, err := d.kernelFor(protocol.NEQRExtract, log)
	if err != nil {
		return nil, err
	}

	mark, _ := NewRaster(fh, fw, img.Channels)
	orig := img.Clone()
	err = d.run(ctx, fh, func(y int) error {
		for x := 0; x < fw; x++ {
			for c := 0; c < img.Channels; c++ {
				idx := img.Offset(y, x, c)
				w := img.Pix[idx]
				if c >= img.ColorChannels() {
					mark.Set(y, x, c, w)
					continue
				}
				bit, err := k(protocol.Input{Value: w}, idx)
				if err != nil {
					return errors.Wrapf(err, "pixel (%d,%d) channel %d", y, x, c)
				}
				mark.Set(y, x, c, bit*255)
				orig.Pix[idx] = w & 0xFE
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Extraction{Watermark: mark, Original: orig}, nil
}

// EmbedWaQI writes the watermark bit stream into the LSBs of the first
// mark.Len() flat samples of host, chunk by chunk.
func (d *Driver) EmbedWaQI(ctx context.Context, host *Raster, mark *Bitmap) (out *Raster, err error) {
	if err := host.Validate(); err != nil {
		return nil, err
	}
	if mark.Len() > host.Len() {
		return nil, &ShapeMismatchError{
			Required:  mark.Len(),
			Available: host.Len(),
			Detail:    "host is too small for the watermark",
		}
	}
	log, start := d.begin(protocol.WaQIEmbed.Name, host)
	defer func() { finish(log, start, err) }()

	k, err := d.kernelFor(protocol.WaQIEmbed, log)
	if err != nil {
		return nil, err
	}

	out = host.Clone()
	err = d.chunks(ctx, mark.Len(), func(i int) error {
		v, err := k(protocol.Input{Value: host.Pix[i], Bit: mark.Bits[i]}, i)
		if err != nil {
			return errors.Wrapf(err, "sample %d", i)
		}
		out.Pix[i] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ExtractWaQI reads one watermark bit from each of the first
// floor(H/4)·floor(W/4) flat samples of img. The watermark is a gray 0/255
// raster of the footprint size; the reconstruction has those samples' LSBs
// cleared.
func (d *Driver) ExtractWaQI(ctx context.Context, img *Raster) (ext *Extraction, err error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	fh, fw, err := Footprint(img.Height, img.Width)
	if err != nil {
		return nil, err
	}
	log, start := d.begin(protocol.WaQIExtract.Name, img)
	defer func() { finish(log, start, err) }()

	k, err := d.kernelFor(protocol.WaQIExtract, log)
	if err != nil {
		return nil, err
	}

	mark, _ := NewRaster(fh, fw, 1)
	orig := img.Clone()
	err = d.chunks(ctx, mark.Len(), func(i int) error {
		bit, err := k(protocol.Input{Value: img.Pix[i]}, i)
		if err != nil {
			return errors.Wrapf(err, "sample %d", i)
		}
		mark.Pix[i] = bit * 255
		orig.Pix[i] = img.Pix[i] & 0xFE
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Extraction{Watermark: mark, Original: orig}, nil
}

// chunks runs fn over flat indices [0, n) in ChunkSize work units.
func (d *Driver) chunks(ctx context.Context, n int, fn func(i int) error) error {
	size := d.opts.ChunkSize
	count := (n + size - 1) / size
	return d.run(ctx, count, func(chunk int) error {
		end := min((chunk+1)*size, n)
		for i := chunk * size; i < end; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	})
}
