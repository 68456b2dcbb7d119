package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"qpixel/internal/config"
	"qpixel/internal/imaging"
	"qpixel/internal/logging"
	"qpixel/internal/protocol"
	"qpixel/internal/quantum"
	"qpixel/internal/tui"
)

// env is what every command needs after flags and config are merged.
type env struct {
	cfg config.Config
	log *zap.Logger
	out io.Writer
}

func setup(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.GlobalString("config"), c.GlobalString("env-file"))
	if err != nil {
		return nil, err
	}
	if c.GlobalIsSet("seed") {
		cfg.Seed = c.GlobalUint64("seed")
	}
	if c.GlobalIsSet("workers") {
		cfg.Workers = c.GlobalInt("workers")
	}
	if c.GlobalIsSet("chunk-size") {
		cfg.ChunkSize = c.GlobalInt("chunk-size")
	}
	if c.GlobalIsSet("simulate") {
		cfg.Simulate = c.GlobalBool("simulate")
	}
	if c.GlobalIsSet("tui") {
		cfg.TUI = c.GlobalBool("tui")
	}
	if c.GlobalIsSet("log-file") {
		cfg.LogFile = c.GlobalString("log-file")
	}
	if c.GlobalIsSet("log-level") {
		cfg.LogLevel = c.GlobalString("log-level")
	}
	if c.GlobalIsSet("dev") {
		cfg.DevMode = c.GlobalBool("dev")
	}
	if c.IsSet("threshold") {
		t := c.Int("threshold")
		if t < 0 || t > 255 {
			return nil, errors.Errorf("threshold %d is outside [0,255]", t)
		}
		cfg.Threshold = uint8(t)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// The progress view owns the terminal, so logs only go to the file.
	var console io.Writer = os.Stderr
	if cfg.TUI {
		console = nil
	}
	log := logging.New(logging.Options{
		Dev:     cfg.DevMode,
		Level:   logging.ParseLevel(cfg.LogLevel, zapcore.InfoLevel),
		File:    cfg.LogFile,
		Console: console,
	})
	return &env{cfg: cfg, log: log, out: c.App.Writer}, nil
}

func (e *env) driver(progress imaging.ProgressFunc) *imaging.Driver {
	return imaging.NewDriver(imaging.Options{
		Workers:       e.cfg.Workers,
		Seed:          e.cfg.Seed,
		Simulate:      e.cfg.Simulate,
		ChunkSize:     e.cfg.ChunkSize,
		TraceCircuits: e.cfg.TraceCircuits,
		Logger:        e.log,
		Progress:      progress,
	})
}

// logProgress logs every tenth of a pass. The driver serializes calls.
func (e *env) logProgress(name string) imaging.ProgressFunc {
	next := 10.0
	return func(pct float64) {
		for pct >= next {
			e.log.Debug("progress", zap.String("pass", name), zap.Float64("percent", next))
			next += 10
		}
	}
}

type pass func(ctx context.Context, d *imaging.Driver) (string, error)

// run executes fn with either the progress view or plain logging, and
// prints its summary.
func (e *env) run(title string, fn pass) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	defer e.log.Sync()

	var (
		summary string
		err     error
	)
	if e.cfg.TUI {
		summary, err = tui.Run(ctx, title, func(ctx context.Context, report func(float64)) (string, error) {
			return fn(ctx, e.driver(report))
		})
	} else {
		summary, err = fn(ctx, e.driver(e.logProgress(title)))
	}
	if err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintln(e.out, summary)
	return nil
}

func (e *env) preview(label string, r *imaging.Raster) {
	e.log.Info("preview", zap.String("image", label), zap.String("samples", imaging.Preview(r, 5, 5)))
}

func args(c *cli.Context, lo, hi int) ([]string, error) {
	if c.NArg() < lo || c.NArg() > hi {
		return nil, errors.Errorf("%s: expected %s", c.Command.Name, c.Command.ArgsUsage)
	}
	return c.Args(), nil
}

func negateAction(c *cli.Context) error {
	paths, err := args(c, 2, 2)
	if err != nil {
		return err
	}
	e, err := setup(c)
	if err != nil {
		return err
	}
	text := c.Bool("text")

	img, err := loadRaster(paths[0], text)
	if err != nil {
		return err
	}
	if c.Bool("preview") {
		e.preview("input", img)
	}

	return e.run("negation "+paths[0], func(ctx context.Context, d *imaging.Driver) (string, error) {
		out, err := d.Negate(ctx, img)
		if err != nil {
			return "", err
		}
		if c.Bool("preview") {
			e.preview("output", out)
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := saveRaster(paths[1], out, text); err != nil {
			return "", err
		}
		summary := fmt.Sprintf("negated %s image into %s", img, paths[1])
		if c.Bool("compare") {
			mse, err := imaging.MSE(out, classicalNegation(img))
			if err != nil {
				return "", err
			}
			e.log.Info("compared with classical negation", zap.Float64("mse", mse))
			summary += fmt.Sprintf(" (MSE vs classical %.4f)", mse)
		}
		return summary, nil
	})
}

func classicalNegation(img *imaging.Raster) *imaging.Raster {
	out := img.Clone()
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			for ch := 0; ch < img.ColorChannels(); ch++ {
				out.Set(y, x, ch, 255-img.At(y, x, ch))
			}
		}
	}
	return out
}

func loadRaster(path string, text bool) (*imaging.Raster, error) {
	if !text {
		return imaging.Load(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r, err := imaging.ReadText(f)
	return r, errors.Wrapf(err, "read %s", path)
}

func saveRaster(path string, r *imaging.Raster, text bool) (err error) {
	if !text {
		return imaging.Save(path, r)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return imaging.WriteText(f, r)
}

// save writes r unless the pass was cancelled while it ran.
func save(ctx context.Context, path string, r *imaging.Raster) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return imaging.Save(path, r)
}

func scheme(c *cli.Context) (string, error) {
	s := strings.ToLower(c.String("scheme"))
	if s != "neqr" && s != "waqi" {
		return "", errors.Errorf("unknown scheme %q, want neqr or waqi", s)
	}
	return s, nil
}

func embedAction(c *cli.Context) error {
	paths, err := args(c, 3, 3)
	if err != nil {
		return err
	}
	s, err := scheme(c)
	if err != nil {
		return err
	}
	e, err := setup(c)
	if err != nil {
		return err
	}

	host, err := imaging.Load(paths[0])
	if err != nil {
		return err
	}
	mark, err := imaging.LoadWatermark(paths[1], host.Height, host.Width, e.cfg.Threshold)
	if err != nil {
		return err
	}
	if c.Bool("preview") {
		e.preview("host", host)
		e.preview("watermark", mark.Raster())
	}

	return e.run(s+" embed "+paths[0], func(ctx context.Context, d *imaging.Driver) (string, error) {
		var (
			out *imaging.Raster
			err error
		)
		if s == "neqr" {
			out, err = d.EmbedNEQR(ctx, host, mark)
		} else {
			out, err = d.EmbedWaQI(ctx, host, mark)
		}
		if err != nil {
			return "", err
		}
		if err := save(ctx, paths[2], out); err != nil {
			return "", err
		}
		return fmt.Sprintf("embedded %dx%d watermark into %s", mark.Height, mark.Width, paths[2]), nil
	})
}

func extractAction(c *cli.Context) error {
	paths, err := args(c, 2, 3)
	if err != nil {
		return err
	}
	s, err := scheme(c)
	if err != nil {
		return err
	}
	e, err := setup(c)
	if err != nil {
		return err
	}

	img, err := imaging.Load(paths[0])
	if err != nil {
		return err
	}

	return e.run(s+" extract "+paths[0], func(ctx context.Context, d *imaging.Driver) (string, error) {
		var (
			ext *imaging.Extraction
			err error
		)
		if s == "neqr" {
			ext, err = d.ExtractNEQR(ctx, img)
		} else {
			ext, err = d.ExtractWaQI(ctx, img)
		}
		if err != nil {
			return "", err
		}
		if c.Bool("preview") {
			e.preview("watermark", ext.Watermark)
		}
		if err := save(ctx, paths[1], ext.Watermark); err != nil {
			return "", err
		}
		summary := fmt.Sprintf("extracted %s watermark into %s", ext.Watermark, paths[1])
		if len(paths) == 3 {
			if err := save(ctx, paths[2], ext.Original); err != nil {
				return "", err
			}
			summary += ", host into " + paths[2]
		}
		return summary, nil
	})
}

func circuitAction(c *cli.Context) error {
	d, ok := protocol.ByName(c.String("protocol"))
	if !ok {
		return errors.Errorf("unknown protocol %q, want one of %v", c.String("protocol"), protocol.Names())
	}
	v, b := c.Int("value"), c.Int("bit")
	if v < 0 || v > 255 || b < 0 || b > 1 {
		return errors.Errorf("value must be in [0,255] and bit 0 or 1, got %d and %d", v, b)
	}
	circ, err := d.Circuit(protocol.Input{Value: uint8(v), Bit: uint8(b)})
	if err != nil {
		return err
	}

	out := c.App.Writer
	if !c.Bool("qasm-only") {
		title := fmt.Sprintf("%s  value=%d bit=%d", d.Name, v, b)
		fmt.Fprintln(out, tui.StyleDiagram(title, circ.Diagram()))
	}
	fmt.Fprint(out, circ.QASM())
	return nil
}

func qasmAction(c *cli.Context) error {
	paths, err := args(c, 1, 1)
	if err != nil {
		return err
	}
	shots := c.Int("shots")
	if shots < 1 {
		return errors.Errorf("shots must be at least 1, got %d", shots)
	}
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.log.Sync()

	data, err := os.ReadFile(paths[0])
	if err != nil {
		return err
	}
	circ, err := quantum.ParseQASM(string(data))
	if err != nil {
		return errors.Wrapf(err, "parse %s", paths[0])
	}
	e.log.Debug("parsed program", zap.Int("qubits", circ.NumQubits()), zap.Int("gates", len(circ.Gates())))

	counts := make(map[string]int)
	for shot := 0; shot < shots; shot++ {
		out, err := quantum.Run(circ, rand.New(rand.NewPCG(e.cfg.Seed, uint64(shot))))
		if err != nil {
			return errors.Wrapf(err, "shot %d", shot)
		}
		counts[out.String()]++
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	bold := color.New(color.Bold)
	dim := color.New(color.FgHiBlack)
	bold.Fprintf(e.out, "%d shots\n", shots)
	for _, k := range keys {
		fmt.Fprintf(e.out, "%s  %6d  ", k, counts[k])
		dim.Fprintf(e.out, "%.4f\n", float64(counts[k])/float64(shots))
	}
	return nil
}
