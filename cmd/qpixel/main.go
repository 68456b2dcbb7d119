package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli"

	"qpixel/internal/protocol"
)

// VERSION is injected by buildflags
var VERSION = "SELFBUILD"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "qpixel: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "qpixel"
	app.Usage = "simulated quantum image processing: negation and LSB watermarking"
	app.Version = VERSION
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config,c",
			Usage: "YAML config file",
		},
		cli.StringFlag{
			Name:  "env-file",
			Value: ".env",
			Usage: "dotenv file with QPIXEL_* overrides, ignored when missing",
		},
		cli.Uint64Flag{
			Name:  "seed",
			Usage: "seed of the per-element measurement streams",
		},
		cli.IntFlag{
			Name:  "workers,w",
			Usage: "rows or chunks processed in parallel, 1 is sequential",
		},
		cli.IntFlag{
			Name:  "chunk-size",
			Usage: "flat samples per work unit for waqi passes",
		},
		cli.BoolFlag{
			Name:  "simulate",
			Usage: "simulate every element instead of using lookup tables",
		},
		cli.BoolFlag{
			Name:  "tui",
			Usage: "show a progress view while a pass runs",
		},
		cli.StringFlag{
			Name:  "log-file",
			Usage: "also write JSON logs to this rotating file",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn or error",
		},
		cli.BoolFlag{
			Name:  "dev",
			Usage: "colored debug logging, prints the first circuits of each pass",
		},
	}

	schemeFlag := cli.StringFlag{
		Name:  "scheme,s",
		Value: "neqr",
		Usage: "watermarking scheme: neqr or waqi",
	}
	thresholdFlag := cli.IntFlag{
		Name:  "threshold,t",
		Usage: "gray level above which a watermark pixel is 1 (default from config, 127)",
	}

	app.Commands = []cli.Command{
		{
			Name:      "negate",
			Usage:     "invert every color sample with the quantum negation circuit",
			ArgsUsage: "INPUT OUTPUT",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "text", Usage: "read and write whitespace separated intensity matrices"},
				cli.BoolFlag{Name: "compare", Usage: "report the MSE against classical negation"},
				cli.BoolFlag{Name: "preview", Usage: "log the top-left 5x5 of input and output"},
			},
			Action: negateAction,
		},
		{
			Name:      "embed",
			Usage:     "hide a binarized watermark in the host's least significant bits",
			ArgsUsage: "HOST WATERMARK OUTPUT",
			Flags:     []cli.Flag{schemeFlag, thresholdFlag, cli.BoolFlag{Name: "preview"}},
			Action:    embedAction,
		},
		{
			Name:      "extract",
			Usage:     "recover a watermark and the LSB-cleared host",
			ArgsUsage: "INPUT WATERMARK_OUT [ORIGINAL_OUT]",
			Flags:     []cli.Flag{schemeFlag, cli.BoolFlag{Name: "preview"}},
			Action:    extractAction,
		},
		{
			Name:  "circuit",
			Usage: "print the circuit a protocol runs for one input as a diagram and OpenQASM",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "protocol,p", Value: protocol.Negation.Name, Usage: fmt.Sprint(protocol.Names())},
				cli.IntFlag{Name: "value,v", Usage: "8-bit sample value"},
				cli.IntFlag{Name: "bit,b", Usage: "watermark bit"},
				cli.BoolFlag{Name: "qasm-only", Usage: "print only the OpenQASM text"},
			},
			Action: circuitAction,
		},
		{
			Name:      "qasm",
			Usage:     "run an OpenQASM 2.0 program (x, h, cx, measure) and print outcome counts",
			ArgsUsage: "FILE",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "shots,n", Value: 1024, Usage: "number of runs"},
			},
			Action: qasmAction,
		},
	}
	return app
}
