package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/depthstream/cli/reader"
	"github.com/pithecene-io/depthstream/cli/render"
	"github.com/pithecene-io/depthstream/encoder"
)

// DebugCommand returns the debug command with subcommands.
// Debug commands are opt-in diagnostic tools and never mutate anything.
func DebugCommand() *cli.Command {
	return &cli.Command{
		Name:  "debug",
		Usage: "Diagnostic tools (decode frame)",
		Subcommands: []*cli.Command{
			debugFrameCommand(),
		},
	}
}

func debugFrameCommand() *cli.Command {
	return &cli.Command{
		Name:      "frame",
		Usage:     "Decode one recorded frame and summarize its depth",
		ArgsUsage: "<recording>",
		Flags: append(ReadOnlyFlags(),
			&cli.IntFlag{
				Name:  "seq",
				Usage: "Frame index within the recording",
			},
			&cli.Float64Flag{
				Name:  "max-depth",
				Usage: "Depth range in meters the recording was encoded with",
				Value: encoder.DefaultMaxDepthMeters,
			},
		),
		Action: debugFrameAction,
	}
}

func debugFrameAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for debug commands", 1)
	}
	if c.NArg() < 1 {
		return cli.Exit("recording path required", 1)
	}

	rec, err := readRecording(c.Args().First())
	if err != nil {
		return err
	}

	detail, err := reader.DecodeFrame(rec, c.Int("seq"), c.Float64("max-depth"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return r.Render(detail)
}
