package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/depthstream/cli/reader"
	"github.com/pithecene-io/depthstream/cli/render"
)

// listWarningThreshold is the number of items above which we warn about using --limit.
const listWarningThreshold = 100

// isStderrTTY returns true if stderr is a TTY.
func isStderrTTY() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// ListCommand returns the list command with subcommands.
// List returns thin rows, not inspect-level detail.
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List entities (frames)",
		Subcommands: []*cli.Command{
			listFramesCommand(),
		},
	}
}

func listFramesCommand() *cli.Command {
	return &cli.Command{
		Name:      "frames",
		Usage:     "List the frames of a recording",
		ArgsUsage: "<recording>",
		Flags: append(ReadOnlyFlags(),
			&cli.BoolFlag{
				Name:  "depth-only",
				Usage: "Only list frames carrying depth",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of frames to return (0 = no limit)",
				Value: 0,
			},
		),
		Action: listFramesAction,
	}
}

func listFramesAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	// TUI not supported for list commands
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for list commands", 1)
	}
	if c.NArg() < 1 {
		return cli.Exit("recording path required", 1)
	}

	rec, err := readRecording(c.Args().First())
	if err != nil {
		return err
	}

	opts := reader.ListFramesOptions{
		DepthOnly: c.Bool("depth-only"),
		Limit:     c.Int("limit"),
	}
	results := reader.ListFrames(rec, opts)

	// Warn if output is large and --limit was not specified (TTY only to avoid noise in pipelines)
	if len(results) > listWarningThreshold && opts.Limit == 0 && isStderrTTY() {
		fmt.Fprintf(os.Stderr, "Warning: returning %d results. Consider using --limit to reduce output.\n\n", len(results))
	}

	return r.Render(results)
}
