package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/depthstream/cli/reader"
	"github.com/pithecene-io/depthstream/cli/render"
	"github.com/pithecene-io/depthstream/cli/tui"
	"github.com/pithecene-io/depthstream/wire"
)

// InspectCommand returns the inspect command.
// Inspect returns a deep view of a single recording file.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Inspect a recording file",
		ArgsUsage: "<recording>",
		Flags:     TUIReadOnlyFlags(),
		Action:    inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("recording path required", 1)
	}
	path := c.Args().First()

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	rec, err := readRecording(path)
	if err != nil {
		return err
	}
	resp := reader.InspectRecording(path, rec)

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewInspectRecording, resp)
	}
	return r.Render(resp)
}

// readRecording reads a recording file. A recording cut off mid-frame is
// returned with the frames read so far.
func readRecording(path string) (*wire.Recording, error) {
	rec, err := wire.ReadRecordingFile(path)
	if err != nil {
		if rec != nil && rec.Header != nil && wire.IsFatalFrameError(err) {
			fmt.Fprintf(os.Stderr, "Warning: %s: %v (showing %d frames read)\n", path, err, len(rec.Frames))
			return rec, nil
		}
		return nil, fmt.Errorf("failed to read recording %s: %w", path, err)
	}
	return rec, nil
}
