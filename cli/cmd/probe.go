package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/depthstream/cli/render"
	"github.com/pithecene-io/depthstream/probe"
)

// ProbeCommand returns the probe command.
// It reports capture capabilities without starting a session.
func ProbeCommand() *cli.Command {
	return &cli.Command{
		Name:  "probe",
		Usage: "Report capture capabilities",
		Flags: append(ReadOnlyFlags(),
			&cli.BoolFlag{
				Name:  "no-depth",
				Usage: "Simulate a platform without synchronized depth",
			},
			&cli.BoolFlag{
				Name:  "no-camera",
				Usage: "Simulate a platform without capture support",
			},
		),
		Action: probeAction,
	}
}

func probeAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for probe command", 1)
	}

	p := probe.Static{
		Depth:   !c.Bool("no-depth"),
		Capture: !c.Bool("no-camera"),
	}
	return r.Render(probe.Check(p))
}
