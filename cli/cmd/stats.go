package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	lodelibrary "github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/depthstream/archive"
	"github.com/pithecene-io/depthstream/cli/reader"
	"github.com/pithecene-io/depthstream/cli/render"
	"github.com/pithecene-io/depthstream/cli/tui"
)

// archiveReadTimeout bounds archive queries.
const archiveReadTimeout = 30 * time.Second

// StatsCommand returns the stats command with subcommands.
// Stats returns aggregated, derived facts.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show aggregated statistics (archived sessions)",
		Subcommands: []*cli.Command{
			statsSessionCommand(),
		},
	}
}

func statsSessionCommand() *cli.Command {
	return &cli.Command{
		Name:      "session",
		Usage:     "Show statistics of an archived session",
		ArgsUsage: "<job-id>",
		Flags: append(TUIReadOnlyFlags(),
			&cli.StringFlag{Name: "archive-dataset", Usage: "Archive dataset ID", Value: archive.DefaultDataset},
			&cli.StringFlag{Name: "archive-backend", Usage: "Archive backend: fs or s3"},
			&cli.StringFlag{Name: "archive-path", Usage: "Archive path (fs: directory, s3: bucket/prefix)"},
			&cli.StringFlag{Name: "archive-region", Usage: "AWS region for the s3 backend"},
			&cli.StringFlag{Name: "archive-endpoint", Usage: "Custom S3 endpoint URL"},
			&cli.BoolFlag{Name: "archive-s3-path-style", Usage: "Force path-style S3 addressing"},
			&cli.StringFlag{Name: "archive-source", Usage: "Filter by source partition"},
		),
		Action: statsSessionAction,
	}
}

func statsSessionAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("job-id required", 1)
	}
	jobID := c.Args().First()

	backend := c.String("archive-backend")
	path := c.String("archive-path")
	if backend == "" || path == "" {
		return cli.Exit("both --archive-backend and --archive-path are required", 1)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, archiveReadTimeout)
	defer cancel()

	ds, err := buildReadDataset(ctx, c.String("archive-dataset"), archiveChoice{
		backend:   backend,
		path:      path,
		region:    c.String("archive-region"),
		endpoint:  c.String("archive-endpoint"),
		pathStyle: c.Bool("archive-s3-path-style"),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize archive reader: %w", err)
	}

	summary, err := archive.QuerySession(ctx, ds, jobID, c.String("archive-source"))
	if errors.Is(err, archive.ErrSessionNotFound) {
		return cli.Exit(fmt.Sprintf("no archived session for job %s", jobID), 1)
	}
	if err != nil {
		return fmt.Errorf("failed to read archived session: %w", err)
	}

	stats, err := reader.ParseSessionSummary(summary)
	if err != nil {
		return fmt.Errorf("failed to parse archived session: %w", err)
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewSessionStats, stats)
	}
	return r.Render(stats)
}

// buildReadDataset opens an archive dataset for reading.
func buildReadDataset(ctx context.Context, dataset string, ac archiveChoice) (lodelibrary.Dataset, error) {
	switch ac.backend {
	case "fs":
		return archive.NewReadDatasetFS(dataset, ac.path)
	case "s3":
		bucket, prefix := archive.ParseS3Path(ac.path)
		return archive.NewReadDatasetS3(ctx, dataset, archive.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       ac.region,
			Endpoint:     ac.endpoint,
			UsePathStyle: ac.pathStyle,
		})
	default:
		return nil, fmt.Errorf("unsupported archive-backend: %s (must be fs or s3)", ac.backend)
	}
}
