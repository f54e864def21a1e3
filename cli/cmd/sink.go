package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/depthstream/log"
	"github.com/pithecene-io/depthstream/transport"
)

// sinkShutdownTimeout bounds graceful shutdown of the sink server.
const sinkShutdownTimeout = 5 * time.Second

// SinkCommand returns the sink command.
// It serves a development backend that accepts frame streams.
func SinkCommand() *cli.Command {
	return &cli.Command{
		Name:  "sink",
		Usage: "Serve a development backend that accepts frame streams",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Listen address",
				Value: "127.0.0.1:8765",
			},
			&cli.IntFlag{
				Name:  "progress-every",
				Usage: "Send a progress message after every N frames",
				Value: 10,
			},
		},
		Action: sinkAction,
	}
}

func sinkAction(c *cli.Context) error {
	logger := log.NewLogger()
	defer func() { _ = logger.Sync() }()

	sink := transport.NewSink(transport.SinkConfig{
		ProgressEvery: c.Int("progress-every"),
		Logger:        logger,
	})
	srv := &http.Server{
		Addr:              c.String("listen"),
		Handler:           sink.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("sink listening", map[string]any{"addr": srv.Addr})

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return cli.Exit(fmt.Sprintf("sink server failed: %v", err), 1)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), sinkShutdownTimeout)
	defer cancel()
	_ = sink.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("sink shutdown: %w", err)
	}
	for _, s := range sink.Sessions() {
		logger.Info("sink session", map[string]any{
			"job_id":       s.JobID,
			"frames":       s.Frames,
			"depth_frames": s.DepthFrames,
			"rejected":     s.Rejected,
		})
	}
	return nil
}
