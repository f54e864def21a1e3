package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/depthstream/adapter"
	"github.com/pithecene-io/depthstream/adapter/redis"
	"github.com/pithecene-io/depthstream/adapter/webhook"
	"github.com/pithecene-io/depthstream/archive"
	"github.com/pithecene-io/depthstream/capture"
	"github.com/pithecene-io/depthstream/cli/config"
	"github.com/pithecene-io/depthstream/encoder"
	"github.com/pithecene-io/depthstream/log"
	"github.com/pithecene-io/depthstream/metrics"
	"github.com/pithecene-io/depthstream/policy"
	"github.com/pithecene-io/depthstream/probe"
	"github.com/pithecene-io/depthstream/sensor"
	"github.com/pithecene-io/depthstream/session"
	"github.com/pithecene-io/depthstream/transport"
	"github.com/pithecene-io/depthstream/types"
	"github.com/pithecene-io/depthstream/wire"
)

// Exit codes of the stream command.
const (
	exitCompleted   = 0
	exitConnection  = 1
	exitUnsupported = 2
	exitFailed      = 3
)

// Bounds on the work done after the session has ended.
const (
	stopTimeout    = 5 * time.Second
	publishTimeout = 30 * time.Second
)

// StreamCommand returns the stream command.
// This is the only command that opens a capture session.
func StreamCommand() *cli.Command {
	return &cli.Command{
		Name:  "stream",
		Usage: "Stream a synthetic capture session to a reconstruction backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to depthstream.yaml (flags override config values)",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Backend base URL (ws, wss, http or https)",
			},
			&cli.StringFlag{
				Name:  "job-id",
				Usage: "Job ID (default: random UUID)",
			},
			&cli.DurationFlag{
				Name:  "duration",
				Usage: "Stop after this long (0 streams until interrupted or the backend is done)",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Suppress result output",
			},
			// Capture flags
			&cli.Float64Flag{
				Name:  "target-hz",
				Usage: "Maximum publish rate in frames per second (0 disables throttling)",
				Value: policy.DefaultTargetHz,
			},
			&cli.IntFlag{
				Name:  "jpeg-quality",
				Usage: "JPEG quality of color frames (1-100)",
				Value: encoder.DefaultJPEGQuality,
			},
			&cli.Float64Flag{
				Name:  "max-depth",
				Usage: "Depth range in meters mapped onto the 16-bit depth image",
				Value: encoder.DefaultMaxDepthMeters,
			},
			&cli.StringFlag{
				Name:  "wire-format",
				Usage: "Wire encoding: json or msgpack",
				Value: string(wire.FormatJSON),
			},
			&cli.DurationFlag{
				Name:  "dial-timeout",
				Usage: "Timeout for opening the streaming channel",
				Value: session.DefaultDialTimeout,
			},
			&cli.IntFlag{
				Name:  "failure-threshold",
				Usage: "Consecutive per-frame failures that fail the session",
				Value: policy.DefaultFailureThreshold,
			},
			// Sensor flags
			&cli.IntFlag{
				Name:  "sensor-width",
				Usage: "Synthetic sensor width in pixels",
				Value: 256,
			},
			&cli.IntFlag{
				Name:  "sensor-height",
				Usage: "Synthetic sensor height in pixels",
				Value: 192,
			},
			&cli.IntFlag{
				Name:  "sensor-fps",
				Usage: "Synthetic sensor delivery rate",
				Value: 30,
			},
			&cli.IntFlag{
				Name:  "depth-every",
				Usage: "Attach depth to every Nth sensor frame only",
			},
			&cli.BoolFlag{
				Name:  "no-depth",
				Usage: "Simulate a platform without synchronized depth",
			},
			&cli.BoolFlag{
				Name:  "no-camera",
				Usage: "Simulate a platform without capture support",
			},
			&cli.StringFlag{
				Name:  "record",
				Usage: "Write every sent frame to this recording file",
			},
			// Archive flags
			&cli.StringFlag{
				Name:  "archive-dataset",
				Usage: "Archive dataset ID",
				Value: archive.DefaultDataset,
			},
			&cli.StringFlag{
				Name:  "archive-backend",
				Usage: "Archive backend: fs or s3",
			},
			&cli.StringFlag{
				Name:  "archive-path",
				Usage: "Archive path (fs: directory, s3: bucket/prefix)",
			},
			&cli.StringFlag{
				Name:  "archive-region",
				Usage: "AWS region for the s3 archive backend",
			},
			&cli.StringFlag{
				Name:  "archive-endpoint",
				Usage: "Custom S3 endpoint URL (MinIO, R2)",
			},
			&cli.BoolFlag{
				Name:  "archive-s3-path-style",
				Usage: "Force path-style S3 addressing",
			},
			&cli.StringFlag{
				Name:  "archive-source",
				Usage: "Source partition value (default: host name)",
			},
			&cli.BoolFlag{
				Name:  "archive-store-payloads",
				Usage: "Archive image and depth payloads as sidecar files",
			},
			&cli.IntFlag{
				Name:  "archive-flush-every",
				Usage: "Flush the archive after this many buffered frames",
			},
			&cli.DurationFlag{
				Name:  "archive-flush-interval",
				Usage: "Maximum time a frame stays buffered before flush",
			},
			// Adapter flags
			&cli.StringFlag{
				Name:  "adapter",
				Usage: "Session completion adapter: webhook or redis",
			},
			&cli.StringFlag{
				Name:  "adapter-url",
				Usage: "Adapter endpoint URL",
			},
			&cli.StringFlag{
				Name:  "adapter-channel",
				Usage: "Redis pub/sub channel",
			},
			&cli.StringFlag{
				Name:  "adapter-list-key",
				Usage: "Redis list that also keeps recent events",
			},
			&cli.StringFlag{
				Name:  "adapter-secret",
				Usage: "Webhook HMAC signing secret",
			},
			&cli.StringSliceFlag{
				Name:  "adapter-header",
				Usage: "Webhook header as key=value (repeatable)",
			},
			&cli.DurationFlag{
				Name:  "adapter-timeout",
				Usage: "Per-publish timeout",
				Value: 10 * time.Second,
			},
			&cli.IntFlag{
				Name:  "adapter-retries",
				Usage: "Publish retry attempts",
				Value: 3,
			},
		},
		Action: streamAction,
	}
}

// streamChoice holds the resolved stream settings.
type streamChoice struct {
	backendURL       string
	jobID            string
	duration         time.Duration
	targetHz         float64
	jpegQuality      int
	maxDepth         float64
	wireFormat       wire.Format
	dialTimeout      time.Duration
	failureThreshold int
	sensor           sensor.SyntheticConfig
	noDepth          bool
	noCamera         bool
	record           string
	archive          archiveChoice
	adapterType      string
}

// archiveChoice holds the resolved archive configuration.
type archiveChoice struct {
	dataset       string
	backend       string
	path          string
	region        string
	endpoint      string
	pathStyle     bool
	source        string
	storePayloads bool
	flushEvery    int
	flushInterval time.Duration
}

// adapterChoice holds the resolved adapter configuration.
type adapterChoice struct {
	url     string
	channel string
	listKey string
	secret  string
	headers map[string]string
	timeout time.Duration
	retries int
}

func streamAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to load config: %v", err), exitConnection)
	}

	choice, err := resolveStreamChoice(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitConnection)
	}

	var ac *adapterChoice
	if choice.adapterType != "" {
		ac, err = parseAdapterConfigWithPrecedence(c, cfg, choice.adapterType)
		if err != nil {
			return cli.Exit(err.Error(), exitConnection)
		}
	}

	logger := log.NewLogger()
	defer func() { _ = logger.Sync() }()

	collector := metrics.NewCollector(string(choice.wireFormat), choice.archive.backend)
	codec, err := wire.NewCodec(choice.wireFormat)
	if err != nil {
		return cli.Exit(err.Error(), exitConnection)
	}

	recorders, closeRecorders, archiveSink, err := buildRecorders(c.Context, choice, logger, collector)
	if err != nil {
		return cli.Exit(err.Error(), exitConnection)
	}

	var pub adapter.Adapter
	if ac != nil {
		pub, err = buildAdapter(choice.adapterType, ac)
		if err != nil {
			closeRecorders()
			return cli.Exit(fmt.Sprintf("failed to create adapter: %v", err), exitConnection)
		}
		defer func() { _ = pub.Close() }()
	}

	failed := make(chan error, 1)
	backendDone := make(chan struct{}, 1)
	facade := capture.New(capture.Config{
		Probe: probe.Static{Depth: !choice.noDepth, Capture: !choice.noCamera},
		Session: session.Config{
			Dialer: &transport.WSDialer{Codec: codec, Logger: logger},
			Source: sensor.NewSynthetic(choice.sensor),
			Encoder: encoder.Options{
				JPEGQuality:    choice.jpegQuality,
				MaxDepthMeters: choice.maxDepth,
			},
			TargetHz:         choice.targetHz,
			Unthrottled:      choice.targetHz == 0,
			FailureThreshold: choice.failureThreshold,
			DialTimeout:      choice.dialTimeout,
			Logger:           logger,
			Collector:        collector,
			Recorder:         recorders,
			OnFailure: func(_ types.CaptureJob, err error) {
				select {
				case failed <- err:
				default:
				}
			},
			OnControl: func(_ types.CaptureJob, msg *types.ControlMessage) {
				if msg.Type != types.ControlDone {
					return
				}
				select {
				case backendDone <- struct{}{}:
				default:
				}
			},
		},
	})

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	status, err := facade.Start(ctx, choice.jobID, choice.backendURL)
	if err != nil {
		closeRecorders()
		return cli.Exit(fmt.Sprintf("start failed (%s): %v", capture.Classify(err), err), exitConnection)
	}
	switch status {
	case types.StatusStarted:
	case types.StatusUnsupported:
		closeRecorders()
		return cli.Exit("capture unsupported on this platform", exitUnsupported)
	default:
		closeRecorders()
		return cli.Exit(fmt.Sprintf("start returned %s", status), exitConnection)
	}

	var timeout <-chan time.Time
	if choice.duration > 0 {
		timer := time.NewTimer(choice.duration)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case <-ctx.Done():
	case <-timeout:
	case <-backendDone:
	case <-failed:
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	facade.Stop(stopCtx)
	cancel()
	result := facade.LastResult()
	closeRecorders()
	if result == nil {
		return cli.Exit("session ended without a result", exitConnection)
	}

	var source, storagePath string
	if archiveSink != nil {
		source = archiveSink.Source()
		storagePath = buildStoragePath(choice.archive, archiveSink.Dataset(), source,
			archive.DeriveDay(result.Job.StartedAt), result.Job.JobID)
	}
	if pub != nil {
		publishEvent(pub, adapter.NewSessionCompletedEvent(result, source, storagePath, time.Now()), logger)
	}

	if !c.Bool("quiet") {
		printStreamResult(os.Stdout, result, collector.Snapshot(), storagePath)
	}

	return cli.Exit("", outcomeToExitCode(result.Outcome))
}

// resolveStreamChoice applies flag-over-config precedence to every setting.
func resolveStreamChoice(c *cli.Context, cfg *config.Config) (*streamChoice, error) {
	choice := &streamChoice{
		backendURL:       resolveString(c, "backend", configVal(cfg, func(c *config.Config) string { return c.BackendURL })),
		jobID:            resolveString(c, "job-id", configVal(cfg, func(c *config.Config) string { return c.JobID })),
		duration:         c.Duration("duration"),
		jpegQuality:      resolveInt(c, "jpeg-quality", configVal(cfg, func(c *config.Config) int { return c.JPEGQuality })),
		maxDepth:         resolveFloat(c, "max-depth", configVal(cfg, func(c *config.Config) float64 { return c.MaxDepthM })),
		dialTimeout:      resolveDuration(c, "dial-timeout", configVal(cfg, func(c *config.Config) time.Duration { return c.DialTimeout.Duration })),
		failureThreshold: resolveInt(c, "failure-threshold", configVal(cfg, func(c *config.Config) int { return c.FailureThreshold })),
		record:           resolveString(c, "record", configVal(cfg, func(c *config.Config) string { return c.Record })),
		adapterType:      resolveString(c, "adapter", configVal(cfg, func(c *config.Config) string { return c.Adapter.Type })),
	}

	if choice.backendURL == "" {
		return nil, errors.New("--backend is required (or set backend_url in config)")
	}
	if choice.jobID == "" {
		choice.jobID = uuid.NewString()
	}

	choice.targetHz = c.Float64("target-hz")
	if !c.IsSet("target-hz") && cfg != nil && cfg.TargetHz != nil {
		choice.targetHz = *cfg.TargetHz
	}
	if choice.targetHz < 0 {
		return nil, fmt.Errorf("invalid --target-hz %v (must be >= 0)", choice.targetHz)
	}
	if choice.jpegQuality < 1 || choice.jpegQuality > 100 {
		return nil, fmt.Errorf("invalid --jpeg-quality %d (must be 1-100)", choice.jpegQuality)
	}
	if choice.maxDepth <= 0 {
		return nil, fmt.Errorf("invalid --max-depth %v (must be > 0)", choice.maxDepth)
	}

	format, err := wire.ParseFormat(resolveString(c, "wire-format", configVal(cfg, func(c *config.Config) string { return c.WireFormat })))
	if err != nil {
		return nil, fmt.Errorf("invalid --wire-format: %w", err)
	}
	choice.wireFormat = format

	var sc config.SensorConfig
	if cfg != nil {
		sc = cfg.Sensor
	}
	choice.sensor = sensor.SyntheticConfig{
		Width:      resolveInt(c, "sensor-width", sc.Width),
		Height:     resolveInt(c, "sensor-height", sc.Height),
		FPS:        float64(resolveInt(c, "sensor-fps", sc.FPS)),
		DepthEvery: resolveInt(c, "depth-every", sc.DepthEvery),
		Depth:      true,
	}
	choice.noDepth = resolveNegated(c, "no-depth", sc.Depth)
	choice.noCamera = resolveNegated(c, "no-camera", sc.Camera)

	var arc config.ArchiveConfig
	if cfg != nil {
		arc = cfg.Archive
	}
	choice.archive = archiveChoice{
		dataset:       resolveString(c, "archive-dataset", arc.Dataset),
		backend:       resolveString(c, "archive-backend", arc.Backend),
		path:          resolveString(c, "archive-path", arc.Path),
		region:        resolveString(c, "archive-region", arc.Region),
		endpoint:      resolveString(c, "archive-endpoint", arc.Endpoint),
		pathStyle:     resolveBool(c, "archive-s3-path-style", arc.S3PathStyle),
		source:        resolveString(c, "archive-source", arc.Source),
		storePayloads: resolveBool(c, "archive-store-payloads", arc.StorePayloads),
		flushEvery:    resolveInt(c, "archive-flush-every", arc.FlushEvery),
		flushInterval: resolveDuration(c, "archive-flush-interval", arc.FlushInterval.Duration),
	}
	if err := validateArchiveChoice(choice.archive); err != nil {
		return nil, err
	}
	return choice, nil
}

// resolveNegated resolves a --no-X flag against a config capability that
// defaults to true when unset.
func resolveNegated(c *cli.Context, name string, capability *bool) bool {
	if c.IsSet(name) || capability == nil {
		return c.Bool(name)
	}
	return !*capability
}

func validateArchiveChoice(ac archiveChoice) error {
	switch ac.backend {
	case "":
		if ac.path != "" {
			return errors.New("--archive-backend is required when --archive-path is set (fs or s3)")
		}
		return nil
	case "fs", "s3":
		if ac.path == "" {
			return fmt.Errorf("--archive-path is required for the %s archive backend", ac.backend)
		}
		return nil
	default:
		return fmt.Errorf("invalid --archive-backend %q (must be fs or s3)", ac.backend)
	}
}

// buildRecorders opens the recording file and archive sink, if configured.
// The returned close func flushes and closes both.
func buildRecorders(ctx context.Context, choice *streamChoice, logger *log.Logger, collector *metrics.Collector) (session.Recorder, func(), *archive.Sink, error) {
	var (
		recorders session.MultiRecorder
		closers   []io.Closer
		sink      *archive.Sink
	)
	closeAll := func() {
		for _, cl := range closers {
			if err := cl.Close(); err != nil {
				logger.Warn("recorder close failed", map[string]any{"error": err.Error()})
			}
		}
		closers = nil
	}

	if choice.record != "" {
		fr, err := wire.NewFileRecorder(choice.record)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open recording: %w", err)
		}
		recorders = append(recorders, fr)
		closers = append(closers, fr)
	}

	if choice.archive.backend != "" {
		s, err := buildArchiveSink(ctx, choice.archive, logger, collector)
		if err != nil {
			closeAll()
			return nil, nil, nil, fmt.Errorf("failed to create archive sink: %w", err)
		}
		sink = s
		recorders = append(recorders, s)
		closers = append(closers, s)
	}

	if len(recorders) == 0 {
		return nil, closeAll, nil, nil
	}
	return recorders, closeAll, sink, nil
}

// buildArchiveSink creates a Lode-backed archive sink.
func buildArchiveSink(ctx context.Context, ac archiveChoice, logger *log.Logger, collector *metrics.Collector) (*archive.Sink, error) {
	var (
		client *archive.LodeClient
		err    error
	)
	switch ac.backend {
	case "fs":
		client, err = archive.NewLodeClient(ac.dataset, ac.path)
	case "s3":
		bucket, prefix := archive.ParseS3Path(ac.path)
		client, err = archive.NewLodeS3Client(ctx, ac.dataset, archive.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       ac.region,
			Endpoint:     ac.endpoint,
			UsePathStyle: ac.pathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown archive backend: %s", ac.backend)
	}
	if err != nil {
		return nil, err
	}

	return archive.NewSink(archive.Config{
		Dataset:       ac.dataset,
		Source:        ac.source,
		FlushEvery:    ac.flushEvery,
		FlushInterval: ac.flushInterval,
		StorePayloads: ac.storePayloads,
		Logger:        logger,
		Collector:     collector,
	}, client), nil
}

// buildStoragePath returns the partition path of an archived session.
func buildStoragePath(ac archiveChoice, dataset, source, day, jobID string) string {
	partition := fmt.Sprintf("datasets/%s/partitions/source=%s/day=%s/job_id=%s", dataset, source, day, jobID)
	switch ac.backend {
	case "fs":
		return "file://" + strings.TrimRight(ac.path, "/") + "/" + partition
	case "s3":
		bucket, prefix := archive.ParseS3Path(ac.path)
		if prefix != "" {
			return fmt.Sprintf("s3://%s/%s/%s", bucket, strings.Trim(prefix, "/"), partition)
		}
		return fmt.Sprintf("s3://%s/%s", bucket, partition)
	default:
		return ac.path
	}
}

// parseAdapterConfigWithPrecedence resolves adapter settings for
// adapterType from flags and config.
func parseAdapterConfigWithPrecedence(c *cli.Context, cfg *config.Config, adapterType string) (*adapterChoice, error) {
	var acfg config.AdapterConfig
	if cfg != nil {
		acfg = cfg.Adapter
	}

	ac := &adapterChoice{
		url:     resolveString(c, "adapter-url", acfg.URL),
		channel: resolveString(c, "adapter-channel", acfg.Channel),
		listKey: resolveString(c, "adapter-list-key", acfg.ListKey),
		secret:  resolveString(c, "adapter-secret", acfg.Secret),
		timeout: resolveDuration(c, "adapter-timeout", acfg.Timeout.Duration),
		retries: c.Int("adapter-retries"),
		headers: make(map[string]string),
	}
	if !c.IsSet("adapter-retries") && acfg.Retries != nil {
		ac.retries = *acfg.Retries
	}

	switch adapterType {
	case "webhook", "redis":
	default:
		return nil, fmt.Errorf("invalid --adapter %q (must be webhook or redis)", adapterType)
	}
	if ac.url == "" {
		return nil, fmt.Errorf("--adapter-url is required when --adapter is %s", adapterType)
	}

	for k, v := range acfg.Headers {
		ac.headers[k] = v
	}
	for _, h := range c.StringSlice("adapter-header") {
		k, v, ok := strings.Cut(h, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --adapter-header %q (expected key=value)", h)
		}
		ac.headers[k] = v
	}
	return ac, nil
}

// buildAdapter creates the adapter for adapterType.
func buildAdapter(adapterType string, ac *adapterChoice) (adapter.Adapter, error) {
	switch adapterType {
	case "webhook":
		return webhook.New(webhook.Config{
			URL:     ac.url,
			Headers: ac.headers,
			Timeout: ac.timeout,
			Retries: ac.retries,
			Secret:  ac.secret,
		})
	case "redis":
		return redis.New(redis.Config{
			URL:     ac.url,
			Channel: ac.channel,
			Timeout: ac.timeout,
			Retries: ac.retries,
			ListKey: ac.listKey,
		})
	default:
		return nil, fmt.Errorf("unknown adapter type: %s", adapterType)
	}
}

// publishEvent notifies the adapter. Failures are logged and never change
// the exit code.
func publishEvent(pub adapter.Adapter, event *adapter.SessionCompletedEvent, logger *log.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := pub.Publish(ctx, event); err != nil {
		logger.Warn("adapter publish failed", map[string]any{
			"job_id": event.JobID,
			"error":  err.Error(),
		})
	}
}

func outcomeToExitCode(outcome types.Outcome) int {
	switch outcome {
	case types.OutcomeCompleted:
		return exitCompleted
	case types.OutcomeFailed:
		return exitFailed
	default:
		return exitConnection
	}
}

func printStreamResult(w io.Writer, result *session.Result, snap metrics.Snapshot, storagePath string) {
	job := result.Job
	st := result.Stats
	fmt.Fprintf(w, "\njob_id=%s, mode=%s, outcome=%s, duration=%s\n",
		job.JobID, job.Mode, result.Outcome, result.Duration.Round(time.Millisecond))

	fmt.Fprintf(w, "\n=== Session Result ===\n")
	fmt.Fprintf(w, "Job ID:       %s\n", job.JobID)
	fmt.Fprintf(w, "Session ID:   %s\n", job.SessionID)
	fmt.Fprintf(w, "Channel:      %s\n", job.ChannelURL)
	fmt.Fprintf(w, "Mode:         %s\n", job.Mode)
	fmt.Fprintf(w, "Outcome:      %s\n", result.Outcome)
	if msg := result.ErrorMessage(); msg != "" {
		fmt.Fprintf(w, "Error:        %s\n", msg)
	}
	if storagePath != "" {
		fmt.Fprintf(w, "Archive:      %s\n", storagePath)
	}

	fmt.Fprintf(w, "\n=== Frame Stats ===\n")
	fmt.Fprintf(w, "Received:         %d\n", st.FramesReceived)
	fmt.Fprintf(w, "Sent:             %d\n", st.FramesSent)
	fmt.Fprintf(w, "Throttled:        %d\n", st.FramesThrottled)
	fmt.Fprintf(w, "Busy:             %d\n", st.FramesBusy)
	fmt.Fprintf(w, "Encode Failures:  %d\n", st.EncodeFailures)
	fmt.Fprintf(w, "Send Failures:    %d\n", st.SendFailures)
	fmt.Fprintf(w, "Bytes Sent:       %d\n", st.BytesSent)
	fmt.Fprintf(w, "Backend Ack:      %d\n", st.LastAckFrames)

	if snap.ArchiveWriteSuccess+snap.ArchiveWriteFailure > 0 {
		fmt.Fprintf(w, "\n=== Archive ===\n")
		fmt.Fprintf(w, "Writes:           %d\n", snap.ArchiveWriteSuccess)
		fmt.Fprintf(w, "Write Failures:   %d\n", snap.ArchiveWriteFailure)
	}
}
