// Package session implements the capture session state machine.
//
// A Controller owns one session at a time:
//
//	Idle -> Starting -> Streaming -> Stopping -> Idle
//	any  -> Failed   -> (Start or Stop acknowledges) -> Idle
//
// Start opens the transport channel and the sensor session. Each sensor
// callback passes the rate governor, is encoded and is sent on the channel,
// with at most one frame between acceptance and send. Per-frame failures
// are counted and dropped; a run of them, a lost channel or a backend error
// fails the session.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pithecene-io/depthstream/encoder"
	"github.com/pithecene-io/depthstream/iox"
	"github.com/pithecene-io/depthstream/log"
	"github.com/pithecene-io/depthstream/metrics"
	"github.com/pithecene-io/depthstream/policy"
	"github.com/pithecene-io/depthstream/sensor"
	"github.com/pithecene-io/depthstream/transport"
	"github.com/pithecene-io/depthstream/types"
)

// DefaultDialTimeout bounds Start's channel open.
const DefaultDialTimeout = 5 * time.Second

// Config configures a Controller.
type Config struct {
	// Dialer opens the per-session channel. Required.
	Dialer transport.Dialer
	// Source is the sensor subsystem. Required.
	Source sensor.Source
	// Encoder configures frame encoding. ColorOnly is set per session
	// from the capture mode.
	Encoder encoder.Options
	// TargetHz is the maximum publish rate. Zero means
	// policy.DefaultTargetHz.
	TargetHz float64
	// Unthrottled disables the rate governor.
	Unthrottled bool
	// FailureThreshold is the consecutive per-frame failures that fail
	// the session. Zero means policy.DefaultFailureThreshold.
	FailureThreshold int
	// DialTimeout bounds the channel open. Zero means DefaultDialTimeout.
	DialTimeout time.Duration

	Logger    *log.Logger
	Collector *metrics.Collector
	Recorder  Recorder

	// OnFailure is called after a streaming session failed and its
	// resources were released.
	OnFailure func(job types.CaptureJob, err error)
	// OnControl observes backend control messages.
	OnControl func(job types.CaptureJob, msg *types.ControlMessage)

	// Clock returns the wall time. Nil means time.Now.
	Clock func() time.Time
	// NewSessionID generates session ids. Nil means uuid.NewString.
	NewSessionID func() string
}

// Controller is the single owner of the active capture session.
// Controller is safe for concurrent use.
type Controller struct {
	cfg      Config
	logger   *log.Logger
	targetHz float64

	mu         sync.Mutex
	state      types.CaptureState
	job        *types.CaptureJob
	logJob     *log.Logger
	channel    transport.Channel
	enc        *encoder.Encoder
	governor   *policy.Governor
	stats      *policy.StatsRecorder
	escalation policy.Escalation
	// busy is set while an accepted frame is between governor and send.
	busy bool
	// generation increments whenever the active session ends, so work
	// started under an older generation is abandoned.
	generation  uint64
	cancelStart context.CancelFunc
	startDone   chan struct{}
	result      *Result
	lastResult  *Result

	// teardown tracks failure teardown goroutines.
	teardown sync.WaitGroup

	encode func(enc *encoder.Encoder, jobID string, frame *types.SensorFrame) (*types.WireMessage, error)
}

// NewController creates an idle controller.
func NewController(cfg Config) *Controller {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.NewSessionID == nil {
		cfg.NewSessionID = uuid.NewString
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Nop()
	}

	targetHz := cfg.TargetHz
	switch {
	case cfg.Unthrottled:
		targetHz = 0
	case targetHz <= 0:
		targetHz = policy.DefaultTargetHz
	}

	return &Controller{
		cfg:      cfg,
		logger:   logger.Named("session"),
		targetHz: targetHz,
		state:    types.StateIdle,
		governor: policy.NewGovernor(targetHz),
		stats:    policy.NewStatsRecorder(),
		encode:   (*encoder.Encoder).Encode,
	}
}

// State returns the current state.
func (c *Controller) State() types.CaptureState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Job returns a copy of the current job, or nil when idle.
func (c *Controller) Job() *types.CaptureJob {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.job == nil {
		return nil
	}
	job := *c.job
	return &job
}

// Stats returns the frame counters of the current or most recent session.
func (c *Controller) Stats() policy.Stats {
	return c.stats.Snapshot()
}

// LastResult returns the result of the most recently ended session.
func (c *Controller) LastResult() *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastResult
}

// TargetHz returns the effective publish rate; zero means unthrottled.
func (c *Controller) TargetHz() float64 {
	return c.targetHz
}

// Start begins a session for jobID streaming to backendURL.
//
// It blocks until the channel is open and the sensor is delivering, the
// dial timeout expires, ctx is done, or Stop interrupts it. A Failed
// session left by a previous Start is acknowledged first.
//
// Errors wrap ErrSessionActive, ErrInvalidArgument, ErrConnection,
// ErrSensorUnavailable or ErrAborted. An active session is reported
// before any argument error.
func (c *Controller) Start(ctx context.Context, jobID, backendURL string, mode types.CaptureMode) error {
	if err := c.acknowledge(); err != nil {
		return err
	}

	// acknowledge returned with c.mu held and the controller idle.
	if err := types.ValidateJobID(jobID); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	channelURL, err := transport.ChannelURL(backendURL, jobID)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if mode == "" {
		mode = types.ModeDepth
	}

	job := &types.CaptureJob{
		JobID:      jobID,
		SessionID:  c.cfg.NewSessionID(),
		BackendURL: backendURL,
		ChannelURL: channelURL,
		Mode:       mode,
		StartedAt:  c.cfg.Clock(),
	}
	if err := job.Validate(); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	encOpts := c.cfg.Encoder
	encOpts.ColorOnly = encOpts.ColorOnly || mode == types.ModeColorOnly

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	startDone := make(chan struct{})
	c.state = types.StateStarting
	c.job = job
	c.logJob = c.logger.ForJob(job)
	c.enc = encoder.New(encOpts)
	c.governor.Reset()
	c.stats.Reset()
	c.escalation = policy.Escalation{Threshold: c.cfg.FailureThreshold}
	c.busy = false
	c.generation++
	gen := c.generation
	c.cancelStart = cancel
	c.startDone = startDone
	c.result = nil
	logger := c.logJob
	c.mu.Unlock()

	defer close(startDone)
	defer cancel()

	logger.Info("session starting", map[string]any{
		"channel_url": channelURL,
		"target_hz":   c.targetHz,
	})

	channel, err := c.cfg.Dialer.Open(dialCtx, channelURL, c.controlHandler(gen, *job))
	if err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.state != types.StateStarting {
			c.resetLocked()
			return ErrAborted
		}
		c.cfg.Collector.IncConnectFailure()
		cause := fmt.Errorf("%w: %w", ErrConnection, err)
		c.failStartLocked(cause)
		logger.Error("channel open failed", map[string]any{"error": err.Error()})
		return cause
	}

	if err := c.cfg.Source.Start(ctx, c.OnFrame); err != nil {
		iox.DiscardClose(channel)
		c.cfg.Collector.IncSessionUnsupported()
		logger.Warn("sensor start failed", map[string]any{"error": err.Error()})
		c.mu.Lock()
		defer c.mu.Unlock()
		c.resetLocked()
		return fmt.Errorf("%w: %w", ErrSensorUnavailable, err)
	}

	if c.cfg.Recorder != nil {
		if err := c.cfg.Recorder.Begin(job); err != nil {
			c.stats.Lock()
			c.stats.IncRecordFailureLocked()
			c.stats.Unlock()
			logger.Warn("recorder begin failed", map[string]any{"error": err.Error()})
		}
	}

	c.mu.Lock()
	if c.state != types.StateStarting {
		// Stop arrived while the sensor was starting.
		c.mu.Unlock()
		iox.DiscardErr(c.cfg.Source.Stop)
		iox.DiscardClose(channel)
		c.endRecorder(types.OutcomeCompleted, ErrAborted, c.stats.Snapshot())
		c.mu.Lock()
		c.resetLocked()
		c.mu.Unlock()
		return ErrAborted
	}
	c.state = types.StateStreaming
	c.channel = channel
	c.mu.Unlock()

	go c.watch(gen, channel)

	c.cfg.Collector.IncSessionStarted()
	logger.Info("session streaming", nil)
	return nil
}

// acknowledge waits out a Failed session and returns with c.mu held and
// the controller Idle, or with c.mu released and ErrSessionActive.
func (c *Controller) acknowledge() error {
	c.mu.Lock()
	for {
		switch {
		case c.state == types.StateIdle:
			return nil
		case c.state == types.StateFailed:
			c.mu.Unlock()
			c.teardown.Wait()
			c.mu.Lock()
			if c.state == types.StateFailed {
				c.logger.ForJob(c.job).Info("failed session acknowledged", nil)
				c.resetLocked()
			}
		default:
			c.mu.Unlock()
			c.cfg.Collector.IncSessionRejected()
			return ErrSessionActive
		}
	}
}

// Stop ends the current session and returns its result.
//
// Stop is idempotent: on an idle controller it returns nil. On a Failed
// controller it waits for teardown, acknowledges the failure and returns
// the failed result. During Starting it aborts the start and returns nil.
// Stop does not wait for queued messages to reach the network.
func (c *Controller) Stop(ctx context.Context) *Result {
	c.mu.Lock()
	switch c.state {
	case types.StateIdle, types.StateStopping:
		c.mu.Unlock()
		return nil

	case types.StateFailed:
		c.mu.Unlock()
		c.teardown.Wait()
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.state != types.StateFailed {
			return nil
		}
		result := c.result
		c.logger.ForJob(c.job).Info("failed session acknowledged", nil)
		c.resetLocked()
		return result

	case types.StateStarting:
		c.state = types.StateStopping
		cancel, done := c.cancelStart, c.startDone
		c.mu.Unlock()
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
		}
		return nil
	}

	// Streaming. An encode still in flight is abandoned and counted here,
	// so the result below includes it.
	c.state = types.StateStopping
	c.generation++
	c.abandonInFlightLocked()
	channel, job, logger := c.channel, *c.job, c.logJob
	c.mu.Unlock()

	logger.Info("session stopping", nil)
	if err := c.cfg.Source.Stop(); err != nil {
		logger.Warn("sensor stop failed", map[string]any{"error": err.Error()})
	}
	if err := channel.Close(); err != nil {
		logger.Debug("channel close", map[string]any{"error": err.Error()})
	}

	stats := c.stats.Snapshot()
	c.endRecorder(types.OutcomeCompleted, nil, stats)
	c.absorb(stats)
	c.cfg.Collector.IncSessionCompleted()

	result := &Result{
		Job:      job,
		Outcome:  types.OutcomeCompleted,
		Stats:    stats,
		Duration: c.cfg.Clock().Sub(job.StartedAt),
	}

	c.mu.Lock()
	c.lastResult = result
	c.resetLocked()
	c.mu.Unlock()

	logger.Info("session stopped", map[string]any{
		"frames_sent":     stats.FramesSent,
		"frames_received": stats.FramesReceived,
		"frames_dropped":  stats.Dropped(),
	})
	return result
}

// OnFrame is the sensor callback. Frames are dropped unless the session
// is streaming, no other frame is in flight, and the governor accepts.
func (c *Controller) OnFrame(frame *types.SensorFrame) {
	if frame == nil {
		return
	}

	c.mu.Lock()
	if c.state != types.StateStreaming {
		c.mu.Unlock()
		return
	}
	if c.busy {
		c.stats.IncBusy()
		c.mu.Unlock()
		return
	}
	accepted := c.governor.Admit(frame.TimestampMs)
	c.stats.IncReceived(accepted)
	if !accepted {
		c.mu.Unlock()
		return
	}
	c.busy = true
	gen := c.generation
	enc, jobID := c.enc, c.job.JobID
	c.mu.Unlock()

	msg, encErr := c.encode(enc, jobID, frame)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation || c.state != types.StateStreaming {
		// Counted by whoever ended the session.
		return
	}
	c.busy = false

	if encErr != nil {
		c.stats.IncEncodeFailure()
		c.frameFailedLocked("encode", frame.TimestampMs, encErr)
		return
	}

	if err := c.channel.Send(msg); err != nil {
		c.stats.IncSendFailure()
		c.frameFailedLocked("send", frame.TimestampMs, err)
		return
	}
	c.stats.IncSent(msg.PayloadBytes())
	c.escalation.RecordSuccess()

	if c.cfg.Recorder != nil {
		if err := c.cfg.Recorder.Record(msg); err != nil {
			c.stats.Lock()
			c.stats.IncRecordFailureLocked()
			c.stats.Unlock()
			c.logJob.Warn("recorder failed", map[string]any{"ts": frame.TimestampMs, "error": err.Error()})
		}
	}
}

// frameFailedLocked logs a per-frame failure and escalates a run of them.
// Caller must hold c.mu.
func (c *Controller) frameFailedLocked(stage string, ts int64, err error) {
	c.logJob.Warn("frame dropped", map[string]any{
		"stage":       stage,
		"ts":          ts,
		"error":       err.Error(),
		"consecutive": c.escalation.Consecutive() + 1,
	})
	if c.escalation.RecordFailure() {
		c.failLocked(fmt.Errorf("%w: %d consecutive frame failures: %w",
			ErrConnection, c.escalation.Consecutive(), err))
	}
}

// controlHandler returns the channel's control callback for one session.
func (c *Controller) controlHandler(gen uint64, job types.CaptureJob) transport.ControlHandler {
	return func(msg *types.ControlMessage) {
		frames := int64(-1)
		if msg.Frames != nil {
			frames = *msg.Frames
		}

		c.mu.Lock()
		current := gen == c.generation
		if current {
			c.stats.IncAck(frames)
		}
		if current && msg.Type == types.ControlError && c.state == types.StateStreaming {
			c.failLocked(fmt.Errorf("%w: backend error: %s", ErrConnection, msg.Message))
		}
		logger := c.logJob
		c.mu.Unlock()

		if !current {
			return
		}
		c.cfg.Collector.IncControlMessage()
		if msg.Type == types.ControlDone {
			logger.Info("backend reported done", map[string]any{"frames": frames, "status": msg.Status})
		}
		if c.cfg.OnControl != nil {
			c.cfg.OnControl(job, msg)
		}
	}
}

// watch fails the session if its channel terminates on its own.
func (c *Controller) watch(gen uint64, channel transport.Channel) {
	<-channel.Done()

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation || c.state != types.StateStreaming {
		return
	}
	cause := channel.Err()
	if cause == nil {
		cause = transport.ErrConnectionLost
	}
	c.cfg.Collector.IncConnectionLost()
	c.failLocked(fmt.Errorf("%w: %w", ErrConnection, cause))
}

// failLocked moves a streaming session to Failed and releases its
// resources off the caller's goroutine. Caller must hold c.mu.
func (c *Controller) failLocked(cause error) {
	if c.state != types.StateStreaming {
		return
	}
	c.state = types.StateFailed
	c.generation++
	c.abandonInFlightLocked()

	job, channel, logger := *c.job, c.channel, c.logJob
	result := &Result{
		Job:     job,
		Outcome: types.OutcomeFailed,
		Err:     cause,
	}
	c.result = result
	c.lastResult = result

	logger.Error("session failed", map[string]any{"error": cause.Error()})

	c.teardown.Add(1)
	go func() {
		defer c.teardown.Done()
		if err := c.cfg.Source.Stop(); err != nil {
			logger.Warn("sensor stop failed", map[string]any{"error": err.Error()})
		}
		iox.DiscardClose(channel)

		stats := c.stats.Snapshot()
		c.mu.Lock()
		result.Stats = stats
		result.Duration = c.cfg.Clock().Sub(job.StartedAt)
		c.mu.Unlock()

		c.endRecorder(types.OutcomeFailed, cause, stats)
		c.absorb(stats)
		c.cfg.Collector.IncSessionFailed()
		if c.cfg.OnFailure != nil {
			c.cfg.OnFailure(job, cause)
		}
	}()
}

// abandonInFlightLocked counts the frame between governor and send, if
// any, as abandoned. The generation must already have moved on.
// Caller must hold c.mu.
func (c *Controller) abandonInFlightLocked() {
	if c.busy {
		c.stats.IncAbandoned()
		c.busy = false
	}
}

// failStartLocked records a start that could not open its channel.
// Caller must hold c.mu.
func (c *Controller) failStartLocked(cause error) {
	c.state = types.StateFailed
	result := &Result{
		Job:      *c.job,
		Outcome:  types.OutcomeFailed,
		Err:      cause,
		Duration: c.cfg.Clock().Sub(c.job.StartedAt),
	}
	c.result = result
	c.lastResult = result
}

// resetLocked returns the controller to Idle. Caller must hold c.mu.
func (c *Controller) resetLocked() {
	c.state = types.StateIdle
	c.job = nil
	c.channel = nil
	c.cancelStart = nil
	c.startDone = nil
	c.result = nil
	c.busy = false
}

func (c *Controller) endRecorder(outcome types.Outcome, sessionErr error, stats policy.Stats) {
	if c.cfg.Recorder == nil {
		return
	}
	if err := c.cfg.Recorder.End(outcome, sessionErr, stats); err != nil {
		c.logger.Warn("recorder end failed", map[string]any{"error": err.Error()})
	}
}

func (c *Controller) absorb(stats policy.Stats) {
	c.cfg.Collector.AbsorbFrameStats(
		stats.FramesReceived,
		stats.FramesSent,
		stats.Dropped(),
		stats.EncodeFailures,
		stats.SendFailures,
		stats.BytesSent,
	)
}

// IsConnectionError reports whether err is a connection-category failure.
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnection)
}
