// Package adapter defines the notification boundary for finished sessions.
//
// Adapters publish a SessionCompletedEvent to a downstream system once a
// capture session has ended, completed or failed. The CLI owns adapter
// lifecycle; users provide configuration only.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/depthstream/session"
	"github.com/pithecene-io/depthstream/types"
)

// EventTypeSessionCompleted is the event_type of every published event.
const EventTypeSessionCompleted = "session_completed"

// SessionCompletedEvent is the payload published when a session ends.
type SessionCompletedEvent struct {
	ProtocolVersion string `json:"protocol_version"`
	EventType       string `json:"event_type"` // always "session_completed"
	JobID           string `json:"job_id"`
	SessionID       string `json:"session_id"`
	Mode            string `json:"mode"`
	Outcome         string `json:"outcome"` // completed or failed
	Error           string `json:"error,omitempty"`
	ChannelURL      string `json:"channel_url"`
	Source          string `json:"source,omitempty"`
	Day             string `json:"day"`
	StoragePath     string `json:"storage_path,omitempty"`
	Timestamp       string `json:"timestamp"` // RFC 3339
	FramesReceived  int64  `json:"frames_received"`
	FramesSent      int64  `json:"frames_sent"`
	FramesDropped   int64  `json:"frames_dropped"`
	BytesSent       int64  `json:"bytes_sent"`
	DurationMs      int64  `json:"duration_ms"`
}

// NewSessionCompletedEvent builds the event for a session result.
// source and storagePath describe the archive, if any.
func NewSessionCompletedEvent(result *session.Result, source, storagePath string, now time.Time) *SessionCompletedEvent {
	job := result.Job
	return &SessionCompletedEvent{
		ProtocolVersion: types.ProtocolVersion,
		EventType:       EventTypeSessionCompleted,
		JobID:           job.JobID,
		SessionID:       job.SessionID,
		Mode:            string(job.Mode),
		Outcome:         string(result.Outcome),
		Error:           result.ErrorMessage(),
		ChannelURL:      job.ChannelURL,
		Source:          source,
		Day:             job.StartedAt.UTC().Format("2006-01-02"),
		StoragePath:     storagePath,
		Timestamp:       now.UTC().Format(time.RFC3339),
		FramesReceived:  result.Stats.FramesReceived,
		FramesSent:      result.Stats.FramesSent,
		FramesDropped:   result.Stats.Dropped(),
		BytesSent:       result.Stats.BytesSent,
		DurationMs:      result.Duration.Milliseconds(),
	}
}

// Adapter publishes session completion events to a downstream system.
type Adapter interface {
	// Publish sends one event. Must respect context cancellation and
	// deadlines.
	Publish(ctx context.Context, event *SessionCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// Backoff returns the wait before retry attempt i (i >= 1):
// 500ms, 1s, 2s, ...
func Backoff(i int) time.Duration {
	return time.Duration(1<<uint(i-1)) * 500 * time.Millisecond
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks an attempt error that Retry must not retry.
func Permanent(err error) error {
	return &permanentError{err: err}
}

// Retry runs attempt once plus up to retries more times, sleeping
// Backoff between tries. It stops on success, on a Permanent error (which
// it returns unwrapped) or when ctx ends. tries is the number of attempts
// made.
func Retry(ctx context.Context, retries int, attempt func(ctx context.Context) error) (tries int, err error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	for tries <= retries {
		if tries > 0 {
			wait := time.NewTimer(Backoff(tries))
			select {
			case <-ctx.Done():
				wait.Stop()
				return tries, fmt.Errorf("%w (last attempt: %w)", ctx.Err(), err)
			case <-wait.C:
			}
		}
		tries++
		if err = attempt(ctx); err == nil {
			return tries, nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return tries, perm.err
		}
	}
	return tries, err
}
