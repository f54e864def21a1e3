package wire

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/pithecene-io/depthstream/policy"
	"github.com/pithecene-io/depthstream/types"
)

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func testJob() *types.CaptureJob {
	return &types.CaptureJob{
		JobID:      "job_42",
		SessionID:  "sess-1",
		BackendURL: "wss://host",
		ChannelURL: "wss://host/ws/scan/job_42",
		Mode:       types.ModeDepth,
		StartedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestFileRecorder_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.dsr")
	rec, err := NewFileRecorder(path)
	if err != nil {
		t.Fatalf("NewFileRecorder failed: %v", err)
	}

	if err := rec.Begin(testJob()); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	for _, ts := range []int64{0, 150} {
		if err := rec.Record(sampleMessage(ts)); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	stats := policy.Stats{FramesReceived: 3, FramesAccepted: 2, FramesThrottled: 1, FramesSent: 2}
	if err := rec.End(types.OutcomeCompleted, nil, stats); err != nil {
		t.Fatalf("End failed: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if rec.Frames() != 2 {
		t.Errorf("Frames = %d, want 2", rec.Frames())
	}

	got, err := ReadRecordingFile(path)
	if err != nil {
		t.Fatalf("ReadRecordingFile failed: %v", err)
	}
	if got.Header.JobID != "job_42" || got.Header.ProtocolVersion != types.ProtocolVersion {
		t.Errorf("header = %+v", got.Header)
	}
	if !got.Header.StartedAt.Equal(testJob().StartedAt) {
		t.Errorf("StartedAt = %v", got.Header.StartedAt)
	}
	if len(got.Frames) != 2 || got.Frames[0].TimestampMs != 0 || got.Frames[1].TimestampMs != 150 {
		t.Fatalf("frames = %d", len(got.Frames))
	}
	if got.Truncated() {
		t.Fatal("recording reported truncated")
	}
	if got.End.Outcome != types.OutcomeCompleted || got.End.Stats != stats {
		t.Errorf("end = %+v", got.End)
	}
}

func TestFileRecorder_FailedSessionRecordsError(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(nopWriteCloser{&buf})
	_ = rec.Begin(testJob())
	_ = rec.End(types.OutcomeFailed, errors.New("connection lost"), policy.Stats{})
	_ = rec.Close()

	got, err := ReadRecording(&buf)
	if err != nil {
		t.Fatalf("ReadRecording failed: %v", err)
	}
	if got.End.Outcome != types.OutcomeFailed || got.End.Error != "connection lost" {
		t.Errorf("end = %+v", got.End)
	}
}

func TestFileRecorder_WriteAfterClose(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(nopWriteCloser{&buf})
	_ = rec.Close()
	if err := rec.Record(sampleMessage(0)); !errors.Is(err, ErrRecorderClosed) {
		t.Errorf("err = %v, want ErrRecorderClosed", err)
	}
	if err := rec.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
}

func TestReadRecording_Truncated(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(nopWriteCloser{&buf})
	_ = rec.Begin(testJob())
	_ = rec.Record(sampleMessage(0))
	_ = rec.Record(sampleMessage(100))
	_ = rec.Close()

	data := buf.Bytes()
	got, err := ReadRecording(bytes.NewReader(data[:len(data)-3]))
	if !IsFatalFrameError(err) {
		t.Fatalf("err = %v, want fatal frame error", err)
	}
	if got.Header == nil || len(got.Frames) != 1 {
		t.Errorf("partial recording = header %v, %d frames; want header and 1 frame", got.Header != nil, len(got.Frames))
	}
	if !got.Truncated() {
		t.Error("Truncated = false without end record")
	}
}

func TestReadRecording_NoHeader(t *testing.T) {
	if _, err := ReadRecording(bytes.NewReader(nil)); err == nil {
		t.Error("expected error for empty recording")
	}
}
