package wire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/depthstream/iox"
	"github.com/pithecene-io/depthstream/policy"
	"github.com/pithecene-io/depthstream/types"
)

// RecordingHeader is the first record of a recording file.
type RecordingHeader struct {
	Type            string            `msgpack:"type"`
	ProtocolVersion string            `msgpack:"protocol_version"`
	JobID           string            `msgpack:"job_id"`
	SessionID       string            `msgpack:"session_id"`
	BackendURL      string            `msgpack:"backend_url"`
	Mode            types.CaptureMode `msgpack:"mode"`
	StartedAt       time.Time         `msgpack:"started_at"`
}

// RecordingEnd is the last record of a complete recording file.
type RecordingEnd struct {
	Type    string        `msgpack:"type"`
	Outcome types.Outcome `msgpack:"outcome"`
	Error   string        `msgpack:"error,omitempty"`
	EndedAt time.Time     `msgpack:"ended_at"`
	Stats   policy.Stats  `msgpack:"stats"`
}

// ErrRecorderClosed is returned when writing to a closed recorder.
var ErrRecorderClosed = errors.New("recorder closed")

// FileRecorder writes a session to a recording file.
// It observes every frame message the session sends.
//
// FileRecorder is safe for concurrent use.
type FileRecorder struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer
	buf    []byte
	frames int64
	closed bool
}

// NewFileRecorder creates (or truncates) path for recording.
func NewFileRecorder(path string) (*FileRecorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create recording: %w", err)
	}
	return NewRecorder(f), nil
}

// NewRecorder records to w. Close closes w.
func NewRecorder(w io.WriteCloser) *FileRecorder {
	return &FileRecorder{w: bufio.NewWriter(w), closer: w}
}

// Begin writes the header record.
func (r *FileRecorder) Begin(job *types.CaptureJob) error {
	return r.write(&RecordingHeader{
		Type:            HeaderRecordType,
		ProtocolVersion: types.ProtocolVersion,
		JobID:           job.JobID,
		SessionID:       job.SessionID,
		BackendURL:      job.BackendURL,
		Mode:            job.Mode,
		StartedAt:       job.StartedAt,
	})
}

// Record appends one frame message.
func (r *FileRecorder) Record(msg *types.WireMessage) error {
	if err := r.write(msg); err != nil {
		return err
	}
	r.mu.Lock()
	r.frames++
	r.mu.Unlock()
	return nil
}

// End writes the end record and flushes.
func (r *FileRecorder) End(outcome types.Outcome, sessionErr error, stats policy.Stats) error {
	rec := &RecordingEnd{
		Type:    EndRecordType,
		Outcome: outcome,
		EndedAt: time.Now().UTC(),
		Stats:   stats,
	}
	if sessionErr != nil {
		rec.Error = sessionErr.Error()
	}
	if err := r.write(rec); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.w.Flush()
}

// Frames returns the number of frame records written.
func (r *FileRecorder) Frames() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Close flushes and closes the underlying writer. Idempotent.
func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.w.Flush(); err != nil {
		iox.DiscardClose(r.closer)
		return fmt.Errorf("flush recording: %w", err)
	}
	return r.closer.Close()
}

func (r *FileRecorder) write(v any) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRecorderClosed
	}
	r.buf, err = AppendFrame(r.buf[:0], payload)
	if err != nil {
		return err
	}
	if _, err := r.w.Write(r.buf); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Recording is a decoded recording file.
type Recording struct {
	Header *RecordingHeader
	Frames []*types.WireMessage
	// End is nil when the recording was cut short.
	End *RecordingEnd
}

// Truncated reports whether the recording lacks its end record.
func (r *Recording) Truncated() bool {
	return r.End == nil
}

// ReadRecording decodes a complete recording from rd.
// A stream that ends on a partial frame yields the records read so far
// together with the fatal *FrameError.
func ReadRecording(rd io.Reader) (*Recording, error) {
	dec := NewFrameDecoder(bufio.NewReader(rd))
	rec := &Recording{}
	for {
		payload, err := dec.ReadFrame()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rec, err
		}
		v, err := DecodeRecord(payload)
		if err != nil {
			return rec, err
		}
		switch r := v.(type) {
		case *RecordingHeader:
			if rec.Header != nil {
				return rec, &FrameError{Kind: FrameErrorDecode, Msg: "duplicate header record"}
			}
			rec.Header = r
		case *types.WireMessage:
			rec.Frames = append(rec.Frames, r)
		case *RecordingEnd:
			rec.End = r
		}
	}
	if rec.Header == nil {
		return rec, &FrameError{Kind: FrameErrorDecode, Msg: "recording has no header record"}
	}
	return rec, nil
}

// ReadRecordingFile decodes the recording at path.
func ReadRecordingFile(path string) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	defer iox.DiscardClose(f)
	return ReadRecording(f)
}
