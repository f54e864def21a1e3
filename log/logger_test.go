package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/pithecene-io/depthstream/types"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestLogger_ForJobAddsContext(t *testing.T) {
	var buf bytes.Buffer
	job := &types.CaptureJob{JobID: "job_42", SessionID: "sess-1", Mode: types.ModeDepth}

	logger := newLoggerWithWriter(&buf).ForJob(job)
	logger.Info("session started", map[string]any{"channel_url": "ws://host/ws/scan/job_42"})

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	entry := lines[0]
	if entry["job_id"] != "job_42" {
		t.Errorf("job_id = %v, want job_42", entry["job_id"])
	}
	if entry["session_id"] != "sess-1" {
		t.Errorf("session_id = %v, want sess-1", entry["session_id"])
	}
	if entry["mode"] != "depth" {
		t.Errorf("mode = %v, want depth", entry["mode"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok {
		t.Fatalf("fields = %T, want object", entry["fields"])
	}
	if fields["channel_url"] != "ws://host/ws/scan/job_42" {
		t.Errorf("fields.channel_url = %v", fields["channel_url"])
	}
}

func TestLogger_WithOutputKeepsContext(t *testing.T) {
	var first, second bytes.Buffer
	job := &types.CaptureJob{JobID: "job_7", SessionID: "sess-7", Mode: types.ModeColorOnly}

	logger := newLoggerWithWriter(&first).ForJob(job).WithOutput(&second)
	logger.Warn("frame dropped", nil)

	if first.Len() != 0 {
		t.Errorf("original writer received output: %s", first.String())
	}
	lines := decodeLines(t, &second)
	if len(lines) != 1 || lines[0]["job_id"] != "job_7" {
		t.Errorf("redirected output = %v", lines)
	}
}

func TestLogger_ForJobNil(t *testing.T) {
	logger := Nop()
	if logger.ForJob(nil) != logger {
		t.Error("ForJob(nil) should return the receiver")
	}
}
