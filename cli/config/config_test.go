package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_FullConfig(t *testing.T) {
	yaml := `backend_url: wss://recon.example.com
job_id: job_42
target_hz: 15
jpeg_quality: 80
max_depth_m: 5
wire_format: msgpack
dial_timeout: 3s
failure_threshold: 8

sensor:
  width: 320
  height: 240
  fps: 60
  depth_every: 2
  depth: false

record: ./session.dsr

archive:
  dataset: scans
  backend: s3
  path: my-bucket/prefix
  region: us-east-1
  endpoint: https://minio.example.com
  s3_path_style: true
  source: ipad-7
  store_payloads: true
  flush_every: 10
  flush_interval: 500ms

adapter:
  type: webhook
  url: https://hooks.example.com/depthstream
  secret: s3cret
  headers:
    Authorization: Bearer token123
  timeout: 10s
  retries: 3
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	assertEqual(t, "backend_url", cfg.BackendURL, "wss://recon.example.com")
	assertEqual(t, "job_id", cfg.JobID, "job_42")
	if cfg.TargetHz == nil || *cfg.TargetHz != 15 {
		t.Errorf("expected target_hz=15, got %v", cfg.TargetHz)
	}
	if cfg.JPEGQuality != 80 || cfg.MaxDepthM != 5 || cfg.FailureThreshold != 8 {
		t.Errorf("encoder settings = %d / %v / %d", cfg.JPEGQuality, cfg.MaxDepthM, cfg.FailureThreshold)
	}
	assertEqual(t, "wire_format", cfg.WireFormat, "msgpack")
	if cfg.DialTimeout.Duration != 3*time.Second {
		t.Errorf("expected dial_timeout=3s, got %v", cfg.DialTimeout.Duration)
	}

	if cfg.Sensor.Width != 320 || cfg.Sensor.Height != 240 || cfg.Sensor.FPS != 60 || cfg.Sensor.DepthEvery != 2 {
		t.Errorf("sensor = %+v", cfg.Sensor)
	}
	if cfg.Sensor.Depth == nil || *cfg.Sensor.Depth {
		t.Error("expected sensor.depth=false")
	}
	if cfg.Sensor.Camera != nil {
		t.Error("expected sensor.camera unset")
	}
	assertEqual(t, "record", cfg.Record, "./session.dsr")

	assertEqual(t, "archive.dataset", cfg.Archive.Dataset, "scans")
	assertEqual(t, "archive.backend", cfg.Archive.Backend, "s3")
	assertEqual(t, "archive.path", cfg.Archive.Path, "my-bucket/prefix")
	assertEqual(t, "archive.region", cfg.Archive.Region, "us-east-1")
	assertEqual(t, "archive.endpoint", cfg.Archive.Endpoint, "https://minio.example.com")
	assertEqual(t, "archive.source", cfg.Archive.Source, "ipad-7")
	if !cfg.Archive.S3PathStyle || !cfg.Archive.StorePayloads || cfg.Archive.FlushEvery != 10 {
		t.Errorf("archive = %+v", cfg.Archive)
	}
	if cfg.Archive.FlushInterval.Duration != 500*time.Millisecond {
		t.Errorf("expected archive.flush_interval=500ms, got %v", cfg.Archive.FlushInterval.Duration)
	}

	assertEqual(t, "adapter.type", cfg.Adapter.Type, "webhook")
	assertEqual(t, "adapter.url", cfg.Adapter.URL, "https://hooks.example.com/depthstream")
	assertEqual(t, "adapter.secret", cfg.Adapter.Secret, "s3cret")
	if cfg.Adapter.Timeout.Duration != 10*time.Second {
		t.Errorf("expected adapter.timeout=10s, got %v", cfg.Adapter.Timeout.Duration)
	}
	if cfg.Adapter.Retries == nil || *cfg.Adapter.Retries != 3 {
		t.Errorf("expected adapter.retries=3")
	}
	if cfg.Adapter.Headers["Authorization"] != "Bearer token123" {
		t.Errorf("expected Authorization header")
	}
}

func TestLoad_EmptyConfig(t *testing.T) {
	for name, content := range map[string]string{
		"empty":      "",
		"whitespace": "   \n  \n  \n",
		"comments":   "# backend_url: ws://localhost:8080\n# another comment\n",
	} {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load(writeTemp(t, content))
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if cfg.BackendURL != "" || cfg.TargetHz != nil {
				t.Errorf("expected zero config, got %+v", cfg)
			}
		})
	}
}

func TestLoad_TargetHzZeroDistinctFromNil(t *testing.T) {
	cfg, err := Load(writeTemp(t, "target_hz: 0\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.TargetHz == nil {
		t.Fatal("expected target_hz to be non-nil (0), got nil")
	}
	if *cfg.TargetHz != 0 {
		t.Errorf("expected target_hz=0, got %v", *cfg.TargetHz)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/depthstream.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeTemp(t, "{{invalid yaml"))
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_BACKEND", "wss://expanded.example.com")

	yaml := `backend_url: ${TEST_BACKEND}
wire_format: ${TEST_WIRE_FORMAT:-msgpack}
`
	cfg, err := Load(writeTemp(t, yaml))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "backend_url", cfg.BackendURL, "wss://expanded.example.com")
	assertEqual(t, "wire_format", cfg.WireFormat, "msgpack")
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	tests := map[string]string{
		"top level": "backend_url: ws://host\nframe_rate: 30\n",
		"nested":    "archive:\n  backend: fs\n  path: ./data\n  unknown_field: bad\n",
	}
	for name, yaml := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeTemp(t, yaml))
			if err == nil {
				t.Fatal("expected error for unknown key, got nil")
			}
			if !strings.Contains(err.Error(), "not found in type") {
				t.Errorf("error should reject the unknown key, got: %v", err)
			}
		})
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name, yaml, want string
	}{
		{"negative rate", "target_hz: -1\n", "target_hz"},
		{"quality range", "jpeg_quality: 101\n", "jpeg_quality"},
		{"wire format", "wire_format: protobuf\n", "protobuf"},
		{"archive backend", "archive:\n  backend: gcs\n  path: x\n", "archive.backend"},
		{"archive path", "archive:\n  backend: fs\n", "archive.path"},
		{"adapter type", "adapter:\n  type: kafka\n  url: x\n", "adapter.type"},
		{"adapter url", "adapter:\n  type: redis\n", "adapter.url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTemp(t, tt.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error should mention %q, got: %v", tt.want, err)
			}
		})
	}
}

func TestLoad_RetriesZeroDistinctFromNil(t *testing.T) {
	yaml := `adapter:
  type: webhook
  url: https://example.com
  retries: 0
`
	cfg, err := Load(writeTemp(t, yaml))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Adapter.Retries == nil {
		t.Fatal("expected retries to be non-nil (*int(0)), got nil")
	}
	if *cfg.Adapter.Retries != 0 {
		t.Errorf("expected retries=0, got %d", *cfg.Adapter.Retries)
	}
}

func TestLoad_RedisAdapterConfig(t *testing.T) {
	yaml := `adapter:
  type: redis
  url: redis://localhost:6379/0
  channel: scans:session_completed
  list_key: scans:recent
  timeout: 5s
`
	cfg, err := Load(writeTemp(t, yaml))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "adapter.type", cfg.Adapter.Type, "redis")
	assertEqual(t, "adapter.channel", cfg.Adapter.Channel, "scans:session_completed")
	assertEqual(t, "adapter.list_key", cfg.Adapter.ListKey, "scans:recent")
	if cfg.Adapter.Retries != nil {
		t.Errorf("expected retries to be nil, got %d", *cfg.Adapter.Retries)
	}
}

func TestDuration_InvalidFormat(t *testing.T) {
	_, err := Load(writeTemp(t, "dial_timeout: not-a-duration\n"))
	if err == nil {
		t.Fatal("expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("error should mention invalid duration, got: %v", err)
	}
}

func TestDuration_EmptyIsZero(t *testing.T) {
	cfg, err := Load(writeTemp(t, "dial_timeout: \"\"\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DialTimeout.Duration != 0 {
		t.Errorf("expected zero duration, got %v", cfg.DialTimeout.Duration)
	}
}

// writeTemp writes content to a temp file and returns the path.
func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "depthstream.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func assertEqual(t *testing.T, field, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %q, want %q", field, got, want)
	}
}
