package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/depthstream/wire"
)

// Config represents a depthstream.yaml configuration file.
// All values are optional and act as defaults for depthstream stream flags.
// CLI flags always override config values.
type Config struct {
	BackendURL string `yaml:"backend_url"`
	JobID      string `yaml:"job_id"`
	// TargetHz is nil when unset; an explicit 0 disables throttling.
	TargetHz         *float64      `yaml:"target_hz"`
	JPEGQuality      int           `yaml:"jpeg_quality"`
	MaxDepthM        float64       `yaml:"max_depth_m"`
	WireFormat       string        `yaml:"wire_format"`
	DialTimeout      Duration      `yaml:"dial_timeout"`
	FailureThreshold int           `yaml:"failure_threshold"`
	Sensor           SensorConfig  `yaml:"sensor"`
	Record           string        `yaml:"record"`
	Archive          ArchiveConfig `yaml:"archive"`
	Adapter          AdapterConfig `yaml:"adapter"`
}

// SensorConfig holds synthetic sensor defaults.
type SensorConfig struct {
	Width      int `yaml:"width"`
	Height     int `yaml:"height"`
	FPS        int `yaml:"fps"`
	DepthEvery int `yaml:"depth_every"`
	// Depth and Camera simulate platform capabilities; nil means true.
	Depth  *bool `yaml:"depth,omitempty"`
	Camera *bool `yaml:"camera,omitempty"`
}

// ArchiveConfig holds session archive defaults.
type ArchiveConfig struct {
	Dataset       string   `yaml:"dataset"`
	Backend       string   `yaml:"backend"`
	Path          string   `yaml:"path"`
	Region        string   `yaml:"region"`
	Endpoint      string   `yaml:"endpoint"`
	S3PathStyle   bool     `yaml:"s3_path_style"`
	Source        string   `yaml:"source"`
	StorePayloads bool     `yaml:"store_payloads"`
	FlushEvery    int      `yaml:"flush_every"`
	FlushInterval Duration `yaml:"flush_interval"`
}

// AdapterConfig holds notification adapter defaults.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	ListKey string            `yaml:"list_key,omitempty"`
	Secret  string            `yaml:"secret,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if c.TargetHz != nil && *c.TargetHz < 0 {
		errs = append(errs, fmt.Errorf("target_hz must be >= 0, got %v", *c.TargetHz))
	}
	if c.JPEGQuality < 0 || c.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("jpeg_quality must be in [0, 100], got %d", c.JPEGQuality))
	}
	if c.MaxDepthM < 0 {
		errs = append(errs, fmt.Errorf("max_depth_m must be >= 0, got %v", c.MaxDepthM))
	}
	if _, err := wire.ParseFormat(c.WireFormat); err != nil {
		errs = append(errs, err)
	}
	if c.FailureThreshold < 0 {
		errs = append(errs, fmt.Errorf("failure_threshold must be >= 0, got %d", c.FailureThreshold))
	}
	switch c.Archive.Backend {
	case "", "fs", "s3":
	default:
		errs = append(errs, fmt.Errorf("archive.backend must be fs or s3, got %q", c.Archive.Backend))
	}
	if c.Archive.Backend != "" && c.Archive.Path == "" {
		errs = append(errs, errors.New("archive.path is required when archive.backend is set"))
	}
	switch c.Adapter.Type {
	case "", "webhook", "redis":
	default:
		errs = append(errs, fmt.Errorf("adapter.type must be webhook or redis, got %q", c.Adapter.Type))
	}
	if c.Adapter.Type != "" && c.Adapter.URL == "" {
		errs = append(errs, errors.New("adapter.url is required when adapter.type is set"))
	}
	return errors.Join(errs...)
}
