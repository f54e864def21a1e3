// Package webhook POSTs session events to an HTTP endpoint as JSON.
//
// Server errors and transport failures are retried; a 4xx answer is final.
// With a secret configured, every body is signed (see Sign).
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pithecene-io/depthstream/adapter"
	"github.com/pithecene-io/depthstream/iox"
	"github.com/pithecene-io/depthstream/types"
)

// Defaults applied by New.
const (
	DefaultTimeout = 10 * time.Second
	DefaultRetries = 3
)

// SignatureHeader carries "sha256=<hex digest>" of the request body.
const SignatureHeader = "X-Depthstream-Signature"

// Config configures the webhook adapter. Only URL is required.
type Config struct {
	URL     string
	Headers map[string]string
	// Timeout bounds one request, response body included.
	Timeout time.Duration
	// Retries is how many times a failed delivery is tried again.
	Retries int
	// Secret enables body signing.
	Secret string
}

// Sign returns the SignatureHeader value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// StatusError is a delivery answered with a non-2xx status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("endpoint answered %d %s", e.Code, http.StatusText(e.Code))
}

// Adapter delivers events to one endpoint.
type Adapter struct {
	config Config
	client *http.Client
}

var _ adapter.Adapter = (*Adapter)(nil)

// New validates cfg and applies defaults.
func New(cfg Config) (*Adapter, error) {
	switch {
	case cfg.URL == "":
		return nil, errors.New("webhook adapter requires a URL")
	case cfg.Retries < 0:
		return nil, fmt.Errorf("webhook retries must be >= 0, got %d", cfg.Retries)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Adapter{config: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

// Publish delivers event, retrying per Config.Retries.
func (a *Adapter) Publish(ctx context.Context, event *adapter.SessionCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: encode %s event: %w", event.JobID, err)
	}

	tries, err := adapter.Retry(ctx, a.config.Retries, func(ctx context.Context) error {
		err := a.deliver(ctx, body)
		var status *StatusError
		if errors.As(err, &status) && status.Code >= 400 && status.Code < 500 {
			return adapter.Permanent(err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("webhook: deliver %s (%d attempts): %w", event.JobID, tries, err)
	}
	return nil
}

func (a *Adapter) deliver(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "depthstream/"+types.Version)
	if a.config.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(a.config.Secret, body))
	}
	for name, value := range a.config.Headers {
		req.Header.Set(name, value)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer iox.DiscardClose(resp.Body)
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

// Close drops idle keep-alive connections.
func (a *Adapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}
