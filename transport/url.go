package transport

import (
	"fmt"
	"net/url"
	"strings"
)

// ScanPath is the per-job channel path prefix.
const ScanPath = "/ws/scan/"

// ChannelURL derives the per-job channel address from a backend base URL.
//
// A trailing slash is trimmed, http and https are rewritten to ws and wss,
// and /ws/scan/<jobID> is appended unless the URL already ends with it.
func ChannelURL(backendURL, jobID string) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(backendURL), "/")
	if base == "" {
		return "", fmt.Errorf("backend url is empty")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse backend url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("backend url %q: unsupported scheme %q", backendURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("backend url %q has no host", backendURL)
	}

	if suffix := ScanPath + jobID; !strings.HasSuffix(u.Path, suffix) {
		u.Path += suffix
		u.RawPath = ""
	}
	return u.String(), nil
}
