package camera

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultUserAgent = "shutter/0.1"
	requestTimeout   = 5 * time.Second
	maxSnapshotBytes = 32 << 20
)

// HTTPDriver fetches frames from a snapshot endpoint such as mjpg-streamer's
// ?action=snapshot or an IP camera still URL.
type HTTPDriver struct {
	url       *url.URL
	http      *http.Client
	userAgent string
}

// NewHTTPDriver builds a driver for the given snapshot URL. A bare host:port
// is treated as http.
func NewHTTPDriver(rawURL string) (*HTTPDriver, error) {
	u, err := parseSnapshotURL(rawURL)
	if err != nil {
		return nil, err
	}
	return &HTTPDriver{
		url: u,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

// Grab fetches and decodes one snapshot.
func (d *HTTPDriver) Grab(ctx context.Context) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png")
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("snapshot %s returned status %d: %w", d.url.Redacted(), resp.StatusCode, ErrPermissionDenied)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("snapshot %s returned status %d: %w", d.url.Redacted(), resp.StatusCode, ErrNoDevice)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("snapshot %s returned status %d", d.url.Redacted(), resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return decodeFrame(data)
}

// Close releases idle connections.
func (d *HTTPDriver) Close() error {
	d.http.CloseIdleConnections()
	return nil
}

func parseSnapshotURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("http driver: url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse snapshot url %q: missing host", raw)
	}
	u.Fragment = ""
	return u, nil
}
