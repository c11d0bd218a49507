// SPDX-License-Identifier: MIT

// Package snapshot fetches still images from camera HTTP endpoints.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ersatzworld/smarthomebot/internal/camera"
)

// ErrFetchFailed classifies snapshot endpoint failures. For on-demand and
// scheduled fetches the failure text is echoed back to the requesting chat.
var ErrFetchFailed = errors.New("snapshot fetch failed")

// Client fetches snapshots over plain HTTP with optional basic auth.
type Client struct {
	http *http.Client
}

// New returns a client with a per-request timeout suitable for LAN cameras.
func New() *Client {
	return &Client{http: &http.Client{Timeout: 15 * time.Second}}
}

// NewWithHTTPClient is for tests that need to control transport behavior.
func NewWithHTTPClient(hc *http.Client) *Client {
	return &Client{http: hc}
}

// Fetch downloads one snapshot from the camera into a temp file and returns
// its path. The caller owns the file and must remove it after delivery.
func (c *Client) Fetch(ctx context.Context, cam camera.Camera) (string, error) {
	if cam.SnapshotURL == "" {
		return "", fmt.Errorf("%w: camera %s has no snapshot URL", ErrFetchFailed, cam.ID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cam.SnapshotURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: camera %s: %v", ErrFetchFailed, cam.ID, err)
	}
	if cam.Username != "" {
		req.SetBasicAuth(cam.Username, cam.Password)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: camera %s: %v", ErrFetchFailed, cam.ID, err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: camera %s: status %d", ErrFetchFailed, cam.ID, res.StatusCode)
	}

	out, err := os.CreateTemp("", "snapshot-*.jpg")
	if err != nil {
		return "", fmt.Errorf("%w: camera %s: %v", ErrFetchFailed, cam.ID, err)
	}
	if _, err := io.Copy(out, res.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(out.Name())
		return "", fmt.Errorf("%w: camera %s: %v", ErrFetchFailed, cam.ID, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(out.Name())
		return "", fmt.Errorf("%w: camera %s: %v", ErrFetchFailed, cam.ID, err)
	}
	return out.Name(), nil
}
