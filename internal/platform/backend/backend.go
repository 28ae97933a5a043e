// Package backend invokes the externally deployed processing functions the
// bridge delegates business logic to. The bridge's responsibility ends at
// encoding the call and classifying the result.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrBackend marks a processing call that failed or answered non-2xx. The
// caller translates it into a fatal outcome rather than propagating it.
var ErrBackend = errors.New("backend invocation failed")

// Client posts JSON to named processing endpoints.
type Client struct {
	hc *http.Client
}

// NewClient builds a client with the given per-call timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{hc: &http.Client{Timeout: timeout}}
}

// Invoke posts in as JSON to url and decodes the JSON reply into out. A nil
// out discards the reply body.
func (c *Client) Invoke(ctx context.Context, url string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding backend request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building backend request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: reading reply: %v", ErrBackend, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s: %s", ErrBackend, resp.Status, truncate(body, 256))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding reply: %v", ErrBackend, err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
