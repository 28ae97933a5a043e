// Package resultpub delivers normalized gateway results to the rest of the
// platform: an HTTP poster for the per-transaction result endpoints and an
// optional Kafka mirror.
package resultpub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Publisher delivers one result message to a named channel. Each gateway
// call result is a discrete message, never a joined collection.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
}

// ErrNoEndpoint marks a channel with no configured destination.
var ErrNoEndpoint = errors.New("no endpoint configured for channel")

// HTTPPublisher posts results as JSON to per-channel endpoint URLs, with
// one retry pass on gateway-style upstream errors (502/504).
type HTTPPublisher struct {
	hc        *http.Client
	endpoints map[string]string
	log       zerolog.Logger
}

// NewHTTPPublisher builds a publisher over a channel-to-URL map.
func NewHTTPPublisher(endpoints map[string]string, timeout time.Duration, log zerolog.Logger) *HTTPPublisher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPPublisher{
		hc:        &http.Client{Timeout: timeout},
		endpoints: endpoints,
		log:       log,
	}
}

func (p *HTTPPublisher) Publish(ctx context.Context, channel string, payload any) error {
	url, ok := p.endpoints[channel]
	if !ok || url == "" {
		return fmt.Errorf("%w: %s", ErrNoEndpoint, channel)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(200 * time.Millisecond):
			}
		}
		status, err := p.post(ctx, url, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if status != http.StatusBadGateway && status != http.StatusGatewayTimeout {
			break
		}
		p.log.Warn().Str("channel", channel).Int("status", status).Msg("result delivery failed upstream, retrying")
	}
	return lastErr
}

func (p *HTTPPublisher) post(ctx context.Context, url string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("building result request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.hc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("posting result: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("result endpoint answered %s", resp.Status)
	}
	return resp.StatusCode, nil
}

// Nop discards results; used when no result endpoints are configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }

// Multi fans one result out to several publishers; the first failure wins
// but every publisher still runs.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, channel string, payload any) error {
	var firstErr error
	for _, p := range m {
		if err := p.Publish(ctx, channel, payload); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
