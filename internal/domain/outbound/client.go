package outbound

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hie/bridge/internal/platform/soap"
)

// ErrGatewayHTTP marks a gateway answer with a non-SOAP error status.
var ErrGatewayHTTP = errors.New("gateway returned http error")

// maxResponseBytes bounds how much of a gateway response is read. Retrieval
// responses carry document content, so the ceiling is generous.
const maxResponseBytes = 256 << 20

// Client posts SOAP envelopes to remote gateways and splits the answers
// into their XML root and MTOM attachments.
type Client struct {
	hc *http.Client
}

// NewClient builds a gateway client. The timeout is the transport ceiling;
// per-leg deadlines are applied by the dispatcher through the context.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{hc: &http.Client{Timeout: timeout}}
}

// Call posts the envelope to url and returns the decoded response envelope
// together with any attachments. Fault envelopes are returned to the caller
// for classification, whatever the HTTP status; only responses that cannot
// be parsed as SOAP at all surface as errors.
func (c *Client) Call(ctx context.Context, url, action string, env *soap.Envelope) (*soap.ReceivedEnvelope, *soap.MessageParts, error) {
	payload, err := env.Encode()
	if err != nil {
		return nil, nil, fmt.Errorf("encoding envelope: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("building gateway request: %w", err)
	}
	httpReq.Header.Set("Content-Type", fmt.Sprintf("%s; action=%q", soap.ContentTypeSOAP, action))

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, nil, fmt.Errorf("calling gateway: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("reading gateway response: %w", err)
	}

	parts, err := soap.ParseMessage(resp.Header.Get("Content-Type"), body)
	if err != nil {
		if resp.StatusCode/100 != 2 {
			return nil, nil, fmt.Errorf("%w: status %d", ErrGatewayHTTP, resp.StatusCode)
		}
		return nil, nil, err
	}
	recv, err := soap.Decode(parts.Root)
	if err != nil {
		if resp.StatusCode/100 != 2 {
			return nil, nil, fmt.Errorf("%w: status %d", ErrGatewayHTTP, resp.StatusCode)
		}
		return nil, nil, err
	}
	return recv, parts, nil
}
