package middleware

import (
	"bytes"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hie/bridge/internal/platform/soap"
)

// Throttle bounds concurrent in-flight inbound work per channel. The
// ceiling applies per inbound channel (one per transaction endpoint), not
// to outbound fan-out width.
type Throttle struct {
	ceiling  int
	mu       sync.Mutex
	inflight map[string]int
	log      zerolog.Logger
}

// NewThrottle builds a throttle with the given per-channel ceiling. A
// ceiling of zero or less disables admission control.
func NewThrottle(ceiling int, log zerolog.Logger) *Throttle {
	return &Throttle{ceiling: ceiling, inflight: map[string]int{}, log: log}
}

// Admit reserves an in-flight slot on the channel. The caller must Release
// the slot when the request finishes.
func (t *Throttle) Admit(channel string) bool {
	if t.ceiling <= 0 {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inflight[channel] >= t.ceiling {
		return false
	}
	t.inflight[channel]++
	return true
}

// Release frees an in-flight slot on the channel.
func (t *Throttle) Release(channel string) {
	if t.ceiling <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inflight[channel] > 0 {
		t.inflight[channel]--
	}
}

// InFlight reports the current in-flight count for a channel.
func (t *Throttle) InFlight(channel string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inflight[channel]
}

// Guard is the admission middleware for one inbound SOAP channel. Rejection
// happens before any body decoding beyond the addressing header: the fault
// is addressed back using only the transport-level message id.
func (t *Throttle) Guard(channel string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if t.Admit(channel) {
				defer t.Release(channel)
				return next(c)
			}

			t.log.Warn().Str("channel", channel).Int("ceiling", t.ceiling).Msg("inbound request rejected, channel at capacity")

			// Peek the addressing header so the fault relates to the
			// rejected message; the body is restored untouched for
			// completeness even though no handler will run.
			body, _ := io.ReadAll(c.Request().Body)
			c.Request().Body = io.NopCloser(bytes.NewReader(body))

			relatesTo := ""
			if hdr, err := soap.PeekHeader(body); err == nil {
				relatesTo = hdr.MessageID
			}

			fault := soap.NewFaultEnvelope(uuid.NewString(), relatesTo, soap.FaultCodeReceiver, soap.ReasonTooMuchActivity)
			out, err := fault.Encode()
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, soap.ReasonTooMuchActivity)
			}
			return c.Blob(http.StatusServiceUnavailable, soap.ContentTypeSOAP, out)
		}
	}
}
