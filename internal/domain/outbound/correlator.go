// Package outbound drives the outbound side of the bridge: fanning a
// transaction request out to its target gateways, correlating responses
// back to their dispatch context, and exposing the JSON API that accepts
// requests.
package outbound

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hie/bridge/internal/domain/exchange"
)

// CallContext is the immutable dispatch-time context for one gateway call.
// It is created before the envelope goes on the wire and recovered by
// message id when the response arrives; nothing mutates it in between.
type CallContext struct {
	RequestID        string
	CxID             string
	PatientID        string
	GatewayID        string
	Transaction      exchange.TransactionType
	RequestTimestamp time.Time
}

// Correlator is the pending-call registry. Every tracked message id is
// resolved at most once; late or duplicate responses find nothing and are
// dropped by the caller.
type Correlator struct {
	mu      sync.Mutex
	pending map[string]CallContext
	log     zerolog.Logger
}

func NewCorrelator(log zerolog.Logger) *Correlator {
	return &Correlator{pending: map[string]CallContext{}, log: log}
}

// Track registers the dispatch context under the call's message id.
func (c *Correlator) Track(messageID string, cc CallContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[messageID] = cc
}

// Resolve pops the context for a message id. A second resolve for the same
// id, or an id that was never tracked, reports false; the caller must drop
// the message rather than attribute it to an arbitrary pending call.
func (c *Correlator) Resolve(messageID string) (CallContext, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cc, ok := c.pending[messageID]
	if !ok {
		c.log.Warn().Str("message_id", messageID).Msg("response for unknown or already resolved message id dropped")
		return CallContext{}, false
	}
	delete(c.pending, messageID)
	return cc, true
}

// Discard drops a tracked context without resolving it, for legs that fail
// before any response can arrive.
func (c *Correlator) Discard(messageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, messageID)
}

// Pending reports the number of unresolved calls.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
