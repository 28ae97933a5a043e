package outbound

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hie/bridge/internal/domain/exchange"
)

func TestCorrelatorResolveOnce(t *testing.T) {
	c := NewCorrelator(zerolog.Nop())
	cc := CallContext{
		RequestID:        "req-1",
		GatewayID:        "gw-1",
		Transaction:      exchange.TransactionPatientDiscovery,
		RequestTimestamp: time.Now().UTC(),
	}
	c.Track("msg-1", cc)
	if c.Pending() != 1 {
		t.Fatalf("pending = %d", c.Pending())
	}

	got, ok := c.Resolve("msg-1")
	if !ok || got.RequestID != "req-1" {
		t.Fatalf("resolve = %+v, %v", got, ok)
	}
	if c.Pending() != 0 {
		t.Errorf("pending after resolve = %d", c.Pending())
	}

	// A duplicate delivery must find nothing.
	if _, ok := c.Resolve("msg-1"); ok {
		t.Error("second resolve must report not found")
	}
	if _, ok := c.Resolve("never-sent"); ok {
		t.Error("unknown message id must report not found")
	}
}

func TestCorrelatorDiscard(t *testing.T) {
	c := NewCorrelator(zerolog.Nop())
	c.Track("msg-2", CallContext{RequestID: "req-2"})
	c.Discard("msg-2")
	if c.Pending() != 0 {
		t.Errorf("pending after discard = %d", c.Pending())
	}
}
