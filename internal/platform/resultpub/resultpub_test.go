package resultpub

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestHTTPPublisherDelivers(t *testing.T) {
	var got atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewHTTPPublisher(map[string]string{"patient-discovery": srv.URL}, time.Second, zerolog.Nop())
	err := p.Publish(context.Background(), "patient-discovery", map[string]string{"id": "r1"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got.Load() != 1 {
		t.Errorf("deliveries = %d", got.Load())
	}
}

func TestHTTPPublisherRetriesOn502(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewHTTPPublisher(map[string]string{"ch": srv.URL}, time.Second, zerolog.Nop())
	if err := p.Publish(context.Background(), "ch", "x"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestHTTPPublisherNoRetryOn400(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	p := NewHTTPPublisher(map[string]string{"ch": srv.URL}, time.Second, zerolog.Nop())
	if err := p.Publish(context.Background(), "ch", "x"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestHTTPPublisherUnknownChannel(t *testing.T) {
	p := NewHTTPPublisher(map[string]string{}, time.Second, zerolog.Nop())
	if err := p.Publish(context.Background(), "missing", "x"); !errors.Is(err, ErrNoEndpoint) {
		t.Errorf("err = %v, want ErrNoEndpoint", err)
	}
}

func TestMulti(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ok := NewHTTPPublisher(map[string]string{"ch": srv.URL}, time.Second, zerolog.Nop())
	bad := NewHTTPPublisher(map[string]string{}, time.Second, zerolog.Nop())

	m := Multi{Nop{}, ok, bad}
	err := m.Publish(context.Background(), "ch", "x")
	if !errors.Is(err, ErrNoEndpoint) {
		t.Errorf("err = %v, want first failure surfaced", err)
	}
}
