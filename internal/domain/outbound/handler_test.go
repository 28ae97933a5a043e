package outbound

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hie/bridge/internal/domain/directory"
	"github.com/hie/bridge/internal/domain/exchange"
	"github.com/hie/bridge/internal/platform/blobstore"
)

// capturePublisher records published results per channel.
type capturePublisher struct {
	mu    sync.Mutex
	calls map[string][]exchange.GatewayCall
}

func newCapturePublisher() *capturePublisher {
	return &capturePublisher{calls: map[string][]exchange.GatewayCall{}}
}

func (p *capturePublisher) Publish(_ context.Context, channel string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[channel] = append(p.calls[channel], payload.(exchange.GatewayCall))
	return nil
}

func (p *capturePublisher) count(channel string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls[channel])
}

func newTestAPI(pub *capturePublisher, resolver GatewayResolver) *echo.Echo {
	d := newTestDispatcher(blobstore.NewMemoryStore())
	svc := NewService(d, pub, resolver, zerolog.Nop())
	e := echo.New()
	NewHandler(svc).RegisterRoutes(e.Group("/exchange"))
	return e
}

func postJSON(t *testing.T, e *echo.Echo, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPatientDiscoveryEndpoint(t *testing.T) {
	gw := pdGateway(t, true)
	defer gw.Close()

	pub := newCapturePublisher()
	e := newTestAPI(pub, nil)

	rec := postJSON(t, e, "/exchange/patient-discovery", &exchange.PatientDiscoveryRequest{
		ID:              "pd-req-1",
		CxID:            "cx-1",
		SamlAttributes:  testSamlAttrs(),
		PatientResource: &exchange.PatientResource{Gender: "male"},
		Gateways:        gateways(gw.URL),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp transactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.RequestID != "pd-req-1" || len(resp.Results) != 1 {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Results[0].PatientMatch == nil || !*resp.Results[0].PatientMatch {
		t.Error("result should report a patient match")
	}
	if pub.count(string(exchange.TransactionPatientDiscovery)) != 1 {
		t.Error("result was not published")
	}
}

func TestPatientDiscoveryEndpointResolvesDirectoryOIDs(t *testing.T) {
	gw := pdGateway(t, true)
	defer gw.Close()

	dir := directory.NewService(directory.NewRepoMem())
	err := dir.Create(context.Background(), &directory.Entry{
		OID:     "1.22.333",
		Name:    "Example HIE",
		XCPDURL: gw.URL,
		Active:  true,
	})
	if err != nil {
		t.Fatalf("create directory entry: %v", err)
	}

	e := newTestAPI(newCapturePublisher(), dir)
	rec := postJSON(t, e, "/exchange/patient-discovery", &exchange.PatientDiscoveryRequest{
		ID:              "pd-req-oid",
		CxID:            "cx-1",
		SamlAttributes:  testSamlAttrs(),
		PatientResource: &exchange.PatientResource{Gender: "male"},
		GatewayOIDs:     []string{"1.22.333"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp transactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Gateway.OID != "1.22.333" {
		t.Fatalf("response = %+v", resp)
	}

	// An OID the directory does not know rejects the request.
	rec = postJSON(t, e, "/exchange/patient-discovery", &exchange.PatientDiscoveryRequest{
		ID:              "pd-req-oid-2",
		CxID:            "cx-1",
		SamlAttributes:  testSamlAttrs(),
		PatientResource: &exchange.PatientResource{Gender: "male"},
		GatewayOIDs:     []string{"9.99"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for unknown gateway oid", rec.Code)
	}
}

func TestPatientDiscoveryEndpointRejectsDeferred(t *testing.T) {
	e := newTestAPI(newCapturePublisher(), nil)
	rec := postJSON(t, e, "/exchange/patient-discovery", &exchange.PatientDiscoveryRequest{
		ID:              "pd-req-2",
		ProcessingMode:  exchange.ModeDeferred,
		SamlAttributes:  testSamlAttrs(),
		PatientResource: &exchange.PatientResource{Gender: "female"},
		Gateways:        gateways("http://unused.example.com"),
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for deferred mode", rec.Code)
	}
}

func TestPatientDiscoveryEndpointRejectsInvalid(t *testing.T) {
	e := newTestAPI(newCapturePublisher(), nil)
	rec := postJSON(t, e, "/exchange/patient-discovery", &exchange.PatientDiscoveryRequest{
		ID:             "pd-req-3",
		SamlAttributes: testSamlAttrs(),
		// No patient resource and no gateways.
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for invalid request", rec.Code)
	}
}

func TestBulkDocumentQueryTriage(t *testing.T) {
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		soapReply(w, dqReply(relatesTo(t, r), "Success", "", oneExtrinsicObject))
	}))
	defer gw.Close()

	pub := newCapturePublisher()
	e := newTestAPI(pub, nil)

	valid := dqRequest(gw.URL)
	invalid := &exchange.DocumentQueryRequest{ID: "dq-bad"} // no patient, no gateways

	rec := postJSON(t, e, "/exchange/document-query/bulk", []*exchange.DocumentQueryRequest{valid, invalid})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var out BulkOutcome
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if out.Processed != 1 || out.Rejected != 1 {
		t.Errorf("outcome = %+v", out)
	}

	// Bulk results arrive asynchronously through the publisher.
	deadline := time.After(5 * time.Second)
	for pub.count(string(exchange.TransactionDocumentQuery)) < 1 {
		select {
		case <-deadline:
			t.Fatal("bulk result was never published")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
