package directory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/hie/bridge/internal/domain/exchange"
)

func seedEntry(t *testing.T, svc *Service) *Entry {
	t.Helper()
	e := &Entry{
		OID:            "1.2.3.4",
		Name:           "Example Community",
		XCPDURL:        "https://gw.example.com/xcpd",
		XCAQueryURL:    "https://gw.example.com/xca/query",
		XCARetrieveURL: "https://gw.example.com/xca/retrieve",
		Active:         true,
	}
	if err := svc.Create(context.Background(), e); err != nil {
		t.Fatalf("create: %v", err)
	}
	return e
}

func TestServiceCRUD(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewRepoMem())
	e := seedEntry(t, svc)

	if e.HomeCommunityID != "1.2.3.4" {
		t.Errorf("home community should default to oid, got %q", e.HomeCommunityID)
	}

	got, err := svc.GetByOID(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("get by oid: %v", err)
	}
	if got.Name != "Example Community" {
		t.Errorf("name = %q", got.Name)
	}

	got.Name = "Renamed"
	if err := svc.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}

	entries, err := svc.List(ctx, true)
	if err != nil || len(entries) != 1 {
		t.Fatalf("list = %v, %v", entries, err)
	}
	if entries[0].Name != "Renamed" {
		t.Errorf("name after update = %q", entries[0].Name)
	}

	if err := svc.Delete(ctx, got.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, got.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete = %v", err)
	}
}

func TestServiceValidation(t *testing.T) {
	svc := NewService(NewRepoMem())
	if err := svc.Create(context.Background(), &Entry{Name: "No OID"}); err == nil {
		t.Error("entry without oid should be rejected")
	}
	if err := svc.Create(context.Background(), &Entry{OID: "1.2.3"}); err == nil {
		t.Error("entry without name should be rejected")
	}
}

func TestResolveGateways(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewRepoMem())
	seedEntry(t, svc)

	// Entry with no retrieve endpoint.
	if err := svc.Create(ctx, &Entry{OID: "5.6.7", Name: "Query Only", XCAQueryURL: "https://q.example.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	gws, err := svc.ResolveGateways(ctx, exchange.TransactionDocumentRetrieval, []string{"1.2.3.4", "5.6.7"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(gws) != 1 {
		t.Fatalf("got %d gateways, want 1 (entry without retrieve url skipped)", len(gws))
	}
	if gws[0].URL != "https://gw.example.com/xca/retrieve" {
		t.Errorf("url = %q", gws[0].URL)
	}

	if _, err := svc.ResolveGateways(ctx, exchange.TransactionPatientDiscovery, []string{"9.9.9"}); err == nil {
		t.Error("unknown oid should fail resolution")
	}
}

func TestHandlerCRUD(t *testing.T) {
	e := echo.New()
	h := NewHandler(NewService(NewRepoMem()))
	h.RegisterRoutes(e.Group("/directory"))

	body := `{"oid":"1.2.3.4","name":"Example","xcpdUrl":"https://gw.example.com/xcpd","active":true}`
	req := httptest.NewRequest(http.MethodPost, "/directory/gateways", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var created Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/directory/gateways/"+created.ID.String(), nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/directory/gateways/"+created.ID.String(), nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/directory/gateways/"+created.ID.String(), nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", rec.Code)
	}
}
