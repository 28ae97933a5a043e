package inbound

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hie/bridge/internal/domain/exchange"
	"github.com/hie/bridge/internal/platform/middleware"
	"github.com/hie/bridge/internal/platform/soap"
)

// maxRequestBytes bounds inbound SOAP payloads.
const maxRequestBytes = 64 << 20

// Handler exposes the inbound SOAP endpoints, each guarded by the per-channel
// throttle.
type Handler struct {
	svc      *Service
	throttle *middleware.Throttle
}

func NewHandler(svc *Service, throttle *middleware.Throttle) *Handler {
	return &Handler{svc: svc, throttle: throttle}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/iti55", h.patientDiscovery, h.throttle.Guard(string(exchange.TransactionPatientDiscovery)))
	g.POST("/iti38", h.documentQuery, h.throttle.Guard(string(exchange.TransactionDocumentQuery)))
	g.POST("/iti39", h.documentRetrieval, h.throttle.Guard(string(exchange.TransactionDocumentRetrieval)))
}

func (h *Handler) patientDiscovery(c echo.Context) error {
	return h.serve(c, h.svc.PatientDiscovery)
}

func (h *Handler) documentQuery(c echo.Context) error {
	return h.serve(c, h.svc.DocumentQuery)
}

func (h *Handler) documentRetrieval(c echo.Context) error {
	return h.serve(c, h.svc.DocumentRetrieval)
}

// serve decodes the envelope, runs the transaction, and writes the response
// envelope. Undecodable payloads get a sender fault; everything past that
// point answers 200 with a protocol-level response body.
func (h *Handler) serve(c echo.Context, respond func(context.Context, *soap.ReceivedEnvelope) *soap.Envelope) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxRequestBytes))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable request body")
	}
	parts, err := soap.ParseMessage(c.Request().Header.Get("Content-Type"), body)
	if err != nil {
		return h.fault(c, "", err.Error())
	}
	recv, err := soap.Decode(parts.Root)
	if err != nil {
		return h.fault(c, "", err.Error())
	}

	env := respond(c.Request().Context(), recv)
	out, err := env.Encode()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "encoding response failed")
	}
	return c.Blob(http.StatusOK, soap.ContentTypeSOAP, out)
}

func (h *Handler) fault(c echo.Context, relatesTo, reason string) error {
	env := soap.NewFaultEnvelope(h.svc.newID(), relatesTo, soap.FaultCodeSender, reason)
	out, err := env.Encode()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, reason)
	}
	return c.Blob(http.StatusBadRequest, soap.ContentTypeSOAP, out)
}
