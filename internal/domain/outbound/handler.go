package outbound

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hie/bridge/internal/domain/exchange"
)

// Handler exposes the outbound JSON API: one synchronous endpoint per
// transaction plus a bulk variant that validates entries and returns
// immediately.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/patient-discovery", h.patientDiscovery)
	g.POST("/patient-discovery/bulk", h.patientDiscoveryBulk)
	g.POST("/document-query", h.documentQuery)
	g.POST("/document-query/bulk", h.documentQueryBulk)
	g.POST("/document-retrieval", h.documentRetrieval)
	g.POST("/document-retrieval/bulk", h.documentRetrievalBulk)
}

// transactionResponse is the synchronous endpoint payload: every gateway
// leg's result under the submitting request id.
type transactionResponse struct {
	RequestID string                 `json:"requestId"`
	Results   []exchange.GatewayCall `json:"results"`
}

// expand resolves directory OID references before validation, so a request
// may name its targets by OID instead of inline gateways.
func (h *Handler) expand(c echo.Context, tx exchange.TransactionType, oids []string, gws *[]exchange.Gateway) error {
	if err := h.svc.ExpandGateways(c.Request().Context(), tx, oids, gws); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func (h *Handler) patientDiscovery(c echo.Context) error {
	var req exchange.PatientDiscoveryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.expand(c, exchange.TransactionPatientDiscovery, req.GatewayOIDs, &req.Gateways); err != nil {
		return err
	}
	if v := exchange.ValidatePatientDiscovery(&req); !v.OK {
		return echo.NewHTTPError(http.StatusBadRequest, v.Reason)
	}
	calls, err := h.svc.PatientDiscovery(c.Request().Context(), &req)
	if err != nil {
		if errors.Is(err, ErrDeferredMode) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, transactionResponse{RequestID: req.ID, Results: calls})
}

func (h *Handler) patientDiscoveryBulk(c echo.Context) error {
	var reqs []*exchange.PatientDiscoveryRequest
	if err := c.Bind(&reqs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return c.JSON(http.StatusAccepted, h.svc.BulkPatientDiscovery(reqs))
}

func (h *Handler) documentQuery(c echo.Context) error {
	var req exchange.DocumentQueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.expand(c, exchange.TransactionDocumentQuery, req.GatewayOIDs, &req.Gateways); err != nil {
		return err
	}
	if v := exchange.ValidateDocumentQuery(&req); !v.OK {
		return echo.NewHTTPError(http.StatusBadRequest, v.Reason)
	}
	calls := h.svc.DocumentQuery(c.Request().Context(), &req)
	return c.JSON(http.StatusOK, transactionResponse{RequestID: req.ID, Results: calls})
}

func (h *Handler) documentQueryBulk(c echo.Context) error {
	var reqs []*exchange.DocumentQueryRequest
	if err := c.Bind(&reqs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return c.JSON(http.StatusAccepted, h.svc.BulkDocumentQuery(reqs))
}

func (h *Handler) documentRetrieval(c echo.Context) error {
	var req exchange.DocumentRetrievalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.expand(c, exchange.TransactionDocumentRetrieval, req.GatewayOIDs, &req.Gateways); err != nil {
		return err
	}
	if v := exchange.ValidateDocumentRetrieval(&req); !v.OK {
		return echo.NewHTTPError(http.StatusBadRequest, v.Reason)
	}
	calls := h.svc.DocumentRetrieval(c.Request().Context(), &req)
	return c.JSON(http.StatusOK, transactionResponse{RequestID: req.ID, Results: calls})
}

func (h *Handler) documentRetrievalBulk(c echo.Context) error {
	var reqs []*exchange.DocumentRetrievalRequest
	if err := c.Bind(&reqs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return c.JSON(http.StatusAccepted, h.svc.BulkDocumentRetrieval(reqs))
}
