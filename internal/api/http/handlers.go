// Package httpapi serves the audit API over HTTP with gin.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/danielpatrickdp/signal-audit/internal/api"
	"github.com/danielpatrickdp/signal-audit/internal/orchestrator"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ResetResponse is the body of POST /api/system/reset.
type ResetResponse struct {
	api.SystemResponse
	Message string `json:"message"`
}

// Handlers holds the HTTP handlers.
type Handlers struct {
	svc    api.Service
	logger *slog.Logger
}

// NewHandlers returns handlers over svc. A nil logger uses slog.Default().
func NewHandlers(svc api.Service, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{svc: svc, logger: logger}
}

// HandleTrack handles POST /api/track.
//
//	200 OK: api.SystemResponse
//	400 Bad Request: missing event name or malformed body
func (h *Handlers) HandleTrack(c *gin.Context) {
	var req api.TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST"})
		return
	}
	snap, err := h.svc.Track(c.Request.Context(), req.Event, req.Value)
	if h.fail(c, "track", err) {
		return
	}
	c.JSON(http.StatusOK, api.NewSystemResponse(snap, err))
}

// HandleScan handles POST /api/scan.
//
//	200 OK: api.ScanResponse
//	400 Bad Request: missing url or unsupported type
//	502 Bad Gateway: the page could not be fetched
func (h *Handlers) HandleScan(c *gin.Context) {
	var req api.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST"})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
		return
	}
	res, snap, err := h.svc.Scan(c.Request.Context(), req.URL, req.HTML)
	if h.fail(c, "scan", err) {
		return
	}
	c.JSON(http.StatusOK, api.ScanResponse{SystemResponse: api.NewSystemResponse(snap, err), Result: res})
}

// HandleCreateDecision handles POST /api/decisions.
func (h *Handlers) HandleCreateDecision(c *gin.Context) {
	var req orchestrator.NewDecision
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST"})
		return
	}
	dec, snap, err := h.svc.CreateDecision(c.Request.Context(), req)
	if h.fail(c, "create decision", err) {
		return
	}
	c.JSON(http.StatusOK, api.DecisionResponse{SystemResponse: api.NewSystemResponse(snap, err), Decision: dec})
}

// HandleSystem handles GET /api/system.
func (h *Handlers) HandleSystem(c *gin.Context) {
	view, err := h.svc.System(c.Request.Context())
	if h.fail(c, "system", err) {
		return
	}
	c.JSON(http.StatusOK, view)
}

// HandleReset handles POST /api/system/reset.
func (h *Handlers) HandleReset(c *gin.Context) {
	snap, err := h.svc.Reset(c.Request.Context())
	if h.fail(c, "reset", err) {
		return
	}
	c.JSON(http.StatusOK, ResetResponse{
		SystemResponse: api.NewSystemResponse(snap, err),
		Message:        "system reset to factory defaults",
	})
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// fail writes the error response for err and reports whether it did.
func (h *Handlers) fail(c *gin.Context, op string, err error) bool {
	switch api.Classify(err) {
	case api.KindNone:
		if err != nil {
			h.logger.Warn("request served from unpersisted state", "op", op, "error", err)
		}
		return false
	case api.KindInvalid:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
	case api.KindUpstream:
		h.logger.Warn("upstream failure", "op", op, "error", err)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error(), Code: "SCAN_FAILED"})
	default:
		h.logger.Error("request failed", "op", op, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "INTERNAL"})
	}
	return true
}
