package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"telemetry-be/internal/domain"
	"telemetry-be/internal/service"
	apperrors "telemetry-be/pkg/errors"
	"telemetry-be/pkg/logger"
)

// maxBodyBytes caps ingestion payload size at 1MB
const maxBodyBytes = 1 << 20

// TelemetryHandler handles the ingestion HTTP endpoints
type TelemetryHandler struct {
	telemetry service.TelemetryService
	logger    *logger.Logger
}

// NewTelemetryHandler creates a new telemetry handler
func NewTelemetryHandler(telemetry service.TelemetryService, logger *logger.Logger) *TelemetryHandler {
	return &TelemetryHandler{
		telemetry: telemetry,
		logger:    logger,
	}
}

// IngestResponse acknowledges an ingestion call
type IngestResponse struct {
	Success  bool  `json:"success"`
	Received int64 `json:"received,omitempty"`
}

// IngestLogs handles POST /api/logs
func (h *TelemetryHandler) IngestLogs(w http.ResponseWriter, r *http.Request) {
	var req domain.LogRequest
	raw, err := h.decodeBody(w, r, &req)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	if req.ExtensionID == "" {
		writeError(w, apperrors.NewValidationError("extensionId is required"), h.logger)
		return
	}

	received, err := h.telemetry.IngestLog(r.Context(), &req, raw, realIPAddress(r))
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, IngestResponse{Success: true, Received: received}, h.logger)
}

// IngestStats handles POST /api/stats
func (h *TelemetryHandler) IngestStats(w http.ResponseWriter, r *http.Request) {
	var req domain.StatsRequest
	raw, err := h.decodeBody(w, r, &req)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	if req.ExtensionID == "" {
		writeError(w, apperrors.NewValidationError("extensionId is required"), h.logger)
		return
	}

	if err := h.telemetry.IngestStats(r.Context(), &req, raw, realIPAddress(r), r.UserAgent()); err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, IngestResponse{Success: true}, h.logger)
}

// IngestAnalytics handles POST /api/analytics
func (h *TelemetryHandler) IngestAnalytics(w http.ResponseWriter, r *http.Request) {
	var req domain.AnalyticsRequest
	_, err := h.decodeBody(w, r, &req)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	if req.ExtensionID == "" {
		writeError(w, apperrors.NewValidationError("extensionId is required"), h.logger)
		return
	}
	if req.Type == "" {
		writeError(w, apperrors.NewValidationError("type is required"), h.logger)
		return
	}

	received, err := h.telemetry.IngestAnalytics(r.Context(), &req, realIPAddress(r), r.UserAgent())
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, IngestResponse{Success: true, Received: received}, h.logger)
}

// decodeBody reads the full request body and unmarshals it into req,
// returning the raw bytes for aggregator mirroring
func (h *TelemetryHandler) decodeBody(w http.ResponseWriter, r *http.Request, req interface{}) (json.RawMessage, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, apperrors.NewValidationError("Failed to read request body")
	}

	if err := json.Unmarshal(body, req); err != nil {
		return nil, apperrors.NewValidationError("Invalid JSON body")
	}

	return body, nil
}

// RegisterRoutes registers the ingestion routes with the router
func (h *TelemetryHandler) RegisterRoutes(r chi.Router) {
	r.Post("/logs", h.IngestLogs)
	r.Post("/stats", h.IngestStats)
	r.Post("/analytics", h.IngestAnalytics)
}
