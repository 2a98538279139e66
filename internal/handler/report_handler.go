package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"telemetry-be/internal/service"
	apperrors "telemetry-be/pkg/errors"
	"telemetry-be/pkg/logger"
)

// ReportHandler serves the dashboard and per-user lookup endpoints
type ReportHandler struct {
	reports service.ReportService
	logger  *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(reports service.ReportService, logger *logger.Logger) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		logger:  logger,
	}
}

// Dashboard handles GET /api/dashboard
func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.Dashboard(r.Context())
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, report, h.logger)
}

// UserDetail handles GET /api/user/{extensionId}
func (h *ReportHandler) UserDetail(w http.ResponseWriter, r *http.Request) {
	extensionID := chi.URLParam(r, "extensionId")
	if extensionID == "" {
		writeError(w, apperrors.NewValidationError("extensionId is required"), h.logger)
		return
	}

	report, err := h.reports.UserDetail(r.Context(), extensionID)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, report, h.logger)
}

// RegisterRoutes registers the reporting routes with the router
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.Dashboard)
	r.Get("/user/{extensionId}", h.UserDetail)
}
