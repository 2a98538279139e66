package handler

import (
	"fmt"
	"net/http"
	"path/filepath"

	"telemetry-be/internal/service"
	"telemetry-be/pkg/logger"
)

// ExportHandler serves the token-gated export endpoint. The bearer-token
// check itself lives in the ExportAuth middleware.
type ExportHandler struct {
	reports service.ReportService
	logger  *logger.Logger
}

// NewExportHandler creates a new export handler
func NewExportHandler(reports service.ReportService, logger *logger.Logger) *ExportHandler {
	return &ExportHandler{
		reports: reports,
		logger:  logger,
	}
}

// Export handles GET /api/export: snapshot the aggregator to a file and
// stream the file back as a download
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	_, path, err := h.reports.Export(r.Context())
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	filename := filepath.Base(path)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	http.ServeFile(w, r, path)
}
