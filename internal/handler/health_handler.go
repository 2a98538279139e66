package handler

import (
	"net/http"
	"time"

	"telemetry-be/pkg/logger"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	logger *logger.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(logger *logger.Logger) *HealthHandler {
	return &HealthHandler{logger: logger}
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"success":   true,
		"service":   "telemetry",
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	}

	writeJSON(w, http.StatusOK, response, h.logger)
}
