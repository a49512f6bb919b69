package handler

import (
	"net/http"

	"github.com/hivechat/room-coordinator/internal/transport"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	transport *transport.NATS
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(t *transport.NATS) *HealthHandler {
	return &HealthHandler{transport: t}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.transport == nil || !h.transport.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "NATS not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
