package handler

import (
	"net/http"
)

// ConnChecker reports backing-store connectivity.
type ConnChecker interface {
	IsConnected() bool
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store ConnChecker
}

// NewHealthHandler creates a new health handler. A nil checker means the
// store has no connection to verify (in-memory fallback).
func NewHealthHandler(store ConnChecker) *HealthHandler {
	return &HealthHandler{
		store: store,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.store != nil && !h.store.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "store not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
