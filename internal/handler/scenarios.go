package handler

import (
	"net/http"

	"github.com/lunatalk/lunatalk-server/internal/middleware"
	"github.com/lunatalk/lunatalk-server/internal/scenario"
	"github.com/lunatalk/lunatalk-server/internal/session"
)

// ScenarioHandler handles scenario catalog endpoints.
type ScenarioHandler struct {
	manager *session.Manager
}

// NewScenarioHandler creates a new scenario handler.
func NewScenarioHandler(manager *session.Manager) *ScenarioHandler {
	return &ScenarioHandler{manager: manager}
}

// List handles GET /api/v1/scenarios
func (h *ScenarioHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"scenarios": scenario.Catalog,
	})
}

// Daily handles GET /api/v1/scenarios/daily
func (h *ScenarioHandler) Daily(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	writeJSON(w, http.StatusOK, h.manager.DailyScenario(ctx, userID))
}
