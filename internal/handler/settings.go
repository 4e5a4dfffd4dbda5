package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/lunatalk/lunatalk-server/internal/middleware"
	"github.com/lunatalk/lunatalk-server/internal/model"
	"github.com/lunatalk/lunatalk-server/internal/session"
	"github.com/lunatalk/lunatalk-server/pkg/logger"
)

// SettingsHandler handles user settings and survey answer endpoints.
type SettingsHandler struct {
	manager *session.Manager
	logger  *logger.Logger
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(manager *session.Manager, log *logger.Logger) *SettingsHandler {
	return &SettingsHandler{
		manager: manager,
		logger:  log,
	}
}

// GetSettings handles GET /api/v1/settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	svc := h.manager.Settings(middleware.GetUserID(ctx))
	writeJSON(w, http.StatusOK, svc.LoadUserSettings(ctx))
}

// PutSettings handles PUT /api/v1/settings
func (h *SettingsHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var settings model.UserSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	svc := h.manager.Settings(middleware.GetUserID(ctx))
	if err := svc.SaveUserSettings(ctx, settings); err != nil {
		h.logger.Error("failed to save user settings", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

// GetSurvey handles GET /api/v1/survey
func (h *SettingsHandler) GetSurvey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	svc := h.manager.Settings(middleware.GetUserID(ctx))
	writeJSON(w, http.StatusOK, svc.LoadSurveyAnswers(ctx))
}

// PutSurvey handles PUT /api/v1/survey
func (h *SettingsHandler) PutSurvey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var answers model.SurveyAnswers
	if err := json.NewDecoder(r.Body).Decode(&answers); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	svc := h.manager.Settings(middleware.GetUserID(ctx))
	if err := svc.SaveSurveyAnswers(ctx, answers); err != nil {
		h.logger.Error("failed to save survey answers", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save survey answers")
		return
	}

	writeJSON(w, http.StatusOK, answers)
}
