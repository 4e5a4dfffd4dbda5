// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lunatalk/lunatalk-server/internal/middleware"
	"github.com/lunatalk/lunatalk-server/internal/model"
	"github.com/lunatalk/lunatalk-server/internal/session"
	"github.com/lunatalk/lunatalk-server/pkg/logger"
)

// SessionHandler handles chat session endpoints.
type SessionHandler struct {
	manager    *session.Manager
	upgradeURL string
	logger     *logger.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(manager *session.Manager, upgradeURL string, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		manager:    manager,
		upgradeURL: upgradeURL,
		logger:     log,
	}
}

// Open handles POST /api/v1/sessions
func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req model.OpenSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ConversationID != "" {
		if err := middleware.ValidateConversationID(req.ConversationID); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	s, err := h.manager.Open(ctx, userID, req)
	if err != nil {
		h.logger.Error("failed to open session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to open session")
		return
	}

	writeJSON(w, http.StatusCreated, s.Snapshot())
}

// Get handles GET /api/v1/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s, ok := h.manager.Get(sessionID)
	if !ok || s.UserID != middleware.GetUserID(r.Context()) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, s.Snapshot())
}

// Close handles DELETE /api/v1/sessions/{id}
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s, ok := h.manager.Get(sessionID)
	if !ok || s.UserID != middleware.GetUserID(r.Context()) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	h.manager.Close(sessionID)
	w.WriteHeader(http.StatusNoContent)
}

// Send handles POST /api/v1/sessions/{id}/messages
func (h *SessionHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "id")
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s, ok := h.manager.Get(sessionID)
	if !ok || s.UserID != middleware.GetUserID(ctx) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageText(req.Text); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	appended, err := s.Send(ctx, req.Text)
	if err != nil {
		var quotaErr *session.QuotaExceededError
		switch {
		case errors.As(err, &quotaErr):
			writeJSON(w, http.StatusPaymentRequired, model.QuotaExceededResponse{
				Error:            "daily message limit reached",
				DailyCount:       quotaErr.Count,
				MaxDailyMessages: quotaErr.Max,
				UpgradeURL:       h.upgradeURL,
			})
		case errors.Is(err, session.ErrBusy):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, session.ErrEmptyMessage), errors.Is(err, session.ErrNoConversation):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, session.ErrClosed):
			writeError(w, http.StatusGone, err.Error())
		default:
			h.logger.Error("failed to send message", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to send message")
		}
		return
	}

	writeJSON(w, http.StatusCreated, model.SendMessageResponse{
		Messages:          appended,
		DailyMessageCount: s.MessageCount(),
	})
}

// Report handles POST /api/v1/sessions/{id}/reports
func (h *SessionHandler) Report(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "id")
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s, ok := h.manager.Get(sessionID)
	if !ok || s.UserID != middleware.GetUserID(ctx) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	var req model.ReportMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateReportReason(req.Reason); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.Report(ctx, req)
	if err != nil {
		var limitErr *session.ReportLimitError
		switch {
		case errors.As(err, &limitErr):
			writeError(w, http.StatusTooManyRequests, err.Error())
		case errors.Is(err, session.ErrReportsUnavailable):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		case errors.Is(err, session.ErrClosed):
			writeError(w, http.StatusGone, err.Error())
		default:
			h.logger.Error("failed to submit report", zap.Error(err))
			writeError(w, http.StatusBadGateway, "failed to submit report")
		}
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}
