package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lunatalk/lunatalk-server/internal/middleware"
	"github.com/lunatalk/lunatalk-server/internal/model"
	"github.com/lunatalk/lunatalk-server/internal/session"
	"github.com/lunatalk/lunatalk-server/pkg/logger"
)

// ConversationHandler handles conversation list endpoints.
type ConversationHandler struct {
	manager *session.Manager
	logger  *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(manager *session.Manager, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		manager: manager,
		logger:  log,
	}
}

// List handles GET /api/v1/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	summaries := h.manager.ListConversations(ctx, userID)
	if summaries == nil {
		summaries = []model.ConversationSummary{}
	}

	writeJSON(w, http.StatusOK, model.ListConversationsResponse{
		Conversations: summaries,
		Total:         len(summaries),
	})
}

// Delete handles DELETE /api/v1/conversations/{id}
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.manager.DeleteConversation(ctx, userID, conversationID); err != nil {
		h.logger.Error("failed to delete conversation",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to delete conversation")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
