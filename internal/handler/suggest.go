package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/commercekit/support-chat/internal/assist"
	"github.com/commercekit/support-chat/internal/middleware"
	"github.com/commercekit/support-chat/internal/service"
	"github.com/commercekit/support-chat/pkg/logger"
)

// SuggestHandler drafts reply suggestions for support agents.
type SuggestHandler struct {
	service *service.ConversationService
	assist  assist.Client
	logger  *logger.Logger
}

// NewSuggestHandler creates a new suggest handler. assistClient may be
// nil when no provider is configured.
func NewSuggestHandler(svc *service.ConversationService, assistClient assist.Client, log *logger.Logger) *SuggestHandler {
	return &SuggestHandler{
		service: svc,
		assist:  assistClient,
		logger:  log,
	}
}

// Suggest handles POST /api/v1/conversations/:id/suggest
func (h *SuggestHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.assist == nil {
		writeError(w, http.StatusServiceUnavailable, "reply suggestions are not configured")
		return
	}

	id, err := middleware.ValidateConversationID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.service.Get(ctx, middleware.GetUserID(ctx), middleware.IsAdmin(ctx), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	reply, err := h.assist.SuggestReply(ctx, conv)
	if err != nil {
		h.logger.Error("failed to draft reply suggestion")
		writeError(w, http.StatusBadGateway, "failed to draft suggestion")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"suggestion": reply,
		"provider":   h.assist.Name(),
	})
}
