// Package handler provides HTTP handlers for the chat API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/commercekit/support-chat/internal/middleware"
	"github.com/commercekit/support-chat/internal/model"
	"github.com/commercekit/support-chat/internal/service"
	"github.com/commercekit/support-chat/pkg/logger"
)

// ConversationHandler handles conversation endpoints.
type ConversationHandler struct {
	service *service.ConversationService
	logger  *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(svc *service.ConversationService, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: svc,
		logger:  log,
	}
}

// Create handles POST /api/v1/conversations
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req model.CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateSubject(req.Subject); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateMessageBody(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Priority != "" {
		if err := middleware.ValidatePriority(req.Priority); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	h.service.RegisterProfile(userID, middleware.GetUserName(ctx))

	conv, err := h.service.Create(ctx, userID, &req)
	if err != nil {
		h.logger.Error("failed to create conversation")
		writeError(w, http.StatusInternalServerError, "failed to create conversation")
		return
	}

	writeJSON(w, http.StatusCreated, conv)
}

// List handles GET /api/v1/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	isAdmin := middleware.IsAdmin(ctx)

	var filters model.ListFilters
	if v := r.URL.Query().Get("status"); v != "" {
		status := model.Status(v)
		if err := middleware.ValidateStatus(status); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filters.Status = &status
	}
	if v := r.URL.Query().Get("priority"); v != "" {
		priority := model.Priority(v)
		if err := middleware.ValidatePriority(priority); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filters.Priority = &priority
	}
	if r.URL.Query().Get("archived") == "true" {
		if !isAdmin {
			writeError(w, http.StatusForbidden, "archived view is admin-only")
			return
		}
		filters.Archived = true
	}

	convs := h.service.List(ctx, userID, isAdmin, filters)
	if convs == nil {
		convs = []model.Conversation{}
	}
	writeJSON(w, http.StatusOK, convs)
}

// Get handles GET /api/v1/conversations/:id
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

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

	writeJSON(w, http.StatusOK, conv)
}

// Update handles PUT /api/v1/conversations/:id
func (h *ConversationHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := middleware.ValidateConversationID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var fields model.UpdateFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conv, err := h.service.Update(ctx, middleware.GetUserID(ctx), middleware.IsAdmin(ctx), id, fields)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// Delete handles DELETE /api/v1/conversations/:id?delete_type=...
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := middleware.ValidateConversationID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	deleteType := model.DeleteType(r.URL.Query().Get("delete_type"))
	if deleteType == "" {
		deleteType = model.DeletePermanent
	}
	if err := middleware.ValidateDeleteType(deleteType); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.Delete(ctx, middleware.GetUserID(ctx), middleware.IsAdmin(ctx), id, deleteType); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, model.DeleteConversationResponse{
		Success: true,
		Message: "conversation " + string(deleteType) + " applied",
	})
}

// MarkRead handles POST /api/v1/conversations/:id/read
func (h *ConversationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := middleware.ValidateConversationID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.MarkRead(ctx, middleware.GetUserID(ctx), middleware.IsAdmin(ctx), id); err != nil {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	writeJSON(w, http.StatusOK, model.MarkReadResponse{Success: true})
}

// GetProfile handles GET /api/v1/profiles/:id and /api/v1/users/:id
func (h *ConversationHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing user ID")
		return
	}

	profile, ok := h.service.Profile(userID)
	if !ok {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
