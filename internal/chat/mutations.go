package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/commercekit/support-chat/internal/model"
	"github.com/commercekit/support-chat/pkg/metrics"
)

// Every user-initiated mutation follows the same shape: validate, apply
// a speculative local change, surface success feedback immediately, run
// the backend call, then reconcile on success or roll back fully on
// failure. A failed action always leaves the store in the pre-action
// state plus exactly one error notification.

// SendMessage optimistically appends a message and confirms it with the
// backend. The pending entry is replaced by handle, never re-appended,
// so the confirmed message renders exactly once.
func (s *Session) SendMessage(ctx context.Context, conversationID int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: message text is empty", ErrValidation)
	}

	if _, ok := s.store.Get(conversationID); !ok {
		s.log.Warn("send targets unknown conversation", zap.Int64("conversation_id", conversationID))
		return nil
	}

	key := fmt.Sprintf("send:%d", conversationID)
	if !s.begin(key) {
		s.log.Debug("send already in flight", zap.Int64("conversation_id", conversationID))
		return nil
	}
	defer s.end(key)

	pending := model.Message{
		ID:             model.NextPendingID(),
		ConversationID: conversationID,
		SenderID:       s.actorID,
		Body:           text,
		IsAdmin:        s.role == RoleAdmin,
		CreatedAt:      time.Now(),
	}

	s.store.UpsertMessage(conversationID, pending)
	s.notifier.Success("Message sent")

	server, err := s.backend.SendMessage(ctx, conversationID, text)
	if err != nil {
		s.store.RemoveMessage(conversationID, pending.ID)
		metrics.RecordRollback("send_message")
		s.notifier.Error("Failed to send message")
		return fmt.Errorf("send message: %w", err)
	}

	s.store.ReplaceMessage(conversationID, pending.ID, *server)
	if conv, ok := s.store.Get(conversationID); ok {
		s.cache.Set(conversationID, conv.Messages)
	}
	return nil
}

// CreateConversation optimistically opens a conversation whose message
// list already contains the author's first message, so the UI renders it
// without an extra fetch. The backend's returned conversation supersedes
// the speculative one.
//
// If a create is already in flight for this session the call is a
// suppressed duplicate and returns (nil, nil): no state changes, no
// notification. Callers must treat a nil conversation with a nil error
// as "nothing happened", not as a created conversation.
func (s *Session) CreateConversation(ctx context.Context, subject, text string, priority model.Priority) (*model.Conversation, error) {
	subject = strings.TrimSpace(subject)
	text = strings.TrimSpace(text)
	if subject == "" {
		return nil, fmt.Errorf("%w: subject is empty", ErrValidation)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: message text is empty", ErrValidation)
	}
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, priority)
	}

	if !s.begin("create") {
		s.log.Debug("create already in flight")
		return nil, nil
	}
	defer s.end("create")

	now := time.Now()
	pendingID := model.NextPendingID()
	firstMessage := model.Message{
		ID:             model.NextPendingID(),
		ConversationID: pendingID,
		SenderID:       s.actorID,
		Body:           text,
		IsAdmin:        s.role == RoleAdmin,
		CreatedAt:      now,
	}
	speculative := model.Conversation{
		ID:              pendingID,
		UserID:          s.actorID,
		Subject:         subject,
		Status:          model.StatusOpen,
		Priority:        priority,
		CreatedAt:       now,
		UpdatedAt:       now,
		Messages:        []model.Message{firstMessage},
		LatestMessage:   text,
		LatestMessageAt: now,
	}

	s.store.Insert(speculative, true)
	s.notifier.Success("Conversation created")

	server, err := s.backend.CreateConversation(ctx, subject, text, priority)
	if err != nil {
		s.store.Remove(pendingID)
		metrics.RecordRollback("create_conversation")
		s.notifier.Error("Failed to create conversation")
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	s.store.Remove(pendingID)
	// A push event may have inserted the confirmed conversation already.
	if _, ok := s.store.Get(server.ID); !ok {
		s.store.Insert(*server, true)
	}
	s.cache.Set(server.ID, server.Messages)
	return server.Clone(), nil
}

// SetStatus optimistically changes a conversation's status.
func (s *Session) SetStatus(ctx context.Context, conversationID int64, status model.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	return s.updateField(ctx, conversationID, fmt.Sprintf("status:%d", conversationID),
		"Status updated", "Failed to update status", "set_status",
		func(c *model.Conversation) bool {
			if c.Status == status {
				return false
			}
			c.Status = status
			return true
		},
		model.UpdateFields{Status: &status},
	)
}

// SetPriority optimistically changes a conversation's priority.
func (s *Session) SetPriority(ctx context.Context, conversationID int64, priority model.Priority) error {
	if !priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrValidation, priority)
	}
	return s.updateField(ctx, conversationID, fmt.Sprintf("priority:%d", conversationID),
		"Priority updated", "Failed to update priority", "set_priority",
		func(c *model.Conversation) bool {
			if c.Priority == priority {
				return false
			}
			c.Priority = priority
			return true
		},
		model.UpdateFields{Priority: &priority},
	)
}

// updateField runs the optimistic pattern for a single metadata field:
// apply locally, call the backend, revert to the prior value on failure.
func (s *Session) updateField(ctx context.Context, conversationID int64, key, successMsg, errorMsg, op string,
	apply func(*model.Conversation) bool, fields model.UpdateFields) error {

	target, prior := s.findConversation(conversationID)
	if prior == nil {
		s.log.Warn("update targets unknown conversation", zap.Int64("conversation_id", conversationID))
		return nil
	}

	next := prior.Clone()
	if !apply(next) {
		// Field already matches; nothing to do.
		return nil
	}
	next.UpdatedAt = time.Now()

	if !s.begin(key) {
		s.log.Debug("update already in flight", zap.Int64("conversation_id", conversationID))
		return nil
	}
	defer s.end(key)

	target.MergeMetadata(*next)
	s.notifier.Success(successMsg)

	if _, err := s.backend.UpdateConversation(ctx, conversationID, fields); err != nil {
		target.MergeMetadata(*prior)
		metrics.RecordRollback(op)
		s.notifier.Error(errorMsg)
		return fmt.Errorf("update conversation %d: %w", conversationID, err)
	}
	return nil
}

// Archive hides a conversation from the admin's active list. It executes
// immediately with no confirmation gate; the conversation moves to the
// archived list and stays fully functional for the customer.
func (s *Session) Archive(ctx context.Context, conversationID int64) error {
	if s.role != RoleAdmin {
		return fmt.Errorf("%w: archive is an admin action", ErrValidation)
	}

	key := fmt.Sprintf("archive:%d", conversationID)
	if !s.begin(key) {
		return nil
	}
	defer s.end(key)

	removed, index, ok := s.store.Remove(conversationID)
	if !ok {
		s.log.Warn("archive targets unknown conversation", zap.Int64("conversation_id", conversationID))
		return nil
	}

	archivedCopy := removed.Clone()
	archivedCopy.DeletedByAdmin = true
	s.archived.Insert(*archivedCopy, true)
	s.notifier.Success("Conversation archived")

	if err := s.backend.DeleteConversation(ctx, conversationID, model.DeleteAdminArchive); err != nil {
		s.archived.Remove(conversationID)
		s.store.InsertAt(*removed, index)
		metrics.RecordRollback("archive")
		s.notifier.Error("Failed to archive conversation")
		return fmt.Errorf("archive conversation %d: %w", conversationID, err)
	}
	return nil
}

// Unarchive moves a conversation from the archived list back to the
// active list.
func (s *Session) Unarchive(ctx context.Context, conversationID int64) error {
	if s.role != RoleAdmin {
		return fmt.Errorf("%w: unarchive is an admin action", ErrValidation)
	}

	key := fmt.Sprintf("unarchive:%d", conversationID)
	if !s.begin(key) {
		return nil
	}
	defer s.end(key)

	removed, index, ok := s.archived.Remove(conversationID)
	if !ok {
		s.log.Warn("unarchive targets unknown conversation", zap.Int64("conversation_id", conversationID))
		return nil
	}

	restored := removed.Clone()
	restored.DeletedByAdmin = false
	s.store.Insert(*restored, true)
	s.notifier.Success("Conversation restored")

	unarchived := false
	if _, err := s.backend.UpdateConversation(ctx, conversationID, model.UpdateFields{DeletedByAdmin: &unarchived}); err != nil {
		s.store.Remove(conversationID)
		s.archived.InsertAt(*removed, index)
		metrics.RecordRollback("unarchive")
		s.notifier.Error("Failed to restore conversation")
		return fmt.Errorf("unarchive conversation %d: %w", conversationID, err)
	}
	return nil
}

// Hide removes a conversation from the customer's own view. Immediate,
// no confirmation gate; the backend only tags it hidden, support agents
// keep full access.
func (s *Session) Hide(ctx context.Context, conversationID int64) error {
	if s.role != RoleCustomer {
		return fmt.Errorf("%w: hide is a customer action", ErrValidation)
	}

	key := fmt.Sprintf("hide:%d", conversationID)
	if !s.begin(key) {
		return nil
	}
	defer s.end(key)

	removed, index, ok := s.store.Remove(conversationID)
	if !ok {
		s.log.Warn("hide targets unknown conversation", zap.Int64("conversation_id", conversationID))
		return nil
	}
	s.notifier.Success("Conversation removed")

	if err := s.backend.DeleteConversation(ctx, conversationID, model.DeleteUserHide); err != nil {
		s.store.InsertAt(*removed, index)
		metrics.RecordRollback("hide")
		s.notifier.Error("Failed to remove conversation")
		return fmt.Errorf("hide conversation %d: %w", conversationID, err)
	}
	return nil
}

// RequestDelete enters the pending-delete confirmation state for a
// permanent delete. Requesting again restarts the expiry window.
func (s *Session) RequestDelete(conversationID int64) {
	if _, prior := s.findConversation(conversationID); prior == nil {
		s.log.Warn("delete request targets unknown conversation", zap.Int64("conversation_id", conversationID))
		return
	}
	s.pending.Request(conversationID)
}

// CancelDelete clears a pending permanent delete with no side effects.
func (s *Session) CancelDelete(conversationID int64) {
	s.pending.Cancel(conversationID)
}

// PendingDelete returns the pending-delete entry for a conversation.
func (s *Session) PendingDelete(conversationID int64) (PendingDelete, bool) {
	return s.pending.Get(conversationID)
}

// ConfirmDelete executes the permanent delete if and only if one is
// pending for the conversation.
func (s *Session) ConfirmDelete(ctx context.Context, conversationID int64) error {
	if !s.pending.Confirm(conversationID) {
		s.log.Warn("confirm without pending delete", zap.Int64("conversation_id", conversationID))
		return nil
	}
	return s.executeDelete(ctx, conversationID)
}

// executeDelete optimistically removes the conversation (from whichever
// list holds it) and confirms with the backend, restoring it in place on
// failure.
func (s *Session) executeDelete(ctx context.Context, conversationID int64) error {
	key := fmt.Sprintf("delete:%d", conversationID)
	if !s.begin(key) {
		return nil
	}
	defer s.end(key)

	origin := s.store
	removed, index, ok := s.store.Remove(conversationID)
	if !ok {
		origin = s.archived
		removed, index, ok = s.archived.Remove(conversationID)
	}
	if !ok {
		s.log.Warn("delete targets unknown conversation", zap.Int64("conversation_id", conversationID))
		return nil
	}
	s.notifier.Success("Conversation deleted")

	if err := s.backend.DeleteConversation(ctx, conversationID, model.DeletePermanent); err != nil {
		origin.InsertAt(*removed, index)
		metrics.RecordRollback("delete")
		s.notifier.Error("Failed to delete conversation")
		return fmt.Errorf("delete conversation %d: %w", conversationID, err)
	}

	s.cache.Delete(conversationID)
	return nil
}

// findConversation locates a conversation in the active list first, then
// the archived list. Returns the owning store and a copy, or nils.
func (s *Session) findConversation(conversationID int64) (*Store, *model.Conversation) {
	if conv, ok := s.store.Get(conversationID); ok {
		return s.store, conv
	}
	if conv, ok := s.archived.Get(conversationID); ok {
		return s.archived, conv
	}
	return nil, nil
}
