// Package service provides business logic for the chat backend.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/commercekit/support-chat/internal/model"
	"github.com/commercekit/support-chat/internal/push"
	"github.com/commercekit/support-chat/pkg/logger"
	"github.com/commercekit/support-chat/pkg/metrics"
)

// ErrNotFound is returned when a conversation does not exist or the
// actor may not see it.
var ErrNotFound = errors.New("conversation not found")

// record is the server-side state of one conversation. Unread counts are
// kept per side and projected into the actor-relative unread_count.
type record struct {
	conv          model.Conversation
	messages      []model.Message
	unreadByUser  int
	unreadByAdmin int
}

// ConversationService handles conversation operations and fans out
// row-level push events on every accepted mutation.
//
// Storage is in memory; the service exists to give the sync core a
// concrete backend surface, not to be durable.
type ConversationService struct {
	mu         sync.RWMutex
	convs      map[int64]*record
	profiles   map[string]model.Profile
	nextConvID int64
	nextMsgID  int64

	publisher *push.Publisher
	logger    *logger.Logger
}

// NewConversationService creates a new conversation service.
func NewConversationService(publisher *push.Publisher, log *logger.Logger) *ConversationService {
	return &ConversationService{
		convs:     make(map[int64]*record),
		profiles:  make(map[string]model.Profile),
		publisher: publisher,
		logger:    log,
	}
}

// RegisterProfile records a customer's display profile, used by the
// admin console's profile resolution.
func (s *ConversationService) RegisterProfile(userID, name string) {
	if userID == "" || name == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[userID] = model.Profile{UserID: userID, Name: name}
}

// Profile returns a customer's display profile.
func (s *ConversationService) Profile(userID string) (model.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	return p, ok
}

// Create opens a conversation with the author's initial message.
func (s *ConversationService) Create(ctx context.Context, userID string, req *model.CreateConversationRequest) (*model.Conversation, error) {
	priority := req.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("invalid priority %q", priority)
	}

	now := time.Now()

	s.mu.Lock()
	s.nextConvID++
	convID := s.nextConvID
	s.nextMsgID++
	msgID := s.nextMsgID

	msg := model.Message{
		ID:             msgID,
		ConversationID: convID,
		SenderID:       userID,
		Body:           req.Message,
		CreatedAt:      now,
	}
	rec := &record{
		conv: model.Conversation{
			ID:              convID,
			UserID:          userID,
			Subject:         req.Subject,
			Status:          model.StatusOpen,
			Priority:        priority,
			CreatedAt:       now,
			UpdatedAt:       now,
			LatestMessage:   msg.Body,
			LatestMessageAt: now,
		},
		messages:      []model.Message{msg},
		unreadByAdmin: 1,
	}
	s.convs[convID] = rec

	convRow := rec.conv
	convRow.UnreadCount = rec.unreadByAdmin
	out := rec.conv
	out.Messages = []model.Message{msg}
	out.UnreadCount = 0
	s.mu.Unlock()

	metrics.ConversationsTotal.Inc()
	metrics.MessagesTotal.WithLabelValues("customer").Inc()
	s.logger.Info("conversation created",
		zap.Int64("conversation_id", convID),
		zap.String("user_id", userID),
	)

	s.publish(model.NewConversationEvent(model.OpInsert, &convRow), userID)
	s.publish(model.NewMessageEvent(model.OpInsert, &msg), userID)

	return &out, nil
}

// List returns the actor's conversation view, most recent activity first.
// Messages are omitted; previews come from the denormalized fields.
func (s *ConversationService) List(ctx context.Context, actorID string, isAdmin bool, filters model.ListFilters) []model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Conversation
	for _, rec := range s.convs {
		if isAdmin {
			if rec.conv.DeletedByAdmin != filters.Archived {
				continue
			}
		} else {
			if rec.conv.UserID != actorID || rec.conv.DeletedByUser {
				continue
			}
		}
		if filters.Status != nil && rec.conv.Status != *filters.Status {
			continue
		}
		if filters.Priority != nil && rec.conv.Priority != *filters.Priority {
			continue
		}
		out = append(out, s.projectLocked(rec, isAdmin, false))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Get returns one conversation with full message history.
func (s *ConversationService) Get(ctx context.Context, actorID string, isAdmin bool, id int64) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.visibleLocked(actorID, isAdmin, id)
	if err != nil {
		return nil, err
	}
	conv := s.projectLocked(rec, isAdmin, true)
	return &conv, nil
}

// SendMessage appends a message, bumps the other side's unread count,
// and publishes the insert.
func (s *ConversationService) SendMessage(ctx context.Context, actorID string, isAdmin bool, conversationID int64, text string) (*model.Message, error) {
	now := time.Now()

	s.mu.Lock()
	rec, err := s.visibleLocked(actorID, isAdmin, conversationID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	s.nextMsgID++
	msg := model.Message{
		ID:             s.nextMsgID,
		ConversationID: conversationID,
		SenderID:       actorID,
		Body:           text,
		IsAdmin:        isAdmin,
		CreatedAt:      now,
	}
	rec.messages = append(rec.messages, msg)
	rec.conv.LatestMessage = msg.Body
	rec.conv.LatestMessageAt = now
	rec.conv.UpdatedAt = now
	if isAdmin {
		rec.unreadByUser++
	} else {
		rec.unreadByAdmin++
	}

	ownerID := rec.conv.UserID
	convRow := rec.conv
	if isAdmin {
		convRow.UnreadCount = rec.unreadByUser
	} else {
		convRow.UnreadCount = rec.unreadByAdmin
	}
	s.mu.Unlock()

	sender := "customer"
	if isAdmin {
		sender = "admin"
	}
	metrics.MessagesTotal.WithLabelValues(sender).Inc()

	s.publish(model.NewMessageEvent(model.OpInsert, &msg), ownerID)
	s.publish(model.NewConversationEvent(model.OpUpdate, &convRow), ownerID)

	return &msg, nil
}

// Update applies a partial metadata update and publishes it.
func (s *ConversationService) Update(ctx context.Context, actorID string, isAdmin bool, id int64, fields model.UpdateFields) (*model.Conversation, error) {
	s.mu.Lock()
	rec, err := s.visibleLocked(actorID, isAdmin, id)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	if fields.Status != nil {
		if !fields.Status.Valid() {
			s.mu.Unlock()
			return nil, fmt.Errorf("invalid status %q", *fields.Status)
		}
		rec.conv.Status = *fields.Status
	}
	if fields.Priority != nil {
		if !fields.Priority.Valid() {
			s.mu.Unlock()
			return nil, fmt.Errorf("invalid priority %q", *fields.Priority)
		}
		rec.conv.Priority = *fields.Priority
	}
	if fields.DeletedByAdmin != nil {
		if !isAdmin {
			s.mu.Unlock()
			return nil, ErrNotFound
		}
		rec.conv.DeletedByAdmin = *fields.DeletedByAdmin
	}
	if fields.DeletedByUser != nil {
		rec.conv.DeletedByUser = *fields.DeletedByUser
	}
	rec.conv.UpdatedAt = time.Now()

	ownerID := rec.conv.UserID
	convRow := rec.conv
	out := s.projectLocked(rec, isAdmin, false)
	s.mu.Unlock()

	s.publish(model.NewConversationEvent(model.OpUpdate, &convRow), ownerID)
	return &out, nil
}

// Delete removes, archives, or hides a conversation depending on the
// delete type. Permanent deletion drops the row; the other actor's view
// heals on its next refresh.
func (s *ConversationService) Delete(ctx context.Context, actorID string, isAdmin bool, id int64, deleteType model.DeleteType) error {
	if !deleteType.Valid() {
		return fmt.Errorf("invalid delete type %q", deleteType)
	}

	s.mu.Lock()
	rec, err := s.visibleLocked(actorID, isAdmin, id)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	switch deleteType {
	case model.DeletePermanent:
		delete(s.convs, id)
		s.mu.Unlock()
		s.logger.Info("conversation deleted", zap.Int64("conversation_id", id))
		return nil
	case model.DeleteAdminArchive:
		if !isAdmin {
			s.mu.Unlock()
			return ErrNotFound
		}
		rec.conv.DeletedByAdmin = true
	case model.DeleteUserHide:
		// Hide touches only the visibility flag; unread counts are
		// preserved server side.
		rec.conv.DeletedByUser = true
	}
	rec.conv.UpdatedAt = time.Now()

	ownerID := rec.conv.UserID
	convRow := rec.conv
	s.mu.Unlock()

	s.publish(model.NewConversationEvent(model.OpUpdate, &convRow), ownerID)
	return nil
}

// MarkRead zeroes the actor's unread count and flags the other side's
// messages as read.
func (s *ConversationService) MarkRead(ctx context.Context, actorID string, isAdmin bool, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.visibleLocked(actorID, isAdmin, id)
	if err != nil {
		return err
	}

	if isAdmin {
		rec.unreadByAdmin = 0
	} else {
		rec.unreadByUser = 0
	}
	for i := range rec.messages {
		if rec.messages[i].IsAdmin != isAdmin {
			rec.messages[i].Read = true
		}
	}
	return nil
}

// visibleLocked returns the record if the actor may see it.
func (s *ConversationService) visibleLocked(actorID string, isAdmin bool, id int64) (*record, error) {
	rec, ok := s.convs[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !isAdmin && rec.conv.UserID != actorID {
		return nil, ErrNotFound
	}
	return rec, nil
}

// projectLocked builds the actor-relative view of a record.
func (s *ConversationService) projectLocked(rec *record, isAdmin, withMessages bool) model.Conversation {
	conv := rec.conv
	if isAdmin {
		conv.UnreadCount = rec.unreadByAdmin
		if p, ok := s.profiles[conv.UserID]; ok {
			conv.UserName = p.Name
		}
	} else {
		conv.UnreadCount = rec.unreadByUser
	}
	if withMessages {
		conv.Messages = make([]model.Message, len(rec.messages))
		copy(conv.Messages, rec.messages)
	}
	return conv
}

func (s *ConversationService) publish(ev *model.Event, ownerID string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ev, ownerID); err != nil {
		s.logger.Error("failed to publish push event",
			zap.String("table", string(ev.Table)),
			zap.String("operation", string(ev.Op)),
			zap.Error(err),
		)
	}
}
