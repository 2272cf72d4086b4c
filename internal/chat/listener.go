package chat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/commercekit/support-chat/internal/model"
	"github.com/commercekit/support-chat/pkg/metrics"
)

// Live update handling. Events arrive on the push subscription goroutine
// already decoded and validated; each handler below is one atomic store
// transition. The push path and the REST-response path race for the same
// logical message, and neither is ordered ahead of the other: whichever
// arrives first wins the initial render, the second is absorbed as a
// duplicate.

const profileLookupTimeout = 10 * time.Second

func (s *Session) handleEvent(ev *model.Event) {
	switch ev.Table {
	case model.TableMessages:
		switch ev.Op {
		case model.OpInsert:
			s.handleMessageInsert(ev.Message)
		case model.OpUpdate:
			// Message updates carry read-state changes tracked server
			// side; the client's aggregate unread bookkeeping covers it.
			metrics.RecordPushEvent(string(ev.Table), string(ev.Op), "ignored")
		}
	case model.TableConversations:
		switch ev.Op {
		case model.OpInsert:
			s.handleConversationInsert(ev.Conversation)
		case model.OpUpdate:
			s.handleConversationUpdate(ev.Conversation)
		}
	}
}

func (s *Session) handleMessageInsert(msg *model.Message) {
	const table, op = "messages", "insert"

	// Own sends were already applied optimistically.
	if msg.SenderID == s.actorID {
		metrics.RecordPushEvent(table, op, "own")
		return
	}
	// The widget only listens for support replies; pushes about other
	// customers are excluded by server-side scoping, this is defensive.
	if s.role == RoleCustomer && !msg.IsAdmin {
		metrics.RecordPushEvent(table, op, "filtered")
		return
	}

	target := s.store
	if _, held := s.store.Get(msg.ConversationID); !held {
		if _, archivedHeld := s.archived.Get(msg.ConversationID); archivedHeld {
			target = s.archived
		} else {
			// The conversation-insert event or the next refresh brings
			// the conversation; nothing to attach the message to yet.
			s.log.Debug("message for unknown conversation",
				zap.Int64("conversation_id", msg.ConversationID),
				zap.Int64("message_id", msg.ID),
			)
			metrics.RecordPushEvent(table, op, "unknown_conversation")
			return
		}
	}

	if !target.UpsertMessage(msg.ConversationID, *msg) {
		metrics.RecordPushEvent(table, op, "duplicate")
		return
	}
	metrics.RecordPushEvent(table, op, "applied")

	if conv, ok := target.Get(msg.ConversationID); ok {
		s.cache.Set(msg.ConversationID, conv.Messages)
	}

	// Unread accounting reads the live active-conversation cell, never a
	// value captured at subscription time.
	if activeID, ok := s.active.Get(); ok && activeID == msg.ConversationID {
		target.SetUnread(msg.ConversationID, 0)
		s.dispatchMarkRead(msg.ConversationID)
	} else {
		target.IncrementUnread(msg.ConversationID)
	}
}

func (s *Session) handleConversationUpdate(conv *model.Conversation) {
	const table, op = "conversations", "update"

	if s.role == RoleCustomer {
		if conv.UserID != s.actorID {
			metrics.RecordPushEvent(table, op, "filtered")
			return
		}
		if conv.DeletedByUser {
			// Hidden from this customer's view, possibly from another tab.
			if _, _, ok := s.store.Remove(conv.ID); ok {
				metrics.RecordPushEvent(table, op, "applied")
			} else {
				metrics.RecordPushEvent(table, op, "unknown_conversation")
			}
			return
		}
		if s.store.MergeMetadata(*conv) {
			metrics.RecordPushEvent(table, op, "applied")
		} else {
			metrics.RecordPushEvent(table, op, "unknown_conversation")
		}
		return
	}

	// Admin: archive-flag changes move the conversation between the
	// active and archived lists; plain metadata updates merge in place,
	// always preserving the held message history.
	if conv.DeletedByAdmin {
		if removed, _, ok := s.store.Remove(conv.ID); ok {
			s.archived.Insert(*removed, true)
			// The same event row can carry status or priority changes
			// alongside the archive flag; merge them into the moved entry.
			s.archived.MergeMetadata(*conv)
			metrics.RecordPushEvent(table, op, "applied")
			return
		}
		if s.archived.MergeMetadata(*conv) {
			metrics.RecordPushEvent(table, op, "applied")
		} else {
			metrics.RecordPushEvent(table, op, "unknown_conversation")
		}
		return
	}

	if removed, _, ok := s.archived.Remove(conv.ID); ok {
		s.store.Insert(*removed, true)
		s.store.MergeMetadata(*conv)
		metrics.RecordPushEvent(table, op, "applied")
		return
	}
	if s.store.MergeMetadata(*conv) {
		metrics.RecordPushEvent(table, op, "applied")
	} else {
		metrics.RecordPushEvent(table, op, "unknown_conversation")
	}
}

func (s *Session) handleConversationInsert(conv *model.Conversation) {
	const table, op = "conversations", "insert"

	if s.role == RoleCustomer {
		if conv.UserID != s.actorID {
			metrics.RecordPushEvent(table, op, "filtered")
			return
		}
		// The insert may race a list refresh that already pulled it.
		if _, ok := s.store.Get(conv.ID); ok {
			metrics.RecordPushEvent(table, op, "duplicate")
			return
		}
		s.store.Insert(*conv, true)
		metrics.RecordPushEvent(table, op, "applied")
		return
	}

	// Admin: resolve the owner's display profile before inserting a
	// conversation the console has not seen.
	incoming := conv.Clone()
	if incoming.UserName == "" {
		incoming.UserName = s.resolveUserName(incoming.UserID)
	}

	if _, ok := s.store.Get(incoming.ID); ok {
		metrics.RecordPushEvent(table, op, "duplicate")
		return
	}
	s.store.Insert(*incoming, true)
	metrics.RecordPushEvent(table, op, "applied")
}

// resolveUserName looks up a customer's display name, falling back to a
// placeholder when the lookup fails.
func (s *Session) resolveUserName(userID string) string {
	ctx, cancel := context.WithTimeout(context.Background(), profileLookupTimeout)
	defer cancel()

	profile, err := s.backend.GetProfile(ctx, userID)
	if err != nil || profile == nil || profile.Name == "" {
		s.log.Warn("could not resolve user profile",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return "Unknown User"
	}
	return profile.Name
}
