package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/commercekit/support-chat/internal/backend"
	"github.com/commercekit/support-chat/internal/model"
	"github.com/commercekit/support-chat/internal/push"
	"github.com/commercekit/support-chat/pkg/logger"
	"github.com/commercekit/support-chat/pkg/metrics"
)

// Role identifies which side of the chat an actor is on.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// ListenerState is the live update listener's lifecycle state.
type ListenerState string

const (
	ListenerUnsubscribed ListenerState = "unsubscribed"
	ListenerSubscribing  ListenerState = "subscribing"
	ListenerSubscribed   ListenerState = "subscribed"
	ListenerError        ListenerState = "error"
)

// Options configures a Session.
type Options struct {
	Role    Role
	ActorID string

	Backend backend.Client
	Push    *push.Client

	// Notifier receives user-facing success/error feedback. Defaults to
	// NopNotifier.
	Notifier Notifier

	// PendingDeleteTTL overrides the permanent-delete confirmation
	// window. Defaults to DefaultPendingDeleteTTL.
	PendingDeleteTTL time.Duration

	Logger *logger.Logger
}

// Session owns one actor's in-memory chat state: the conversation store
// (plus the archived store for admins), the message cache, the active
// conversation cell, pending deletes, and the live push subscription.
// Everything in it is torn down at Close; nothing survives logout.
type Session struct {
	role    Role
	actorID string

	backend  backend.Client
	pushc    *push.Client
	store    *Store
	archived *Store
	cache    *MessageCache
	active   activeConversation
	pending  *pendingDeletes
	notifier Notifier
	tasks    *taskRunner
	log      *logger.Logger

	mu       sync.Mutex
	state    ListenerState
	sub      *push.Subscription
	inflight map[string]bool
}

// NewSession creates a session for one actor. Call Start to begin
// receiving live updates and Close at logout.
func NewSession(opts Options) *Session {
	log := opts.Logger
	if log == nil {
		log = logger.Global()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = NopNotifier{}
	}

	s := &Session{
		role:     opts.Role,
		actorID:  opts.ActorID,
		backend:  opts.Backend,
		pushc:    opts.Push,
		store:    NewStore(),
		archived: NewStore(),
		cache:    NewMessageCache(),
		notifier: notifier,
		tasks:    newTaskRunner(log),
		log:      log.WithActor(opts.ActorID, opts.Role == RoleAdmin),
		state:    ListenerUnsubscribed,
		inflight: make(map[string]bool),
	}
	s.pending = newPendingDeletes(opts.PendingDeleteTTL, func(id int64) {
		s.log.Debug("pending delete expired", zap.Int64("conversation_id", id))
	})
	return s
}

// Store returns the active conversation list.
func (s *Session) Store() *Store {
	return s.store
}

// Archived returns the archived conversation list (admin view).
func (s *Session) Archived() *Store {
	return s.archived
}

// Cache returns the session's message cache.
func (s *Session) Cache() *MessageCache {
	return s.cache
}

// Role returns the session's actor role.
func (s *Session) Role() Role {
	return s.role
}

// Start subscribes to the push channel for this actor's scope. A prior
// subscription is torn down first so the session never holds two
// overlapping subscriptions.
func (s *Session) Start() error {
	if s.pushc == nil {
		return fmt.Errorf("%w: no push client configured", ErrNotStarted)
	}

	s.mu.Lock()
	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil {
			s.log.Warn("failed to release stale subscription", zap.Error(err))
		}
		s.sub = nil
		metrics.LiveListenersActive.Dec()
	}
	s.state = ListenerSubscribing
	s.mu.Unlock()

	scope := push.AdminScope()
	if s.role == RoleCustomer {
		scope = push.CustomerScope(s.actorID)
	}

	sub, err := s.pushc.Subscribe(scope, s.handleEvent)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = ListenerError
		s.log.Error("push subscription failed", zap.Error(err))
		return fmt.Errorf("subscribe push channel: %w", err)
	}
	s.sub = sub
	s.state = ListenerSubscribed
	metrics.LiveListenersActive.Inc()
	s.log.Info("live updates subscribed", zap.String("role", string(s.role)))
	return nil
}

// ListenerState returns the live listener's current state.
func (s *Session) ListenerState() ListenerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Refresh re-fetches the conversation list, preserving locally known
// messages across the replace. With filters.Archived set it refreshes
// the archived store instead.
func (s *Session) Refresh(ctx context.Context, filters model.ListFilters) error {
	convs, err := s.backend.ListConversations(ctx, filters)
	if err != nil {
		return fmt.Errorf("refresh conversations: %w", err)
	}

	target := s.store
	if filters.Archived {
		target = s.archived
	}
	target.ReplaceAll(convs, true, s.cache)
	return nil
}

// Open loads a conversation's full history, marks it active, zeroes its
// unread count, and issues a best-effort mark-read.
func (s *Session) Open(ctx context.Context, id int64) (*model.Conversation, error) {
	conv, err := s.backend.GetConversation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("open conversation %d: %w", id, err)
	}

	if !s.store.SetMessages(id, conv.Messages) {
		s.store.Insert(*conv, true)
	}
	s.cache.Set(id, conv.Messages)

	s.SetActive(id)
	return conv, nil
}

// SetActive marks the conversation as currently open, zeroing its unread
// count and issuing a best-effort mark-read.
func (s *Session) SetActive(id int64) {
	s.active.Set(id)
	s.store.SetUnread(id, 0)
	s.dispatchMarkRead(id)
}

// ClearActive marks that no conversation is open.
func (s *Session) ClearActive() {
	s.active.Clear()
}

// Close releases the push subscription, stops pending-delete timers, and
// shuts down the background task runner.
func (s *Session) Close() {
	s.mu.Lock()
	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil {
			s.log.Warn("failed to unsubscribe push channel", zap.Error(err))
		}
		s.sub = nil
		metrics.LiveListenersActive.Dec()
	}
	s.state = ListenerUnsubscribed
	s.mu.Unlock()

	s.pending.Close()
	s.tasks.Close()
}

// dispatchMarkRead queues the fire-and-forget mark-read call.
func (s *Session) dispatchMarkRead(conversationID int64) {
	s.tasks.Dispatch("mark-read", func(ctx context.Context) error {
		if err := s.backend.MarkRead(ctx, conversationID); err != nil {
			metrics.MarkReadFailuresTotal.Inc()
			return fmt.Errorf("mark read %d: %w", conversationID, err)
		}
		return nil
	})
}

// begin marks a mutation in flight, returning false if the identical
// mutation is already outstanding. Unrelated mutations are not blocked.
func (s *Session) begin(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[key] {
		return false
	}
	s.inflight[key] = true
	return true
}

func (s *Session) end(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, key)
}
