// Package backend defines the abstract chat backend consumed by the sync
// core, and an HTTP implementation of it.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/commercekit/support-chat/internal/model"
)

// ErrAuthUnavailable means no valid session token could be obtained for
// an operation that requires one. It is never retried automatically.
var ErrAuthUnavailable = errors.New("no valid session token")

// ErrNotFound means the requested entity does not exist on the backend.
var ErrNotFound = errors.New("not found")

// StatusError is a non-2xx backend response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Code, e.Body)
}

// TokenSource supplies the bearer credential for outbound requests. It
// is the only coupling to the external identity provider.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to a TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

// Token implements TokenSource.
func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticToken returns a TokenSource yielding a fixed token.
func StaticToken(token string) TokenSource {
	return TokenFunc(func(context.Context) (string, error) {
		return token, nil
	})
}

// Client is the backend surface the sync core depends on.
type Client interface {
	// ListConversations returns the actor's conversation list, newest
	// activity first. Message lists may be empty; full history is loaded
	// per conversation via GetConversation.
	ListConversations(ctx context.Context, filters model.ListFilters) ([]model.Conversation, error)

	// GetConversation returns one conversation with its full message list.
	GetConversation(ctx context.Context, id int64) (*model.Conversation, error)

	// CreateConversation opens a conversation with an initial message.
	// The returned conversation includes that message.
	CreateConversation(ctx context.Context, subject, initialMessage string, priority model.Priority) (*model.Conversation, error)

	// SendMessage appends a message and returns the confirmed entity.
	SendMessage(ctx context.Context, conversationID int64, text string) (*model.Message, error)

	// UpdateConversation applies a partial metadata update.
	UpdateConversation(ctx context.Context, id int64, fields model.UpdateFields) (*model.Conversation, error)

	// DeleteConversation deletes, archives, or hides a conversation.
	DeleteConversation(ctx context.Context, id int64, deleteType model.DeleteType) error

	// MarkRead zeroes the actor's unread count for a conversation.
	// Best-effort; callers log failures instead of surfacing them.
	MarkRead(ctx context.Context, conversationID int64) error

	// GetProfile resolves a customer's display profile.
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
}
