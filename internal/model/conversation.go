// Package model defines data structures shared by the chat sync core and
// the backend API.
package model

import (
	"time"
)

// Status represents the workflow state of a conversation.
type Status string

const (
	StatusOpen    Status = "open"
	StatusPending Status = "pending"
	StatusClosed  Status = "closed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusPending, StatusClosed:
		return true
	}
	return false
}

// Priority represents the urgency of a conversation.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// DeleteType selects the semantics of a conversation delete.
type DeleteType string

const (
	// DeletePermanent removes the conversation irrevocably.
	DeletePermanent DeleteType = "permanent"
	// DeleteAdminArchive hides the conversation from the admin's active
	// list; it stays fully functional for the customer.
	DeleteAdminArchive DeleteType = "admin_archive"
	// DeleteUserHide hides the conversation from the customer's view; it
	// stays fully functional for support agents.
	DeleteUserHide DeleteType = "user_hide"
)

// Valid reports whether d is a known delete type.
func (d DeleteType) Valid() bool {
	switch d {
	case DeletePermanent, DeleteAdminArchive, DeleteUserHide:
		return true
	}
	return false
}

// Conversation represents a support conversation thread.
//
// UnreadCount is actor-relative: for a customer it counts unseen agent
// messages, for an agent it counts unseen customer messages.
type Conversation struct {
	ID              int64     `json:"id"`
	UserID          string    `json:"user_id"`
	Subject         string    `json:"subject"`
	Status          Status    `json:"status"`
	Priority        Priority  `json:"priority"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Messages        []Message `json:"messages,omitempty"`
	UnreadCount     int       `json:"unread_count"`
	LatestMessage   string    `json:"latest_message,omitempty"`
	LatestMessageAt time.Time `json:"latest_message_at,omitempty"`
	DeletedByAdmin  bool      `json:"deleted_by_admin,omitempty"`
	DeletedByUser   bool      `json:"deleted_by_user,omitempty"`

	// UserName is the owning customer's display name, resolved lazily on
	// the admin side. Empty until resolved.
	UserName string `json:"user_name,omitempty"`
}

// Clone returns a deep copy, including the message list.
func (c *Conversation) Clone() *Conversation {
	out := *c
	if c.Messages != nil {
		out.Messages = make([]Message, len(c.Messages))
		copy(out.Messages, c.Messages)
	}
	return &out
}

// Profile is a customer's display profile as seen by support agents.
type Profile struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
}

// ListFilters narrows a conversation list request.
type ListFilters struct {
	Status   *Status
	Priority *Priority
	// Archived selects the admin's archived view instead of the active one.
	Archived bool
}

// UpdateFields is a partial conversation update. Nil fields are untouched.
type UpdateFields struct {
	Status         *Status   `json:"status,omitempty"`
	Priority       *Priority `json:"priority,omitempty"`
	DeletedByAdmin *bool     `json:"deleted_by_admin,omitempty"`
	DeletedByUser  *bool     `json:"deleted_by_user,omitempty"`
}

// CreateConversationRequest is the request to open a new conversation.
type CreateConversationRequest struct {
	Subject  string   `json:"subject"`
	Message  string   `json:"message"`
	Priority Priority `json:"priority,omitempty"`
}

// DeleteConversationResponse is the response for a delete request.
type DeleteConversationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// MarkReadResponse is the response for a mark-read request.
type MarkReadResponse struct {
	Success bool `json:"success"`
}
