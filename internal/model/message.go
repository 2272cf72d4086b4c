package model

import (
	"sync/atomic"
	"time"
)

// Message represents one chat message.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Body           string    `json:"message"`
	IsAdmin        bool      `json:"is_admin"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"created_at"`
}

// Pending reports whether the message carries a client-assigned pending
// ID, i.e. it has not been confirmed by the backend yet.
func (m *Message) Pending() bool {
	return IsPendingID(m.ID)
}

// PendingIDBase is the upper bound (inclusive) of the pending ID range.
// Server-assigned IDs are positive, so the range can never collide with
// a confirmed entity, and pending entries are replaced by handle rather
// than by clock-derived ID match.
const PendingIDBase int64 = -(1 << 40)

var pendingSeq atomic.Int64

// NextPendingID returns a fresh ID from the pending range. IDs are unique
// within the process and strictly decreasing.
func NextPendingID() int64 {
	return PendingIDBase - pendingSeq.Add(1)
}

// IsPendingID reports whether id belongs to the pending range.
func IsPendingID(id int64) bool {
	return id <= PendingIDBase
}

// SendMessageRequest is the request to append a message to a conversation.
type SendMessageRequest struct {
	Message string `json:"message"`
}
