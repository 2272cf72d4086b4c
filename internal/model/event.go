package model

import (
	"encoding/json"
	"fmt"
)

// Table identifies which backend table a push event describes.
type Table string

const (
	TableMessages      Table = "messages"
	TableConversations Table = "conversations"
)

// Operation identifies the row-level change a push event describes.
type Operation string

const (
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
)

// Event is a decoded push channel notification. Exactly one of Message
// and Conversation is set, matching Table.
type Event struct {
	Table Table
	Op    Operation

	Message      *Message
	Conversation *Conversation
}

// envelope is the wire form of a push event.
type envelope struct {
	Table string          `json:"table"`
	Event string          `json:"event"`
	Row   json.RawMessage `json:"row"`
}

// NewMessageEvent builds a message event.
func NewMessageEvent(op Operation, msg *Message) *Event {
	return &Event{Table: TableMessages, Op: op, Message: msg}
}

// NewConversationEvent builds a conversation event.
func NewConversationEvent(op Operation, conv *Conversation) *Event {
	return &Event{Table: TableConversations, Op: op, Conversation: conv}
}

// Encode marshals the event into its wire envelope.
func (e *Event) Encode() ([]byte, error) {
	var row any
	switch e.Table {
	case TableMessages:
		if e.Message == nil {
			return nil, fmt.Errorf("message event without message row")
		}
		row = e.Message
	case TableConversations:
		if e.Conversation == nil {
			return nil, fmt.Errorf("conversation event without conversation row")
		}
		row = e.Conversation
	default:
		return nil, fmt.Errorf("unknown event table %q", e.Table)
	}

	raw, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("marshal event row: %w", err)
	}

	return json.Marshal(envelope{
		Table: string(e.Table),
		Event: string(e.Op),
		Row:   raw,
	})
}

// DecodeEvent parses and validates a wire envelope. Unknown tables or
// operations are rejected here so downstream handling can match the
// tagged union exhaustively instead of sniffing fields.
func DecodeEvent(data []byte) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}

	var op Operation
	switch Operation(env.Event) {
	case OpInsert:
		op = OpInsert
	case OpUpdate:
		op = OpUpdate
	default:
		return nil, fmt.Errorf("unknown event operation %q", env.Event)
	}

	switch Table(env.Table) {
	case TableMessages:
		var msg Message
		if err := json.Unmarshal(env.Row, &msg); err != nil {
			return nil, fmt.Errorf("decode message row: %w", err)
		}
		if msg.ID == 0 || msg.ConversationID == 0 {
			return nil, fmt.Errorf("message row missing id")
		}
		return &Event{Table: TableMessages, Op: op, Message: &msg}, nil
	case TableConversations:
		var conv Conversation
		if err := json.Unmarshal(env.Row, &conv); err != nil {
			return nil, fmt.Errorf("decode conversation row: %w", err)
		}
		if conv.ID == 0 {
			return nil, fmt.Errorf("conversation row missing id")
		}
		return &Event{Table: TableConversations, Op: op, Conversation: &conv}, nil
	default:
		return nil, fmt.Errorf("unknown event table %q", env.Table)
	}
}
