package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventEncodeDecodeMessage(t *testing.T) {
	msg := &Message{
		ID:             42,
		ConversationID: 7,
		SenderID:       "agent-7",
		Body:           "We are looking into it",
		IsAdmin:        true,
		CreatedAt:      time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}

	raw, err := NewMessageEvent(OpInsert, msg).Encode()
	require.NoError(t, err)

	decoded, err := DecodeEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, TableMessages, decoded.Table)
	assert.Equal(t, OpInsert, decoded.Op)
	require.NotNil(t, decoded.Message)
	assert.Nil(t, decoded.Conversation)
	assert.Equal(t, int64(42), decoded.Message.ID)
	assert.Equal(t, int64(7), decoded.Message.ConversationID)
	assert.True(t, decoded.Message.IsAdmin)
	assert.Equal(t, "We are looking into it", decoded.Message.Body)
}

func TestEventEncodeDecodeConversation(t *testing.T) {
	conv := &Conversation{
		ID:       7,
		UserID:   "user-1",
		Subject:  "Order never arrived",
		Status:   StatusOpen,
		Priority: PriorityHigh,
	}

	raw, err := NewConversationEvent(OpUpdate, conv).Encode()
	require.NoError(t, err)

	decoded, err := DecodeEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, TableConversations, decoded.Table)
	assert.Equal(t, OpUpdate, decoded.Op)
	require.NotNil(t, decoded.Conversation)
	assert.Nil(t, decoded.Message)
	assert.Equal(t, StatusOpen, decoded.Conversation.Status)
}

func TestDecodeEventRejectsUnknownTable(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"table":"orders","event":"insert","row":{"id":1}}`))
	require.Error(t, err)
}

func TestDecodeEventRejectsUnknownOperation(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"table":"messages","event":"delete","row":{"id":1,"conversation_id":2}}`))
	require.Error(t, err)
}

func TestDecodeEventRejectsMissingIDs(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"table":"messages","event":"insert","row":{"message":"hi"}}`))
	require.Error(t, err)

	_, err = DecodeEvent([]byte(`{"table":"conversations","event":"update","row":{"subject":"hi"}}`))
	require.Error(t, err)
}

func TestDecodeEventRejectsMalformedJSON(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"table":`))
	require.Error(t, err)
}

func TestEventEncodeRequiresMatchingRow(t *testing.T) {
	_, err := (&Event{Table: TableMessages, Op: OpInsert}).Encode()
	require.Error(t, err)

	_, err = (&Event{Table: TableConversations, Op: OpInsert}).Encode()
	require.Error(t, err)
}

func TestPendingIDSpaceIsDisjoint(t *testing.T) {
	first := NextPendingID()
	second := NextPendingID()

	assert.NotEqual(t, first, second)
	assert.True(t, IsPendingID(first))
	assert.True(t, IsPendingID(second))
	assert.False(t, IsPendingID(42))

	msg := Message{ID: first}
	assert.True(t, msg.Pending())
}
