package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercekit/support-chat/internal/model"
)

func adminReply(id, convID int64, at time.Time) *model.Message {
	return &model.Message{
		ID:             id,
		ConversationID: convID,
		SenderID:       "agent-7",
		Body:           "We are looking into it",
		IsAdmin:        true,
		CreatedAt:      at,
	}
}

func TestListenerDuplicateMessageAppliedOnce(t *testing.T) {
	fb := newFakeBackend()
	s, _ := newTestSession(t, RoleCustomer, fb)
	s.Store().Insert(testConversation(1), false)

	ev := model.NewMessageEvent(model.OpInsert, adminReply(42, 1, baseTime()))
	s.handleEvent(ev)
	s.handleEvent(ev)

	conv, ok := s.Store().Get(1)
	require.True(t, ok)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, 1, conv.UnreadCount)
}

func TestListenerIgnoresOwnMessages(t *testing.T) {
	fb := newFakeBackend()
	s, _ := newTestSession(t, RoleCustomer, fb)
	s.Store().Insert(testConversation(1), false)

	own := &model.Message{
		ID:             42,
		ConversationID: 1,
		SenderID:       "user-1",
		Body:           "hello",
		CreatedAt:      baseTime(),
	}
	s.handleEvent(model.NewMessageEvent(model.OpInsert, own))

	conv, _ := s.Store().Get(1)
	assert.Empty(t, conv.Messages)
	assert.Zero(t, conv.UnreadCount)
}

func TestListenerCustomerIgnoresCustomerMessages(t *testing.T) {
	fb := newFakeBackend()
	s, _ := newTestSession(t, RoleCustomer, fb)
	s.Store().Insert(testConversation(1), false)

	other := &model.Message{
		ID:             42,
		ConversationID: 1,
		SenderID:       "user-2",
		Body:           "not for this widget",
		CreatedAt:      baseTime(),
	}
	s.handleEvent(model.NewMessageEvent(model.OpInsert, other))

	conv, _ := s.Store().Get(1)
	assert.Empty(t, conv.Messages)
}

func TestListenerUnknownConversationDropsMessage(t *testing.T) {
	fb := newFakeBackend()
	s, _ := newTestSession(t, RoleCustomer, fb)

	s.handleEvent(model.NewMessageEvent(model.OpInsert, adminReply(42, 99, baseTime())))
	assert.Zero(t, s.Store().Len())
}

func TestListenerActiveConversationStaysRead(t *testing.T) {
	fb := newFakeBackend()
	s, _ := newTestSession(t, RoleCustomer, fb)
	s.Store().Insert(testConversation(1), false)
	s.SetActive(1)

	s.handleEvent(model.NewMessageEvent(model.OpInsert, adminReply(42, 1, baseTime())))

	conv, _ := s.Store().Get(1)
	require.Len(t, conv.Messages, 1)
	assert.Zero(t, conv.UnreadCount)

	// SetActive and the insert each issue a best-effort mark-read.
	require.Eventually(t, func() bool {
		return fb.markReadCount() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestListenerInactiveConversationAccumulatesUnread(t *testing.T) {
	fb := newFakeBackend()
	s, _ := newTestSession(t, RoleCustomer, fb)
	s.Store().Insert(testConversation(1), false)
	s.Store().Insert(testConversation(2), false)
	s.SetActive(2)

	s.handleEvent(model.NewMessageEvent(model.OpInsert, adminReply(42, 1, baseTime())))
	s.handleEvent(model.NewMessageEvent(model.OpInsert, adminReply(43, 1, baseTime().Add(time.Second))))

	conv, _ := s.Store().Get(1)
	assert.Equal(t, 2, conv.UnreadCount)
}

func TestListenerSwitchingActiveChangesAccounting(t *testing.T) {
	fb := newFakeBackend()
	s, _ := newTestSession(t, RoleCustomer, fb)
	s.Store().Insert(testConversation(1), false)

	s.handleEvent(model.NewMessageEvent(model.OpInsert, adminReply(42, 1, baseTime())))
	conv, _ := s.Store().Get(1)
	require.Equal(t, 1, conv.UnreadCount)

	// Opening the conversation after the fact zeroes the counter; the
	// listener reads the live cell, not a snapshot.
	s.SetActive(1)
	s.handleEvent(model.NewMessageEvent(model.OpInsert, adminReply(43, 1, baseTime().Add(time.Second))))

	conv, _ = s.Store().Get(1)
	assert.Zero(t, conv.UnreadCount)
	require.Len(t, conv.Messages, 2)
}

func TestListenerConversationUpdatePreservesHistory(t *testing.T) {
	fb := newFakeBackend()
	s, _ := newTestSession(t, RoleCustomer, fb)

	conv := testConversation(1)
	conv.Messages = []model.Message{testMessage(10, 1, "hello", baseTime())}
	conv.UnreadCount = 2
	s.Store().Insert(conv, false)

	incoming := testConversation(1)
	incoming.Status = model.StatusClosed
	incoming.UnreadCount = 0
	s.handleEvent(model.NewConversationEvent(model.OpUpdate, &incoming))

	got, _ := s.Store().Get(1)
	assert.Equal(t, model.StatusClosed, got.Status)
	assert.Len(t, got.Messages, 1)
	assert.Equal(t, 2, got.UnreadCount)
}

func TestListenerCustomerFiltersForeignUpdates(t *testing.T) {
	fb := newFakeBackend()
	s, _ := newTestSession(t, RoleCustomer, fb)
	s.Store().Insert(testConversation(1), false)

	incoming := testConversation(1)
	incoming.UserID = "user-2"
	incoming.Status = model.StatusClosed
	s.handleEvent(model.NewConversationEvent(model.OpUpdate, &incoming))

	got, _ := s.Store().Get(1)
	assert.Equal(t, model.StatusOpen, got.Status)
}

func TestListenerCustomerHiddenConversationRemoved(t *testing.T) {
	fb := newFakeBackend()
	s, _ := newTestSession(t, RoleCustomer, fb)
	s.Store().Insert(testConversation(1), false)

	incoming := testConversation(1)
	incoming.DeletedByUser = true
	s.handleEvent(model.NewConversationEvent(model.OpUpdate, &incoming))

	assert.Zero(t, s.Store().Len())
}

func TestListenerAdminArchiveFlagMovesConversation(t *testing.T) {
	fb := newFakeBackend()
	s, _ := newTestSession(t, RoleAdmin, fb)

	conv := testConversation(1)
	conv.Messages = []model.Message{testMessage(10, 1, "hello", baseTime())}
	s.Store().Insert(conv, false)

	archived := testConversation(1)
	archived.DeletedByAdmin = true
	s.handleEvent(model.NewConversationEvent(model.OpUpdate, &archived))

	assert.Zero(t, s.Store().Len())
	moved, ok := s.Archived().Get(1)
	require.True(t, ok)
	assert.True(t, moved.DeletedByAdmin)
	assert.Len(t, moved.Messages, 1)

	restored := testConversation(1)
	restored.DeletedByAdmin = false
	s.handleEvent(model.NewConversationEvent(model.OpUpdate, &restored))

	assert.Zero(t, s.Archived().Len())
	back, ok := s.Store().Get(1)
	require.True(t, ok)
	assert.False(t, back.DeletedByAdmin)
	assert.Len(t, back.Messages, 1)
}

func TestListenerArchiveMoveCarriesMetadataChanges(t *testing.T) {
	fb := newFakeBackend()
	s, _ := newTestSession(t, RoleAdmin, fb)

	conv := testConversation(1)
	conv.Messages = []model.Message{testMessage(10, 1, "hello", baseTime())}
	conv.UnreadCount = 2
	s.Store().Insert(conv, false)

	// The archiving agent closed the conversation in the same update.
	incoming := testConversation(1)
	incoming.DeletedByAdmin = true
	incoming.Status = model.StatusClosed
	incoming.Priority = model.PriorityLow
	s.handleEvent(model.NewConversationEvent(model.OpUpdate, &incoming))

	moved, ok := s.Archived().Get(1)
	require.True(t, ok)
	assert.True(t, moved.DeletedByAdmin)
	assert.Equal(t, model.StatusClosed, moved.Status)
	assert.Equal(t, model.PriorityLow, moved.Priority)
	assert.Len(t, moved.Messages, 1)
	assert.Equal(t, 2, moved.UnreadCount)

	restored := incoming
	restored.DeletedByAdmin = false
	restored.Status = model.StatusOpen
	s.handleEvent(model.NewConversationEvent(model.OpUpdate, &restored))

	back, ok := s.Store().Get(1)
	require.True(t, ok)
	assert.False(t, back.DeletedByAdmin)
	assert.Equal(t, model.StatusOpen, back.Status)
	assert.Len(t, back.Messages, 1)
}

func TestListenerCustomerInsertDedupes(t *testing.T) {
	fb := newFakeBackend()
	s, _ := newTestSession(t, RoleCustomer, fb)

	conv := testConversation(5)
	s.handleEvent(model.NewConversationEvent(model.OpInsert, &conv))
	s.handleEvent(model.NewConversationEvent(model.OpInsert, &conv))

	assert.Equal(t, 1, s.Store().Len())
}

func TestListenerCustomerInsertFiltersForeign(t *testing.T) {
	fb := newFakeBackend()
	s, _ := newTestSession(t, RoleCustomer, fb)

	conv := testConversation(5)
	conv.UserID = "user-2"
	s.handleEvent(model.NewConversationEvent(model.OpInsert, &conv))

	assert.Zero(t, s.Store().Len())
}

func TestListenerAdminInsertResolvesProfile(t *testing.T) {
	fb := newFakeBackend()
	fb.profiles["user-1"] = model.Profile{UserID: "user-1", Name: "Jane Doe"}
	s, _ := newTestSession(t, RoleAdmin, fb)
	s.actorID = "agent-7"

	conv := testConversation(5)
	s.handleEvent(model.NewConversationEvent(model.OpInsert, &conv))

	got, ok := s.Store().Get(5)
	require.True(t, ok)
	assert.Equal(t, "Jane Doe", got.UserName)
}

func TestListenerAdminInsertFallsBackOnLookupFailure(t *testing.T) {
	fb := newFakeBackend()
	fb.profileErr = assert.AnError
	s, _ := newTestSession(t, RoleAdmin, fb)
	s.actorID = "agent-7"

	conv := testConversation(5)
	s.handleEvent(model.NewConversationEvent(model.OpInsert, &conv))

	got, ok := s.Store().Get(5)
	require.True(t, ok)
	assert.Equal(t, "Unknown User", got.UserName)
}

func TestListenerAdminInsertKeepsProvidedName(t *testing.T) {
	fb := newFakeBackend()
	s, _ := newTestSession(t, RoleAdmin, fb)
	s.actorID = "agent-7"

	conv := testConversation(5)
	conv.UserName = "Prefilled"
	s.handleEvent(model.NewConversationEvent(model.OpInsert, &conv))

	got, _ := s.Store().Get(5)
	assert.Equal(t, "Prefilled", got.UserName)
}

func TestListenerArchivedConversationStillReceivesMessages(t *testing.T) {
	fb := newFakeBackend()
	s, _ := newTestSession(t, RoleAdmin, fb)
	s.actorID = "agent-7"

	conv := testConversation(1)
	conv.DeletedByAdmin = true
	s.Archived().Insert(conv, false)

	msg := &model.Message{
		ID:             42,
		ConversationID: 1,
		SenderID:       "user-1",
		Body:           "still need help",
		CreatedAt:      baseTime(),
	}
	s.handleEvent(model.NewMessageEvent(model.OpInsert, msg))

	got, ok := s.Archived().Get(1)
	require.True(t, ok)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, 1, got.UnreadCount)
}
