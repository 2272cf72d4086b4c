package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercekit/support-chat/internal/model"
)

func baseTime() time.Time {
	return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
}

func testConversation(id int64) model.Conversation {
	return model.Conversation{
		ID:        id,
		UserID:    "user-1",
		Subject:   "Order never arrived",
		Status:    model.StatusOpen,
		Priority:  model.PriorityMedium,
		CreatedAt: baseTime(),
		UpdatedAt: baseTime(),
	}
}

func testMessage(id, convID int64, body string, at time.Time) model.Message {
	return model.Message{
		ID:             id,
		ConversationID: convID,
		SenderID:       "user-1",
		Body:           body,
		CreatedAt:      at,
	}
}

func TestStoreReplaceAllPreservesHeldMessages(t *testing.T) {
	s := NewStore()
	conv := testConversation(1)
	conv.Messages = []model.Message{
		testMessage(10, 1, "hello", baseTime()),
		testMessage(11, 1, "anyone there?", baseTime().Add(time.Minute)),
	}
	s.Insert(conv, false)

	// A list refresh returns conversations without message bodies.
	s.ReplaceAll([]model.Conversation{testConversation(1), testConversation(2)}, true, nil)

	got, ok := s.Get(1)
	require.True(t, ok)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, int64(10), got.Messages[0].ID)
	assert.Equal(t, 2, s.Len())
}

func TestStoreReplaceAllHeldHistoryBeatsFetchedPreview(t *testing.T) {
	s := NewStore()
	conv := testConversation(1)
	conv.Messages = []model.Message{
		testMessage(10, 1, "hello", baseTime()),
		testMessage(11, 1, "anyone there?", baseTime().Add(time.Minute)),
		testMessage(12, 1, "still waiting", baseTime().Add(2*time.Minute)),
	}
	s.Insert(conv, false)

	// The fetch carries a one-message preview list; it must not clobber
	// the full history already loaded.
	fetched := testConversation(1)
	fetched.Messages = []model.Message{testMessage(12, 1, "still waiting", baseTime().Add(2 * time.Minute))}
	s.ReplaceAll([]model.Conversation{fetched}, true, nil)

	got, ok := s.Get(1)
	require.True(t, ok)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, int64(10), got.Messages[0].ID)
}

func TestStoreReplaceAllFallsBackToCache(t *testing.T) {
	s := NewStore()
	cache := NewMessageCache()
	cache.Set(1, []model.Message{testMessage(10, 1, "cached", baseTime())})

	s.ReplaceAll([]model.Conversation{testConversation(1)}, true, cache)

	got, ok := s.Get(1)
	require.True(t, ok)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "cached", got.Messages[0].Body)
}

func TestStoreReplaceAllDropsEntriesWithoutID(t *testing.T) {
	s := NewStore()
	s.ReplaceAll([]model.Conversation{
		{Subject: "no id"},
		testConversation(1),
		testConversation(1),
	}, false, nil)

	assert.Equal(t, 1, s.Len())
}

func TestStoreUpsertMessageIgnoresDuplicates(t *testing.T) {
	s := NewStore()
	s.Insert(testConversation(1), false)

	msg := testMessage(10, 1, "hello", baseTime())
	require.True(t, s.UpsertMessage(1, msg))
	require.False(t, s.UpsertMessage(1, msg))

	got, ok := s.Get(1)
	require.True(t, ok)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "hello", got.LatestMessage)
	assert.Equal(t, baseTime(), got.LatestMessageAt)
}

func TestStoreUpsertMessageKeepsTimestampOrder(t *testing.T) {
	s := NewStore()
	s.Insert(testConversation(1), false)

	require.True(t, s.UpsertMessage(1, testMessage(11, 1, "second", baseTime().Add(time.Minute))))
	require.True(t, s.UpsertMessage(1, testMessage(10, 1, "first", baseTime())))

	got, ok := s.Get(1)
	require.True(t, ok)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "first", got.Messages[0].Body)
	assert.Equal(t, "second", got.Messages[1].Body)
	// The newest message still drives the preview fields.
	assert.Equal(t, "second", got.LatestMessage)
}

func TestStoreUpsertMessageUnknownConversation(t *testing.T) {
	s := NewStore()
	assert.False(t, s.UpsertMessage(99, testMessage(10, 99, "hello", baseTime())))
}

func TestStoreReplaceMessageSwapsPendingForConfirmed(t *testing.T) {
	s := NewStore()
	s.Insert(testConversation(1), false)

	pendingID := model.NextPendingID()
	pending := testMessage(pendingID, 1, "hello", baseTime())
	require.True(t, s.UpsertMessage(1, pending))

	server := testMessage(42, 1, "hello", baseTime().Add(time.Second))
	require.True(t, s.ReplaceMessage(1, pendingID, server))

	got, ok := s.Get(1)
	require.True(t, ok)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, int64(42), got.Messages[0].ID)
	assert.False(t, got.Messages[0].Pending())
}

func TestStoreReplaceMessageAfterPushWonRace(t *testing.T) {
	s := NewStore()
	s.Insert(testConversation(1), false)

	pendingID := model.NextPendingID()
	require.True(t, s.UpsertMessage(1, testMessage(pendingID, 1, "hello", baseTime())))

	// The push event delivers the confirmed row before the REST response.
	server := testMessage(42, 1, "hello", baseTime().Add(time.Second))
	require.True(t, s.UpsertMessage(1, server))

	require.True(t, s.ReplaceMessage(1, pendingID, server))

	got, ok := s.Get(1)
	require.True(t, ok)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, int64(42), got.Messages[0].ID)
}

func TestStoreMergeMetadataPreservesLocalState(t *testing.T) {
	s := NewStore()
	conv := testConversation(1)
	conv.Messages = []model.Message{testMessage(10, 1, "hello", baseTime())}
	conv.UnreadCount = 3
	conv.UserName = "Jane Doe"
	s.Insert(conv, false)

	incoming := testConversation(1)
	incoming.Status = model.StatusClosed
	incoming.UnreadCount = 99
	require.True(t, s.MergeMetadata(incoming))

	got, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, model.StatusClosed, got.Status)
	assert.Len(t, got.Messages, 1)
	assert.Equal(t, 3, got.UnreadCount)
	assert.Equal(t, "Jane Doe", got.UserName)
}

func TestStoreMergeMetadataUnknownConversation(t *testing.T) {
	s := NewStore()
	assert.False(t, s.MergeMetadata(testConversation(7)))
}

func TestStoreRemoveAndRestoreAtIndex(t *testing.T) {
	s := NewStore()
	s.Insert(testConversation(1), false)
	s.Insert(testConversation(2), false)
	s.Insert(testConversation(3), false)

	removed, index, ok := s.Remove(2)
	require.True(t, ok)
	require.Equal(t, 1, index)
	assert.Equal(t, 2, s.Len())

	s.InsertAt(*removed, index)
	list := s.List()
	require.Len(t, list, 3)
	assert.Equal(t, int64(2), list[1].ID)
}

func TestStoreSetUnreadClampsNegative(t *testing.T) {
	s := NewStore()
	s.Insert(testConversation(1), false)

	require.True(t, s.SetUnread(1, -5))
	got, _ := s.Get(1)
	assert.Equal(t, 0, got.UnreadCount)

	require.True(t, s.IncrementUnread(1))
	got, _ = s.Get(1)
	assert.Equal(t, 1, got.UnreadCount)
}

func TestStoreListReturnsDeepCopies(t *testing.T) {
	s := NewStore()
	conv := testConversation(1)
	conv.Messages = []model.Message{testMessage(10, 1, "hello", baseTime())}
	s.Insert(conv, false)

	list := s.List()
	list[0].Messages[0].Body = "mutated"
	list[0].Subject = "mutated"

	got, _ := s.Get(1)
	assert.Equal(t, "hello", got.Messages[0].Body)
	assert.Equal(t, "Order never arrived", got.Subject)
}

func TestMessageCacheCopiesOnReadAndWrite(t *testing.T) {
	cache := NewMessageCache()
	msgs := []model.Message{testMessage(10, 1, "hello", baseTime())}
	cache.Set(1, msgs)

	msgs[0].Body = "mutated"
	got, ok := cache.Get(1)
	require.True(t, ok)
	assert.Equal(t, "hello", got[0].Body)

	got[0].Body = "mutated again"
	again, _ := cache.Get(1)
	assert.Equal(t, "hello", again[0].Body)

	cache.Delete(1)
	_, ok = cache.Get(1)
	assert.False(t, ok)
}
