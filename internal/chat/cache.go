package chat

import (
	"sync"

	"github.com/commercekit/support-chat/internal/model"
)

// MessageCache retains the last known message list per conversation,
// independent of the store's lifecycle, so list refreshes do not discard
// history the user has already loaded. Entries never expire by time;
// they are superseded only by a fresher Set.
//
// The cache is owned by one session: created at session start, dropped
// at close. It is never package-level state.
type MessageCache struct {
	mu sync.RWMutex
	m  map[int64][]model.Message
}

// NewMessageCache creates an empty cache.
func NewMessageCache() *MessageCache {
	return &MessageCache{m: make(map[int64][]model.Message)}
}

// Get returns a copy of the cached message list for a conversation.
func (c *MessageCache) Get(conversationID int64) ([]model.Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	msgs, ok := c.m[conversationID]
	if !ok {
		return nil, false
	}
	out := make([]model.Message, len(msgs))
	copy(out, msgs)
	return out, true
}

// Set stores a copy of the message list for a conversation.
func (c *MessageCache) Set(conversationID int64, messages []model.Message) {
	stored := make([]model.Message, len(messages))
	copy(stored, messages)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[conversationID] = stored
}

// Delete drops the cache entry for a conversation.
func (c *MessageCache) Delete(conversationID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, conversationID)
}
