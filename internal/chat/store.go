// Package chat implements the client-side conversation synchronization
// core shared by the customer widget and the admin console: the
// conversation store, message cache, optimistic mutation engine,
// pending-delete confirmation, and the live update listener.
package chat

import (
	"sort"
	"sync"

	"github.com/commercekit/support-chat/internal/model"
)

// Store holds one actor's ordered conversation list. It is a client-side
// projection of server-owned truth: everything in it can be rebuilt by
// re-fetching from the backend.
//
// Mutations take the lock once and run as a single state transition, so
// the live listener goroutine and UI callers never observe a half-applied
// update.
type Store struct {
	mu    sync.Mutex
	convs []*model.Conversation
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Len returns the number of held conversations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.convs)
}

// List returns a deep copy of the held conversations in order.
func (s *Store) List() []*model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Conversation, len(s.convs))
	for i, c := range s.convs {
		out[i] = c.Clone()
	}
	return out
}

// Get returns a deep copy of the conversation with the given id.
func (s *Store) Get(id int64) (*model.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c := s.findLocked(id); c != nil {
		return c.Clone(), true
	}
	return nil, false
}

// ReplaceAll sets the full list from a fresh fetch, keeping server order.
// Entries without an id are dropped. When preserveMessages is true, a
// previously held non-empty message list always wins over whatever the
// fetch returned for the same conversation, even a non-empty preview
// list; conversations with no held history fall back to the cache.
func (s *Store) ReplaceAll(convs []model.Conversation, preserveMessages bool, cache *MessageCache) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prior := make(map[int64]*model.Conversation, len(s.convs))
	for _, c := range s.convs {
		prior[c.ID] = c
	}

	next := make([]*model.Conversation, 0, len(convs))
	for i := range convs {
		if convs[i].ID == 0 {
			continue
		}
		c := convs[i].Clone()
		if preserveMessages {
			if old, ok := prior[c.ID]; ok && len(old.Messages) > 0 {
				c.Messages = make([]model.Message, len(old.Messages))
				copy(c.Messages, old.Messages)
			} else if len(c.Messages) == 0 && cache != nil {
				if cached, ok := cache.Get(c.ID); ok {
					c.Messages = cached
				}
			}
		}
		next = append(next, c)
	}

	s.convs = next
	s.dedupeLocked()
}

// UpsertMessage appends msg to the target conversation unless a message
// with the same id is already present. It reports whether the message
// was appended. Denormalized preview fields are refreshed on append.
func (s *Store) UpsertMessage(conversationID int64, msg model.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.findLocked(conversationID)
	if conv == nil {
		return false
	}
	for i := range conv.Messages {
		if conv.Messages[i].ID == msg.ID {
			return false
		}
	}

	insertByCreatedAtLocked(conv, msg)
	touchLatestLocked(conv, msg)
	return true
}

// ReplaceMessage removes the pending entry and inserts the confirmed
// server message in timestamp order. If the confirmed message is already
// present (a push event won the race), the pending entry is still
// removed and no duplicate is inserted. Reports whether the pending
// entry was found.
func (s *Store) ReplaceMessage(conversationID, pendingID int64, server model.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.findLocked(conversationID)
	if conv == nil {
		return false
	}

	removed := removeMessageLocked(conv, pendingID)

	for i := range conv.Messages {
		if conv.Messages[i].ID == server.ID {
			return removed
		}
	}
	insertByCreatedAtLocked(conv, server)
	touchLatestLocked(conv, server)
	return removed
}

// RemoveMessage deletes the message with the given id, used for
// optimistic-send rollback. Reports whether it was present.
func (s *Store) RemoveMessage(conversationID, messageID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.findLocked(conversationID)
	if conv == nil {
		return false
	}
	return removeMessageLocked(conv, messageID)
}

// SetMessages replaces a conversation's message list wholesale, e.g.
// after loading full history.
func (s *Store) SetMessages(conversationID int64, messages []model.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.findLocked(conversationID)
	if conv == nil {
		return false
	}
	conv.Messages = make([]model.Message, len(messages))
	copy(conv.Messages, messages)
	sort.SliceStable(conv.Messages, func(i, j int) bool {
		return conv.Messages[i].CreatedAt.Before(conv.Messages[j].CreatedAt)
	})
	dedupeMessagesLocked(conv)
	return true
}

// SetUnread sets the unread counter.
func (s *Store) SetUnread(conversationID int64, count int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.findLocked(conversationID)
	if conv == nil {
		return false
	}
	if count < 0 {
		count = 0
	}
	conv.UnreadCount = count
	return true
}

// IncrementUnread bumps the unread counter by one.
func (s *Store) IncrementUnread(conversationID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.findLocked(conversationID)
	if conv == nil {
		return false
	}
	conv.UnreadCount++
	return true
}

// Remove deletes the conversation and returns a copy plus its former
// index, so a failed backend call can restore it in place.
func (s *Store) Remove(id int64) (*model.Conversation, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.convs {
		if c.ID == id {
			removed := c.Clone()
			s.convs = append(s.convs[:i], s.convs[i+1:]...)
			return removed, i, true
		}
	}
	return nil, 0, false
}

// Insert adds a conversation at the front or back of the list.
func (s *Store) Insert(conv model.Conversation, atFront bool) {
	idx := -1
	if atFront {
		idx = 0
	}
	s.InsertAt(conv, idx)
}

// InsertAt adds a conversation at the given index; an out-of-range index
// appends. Existing entries with the same id are collapsed.
func (s *Store) InsertAt(conv model.Conversation, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := conv.Clone()
	if index < 0 || index > len(s.convs) {
		s.convs = append(s.convs, c)
	} else {
		s.convs = append(s.convs[:index], append([]*model.Conversation{c}, s.convs[index:]...)...)
	}
	s.dedupeLocked()
}

// MergeMetadata merges incoming conversation fields into the held entry,
// always preserving the locally held message list and unread counter:
// metadata updates must never truncate message history, and unread
// bookkeeping is owned by the listener's accounting rules. Reports
// whether the conversation was held.
func (s *Store) MergeMetadata(incoming model.Conversation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.findLocked(incoming.ID)
	if conv == nil {
		return false
	}

	messages := conv.Messages
	unread := conv.UnreadCount
	userName := conv.UserName

	*conv = incoming
	conv.Messages = messages
	conv.UnreadCount = unread
	if conv.UserName == "" {
		conv.UserName = userName
	}
	return true
}

func (s *Store) findLocked(id int64) *model.Conversation {
	for _, c := range s.convs {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// dedupeLocked collapses conversations sharing an id to the first
// occurrence. Duplicate push events and overlapping fetches can both
// produce doubles.
func (s *Store) dedupeLocked() {
	seen := make(map[int64]struct{}, len(s.convs))
	out := s.convs[:0]
	for _, c := range s.convs {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	s.convs = out
}

func removeMessageLocked(conv *model.Conversation, messageID int64) bool {
	for i := range conv.Messages {
		if conv.Messages[i].ID == messageID {
			conv.Messages = append(conv.Messages[:i], conv.Messages[i+1:]...)
			return true
		}
	}
	return false
}

// insertByCreatedAtLocked inserts keeping created_at ascending order, so
// server-confirmed history cannot be reordered by client clock skew.
func insertByCreatedAtLocked(conv *model.Conversation, msg model.Message) {
	i := len(conv.Messages)
	for i > 0 && conv.Messages[i-1].CreatedAt.After(msg.CreatedAt) {
		i--
	}
	conv.Messages = append(conv.Messages, model.Message{})
	copy(conv.Messages[i+1:], conv.Messages[i:])
	conv.Messages[i] = msg
}

func touchLatestLocked(conv *model.Conversation, msg model.Message) {
	if msg.CreatedAt.After(conv.LatestMessageAt) || conv.LatestMessage == "" {
		conv.LatestMessage = msg.Body
		conv.LatestMessageAt = msg.CreatedAt
	}
	if msg.CreatedAt.After(conv.UpdatedAt) {
		conv.UpdatedAt = msg.CreatedAt
	}
}

func dedupeMessagesLocked(conv *model.Conversation) {
	seen := make(map[int64]struct{}, len(conv.Messages))
	out := conv.Messages[:0]
	for _, m := range conv.Messages {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	conv.Messages = out
}
