package chat

import (
	"sync"
	"time"

	"github.com/commercekit/support-chat/internal/model"
)

// DefaultPendingDeleteTTL is how long a permanent-delete request waits
// for confirmation before expiring.
const DefaultPendingDeleteTTL = 10 * time.Second

// PendingDelete is an unconfirmed permanent-delete request. Purely
// client-side; never persisted or transmitted.
type PendingDelete struct {
	Kind        model.DeleteType
	RequestedAt time.Time
}

// pendingDeletes gates permanent deletion behind an inline confirmation
// that auto-expires. Archive-style deletes never enter this state; they
// execute immediately.
type pendingDeletes struct {
	mu       sync.Mutex
	ttl      time.Duration
	entries  map[int64]PendingDelete
	timers   map[int64]*time.Timer
	onExpire func(conversationID int64)
}

func newPendingDeletes(ttl time.Duration, onExpire func(int64)) *pendingDeletes {
	if ttl <= 0 {
		ttl = DefaultPendingDeleteTTL
	}
	return &pendingDeletes{
		ttl:      ttl,
		entries:  make(map[int64]PendingDelete),
		timers:   make(map[int64]*time.Timer),
		onExpire: onExpire,
	}
}

// Request enters (or re-enters) the pending state for a conversation.
// Requesting again while already pending restarts the timer.
func (p *pendingDeletes) Request(conversationID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if t, ok := p.timers[conversationID]; ok {
		t.Stop()
	}
	p.entries[conversationID] = PendingDelete{
		Kind:        model.DeletePermanent,
		RequestedAt: time.Now(),
	}
	p.timers[conversationID] = time.AfterFunc(p.ttl, func() {
		p.expire(conversationID)
	})
}

// Confirm clears the pending entry and reports whether one existed.
// The caller runs the actual delete only on true.
func (p *pendingDeletes) Confirm(conversationID int64) bool {
	return p.clear(conversationID)
}

// Cancel clears the pending entry with no side effects.
func (p *pendingDeletes) Cancel(conversationID int64) bool {
	return p.clear(conversationID)
}

// Get returns the pending entry for a conversation, if any.
func (p *pendingDeletes) Get(conversationID int64) (PendingDelete, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[conversationID]
	return e, ok
}

// Close stops all timers and drops all entries.
func (p *pendingDeletes) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, t := range p.timers {
		t.Stop()
		delete(p.timers, id)
	}
	for id := range p.entries {
		delete(p.entries, id)
	}
}

func (p *pendingDeletes) clear(conversationID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if t, ok := p.timers[conversationID]; ok {
		t.Stop()
		delete(p.timers, conversationID)
	}
	if _, ok := p.entries[conversationID]; ok {
		delete(p.entries, conversationID)
		return true
	}
	return false
}

// expire fires when the timer lapses with no user action: equivalent to
// a silent cancellation.
func (p *pendingDeletes) expire(conversationID int64) {
	if p.clear(conversationID) && p.onExpire != nil {
		p.onExpire(conversationID)
	}
}
