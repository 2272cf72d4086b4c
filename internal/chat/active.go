package chat

import "sync/atomic"

// activeConversation is the single-writer mutable cell tracking which
// conversation is currently open. The live listener reads it on every
// event instead of capturing the id at subscription time, so rapid
// conversation switching cannot leave the handler acting on a stale id.
type activeConversation struct {
	id atomic.Int64
}

// Set records the open conversation.
func (a *activeConversation) Set(id int64) {
	a.id.Store(id)
}

// Clear records that no conversation is open.
func (a *activeConversation) Clear() {
	a.id.Store(0)
}

// Get returns the open conversation id, if any.
func (a *activeConversation) Get() (int64, bool) {
	id := a.id.Load()
	return id, id != 0
}
