package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercekit/support-chat/internal/model"
)

func TestPendingDeleteConfirmClearsEntry(t *testing.T) {
	p := newPendingDeletes(time.Minute, nil)
	defer p.Close()

	p.Request(1)
	entry, ok := p.Get(1)
	require.True(t, ok)
	assert.Equal(t, model.DeletePermanent, entry.Kind)

	require.True(t, p.Confirm(1))
	_, ok = p.Get(1)
	assert.False(t, ok)

	// A second confirm has nothing to act on.
	assert.False(t, p.Confirm(1))
}

func TestPendingDeleteCancel(t *testing.T) {
	p := newPendingDeletes(time.Minute, nil)
	defer p.Close()

	p.Request(1)
	require.True(t, p.Cancel(1))
	assert.False(t, p.Confirm(1))
}

func TestPendingDeleteExpires(t *testing.T) {
	expired := make(chan int64, 1)
	p := newPendingDeletes(20*time.Millisecond, func(id int64) {
		expired <- id
	})
	defer p.Close()

	p.Request(1)

	select {
	case id := <-expired:
		assert.Equal(t, int64(1), id)
	case <-time.After(2 * time.Second):
		t.Fatal("pending delete never expired")
	}

	_, ok := p.Get(1)
	assert.False(t, ok)
	assert.False(t, p.Confirm(1))
}

func TestPendingDeleteRequestRestartsWindow(t *testing.T) {
	p := newPendingDeletes(50*time.Millisecond, nil)
	defer p.Close()

	p.Request(1)
	time.Sleep(30 * time.Millisecond)
	p.Request(1)
	time.Sleep(30 * time.Millisecond)

	// 60ms after the first request the entry is still alive because the
	// second request restarted the window.
	require.True(t, p.Confirm(1))
}

func TestPendingDeleteIndependentConversations(t *testing.T) {
	p := newPendingDeletes(time.Minute, nil)
	defer p.Close()

	p.Request(1)
	p.Request(2)

	require.True(t, p.Cancel(1))
	_, ok := p.Get(2)
	assert.True(t, ok)
}
