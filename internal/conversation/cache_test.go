// ABOUTME: Tests for the conversation cache ordering, window, and deletes
// ABOUTME: Uses a hand-written Source mock

package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/predictera-console/internal/api"
)

type mockSource struct {
	mu        sync.Mutex
	convs     []api.Conversation
	listErr   error
	deleteErr error
	deleted   []int64
}

func (m *mockSource) Conversations(_ context.Context) ([]api.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]api.Conversation(nil), m.convs...), nil
}

func (m *mockSource) DeleteConversation(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, id)
	return nil
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func conv(id int64, minutesAgo int) api.Conversation {
	return api.Conversation{
		ID:        id,
		Title:     "conv",
		UpdatedAt: api.Time{Time: base.Add(-time.Duration(minutesAgo) * time.Minute)},
	}
}

func ids(convs []api.Conversation) []int64 {
	out := make([]int64, 0, len(convs))
	for _, c := range convs {
		out = append(out, c.ID)
	}
	return out
}

func TestCache_OrdersMostRecentFirst(t *testing.T) {
	src := &mockSource{convs: []api.Conversation{conv(1, 30), conv(2, 5), conv(3, 60), conv(4, 5)}}
	c := NewCache(src, 0, nil)

	assert.False(t, c.Loaded())
	require.NoError(t, c.Refresh(context.Background()))
	assert.True(t, c.Loaded())

	// Ties on UpdatedAt fall back to the higher id.
	assert.Equal(t, []int64{4, 2, 1, 3}, ids(c.All()))
}

func TestCache_SidebarWindow(t *testing.T) {
	var convs []api.Conversation
	for i := range 15 {
		convs = append(convs, conv(int64(i+1), i))
	}
	c := NewCache(&mockSource{convs: convs}, 0, nil)
	require.NoError(t, c.Refresh(context.Background()))

	side := c.Sidebar()
	require.Len(t, side, DefaultSidebarWindow)
	assert.Equal(t, int64(1), side[0].ID)
	assert.Len(t, c.All(), 15)

	small := NewCache(&mockSource{convs: convs[:2]}, 5, nil)
	require.NoError(t, small.Refresh(context.Background()))
	assert.Len(t, small.Sidebar(), 2)
}

func TestCache_RefreshFailureKeepsList(t *testing.T) {
	src := &mockSource{convs: []api.Conversation{conv(1, 0)}}
	c := NewCache(src, 0, nil)
	require.NoError(t, c.Refresh(context.Background()))

	src.listErr = errors.New("boom")
	err := c.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, c.Err(), "loading conversations")
	assert.Equal(t, []int64{1}, ids(c.All()))

	src.listErr = nil
	require.NoError(t, c.Refresh(context.Background()))
	assert.NoError(t, c.Err())
}

func TestCache_Find(t *testing.T) {
	c := NewCache(&mockSource{convs: []api.Conversation{conv(1, 0), conv(2, 1)}}, 0, nil)
	require.NoError(t, c.Refresh(context.Background()))

	got, ok := c.Find(2)
	assert.True(t, ok)
	assert.Equal(t, int64(2), got.ID)

	_, ok = c.Find(99)
	assert.False(t, ok)
}

func TestCache_Delete(t *testing.T) {
	src := &mockSource{convs: []api.Conversation{conv(1, 0), conv(2, 1)}}
	c := NewCache(src, 0, nil)
	defer c.Close()
	require.NoError(t, c.Refresh(context.Background()))

	events, _ := c.Subscribe(t.Context())
	require.NoError(t, c.Delete(context.Background(), 1))

	assert.Equal(t, []int64{1}, src.deleted)
	assert.Equal(t, []int64{2}, ids(c.All()))

	ev := receive(t, events)
	assert.Equal(t, EventDeleted, ev.Kind)
	assert.Equal(t, int64(1), ev.ConversationID)
	assert.Equal(t, 1, ev.Count)
}

func TestCache_DeleteFailureLeavesList(t *testing.T) {
	src := &mockSource{convs: []api.Conversation{conv(1, 0)}, deleteErr: errors.New("nope")}
	c := NewCache(src, 0, nil)
	require.NoError(t, c.Refresh(context.Background()))

	require.Error(t, c.Delete(context.Background(), 1))
	assert.Equal(t, []int64{1}, ids(c.All()))
	assert.Error(t, c.Err())
}

func TestCache_RefreshPublishes(t *testing.T) {
	c := NewCache(&mockSource{convs: []api.Conversation{conv(1, 0)}}, 0, nil)
	defer c.Close()

	events, _ := c.Subscribe(t.Context())
	require.NoError(t, c.Refresh(context.Background()))

	ev := receive(t, events)
	assert.Equal(t, EventRefreshed, ev.Kind)
	assert.Equal(t, 1, ev.Count)
}
