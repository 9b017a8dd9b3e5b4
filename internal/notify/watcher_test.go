// ABOUTME: Tests for the notification watcher and its seen-set
// ABOUTME: Covers once-only emission, expiry, eviction, and stop conditions

package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/predictera-console/internal/api"
	"github.com/2389/predictera-console/internal/gateway"
)

type mockSource struct {
	mu    sync.Mutex
	items []api.Notification
	err   error
	polls int
}

func (m *mockSource) List(context.Context) ([]api.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polls++
	if m.err != nil {
		return nil, m.err
	}
	return append([]api.Notification(nil), m.items...), nil
}

func (m *mockSource) add(n api.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, n)
}

func (m *mockSource) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, n := range m.items {
		if n.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return
		}
	}
}

func (m *mockSource) pollCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.polls
}

func TestWatcher_PollEmitsOnce(t *testing.T) {
	src := &mockSource{items: []api.Notification{
		{ID: "1", MachineName: "CNC Machine A", Message: "High risk score detected", Level: api.LevelCritical},
	}}
	w := NewWatcher(src, time.Hour, nil)
	defer w.Close()
	ctx := context.Background()

	fresh, err := w.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, fresh, 1)

	fresh, err = w.Poll(ctx)
	require.NoError(t, err)
	assert.Empty(t, fresh)

	src.add(api.Notification{ID: "2", Message: "Tool wear approaching limit"})
	fresh, err = w.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, "2", fresh[0].ID)

	w.Forget(fresh[0])
	fresh, err = w.Poll(ctx)
	require.NoError(t, err)
	assert.Len(t, fresh, 1)
}

func TestWatcher_DismissedAlertRaisedAgainIsEmitted(t *testing.T) {
	alert := api.Notification{MachineName: "Press 2", Message: "Torque above threshold", Time: "2025-01-01 10:00", Level: api.LevelWarning}
	src := &mockSource{items: []api.Notification{alert}}
	w := NewWatcher(src, time.Hour, nil)
	defer w.Close()
	ctx := context.Background()

	fresh, err := w.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, fresh, 1)

	src.remove("")
	fresh, err = w.Poll(ctx)
	require.NoError(t, err)
	assert.Empty(t, fresh)

	src.add(alert)
	fresh, err = w.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, fresh, 1, "an alert dismissed and raised again is new")
	assert.Equal(t, "Torque above threshold", fresh[0].Message)

	fresh, err = w.Poll(ctx)
	require.NoError(t, err)
	assert.Empty(t, fresh)
}

func TestWatcher_KeyWithoutID(t *testing.T) {
	a := api.Notification{MachineName: "A", Message: "m", Time: "t1"}
	b := api.Notification{MachineName: "A", Message: "m", Time: "t2"}
	assert.NotEqual(t, key(a), key(b))
	assert.Equal(t, "7", key(api.Notification{ID: "7", Message: "x"}))
}

func TestWatcher_RunEmitsUntilCancelled(t *testing.T) {
	src := &mockSource{items: []api.Notification{{ID: "1"}}}
	w := NewWatcher(src, 5*time.Millisecond, nil)
	defer w.Close()

	var mu sync.Mutex
	var got []string
	emit := func(n api.Notification) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, n.ID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, emit) }()

	require.Eventually(t, func() bool { return src.pollCount() >= 2 }, time.Second, time.Millisecond)
	src.add(api.Notification{ID: "2"})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"1", "2"}, got)
}

func TestWatcher_RunKeepsGoingAfterTransientError(t *testing.T) {
	src := &mockSource{err: errors.New("temporary")}
	w := NewWatcher(src, 2*time.Millisecond, nil)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, func(api.Notification) {}) }()

	require.Eventually(t, func() bool { return src.pollCount() >= 3 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWatcher_RunStopsWhenSessionExpires(t *testing.T) {
	src := &mockSource{err: &gateway.Error{Kind: gateway.KindAuthExpired, Message: "session expired"}}
	w := NewWatcher(src, time.Millisecond, nil)
	defer w.Close()

	err := w.Run(context.Background(), func(api.Notification) {})
	assert.ErrorIs(t, err, gateway.ErrAuthExpired)
	assert.Equal(t, 1, src.pollCount())
}

func TestSeenSet_Expiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newSeenSet(time.Minute, 10, 0)
	defer s.close()
	s.now = func() time.Time { return now }

	assert.True(t, s.markNew("a"))
	assert.False(t, s.markNew("a"))

	now = now.Add(2 * time.Minute)
	assert.True(t, s.markNew("a"), "expired keys count as new")
}

func TestSeenSet_EvictsOldest(t *testing.T) {
	s := newSeenSet(time.Hour, 2, 0)
	defer s.close()

	s.markNew("a")
	s.markNew("b")
	s.markNew("c")

	assert.Equal(t, 2, s.len())
	assert.True(t, s.markNew("a"), "oldest key was evicted")
	assert.False(t, s.markNew("c"))
}

func TestSeenSet_Sweep(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newSeenSet(time.Minute, 10, 0)
	defer s.close()
	s.now = func() time.Time { return now }

	s.markNew("old")
	now = now.Add(50 * time.Second)
	s.markNew("new")
	now = now.Add(20 * time.Second)

	s.sweep()
	assert.Equal(t, 1, s.len())
	assert.False(t, s.markNew("new"))

	s.close()
	s.close()
}
