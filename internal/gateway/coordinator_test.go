// ABOUTME: Unit tests for the refresh coordinator with a fake refresher
// ABOUTME: Checks single-flight, stale-token short-circuit, and expiry handling

package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/predictera-console/internal/credentials"
)

func TestRefreshCoordinator_SkipsWhenTokenAlreadyReplaced(t *testing.T) {
	store := credentials.NewMemoryStore(credentials.Pair{AccessToken: "new", RefreshToken: "r"})
	rc := NewRefreshCoordinator(store, func(context.Context, string) (credentials.Pair, error) {
		t.Fatal("refresher must not be called")
		return credentials.Pair{}, nil
	}, 0, nil)

	require.NoError(t, rc.Refresh(context.Background(), "old"))
	assert.Zero(t, rc.Calls())
}

func TestRefreshCoordinator_SingleFlight(t *testing.T) {
	store := credentials.NewMemoryStore(credentials.Pair{AccessToken: "old", RefreshToken: "r"})
	gate := make(chan struct{})
	rc := NewRefreshCoordinator(store, func(_ context.Context, refresh string) (credentials.Pair, error) {
		<-gate
		return credentials.Pair{AccessToken: "new:" + refresh}, nil
	}, 0, nil)

	const n = 10
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = rc.Refresh(context.Background(), "old")
		}()
	}

	require.Eventually(t, func() bool { return rc.Calls() == 1 }, time.Second, time.Millisecond)
	close(gate)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int64(1), rc.Calls())

	pair, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, credentials.Pair{AccessToken: "new:r", RefreshToken: "r"}, pair)
	saves, _ := store.Stats()
	assert.Equal(t, 1, saves)
}

func TestRefreshCoordinator_CancelledWaiterDoesNotAbortRefresh(t *testing.T) {
	store := credentials.NewMemoryStore(credentials.Pair{AccessToken: "old", RefreshToken: "r"})
	gate := make(chan struct{})
	rc := NewRefreshCoordinator(store, func(ctx context.Context, _ string) (credentials.Pair, error) {
		<-gate
		if err := ctx.Err(); err != nil {
			return credentials.Pair{}, err
		}
		return credentials.Pair{AccessToken: "new"}, nil
	}, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rc.Refresh(ctx, "old") }()

	require.Eventually(t, func() bool { return rc.Calls() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	// A second caller joins the same refresh and sees it succeed.
	second := make(chan error, 1)
	go func() { second <- rc.Refresh(context.Background(), "old") }()
	close(gate)
	assert.NoError(t, <-second)
	assert.Equal(t, int64(1), rc.Calls())
}

func TestRefreshCoordinator_FailureClearsAndFiresHook(t *testing.T) {
	store := credentials.NewMemoryStore(credentials.Pair{AccessToken: "old", RefreshToken: "r"})
	cause := errors.New("boom")
	rc := NewRefreshCoordinator(store, func(context.Context, string) (credentials.Pair, error) {
		return credentials.Pair{}, cause
	}, 0, nil)

	fired := make(chan struct{}, 1)
	rc.SetExpiredHook(func() { fired <- struct{}{} })

	err := rc.Refresh(context.Background(), "old")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthExpired)
	assert.ErrorIs(t, err, cause)

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("expired hook not called")
	}

	pair, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, pair.IsZero())
}

func TestRefreshCoordinator_NoRefreshTokenExpiresWithoutCall(t *testing.T) {
	store := credentials.NewMemoryStore(credentials.Pair{AccessToken: "old"})
	rc := NewRefreshCoordinator(store, func(context.Context, string) (credentials.Pair, error) {
		t.Fatal("refresher must not be called")
		return credentials.Pair{}, nil
	}, 0, nil)

	err := rc.Refresh(context.Background(), "old")
	assert.Equal(t, KindAuthExpired, KindOf(err))
	assert.Zero(t, rc.Calls())
}

func TestRefreshCoordinator_Timeout(t *testing.T) {
	store := credentials.NewMemoryStore(credentials.Pair{AccessToken: "old", RefreshToken: "r"})
	rc := NewRefreshCoordinator(store, func(ctx context.Context, _ string) (credentials.Pair, error) {
		<-ctx.Done()
		return credentials.Pair{}, ctx.Err()
	}, 20*time.Millisecond, nil)

	err := rc.Refresh(context.Background(), "old")
	assert.Equal(t, KindAuthExpired, KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
