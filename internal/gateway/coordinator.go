// ABOUTME: Single-flight coordination of access-token refreshes
// ABOUTME: Concurrent 401s share one refresh call and its outcome

package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/2389/predictera-console/internal/credentials"
)

// TokenRefresher exchanges a refresh token for a new credential pair.
// A returned pair with an empty RefreshToken keeps the current one.
type TokenRefresher func(ctx context.Context, refreshToken string) (credentials.Pair, error)

// refreshCall is the shared outcome of one in-flight refresh.
type refreshCall struct {
	done chan struct{}
	err  error
}

// RefreshCoordinator serializes token refreshes for one Client. It owns the
// only writes to the credential store that happen outside login and logout.
type RefreshCoordinator struct {
	mu       sync.Mutex
	inflight *refreshCall

	store     credentials.Store
	refresh   TokenRefresher
	timeout   time.Duration
	onExpired func()
	logger    *slog.Logger

	calls atomic.Int64
}

// NewRefreshCoordinator creates a coordinator writing through store.
// timeout bounds each refresh call; zero means no bound beyond the caller's.
func NewRefreshCoordinator(store credentials.Store, refresh TokenRefresher, timeout time.Duration, logger *slog.Logger) *RefreshCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &RefreshCoordinator{
		store:   store,
		refresh: refresh,
		timeout: timeout,
		logger:  logger.With("component", "refresh"),
	}
}

// SetExpiredHook registers fn to run after a refresh fails and the
// credentials have been cleared.
func (rc *RefreshCoordinator) SetExpiredHook(fn func()) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.onExpired = fn
}

// Calls returns how many refresh network calls have been started.
func (rc *RefreshCoordinator) Calls() int64 {
	return rc.calls.Load()
}

// Refresh makes sure the stored access token is newer than staleAccess, the
// token a request was rejected with. If another refresh already replaced it,
// Refresh returns immediately. If one is in flight, Refresh waits for it.
// Otherwise it starts one. The refresh itself is detached from ctx so that a
// cancelled caller does not fail the other waiters; ctx only bounds the wait.
func (rc *RefreshCoordinator) Refresh(ctx context.Context, staleAccess string) error {
	rc.mu.Lock()
	call := rc.inflight
	if call == nil {
		pair, err := rc.store.Load(ctx)
		if err != nil {
			rc.mu.Unlock()
			return fmt.Errorf("loading credentials: %w", err)
		}
		if pair.AccessToken != "" && pair.AccessToken != staleAccess {
			rc.mu.Unlock()
			return nil
		}

		call = &refreshCall{done: make(chan struct{})}
		rc.inflight = call
		go rc.run(context.WithoutCancel(ctx), call, pair.RefreshToken)
	}
	rc.mu.Unlock()

	select {
	case <-call.done:
		return call.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (rc *RefreshCoordinator) run(ctx context.Context, call *refreshCall, refreshToken string) {
	if rc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rc.timeout)
		defer cancel()
	}

	err := rc.exchange(ctx, refreshToken)

	rc.mu.Lock()
	call.err = err
	rc.inflight = nil
	hook := rc.onExpired
	rc.mu.Unlock()

	// The hook runs before waiters are released so that callers observing
	// ErrAuthExpired also observe its effects.
	if err != nil && KindOf(err) == KindAuthExpired && hook != nil {
		hook()
	}
	close(call.done)
}

// exchange performs the refresh and persists the result. On failure both
// tokens are cleared and an AuthExpired error is returned.
func (rc *RefreshCoordinator) exchange(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		rc.logger.Info("no refresh token stored, session expired")
		return rc.expire(ctx, nil)
	}

	rc.calls.Add(1)
	start := time.Now()
	pair, err := rc.refresh(ctx, refreshToken)
	if err != nil {
		rc.logger.Warn("token refresh failed", "error", err, "duration", time.Since(start))
		return rc.expire(ctx, err)
	}

	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}
	if err := rc.store.Save(ctx, pair); err != nil {
		return fmt.Errorf("saving refreshed credentials: %w", err)
	}

	rc.logger.Debug("access token refreshed", "duration", time.Since(start))
	return nil
}

func (rc *RefreshCoordinator) expire(ctx context.Context, cause error) error {
	if err := rc.store.Clear(ctx); err != nil {
		rc.logger.Error("failed to clear credentials", "error", err)
	}
	return &Error{
		Kind:    KindAuthExpired,
		Status:  0,
		Message: "session expired",
		Method:  "PUT",
		Path:    authPath,
		Err:     cause,
	}
}
