// ABOUTME: Polls GET /notifications and emits unseen notifications
// ABOUTME: Stops when the session expires; other poll errors are logged and retried

package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/2389/predictera-console/internal/api"
	"github.com/2389/predictera-console/internal/gateway"
)

const (
	// DefaultPollInterval is used when no interval is configured.
	DefaultPollInterval = 30 * time.Second

	seenTTL     = 24 * time.Hour
	seenMaxSize = 1000
)

// Source lists current notifications.
type Source interface {
	List(ctx context.Context) ([]api.Notification, error)
}

// Watcher emits every notification once.
type Watcher struct {
	src      Source
	interval time.Duration
	seen     *seenSet
	logger   *slog.Logger

	mu      sync.Mutex
	present map[string]api.Notification // listed by the previous poll
}

// NewWatcher creates a watcher. interval <= 0 uses DefaultPollInterval.
func NewWatcher(src Source, interval time.Duration, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Watcher{
		src:      src,
		interval: interval,
		seen:     newSeenSet(seenTTL, seenMaxSize, time.Hour),
		logger:   logger.With("component", "notify"),
	}
}

// Poll fetches notifications once and returns those not emitted before, in
// server order. A notification that disappears from the server is forgotten,
// so the same alert raised again is emitted again.
func (w *Watcher) Poll(ctx context.Context) ([]api.Notification, error) {
	all, err := w.src.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("polling notifications: %w", err)
	}

	current := make(map[string]api.Notification, len(all))
	var fresh []api.Notification
	for _, n := range all {
		k := key(n)
		current[k] = n
		if w.seen.markNew(k) {
			fresh = append(fresh, n)
		}
	}

	w.mu.Lock()
	for k, n := range w.present {
		if _, ok := current[k]; !ok {
			w.Forget(n)
		}
	}
	w.present = current
	w.mu.Unlock()

	return fresh, nil
}

// Run polls until ctx is done, calling emit for each new notification. It
// returns early with the error when the session has expired.
func (w *Watcher) Run(ctx context.Context, emit func(api.Notification)) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		fresh, err := w.Poll(ctx)
		switch {
		case err == nil:
			for _, n := range fresh {
				emit(n)
			}
		case gateway.KindOf(err) == gateway.KindAuthExpired:
			return err
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			w.logger.Warn("notification poll failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Forget lets the notification with id be emitted again.
func (w *Watcher) Forget(n api.Notification) {
	w.seen.forget(key(n))
}

// Close stops background cleanup.
func (w *Watcher) Close() {
	w.seen.close()
}

func key(n api.Notification) string {
	if n.ID != "" {
		return n.ID
	}
	return n.MachineName + "\x00" + n.Message + "\x00" + n.Time
}
