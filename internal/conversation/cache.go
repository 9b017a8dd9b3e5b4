// ABOUTME: Read-through cache of the user's agent conversations
// ABOUTME: Ordered most-recent-first with a fixed sidebar window

package conversation

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/2389/predictera-console/internal/api"
)

// DefaultSidebarWindow is how many conversations the sidebar shows.
const DefaultSidebarWindow = 10

// Source is what the cache needs from the agent API.
type Source interface {
	Conversations(ctx context.Context) ([]api.Conversation, error)
	DeleteConversation(ctx context.Context, id int64) error
}

// Cache holds the last fetched conversation list. Safe for concurrent use.
type Cache struct {
	src    Source
	window int
	events *Broadcaster
	logger *slog.Logger

	mu     sync.RWMutex
	items  []api.Conversation
	loaded bool
	err    error
}

// NewCache creates an empty cache. window <= 0 uses DefaultSidebarWindow.
func NewCache(src Source, window int, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if window <= 0 {
		window = DefaultSidebarWindow
	}
	return &Cache{
		src:    src,
		window: window,
		events: NewBroadcaster(logger),
		logger: logger.With("component", "conversations"),
	}
}

// Refresh reloads the list. On failure the previous list is kept and the
// error is also retained for Err.
func (c *Cache) Refresh(ctx context.Context) error {
	items, err := c.src.Conversations(ctx)
	if err != nil {
		err = fmt.Errorf("loading conversations: %w", err)
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		c.logger.Warn("failed to load conversations", "error", err)
		return err
	}

	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b api.Conversation) int {
		if n := b.UpdatedAt.Compare(a.UpdatedAt.Time); n != 0 {
			return n
		}
		return cmp.Compare(b.ID, a.ID)
	})

	c.mu.Lock()
	c.items = sorted
	c.loaded = true
	c.err = nil
	c.mu.Unlock()

	c.logger.Debug("conversations loaded", "count", len(sorted))
	c.events.Publish(Event{Kind: EventRefreshed, Count: len(sorted)})
	return nil
}

// All returns every cached conversation, most recent first.
func (c *Cache) All() []api.Conversation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.items)
}

// Sidebar returns at most the window's worth of most recent conversations.
func (c *Cache) Sidebar() []api.Conversation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := min(len(c.items), c.window)
	return slices.Clone(c.items[:n])
}

// Find returns the cached conversation with the given id.
func (c *Cache) Find(id int64) (api.Conversation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, conv := range c.items {
		if conv.ID == id {
			return conv, true
		}
	}
	return api.Conversation{}, false
}

// Delete removes the conversation on the server and then from the cache.
// The cache is untouched when the server call fails.
func (c *Cache) Delete(ctx context.Context, id int64) error {
	if err := c.src.DeleteConversation(ctx, id); err != nil {
		err = fmt.Errorf("deleting conversation %d: %w", id, err)
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.items = slices.DeleteFunc(c.items, func(conv api.Conversation) bool { return conv.ID == id })
	count := len(c.items)
	c.mu.Unlock()

	c.logger.Info("conversation deleted", "conversation_id", id)
	c.events.Publish(Event{Kind: EventDeleted, ConversationID: id, Count: count})
	return nil
}

// Loaded reports whether a refresh has ever succeeded.
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Err returns the last load or delete failure, cleared by a successful
// refresh.
func (c *Cache) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Subscribe returns a channel of cache change events until ctx is done.
func (c *Cache) Subscribe(ctx context.Context) (<-chan Event, string) {
	return c.events.Subscribe(ctx)
}

// Close releases all subscribers.
func (c *Cache) Close() {
	c.events.Close()
}
