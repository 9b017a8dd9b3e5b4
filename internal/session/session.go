// ABOUTME: Chat session controller: optimistic send, rollback, and deferred navigation
// ABOUTME: Epoch tagging drops replies that arrive after a session switch

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/2389/predictera-console/internal/api"
	"github.com/2389/predictera-console/internal/gateway"
)

var (
	// ErrSendInProgress is returned when Send is called while another send
	// for the same session is outstanding.
	ErrSendInProgress = errors.New("a message is already being sent")

	// ErrSessionLoading is returned when Send is called before the active
	// conversation's history has arrived.
	ErrSessionLoading = errors.New("conversation is still loading")

	// ErrSessionChanged is returned when the session was switched while a
	// call was in flight; its result was discarded.
	ErrSessionChanged = errors.New("session changed while request was in flight")
)

// defaultSource labels replies whose response names no source.
const defaultSource = "AI"

// Agent is what the controller needs from the agent API.
type Agent interface {
	Chat(ctx context.Context, message string, conversationID *int64) (*api.ChatReply, error)
	Messages(ctx context.Context, id int64, limit int) ([]api.ChatMessage, error)
}

// Conversations is what the controller needs from the conversation cache.
type Conversations interface {
	Refresh(ctx context.Context) error
	Delete(ctx context.Context, id int64) error
}

// Controller manages one chat session. Safe for concurrent use.
type Controller struct {
	agent  Agent
	convs  Conversations
	notify func(Notice)
	logger *slog.Logger
	now    func() time.Time

	mu             sync.Mutex
	conversationID *int64
	messages       []Message
	pending        *int64
	state          State
	epoch          uint64
	sending        bool
	loading        bool
	nextID         int64
	replyDelay     time.Duration
	historyLimit   int
	onNavigate     func(id int64)
}

// NewController creates a controller with an empty session. notify receives
// user-visible notices and may be nil.
func NewController(agent Agent, convs Conversations, notify func(Notice), logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if notify == nil {
		notify = func(Notice) {}
	}
	return &Controller{
		agent:  agent,
		convs:  convs,
		notify: notify,
		logger: logger.With("component", "session"),
		now:    time.Now,
		state:  StateEmpty,
	}
}

// SetReplyDelay sets a minimum time between sending and showing a reply.
func (c *Controller) SetReplyDelay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replyDelay = d
}

// SetHistoryLimit caps how many messages LoadSession fetches (0 = all).
func (c *Controller) SetHistoryLimit(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.historyLimit = n
}

// SetNavigateHook registers fn to run when a pending navigation commits.
func (c *Controller) SetNavigateHook(fn func(id int64)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onNavigate = fn
}

// LoadSession switches to conversation id, or to a new empty session when
// id is nil. Sends are rejected until the history arrives. On failure the
// session becomes a new empty one, so the next Send starts a conversation
// instead of posting into the one that could not be opened. Authorization
// failures are reported as a notice with a nil error.
func (c *Controller) LoadSession(ctx context.Context, id *int64) error {
	c.mu.Lock()
	epoch := c.resetLocked(id)
	limit := c.historyLimit
	c.mu.Unlock()

	if id == nil {
		return nil
	}

	history, err := c.agent.Messages(ctx, *id, limit)

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return ErrSessionChanged
	}
	c.loading = false
	if err != nil {
		c.conversationID = nil
		c.mu.Unlock()
		c.logger.Warn("failed to load conversation", "conversation_id", *id, "error", err)
		switch gateway.KindOf(err) {
		case gateway.KindUnauthorized, gateway.KindAuthExpired:
			c.notify(Notice{Level: LevelError, Text: "Unauthorized access to this conversation"})
			return nil
		default:
			c.notify(Notice{Level: LevelError, Text: "Failed to load conversation. " + gateway.Describe(err)})
			return fmt.Errorf("loading conversation %d: %w", *id, err)
		}
	}

	msgs := make([]Message, 0, len(history))
	for _, m := range history {
		c.nextID++
		msgs = append(msgs, Message{
			ID:        c.nextID,
			Role:      Role(m.Role),
			Text:      m.Message,
			Timestamp: m.Timestamp.Time,
		})
	}
	c.messages = msgs
	if len(msgs) > 0 {
		c.state = StateIdle
	}
	c.mu.Unlock()

	c.logger.Debug("conversation loaded", "conversation_id", *id, "messages", len(msgs))
	return nil
}

// resetLocked starts a new logical session and returns its epoch.
func (c *Controller) resetLocked(id *int64) uint64 {
	c.epoch++
	c.conversationID = cloneID(id)
	c.messages = nil
	c.pending = nil
	c.sending = false
	c.loading = id != nil
	c.state = StateEmpty
	return c.epoch
}

// Send posts text to the agent. Blank text is ignored. A failed send is
// rolled back and reported through a notice before the error is returned.
func (c *Controller) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return ErrSessionLoading
	}
	if c.sending {
		c.mu.Unlock()
		return ErrSendInProgress
	}
	c.sending = true
	epoch := c.epoch
	wasEmpty := len(c.messages) == 0

	// A reply that is still revealing has not committed its conversation
	// yet; follow-up messages belong to it.
	target := c.conversationID
	if target == nil {
		target = c.pending
	}
	target = cloneID(target)

	c.nextID++
	optimisticID := c.nextID
	c.messages = append(c.messages, Message{
		ID:        optimisticID,
		Role:      RoleUser,
		Text:      text,
		Timestamp: c.now(),
	})
	c.state = StateSending
	delay := c.replyDelay
	c.mu.Unlock()

	c.setStateIfCurrent(epoch, StateAwaitingReply)
	started := time.Now()
	reply, err := c.agent.Chat(ctx, text, target)
	if err == nil {
		waitAtLeast(ctx, delay, started)
	}

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		c.logger.Debug("discarding reply for abandoned session", "error", err)
		return ErrSessionChanged
	}
	c.sending = false

	if err != nil {
		c.messages = slices.DeleteFunc(c.messages, func(m Message) bool { return m.ID == optimisticID })
		c.state = StateIdle
		if len(c.messages) == 0 {
			c.state = StateEmpty
		}
		c.mu.Unlock()

		c.logger.Warn("send failed", "error", err)
		c.notify(SendFailureNotice(err))
		return err
	}

	source := defaultSource
	if len(reply.Sources) > 0 && reply.Sources[0] != "" {
		source = reply.Sources[0]
	}
	c.nextID++
	c.messages = append(c.messages, Message{
		ID:        c.nextID,
		Role:      RoleAssistant,
		Text:      reply.Response,
		Timestamp: c.now(),
		Animate:   wasEmpty,
		Source:    source,
	})
	c.state = StateIdle
	if wasEmpty {
		c.state = StateRevealing
	}

	commitNow := false
	if target == nil && reply.ConversationID != 0 {
		c.prepareNavigationLocked(reply.ConversationID)
		commitNow = !wasEmpty
	}
	c.mu.Unlock()

	if commitNow {
		c.CommitNavigation(ctx)
	}
	return nil
}

func (c *Controller) setStateIfCurrent(epoch uint64, s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch == epoch {
		c.state = s
	}
}

// waitAtLeast sleeps until d has passed since start, or ctx is done.
func waitAtLeast(ctx context.Context, d time.Duration, start time.Time) {
	remaining := d - time.Since(start)
	if remaining <= 0 {
		return
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// PrepareNavigation records target as the conversation to switch to on the
// next CommitNavigation, replacing any earlier pending target. Send does this
// itself when a reply creates a conversation.
func (c *Controller) PrepareNavigation(target int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prepareNavigationLocked(target)
}

func (c *Controller) prepareNavigationLocked(target int64) {
	c.pending = &target
}

// OnAnimationComplete is the presentation layer's signal that the reply
// reveal finished. It commits a pending navigation, if any.
func (c *Controller) OnAnimationComplete(ctx context.Context) {
	c.CommitNavigation(ctx)
}

// CommitNavigation consumes the pending navigation: the active conversation
// becomes its target, the conversation cache is refreshed, and the navigate
// hook fires. It reports the target and whether there was one.
func (c *Controller) CommitNavigation(ctx context.Context) (int64, bool) {
	c.mu.Lock()
	if c.state == StateRevealing {
		c.state = StateIdle
	}
	target := c.pending
	c.pending = nil
	if target == nil {
		c.mu.Unlock()
		return 0, false
	}
	id := *target
	c.conversationID = &id
	hook := c.onNavigate
	c.mu.Unlock()

	c.logger.Debug("navigating to new conversation", "conversation_id", id)
	if err := c.convs.Refresh(ctx); err != nil {
		c.logger.Warn("refreshing conversations after navigation", "error", err)
	}
	if hook != nil {
		hook(id)
	}
	return id, true
}

// DeleteConversation deletes id and resets to an empty session when it was
// the active (or about-to-be active) conversation.
func (c *Controller) DeleteConversation(ctx context.Context, id int64) error {
	if err := c.convs.Delete(ctx, id); err != nil {
		c.notify(Notice{Level: LevelError, Text: "Failed to delete conversation. " + gateway.Describe(err)})
		return err
	}

	c.mu.Lock()
	active := (c.conversationID != nil && *c.conversationID == id) ||
		(c.pending != nil && *c.pending == id)
	if active {
		c.resetLocked(nil)
	}
	c.mu.Unlock()

	if active {
		c.logger.Info("active conversation deleted, session reset", "conversation_id", id)
	}
	return nil
}

// Snapshot returns a copy of the session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		ConversationID:    cloneID(c.conversationID),
		PendingNavigation: cloneID(c.pending),
		Messages:          slices.Clone(c.messages),
		State:             c.state,
		Sending:           c.sending,
		Loading:           c.loading,
	}
}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
