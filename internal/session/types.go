package session

import "time"

// State is the session's position in the send/reveal cycle.
type State int

const (
	StateEmpty State = iota
	StateSending
	StateAwaitingReply
	StateRevealing
	StateIdle
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateSending:
		return "sending"
	case StateAwaitingReply:
		return "awaiting_reply"
	case StateRevealing:
		return "revealing"
	case StateIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// Role is who wrote a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the session. IDs are assigned locally and only
// order messages for display.
type Message struct {
	ID        int64
	Role      Role
	Text      string
	Timestamp time.Time
	// Animate marks the reply that should be revealed progressively.
	Animate bool
	Source  string
}

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	ConversationID    *int64
	PendingNavigation *int64
	Messages          []Message
	State             State
	Sending           bool
	Loading           bool
}
