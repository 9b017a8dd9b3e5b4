// ABOUTME: Fake agent chat and conversation handlers
// ABOUTME: Chat creates a conversation when no conversation_id is sent

package apitest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// Conversation mirrors the backend conversation payload.
type Conversation struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"user_id"`
	Title        *string   `json:"title"`
	MessageCount int       `json:"message_count"`
	LastMessage  string    `json:"last_message"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ChatMessage mirrors the backend message payload.
type ChatMessage struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Role           string    `json:"role"`
	Message        string    `json:"message"`
	Timestamp      time.Time `json:"timestamp"`
}

type chatBody struct {
	Message        string `json:"message"`
	ConversationID *int64 `json:"conversation_id,omitempty"`
}

// AddConversation seeds a conversation with one user/assistant exchange.
func (s *Server) AddConversation(title string, updatedAt time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextIDLocked()
	t := title
	s.conversations = append(s.conversations, &Conversation{
		ID:           id,
		UserID:       "user-1",
		Title:        &t,
		MessageCount: 2,
		LastMessage:  "history reply",
		CreatedAt:    updatedAt,
		UpdatedAt:    updatedAt,
	})
	s.messages[id] = []ChatMessage{
		{ID: s.nextIDLocked(), ConversationID: id, Role: "user", Message: "history question", Timestamp: updatedAt},
		{ID: s.nextIDLocked(), ConversationID: id, Role: "assistant", Message: "history reply", Timestamp: updatedAt},
	}
	return id
}

// ConversationCount returns how many conversations exist.
func (s *Server) ConversationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}

func (s *Server) nextIDLocked() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Server) findConversationLocked(id int64) *Conversation {
	for _, c := range s.conversations {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body chatBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	s.mu.Lock()
	gate := s.chatGate
	reply := s.ChatReply
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	text, sources := reply(body.Message)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	var conv *Conversation
	if body.ConversationID != nil {
		conv = s.findConversationLocked(*body.ConversationID)
		if conv == nil {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
	} else {
		title := body.Message
		if len(title) > 50 {
			title = title[:50]
		}
		conv = &Conversation{ID: s.nextIDLocked(), UserID: "user-1", Title: &title, CreatedAt: now}
		s.conversations = append(s.conversations, conv)
	}

	s.messages[conv.ID] = append(s.messages[conv.ID],
		ChatMessage{ID: s.nextIDLocked(), ConversationID: conv.ID, Role: "user", Message: body.Message, Timestamp: now},
		ChatMessage{ID: s.nextIDLocked(), ConversationID: conv.ID, Role: "assistant", Message: text, Timestamp: now},
	)
	conv.MessageCount += 2
	conv.LastMessage = text
	conv.UpdatedAt = now

	writeData(w, http.StatusOK, map[string]any{
		"response":        text,
		"conversation_id": conv.ID,
		"sources":         sources,
	})
}

func (s *Server) handleListConversations(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		out = append(out, *c)
	}
	writeData(w, http.StatusOK, map[string]any{"conversations": out})
}

func (s *Server) handleConversationMessages(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findConversationLocked(id) == nil {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	msgs := append([]ChatMessage{}, s.messages[id]...)
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 && limit < len(msgs) {
		msgs = msgs[len(msgs)-limit:]
	}
	writeData(w, http.StatusOK, map[string]any{"conversation_id": id, "messages": msgs})
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.conversations {
		if c.ID == id {
			s.conversations = append(s.conversations[:i], s.conversations[i+1:]...)
			delete(s.messages, id)
			writeMessage(w, http.StatusOK, "conversation deleted", nil)
			return
		}
	}
	writeError(w, http.StatusNotFound, "conversation not found")
}
