// ABOUTME: Agent chat and conversation history endpoints
// ABOUTME: Chat optionally continues an existing conversation

package api

import (
	"context"
	"fmt"
	"strings"
)

const agentPath = "/api/agent"

// Conversation is one stored chat thread.
type Conversation struct {
	ID           int64  `json:"id"`
	UserID       string `json:"user_id"`
	Title        string `json:"title"`
	MessageCount int    `json:"message_count"`
	LastMessage  string `json:"last_message"`
	CreatedAt    Time   `json:"created_at"`
	UpdatedAt    Time   `json:"updated_at"`
}

// DisplayTitle returns the title, or a placeholder for untitled threads.
func (c Conversation) DisplayTitle() string {
	if t := strings.TrimSpace(c.Title); t != "" {
		return t
	}
	return "New conversation"
}

// ChatMessage is one stored message of a conversation.
type ChatMessage struct {
	ID             int64  `json:"id"`
	ConversationID int64  `json:"conversation_id"`
	Role           string `json:"role"`
	Message        string `json:"message"`
	Timestamp      Time   `json:"timestamp"`
}

// ChatReply is the agent's answer to a chat message.
type ChatReply struct {
	Response       string   `json:"response"`
	ConversationID int64    `json:"conversation_id"`
	Sources        []string `json:"sources"`
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID *int64 `json:"conversation_id,omitempty"`
}

// AgentService talks to the conversational assistant.
type AgentService struct {
	d Doer
}

// NewAgentService creates an AgentService.
func NewAgentService(d Doer) *AgentService {
	return &AgentService{d: d}
}

// Chat sends message. A nil conversationID starts a new conversation.
func (s *AgentService) Chat(ctx context.Context, message string, conversationID *int64) (*ChatReply, error) {
	var reply ChatReply
	body := chatRequest{Message: message, ConversationID: conversationID}
	if err := post(ctx, s.d, agentPath+"/chat", body, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// Conversations lists the caller's conversations.
func (s *AgentService) Conversations(ctx context.Context) ([]Conversation, error) {
	var out struct {
		Conversations []Conversation `json:"conversations"`
	}
	if err := get(ctx, s.d, agentPath+"/conversations", &out); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}

// Messages returns the messages of conversation id, oldest first. A
// positive limit keeps only the most recent ones.
func (s *AgentService) Messages(ctx context.Context, id int64, limit int) ([]ChatMessage, error) {
	var out struct {
		ConversationID int64         `json:"conversation_id"`
		Messages       []ChatMessage `json:"messages"`
	}
	path := withLimit(idPath(agentPath+"/conversations", id), limit)
	if err := get(ctx, s.d, path, &out); err != nil {
		return nil, err
	}
	if out.ConversationID != 0 && out.ConversationID != id {
		return nil, fmt.Errorf("asked for conversation %d, got %d", id, out.ConversationID)
	}
	return out.Messages, nil
}

// DeleteConversation removes conversation id.
func (s *AgentService) DeleteConversation(ctx context.Context, id int64) error {
	return del(ctx, s.d, idPath(agentPath+"/conversations", id))
}
