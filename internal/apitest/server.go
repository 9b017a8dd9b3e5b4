// ABOUTME: In-process fake of the Predictera REST API for tests
// ABOUTME: chi-routed httptest server with token auth, refresh gating, and call counters

package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// Server is a fake backend. Zero-config: NewServer registers user
// "admin"/"secret" and issues tokens "access-N"/"refresh-N".
type Server struct {
	*httptest.Server

	mu sync.Mutex

	users         map[string]string
	accessTokens  map[string]bool
	refreshTokens map[string]bool
	tokenSeq      int

	// RotateRefresh issues a new refresh token on every refresh.
	RotateRefresh bool

	refreshGate chan struct{}
	refreshFail int

	calls       map[string]int
	authHeaders map[string][]string
	failNext    map[string]int

	machines      []Machine
	conversations []*Conversation
	messages      map[int64][]ChatMessage
	diagnostics   []Diagnostic
	sensors       []SensorData
	appUsers      []User
	notifications []Notification
	nextID        int64

	chatGate chan struct{}
	// ChatReply builds the assistant reply for a chat message.
	ChatReply func(message string) (reply string, sources []string)
}

// NewServer starts a fake backend and closes it when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		users:         map[string]string{"admin": "secret"},
		accessTokens:  map[string]bool{},
		refreshTokens: map[string]bool{},
		calls:         map[string]int{},
		authHeaders:   map[string][]string{},
		failNext:      map[string]int{},
		messages:      map[int64][]ChatMessage{},
		nextID:        1,
		ChatReply: func(message string) (string, []string) {
			return "You said: " + message, []string{"Google Gemini AI"}
		},
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Route("/authentications", func(r chi.Router) {
		r.Post("/", s.handleLogin)
		r.Put("/", s.handleRefresh)
		r.Delete("/", s.handleLogout)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Route("/api/agent", func(r chi.Router) {
			r.Post("/chat", s.handleChat)
			r.Get("/conversations", s.handleListConversations)
			r.Get("/conversations/{id}", s.handleConversationMessages)
			r.Delete("/conversations/{id}", s.handleDeleteConversation)
		})

		r.Route("/api/machines", func(r chi.Router) {
			r.Get("/", s.handleListMachines)
			r.Post("/", s.handleCreateMachine)
			r.Get("/{id}", s.handleGetMachine)
			r.Put("/{id}", s.handleUpdateMachine)
			r.Delete("/{id}", s.handleDeleteMachine)
		})

		r.Route("/api/diagnostics", func(r chi.Router) {
			r.Get("/", s.handleAllLatestDiagnostics)
			r.Post("/bulk", s.handleBulkDiagnostics)
			r.Post("/{machineId}", s.handleRunDiagnostics)
			r.Get("/{machineId}/latest", s.handleLatestDiagnostic)
			r.Get("/{machineId}/history", s.handleDiagnosticHistory)
		})

		r.Route("/api/sensors", func(r chi.Router) {
			r.Post("/", s.handleCreateSensorData)
			r.Get("/{machineId}/history", s.handleSensorHistory)
			r.Get("/{machineId}/latest", s.handleLatestSensorData)
		})

		r.Route("/api/users", func(r chi.Router) {
			r.Get("/", s.handleListUsers)
			r.Post("/", s.handleRegisterUser)
			r.Get("/{id}", s.handleGetUser)
			r.Delete("/{id}", s.handleDeleteUser)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", s.handleListNotifications)
			r.Post("/", s.handleCreateNotification)
			r.Delete("/{id}", s.handleDeleteNotification)
		})
	})

	return r
}

// record counts calls, keeps Authorization headers, and applies FailNext.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + strings.TrimSuffix(r.URL.Path, "/")

		s.mu.Lock()
		s.calls[key]++
		s.authHeaders[key] = append(s.authHeaders[key], r.Header.Get("Authorization"))
		status, fail := s.failNext[key]
		if fail {
			delete(s.failNext, key)
		}
		s.mu.Unlock()

		if fail {
			writeError(w, status, fmt.Sprintf("injected failure %d", status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		valid := ok && s.accessTokens[token]
		s.mu.Unlock()

		if !valid {
			writeError(w, http.StatusUnauthorized, "Missing or invalid access token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Calls returns how many requests matched "METHOD /path".
func (s *Server) Calls(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

// AuthHeaders returns the Authorization headers seen for "METHOD /path".
func (s *Server) AuthHeaders(key string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.authHeaders[key]...)
}

// FailNext makes the next request matching "METHOD /path" fail with status.
func (s *Server) FailNext(key string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[key] = status
}

// IssueTokens mints a valid access/refresh pair without going through login.
func (s *Server) IssueTokens() (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked()
}

func (s *Server) issueLocked() (string, string) {
	s.tokenSeq++
	access := fmt.Sprintf("access-%d", s.tokenSeq)
	refresh := fmt.Sprintf("refresh-%d", s.tokenSeq)
	s.accessTokens[access] = true
	s.refreshTokens[refresh] = true
	return access, refresh
}

// ExpireAccessTokens invalidates every issued access token.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessTokens = map[string]bool{}
}

// RevokeRefreshTokens invalidates every issued refresh token.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshTokens = map[string]bool{}
}

// HoldRefresh makes refresh calls block until the returned func is called.
func (s *Server) HoldRefresh() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.refreshGate = gate
	s.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// HoldChat makes chat calls block until the returned func is called.
func (s *Server) HoldChat() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.chatGate = gate
	s.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// FailRefresh makes every refresh call fail with status (0 restores success).
func (s *Server) FailRefresh(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshFail = status
}

type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Status: "success", Data: data})
}

func writeMessage(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Status: "success", Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Status: "fail", Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
