// ABOUTME: Fake /authentications handlers: login, refresh, logout
// ABOUTME: Refresh honours HoldRefresh gates and FailRefresh status injection

package apitest

import (
	"encoding/json"
	"net/http"
)

type tokenBody struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	RefreshToken string `json:"refreshToken"`
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body tokenBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	s.mu.Lock()
	password, ok := s.users[body.Username]
	if !ok || password != body.Password {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}
	access, refresh := s.issueLocked()
	s.mu.Unlock()

	writeMessage(w, http.StatusCreated, "authentication added", tokenPair{AccessToken: access, RefreshToken: refresh})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body tokenBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	s.mu.Lock()
	gate := s.refreshGate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refreshFail != 0 {
		writeError(w, s.refreshFail, "refresh rejected")
		return
	}
	if !s.refreshTokens[body.RefreshToken] {
		writeError(w, http.StatusBadRequest, "invalid refresh token")
		return
	}

	access, refresh := s.issueLocked()
	resp := tokenPair{AccessToken: access}
	if s.RotateRefresh {
		delete(s.refreshTokens, body.RefreshToken)
		resp.RefreshToken = refresh
	} else {
		delete(s.refreshTokens, refresh)
	}
	writeMessage(w, http.StatusOK, "access token refreshed", resp)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var body tokenBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.refreshTokens[body.RefreshToken] {
		writeError(w, http.StatusBadRequest, "invalid refresh token")
		return
	}
	delete(s.refreshTokens, body.RefreshToken)
	writeMessage(w, http.StatusOK, "refresh token deleted", nil)
}
