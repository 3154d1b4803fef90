package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"wtq-task-mining/internal/core"

	log "github.com/sirupsen/logrus"
)

type signUpRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	InviteCode string `json:"invite_code"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleSignUp registers a new account and opens a session for it
func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, err := s.service.SignUp(req.Email, req.Password, req.InviteCode)
	if err != nil {
		if errors.Is(err, core.ErrEmailTaken) {
			s.writeError(w, r, http.StatusConflict, err.Error())
			return
		}
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.setUserID(w, r, profile.ID); err != nil {
		log.Errorf("Failed to create session: %v", err)
		s.writeError(w, r, http.StatusInternalServerError, "failed to create session")
		return
	}

	log.WithFields(log.Fields{"user_id": profile.ID, "email": profile.Email}).Info("✅ New account registered")
	s.writeJSON(w, http.StatusCreated, profileResponse(profile))
}

// handleLogin verifies credentials and opens a session
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, err := s.service.SignIn(req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, http.StatusUnauthorized, core.ErrInvalidCredentials.Error())
		return
	}

	if err := s.setUserID(w, r, profile.ID); err != nil {
		log.Errorf("Failed to create session: %v", err)
		s.writeError(w, r, http.StatusInternalServerError, "failed to create session")
		return
	}

	s.writeJSON(w, http.StatusOK, profileResponse(profile))
}

// handleLogout closes the session
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.clearSession(w, r); err != nil {
		log.Errorf("Failed to clear session: %v", err)
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
