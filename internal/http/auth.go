package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/chenty2333/ancient-arch/internal/auth"
	"github.com/chenty2333/ancient-arch/internal/crypto"
	"github.com/chenty2333/ancient-arch/internal/model"
	"github.com/chenty2333/ancient-arch/internal/repository"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

const (
	minUsernameLen = 3
	maxUsernameLen = 32
	minPasswordLen = 6
)

func validateCredentials(req credentialsRequest) string {
	if len(req.Username) < minUsernameLen || len(req.Username) > maxUsernameLen {
		return "username must be between 3 and 32 characters"
	}
	if len(req.Password) < minPasswordLen {
		return "password must be at least 6 characters"
	}
	return ""
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if msg := validateCredentials(req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	digest, err := crypto.HashPassword(req.Password)
	if err != nil {
		s.internalError(w, r, "password hashing failed", err)
		return
	}

	user, err := s.store.CreateUser(r.Context(), req.Username, digest, model.RoleUser)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			writeError(w, http.StatusConflict, "username '"+req.Username+"' already exists")
			return
		}
		s.internalError(w, r, "user creation failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := s.store.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Same response as a wrong password: account existence is
			// not disclosed.
			loginAttempts.WithLabelValues("rejected").Inc()
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		s.internalError(w, r, "login lookup failed", err)
		return
	}

	ok, err := crypto.VerifyPassword(req.Password, user.Password)
	if err != nil {
		// A digest that cannot be parsed is corrupt stored state, not a
		// client mistake.
		s.internalError(w, r, "stored digest unreadable", err)
		return
	}
	if !ok {
		loginAttempts.WithLabelValues("rejected").Inc()
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	token, err := auth.NewLoginToken(s.loginKey, user.ID, user.Role, s.cfg.JWTExpiration)
	if err != nil {
		s.internalError(w, r, "token signing failed", err)
		return
	}

	loginAttempts.WithLabelValues("accepted").Inc()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":       token,
		"type":        "Bearer",
		"is_verified": user.IsVerified,
	})
}
