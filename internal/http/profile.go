package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
)

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	profile, err := s.store.MeProfile(r.Context(), p.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "profile lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleListMyPosts(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var cursor *time.Time
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid cursor")
			return
		}
		cursor = &t
	}

	posts, err := s.store.ListPostsByAuthor(r.Context(), p.ID, cursor, pageSize(r))
	if err != nil {
		s.internalError(w, r, "post listing failed", err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleListMyFavorites(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	favorites, err := s.store.ListFavorites(r.Context(), p.ID)
	if err != nil {
		s.internalError(w, r, "favorite listing failed", err)
		return
	}
	writeJSON(w, http.StatusOK, favorites)
}

func (s *Server) handleListMyContributions(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	contributions, err := s.store.ListContributionsByUser(r.Context(), p.ID)
	if err != nil {
		s.internalError(w, r, "contribution listing failed", err)
		return
	}
	writeJSON(w, http.StatusOK, contributions)
}
