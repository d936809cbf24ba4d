package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
)

func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	s.toggleMark(w, r, s.store.ToggleLike, "liked")
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	s.toggleMark(w, r, s.store.ToggleFavorite, "favorited")
}

func (s *Server) toggleMark(w http.ResponseWriter, r *http.Request, toggle func(ctx context.Context, userID, postID int64) (bool, error), verb string) {
	p := principalFromContext(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	postID, ok := idFromURL(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}

	active, err := toggle(r.Context(), p.ID, postID)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "toggle failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{verb: active})
}

type createCommentRequest struct {
	Content  string `json:"content"`
	ParentID *int64 `json:"parent_id"`
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	postID, ok := idFromURL(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}

	var req createCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	id, err := s.store.CreateComment(r.Context(), postID, p.ID, req.Content, req.ParentID)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "post or parent comment not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "comment insert failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	postID, ok := idFromURL(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}
	comments, err := s.store.ListComments(r.Context(), postID)
	if err != nil {
		s.internalError(w, r, "comment listing failed", err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}
