package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/chenty2333/ancient-arch/internal/model"
	"github.com/chenty2333/ancient-arch/internal/repository"
)

const defaultPageSize = 20

type createPostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createPostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	if req.Title == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, "title and content are required")
		return
	}

	id, err := s.store.CreatePost(r.Context(), p.ID, req.Title, req.Content)
	if err != nil {
		s.internalError(w, r, "post insert failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	params := repository.ListPostsParams{
		Sort:  r.URL.Query().Get("sort"),
		Limit: pageSize(r),
	}
	if cursor := r.URL.Query().Get("cursor"); cursor != "" {
		t, err := time.Parse(time.RFC3339Nano, cursor)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid cursor")
			return
		}
		params.Cursor = &t
	}

	posts, err := s.store.ListPosts(r.Context(), params)
	if err != nil {
		s.internalError(w, r, "post listing failed", err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	postID, ok := idFromURL(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}

	var viewerID *int64
	if p := principalFromContext(r.Context()); p != nil {
		viewerID = &p.ID
	}

	post, err := s.store.GetPost(r.Context(), postID, viewerID)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "post lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// handleDeletePost soft-deletes a post. Only the author or an admin may
// delete.
func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
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

	authorID, err := s.store.PostAuthor(r.Context(), postID)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "post lookup failed", err)
		return
	}
	if authorID != p.ID && p.Role != model.RoleAdmin {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	if err := s.store.SoftDeletePost(r.Context(), postID); err != nil {
		s.internalError(w, r, "post delete failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "post deleted"})
}

func pageSize(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultPageSize
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 100 {
		return defaultPageSize
	}
	return n
}
