package http

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"
)

func (s *Server) handleListArchitectures(w http.ResponseWriter, r *http.Request) {
	var category, nameQuery *string
	if v := r.URL.Query().Get("category"); v != "" {
		category = &v
	}
	if v := r.URL.Query().Get("name"); v != "" {
		nameQuery = &v
	}

	architectures, err := s.store.ListArchitectures(r.Context(), category, nameQuery)
	if err != nil {
		s.internalError(w, r, "architecture listing failed", err)
		return
	}
	writeJSON(w, http.StatusOK, architectures)
}

func (s *Server) handleGetArchitecture(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromURL(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid architecture id")
		return
	}
	architecture, err := s.store.GetArchitecture(r.Context(), id)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "architecture not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "architecture lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, architecture)
}
