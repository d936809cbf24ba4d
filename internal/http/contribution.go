package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/chenty2333/ancient-arch/internal/model"
	"github.com/chenty2333/ancient-arch/internal/repository"
)

type createContributionRequest struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type architecturePayload struct {
	Category     string   `json:"category"`
	Name         string   `json:"name"`
	Dynasty      string   `json:"dynasty"`
	Location     string   `json:"location"`
	Description  string   `json:"description"`
	CoverImg     string   `json:"cover_img"`
	CarouselImgs []string `json:"carousel_imgs"`
}

type questionPayload struct {
	Type     string   `json:"type"`
	Content  string   `json:"content"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
	Analysis *string  `json:"analysis"`
}

// handleCreateContribution accepts a proposed architecture or question
// from a verified contributor. The payload is validated up front so a
// later admin approval can materialize it without surprises. One
// contribution per user per day, enforced by the database.
func (s *Server) handleCreateContribution(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createContributionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if msg := validateContributionPayload(req.Type, req.Data); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	id, err := s.store.CreateContribution(r.Context(), p.ID, req.Type, req.Data)
	if errors.Is(err, repository.ErrDailyContribution) {
		writeError(w, http.StatusConflict, "you have already contributed today, come back tomorrow")
		return
	}
	if err != nil {
		s.internalError(w, r, "contribution insert failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func validateContributionPayload(contributionType string, data json.RawMessage) string {
	switch contributionType {
	case model.ContributionArchitecture:
		var payload architecturePayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return "invalid architecture payload"
		}
		if payload.Name == "" || payload.Category == "" || payload.Description == "" {
			return "architecture name, category and description are required"
		}
	case model.ContributionQuestion:
		var payload questionPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return "invalid question payload"
		}
		if msg := validateQuestion(payload); msg != "" {
			return msg
		}
	default:
		return "type must be 'architecture' or 'question'"
	}
	return ""
}

func validateQuestion(payload questionPayload) string {
	if payload.Type != model.QuestionTypeSingle && payload.Type != model.QuestionTypeMultiple {
		return "question type must be 'single_choice' or 'multiple_choice'"
	}
	if payload.Content == "" || payload.Answer == "" {
		return "question content and answer are required"
	}
	if len(payload.Options) < 2 {
		return "a question needs at least two options"
	}
	return ""
}
