package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/chenty2333/ancient-arch/internal/crypto"
	"github.com/chenty2333/ancient-arch/internal/model"
	"github.com/chenty2333/ancient-arch/internal/repository"
)

func (s *Server) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.internalError(w, r, "user listing failed", err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

type adminCreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (s *Server) handleAdminCreateUser(w http.ResponseWriter, r *http.Request) {
	var req adminCreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if msg := validateCredentials(credentialsRequest{Username: req.Username, Password: req.Password}); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if req.Role == "" {
		req.Role = model.RoleUser
	}
	if req.Role != model.RoleUser && req.Role != model.RoleAdmin {
		writeError(w, http.StatusBadRequest, "role must be 'user' or 'admin'")
		return
	}

	digest, err := crypto.HashPassword(req.Password)
	if err != nil {
		s.internalError(w, r, "password hashing failed", err)
		return
	}

	user, err := s.store.CreateUser(r.Context(), req.Username, digest, req.Role)
	if errors.Is(err, repository.ErrDuplicateUsername) {
		writeError(w, http.StatusConflict, fmt.Sprintf("username '%s' already exists", req.Username))
		return
	}
	if err != nil {
		s.internalError(w, r, "user insert failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type adminUpdateUserRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

func (s *Server) handleAdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := idFromURL(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req adminUpdateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Role != nil && *req.Role != model.RoleUser && *req.Role != model.RoleAdmin {
		writeError(w, http.StatusBadRequest, "role must be 'user' or 'admin'")
		return
	}

	update := repository.UserUpdate{Username: req.Username, Role: req.Role}
	if req.Password != nil {
		if len(*req.Password) < minPasswordLen {
			writeError(w, http.StatusBadRequest, "password must be at least 6 characters")
			return
		}
		digest, err := crypto.HashPassword(*req.Password)
		if err != nil {
			s.internalError(w, r, "password hashing failed", err)
			return
		}
		update.Password = &digest
	}

	found, err := s.store.UpdateUser(r.Context(), userID, update)
	if errors.Is(err, repository.ErrDuplicateUsername) {
		writeError(w, http.StatusConflict, "username already exists")
		return
	}
	if err != nil {
		s.internalError(w, r, "user update failed", err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "user updated"})
}

func (s *Server) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())
	userID, ok := idFromURL(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if p != nil && p.ID == userID {
		writeError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	found, err := s.store.DeleteUser(r.Context(), userID)
	if err != nil {
		s.internalError(w, r, "user delete failed", err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

func (s *Server) handleAdminCreateArchitecture(w http.ResponseWriter, r *http.Request) {
	var payload architecturePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Name == "" || payload.Category == "" || payload.Description == "" {
		writeError(w, http.StatusBadRequest, "architecture name, category and description are required")
		return
	}

	id, err := s.store.CreateArchitecture(r.Context(), model.Architecture{
		Category:     payload.Category,
		Name:         payload.Name,
		Dynasty:      payload.Dynasty,
		Location:     payload.Location,
		Description:  payload.Description,
		CoverImg:     payload.CoverImg,
		CarouselImgs: payload.CarouselImgs,
	})
	if err != nil {
		s.internalError(w, r, "architecture insert failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

type adminUpdateArchitectureRequest struct {
	Category     *string   `json:"category"`
	Name         *string   `json:"name"`
	Dynasty      *string   `json:"dynasty"`
	Location     *string   `json:"location"`
	Description  *string   `json:"description"`
	CoverImg     *string   `json:"cover_img"`
	CarouselImgs *[]string `json:"carousel_imgs"`
}

func (s *Server) handleAdminUpdateArchitecture(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromURL(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid architecture id")
		return
	}

	var req adminUpdateArchitectureRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	found, err := s.store.UpdateArchitecture(r.Context(), id, repository.ArchitectureUpdate{
		Category:     req.Category,
		Name:         req.Name,
		Dynasty:      req.Dynasty,
		Location:     req.Location,
		Description:  req.Description,
		CoverImg:     req.CoverImg,
		CarouselImgs: req.CarouselImgs,
	})
	if err != nil {
		s.internalError(w, r, "architecture update failed", err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "architecture not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "architecture updated"})
}

func (s *Server) handleAdminDeleteArchitecture(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromURL(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid architecture id")
		return
	}
	found, err := s.store.DeleteArchitecture(r.Context(), id)
	if err != nil {
		s.internalError(w, r, "architecture delete failed", err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "architecture not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "architecture deleted"})
}

func (s *Server) handleAdminCreateQuestion(w http.ResponseWriter, r *http.Request) {
	var payload questionPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := validateQuestion(payload); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	id, err := s.store.CreateQuestion(r.Context(), model.Question{
		Type:     payload.Type,
		Content:  payload.Content,
		Options:  payload.Options,
		Answer:   payload.Answer,
		Analysis: payload.Analysis,
	})
	if err != nil {
		s.internalError(w, r, "question insert failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

type adminUpdateQuestionRequest struct {
	Type     *string   `json:"type"`
	Content  *string   `json:"content"`
	Options  *[]string `json:"options"`
	Answer   *string   `json:"answer"`
	Analysis *string   `json:"analysis"`
}

func (s *Server) handleAdminUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromURL(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid question id")
		return
	}

	var req adminUpdateQuestionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Type != nil && *req.Type != model.QuestionTypeSingle && *req.Type != model.QuestionTypeMultiple {
		writeError(w, http.StatusBadRequest, "question type must be 'single_choice' or 'multiple_choice'")
		return
	}

	found, err := s.store.UpdateQuestion(r.Context(), id, repository.QuestionUpdate{
		Type:     req.Type,
		Content:  req.Content,
		Options:  req.Options,
		Answer:   req.Answer,
		Analysis: req.Analysis,
	})
	if err != nil {
		s.internalError(w, r, "question update failed", err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "question not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "question updated"})
}

func (s *Server) handleAdminDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromURL(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid question id")
		return
	}
	found, err := s.store.DeleteQuestion(r.Context(), id)
	if err != nil {
		s.internalError(w, r, "question delete failed", err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "question not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "question deleted"})
}

func (s *Server) handleAdminListContributions(w http.ResponseWriter, r *http.Request) {
	var status *string
	if v := r.URL.Query().Get("status"); v != "" {
		if v != model.ContributionPending && v != model.ContributionApproved && v != model.ContributionRejected {
			writeError(w, http.StatusBadRequest, "status must be 'pending', 'approved' or 'rejected'")
			return
		}
		status = &v
	}
	contributions, err := s.store.ListContributions(r.Context(), status)
	if err != nil {
		s.internalError(w, r, "contribution listing failed", err)
		return
	}
	writeJSON(w, http.StatusOK, contributions)
}

type reviewContributionRequest struct {
	Approve bool    `json:"approve"`
	Comment *string `json:"comment"`
}

// handleAdminReviewContribution settles a pending contribution. An
// approval first materializes the contributed payload as a real
// architecture or question, then flips the status; the materialization
// failing leaves the contribution pending for a retry.
func (s *Server) handleAdminReviewContribution(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromURL(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid contribution id")
		return
	}

	var req reviewContributionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	contribution, err := s.store.GetContribution(r.Context(), id)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "contribution not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "contribution lookup failed", err)
		return
	}
	if contribution.Status != model.ContributionPending {
		writeError(w, http.StatusConflict, "contribution has already been reviewed")
		return
	}

	status := model.ContributionRejected
	if req.Approve {
		if err := s.materializeContribution(r, contribution); err != nil {
			s.internalError(w, r, "contribution materialization failed", err)
			return
		}
		status = model.ContributionApproved
	}

	updated, err := s.store.ReviewContribution(r.Context(), id, status, req.Comment)
	if err != nil {
		s.internalError(w, r, "contribution review failed", err)
		return
	}
	if !updated {
		writeError(w, http.StatusConflict, "contribution has already been reviewed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "contribution " + status})
}

func (s *Server) materializeContribution(r *http.Request, contribution model.Contribution) error {
	switch contribution.Type {
	case model.ContributionArchitecture:
		var payload architecturePayload
		if err := json.Unmarshal(contribution.Data, &payload); err != nil {
			return err
		}
		_, err := s.store.CreateArchitecture(r.Context(), model.Architecture{
			Category:     payload.Category,
			Name:         payload.Name,
			Dynasty:      payload.Dynasty,
			Location:     payload.Location,
			Description:  payload.Description,
			CoverImg:     payload.CoverImg,
			CarouselImgs: payload.CarouselImgs,
		})
		return err
	case model.ContributionQuestion:
		var payload questionPayload
		if err := json.Unmarshal(contribution.Data, &payload); err != nil {
			return err
		}
		_, err := s.store.CreateQuestion(r.Context(), model.Question{
			Type:     payload.Type,
			Content:  payload.Content,
			Options:  payload.Options,
			Answer:   payload.Answer,
			Analysis: payload.Analysis,
		})
		return err
	default:
		return fmt.Errorf("unknown contribution type %q", contribution.Type)
	}
}
