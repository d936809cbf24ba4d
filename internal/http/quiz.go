package http

import (
	"encoding/json"
	"net/http"

	"github.com/chenty2333/ancient-arch/internal/config"
	"github.com/chenty2333/ancient-arch/internal/model"
)

const leaderboardCacheKey = "quiz:leaderboard"

type quizPaperResponse struct {
	Questions []model.PublicQuestion `json:"questions"`
}

type submitQuizRequest struct {
	Answers map[int64]string `json:"answers"`
}

type quizResult struct {
	Score        int64 `json:"score"`
	CorrectCount int   `json:"correct_count"`
	Total        int   `json:"total"`
}

// handleGenerateQuizPaper draws the casual quiz paper: single-choice
// questions first, then multiple-choice. No token, no session; the quiz
// is graded against whatever ids come back with the submission.
func (s *Server) handleGenerateQuizPaper(w http.ResponseWriter, r *http.Request) {
	single, err := s.store.RandomQuestionsByType(r.Context(), model.QuestionTypeSingle, config.QuizSingleCount)
	if err != nil {
		s.internalError(w, r, "quiz draw failed", err)
		return
	}
	multiple, err := s.store.RandomQuestionsByType(r.Context(), model.QuestionTypeMultiple, config.QuizMultipleCount)
	if err != nil {
		s.internalError(w, r, "quiz draw failed", err)
		return
	}

	public := make([]model.PublicQuestion, 0, len(single)+len(multiple))
	for _, q := range single {
		public = append(public, q.Public())
	}
	for _, q := range multiple {
		public = append(public, q.Public())
	}
	writeJSON(w, http.StatusOK, quizPaperResponse{Questions: public})
}

func (s *Server) handleSubmitQuizPaper(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req submitQuizRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Answers) == 0 {
		writeError(w, http.StatusBadRequest, "no answers submitted")
		return
	}

	ids := make([]int64, 0, len(req.Answers))
	for id := range req.Answers {
		ids = append(ids, id)
	}
	answerKeys, err := s.store.AnswerKeys(r.Context(), ids)
	if err != nil {
		s.internalError(w, r, "answer key fetch failed", err)
		return
	}

	correct, _ := scoreAnswers(req.Answers, answerKeys, len(req.Answers))
	score := int64(correct) * config.QuizPointsPerHit

	if err := s.store.UpsertBestScore(r.Context(), p.ID, score); err != nil {
		s.internalError(w, r, "score upsert failed", err)
		return
	}
	s.invalidateLeaderboard(r)

	writeJSON(w, http.StatusOK, quizResult{
		Score:        score,
		CorrectCount: correct,
		Total:        len(req.Answers),
	})
}

// handleLeaderboard serves the top quiz scores, from redis when a cache
// is configured and warm, from the database otherwise.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if entries, ok := s.cachedLeaderboard(r); ok {
		writeJSON(w, http.StatusOK, entries)
		return
	}

	entries, err := s.store.Leaderboard(r.Context(), config.LeaderboardSize)
	if err != nil {
		s.internalError(w, r, "leaderboard query failed", err)
		return
	}

	if s.redis != nil {
		if payload, err := json.Marshal(entries); err == nil {
			if err := s.redis.Set(r.Context(), leaderboardCacheKey, payload, config.LeaderboardCacheTTL).Err(); err != nil {
				s.logger.Warn("leaderboard cache write failed", "error", err)
			}
		}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) cachedLeaderboard(r *http.Request) ([]model.LeaderboardEntry, bool) {
	if s.redis == nil {
		return nil, false
	}
	payload, err := s.redis.Get(r.Context(), leaderboardCacheKey).Bytes()
	if err != nil {
		return nil, false
	}
	var entries []model.LeaderboardEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func (s *Server) invalidateLeaderboard(r *http.Request) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(r.Context(), leaderboardCacheKey).Err(); err != nil {
		s.logger.Warn("leaderboard cache invalidation failed", "error", err)
	}
}
