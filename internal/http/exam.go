package http

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/chenty2333/ancient-arch/internal/auth"
	"github.com/chenty2333/ancient-arch/internal/config"
	"github.com/chenty2333/ancient-arch/internal/model"
)

type examResponse struct {
	Questions []model.PublicQuestion `json:"questions"`
	ExamToken string                 `json:"exam_token"`
	ExpiresIn int64                  `json:"expires_in"`
}

type submitExamRequest struct {
	ExamToken string           `json:"exam_token"`
	Answers   map[int64]string `json:"answers"`
}

type examResult struct {
	Score          float64 `json:"score"`
	CorrectCount   int     `json:"correct_count"`
	TotalQuestions int     `json:"total_questions"`
	Passed         bool    `json:"passed"`
	Message        string  `json:"message"`
}

// handleGenerateExam draws a random question sample and freezes the
// assignment inside a signed exam token. Nothing is persisted: the token
// is the whole exam session.
func (s *Server) handleGenerateExam(w http.ResponseWriter, r *http.Request) {
	questions, err := s.store.RandomQuestions(r.Context(), config.ExamQuestionCount)
	if err != nil {
		s.internalError(w, r, "question draw failed", err)
		return
	}

	questionIDs := make([]int64, 0, len(questions))
	public := make([]model.PublicQuestion, 0, len(questions))
	for _, q := range questions {
		questionIDs = append(questionIDs, q.ID)
		public = append(public, q.Public())
	}

	token, err := auth.NewExamToken(s.examKey, questionIDs, config.ExamTokenTTL)
	if err != nil {
		s.internalError(w, r, "exam token signing failed", err)
		return
	}

	writeJSON(w, http.StatusOK, examResponse{
		Questions: public,
		ExamToken: token,
		ExpiresIn: int64(config.ExamTokenTTL.Seconds()),
	})
}

// handleSubmitExam grades a submission against the question set frozen in
// the exam token and, on a passing score, marks the user verified. A
// failed verification write fails the whole submission: the client is
// never told "passed" while storage disagrees.
func (s *Server) handleSubmitExam(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req submitExamRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims, err := auth.ParseExamToken(s.examKey, req.ExamToken)
	if err != nil {
		examSubmissions.WithLabelValues("rejected").Inc()
		writeError(w, http.StatusBadRequest, "invalid or expired exam token, please restart the exam")
		return
	}
	assigned := claims.QuestionIDs

	if msg := validateAnswerSet(assigned, req.Answers); msg != "" {
		examSubmissions.WithLabelValues("rejected").Inc()
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	answerKeys, err := s.store.AnswerKeys(r.Context(), assigned)
	if err != nil {
		s.internalError(w, r, "answer key fetch failed", err)
		return
	}

	correct, score := scoreAnswers(req.Answers, answerKeys, len(assigned))
	passed := score >= config.PassingScorePercentage

	if passed {
		if err := s.store.MarkUserVerified(r.Context(), p.ID); err != nil {
			s.internalError(w, r, "verification write failed", err)
			return
		}
		examSubmissions.WithLabelValues("passed").Inc()
	} else {
		examSubmissions.WithLabelValues("failed").Inc()
	}

	message := "Verification successful!"
	if !passed {
		message = "Score too low. Try again."
	}
	writeJSON(w, http.StatusOK, examResult{
		Score:          score,
		CorrectCount:   correct,
		TotalQuestions: len(assigned),
		Passed:         passed,
		Message:        message,
	})
}

// validateAnswerSet enforces an exact match between the submitted answer
// keys and the assigned question set: extra ids and incomplete sets are
// both rejected. Returns an empty string when the set is acceptable.
func validateAnswerSet(assigned []int64, answers map[int64]string) string {
	assignedSet := make(map[int64]struct{}, len(assigned))
	for _, id := range assigned {
		assignedSet[id] = struct{}{}
	}

	var unknown []int64
	for id := range answers {
		if _, ok := assignedSet[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
		ids := make([]string, len(unknown))
		for i, id := range unknown {
			ids[i] = fmt.Sprintf("%d", id)
		}
		return fmt.Sprintf("question id(s) %s were not part of this exam session", strings.Join(ids, ", "))
	}

	if len(answers) < len(assigned) {
		return "please answer all questions before submitting"
	}
	return ""
}

// scoreAnswers compares each submitted answer to the stored key with
// exact string equality. total of zero yields a zero score, never a
// division error.
func scoreAnswers(answers, answerKeys map[int64]string, total int) (int, float64) {
	if total == 0 {
		return 0, 0.0
	}
	correct := 0
	for id, submitted := range answers {
		if key, ok := answerKeys[id]; ok && submitted == key {
			correct++
		}
	}
	return correct, 100.0 * float64(correct) / float64(total)
}
