package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chenty2333/ancient-arch/internal/auth"
	"github.com/chenty2333/ancient-arch/internal/config"
	"github.com/chenty2333/ancient-arch/internal/model"
)

// fakeStore embeds the Store interface so tests only implement the
// methods they exercise; anything else panics loudly.
type fakeStore struct {
	Store

	randomQuestions   func(ctx context.Context, limit int) ([]model.Question, error)
	answerKeys        func(ctx context.Context, questionIDs []int64) (map[int64]string, error)
	markUserVerified  func(ctx context.Context, userID int64) error
	userVerification  func(ctx context.Context, userID int64) (bool, string, error)
	getUserByUsername func(ctx context.Context, username string) (model.User, error)
	createUser        func(ctx context.Context, username, passwordDigest, role string) (model.User, error)

	randomQuestionsByType func(ctx context.Context, questionType string, limit int) ([]model.Question, error)
	upsertBestScore       func(ctx context.Context, userID, score int64) error
	leaderboard           func(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
}

func (f *fakeStore) RandomQuestions(ctx context.Context, limit int) ([]model.Question, error) {
	return f.randomQuestions(ctx, limit)
}

func (f *fakeStore) AnswerKeys(ctx context.Context, questionIDs []int64) (map[int64]string, error) {
	return f.answerKeys(ctx, questionIDs)
}

func (f *fakeStore) MarkUserVerified(ctx context.Context, userID int64) error {
	return f.markUserVerified(ctx, userID)
}

func (f *fakeStore) UserVerification(ctx context.Context, userID int64) (bool, string, error) {
	return f.userVerification(ctx, userID)
}

func (f *fakeStore) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	return f.getUserByUsername(ctx, username)
}

func (f *fakeStore) CreateUser(ctx context.Context, username, passwordDigest, role string) (model.User, error) {
	return f.createUser(ctx, username, passwordDigest, role)
}

func (f *fakeStore) RandomQuestionsByType(ctx context.Context, questionType string, limit int) ([]model.Question, error) {
	return f.randomQuestionsByType(ctx, questionType, limit)
}

func (f *fakeStore) UpsertBestScore(ctx context.Context, userID, score int64) error {
	return f.upsertBestScore(ctx, userID, score)
}

func (f *fakeStore) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	return f.leaderboard(ctx, limit)
}

const testSecret = "test-secret"

func newTestServer(store Store) *Server {
	cfg := config.Config{JWTSecret: testSecret, JWTExpiration: time.Hour}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(cfg, store, logger, nil)
}

func loginTokenFor(t *testing.T, userID int64, role string) string {
	t.Helper()
	token, err := auth.NewLoginToken(auth.ScopedSecret(testSecret, auth.ScopeLogin), userID, role, time.Hour)
	if err != nil {
		t.Fatalf("NewLoginToken: %v", err)
	}
	return token
}

func examTokenFor(t *testing.T, questionIDs []int64, ttl time.Duration) string {
	t.Helper()
	token, err := auth.NewExamToken(auth.ScopedSecret(testSecret, auth.ScopeExam), questionIDs, ttl)
	if err != nil {
		t.Fatalf("NewExamToken: %v", err)
	}
	return token
}

func doRequest(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func submitBody(examToken string, answers map[int64]string) map[string]any {
	converted := make(map[string]string, len(answers))
	for id, answer := range answers {
		converted[fmt.Sprintf("%d", id)] = answer
	}
	return map[string]any{"exam_token": examToken, "answers": converted}
}

func TestGenerateExam(t *testing.T) {
	store := &fakeStore{
		randomQuestions: func(_ context.Context, limit int) ([]model.Question, error) {
			if limit != config.ExamQuestionCount {
				t.Errorf("limit = %d, want %d", limit, config.ExamQuestionCount)
			}
			return []model.Question{
				{ID: 1, Type: model.QuestionTypeSingle, Content: "q1", Options: []string{"A", "B"}, Answer: "A"},
				{ID: 2, Type: model.QuestionTypeSingle, Content: "q2", Options: []string{"A", "B"}, Answer: "B"},
			}, nil
		},
	}
	srv := newTestServer(store)
	rec := doRequest(t, srv.Router(), http.MethodGet, "/api/auth/qualification", loginTokenFor(t, 7, model.RoleUser), nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), `"answer"`) {
		t.Fatal("response leaks answer keys")
	}

	var resp struct {
		Questions []model.PublicQuestion `json:"questions"`
		ExamToken string                 `json:"exam_token"`
		ExpiresIn int64                  `json:"expires_in"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Questions) != 2 {
		t.Fatalf("questions = %d, want 2", len(resp.Questions))
	}
	if resp.ExpiresIn != int64(config.ExamTokenTTL.Seconds()) {
		t.Errorf("expires_in = %d, want %d", resp.ExpiresIn, int64(config.ExamTokenTTL.Seconds()))
	}

	claims, err := auth.ParseExamToken(auth.ScopedSecret(testSecret, auth.ScopeExam), resp.ExamToken)
	if err != nil {
		t.Fatalf("ParseExamToken: %v", err)
	}
	if len(claims.QuestionIDs) != 2 || claims.QuestionIDs[0] != 1 || claims.QuestionIDs[1] != 2 {
		t.Errorf("QuestionIDs = %v, want [1 2]", claims.QuestionIDs)
	}
}

func TestGenerateExamRequiresAuth(t *testing.T) {
	srv := newTestServer(&fakeStore{})
	rec := doRequest(t, srv.Router(), http.MethodGet, "/api/auth/qualification", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestSubmitExamPasses(t *testing.T) {
	var verifiedUser int64
	store := &fakeStore{
		answerKeys: func(_ context.Context, ids []int64) (map[int64]string, error) {
			if len(ids) != 5 {
				t.Errorf("key fetch for %d ids, want 5", len(ids))
			}
			return map[int64]string{1: "A", 2: "B", 3: "C", 4: "D", 5: "A"}, nil
		},
		markUserVerified: func(_ context.Context, userID int64) error {
			verifiedUser = userID
			return nil
		},
	}
	srv := newTestServer(store)

	examToken := examTokenFor(t, []int64{1, 2, 3, 4, 5}, time.Minute)
	answers := map[int64]string{1: "A", 2: "B", 3: "C", 4: "X", 5: "X"}
	rec := doRequest(t, srv.Router(), http.MethodPost, "/api/auth/qualification/submit",
		loginTokenFor(t, 42, model.RoleUser), submitBody(examToken, answers))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	var result examResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !result.Passed {
		t.Error("Passed = false, want true at exactly the passing threshold")
	}
	if result.Score != 60.0 {
		t.Errorf("Score = %v, want 60.0", result.Score)
	}
	if result.CorrectCount != 3 || result.TotalQuestions != 5 {
		t.Errorf("got %d/%d, want 3/5", result.CorrectCount, result.TotalQuestions)
	}
	if verifiedUser != 42 {
		t.Errorf("verified user = %d, want 42", verifiedUser)
	}
}

func TestSubmitExamFailsBelowThreshold(t *testing.T) {
	store := &fakeStore{
		answerKeys: func(_ context.Context, ids []int64) (map[int64]string, error) {
			return map[int64]string{1: "A", 2: "B", 3: "C", 4: "D", 5: "A"}, nil
		},
		markUserVerified: func(_ context.Context, userID int64) error {
			t.Error("MarkUserVerified called on a failing score")
			return nil
		},
	}
	srv := newTestServer(store)

	examToken := examTokenFor(t, []int64{1, 2, 3, 4, 5}, time.Minute)
	answers := map[int64]string{1: "A", 2: "B", 3: "X", 4: "X", 5: "X"}
	rec := doRequest(t, srv.Router(), http.MethodPost, "/api/auth/qualification/submit",
		loginTokenFor(t, 42, model.RoleUser), submitBody(examToken, answers))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	var result examResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result.Passed {
		t.Error("Passed = true, want false")
	}
	if result.Score != 40.0 {
		t.Errorf("Score = %v, want 40.0", result.Score)
	}
}

func TestSubmitExamRejectsForeignQuestionIDs(t *testing.T) {
	srv := newTestServer(&fakeStore{})
	examToken := examTokenFor(t, []int64{1, 2, 3}, time.Minute)
	answers := map[int64]string{1: "A", 2: "B", 3: "C", 9: "A"}
	rec := doRequest(t, srv.Router(), http.MethodPost, "/api/auth/qualification/submit",
		loginTokenFor(t, 1, model.RoleUser), submitBody(examToken, answers))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "9") {
		t.Errorf("error does not name the offending id: %s", rec.Body.String())
	}
}

func TestSubmitExamRejectsIncompleteAnswers(t *testing.T) {
	srv := newTestServer(&fakeStore{})
	examToken := examTokenFor(t, []int64{1, 2, 3}, time.Minute)
	answers := map[int64]string{1: "A", 2: "B"}
	rec := doRequest(t, srv.Router(), http.MethodPost, "/api/auth/qualification/submit",
		loginTokenFor(t, 1, model.RoleUser), submitBody(examToken, answers))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
	}
}

func TestSubmitExamRejectsExpiredToken(t *testing.T) {
	srv := newTestServer(&fakeStore{})
	examToken := examTokenFor(t, []int64{1, 2}, -time.Minute)
	rec := doRequest(t, srv.Router(), http.MethodPost, "/api/auth/qualification/submit",
		loginTokenFor(t, 1, model.RoleUser), submitBody(examToken, map[int64]string{1: "A", 2: "B"}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "restart the exam") {
		t.Errorf("unexpected error message: %s", rec.Body.String())
	}
}

func TestSubmitExamRejectsLoginTokenAsExamToken(t *testing.T) {
	srv := newTestServer(&fakeStore{})
	loginToken := loginTokenFor(t, 1, model.RoleUser)
	rec := doRequest(t, srv.Router(), http.MethodPost, "/api/auth/qualification/submit",
		loginToken, submitBody(loginToken, map[int64]string{}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
	}
}

func TestSubmitExamVerificationWriteFailure(t *testing.T) {
	store := &fakeStore{
		answerKeys: func(_ context.Context, ids []int64) (map[int64]string, error) {
			return map[int64]string{1: "A"}, nil
		},
		markUserVerified: func(_ context.Context, userID int64) error {
			return fmt.Errorf("write failed")
		},
	}
	srv := newTestServer(store)

	examToken := examTokenFor(t, []int64{1}, time.Minute)
	rec := doRequest(t, srv.Router(), http.MethodPost, "/api/auth/qualification/submit",
		loginTokenFor(t, 1, model.RoleUser), submitBody(examToken, map[int64]string{1: "A"}))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500, body %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), `"passed":true`) {
		t.Error("client told passed while the verification write failed")
	}
}

func TestScoreAnswers(t *testing.T) {
	keys := map[int64]string{1: "A", 2: "B,C"}

	correct, score := scoreAnswers(map[int64]string{1: "A", 2: "B,C"}, keys, 2)
	if correct != 2 || score != 100.0 {
		t.Errorf("got %d, %v, want 2, 100.0", correct, score)
	}

	// comparison is exact: case and whitespace matter
	correct, _ = scoreAnswers(map[int64]string{1: "a", 2: "B, C"}, keys, 2)
	if correct != 0 {
		t.Errorf("correct = %d, want 0", correct)
	}

	correct, score = scoreAnswers(nil, nil, 0)
	if correct != 0 || score != 0.0 {
		t.Errorf("zero questions: got %d, %v, want 0, 0.0", correct, score)
	}
}

func TestValidateAnswerSet(t *testing.T) {
	assigned := []int64{1, 2, 3}

	if msg := validateAnswerSet(assigned, map[int64]string{1: "A", 2: "B", 3: "C"}); msg != "" {
		t.Errorf("exact set rejected: %s", msg)
	}
	if msg := validateAnswerSet(assigned, map[int64]string{1: "A", 2: "B"}); msg == "" {
		t.Error("incomplete set accepted")
	}
	msg := validateAnswerSet(assigned, map[int64]string{1: "A", 2: "B", 3: "C", 4: "D"})
	if msg == "" {
		t.Error("superset accepted")
	}
	if !strings.Contains(msg, "4") {
		t.Errorf("offending id missing from message: %s", msg)
	}
}
