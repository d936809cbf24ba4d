// Package http wires the API surface: routing, the capability gates, and
// the request handlers.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/chenty2333/ancient-arch/internal/auth"
	"github.com/chenty2333/ancient-arch/internal/config"
	"github.com/chenty2333/ancient-arch/internal/model"
	"github.com/chenty2333/ancient-arch/internal/repository"
)

// Store is everything the handlers need from persistence. Satisfied by
// *repository.Store; tests substitute fakes.
type Store interface {
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
	GetUserByID(ctx context.Context, userID int64) (model.User, error)
	CreateUser(ctx context.Context, username, passwordDigest, role string) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, userID int64, update repository.UserUpdate) (bool, error)
	DeleteUser(ctx context.Context, userID int64) (bool, error)
	MarkUserVerified(ctx context.Context, userID int64) error
	UserVerification(ctx context.Context, userID int64) (verified bool, role string, err error)
	MeProfile(ctx context.Context, userID int64) (model.MeProfile, error)

	RandomQuestions(ctx context.Context, limit int) ([]model.Question, error)
	RandomQuestionsByType(ctx context.Context, questionType string, limit int) ([]model.Question, error)
	AnswerKeys(ctx context.Context, questionIDs []int64) (map[int64]string, error)
	CreateQuestion(ctx context.Context, q model.Question) (int64, error)
	UpdateQuestion(ctx context.Context, questionID int64, update repository.QuestionUpdate) (bool, error)
	DeleteQuestion(ctx context.Context, questionID int64) (bool, error)

	CreatePost(ctx context.Context, userID int64, title, content string) (int64, error)
	ListPosts(ctx context.Context, params repository.ListPostsParams) ([]model.Post, error)
	GetPost(ctx context.Context, postID int64, viewerID *int64) (model.Post, error)
	PostAuthor(ctx context.Context, postID int64) (int64, error)
	SoftDeletePost(ctx context.Context, postID int64) error
	ListPostsByAuthor(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.Post, error)
	ToggleLike(ctx context.Context, userID, postID int64) (bool, error)
	ToggleFavorite(ctx context.Context, userID, postID int64) (bool, error)
	ListFavorites(ctx context.Context, userID int64) ([]model.FavoritePost, error)
	CreateComment(ctx context.Context, postID, userID int64, content string, parentID *int64) (int64, error)
	ListComments(ctx context.Context, postID int64) ([]model.Comment, error)

	CreateContribution(ctx context.Context, userID int64, contributionType string, data json.RawMessage) (int64, error)
	ListContributionsByUser(ctx context.Context, userID int64) ([]model.Contribution, error)
	ListContributions(ctx context.Context, status *string) ([]model.Contribution, error)
	GetContribution(ctx context.Context, contributionID int64) (model.Contribution, error)
	ReviewContribution(ctx context.Context, contributionID int64, status string, adminComment *string) (bool, error)

	ListArchitectures(ctx context.Context, category, nameQuery *string) ([]model.Architecture, error)
	GetArchitecture(ctx context.Context, architectureID int64) (model.Architecture, error)
	CreateArchitecture(ctx context.Context, a model.Architecture) (int64, error)
	UpdateArchitecture(ctx context.Context, architectureID int64, update repository.ArchitectureUpdate) (bool, error)
	DeleteArchitecture(ctx context.Context, architectureID int64) (bool, error)

	UpsertBestScore(ctx context.Context, userID, score int64) error
	Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
}

var _ Store = (*repository.Store)(nil)

type Server struct {
	cfg      config.Config
	store    Store
	logger   *slog.Logger
	redis    *redis.Client // optional; nil when REDIS_ADDR is unset
	loginKey []byte
	examKey  []byte
}

// NewServer builds a Server. The login and exam signing keys are derived
// here, once, from the configured secret.
func NewServer(cfg config.Config, store Store, logger *slog.Logger, redisClient *redis.Client) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		logger:   logger,
		redis:    redisClient,
		loginKey: auth.ScopedSecret(cfg.JWTSecret, auth.ScopeLogin),
		examKey:  auth.ScopedSecret(cfg.JWTSecret, auth.ScopeExam),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.With(s.authMiddleware).Get("/auth/qualification", s.handleGenerateExam)
		r.With(s.authMiddleware).Post("/auth/qualification/submit", s.handleSubmitExam)

		r.Get("/architectures", s.handleListArchitectures)
		r.Get("/architectures/{id}", s.handleGetArchitecture)

		r.Get("/posts", s.handleListPosts)
		r.With(s.authMiddleware, s.requireVerified).Post("/posts", s.handleCreatePost)
		r.With(s.optionalAuthMiddleware).Get("/posts/{id}", s.handleGetPost)
		r.With(s.authMiddleware).Delete("/posts/{id}", s.handleDeletePost)
		r.With(s.authMiddleware).Post("/posts/{id}/like", s.handleToggleLike)
		r.With(s.authMiddleware).Post("/posts/{id}/favorite", s.handleToggleFavorite)
		r.Get("/posts/{id}/comments", s.handleListComments)
		r.With(s.authMiddleware).Post("/posts/{id}/comments", s.handleCreateComment)

		r.Route("/profile", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/me", s.handleGetMe)
			r.Get("/posts", s.handleListMyPosts)
			r.Get("/favorites", s.handleListMyFavorites)
			r.Get("/contributions", s.handleListMyContributions)
		})

		r.With(s.authMiddleware, s.requireVerified).Post("/contributions", s.handleCreateContribution)

		r.Get("/quiz/generate", s.handleGenerateQuizPaper)
		r.Get("/quiz/leaderboard", s.handleLeaderboard)
		r.With(s.authMiddleware).Post("/quiz/submit", s.handleSubmitQuizPaper)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.authMiddleware, s.requireAdmin)
			r.Get("/users", s.handleAdminListUsers)
			r.Post("/users", s.handleAdminCreateUser)
			r.Put("/users/{id}", s.handleAdminUpdateUser)
			r.Delete("/users/{id}", s.handleAdminDeleteUser)
			r.Post("/architectures", s.handleAdminCreateArchitecture)
			r.Put("/architectures/{id}", s.handleAdminUpdateArchitecture)
			r.Delete("/architectures/{id}", s.handleAdminDeleteArchitecture)
			r.Post("/questions", s.handleAdminCreateQuestion)
			r.Put("/questions/{id}", s.handleAdminUpdateQuestion)
			r.Delete("/questions/{id}", s.handleAdminDeleteQuestion)
			r.Get("/contributions", s.handleAdminListContributions)
			r.Put("/contributions/{id}/review", s.handleAdminReviewContribution)
		})
	})

	return r
}

// principal is the identity attached to a request after a login token
// verifies. The verified flag is deliberately absent: the verified gate
// re-reads it from storage.
type principal struct {
	ID   int64
	Role string
}

type principalKey struct{}

func principalFromContext(ctx context.Context) *principal {
	value := ctx.Value(principalKey{})
	p, _ := value.(*principal)
	return p
}

// bearerToken extracts the token after a case-sensitive "Bearer " prefix.
// Anything else counts as no token at all.
func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return header[len(prefix):]
}

func (s *Server) resolvePrincipal(r *http.Request) (*principal, error) {
	token := bearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return nil, auth.ErrInvalidToken
	}
	claims, err := auth.ParseLoginToken(s.loginKey, token)
	if err != nil {
		return nil, err
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, err
	}
	return &principal{ID: id, Role: claims.Role}, nil
}

// authMiddleware is the Authenticated gate: a request without a valid
// login token stops here with an undifferentiated 401. The concrete
// failure reason is only logged.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := s.resolvePrincipal(r)
		if err != nil {
			s.logger.Info("auth rejected", "path", r.URL.Path, "reason", err, "request_id", requestIDFromContext(r.Context()))
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ctx := context.WithValue(r.Context(), principalKey{}, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// optionalAuthMiddleware attaches a principal when the token verifies and
// passes the request through untouched when it does not.
func (s *Server) optionalAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, err := s.resolvePrincipal(r); err == nil {
			r = r.WithContext(context.WithValue(r.Context(), principalKey{}, p))
		}
		next.ServeHTTP(w, r)
	})
}

// requireVerified is the Verified-Contributor gate. It re-queries storage
// for the current verified flag instead of trusting anything in the
// token, so verification takes effect without a new login. Compose it
// after authMiddleware.
func (s *Server) requireVerified(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := principalFromContext(r.Context())
		if p == nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		verified, role, err := s.store.UserVerification(r.Context(), p.ID)
		if err != nil {
			s.internalError(w, r, "verification lookup failed", err)
			return
		}
		if !verified && role != model.RoleAdmin {
			writeError(w, http.StatusUnauthorized, "must be a verified contributor")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin is the Administrator gate. Identity is already known, so
// an insufficient role is 403, not 401. Compose it after authMiddleware.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := principalFromContext(r.Context())
		if p == nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if p.Role != model.RoleAdmin {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type requestIDKey struct{}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// internalError logs the detailed cause and hides it from the client.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.logger.Error(msg, "error", err, "path", r.URL.Path, "request_id", requestIDFromContext(r.Context()))
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func idFromURL(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
