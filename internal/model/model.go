package model

import (
	"encoding/json"
	"time"
)

// User is a row of the users table. The password digest never leaves the
// server.
type User struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Password   string    `json:"-"`
	Role       string    `json:"role"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// Roles stored on the user row.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Question types.
const (
	QuestionTypeSingle   = "single_choice"
	QuestionTypeMultiple = "multiple_choice"
)

// Question is a full question row, answer key included. It is never
// serialized to clients; see PublicQuestion.
type Question struct {
	ID        int64
	Type      string
	Content   string
	Options   []string
	Answer    string
	Analysis  *string
	CreatedAt time.Time
}

// PublicQuestion is the client-facing projection of a question: the
// answer and analysis are deliberately absent.
type PublicQuestion struct {
	ID      int64    `json:"id"`
	Type    string   `json:"type"`
	Content string   `json:"content"`
	Options []string `json:"options"`
}

// Public returns the sanitized projection of q.
func (q Question) Public() PublicQuestion {
	return PublicQuestion{ID: q.ID, Type: q.Type, Content: q.Content, Options: q.Options}
}

type Post struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"user_id"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at"`
	DeletedAt      *time.Time `json:"deleted_at"`
	LikesCount     int32      `json:"likes_count"`
	CommentsCount  int32      `json:"comments_count"`
	FavoritesCount int32      `json:"favorites_count"`
	IsLiked        bool       `json:"is_liked"`
	IsFavorited    bool       `json:"is_favorited"`
}

type Comment struct {
	ID        int64      `json:"id"`
	PostID    int64      `json:"post_id"`
	UserID    int64      `json:"user_id"`
	Username  string     `json:"username"`
	Content   string     `json:"content"`
	RootID    *int64     `json:"root_id"`
	ParentID  *int64     `json:"parent_id"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at"`
}

// Contribution statuses.
const (
	ContributionPending  = "pending"
	ContributionApproved = "approved"
	ContributionRejected = "rejected"
)

// Contribution kinds; Data holds the create-request payload of the
// target kind.
const (
	ContributionArchitecture = "architecture"
	ContributionQuestion     = "question"
)

type Contribution struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"user_id"`
	Type         string          `json:"type"`
	Data         json.RawMessage `json:"data"`
	Status       string          `json:"status"`
	AdminComment *string         `json:"admin_comment"`
	CreatedAt    time.Time       `json:"created_at"`
	ReviewedAt   *time.Time      `json:"reviewed_at"`
}

type Architecture struct {
	ID           int64    `json:"id"`
	Category     string   `json:"category"`
	Name         string   `json:"name"`
	Dynasty      string   `json:"dynasty"`
	Location     string   `json:"location"`
	Description  string   `json:"description"`
	CoverImg     string   `json:"cover_img"`
	CarouselImgs []string `json:"carousel_imgs"`
}

type LeaderboardEntry struct {
	Username  string    `json:"username"`
	Score     int64     `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// MeProfile is the current user's profile with aggregate counters.
type MeProfile struct {
	ID                 int64     `json:"id"`
	Username           string    `json:"username"`
	Role               string    `json:"role"`
	IsVerified         bool      `json:"is_verified"`
	CreatedAt          time.Time `json:"created_at"`
	PostsCount         int64     `json:"posts_count"`
	TotalLikesReceived int64     `json:"total_likes_received"`
}

type FavoritePost struct {
	PostID         int64     `json:"post_id"`
	Title          string    `json:"title"`
	AuthorUsername string    `json:"author_username"`
	FavoritedAt    time.Time `json:"favorited_at"`
}
