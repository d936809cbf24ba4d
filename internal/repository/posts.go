package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/chenty2333/ancient-arch/internal/model"
)

func scanPost(row pgx.Row) (model.Post, error) {
	var p model.Post
	err := row.Scan(
		&p.ID, &p.UserID, &p.Title, &p.Content,
		&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
		&p.LikesCount, &p.CommentsCount, &p.FavoritesCount,
		&p.IsLiked, &p.IsFavorited,
	)
	return p, err
}

func (s *Store) collectPosts(ctx context.Context, query string, args ...any) ([]model.Post, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (s *Store) CreatePost(ctx context.Context, userID int64, title, content string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO posts (user_id, title, content)
		VALUES ($1, $2, $3)
		RETURNING id
	`, userID, title, content).Scan(&id)
	return id, err
}

// ListPostsParams filters the public post listing.
type ListPostsParams struct {
	Sort   string // "new" (default) or "hot"
	Cursor *time.Time
	Limit  int
}

// ListPosts returns non-deleted posts. "hot" ranks by a decaying
// engagement score; "new" pages backwards by created_at using the cursor.
func (s *Store) ListPosts(ctx context.Context, params ListPostsParams) ([]model.Post, error) {
	if params.Sort == "hot" {
		return s.collectPosts(ctx, `
			SELECT
				id, user_id, title, content,
				created_at, updated_at, deleted_at,
				likes_count, comments_count, favorites_count,
				FALSE, FALSE
			FROM posts
			WHERE deleted_at IS NULL
			ORDER BY (
				(likes_count * 5 + comments_count * 3 + favorites_count * 10)::FLOAT /
				POW(EXTRACT(EPOCH FROM (NOW() - created_at)) / 3600 + 2, 1.5)
			) DESC
			LIMIT $1
		`, params.Limit)
	}
	return s.collectPosts(ctx, `
		SELECT
			id, user_id, title, content,
			created_at, updated_at, deleted_at,
			likes_count, comments_count, favorites_count,
			FALSE, FALSE
		FROM posts
		WHERE deleted_at IS NULL
		  AND ($1::TIMESTAMPTZ IS NULL OR created_at < $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, params.Cursor, params.Limit)
}

// GetPost fetches one post. When viewerID is non-nil the is_liked and
// is_favorited flags reflect that viewer; otherwise they are false.
func (s *Store) GetPost(ctx context.Context, postID int64, viewerID *int64) (model.Post, error) {
	if viewerID != nil {
		row := s.pool.QueryRow(ctx, `
			SELECT
				p.id, p.user_id, p.title, p.content,
				p.created_at, p.updated_at, p.deleted_at,
				p.likes_count, p.comments_count, p.favorites_count,
				EXISTS (SELECT 1 FROM post_likes WHERE user_id = $2 AND post_id = p.id),
				EXISTS (SELECT 1 FROM post_favorites WHERE user_id = $2 AND post_id = p.id)
			FROM posts p
			WHERE p.id = $1 AND p.deleted_at IS NULL
		`, postID, *viewerID)
		return scanPost(row)
	}
	row := s.pool.QueryRow(ctx, `
		SELECT
			id, user_id, title, content,
			created_at, updated_at, deleted_at,
			likes_count, comments_count, favorites_count,
			FALSE, FALSE
		FROM posts
		WHERE id = $1 AND deleted_at IS NULL
	`, postID)
	return scanPost(row)
}

// PostAuthor returns the author of a live post; pgx.ErrNoRows if the
// post is missing or soft-deleted.
func (s *Store) PostAuthor(ctx context.Context, postID int64) (int64, error) {
	var userID int64
	err := s.pool.QueryRow(ctx, `
		SELECT user_id FROM posts WHERE id = $1 AND deleted_at IS NULL
	`, postID).Scan(&userID)
	return userID, err
}

func (s *Store) SoftDeletePost(ctx context.Context, postID int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE posts SET deleted_at = NOW() WHERE id = $1`, postID)
	return err
}

// ListPostsByAuthor returns the author's own posts with their real
// interaction flags.
func (s *Store) ListPostsByAuthor(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.Post, error) {
	return s.collectPosts(ctx, `
		SELECT
			p.id, p.user_id, p.title, p.content,
			p.created_at, p.updated_at, p.deleted_at,
			p.likes_count, p.comments_count, p.favorites_count,
			(pl.user_id IS NOT NULL),
			(pf.user_id IS NOT NULL)
		FROM posts p
		LEFT JOIN post_likes pl ON p.id = pl.post_id AND pl.user_id = $1
		LEFT JOIN post_favorites pf ON p.id = pf.post_id AND pf.user_id = $1
		WHERE p.user_id = $1 AND p.deleted_at IS NULL
		  AND ($2::TIMESTAMPTZ IS NULL OR p.created_at < $2)
		ORDER BY p.created_at DESC
		LIMIT $3
	`, userID, cursor, limit)
}

// ToggleLike flips the viewer's like on a post inside one transaction and
// keeps likes_count in step. Returns the new liked state.
func (s *Store) ToggleLike(ctx context.Context, userID, postID int64) (bool, error) {
	return s.toggleMark(ctx, userID, postID, "post_likes", "likes_count")
}

// ToggleFavorite is ToggleLike for favorites.
func (s *Store) ToggleFavorite(ctx context.Context, userID, postID int64) (bool, error) {
	return s.toggleMark(ctx, userID, postID, "post_favorites", "favorites_count")
}

func (s *Store) toggleMark(ctx context.Context, userID, postID int64, table, counter string) (bool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var live bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1 AND deleted_at IS NULL)
	`, postID).Scan(&live)
	if err != nil {
		return false, err
	}
	if !live {
		return false, pgx.ErrNoRows
	}

	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM `+table+` WHERE user_id = $1 AND post_id = $2)
	`, userID, postID).Scan(&exists)
	if err != nil {
		return false, err
	}

	if exists {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE user_id = $1 AND post_id = $2`, userID, postID); err != nil {
			return false, err
		}
		if _, err := tx.Exec(ctx, `UPDATE posts SET `+counter+` = GREATEST(0, `+counter+` - 1) WHERE id = $1`, postID); err != nil {
			return false, err
		}
	} else {
		if _, err := tx.Exec(ctx, `INSERT INTO `+table+` (user_id, post_id) VALUES ($1, $2)`, userID, postID); err != nil {
			return false, err
		}
		if _, err := tx.Exec(ctx, `UPDATE posts SET `+counter+` = `+counter+` + 1 WHERE id = $1`, postID); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return !exists, nil
}

func (s *Store) ListFavorites(ctx context.Context, userID int64) ([]model.FavoritePost, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT f.post_id, p.title, u.username, f.created_at
		FROM post_favorites f
		JOIN posts p ON f.post_id = p.id
		JOIN users u ON p.user_id = u.id
		WHERE f.user_id = $1 AND p.deleted_at IS NULL
		ORDER BY f.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	favorites := []model.FavoritePost{}
	for rows.Next() {
		var f model.FavoritePost
		if err := rows.Scan(&f.PostID, &f.Title, &f.AuthorUsername, &f.FavoritedAt); err != nil {
			return nil, err
		}
		favorites = append(favorites, f)
	}
	return favorites, rows.Err()
}
