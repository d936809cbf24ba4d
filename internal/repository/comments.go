package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/chenty2333/ancient-arch/internal/model"
)

// CreateComment inserts a comment and bumps the post's comment counter in
// one transaction. Replies resolve their thread root from the parent: if
// the parent is itself a reply the root carries over, otherwise the
// parent is the root. A missing post or parent surfaces as pgx.ErrNoRows.
func (s *Store) CreateComment(ctx context.Context, postID, userID int64, content string, parentID *int64) (int64, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var live bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1 AND deleted_at IS NULL)
	`, postID).Scan(&live)
	if err != nil {
		return 0, err
	}
	if !live {
		return 0, pgx.ErrNoRows
	}

	var rootID *int64
	if parentID != nil {
		var parent int64
		var parentRoot *int64
		err := tx.QueryRow(ctx, `
			SELECT id, root_id FROM comments WHERE id = $1 AND post_id = $2
		`, *parentID, postID).Scan(&parent, &parentRoot)
		if err != nil {
			return 0, err
		}
		if parentRoot != nil {
			rootID = parentRoot
		} else {
			rootID = &parent
		}
	}

	var commentID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO comments (post_id, user_id, content, root_id, parent_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, postID, userID, content, rootID, parentID).Scan(&commentID)
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE posts SET comments_count = comments_count + 1 WHERE id = $1
	`, postID); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return commentID, nil
}

// ListComments returns a post's live comments, roots first, each thread
// in chronological order.
func (s *Store) ListComments(ctx context.Context, postID int64) ([]model.Comment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			c.id, c.post_id, c.user_id, u.username, c.content,
			c.root_id, c.parent_id, c.created_at, c.deleted_at
		FROM comments c
		JOIN users u ON c.user_id = u.id
		WHERE c.post_id = $1 AND c.deleted_at IS NULL
		ORDER BY c.root_id IS NOT NULL, c.root_id, c.created_at ASC
	`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Username, &c.Content, &c.RootID, &c.ParentID, &c.CreatedAt, &c.DeletedAt)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
