package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/chenty2333/ancient-arch/internal/model"
)

const contributionColumns = `id, user_id, type, data, status, admin_comment, created_at, reviewed_at`

func scanContribution(row pgx.Row) (model.Contribution, error) {
	var c model.Contribution
	err := row.Scan(&c.ID, &c.UserID, &c.Type, &c.Data, &c.Status, &c.AdminComment, &c.CreatedAt, &c.ReviewedAt)
	return c, err
}

func (s *Store) collectContributions(ctx context.Context, query string, args ...any) ([]model.Contribution, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contributions := []model.Contribution{}
	for rows.Next() {
		c, err := scanContribution(rows)
		if err != nil {
			return nil, err
		}
		contributions = append(contributions, c)
	}
	return contributions, rows.Err()
}

// CreateContribution inserts a pending contribution. The once-per-day
// unique index surfaces as ErrDailyContribution.
func (s *Store) CreateContribution(ctx context.Context, userID int64, contributionType string, data json.RawMessage) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO contributions (user_id, type, data)
		VALUES ($1, $2, $3)
		RETURNING id
	`, userID, contributionType, data).Scan(&id)
	if isUniqueViolation(err, "idx_user_daily_contribution") {
		return 0, ErrDailyContribution
	}
	return id, err
}

func (s *Store) ListContributionsByUser(ctx context.Context, userID int64) ([]model.Contribution, error) {
	return s.collectContributions(ctx, `
		SELECT `+contributionColumns+`
		FROM contributions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
}

// ListContributions returns all contributions, optionally filtered by
// status, pending first and newest within each status.
func (s *Store) ListContributions(ctx context.Context, status *string) ([]model.Contribution, error) {
	return s.collectContributions(ctx, `
		SELECT `+contributionColumns+`
		FROM contributions
		WHERE ($1::TEXT IS NULL OR status = $1)
		ORDER BY status = 'pending' DESC, created_at DESC
	`, status)
}

func (s *Store) GetContribution(ctx context.Context, contributionID int64) (model.Contribution, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+contributionColumns+`
		FROM contributions
		WHERE id = $1
	`, contributionID)
	return scanContribution(row)
}

// ReviewContribution records the verdict on a pending contribution.
// Returns false when the contribution is missing or already reviewed.
func (s *Store) ReviewContribution(ctx context.Context, contributionID int64, status string, adminComment *string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE contributions
		SET status = $2, admin_comment = $3, reviewed_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, contributionID, status, adminComment)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
