package repository

import (
	"context"

	"github.com/chenty2333/ancient-arch/internal/model"
)

// UpsertBestScore records a casual-quiz result, keeping only the user's
// best score. The timestamp refreshes whenever the row is touched.
func (s *Store) UpsertBestScore(ctx context.Context, userID int64, score int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO exam_records (user_id, score)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET
			score = GREATEST(exam_records.score, EXCLUDED.score),
			created_at = NOW()
	`, userID, score)
	return err
}

// Leaderboard returns the top scorers, best first.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT u.username, e.score, e.created_at
		FROM exam_records e
		JOIN users u ON e.user_id = u.id
		ORDER BY e.score DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []model.LeaderboardEntry{}
	for rows.Next() {
		var entry model.LeaderboardEntry
		if err := rows.Scan(&entry.Username, &entry.Score, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
