package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/chenty2333/ancient-arch/internal/model"
)

const questionColumns = `id, type, content, options, answer, analysis, created_at`

func scanQuestion(row pgx.Row) (model.Question, error) {
	var q model.Question
	err := row.Scan(&q.ID, &q.Type, &q.Content, &q.Options, &q.Answer, &q.Analysis, &q.CreatedAt)
	return q, err
}

func (s *Store) collectQuestions(ctx context.Context, query string, args ...any) ([]model.Question, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// RandomQuestions draws up to limit questions uniformly from the whole
// pool. A pool smaller than limit yields a smaller result, not an error.
func (s *Store) RandomQuestions(ctx context.Context, limit int) ([]model.Question, error) {
	return s.collectQuestions(ctx, `
		SELECT `+questionColumns+`
		FROM questions
		ORDER BY RANDOM()
		LIMIT $1
	`, limit)
}

// RandomQuestionsByType draws up to limit questions of one type.
func (s *Store) RandomQuestionsByType(ctx context.Context, questionType string, limit int) ([]model.Question, error) {
	return s.collectQuestions(ctx, `
		SELECT `+questionColumns+`
		FROM questions
		WHERE type = $1
		ORDER BY RANDOM()
		LIMIT $2
	`, questionType, limit)
}

// AnswerKeys fetches the stored correct answers for the given ids in one
// round trip.
func (s *Store) AnswerKeys(ctx context.Context, questionIDs []int64) (map[int64]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, answer
		FROM questions
		WHERE id = ANY($1)
	`, questionIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[int64]string, len(questionIDs))
	for rows.Next() {
		var id int64
		var answer string
		if err := rows.Scan(&id, &answer); err != nil {
			return nil, err
		}
		keys[id] = answer
	}
	return keys, rows.Err()
}

func (s *Store) CreateQuestion(ctx context.Context, q model.Question) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO questions (type, content, options, answer, analysis)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, q.Type, q.Content, q.Options, q.Answer, q.Analysis).Scan(&id)
	return id, err
}

// QuestionUpdate carries optional field changes; nil fields are untouched.
type QuestionUpdate struct {
	Type     *string
	Content  *string
	Options  *[]string
	Answer   *string
	Analysis *string
}

func (s *Store) UpdateQuestion(ctx context.Context, questionID int64, update QuestionUpdate) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE questions
		SET type = COALESCE($2, type),
		    content = COALESCE($3, content),
		    options = COALESCE($4, options),
		    answer = COALESCE($5, answer),
		    analysis = COALESCE($6, analysis)
		WHERE id = $1
	`, questionID, update.Type, update.Content, update.Options, update.Answer, update.Analysis)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) DeleteQuestion(ctx context.Context, questionID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, questionID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
