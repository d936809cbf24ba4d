// Package repository is the Postgres persistence layer. All queries go
// through a single Store bound to a pgx pool.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chenty2333/ancient-arch/internal/model"
)

// ErrDuplicateUsername reports a users.username unique violation.
var ErrDuplicateUsername = errors.New("username already exists")

// ErrDailyContribution reports the once-per-day contribution index firing.
var ErrDailyContribution = errors.New("contribution already submitted today")

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const userColumns = `id, username, password, role, is_verified, created_at`

func scanUser(row pgx.Row) (model.User, error) {
	var user model.User
	err := row.Scan(&user.ID, &user.Username, &user.Password, &user.Role, &user.IsVerified, &user.CreatedAt)
	return user, err
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE username = $1
	`, username)
	return scanUser(row)
}

func (s *Store) GetUserByID(ctx context.Context, userID int64) (model.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, userID)
	return scanUser(row)
}

func (s *Store) CreateUser(ctx context.Context, username, passwordDigest, role string) (model.User, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (username, password, role)
		VALUES ($1, $2, $3)
		RETURNING `+userColumns+`
	`, username, passwordDigest, role)
	user, err := scanUser(row)
	if isUniqueViolation(err, "") {
		return model.User{}, ErrDuplicateUsername
	}
	return user, err
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		ORDER BY id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UserUpdate carries optional field changes; nil fields are untouched.
type UserUpdate struct {
	Username *string
	Role     *string
	Password *string
}

func (s *Store) UpdateUser(ctx context.Context, userID int64, update UserUpdate) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET username = COALESCE($2, username),
		    role = COALESCE($3, role),
		    password = COALESCE($4, password)
		WHERE id = $1
	`, userID, update.Username, update.Role, update.Password)
	if isUniqueViolation(err, "") {
		return false, ErrDuplicateUsername
	}
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) DeleteUser(ctx context.Context, userID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkUserVerified flips the verified flag on. The write is unconditional
// and idempotent: verification never reverts here, so no read precedes it.
func (s *Store) MarkUserVerified(ctx context.Context, userID int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE users SET is_verified = TRUE WHERE id = $1`, userID)
	return err
}

// UserVerification reads the current verified flag and role. The verified
// gate calls this on every request instead of trusting token claims, so
// a verification that happened after token issuance takes effect without
// re-login.
func (s *Store) UserVerification(ctx context.Context, userID int64) (verified bool, role string, err error) {
	row := s.pool.QueryRow(ctx, `SELECT is_verified, role FROM users WHERE id = $1`, userID)
	err = row.Scan(&verified, &role)
	return verified, role, err
}

func (s *Store) MeProfile(ctx context.Context, userID int64) (model.MeProfile, error) {
	var me model.MeProfile
	row := s.pool.QueryRow(ctx, `
		SELECT
			u.id, u.username, u.role, u.is_verified, u.created_at,
			(SELECT COUNT(*) FROM posts WHERE user_id = u.id AND deleted_at IS NULL),
			(SELECT COUNT(*) FROM post_likes pl JOIN posts p ON pl.post_id = p.id WHERE p.user_id = u.id)
		FROM users u
		WHERE u.id = $1
	`, userID)
	err := row.Scan(&me.ID, &me.Username, &me.Role, &me.IsVerified, &me.CreatedAt, &me.PostsCount, &me.TotalLikesReceived)
	return me, err
}

// isUniqueViolation reports whether err is a Postgres unique violation,
// optionally on a specific constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
