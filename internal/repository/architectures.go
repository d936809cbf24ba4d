package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/chenty2333/ancient-arch/internal/model"
)

const architectureColumns = `id, category, name, dynasty, location, description, cover_img, carousel_imgs`

func scanArchitecture(row pgx.Row) (model.Architecture, error) {
	var a model.Architecture
	err := row.Scan(&a.ID, &a.Category, &a.Name, &a.Dynasty, &a.Location, &a.Description, &a.CoverImg, &a.CarouselImgs)
	return a, err
}

// ListArchitectures filters by exact category and/or case-insensitive
// name substring; nil filters match everything.
func (s *Store) ListArchitectures(ctx context.Context, category, nameQuery *string) ([]model.Architecture, error) {
	var pattern *string
	if nameQuery != nil {
		p := "%" + *nameQuery + "%"
		pattern = &p
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+architectureColumns+`
		FROM architectures
		WHERE ($1::TEXT IS NULL OR category = $1)
		  AND ($2::TEXT IS NULL OR name ILIKE $2)
	`, category, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	architectures := []model.Architecture{}
	for rows.Next() {
		a, err := scanArchitecture(rows)
		if err != nil {
			return nil, err
		}
		architectures = append(architectures, a)
	}
	return architectures, rows.Err()
}

func (s *Store) GetArchitecture(ctx context.Context, architectureID int64) (model.Architecture, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+architectureColumns+`
		FROM architectures
		WHERE id = $1
	`, architectureID)
	return scanArchitecture(row)
}

func (s *Store) CreateArchitecture(ctx context.Context, a model.Architecture) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO architectures (category, name, dynasty, location, description, cover_img, carousel_imgs)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, a.Category, a.Name, a.Dynasty, a.Location, a.Description, a.CoverImg, a.CarouselImgs).Scan(&id)
	return id, err
}

// ArchitectureUpdate carries optional field changes; nil fields are untouched.
type ArchitectureUpdate struct {
	Category     *string
	Name         *string
	Dynasty      *string
	Location     *string
	Description  *string
	CoverImg     *string
	CarouselImgs *[]string
}

func (s *Store) UpdateArchitecture(ctx context.Context, architectureID int64, update ArchitectureUpdate) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE architectures
		SET category = COALESCE($2, category),
		    name = COALESCE($3, name),
		    dynasty = COALESCE($4, dynasty),
		    location = COALESCE($5, location),
		    description = COALESCE($6, description),
		    cover_img = COALESCE($7, cover_img),
		    carousel_imgs = COALESCE($8, carousel_imgs)
		WHERE id = $1
	`, architectureID, update.Category, update.Name, update.Dynasty, update.Location, update.Description, update.CoverImg, update.CarouselImgs)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) DeleteArchitecture(ctx context.Context, architectureID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM architectures WHERE id = $1`, architectureID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
