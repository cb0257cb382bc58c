package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/adfleet/adfleet/libs/db"
	"github.com/adfleet/adfleet/services/fleet-service/internal/model"
)

type AreaRepository struct {
	pool *db.Pool
}

func NewAreaRepository(pool *db.Pool) *AreaRepository {
	return &AreaRepository{pool: pool}
}

// Create inserts a service area with an id generated here so callers can
// reference it before any read round trip.
func (r *AreaRepository) Create(ctx context.Context, a *model.Area) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO areas (id, name, pin_code)
		VALUES ($1, $2, NULLIF($3, ''))
	`, id, a.Name, a.PinCode)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *AreaRepository) Get(ctx context.Context, id string) (model.Area, error) {
	var a model.Area
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, COALESCE(pin_code, '') FROM areas WHERE id = $1
	`, id).Scan(&a.ID, &a.Name, &a.PinCode)
	if err != nil {
		return model.Area{}, err
	}
	return a, nil
}

func (r *AreaRepository) List(ctx context.Context) ([]model.Area, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, name, COALESCE(pin_code, '') FROM areas ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Area
	for rows.Next() {
		var a model.Area
		if err := rows.Scan(&a.ID, &a.Name, &a.PinCode); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
