package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/adfleet/adfleet/libs/db"
	"github.com/adfleet/adfleet/services/fleet-service/internal/model"
)

type AutoRepository struct {
	pool *db.Pool
}

func NewAutoRepository(pool *db.Pool) *AutoRepository {
	return &AutoRepository{pool: pool}
}

// AutoFilter narrows List. Zero values mean "no filter".
type AutoFilter struct {
	Search string // matches auto_no or owner_name, case-insensitive
	AreaID string
	Status model.AutoStatus
}

const autoColumns = `id::text, auto_no, owner_name, COALESCE(area_id::text, ''), COALESCE(area_name, ''), status, COALESCE(notes, ''), created_at, deleted_at`

func (r *AutoRepository) Create(ctx context.Context, auto *model.Auto) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO autos (auto_no, owner_name, area_id, area_name, status, notes)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6)
		RETURNING id
	`, auto.AutoNo, auto.OwnerName, auto.AreaID, auto.AreaName, auto.Status, auto.Notes).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *AutoRepository) Get(ctx context.Context, id string) (model.Auto, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+autoColumns+`
		FROM autos
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	return scanAuto(row)
}

// GetForUpdate locks the auto row for the duration of tx. Every assignment
// mutation takes this lock first so validation and commit see the same
// snapshot.
func (r *AutoRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (model.Auto, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+autoColumns+`
		FROM autos
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE
	`, id)
	return scanAuto(row)
}

func (r *AutoRepository) List(ctx context.Context, f AutoFilter) ([]model.Auto, error) {
	query := `
		SELECT ` + autoColumns + `
		FROM autos
		WHERE deleted_at IS NULL`
	var args []any
	if f.Search != "" {
		args = append(args, "%"+strings.TrimSpace(f.Search)+"%")
		query += fmt.Sprintf(" AND (auto_no ILIKE $%d OR owner_name ILIKE $%d)", len(args), len(args))
	}
	if f.AreaID != "" {
		args = append(args, f.AreaID)
		query += fmt.Sprintf(" AND area_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY auto_no ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAutos(rows)
}

func (r *AutoRepository) ListByArea(ctx context.Context, areaID string) ([]model.Auto, error) {
	return r.List(ctx, AutoFilter{AreaID: areaID})
}

func (r *AutoRepository) Update(ctx context.Context, auto *model.Auto) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE autos
		SET auto_no = $2,
			owner_name = $3,
			area_id = NULLIF($4, '')::uuid,
			area_name = $5,
			notes = $6
		WHERE id = $1 AND deleted_at IS NULL
	`, auto.ID, auto.AutoNo, auto.OwnerName, auto.AreaID, auto.AreaName, auto.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpdateStatus persists the recomputed cached status. Only the lifecycle
// layer calls this, always at the end of a mutation transaction.
func (r *AutoRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status model.AutoStatus) error {
	tag, err := tx.Exec(ctx, `
		UPDATE autos SET status = $2 WHERE id = $1 AND deleted_at IS NULL
	`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SoftDelete tombstones the auto; the row stays while assignments reference it.
func (r *AutoRepository) SoftDelete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE autos SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *AutoRepository) CountByStatus(ctx context.Context) (map[model.AutoStatus]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*) FROM autos WHERE deleted_at IS NULL GROUP BY status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[model.AutoStatus]int{}
	for rows.Next() {
		var status model.AutoStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuto(row rowScanner) (model.Auto, error) {
	var a model.Auto
	err := row.Scan(&a.ID, &a.AutoNo, &a.OwnerName, &a.AreaID, &a.AreaName, &a.Status, &a.Notes, &a.CreatedAt, &a.DeletedAt)
	if err != nil {
		return model.Auto{}, err
	}
	return a, nil
}

func scanAutos(rows pgx.Rows) ([]model.Auto, error) {
	var autos []model.Auto
	for rows.Next() {
		a, err := scanAuto(rows)
		if err != nil {
			return nil, err
		}
		autos = append(autos, a)
	}
	return autos, rows.Err()
}
