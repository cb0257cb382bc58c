package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/adfleet/adfleet/libs/db"
	"github.com/adfleet/adfleet/services/fleet-service/internal/model"
)

type AssignmentRepository struct {
	pool *db.Pool
}

func NewAssignmentRepository(pool *db.Pool) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

const assignmentColumns = `id::text, auto_id::text, company_id::text, company_name, start_date, end_date, days, status, created_at, updated_at`

func (r *AssignmentRepository) Create(ctx context.Context, tx pgx.Tx, a *model.Assignment) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO assignments (auto_id, company_id, company_name, start_date, end_date, days, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, a.AutoID, a.CompanyID, a.CompanyName, a.StartDate, a.EndDate, a.Days, a.Status).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *AssignmentRepository) Get(ctx context.Context, id string) (model.Assignment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+assignmentColumns+` FROM assignments WHERE id = $1
	`, id)
	return scanAssignment(row)
}

func (r *AssignmentRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (model.Assignment, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+assignmentColumns+` FROM assignments WHERE id = $1 FOR UPDATE
	`, id)
	return scanAssignment(row)
}

// ListByAuto returns an auto's full assignment history, oldest start first.
// Run inside the mutation tx (after the auto row lock) it is the snapshot the
// validator works on.
func (r *AssignmentRepository) ListByAuto(ctx context.Context, q queryer, autoID string) ([]model.Assignment, error) {
	rows, err := q.Query(ctx, `
		SELECT `+assignmentColumns+`
		FROM assignments
		WHERE auto_id = $1
		ORDER BY start_date ASC
	`, autoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssignments(rows)
}

// History reads an auto's assignments outside any transaction, for detail
// and portal views.
func (r *AssignmentRepository) History(ctx context.Context, autoID string) ([]model.Assignment, error) {
	return r.ListByAuto(ctx, r.pool, autoID)
}

func (r *AssignmentRepository) ListByCompany(ctx context.Context, companyID string) ([]model.Assignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+assignmentColumns+`
		FROM assignments
		WHERE company_id = $1
		ORDER BY start_date DESC
	`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssignments(rows)
}

// ListBlocking returns all ACTIVE/PREBOOKED assignments across the fleet.
func (r *AssignmentRepository) ListBlocking(ctx context.Context) ([]model.Assignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+assignmentColumns+`
		FROM assignments
		WHERE status IN ('ACTIVE', 'PREBOOKED')
		ORDER BY start_date ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssignments(rows)
}

func (r *AssignmentRepository) Update(ctx context.Context, tx pgx.Tx, a *model.Assignment) error {
	tag, err := tx.Exec(ctx, `
		UPDATE assignments
		SET company_id = $2,
			company_name = $3,
			start_date = $4,
			end_date = $5,
			days = $6,
			status = $7,
			updated_at = now()
		WHERE id = $1
	`, a.ID, a.CompanyID, a.CompanyName, a.StartDate, a.EndDate, a.Days, a.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *AssignmentRepository) Delete(ctx context.Context, tx pgx.Tx, id string) error {
	tag, err := tx.Exec(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeleteBlockingByAuto removes every ACTIVE/PREBOOKED assignment on an auto
// and reports how many were displaced. Used by bulk replacement.
func (r *AssignmentRepository) DeleteBlockingByAuto(ctx context.Context, tx pgx.Tx, autoID string) (int, error) {
	tag, err := tx.Exec(ctx, `
		DELETE FROM assignments
		WHERE auto_id = $1 AND status IN ('ACTIVE', 'PREBOOKED')
	`, autoID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// queryer is satisfied by both *db.Pool and pgx.Tx so snapshot reads can run
// inside or outside a mutation transaction.
type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func scanAssignment(row rowScanner) (model.Assignment, error) {
	var a model.Assignment
	err := row.Scan(&a.ID, &a.AutoID, &a.CompanyID, &a.CompanyName, &a.StartDate, &a.EndDate, &a.Days, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return model.Assignment{}, err
	}
	return a, nil
}

func scanAssignments(rows pgx.Rows) ([]model.Assignment, error) {
	var out []model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
