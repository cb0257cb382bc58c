package jobs

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/adfleet/adfleet/libs/db"
)

// WatchEntry is the local mirror of one fleet assignment, maintained from the
// assignment event stream. last_alert_date keeps the expiring alert to at most
// one per assignment per calendar day.
type WatchEntry struct {
	AssignmentID  string
	AutoID        string
	AutoNo        string
	CompanyID     string
	CompanyName   string
	StartDate     time.Time
	EndDate       time.Time
	Status        string
	LastAlertDate *time.Time
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert applies a created/updated event. Re-delivered or reordered events
// just rewrite the row with the latest assignment state.
func (r *Repository) Upsert(ctx context.Context, e WatchEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO assignment_watch (assignment_id, auto_id, auto_no, company_id, company_name, start_date, end_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (assignment_id) DO UPDATE
		SET auto_id = EXCLUDED.auto_id,
			auto_no = EXCLUDED.auto_no,
			company_id = EXCLUDED.company_id,
			company_name = EXCLUDED.company_name,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			status = EXCLUDED.status,
			updated_at = now()
	`, e.AssignmentID, e.AutoID, e.AutoNo, e.CompanyID, e.CompanyName, e.StartDate, e.EndDate, e.Status)
	return err
}

func (r *Repository) Delete(ctx context.Context, assignmentID string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM assignment_watch WHERE assignment_id = $1
	`, assignmentID)
	return err
}

// FetchExpiring locks the blocking assignments whose end date falls within
// threshold days of today and that have not been alerted today.
func (r *Repository) FetchExpiring(ctx context.Context, tx pgx.Tx, today time.Time, threshold int, limit int) ([]WatchEntry, error) {
	rows, err := tx.Query(ctx, `
		SELECT assignment_id, auto_id, auto_no, company_id, company_name, start_date, end_date, status, last_alert_date
		FROM assignment_watch
		WHERE status IN ('ACTIVE', 'PREBOOKED')
			AND end_date >= $1::date
			AND end_date <= $1::date + $2::int
			AND (last_alert_date IS NULL OR last_alert_date < $1::date)
		ORDER BY end_date
		LIMIT $3
		FOR UPDATE SKIP LOCKED
	`, today, threshold, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []WatchEntry
	for rows.Next() {
		var e WatchEntry
		if err := rows.Scan(&e.AssignmentID, &e.AutoID, &e.AutoNo, &e.CompanyID, &e.CompanyName, &e.StartDate, &e.EndDate, &e.Status, &e.LastAlertDate); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return entries, nil
}

func (r *Repository) MarkAlerted(ctx context.Context, tx pgx.Tx, assignmentIDs []string, today time.Time) error {
	if len(assignmentIDs) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE assignment_watch
		SET last_alert_date = $2::date, updated_at = now()
		WHERE assignment_id = ANY($1)
	`, assignmentIDs, today)
	return err
}
