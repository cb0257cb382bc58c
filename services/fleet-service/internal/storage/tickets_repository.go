package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/adfleet/adfleet/libs/db"
	"github.com/adfleet/adfleet/services/fleet-service/internal/model"
)

type TicketRepository struct {
	pool *db.Pool
}

func NewTicketRepository(pool *db.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

const ticketColumns = `t.id::text, t.company_id::text, c.name, t.autos_required, t.days_required, t.start_date,
	COALESCE(t.area_id::text, ''), COALESCE(t.area_name, ''), t.ticket_status,
	COALESCE(t.notes, ''), COALESCE(t.admin_notes, ''), COALESCE(t.rejected_reason, ''), t.created_at, t.updated_at`

func (r *TicketRepository) Create(ctx context.Context, t *model.Ticket) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO company_tickets (company_id, autos_required, days_required, start_date, area_id, area_name, ticket_status, notes)
		VALUES ($1, $2, $3, $4, NULLIF($5, '')::uuid, $6, $7, $8)
		RETURNING id
	`, t.CompanyID, t.AutosRequired, t.DaysRequired, t.StartDate, t.AreaID, t.AreaName, t.Status, t.Notes).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *TicketRepository) Get(ctx context.Context, id string) (model.Ticket, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+ticketColumns+`
		FROM company_tickets t
		JOIN companies c ON c.id = t.company_id
		WHERE t.id = $1
	`, id)
	return scanTicket(row)
}

func (r *TicketRepository) List(ctx context.Context, status model.TicketStatus) ([]model.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM company_tickets t
		JOIN companies c ON c.id = t.company_id`
	var args []any
	if status != "" {
		args = append(args, status)
		query += ` WHERE t.ticket_status = $1`
	}
	query += ` ORDER BY t.created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Resolve moves a PENDING ticket to APPROVED or REJECTED. The status check in
// the WHERE clause makes the transition race-safe; a second approval attempt
// sees zero rows and reports NotFound.
func (r *TicketRepository) Resolve(ctx context.Context, id string, status model.TicketStatus, adminNotes, rejectedReason string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE company_tickets
		SET ticket_status = $2,
			admin_notes = $3,
			rejected_reason = NULLIF($4, ''),
			updated_at = now()
		WHERE id = $1 AND ticket_status = 'PENDING'
	`, id, status, adminNotes, rejectedReason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanTicket(row rowScanner) (model.Ticket, error) {
	var t model.Ticket
	err := row.Scan(&t.ID, &t.CompanyID, &t.CompanyName, &t.AutosRequired, &t.DaysRequired, &t.StartDate,
		&t.AreaID, &t.AreaName, &t.Status, &t.Notes, &t.AdminNotes, &t.RejectedReason, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return model.Ticket{}, err
	}
	return t, nil
}
