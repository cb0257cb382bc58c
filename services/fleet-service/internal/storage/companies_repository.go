package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/adfleet/adfleet/libs/db"
	"github.com/adfleet/adfleet/services/fleet-service/internal/model"
)

type CompanyRepository struct {
	pool *db.Pool
}

func NewCompanyRepository(pool *db.Pool) *CompanyRepository {
	return &CompanyRepository{pool: pool}
}

const companyColumns = `id::text, name, COALESCE(contact_person, ''), COALESCE(email, ''), COALESCE(phone_number, ''), status, created_at`

func (r *CompanyRepository) Create(ctx context.Context, c *model.Company) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO companies (id, name, contact_person, email, phone_number, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, c.Name, c.ContactPerson, c.Email, c.PhoneNumber, c.Status)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *CompanyRepository) Get(ctx context.Context, id string) (model.Company, error) {
	var c model.Company
	err := r.pool.QueryRow(ctx, `
		SELECT `+companyColumns+` FROM companies WHERE id = $1 AND deleted_at IS NULL
	`, id).Scan(&c.ID, &c.Name, &c.ContactPerson, &c.Email, &c.PhoneNumber, &c.Status, &c.CreatedAt)
	if err != nil {
		return model.Company{}, err
	}
	return c, nil
}

func (r *CompanyRepository) List(ctx context.Context, status model.CompanyStatus) ([]model.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE deleted_at IS NULL`
	var args []any
	if status != "" {
		args = append(args, status)
		query += ` AND status = $1`
	}
	query += ` ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Company
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.ContactPerson, &c.Email, &c.PhoneNumber, &c.Status, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CompanyRepository) UpdateStatus(ctx context.Context, id string, status model.CompanyStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE companies SET status = $2 WHERE id = $1 AND deleted_at IS NULL
	`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
