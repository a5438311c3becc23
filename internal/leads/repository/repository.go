package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"calldesk_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID         uuid.UUID
	CompanyID  uuid.UUID
	FirstName  string
	LastName   string
	Phone      string
	Email      *string
	Status     domain.Status
	AssignedTo *uuid.UUID
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

const leadColumns = `id, company_id, first_name, last_name, phone, email, status, assigned_to, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	var status string
	err := row.Scan(
		&lead.ID, &lead.CompanyID, &lead.FirstName, &lead.LastName, &lead.Phone,
		&lead.Email, &status, &lead.AssignedTo, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, err
	}
	lead.Status = domain.Status(status)
	return lead, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, companyID uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM leads
		WHERE id = $1 AND company_id = $2
	`, leadColumns), id, companyID)
	return scanLead(row)
}

// GetAnyByID fetches a lead without tenant scoping. Only background jobs that
// carry a trusted lead ID may use it; request handlers go through GetByID.
func (r *Repository) GetAnyByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM leads
		WHERE id = $1
	`, leadColumns), id)
	return scanLead(row)
}

type ListParams struct {
	CompanyID  uuid.UUID
	Status     *domain.Status
	AssignedTo *uuid.UUID
	Search     string
	Offset     int
	Limit      int
}

// List returns active (non-removed) leads. Removed leads never appear here;
// they are reachable only through the removal log.
func (r *Repository) List(ctx context.Context, params ListParams) ([]Lead, int, error) {
	whereClauses := []string{"company_id = $1", "status <> 'removed'"}
	args := []interface{}{params.CompanyID}
	argIdx := 2

	if params.Status != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, string(*params.Status))
		argIdx++
	}
	if params.AssignedTo != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("assigned_to = $%d", argIdx))
		args = append(args, *params.AssignedTo)
		argIdx++
	}
	if params.Search != "" {
		pattern := "%" + params.Search + "%"
		whereClauses = append(whereClauses, fmt.Sprintf(
			"(first_name ILIKE $%d OR last_name ILIKE $%d OR phone ILIKE $%d OR email ILIKE $%d)",
			argIdx, argIdx, argIdx, argIdx,
		))
		args = append(args, pattern)
		argIdx++
	}

	whereClause := strings.Join(whereClauses, " AND ")

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM leads WHERE %s", whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := params.Limit
	if limit < 1 {
		limit = 50
	}
	args = append(args, limit, params.Offset)

	query := fmt.Sprintf(`
		SELECT %s FROM leads
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, leadColumns, whereClause, argIdx, argIdx+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		leads = append(leads, lead)
	}

	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}

	return leads, total, nil
}

// UpdateStatus sets a lead's status. Callers outside this bounded context go
// through the calls service, which owns the outcome-to-status mapping.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, companyID uuid.UUID, status domain.Status) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE leads SET status = $3, updated_at = now()
		WHERE id = $1 AND company_id = $2
	`, id, companyID, string(status))
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
