package scheduler

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrEmployeeNotFound = errors.New("employee not found")

// PgEmployeeDirectory looks up employee notification addresses in the
// users table.
type PgEmployeeDirectory struct {
	pool *pgxpool.Pool
}

func NewPgEmployeeDirectory(pool *pgxpool.Pool) *PgEmployeeDirectory {
	return &PgEmployeeDirectory{pool: pool}
}

func (d *PgEmployeeDirectory) EmailFor(ctx context.Context, employeeID uuid.UUID) (string, error) {
	var email string
	err := d.pool.QueryRow(ctx, `
		SELECT email FROM users WHERE id = $1
	`, employeeID).Scan(&email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrEmployeeNotFound
	}
	if err != nil {
		return "", err
	}
	return email, nil
}

var _ EmployeeDirectory = (*PgEmployeeDirectory)(nil)
