package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("recording not found")

// Status is the recording lifecycle set. Terminal values are written by the
// external analysis worker, never by this system.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Recording references an externally hosted audio artifact.
type Recording struct {
	ID            uuid.UUID
	OwnerID       uuid.UUID
	CompanyID     uuid.UUID
	StoredFileURL string
	FileName      string
	Status        Status
	Transcript    *string
	CallID        *uuid.UUID
	CreatedAt     time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const recordingColumns = `id, owner_id, company_id, stored_file_url, file_name, status, transcript, call_id, created_at`

func scanRecording(row pgx.Row) (Recording, error) {
	var rec Recording
	var status string
	err := row.Scan(
		&rec.ID, &rec.OwnerID, &rec.CompanyID, &rec.StoredFileURL, &rec.FileName,
		&status, &rec.Transcript, &rec.CallID, &rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Recording{}, ErrNotFound
	}
	if err != nil {
		return Recording{}, err
	}
	rec.Status = Status(status)
	return rec, nil
}

// GetOrCreateInput keys a recording by (owner, stored file URL).
type GetOrCreateInput struct {
	OwnerID       uuid.UUID
	CompanyID     uuid.UUID
	StoredFileURL string
	FileName      string
	Transcript    *string
	CallID        *uuid.UUID
}

// GetOrCreate returns the recording for (owner, url), inserting a pending row
// when none exists. ON CONFLICT DO NOTHING plus the re-read makes concurrent
// submissions of the same URL converge on one row; an existing row is
// returned unchanged, status and all.
func (r *Repository) GetOrCreate(ctx context.Context, input GetOrCreateInput) (Recording, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO recordings (id, owner_id, company_id, stored_file_url, file_name, status, transcript, call_id, created_at)
		VALUES ($1, $2, $3, $4, $5, 'pending', $6, $7, now())
		ON CONFLICT (owner_id, stored_file_url) DO NOTHING
	`, uuid.New(), input.OwnerID, input.CompanyID, input.StoredFileURL, input.FileName, input.Transcript, input.CallID)
	if err != nil {
		return Recording{}, err
	}

	row := r.pool.QueryRow(ctx, `
		SELECT `+recordingColumns+` FROM recordings
		WHERE owner_id = $1 AND stored_file_url = $2
	`, input.OwnerID, input.StoredFileURL)
	return scanRecording(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Recording, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+recordingColumns+` FROM recordings WHERE id = $1
	`, id)
	return scanRecording(row)
}

func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]Recording, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+recordingColumns+` FROM recordings
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recordings := make([]Recording, 0)
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		recordings = append(recordings, rec)
	}
	return recordings, rows.Err()
}
