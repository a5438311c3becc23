package repository

import (
	"context"
	"errors"
	"time"

	"calldesk_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("call record not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CallRecord is an immutable log entry for a single call attempt. The only
// permitted mutation after insert is the delete-follow-up correction path.
type CallRecord struct {
	ID              uuid.UUID
	LeadID          uuid.UUID
	EmployeeID      uuid.UUID
	CompanyID       uuid.UUID
	Outcome         domain.Outcome
	Notes           string
	NextFollowUp    *time.Time
	DurationSeconds *int
	ProviderCallID  *string
	RecordingURL    *string
	FromNumber      *string
	ToNumber        *string
	ProviderStatus  *string
	Direction       *string
	StartedAt       *time.Time
	EndedAt         *time.Time
	Source          string // manual | telephony
	CreatedAt       time.Time
}

const callColumns = `id, lead_id, employee_id, company_id, outcome, notes, next_follow_up, duration_seconds, provider_call_id, recording_url, from_number, to_number, provider_status, direction, started_at, ended_at, source, created_at`

func scanCall(row pgx.Row) (CallRecord, error) {
	var rec CallRecord
	var outcome string
	err := row.Scan(
		&rec.ID, &rec.LeadID, &rec.EmployeeID, &rec.CompanyID, &outcome,
		&rec.Notes, &rec.NextFollowUp, &rec.DurationSeconds, &rec.ProviderCallID,
		&rec.RecordingURL, &rec.FromNumber, &rec.ToNumber, &rec.ProviderStatus,
		&rec.Direction, &rec.StartedAt, &rec.EndedAt, &rec.Source, &rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return CallRecord{}, ErrNotFound
	}
	if err != nil {
		return CallRecord{}, err
	}
	rec.Outcome = domain.Outcome(outcome)
	return rec, nil
}

func (r *Repository) Insert(ctx context.Context, rec CallRecord) (CallRecord, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO call_records (id, lead_id, employee_id, company_id, outcome, notes, next_follow_up, duration_seconds, provider_call_id, recording_url, from_number, to_number, provider_status, direction, started_at, ended_at, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, now())
		RETURNING `+callColumns+`
	`, rec.ID, rec.LeadID, rec.EmployeeID, rec.CompanyID, string(rec.Outcome),
		rec.Notes, rec.NextFollowUp, rec.DurationSeconds, rec.ProviderCallID, rec.RecordingURL,
		rec.FromNumber, rec.ToNumber, rec.ProviderStatus, rec.Direction, rec.StartedAt, rec.EndedAt, rec.Source)
	return scanCall(row)
}

func (r *Repository) GetByID(ctx context.Context, id, companyID uuid.UUID) (CallRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+callColumns+` FROM call_records WHERE id = $1 AND company_id = $2
	`, id, companyID)
	return scanCall(row)
}

// ListByLead returns a lead's call history within one company, newest first.
// Rows from other tenants never match even when the lead id is guessed.
func (r *Repository) ListByLead(ctx context.Context, leadID, companyID uuid.UUID) ([]CallRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+callColumns+` FROM call_records
		WHERE lead_id = $1 AND company_id = $2
		ORDER BY created_at DESC, id DESC
	`, leadID, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]CallRecord, 0)
	for rows.Next() {
		rec, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// LatestWithFollowUp returns the most recent call record for the lead that
// still carries a follow-up time, scoped to the lead's company.
func (r *Repository) LatestWithFollowUp(ctx context.Context, leadID, companyID uuid.UUID) (CallRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+callColumns+` FROM call_records
		WHERE lead_id = $1 AND company_id = $2 AND next_follow_up IS NOT NULL
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, leadID, companyID)
	return scanCall(row)
}

// Delete removes a single call record within one company. Only the
// delete-follow-up correction path may use this; call records are otherwise
// immutable.
func (r *Repository) Delete(ctx context.Context, recordID, companyID uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM call_records WHERE id = $1 AND company_id = $2
	`, recordID, companyID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ObservationsForLead feeds the lead status projector.
func (r *Repository) ObservationsForLead(ctx context.Context, leadID uuid.UUID) ([]domain.CallObservation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, outcome, next_follow_up, created_at
		FROM call_records
		WHERE lead_id = $1
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectObservations(rows)
}

// ObservationsForLeads batches projector input for a page of leads.
func (r *Repository) ObservationsForLeads(ctx context.Context, leadIDs []uuid.UUID) (map[uuid.UUID][]domain.CallObservation, error) {
	if len(leadIDs) == 0 {
		return map[uuid.UUID][]domain.CallObservation{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT lead_id, id, outcome, next_follow_up, created_at
		FROM call_records
		WHERE lead_id = ANY($1)
	`, leadIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]domain.CallObservation, len(leadIDs))
	for rows.Next() {
		var leadID uuid.UUID
		var obs domain.CallObservation
		var outcome string
		if err := rows.Scan(&leadID, &obs.ID, &outcome, &obs.NextFollowUp, &obs.CreatedAt); err != nil {
			return nil, err
		}
		obs.Outcome = domain.Outcome(outcome)
		out[leadID] = append(out[leadID], obs)
	}
	return out, rows.Err()
}

func collectObservations(rows pgx.Rows) ([]domain.CallObservation, error) {
	observations := make([]domain.CallObservation, 0)
	for rows.Next() {
		var obs domain.CallObservation
		var outcome string
		if err := rows.Scan(&obs.ID, &outcome, &obs.NextFollowUp, &obs.CreatedAt); err != nil {
			return nil, err
		}
		obs.Outcome = domain.Outcome(outcome)
		observations = append(observations, obs)
	}
	return observations, rows.Err()
}
