package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("analysis job not found")

// Status is the analysis job lifecycle. This system writes only pending and
// processing; completed and failed are written out-of-process by the external
// worker and are only ever observed here.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the worker has finished with the job.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one tracked analysis request. Score and detail fields stay null
// until the external worker fills them in.
type Job struct {
	ID                uuid.UUID
	RecordingID       uuid.UUID
	CallID            *uuid.UUID
	OwnerID           uuid.UUID
	CompanyID         uuid.UUID
	Status            Status
	SentimentScore    *float64
	EngagementScore   *float64
	ConfidenceScore   *float64
	ClarityConfidence *float64
	ObjectionsHandled *string
	NextSteps         *string
	Improvements      *string
	CallOutcome       *string
	Summary           *string
	DetailedAnalysis  json.RawMessage
	CreatedAt         time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const jobColumns = `id, recording_id, call_id, owner_id, company_id, status,
	sentiment_score, engagement_score, confidence_score, clarity_confidence,
	objections_handled, next_steps, improvements, call_outcome, summary,
	detailed_analysis, created_at`

func scanJob(row pgx.Row) (Job, error) {
	var job Job
	var status string
	err := row.Scan(
		&job.ID, &job.RecordingID, &job.CallID, &job.OwnerID, &job.CompanyID, &status,
		&job.SentimentScore, &job.EngagementScore, &job.ConfidenceScore, &job.ClarityConfidence,
		&job.ObjectionsHandled, &job.NextSteps, &job.Improvements, &job.CallOutcome, &job.Summary,
		&job.DetailedAnalysis, &job.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, err
	}
	job.Status = Status(status)
	return job, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Job, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM analysis_jobs WHERE id = $1`, id)
	return scanJob(row)
}

// FindByCall looks a job up by its call reference, the preferred key.
func (r *Repository) FindByCall(ctx context.Context, callID uuid.UUID) (Job, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+jobColumns+` FROM analysis_jobs
		WHERE call_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, callID)
	return scanJob(row)
}

func (r *Repository) FindByRecording(ctx context.Context, recordingID uuid.UUID) (Job, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+jobColumns+` FROM analysis_jobs
		WHERE recording_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, recordingID)
	return scanJob(row)
}

// Insert creates a job already in processing, score fields null. The partial
// unique index on call_id enforces at most one job per call record.
func (r *Repository) Insert(ctx context.Context, recordingID uuid.UUID, callID *uuid.UUID, ownerID, companyID uuid.UUID) (Job, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO analysis_jobs (id, recording_id, call_id, owner_id, company_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, 'processing', now())
		RETURNING `+jobColumns+`
	`, uuid.New(), recordingID, callID, ownerID, companyID)
	return scanJob(row)
}

// MarkProcessing moves a pending job to processing. The WHERE guard means a
// terminal status can never be pulled back; callers re-read to see the row the
// worker left behind.
func (r *Repository) MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE analysis_jobs SET status = 'processing'
		WHERE id = $1 AND status = 'pending'
	`, id)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// ListProcessing feeds the reconciliation poller's registry.
func (r *Repository) ListProcessing(ctx context.Context) ([]Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+` FROM analysis_jobs
		WHERE status IN ('pending', 'processing')
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

// List returns a company's jobs, optionally filtered by status.
func (r *Repository) List(ctx context.Context, companyID uuid.UUID, status *Status, limit, offset int) ([]Job, error) {
	if limit < 1 {
		limit = 50
	}
	var rows pgx.Rows
	var err error
	if status != nil {
		rows, err = r.pool.Query(ctx, `
			SELECT `+jobColumns+` FROM analysis_jobs
			WHERE company_id = $1 AND status = $2
			ORDER BY created_at DESC
			LIMIT $3 OFFSET $4
		`, companyID, string(*status), limit, offset)
	} else {
		rows, err = r.pool.Query(ctx, `
			SELECT `+jobColumns+` FROM analysis_jobs
			WHERE company_id = $1
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3
		`, companyID, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

func collectJobs(rows pgx.Rows) ([]Job, error) {
	jobs := make([]Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
