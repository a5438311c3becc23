package service

import (
	"context"
	"errors"
	"time"

	"calldesk_backend/internal/analysis/dispatch"
	"calldesk_backend/internal/analysis/outbox"
	"calldesk_backend/internal/analysis/repository"
	"calldesk_backend/internal/events"
	recrepo "calldesk_backend/internal/recordings/repository"
	"calldesk_backend/platform/apperr"
	"calldesk_backend/platform/logger"

	"github.com/google/uuid"
)

// RecordingStore is the idempotent recording lookup the pipeline goes through.
type RecordingStore interface {
	GetOrCreate(ctx context.Context, input recrepo.GetOrCreateInput) (recrepo.Recording, error)
}

// JobStore is the analysis job repository slice the pipeline needs.
type JobStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.Job, error)
	FindByCall(ctx context.Context, callID uuid.UUID) (repository.Job, error)
	FindByRecording(ctx context.Context, recordingID uuid.UUID) (repository.Job, error)
	Insert(ctx context.Context, recordingID uuid.UUID, callID *uuid.UUID, ownerID, companyID uuid.UUID) (repository.Job, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, companyID uuid.UUID, status *repository.Status, limit, offset int) ([]repository.Job, error)
	ListProcessing(ctx context.Context) ([]repository.Job, error)
}

// OutboxWriter lands a durable copy of each dispatch.
type OutboxWriter interface {
	Insert(ctx context.Context, p outbox.InsertParams) (uuid.UUID, error)
}

// Dispatcher is the fire-and-forget fast path.
type Dispatcher interface {
	Dispatch(payload dispatch.Payload)
}

type Service struct {
	recordings RecordingStore
	jobs       JobStore
	outbox     OutboxWriter
	dispatcher Dispatcher
	bus        events.Bus
	log        *logger.Logger
}

func New(recordings RecordingStore, jobs JobStore, box OutboxWriter, disp Dispatcher, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		recordings: recordings,
		jobs:       jobs,
		outbox:     box,
		dispatcher: disp,
		bus:        bus,
		log:        log,
	}
}

// SubmitInput is one recording submission for analysis.
type SubmitInput struct {
	OwnerID       uuid.UUID
	CompanyID     uuid.UUID
	StoredFileURL string
	FileName      string
	Transcript    *string
	CallID        *uuid.UUID
}

// SubmitResult reports the recording and job a submission resolved to.
type SubmitResult struct {
	RecordingID uuid.UUID
	JobID       uuid.UUID
	JobStatus   repository.Status
}

// Submit runs the pipeline: recording getOrCreate, job getOrCreate, webhook
// dispatch. Repeat submissions of the same URL converge on the same rows;
// every submission that yields a processing job re-fires the webhook, which
// the worker deduplicates on its side. Terminal jobs come back unchanged and
// fire nothing.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (SubmitResult, error) {
	if input.StoredFileURL == "" {
		return SubmitResult{}, apperr.Validation("stored file URL is required")
	}

	recording, err := s.recordings.GetOrCreate(ctx, recrepo.GetOrCreateInput{
		OwnerID:       input.OwnerID,
		CompanyID:     input.CompanyID,
		StoredFileURL: input.StoredFileURL,
		FileName:      input.FileName,
		Transcript:    input.Transcript,
		CallID:        input.CallID,
	})
	if err != nil {
		return SubmitResult{}, apperr.Wrap(apperr.KindInternal, "failed to resolve recording", err)
	}

	job, err := s.resolveJob(ctx, recording.ID, input)
	if err != nil {
		return SubmitResult{}, err
	}

	if job.Status == repository.StatusProcessing {
		s.enqueueDispatch(ctx, job, recording, input)
	}

	return SubmitResult{
		RecordingID: recording.ID,
		JobID:       job.ID,
		JobStatus:   job.Status,
	}, nil
}

// resolveJob finds the job by call (preferred) or recording, promoting a
// pending row to processing. Terminal rows are returned as-is; the guard in
// MarkProcessing means this path can never resurrect one.
func (s *Service) resolveJob(ctx context.Context, recordingID uuid.UUID, input SubmitInput) (repository.Job, error) {
	var job repository.Job
	var err error

	if input.CallID != nil {
		job, err = s.jobs.FindByCall(ctx, *input.CallID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return repository.Job{}, apperr.Wrap(apperr.KindInternal, "job lookup failed", err)
		}
	} else {
		err = repository.ErrNotFound
	}
	if errors.Is(err, repository.ErrNotFound) {
		job, err = s.jobs.FindByRecording(ctx, recordingID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return repository.Job{}, apperr.Wrap(apperr.KindInternal, "job lookup failed", err)
		}
	}

	if errors.Is(err, repository.ErrNotFound) {
		job, err = s.jobs.Insert(ctx, recordingID, input.CallID, input.OwnerID, input.CompanyID)
		if err != nil {
			return repository.Job{}, apperr.Wrap(apperr.KindInternal, "failed to create analysis job", err)
		}
		return job, nil
	}

	if job.Status.Terminal() || job.Status == repository.StatusProcessing {
		return job, nil
	}

	// Pending: promote. When the guard loses a race against the worker the
	// re-read returns whatever the worker wrote.
	promoted, err := s.jobs.MarkProcessing(ctx, job.ID)
	if err != nil {
		return repository.Job{}, apperr.Wrap(apperr.KindInternal, "failed to promote analysis job", err)
	}
	if !promoted {
		job, err = s.jobs.GetByID(ctx, job.ID)
		if err != nil {
			return repository.Job{}, apperr.Wrap(apperr.KindInternal, "job re-read failed", err)
		}
		return job, nil
	}
	job.Status = repository.StatusProcessing
	return job, nil
}

// enqueueDispatch lands an outbox row for guaranteed delivery and fires the
// fast-path webhook without waiting on it.
func (s *Service) enqueueDispatch(ctx context.Context, job repository.Job, recording recrepo.Recording, input SubmitInput) {
	payload := dispatch.Payload{
		URL:              recording.StoredFileURL,
		Name:             recording.FileName,
		RecordingID:      recording.ID,
		AnalysisID:       job.ID,
		UserID:           input.OwnerID,
		CallID:           job.CallID,
		Timestamp:        time.Now().UTC(),
		Source:           "dashboard",
		URLValidated:     true,
		ValidationMethod: "stored_file_url",
	}

	if _, err := s.outbox.Insert(ctx, outbox.InsertParams{
		TenantID:    input.CompanyID,
		JobID:       job.ID,
		RecordingID: recording.ID,
		Payload:     payload,
	}); err != nil {
		// The fast path still fires; the poller remains the safety net.
		s.log.Error("failed to persist webhook outbox row", "job_id", job.ID, "error", err)
	}

	s.dispatcher.Dispatch(payload)

	s.bus.Publish(ctx, events.AnalysisJobQueued{
		BaseEvent:   events.NewBaseEvent(),
		JobID:       job.ID,
		RecordingID: recording.ID,
		CallID:      job.CallID,
		CompanyID:   input.CompanyID,
	})
}

// Get returns one job scoped to a company.
func (s *Service) Get(ctx context.Context, id, companyID uuid.UUID) (repository.Job, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Job{}, apperr.NotFound("analysis job not found")
		}
		return repository.Job{}, apperr.Wrap(apperr.KindInternal, "failed to load analysis job", err)
	}
	if job.CompanyID != companyID {
		return repository.Job{}, apperr.NotFound("analysis job not found")
	}
	return job, nil
}

// List returns a company's jobs, optionally filtered by status.
func (s *Service) List(ctx context.Context, companyID uuid.UUID, status *repository.Status, limit, offset int) ([]repository.Job, error) {
	jobs, err := s.jobs.List(ctx, companyID, status, limit, offset)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list analysis jobs", err)
	}
	return jobs, nil
}
