package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"calldesk_backend/internal/calls/repository"
	"calldesk_backend/internal/events"
	"calldesk_backend/internal/leads/domain"
	leadsrepo "calldesk_backend/internal/leads/repository"
	"calldesk_backend/platform/apperr"
	"calldesk_backend/platform/logger"

	"github.com/google/uuid"
)

// CallRepository is the call record store used by the recorder. Every read
// and delete is scoped to one company.
type CallRepository interface {
	Insert(ctx context.Context, rec repository.CallRecord) (repository.CallRecord, error)
	ListByLead(ctx context.Context, leadID, companyID uuid.UUID) ([]repository.CallRecord, error)
	LatestWithFollowUp(ctx context.Context, leadID, companyID uuid.UUID) (repository.CallRecord, error)
	Delete(ctx context.Context, recordID, companyID uuid.UUID) error
}

// LeadStore verifies a lead belongs to the caller's company and updates its
// status as a side effect of call records.
type LeadStore interface {
	GetByID(ctx context.Context, id uuid.UUID, companyID uuid.UUID) (leadsrepo.Lead, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, companyID uuid.UUID, status domain.Status) error
}

// ReminderScheduler enqueues a follow-up reminder task. Implemented by the
// scheduler client; nil-safe via NopReminderScheduler.
type ReminderScheduler interface {
	ScheduleFollowUpReminder(ctx context.Context, leadID, employeeID uuid.UUID, at time.Time) error
}

// NopReminderScheduler is used when no task queue is configured.
type NopReminderScheduler struct{}

func (NopReminderScheduler) ScheduleFollowUpReminder(context.Context, uuid.UUID, uuid.UUID, time.Time) error {
	return nil
}

type Service struct {
	repo      CallRepository
	leads     LeadStore
	reminders ReminderScheduler
	bus       events.Bus
	log       *logger.Logger
}

func New(repo CallRepository, leads LeadStore, reminders ReminderScheduler, bus events.Bus, log *logger.Logger) *Service {
	if reminders == nil {
		reminders = NopReminderScheduler{}
	}
	return &Service{repo: repo, leads: leads, reminders: reminders, bus: bus, log: log}
}

// RecordOutcomeInput carries one call attempt's disposition. FollowUpAt is
// required when Outcome is follow_up.
type RecordOutcomeInput struct {
	LeadID          uuid.UUID
	EmployeeID      uuid.UUID
	CompanyID       uuid.UUID
	Outcome         domain.Outcome
	Notes           string
	FollowUpAt      *time.Time
	DurationSeconds *int
	ProviderCallID  *string
	RecordingURL    *string
	FromNumber      *string
	ToNumber        *string
	ProviderStatus  *string
	Direction       *string
	StartedAt       *time.Time
	EndedAt         *time.Time
	Source          string
}

// RecordOutcome validates and writes a call record, then moves the lead's
// status along the coarse outcome mapping. The status update is best-effort:
// its failure is logged and the inserted record stands.
func (s *Service) RecordOutcome(ctx context.Context, input RecordOutcomeInput) (repository.CallRecord, error) {
	if !input.Outcome.Valid() {
		return repository.CallRecord{}, apperr.Validation("unknown call outcome")
	}
	if strings.TrimSpace(input.Notes) == "" {
		return repository.CallRecord{}, apperr.Validation("notes are required")
	}
	if input.Outcome == domain.OutcomeFollowUp {
		if input.FollowUpAt == nil || input.FollowUpAt.IsZero() {
			return repository.CallRecord{}, apperr.Validation("follow-up outcome requires a follow-up time")
		}
	}
	source := input.Source
	if source == "" {
		source = "manual"
	}

	// The lead must exist inside the caller's company before anything is
	// written about it.
	if _, err := s.leads.GetByID(ctx, input.LeadID, input.CompanyID); err != nil {
		if errors.Is(err, leadsrepo.ErrNotFound) {
			return repository.CallRecord{}, apperr.NotFound("lead not found")
		}
		return repository.CallRecord{}, apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
	}

	rec, err := s.repo.Insert(ctx, repository.CallRecord{
		LeadID:          input.LeadID,
		EmployeeID:      input.EmployeeID,
		CompanyID:       input.CompanyID,
		Outcome:         input.Outcome,
		Notes:           input.Notes,
		NextFollowUp:    input.FollowUpAt,
		DurationSeconds: input.DurationSeconds,
		ProviderCallID:  input.ProviderCallID,
		RecordingURL:    input.RecordingURL,
		FromNumber:      input.FromNumber,
		ToNumber:        input.ToNumber,
		ProviderStatus:  input.ProviderStatus,
		Direction:       input.Direction,
		StartedAt:       input.StartedAt,
		EndedAt:         input.EndedAt,
		Source:          source,
	})
	if err != nil {
		return repository.CallRecord{}, apperr.Wrap(apperr.KindInternal, "failed to write call record", err)
	}

	// Second write has no transactional tie to the first. A failure leaves the
	// lead status stale until the next call record corrects it.
	next := domain.NextLeadStatus(input.Outcome)
	if err := s.leads.UpdateStatus(ctx, input.LeadID, input.CompanyID, next); err != nil {
		s.log.Error("lead status update failed after call record",
			"lead_id", input.LeadID, "call_id", rec.ID, "status", string(next), "error", err)
	}

	s.bus.Publish(ctx, events.CallRecorded{
		BaseEvent:  events.NewBaseEvent(),
		CallID:     rec.ID,
		LeadID:     rec.LeadID,
		EmployeeID: rec.EmployeeID,
		CompanyID:  rec.CompanyID,
		Outcome:    string(rec.Outcome),
	})

	if rec.NextFollowUp != nil {
		if err := s.reminders.ScheduleFollowUpReminder(ctx, rec.LeadID, rec.EmployeeID, *rec.NextFollowUp); err != nil {
			s.log.Error("failed to schedule follow-up reminder", "lead_id", rec.LeadID, "error", err)
		}
		s.bus.Publish(ctx, events.FollowUpScheduled{
			BaseEvent:  events.NewBaseEvent(),
			CallID:     rec.ID,
			LeadID:     rec.LeadID,
			EmployeeID: rec.EmployeeID,
			CompanyID:  rec.CompanyID,
			FollowUpAt: *rec.NextFollowUp,
		})
	}

	return rec, nil
}

// ListByLead returns a lead's call history within the caller's company,
// newest first.
func (s *Service) ListByLead(ctx context.Context, leadID, companyID uuid.UUID) ([]repository.CallRecord, error) {
	records, err := s.repo.ListByLead(ctx, leadID, companyID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list call records", err)
	}
	return records, nil
}

// DeleteFollowUp removes the most recent follow-up-bearing call record for the
// lead. When no such record exists the lead is put back to active instead.
func (s *Service) DeleteFollowUp(ctx context.Context, leadID, companyID uuid.UUID) error {
	rec, err := s.repo.LatestWithFollowUp(ctx, leadID, companyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if err := s.leads.UpdateStatus(ctx, leadID, companyID, domain.StatusActive); err != nil {
				return apperr.Wrap(apperr.KindInternal, "failed to reset lead status", err)
			}
			return nil
		}
		return apperr.Wrap(apperr.KindInternal, "failed to find follow-up", err)
	}

	if err := s.repo.Delete(ctx, rec.ID, companyID); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to delete follow-up record", err)
	}

	s.log.Info("follow-up deleted", "lead_id", leadID, "call_id", rec.ID)
	return nil
}

// Compile-time check that the pgx repositories satisfy the service contracts.
var _ CallRepository = (*repository.Repository)(nil)
var _ LeadStore = (*leadsrepo.Repository)(nil)
