package service

import (
	"context"
	"testing"
	"time"

	"calldesk_backend/internal/calls/repository"
	"calldesk_backend/internal/events"
	"calldesk_backend/internal/leads/domain"
	leadsrepo "calldesk_backend/internal/leads/repository"
	"calldesk_backend/platform/apperr"
	"calldesk_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeCallRepo struct {
	inserted []repository.CallRecord
	records  []repository.CallRecord
	deleted  []uuid.UUID
}

func (f *fakeCallRepo) Insert(_ context.Context, rec repository.CallRecord) (repository.CallRecord, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt = time.Now()
	f.inserted = append(f.inserted, rec)
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeCallRepo) ListByLead(_ context.Context, leadID, companyID uuid.UUID) ([]repository.CallRecord, error) {
	out := make([]repository.CallRecord, 0)
	for _, rec := range f.records {
		if rec.LeadID == leadID && rec.CompanyID == companyID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeCallRepo) LatestWithFollowUp(_ context.Context, leadID, companyID uuid.UUID) (repository.CallRecord, error) {
	var best *repository.CallRecord
	for i := range f.records {
		rec := &f.records[i]
		if rec.LeadID != leadID || rec.CompanyID != companyID || rec.NextFollowUp == nil {
			continue
		}
		if best == nil || rec.CreatedAt.After(best.CreatedAt) {
			best = rec
		}
	}
	if best == nil {
		return repository.CallRecord{}, repository.ErrNotFound
	}
	return *best, nil
}

func (f *fakeCallRepo) Delete(_ context.Context, id, companyID uuid.UUID) error {
	kept := f.records[:0]
	found := false
	for _, rec := range f.records {
		if rec.ID == id && rec.CompanyID == companyID {
			found = true
			continue
		}
		kept = append(kept, rec)
	}
	f.records = kept
	if !found {
		return repository.ErrNotFound
	}
	f.deleted = append(f.deleted, id)
	return nil
}

// fakeLeadStore keeps lead ownership per company; GetByID misses when the
// lead belongs to a different tenant.
type fakeLeadStore struct {
	owners    map[uuid.UUID]uuid.UUID
	updates   []domain.Status
	updateErr error
}

func (f *fakeLeadStore) allow(leadID, companyID uuid.UUID) {
	if f.owners == nil {
		f.owners = make(map[uuid.UUID]uuid.UUID)
	}
	f.owners[leadID] = companyID
}

func (f *fakeLeadStore) GetByID(_ context.Context, id uuid.UUID, companyID uuid.UUID) (leadsrepo.Lead, error) {
	owner, ok := f.owners[id]
	if !ok || owner != companyID {
		return leadsrepo.Lead{}, leadsrepo.ErrNotFound
	}
	return leadsrepo.Lead{ID: id, CompanyID: companyID, Status: domain.StatusActive}, nil
}

func (f *fakeLeadStore) UpdateStatus(_ context.Context, _ uuid.UUID, _ uuid.UUID, status domain.Status) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, status)
	return nil
}

type fakeReminders struct {
	scheduled []time.Time
}

func (f *fakeReminders) ScheduleFollowUpReminder(_ context.Context, _, _ uuid.UUID, at time.Time) error {
	f.scheduled = append(f.scheduled, at)
	return nil
}

type fakeBus struct {
	published []events.Event
}

func (f *fakeBus) Publish(_ context.Context, event events.Event) {
	f.published = append(f.published, event)
}

func (f *fakeBus) PublishSync(_ context.Context, event events.Event) error {
	f.published = append(f.published, event)
	return nil
}

func (f *fakeBus) Subscribe(string, events.Handler) {}

func newTestService() (*Service, *fakeCallRepo, *fakeLeadStore, *fakeReminders, *fakeBus) {
	repo := &fakeCallRepo{}
	leads := &fakeLeadStore{}
	reminders := &fakeReminders{}
	bus := &fakeBus{}
	svc := New(repo, leads, reminders, bus, logger.New("development"))
	return svc, repo, leads, reminders, bus
}

func TestRecordOutcomeFollowUpRequiresTime(t *testing.T) {
	svc, repo, leads, _, _ := newTestService()
	leadID, companyID := uuid.New(), uuid.New()
	leads.allow(leadID, companyID)

	_, err := svc.RecordOutcome(context.Background(), RecordOutcomeInput{
		LeadID:     leadID,
		EmployeeID: uuid.New(),
		CompanyID:  companyID,
		Outcome:    domain.OutcomeFollowUp,
		Notes:      "call back next week",
	})
	if err == nil {
		t.Fatal("expected validation error for follow_up without time")
	}
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation kind, got %v", err)
	}
	if len(repo.inserted) != 0 {
		t.Fatalf("no call record may be written on validation failure, got %d", len(repo.inserted))
	}
}

func TestRecordOutcomeRequiresNotes(t *testing.T) {
	svc, repo, leads, _, _ := newTestService()
	leadID, companyID := uuid.New(), uuid.New()
	leads.allow(leadID, companyID)

	_, err := svc.RecordOutcome(context.Background(), RecordOutcomeInput{
		LeadID:     leadID,
		EmployeeID: uuid.New(),
		CompanyID:  companyID,
		Outcome:    domain.OutcomeCompleted,
		Notes:      "   ",
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(repo.inserted) != 0 {
		t.Fatal("no call record may be written on validation failure")
	}
}

func TestRecordOutcomeRejectsLeadOutsideCompany(t *testing.T) {
	svc, repo, leads, _, bus := newTestService()
	leadID := uuid.New()
	leads.allow(leadID, uuid.New())

	_, err := svc.RecordOutcome(context.Background(), RecordOutcomeInput{
		LeadID:     leadID,
		EmployeeID: uuid.New(),
		CompanyID:  uuid.New(), // not the lead's company
		Outcome:    domain.OutcomeCompleted,
		Notes:      "should never land",
	})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for foreign lead, got %v", err)
	}
	if len(repo.inserted) != 0 {
		t.Fatal("no call record may be written for another company's lead")
	}
	if len(leads.updates) != 0 {
		t.Fatal("no lead status update may happen for another company's lead")
	}
	if len(bus.published) != 0 {
		t.Fatalf("no events may fire for another company's lead, got %d", len(bus.published))
	}
}

func TestRecordOutcomeCoarseStatusMapping(t *testing.T) {
	followUp := time.Now().Add(48 * time.Hour)

	cases := []struct {
		outcome    domain.Outcome
		followUpAt *time.Time
		want       domain.Status
	}{
		{domain.OutcomeCompleted, nil, domain.StatusConverted},
		{domain.OutcomeNotInterested, nil, domain.StatusNotInterested},
		{domain.OutcomeFollowUp, &followUp, domain.StatusFollowUp},
		{domain.OutcomeInterested, nil, domain.StatusContacted},
		{domain.OutcomeLost, nil, domain.StatusContacted},
		{domain.OutcomeNotAnswered, nil, domain.StatusContacted},
	}

	for _, tc := range cases {
		svc, _, leads, _, _ := newTestService()
		leadID, companyID := uuid.New(), uuid.New()
		leads.allow(leadID, companyID)

		_, err := svc.RecordOutcome(context.Background(), RecordOutcomeInput{
			LeadID:     leadID,
			EmployeeID: uuid.New(),
			CompanyID:  companyID,
			Outcome:    tc.outcome,
			Notes:      "test call",
			FollowUpAt: tc.followUpAt,
		})
		if err != nil {
			t.Fatalf("outcome %s: unexpected error %v", tc.outcome, err)
		}
		if len(leads.updates) != 1 || leads.updates[0] != tc.want {
			t.Fatalf("outcome %s: expected lead status %s, got %v", tc.outcome, tc.want, leads.updates)
		}
	}
}

func TestRecordOutcomeSurvivesLeadStatusFailure(t *testing.T) {
	svc, repo, leads, _, bus := newTestService()
	leadID, companyID := uuid.New(), uuid.New()
	leads.allow(leadID, companyID)
	leads.updateErr = context.DeadlineExceeded

	rec, err := svc.RecordOutcome(context.Background(), RecordOutcomeInput{
		LeadID:     leadID,
		EmployeeID: uuid.New(),
		CompanyID:  companyID,
		Outcome:    domain.OutcomeCompleted,
		Notes:      "connected and wrapped up",
	})
	if err != nil {
		t.Fatalf("status write failure must not fail the operation: %v", err)
	}
	if len(repo.inserted) != 1 || repo.inserted[0].ID != rec.ID {
		t.Fatal("call record must be persisted despite lead status failure")
	}
	if len(bus.published) != 1 {
		t.Fatalf("expected CallRecorded event, got %d events", len(bus.published))
	}
}

func TestRecordOutcomeSchedulesReminder(t *testing.T) {
	svc, _, leads, reminders, bus := newTestService()
	leadID, companyID := uuid.New(), uuid.New()
	leads.allow(leadID, companyID)
	at := time.Now().Add(24 * time.Hour).Truncate(time.Minute)

	_, err := svc.RecordOutcome(context.Background(), RecordOutcomeInput{
		LeadID:     leadID,
		EmployeeID: uuid.New(),
		CompanyID:  companyID,
		Outcome:    domain.OutcomeFollowUp,
		Notes:      "wants a callback",
		FollowUpAt: &at,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reminders.scheduled) != 1 || !reminders.scheduled[0].Equal(at) {
		t.Fatalf("expected one reminder at %v, got %v", at, reminders.scheduled)
	}
	if len(bus.published) != 2 {
		t.Fatalf("expected CallRecorded + FollowUpScheduled, got %d events", len(bus.published))
	}
}

func TestRecordOutcomePersistsProviderMetadata(t *testing.T) {
	svc, repo, leads, _, _ := newTestService()
	leadID, companyID := uuid.New(), uuid.New()
	leads.allow(leadID, companyID)

	from, to := "+31612345678", "+31687654321"
	providerStatus := "completed"
	direction := "outbound"
	started := time.Now().Add(-3 * time.Minute)
	ended := time.Now().Add(-1 * time.Minute)

	_, err := svc.RecordOutcome(context.Background(), RecordOutcomeInput{
		LeadID:         leadID,
		EmployeeID:     uuid.New(),
		CompanyID:      companyID,
		Outcome:        domain.OutcomeCompleted,
		Notes:          "connected",
		FromNumber:     &from,
		ToNumber:       &to,
		ProviderStatus: &providerStatus,
		Direction:      &direction,
		StartedAt:      &started,
		EndedAt:        &ended,
		Source:         "telephony",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := repo.inserted[0]
	if rec.FromNumber == nil || *rec.FromNumber != from {
		t.Fatalf("from number not persisted, got %v", rec.FromNumber)
	}
	if rec.ToNumber == nil || *rec.ToNumber != to {
		t.Fatalf("to number not persisted, got %v", rec.ToNumber)
	}
	if rec.ProviderStatus == nil || *rec.ProviderStatus != providerStatus {
		t.Fatalf("provider status not persisted, got %v", rec.ProviderStatus)
	}
	if rec.Direction == nil || *rec.Direction != direction {
		t.Fatalf("direction not persisted, got %v", rec.Direction)
	}
	if rec.StartedAt == nil || !rec.StartedAt.Equal(started) {
		t.Fatalf("start time not persisted, got %v", rec.StartedAt)
	}
	if rec.EndedAt == nil || !rec.EndedAt.Equal(ended) {
		t.Fatalf("end time not persisted, got %v", rec.EndedAt)
	}
}

func TestListByLeadScopedToCompany(t *testing.T) {
	svc, _, leads, _, _ := newTestService()
	leadID, companyID := uuid.New(), uuid.New()
	leads.allow(leadID, companyID)

	_, err := svc.RecordOutcome(context.Background(), RecordOutcomeInput{
		LeadID:     leadID,
		EmployeeID: uuid.New(),
		CompanyID:  companyID,
		Outcome:    domain.OutcomeCompleted,
		Notes:      "first call",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	own, err := svc.ListByLead(context.Background(), leadID, companyID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(own) != 1 {
		t.Fatalf("expected one record for the owning company, got %d", len(own))
	}

	foreign, err := svc.ListByLead(context.Background(), leadID, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(foreign) != 0 {
		t.Fatalf("another company must not see the history, got %d records", len(foreign))
	}
}

func TestDeleteFollowUpRemovesLatestRecord(t *testing.T) {
	svc, repo, leads, _, _ := newTestService()
	leadID, companyID := uuid.New(), uuid.New()
	leads.allow(leadID, companyID)
	at := time.Now().Add(48 * time.Hour)

	rec, err := svc.RecordOutcome(context.Background(), RecordOutcomeInput{
		LeadID:     leadID,
		EmployeeID: uuid.New(),
		CompanyID:  companyID,
		Outcome:    domain.OutcomeFollowUp,
		Notes:      "call back",
		FollowUpAt: &at,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.DeleteFollowUp(context.Background(), leadID, companyID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != rec.ID {
		t.Fatalf("expected record %s deleted, got %v", rec.ID, repo.deleted)
	}
}

func TestDeleteFollowUpIgnoresForeignRecord(t *testing.T) {
	svc, repo, leads, _, _ := newTestService()
	leadID, companyID := uuid.New(), uuid.New()
	leads.allow(leadID, companyID)
	at := time.Now().Add(48 * time.Hour)

	if _, err := svc.RecordOutcome(context.Background(), RecordOutcomeInput{
		LeadID:     leadID,
		EmployeeID: uuid.New(),
		CompanyID:  companyID,
		Outcome:    domain.OutcomeFollowUp,
		Notes:      "call back",
		FollowUpAt: &at,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A different company targeting the same lead id must not touch the
	// owning company's follow-up.
	if err := svc.DeleteFollowUp(context.Background(), leadID, uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.deleted) != 0 {
		t.Fatalf("another company's follow-up must not be deleted, got %v", repo.deleted)
	}
	if len(repo.records) != 1 {
		t.Fatalf("owning company's record must survive, got %d records", len(repo.records))
	}
}

func TestDeleteFollowUpWithoutRecordResetsLead(t *testing.T) {
	svc, repo, leads, _, _ := newTestService()

	if err := svc.DeleteFollowUp(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.deleted) != 0 {
		t.Fatal("nothing should be deleted when no follow-up record exists")
	}
	if len(leads.updates) != 1 || leads.updates[0] != domain.StatusActive {
		t.Fatalf("expected lead reset to active, got %v", leads.updates)
	}
}
