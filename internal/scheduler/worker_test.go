package scheduler

import (
	"context"
	"testing"
	"time"

	callrepo "calldesk_backend/internal/calls/repository"
	"calldesk_backend/internal/leads/domain"
	leadrepo "calldesk_backend/internal/leads/repository"
	"calldesk_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeLeadReader struct {
	leads map[uuid.UUID]leadrepo.Lead
}

func (f *fakeLeadReader) GetAnyByID(_ context.Context, id uuid.UUID) (leadrepo.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return leadrepo.Lead{}, leadrepo.ErrNotFound
	}
	return lead, nil
}

type fakeFollowUpReader struct {
	record callrepo.CallRecord
	err    error
}

func (f *fakeFollowUpReader) LatestWithFollowUp(context.Context, uuid.UUID, uuid.UUID) (callrepo.CallRecord, error) {
	if f.err != nil {
		return callrepo.CallRecord{}, f.err
	}
	return f.record, nil
}

type fakeDirectory struct {
	email string
}

func (f *fakeDirectory) EmailFor(context.Context, uuid.UUID) (string, error) {
	return f.email, nil
}

type recordingSender struct {
	sent []string
}

func (r *recordingSender) SendFollowUpReminder(_ context.Context, toEmail, _, _ string, _ time.Time) error {
	r.sent = append(r.sent, toEmail)
	return nil
}

func newReminderWorker(leads *fakeLeadReader, followUps *fakeFollowUpReader, sender *recordingSender) *Worker {
	return &Worker{
		leads:     leads,
		followUps: followUps,
		employees: &fakeDirectory{email: "rep@example.com"},
		sender:    sender,
		log:       logger.New("development"),
	}
}

func TestFollowUpReminderDelivered(t *testing.T) {
	leadID, employeeID, companyID := uuid.New(), uuid.New(), uuid.New()
	at := time.Now().Add(24 * time.Hour)

	leads := &fakeLeadReader{leads: map[uuid.UUID]leadrepo.Lead{
		leadID: {ID: leadID, CompanyID: companyID, FirstName: "Ada", LastName: "Jansen", Phone: "+31612345678", Status: domain.StatusFollowUp},
	}}
	followUps := &fakeFollowUpReader{record: callrepo.CallRecord{LeadID: leadID, NextFollowUp: &at}}
	sender := &recordingSender{}
	w := newReminderWorker(leads, followUps, sender)

	task, err := NewFollowUpReminderTask(FollowUpReminderPayload{LeadID: leadID.String(), EmployeeID: employeeID.String()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.handleFollowUpReminder(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "rep@example.com" {
		t.Fatalf("expected one reminder to the employee, got %v", sender.sent)
	}
}

func TestFollowUpReminderSkipsRemovedLead(t *testing.T) {
	leadID, employeeID, companyID := uuid.New(), uuid.New(), uuid.New()

	leads := &fakeLeadReader{leads: map[uuid.UUID]leadrepo.Lead{
		leadID: {ID: leadID, CompanyID: companyID, FirstName: "Ada", LastName: "Jansen", Phone: "+31612345678", Status: domain.StatusRemoved},
	}}
	sender := &recordingSender{}
	w := newReminderWorker(leads, &fakeFollowUpReader{err: callrepo.ErrNotFound}, sender)

	task, err := NewFollowUpReminderTask(FollowUpReminderPayload{LeadID: leadID.String(), EmployeeID: employeeID.String()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.handleFollowUpReminder(context.Background(), task); err != nil {
		t.Fatalf("removed lead must be skipped without retry, got %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("no reminder may go out for a removed lead, got %v", sender.sent)
	}
}

func TestFollowUpReminderSkipsMissingLead(t *testing.T) {
	sender := &recordingSender{}
	w := newReminderWorker(&fakeLeadReader{leads: map[uuid.UUID]leadrepo.Lead{}}, &fakeFollowUpReader{err: callrepo.ErrNotFound}, sender)

	task, err := NewFollowUpReminderTask(FollowUpReminderPayload{LeadID: uuid.NewString(), EmployeeID: uuid.NewString()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.handleFollowUpReminder(context.Background(), task); err != nil {
		t.Fatalf("missing lead must be skipped without retry, got %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("no reminder may go out for a missing lead, got %v", sender.sent)
	}
}
