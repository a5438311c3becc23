package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"calldesk_backend/internal/events"
	"calldesk_backend/internal/leads/domain"
	"calldesk_backend/internal/leads/repository"
	"calldesk_backend/platform/apperr"
	"calldesk_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeLeadRepo struct {
	leads    map[uuid.UUID]repository.Lead
	removed  []uuid.UUID
	removals []repository.RemovalEntry
}

func newFakeLeadRepo() *fakeLeadRepo {
	return &fakeLeadRepo{leads: make(map[uuid.UUID]repository.Lead)}
}

func (f *fakeLeadRepo) GetByID(_ context.Context, id uuid.UUID, companyID uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok || lead.CompanyID != companyID {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeLeadRepo) List(_ context.Context, params repository.ListParams) ([]repository.Lead, int, error) {
	out := make([]repository.Lead, 0)
	for _, lead := range f.leads {
		if lead.CompanyID == params.CompanyID && lead.Status != domain.StatusRemoved {
			out = append(out, lead)
		}
	}
	return out, len(out), nil
}

func (f *fakeLeadRepo) UpdateStatus(_ context.Context, id uuid.UUID, _ uuid.UUID, status domain.Status) error {
	lead, ok := f.leads[id]
	if !ok {
		return repository.ErrNotFound
	}
	lead.Status = status
	f.leads[id] = lead
	return nil
}

func (f *fakeLeadRepo) Remove(_ context.Context, leadID, companyID, removedBy uuid.UUID, reason string) error {
	lead, ok := f.leads[leadID]
	if !ok || lead.Status == domain.StatusRemoved {
		return repository.ErrNotFound
	}
	snapshot, err := repository.SnapshotLead(lead)
	if err != nil {
		return err
	}
	lead.Status = domain.StatusRemoved
	f.leads[leadID] = lead
	f.removed = append(f.removed, leadID)
	f.removals = append(f.removals, repository.RemovalEntry{
		LeadID:    leadID,
		CompanyID: companyID,
		RemovedBy: removedBy,
		Reason:    reason,
		Snapshot:  snapshot,
	})
	return nil
}

func (f *fakeLeadRepo) ListRemovals(_ context.Context, companyID uuid.UUID, _, _ int) ([]repository.RemovalEntry, error) {
	out := make([]repository.RemovalEntry, 0)
	for _, entry := range f.removals {
		if entry.CompanyID == companyID {
			out = append(out, entry)
		}
	}
	return out, nil
}

type fakeObserver struct {
	byLead map[uuid.UUID][]domain.CallObservation
}

func (f *fakeObserver) ObservationsForLead(_ context.Context, leadID uuid.UUID) ([]domain.CallObservation, error) {
	return f.byLead[leadID], nil
}

func (f *fakeObserver) ObservationsForLeads(_ context.Context, leadIDs []uuid.UUID) (map[uuid.UUID][]domain.CallObservation, error) {
	out := make(map[uuid.UUID][]domain.CallObservation, len(leadIDs))
	for _, id := range leadIDs {
		out[id] = f.byLead[id]
	}
	return out, nil
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

func newTestService() (*Service, *fakeLeadRepo, *fakeObserver, *fakeBus) {
	repo := newFakeLeadRepo()
	observer := &fakeObserver{byLead: make(map[uuid.UUID][]domain.CallObservation)}
	bus := &fakeBus{}
	svc := New(repo, observer, bus, logger.New("development"))
	return svc, repo, observer, bus
}

func seedLead(repo *fakeLeadRepo, companyID uuid.UUID, status domain.Status) repository.Lead {
	lead := repository.Lead{
		ID:        uuid.New(),
		CompanyID: companyID,
		FirstName: "Jamie",
		LastName:  "Doe",
		Phone:     "+31612345678",
		Status:    status,
	}
	repo.leads[lead.ID] = lead
	return lead
}

func TestRemoveRequiresReason(t *testing.T) {
	svc, repo, _, bus := newTestService()
	companyID := uuid.New()
	lead := seedLead(repo, companyID, domain.StatusActive)

	for _, reason := range []string{"", "   ", "\t\n"} {
		err := svc.Remove(context.Background(), lead.ID, companyID, uuid.New(), reason)
		if err == nil {
			t.Fatalf("expected validation error for reason %q", reason)
		}
		if !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("expected validation kind, got %v", err)
		}
	}
	if len(repo.removed) != 0 {
		t.Fatalf("no removal may happen on validation failure, got %d", len(repo.removed))
	}
	if len(bus.published) != 0 {
		t.Fatalf("no event may be published on validation failure, got %d", len(bus.published))
	}
}

func TestRemoveHidesLeadFromActiveQueries(t *testing.T) {
	svc, repo, _, bus := newTestService()
	companyID := uuid.New()
	lead := seedLead(repo, companyID, domain.StatusActive)
	removedBy := uuid.New()

	if err := svc.Remove(context.Background(), lead.ID, companyID, removedBy, "duplicate entry"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	views, total, err := svc.List(context.Background(), repository.ListParams{CompanyID: companyID})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 0 || len(views) != 0 {
		t.Fatalf("removed lead must not appear in active queries, got %d views", len(views))
	}

	removals, err := svc.ListRemovals(context.Background(), companyID, 10, 0)
	if err != nil {
		t.Fatalf("list removals failed: %v", err)
	}
	if len(removals) != 1 || removals[0].Reason != "duplicate entry" {
		t.Fatalf("expected one removal entry with reason, got %+v", removals)
	}

	// The entry keeps the lead's fields as they were at removal time.
	var snapshot struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Phone     string `json:"phone"`
		Status    string `json:"status"`
	}
	if err := json.Unmarshal(removals[0].Snapshot, &snapshot); err != nil {
		t.Fatalf("snapshot must be valid JSON: %v", err)
	}
	if snapshot.FirstName != lead.FirstName || snapshot.LastName != lead.LastName || snapshot.Phone != lead.Phone {
		t.Fatalf("snapshot must freeze the lead's fields, got %+v", snapshot)
	}
	if snapshot.Status != string(domain.StatusActive) {
		t.Fatalf("snapshot must keep the pre-removal status, got %s", snapshot.Status)
	}

	if len(bus.published) != 1 {
		t.Fatalf("expected one LeadRemoved event, got %d", len(bus.published))
	}
	removedEvent, ok := bus.published[0].(events.LeadRemoved)
	if !ok {
		t.Fatalf("expected LeadRemoved, got %T", bus.published[0])
	}
	if removedEvent.LeadID != lead.ID || removedEvent.EmployeeID != removedBy {
		t.Fatalf("event carries wrong identifiers: %+v", removedEvent)
	}
}

func TestRemoveTwiceReturnsNotFound(t *testing.T) {
	svc, repo, _, _ := newTestService()
	companyID := uuid.New()
	lead := seedLead(repo, companyID, domain.StatusActive)

	if err := svc.Remove(context.Background(), lead.ID, companyID, uuid.New(), "gone"); err != nil {
		t.Fatalf("first remove failed: %v", err)
	}
	err := svc.Remove(context.Background(), lead.ID, companyID, uuid.New(), "gone again")
	if err == nil || !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found on second removal, got %v", err)
	}
}

func TestGetProjectsFollowUpWithBadgeTime(t *testing.T) {
	svc, repo, observer, _ := newTestService()
	companyID := uuid.New()
	lead := seedLead(repo, companyID, domain.StatusFollowUp)

	followUpAt := time.Now().Add(48 * time.Hour)
	observer.byLead[lead.ID] = []domain.CallObservation{
		{
			ID:           uuid.New(),
			Outcome:      domain.OutcomeFollowUp,
			NextFollowUp: &followUpAt,
			CreatedAt:    time.Now(),
		},
	}

	view, err := svc.Get(context.Background(), lead.ID, companyID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if view.Projection.Code != domain.ProjectionFollowUp {
		t.Fatalf("expected follow_up projection, got %s", view.Projection.Code)
	}
	if view.FollowUpIn == nil {
		t.Fatal("expected remaining follow-up time on the view")
	}
	remaining := *view.FollowUpIn
	if remaining > 48*time.Hour || remaining < 47*time.Hour+59*time.Minute {
		t.Fatalf("expected roughly 48h remaining, got %s", remaining)
	}
}

func TestGetWithoutCallsProjectsNotCalled(t *testing.T) {
	svc, repo, _, _ := newTestService()
	companyID := uuid.New()
	lead := seedLead(repo, companyID, domain.StatusActive)

	view, err := svc.Get(context.Background(), lead.ID, companyID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if view.Projection.Code != domain.ProjectionNotCalled {
		t.Fatalf("expected not_called projection, got %s", view.Projection.Code)
	}
	if view.FollowUpIn != nil {
		t.Fatal("no follow-up badge expected without call records")
	}
}
