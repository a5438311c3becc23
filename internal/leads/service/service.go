package service

import (
	"context"
	"strings"
	"time"

	"calldesk_backend/internal/events"
	"calldesk_backend/internal/leads/domain"
	"calldesk_backend/internal/leads/repository"
	"calldesk_backend/platform/apperr"
	"calldesk_backend/platform/logger"

	"github.com/google/uuid"
)

// CallObserver supplies the call history a lead's display status is projected
// from. Implemented by the calls repository.
type CallObserver interface {
	ObservationsForLead(ctx context.Context, leadID uuid.UUID) ([]domain.CallObservation, error)
	ObservationsForLeads(ctx context.Context, leadIDs []uuid.UUID) (map[uuid.UUID][]domain.CallObservation, error)
}

type LeadRepository interface {
	GetByID(ctx context.Context, id uuid.UUID, companyID uuid.UUID) (repository.Lead, error)
	List(ctx context.Context, params repository.ListParams) ([]repository.Lead, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, companyID uuid.UUID, status domain.Status) error
	Remove(ctx context.Context, leadID, companyID, removedBy uuid.UUID, reason string) error
	ListRemovals(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]repository.RemovalEntry, error)
}

type Service struct {
	repo  LeadRepository
	calls CallObserver
	bus   events.Bus
	log   *logger.Logger
}

func New(repo LeadRepository, calls CallObserver, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, calls: calls, bus: bus, log: log}
}

// LeadView is a lead together with its projected call status.
type LeadView struct {
	Lead       repository.Lead
	Projection domain.Projection
	FollowUpIn *time.Duration
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, companyID uuid.UUID) (LeadView, error) {
	lead, err := s.repo.GetByID(ctx, id, companyID)
	if err != nil {
		if err == repository.ErrNotFound {
			return LeadView{}, apperr.NotFound("lead not found")
		}
		return LeadView{}, apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
	}
	obs, err := s.calls.ObservationsForLead(ctx, id)
	if err != nil {
		return LeadView{}, apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
	}
	return s.buildView(lead, obs), nil
}

func (s *Service) List(ctx context.Context, params repository.ListParams) ([]LeadView, int, error) {
	leads, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "failed to list leads", err)
	}
	if len(leads) == 0 {
		return []LeadView{}, total, nil
	}

	ids := make([]uuid.UUID, len(leads))
	for i, lead := range leads {
		ids[i] = lead.ID
	}
	obsByLead, err := s.calls.ObservationsForLeads(ctx, ids)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "failed to list leads", err)
	}

	views := make([]LeadView, len(leads))
	for i, lead := range leads {
		views[i] = s.buildView(lead, obsByLead[lead.ID])
	}
	return views, total, nil
}

func (s *Service) buildView(lead repository.Lead, obs []domain.CallObservation) LeadView {
	view := LeadView{
		Lead:       lead,
		Projection: domain.ProjectStatus(obs),
	}
	if remaining, ok := domain.FollowUpRemaining(obs, time.Now()); ok {
		view.FollowUpIn = &remaining
	}
	return view
}

// Remove takes a lead out of active circulation. The reason is mandatory and
// is kept in the removal log even if the lead row is later purged.
func (s *Service) Remove(ctx context.Context, leadID, companyID, removedBy uuid.UUID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return apperr.Validation("removal reason is required")
	}

	if err := s.repo.Remove(ctx, leadID, companyID, removedBy, reason); err != nil {
		if err == repository.ErrNotFound {
			return apperr.NotFound("lead not found or already removed")
		}
		return apperr.Wrap(apperr.KindInternal, "failed to remove lead", err)
	}

	s.bus.Publish(ctx, events.LeadRemoved{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     leadID,
		EmployeeID: removedBy,
		CompanyID:  companyID,
		Reason:     reason,
	})

	s.log.Info("lead removed", "lead_id", leadID, "removed_by", removedBy)
	return nil
}

func (s *Service) ListRemovals(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]repository.RemovalEntry, error) {
	entries, err := s.repo.ListRemovals(ctx, companyID, limit, offset)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list removals", err)
	}
	return entries, nil
}
