// Package calls provides the call outcome recording bounded context.
package calls

import (
	"calldesk_backend/internal/calls/handler"
	"calldesk_backend/internal/calls/repository"
	"calldesk_backend/internal/calls/service"
	"calldesk_backend/internal/events"
	apphttp "calldesk_backend/internal/http"
	leadsrepo "calldesk_backend/internal/leads/repository"
	"calldesk_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the calls bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	svc     *service.Service
	repo    *repository.Repository
}

func NewModule(pool *pgxpool.Pool, reminders service.ReminderScheduler, eventBus events.Bus, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, leadsrepo.New(pool), reminders, eventBus, log)

	return &Module{
		handler: handler.New(svc),
		svc:     svc,
		repo:    repo,
	}
}

func (m *Module) Name() string {
	return "calls"
}

// Service returns the call recorder for cross-module use (telephony writes
// records through it).
func (m *Module) Service() *service.Service {
	return m.svc
}

// Repository returns the call store; the leads module projects display status
// from its observations.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
}

var _ apphttp.Module = (*Module)(nil)
