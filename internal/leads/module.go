// Package leads provides the lead management bounded context module.
package leads

import (
	"calldesk_backend/internal/events"
	apphttp "calldesk_backend/internal/http"
	"calldesk_backend/internal/leads/handler"
	"calldesk_backend/internal/leads/repository"
	"calldesk_backend/internal/leads/service"
	"calldesk_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	svc     *service.Service
}

// NewModule wires the leads module. The call observer comes from the calls
// module because display status is projected from call history, never stored.
func NewModule(pool *pgxpool.Pool, calls service.CallObserver, eventBus events.Bus, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, calls, eventBus, log)

	return &Module{
		handler: handler.New(svc),
		svc:     svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the lead service for cross-module use.
func (m *Module) Service() *service.Service {
	return m.svc
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	leadsGroup := ctx.Protected.Group("/leads")
	m.handler.RegisterRoutes(leadsGroup)
}

var _ apphttp.Module = (*Module)(nil)
