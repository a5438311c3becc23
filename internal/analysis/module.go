// Package analysis provides the analysis job pipeline: idempotent job store,
// webhook dispatch, and status reconciliation.
package analysis

import (
	"context"

	"calldesk_backend/internal/analysis/dispatch"
	"calldesk_backend/internal/analysis/handler"
	"calldesk_backend/internal/analysis/outbox"
	"calldesk_backend/internal/analysis/repository"
	"calldesk_backend/internal/analysis/service"
	"calldesk_backend/internal/events"
	apphttp "calldesk_backend/internal/http"
	rechandler "calldesk_backend/internal/recordings/handler"
	recrepo "calldesk_backend/internal/recordings/repository"
	"calldesk_backend/platform/config"
	"calldesk_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the analysis bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	svc     *service.Service
}

// NewModule wires repository, outbox, dispatcher, and the pipeline service.
// The reconciliation poller is not part of the HTTP module; the scheduler
// binary runs it against the same tables.
func NewModule(pool *pgxpool.Pool, recordings *recrepo.Repository, cfg config.AnalysisConfig, eventBus events.Bus, log *logger.Logger) *Module {
	repo := repository.New(pool)
	box := outbox.New(pool)
	disp := dispatch.New(cfg.GetAnalysisWebhookURL(), log)
	svc := service.New(recordings, repo, box, disp, eventBus, log)

	return &Module{
		handler: handler.New(svc),
		svc:     svc,
	}
}

func (m *Module) Name() string {
	return "analysis"
}

// Service returns the pipeline for cross-module use.
func (m *Module) Service() *service.Service {
	return m.svc
}

// Submitter adapts the pipeline to the recordings module's submit contract.
func (m *Module) Submitter() rechandler.AnalysisSubmitter {
	return submitterAdapter{svc: m.svc}
}

type submitterAdapter struct {
	svc *service.Service
}

func (a submitterAdapter) Submit(ctx context.Context, input rechandler.SubmitInput) (rechandler.SubmitResult, error) {
	result, err := a.svc.Submit(ctx, service.SubmitInput{
		OwnerID:       input.OwnerID,
		CompanyID:     input.CompanyID,
		StoredFileURL: input.StoredFileURL,
		FileName:      input.FileName,
		Transcript:    input.Transcript,
		CallID:        input.CallID,
	})
	if err != nil {
		return rechandler.SubmitResult{}, err
	}
	return rechandler.SubmitResult{
		RecordingID: result.RecordingID,
		JobID:       result.JobID,
		JobStatus:   string(result.JobStatus),
	}, nil
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/analysis")
	m.handler.RegisterRoutes(group)
}

var _ apphttp.Module = (*Module)(nil)
