// Package recordings provides the recording artifact store and audio upload
// surface.
package recordings

import (
	"context"

	apphttp "calldesk_backend/internal/http"
	"calldesk_backend/internal/recordings/handler"
	"calldesk_backend/internal/recordings/repository"
	"calldesk_backend/internal/recordings/storage"
	"calldesk_backend/platform/config"
	"calldesk_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the recordings bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	repo    *repository.Repository
}

// NewModule wires the recordings module. Storage is optional; without MinIO
// configured only the submit-by-URL path is available.
func NewModule(ctx context.Context, pool *pgxpool.Pool, cfg config.MinIOConfig, analysis handler.AnalysisSubmitter, log *logger.Logger) (*Module, error) {
	repo := repository.New(pool)

	var store *storage.Service
	if cfg.IsMinIOEnabled() {
		var err error
		store, err = storage.NewService(ctx, cfg)
		if err != nil {
			return nil, err
		}
	} else {
		log.Warn("recording storage disabled: MinIO not configured")
	}

	return &Module{
		handler: handler.New(repo, store, analysis),
		repo:    repo,
	}, nil
}

func (m *Module) Name() string {
	return "recordings"
}

// Repository returns the recording store for the analysis pipeline.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/recordings")
	m.handler.RegisterRoutes(group)
}

var _ apphttp.Module = (*Module)(nil)
