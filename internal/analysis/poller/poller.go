// Package poller reconciles analysis job status written out-of-process by the
// external worker. One loop, one registry of in-flight job ids, one interval.
package poller

import (
	"context"
	"sync"
	"time"

	"calldesk_backend/internal/analysis/repository"
	"calldesk_backend/internal/events"
	"calldesk_backend/platform/logger"

	"github.com/google/uuid"
)

// JobReader is the repository slice the poller re-reads through.
type JobReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.Job, error)
	ListProcessing(ctx context.Context) ([]repository.Job, error)
}

// Poller re-reads registered jobs at a fixed interval and publishes
// AnalysisJobFinished exactly once when a job is observed in a terminal
// status. It never writes job status.
type Poller struct {
	jobs     JobReader
	bus      events.Bus
	log      *logger.Logger
	interval time.Duration

	mu       sync.Mutex
	watching map[uuid.UUID]struct{}
}

// New builds a poller. interval defaults to 5s when zero.
func New(jobs JobReader, bus events.Bus, log *logger.Logger, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller{
		jobs:     jobs,
		bus:      bus,
		log:      log,
		interval: interval,
		watching: make(map[uuid.UUID]struct{}),
	}
}

// Watch registers a job id for reconciliation. Registering an id twice is a
// no-op; the id is dropped after its terminal transition is observed.
func (p *Poller) Watch(jobID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.watching[jobID] = struct{}{}
}

// Watching reports the number of in-flight job ids.
func (p *Poller) Watching() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.watching)
}

// Run polls until ctx is done. The registry is refreshed from the store on
// every tick, so jobs queued by another process are picked up within one
// interval; same-process submissions land immediately through the
// AnalysisJobQueued subscription. Exactly one process may run the poller.
func (p *Poller) Run(ctx context.Context) {
	p.bus.Subscribe(events.AnalysisJobQueued{}.EventName(), events.HandlerFunc(func(_ context.Context, event events.Event) error {
		if e, ok := event.(events.AnalysisJobQueued); ok {
			p.Watch(e.JobID)
		}
		return nil
	}))

	p.refresh(ctx)
	if n := p.Watching(); n > 0 {
		p.log.Info("poller seeded", "jobs", n)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// refresh merges every in-flight job from the store into the registry.
// Terminal jobs are never re-added, so the exactly-once publish holds.
func (p *Poller) refresh(ctx context.Context) {
	jobs, err := p.jobs.ListProcessing(ctx)
	if err != nil {
		p.log.Warn("poller refresh failed", "error", err)
		return
	}
	p.mu.Lock()
	for _, job := range jobs {
		p.watching[job.ID] = struct{}{}
	}
	p.mu.Unlock()
}

// tick re-reads every watched job once, sequentially.
func (p *Poller) tick(ctx context.Context) {
	p.refresh(ctx)

	p.mu.Lock()
	ids := make([]uuid.UUID, 0, len(p.watching))
	for id := range p.watching {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	for _, id := range ids {
		job, err := p.jobs.GetByID(ctx, id)
		if err != nil {
			p.log.Warn("poller job read failed", "job_id", id, "error", err)
			continue
		}
		if !job.Status.Terminal() {
			continue
		}

		p.mu.Lock()
		_, stillWatched := p.watching[id]
		delete(p.watching, id)
		p.mu.Unlock()
		if !stillWatched {
			continue
		}

		p.bus.Publish(ctx, events.AnalysisJobFinished{
			BaseEvent:   events.NewBaseEvent(),
			JobID:       job.ID,
			RecordingID: job.RecordingID,
			CompanyID:   job.CompanyID,
			Status:      string(job.Status),
		})
		p.log.Info("analysis job finished", "job_id", job.ID, "status", string(job.Status))
	}
}
