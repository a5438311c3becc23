package scheduler

import (
	"context"
	"time"

	"calldesk_backend/internal/analysis/outbox"
	"calldesk_backend/platform/logger"
)

const outboxPollInterval = 2 * time.Second

const outboxClaimBatchSize = 50

// OutboxDispatcher moves pending webhook outbox rows onto the task queue.
// Claiming uses FOR UPDATE SKIP LOCKED, so multiple instances can run the
// loop without double-enqueueing.
type OutboxDispatcher struct {
	outbox *outbox.Repository
	client *Client
	log    *logger.Logger
}

func NewOutboxDispatcher(outboxRepo *outbox.Repository, client *Client, log *logger.Logger) *OutboxDispatcher {
	return &OutboxDispatcher{
		outbox: outboxRepo,
		client: client,
		log:    log,
	}
}

// Run blocks until ctx is cancelled.
func (d *OutboxDispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(outboxPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.drain(ctx)
		}
	}
}

func (d *OutboxDispatcher) drain(ctx context.Context) {
	records, err := d.outbox.ClaimPending(ctx, outboxClaimBatchSize)
	if err != nil {
		d.log.Error("claim pending outbox rows failed", "error", err)
		return
	}

	for _, rec := range records {
		if err := d.client.EnqueueAnalysisWebhook(ctx, rec.ID, rec.TenantID, rec.RunAt); err != nil {
			d.log.Error("enqueue outbox row failed", "outbox_id", rec.ID, "error", err)
			msg := err.Error()
			if markErr := d.outbox.MarkPending(ctx, rec.ID, &msg); markErr != nil {
				d.log.Error("release outbox row failed", "outbox_id", rec.ID, "error", markErr)
			}
			continue
		}
		d.log.Debug("outbox row enqueued", "outbox_id", rec.ID, "run_at", rec.RunAt)
	}
}
