package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"calldesk_backend/internal/analysis/dispatch"
	"calldesk_backend/internal/analysis/outbox"
	"calldesk_backend/internal/analysis/poller"
	analysisrepo "calldesk_backend/internal/analysis/repository"
	callrepo "calldesk_backend/internal/calls/repository"
	"calldesk_backend/internal/events"
	leadrepo "calldesk_backend/internal/leads/repository"
	"calldesk_backend/internal/notification"
	"calldesk_backend/internal/scheduler"
	"calldesk_backend/platform/config"
	"calldesk_backend/platform/db"
	"calldesk_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	var sender notification.Sender = notification.NopSender{}
	if cfg.IsEmailEnabled() {
		sender = notification.NewSMTPSender(cfg)
	} else {
		log.Warn("email delivery disabled; follow-up reminders will be dropped")
	}

	client, err := scheduler.NewClient(cfg, log)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	outboxRepo := outbox.New(pool)
	dispatcher := dispatch.New(cfg.GetAnalysisWebhookURL(), log)

	worker, err := scheduler.NewWorker(
		cfg,
		outboxRepo,
		dispatcher,
		leadrepo.New(pool),
		callrepo.New(pool),
		scheduler.NewPgEmployeeDirectory(pool),
		sender,
		log,
	)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	outboxDispatcher := scheduler.NewOutboxDispatcher(outboxRepo, client, log)
	reconciler := poller.New(analysisrepo.New(pool), eventBus, log, cfg.GetReconcileInterval())

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return worker.Run(groupCtx)
	})
	group.Go(func() error {
		return outboxDispatcher.Run(groupCtx)
	})
	group.Go(func() error {
		reconciler.Run(groupCtx)
		return nil
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("scheduler stopped", "error", err)
		panic("scheduler stopped: " + err.Error())
	}
	log.Info("scheduler shut down")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
