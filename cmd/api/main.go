package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"calldesk_backend/internal/analysis"
	"calldesk_backend/internal/calls"
	callsvc "calldesk_backend/internal/calls/service"
	"calldesk_backend/internal/events"
	apphttp "calldesk_backend/internal/http"
	"calldesk_backend/internal/http/router"
	"calldesk_backend/internal/leads"
	"calldesk_backend/internal/recordings"
	recrepo "calldesk_backend/internal/recordings/repository"
	"calldesk_backend/internal/scheduler"
	"calldesk_backend/internal/telephony"
	"calldesk_backend/platform/config"
	"calldesk_backend/platform/db"
	"calldesk_backend/platform/httpkit"
	"calldesk_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	eventBus := events.NewInMemoryBus(log)

	reminderScheduler, closeScheduler := initReminderScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	callsModule := calls.NewModule(pool, reminderScheduler, eventBus, log)
	leadsModule := leads.NewModule(pool, callsModule.Repository(), eventBus, log)
	telephonyModule := telephony.NewModule(cfg, callsModule.Service(), log)

	analysisModule := analysis.NewModule(pool, recrepo.New(pool), cfg, eventBus, log)
	recordingsModule, err := recordings.NewModule(ctx, pool, cfg, analysisModule.Submitter(), log)
	if err != nil {
		log.Error("failed to initialize recordings module", "error", err)
		panic("failed to initialize recordings module: " + err.Error())
	}

	app := &apphttp.App{
		Config:      cfg,
		Logger:      log,
		Health:      db.NewPoolAdapter(pool),
		EventBus:    eventBus,
		RateLimiter: httpkit.NewIPRateLimiter(rate.Limit(20), 40, log),
		Modules: []apphttp.Module{
			leadsModule,
			callsModule,
			telephonyModule,
			recordingsModule,
			analysisModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initReminderScheduler(cfg *config.Config, log *logger.Logger) (callsvc.ReminderScheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; follow-up reminders disabled")
		return callsvc.NopReminderScheduler{}, nil
	}

	client, err := scheduler.NewClient(cfg, log)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return callsvc.NopReminderScheduler{}, nil
	}

	return client, func() {
		_ = client.Close()
	}
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
