package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"calldesk_backend/internal/analysis/dispatch"
	"calldesk_backend/internal/analysis/outbox"
	callrepo "calldesk_backend/internal/calls/repository"
	leadrepo "calldesk_backend/internal/leads/repository"
	"calldesk_backend/internal/notification"
	"calldesk_backend/platform/config"
	"calldesk_backend/platform/logger"
)

// LeadReader loads leads for reminder delivery. Background tasks carry
// trusted IDs, so lookups here skip tenant scoping.
type LeadReader interface {
	GetAnyByID(ctx context.Context, id uuid.UUID) (leadrepo.Lead, error)
}

// FollowUpReader resolves the scheduled follow-up time for a lead.
type FollowUpReader interface {
	LatestWithFollowUp(ctx context.Context, leadID, companyID uuid.UUID) (callrepo.CallRecord, error)
}

// EmployeeDirectory resolves an employee's notification address.
type EmployeeDirectory interface {
	EmailFor(ctx context.Context, employeeID uuid.UUID) (string, error)
}

// Worker consumes scheduled tasks: due webhook deliveries and follow-up
// reminder emails.
type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	outbox     *outbox.Repository
	dispatcher *dispatch.Dispatcher
	leads      LeadReader
	followUps  FollowUpReader
	employees  EmployeeDirectory
	sender     notification.Sender
	log        *logger.Logger
}

func NewWorker(
	cfg config.SchedulerConfig,
	outboxRepo *outbox.Repository,
	dispatcher *dispatch.Dispatcher,
	leads LeadReader,
	followUps FollowUpReader,
	employees EmployeeDirectory,
	sender notification.Sender,
	log *logger.Logger,
) (*Worker, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, fmt.Errorf("scheduler: parse redis url: %w", err)
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: cfg.GetAsynqConcurrency(),
		Queues: map[string]int{
			cfg.GetAsynqQueueName(): 1,
		},
		Logger: asynqLogger{log: log},
	})

	w := &Worker{
		server:     server,
		mux:        asynq.NewServeMux(),
		outbox:     outboxRepo,
		dispatcher: dispatcher,
		leads:      leads,
		followUps:  followUps,
		employees:  employees,
		sender:     sender,
		log:        log,
	}
	w.mux.HandleFunc(TaskAnalysisWebhookDue, w.handleAnalysisWebhookDue)
	w.mux.HandleFunc(TaskFollowUpReminder, w.handleFollowUpReminder)
	return w, nil
}

// Run blocks until ctx is cancelled, then shuts the server down.
func (w *Worker) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()
	return w.server.Run(w.mux)
}

func (w *Worker) handleAnalysisWebhookDue(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseAnalysisWebhookDuePayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return fmt.Errorf("%w: invalid outbox id %q", asynq.SkipRetry, payload.OutboxID)
	}

	rec, err := w.outbox.GetByID(ctx, outboxID)
	if err != nil {
		return fmt.Errorf("load outbox record %s: %w", outboxID, err)
	}
	if rec.Status == outbox.StatusSucceeded {
		return nil
	}

	var webhook dispatch.Payload
	if err := json.Unmarshal(rec.Payload, &webhook); err != nil {
		w.log.Error("outbox payload unreadable", "outbox_id", outboxID, "error", err)
		_ = w.outbox.MarkFailed(ctx, outboxID, "unreadable payload: "+err.Error())
		return fmt.Errorf("%w: unreadable payload", asynq.SkipRetry)
	}

	if err := w.outbox.MarkProcessing(ctx, outboxID); err != nil {
		return fmt.Errorf("mark outbox processing %s: %w", outboxID, err)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4), ctx)
	deliver := func() error {
		return w.dispatcher.Deliver(ctx, webhook)
	}
	if err := backoff.Retry(deliver, policy); err != nil {
		_ = w.outbox.MarkFailed(ctx, outboxID, err.Error())
		return fmt.Errorf("deliver webhook for outbox %s: %w", outboxID, err)
	}

	if err := w.outbox.MarkSucceeded(ctx, outboxID); err != nil {
		w.log.Error("mark outbox succeeded failed", "outbox_id", outboxID, "error", err)
	}
	return nil
}

func (w *Worker) handleFollowUpReminder(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseFollowUpReminderPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return fmt.Errorf("%w: invalid lead id %q", asynq.SkipRetry, payload.LeadID)
	}
	employeeID, err := uuid.Parse(payload.EmployeeID)
	if err != nil {
		return fmt.Errorf("%w: invalid employee id %q", asynq.SkipRetry, payload.EmployeeID)
	}

	lead, err := w.leads.GetAnyByID(ctx, leadID)
	if err != nil {
		w.log.Info("follow-up reminder skipped, lead unavailable", "lead_id", leadID, "error", err)
		return nil
	}
	if lead.Status.IsRemoved() {
		// Removed between scheduling and delivery; the reminder dies with the
		// lead.
		w.log.Info("follow-up reminder skipped, lead removed", "lead_id", leadID)
		return nil
	}

	followUpAt := time.Now()
	if rec, err := w.followUps.LatestWithFollowUp(ctx, leadID, lead.CompanyID); err == nil && rec.NextFollowUp != nil {
		followUpAt = *rec.NextFollowUp
	}

	email, err := w.employees.EmailFor(ctx, employeeID)
	if err != nil {
		return fmt.Errorf("resolve employee %s: %w", employeeID, err)
	}

	name := lead.FirstName + " " + lead.LastName
	if err := w.sender.SendFollowUpReminder(ctx, email, name, lead.Phone, followUpAt); err != nil {
		return fmt.Errorf("send follow-up reminder for lead %s: %w", leadID, err)
	}
	w.log.Info("follow-up reminder sent", "lead_id", leadID, "employee_id", employeeID)
	return nil
}

// asynqLogger routes asynq's internal logging through the shared logger.
type asynqLogger struct {
	log *logger.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.log.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.log.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.log.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.log.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.log.Error(fmt.Sprint(args...)) }
