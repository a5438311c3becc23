package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"calldesk_backend/platform/config"
	"calldesk_backend/platform/logger"
)

// Client enqueues background tasks on the shared Redis queue.
type Client struct {
	client *asynq.Client
	queue  string
	log    *logger.Logger
}

func NewClient(cfg config.SchedulerConfig, log *logger.Logger) (*Client, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, fmt.Errorf("scheduler: parse redis url: %w", err)
	}
	return &Client{
		client: asynq.NewClient(opt),
		queue:  cfg.GetAsynqQueueName(),
		log:    log,
	}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// ScheduleFollowUpReminder enqueues a reminder that fires at the follow-up time.
func (c *Client) ScheduleFollowUpReminder(ctx context.Context, leadID, employeeID uuid.UUID, at time.Time) error {
	task, err := NewFollowUpReminderTask(FollowUpReminderPayload{
		LeadID:     leadID.String(),
		EmployeeID: employeeID.String(),
	})
	if err != nil {
		return fmt.Errorf("scheduler: build follow-up task: %w", err)
	}
	info, err := c.client.EnqueueContext(ctx, task, asynq.ProcessAt(at), asynq.Queue(c.queue))
	if err != nil {
		return fmt.Errorf("scheduler: enqueue follow-up task: %w", err)
	}
	c.log.Debug("follow-up reminder scheduled", "task_id", info.ID, "lead_id", leadID, "process_at", at)
	return nil
}

// EnqueueAnalysisWebhook schedules an outbox row for delivery at runAt.
func (c *Client) EnqueueAnalysisWebhook(ctx context.Context, outboxID, tenantID uuid.UUID, runAt time.Time) error {
	task, err := NewAnalysisWebhookDueTask(AnalysisWebhookDuePayload{
		OutboxID: outboxID.String(),
		TenantID: tenantID.String(),
	})
	if err != nil {
		return fmt.Errorf("scheduler: build webhook task: %w", err)
	}
	if _, err := c.client.EnqueueContext(ctx, task, asynq.ProcessAt(runAt), asynq.Queue(c.queue)); err != nil {
		return fmt.Errorf("scheduler: enqueue webhook task: %w", err)
	}
	return nil
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	parsed, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	opt := asynq.RedisClientOpt{
		Addr:     parsed.Addr,
		Username: parsed.Username,
		Password: parsed.Password,
		DB:       parsed.DB,
	}
	if parsed.TLSConfig != nil {
		cfg := parsed.TLSConfig.Clone()
		if tlsInsecure {
			cfg.InsecureSkipVerify = true
		} else if cfg.MinVersion == 0 {
			cfg.MinVersion = tls.VersionTLS12
		}
		opt.TLSConfig = cfg
	}
	return opt, nil
}
