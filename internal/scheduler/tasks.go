package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskAnalysisWebhookDue = "analysis.webhook.due"

const TaskFollowUpReminder = "leads.followup.reminder"

type AnalysisWebhookDuePayload struct {
	OutboxID string `json:"outboxId"`
	TenantID string `json:"tenantId"`
}

type FollowUpReminderPayload struct {
	LeadID     string `json:"leadId"`
	EmployeeID string `json:"employeeId"`
}

func NewAnalysisWebhookDueTask(payload AnalysisWebhookDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAnalysisWebhookDue, data), nil
}

func ParseAnalysisWebhookDuePayload(task *asynq.Task) (AnalysisWebhookDuePayload, error) {
	var payload AnalysisWebhookDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return AnalysisWebhookDuePayload{}, err
	}
	return payload, nil
}

func NewFollowUpReminderTask(payload FollowUpReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFollowUpReminder, data), nil
}

func ParseFollowUpReminderPayload(task *asynq.Task) (FollowUpReminderPayload, error) {
	var payload FollowUpReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return FollowUpReminderPayload{}, err
	}
	return payload, nil
}
