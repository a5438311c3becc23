// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"calldesk_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Call Domain Events
// =============================================================================

// CallRecorded is published after a call record is persisted, whether entered
// manually or written by the telephony controller.
type CallRecorded struct {
	BaseEvent
	CallID     uuid.UUID `json:"callId"`
	LeadID     uuid.UUID `json:"leadId"`
	EmployeeID uuid.UUID `json:"employeeId"`
	CompanyID  uuid.UUID `json:"companyId"`
	Outcome    string    `json:"outcome"`
}

func (e CallRecorded) EventName() string { return "calls.recorded" }

// FollowUpScheduled is published when a call outcome carries a follow-up time.
type FollowUpScheduled struct {
	BaseEvent
	CallID     uuid.UUID `json:"callId"`
	LeadID     uuid.UUID `json:"leadId"`
	EmployeeID uuid.UUID `json:"employeeId"`
	CompanyID  uuid.UUID `json:"companyId"`
	FollowUpAt time.Time `json:"followUpAt"`
}

func (e FollowUpScheduled) EventName() string { return "calls.follow_up.scheduled" }

// LeadRemoved is published when a lead is soft-removed with a reason.
type LeadRemoved struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	EmployeeID uuid.UUID `json:"employeeId"`
	CompanyID  uuid.UUID `json:"companyId"`
	Reason     string    `json:"reason"`
}

func (e LeadRemoved) EventName() string { return "leads.removed" }

// =============================================================================
// Analysis Domain Events
// =============================================================================

// AnalysisJobQueued is published when a job enters the processing state and a
// webhook dispatch has been scheduled for it.
type AnalysisJobQueued struct {
	BaseEvent
	JobID       uuid.UUID  `json:"jobId"`
	RecordingID uuid.UUID  `json:"recordingId"`
	CallID      *uuid.UUID `json:"callId,omitempty"`
	CompanyID   uuid.UUID  `json:"companyId"`
}

func (e AnalysisJobQueued) EventName() string { return "analysis.job.queued" }

// AnalysisJobFinished is published by the reconciliation poller exactly once
// when a job is observed in a terminal status. The status was written by the
// external analysis worker; this system only observes it.
type AnalysisJobFinished struct {
	BaseEvent
	JobID       uuid.UUID `json:"jobId"`
	RecordingID uuid.UUID `json:"recordingId"`
	CompanyID   uuid.UUID `json:"companyId"`
	Status      string    `json:"status"`
}

func (e AnalysisJobFinished) EventName() string { return "analysis.job.finished" }
