// Package telephony drives provider-mediated outbound calls: initiation,
// status polling, and terminal-state handoff into the call recorder.
package telephony

import (
	"context"
	"time"
)

// Provider is the provider-agnostic interface to the external voice gateway.
//
// Rules:
// - No gateway HTTP specifics outside the gateway adapter.
// - All requests are company-scoped.
type Provider interface {
	// Connect places an outbound call and returns the provider's call id.
	Connect(ctx context.Context, req ConnectRequest) (CallRef, error)
	// CallDetails fetches the current state of a call by provider call id.
	CallDetails(ctx context.Context, callID string, companyID string) (CallDetails, error)
}

// ConnectRequest initiates an outbound call. From and To are E.164.
type ConnectRequest struct {
	From      string `json:"from"`
	To        string `json:"to"`
	CallerID  string `json:"caller_id"`
	CompanyID string `json:"company_id"`
}

// CallRef identifies a call at the provider.
type CallRef struct {
	CallID string `json:"call_id"`
}

// CallStatus is the provider's call state vocabulary. Anything outside the
// terminal set means keep polling.
type CallStatus string

const (
	StatusQueued     CallStatus = "queued"
	StatusRinging    CallStatus = "ringing"
	StatusInProgress CallStatus = "in-progress"
	StatusCompleted  CallStatus = "completed"
	StatusBusy       CallStatus = "busy"
	StatusFailed     CallStatus = "failed"
	StatusNoAnswer   CallStatus = "no-answer"
	StatusCanceled   CallStatus = "canceled"
)

// Terminal reports whether polling should stop at this status.
func (s CallStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusBusy, StatusFailed, StatusNoAnswer, StatusCanceled:
		return true
	}
	return false
}

// Unanswered groups the terminal statuses that mean the call never connected.
func (s CallStatus) Unanswered() bool {
	switch s {
	case StatusBusy, StatusFailed, StatusNoAnswer:
		return true
	}
	return false
}

// CallDetails is a point-in-time snapshot of a provider call.
type CallDetails struct {
	CallID          string     `json:"call_id"`
	Status          CallStatus `json:"status"`
	DurationSeconds int        `json:"duration_seconds"`
	RecordingURL    string     `json:"recording_url,omitempty"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	Direction       string     `json:"direction,omitempty"`
	AnsweredBy      string     `json:"answered_by,omitempty"`
}
