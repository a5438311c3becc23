package transport

import (
	"time"

	"calldesk_backend/internal/calls/repository"

	"github.com/google/uuid"
)

type RecordOutcomeRequest struct {
	Outcome        string     `json:"outcome" validate:"required,oneof=interested not_interested follow_up converted lost completed not_answered failed"`
	Notes          string     `json:"notes" validate:"required,min=1,max=2000"`
	FollowUpDate   string     `json:"followUpDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	FollowUpTime   string     `json:"followUpTime,omitempty" validate:"omitempty,datetime=15:04"`
	ProviderCallID *string    `json:"providerCallId,omitempty"`
	Duration       *int       `json:"durationSeconds,omitempty" validate:"omitempty,min=0"`
	CallID         *uuid.UUID `json:"callId,omitempty"`
}

// ResolveFollowUp combines the separate date and time inputs into one
// timestamp. Returns nil when both are empty.
func (r RecordOutcomeRequest) ResolveFollowUp(loc *time.Location) (*time.Time, error) {
	if r.FollowUpDate == "" && r.FollowUpTime == "" {
		return nil, nil
	}
	clock := r.FollowUpTime
	if clock == "" {
		clock = "09:00"
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", r.FollowUpDate+" "+clock, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type CallRecordResponse struct {
	ID              uuid.UUID  `json:"id"`
	LeadID          uuid.UUID  `json:"leadId"`
	EmployeeID      uuid.UUID  `json:"employeeId"`
	Outcome         string     `json:"outcome"`
	Notes           string     `json:"notes"`
	NextFollowUp    *time.Time `json:"nextFollowUp,omitempty"`
	DurationSeconds *int       `json:"durationSeconds,omitempty"`
	ProviderCallID  *string    `json:"providerCallId,omitempty"`
	RecordingURL    *string    `json:"recordingUrl,omitempty"`
	FromNumber      *string    `json:"fromNumber,omitempty"`
	ToNumber        *string    `json:"toNumber,omitempty"`
	ProviderStatus  *string    `json:"providerStatus,omitempty"`
	Direction       *string    `json:"direction,omitempty"`
	StartedAt       *time.Time `json:"startedAt,omitempty"`
	EndedAt         *time.Time `json:"endedAt,omitempty"`
	Source          string     `json:"source"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func ToCallRecordResponse(rec repository.CallRecord) CallRecordResponse {
	return CallRecordResponse{
		ID:              rec.ID,
		LeadID:          rec.LeadID,
		EmployeeID:      rec.EmployeeID,
		Outcome:         string(rec.Outcome),
		Notes:           rec.Notes,
		NextFollowUp:    rec.NextFollowUp,
		DurationSeconds: rec.DurationSeconds,
		ProviderCallID:  rec.ProviderCallID,
		RecordingURL:    rec.RecordingURL,
		FromNumber:      rec.FromNumber,
		ToNumber:        rec.ToNumber,
		ProviderStatus:  rec.ProviderStatus,
		Direction:       rec.Direction,
		StartedAt:       rec.StartedAt,
		EndedAt:         rec.EndedAt,
		Source:          rec.Source,
		CreatedAt:       rec.CreatedAt,
	}
}

func ToCallRecordListResponse(records []repository.CallRecord) []CallRecordResponse {
	out := make([]CallRecordResponse, len(records))
	for i, rec := range records {
		out[i] = ToCallRecordResponse(rec)
	}
	return out
}
