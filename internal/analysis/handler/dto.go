package handler

import (
	"encoding/json"
	"time"

	"calldesk_backend/internal/analysis/repository"

	"github.com/google/uuid"
)

type JobResponse struct {
	ID                uuid.UUID       `json:"id"`
	RecordingID       uuid.UUID       `json:"recordingId"`
	CallID            *uuid.UUID      `json:"callId,omitempty"`
	OwnerID           uuid.UUID       `json:"ownerId"`
	Status            string          `json:"status"`
	SentimentScore    *float64        `json:"sentimentScore,omitempty"`
	EngagementScore   *float64        `json:"engagementScore,omitempty"`
	ConfidenceScore   *float64        `json:"confidenceScore,omitempty"`
	ClarityConfidence *float64        `json:"clarityConfidence,omitempty"`
	ObjectionsHandled *string         `json:"objectionsHandled,omitempty"`
	NextSteps         *string         `json:"nextSteps,omitempty"`
	Improvements      *string         `json:"improvements,omitempty"`
	CallOutcome       *string         `json:"callOutcome,omitempty"`
	Summary           *string         `json:"summary,omitempty"`
	DetailedAnalysis  json.RawMessage `json:"detailedAnalysis,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

func ToJobResponse(job repository.Job) JobResponse {
	return JobResponse{
		ID:                job.ID,
		RecordingID:       job.RecordingID,
		CallID:            job.CallID,
		OwnerID:           job.OwnerID,
		Status:            string(job.Status),
		SentimentScore:    job.SentimentScore,
		EngagementScore:   job.EngagementScore,
		ConfidenceScore:   job.ConfidenceScore,
		ClarityConfidence: job.ClarityConfidence,
		ObjectionsHandled: job.ObjectionsHandled,
		NextSteps:         job.NextSteps,
		Improvements:      job.Improvements,
		CallOutcome:       job.CallOutcome,
		Summary:           job.Summary,
		DetailedAnalysis:  job.DetailedAnalysis,
		CreatedAt:         job.CreatedAt,
	}
}
