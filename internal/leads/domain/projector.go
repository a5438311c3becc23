package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProjectionCode is the derived display status of a lead, computed from its
// most recent call record. It is a read-only projection; nothing is stored.
type ProjectionCode string

const (
	ProjectionNotCalled     ProjectionCode = "not_called"
	ProjectionCalled        ProjectionCode = "called"
	ProjectionFollowUp      ProjectionCode = "follow_up"
	ProjectionNotInterested ProjectionCode = "not_interested"
)

// Projection pairs a projection code with its display label.
type Projection struct {
	Code  ProjectionCode
	Label string
}

// CallObservation is the slice of a call record the projector needs. Keeping
// it local to the domain package avoids a dependency on the calls repository.
type CallObservation struct {
	ID           uuid.UUID
	Outcome      Outcome
	NextFollowUp *time.Time
	CreatedAt    time.Time
}

var projectionLabels = map[ProjectionCode]string{
	ProjectionNotCalled:     "Not Called",
	ProjectionCalled:        "Called",
	ProjectionFollowUp:      "Follow-up Added",
	ProjectionNotInterested: "Not Interested",
}

// ProjectStatus derives a lead's display status from its call history.
// The latest record by CreatedAt wins; records sharing an identical CreatedAt
// are ordered by ID string so the projection is deterministic.
//
// A follow_up record whose follow-up time was later cleared is treated as
// resolved and projects as called.
func ProjectStatus(observations []CallObservation) Projection {
	latest, ok := latestObservation(observations)
	if !ok {
		return projection(ProjectionNotCalled)
	}

	switch latest.Outcome {
	case OutcomeFollowUp:
		if latest.NextFollowUp != nil {
			return projection(ProjectionFollowUp)
		}
		return projection(ProjectionCalled)
	case OutcomeNotInterested, OutcomeLost:
		return projection(ProjectionNotInterested)
	default:
		return projection(ProjectionCalled)
	}
}

// FollowUpRemaining returns the time remaining until the latest observation's
// follow-up, or false when there is no pending follow-up. Negative durations
// mean the follow-up is overdue.
func FollowUpRemaining(observations []CallObservation, now time.Time) (time.Duration, bool) {
	latest, ok := latestObservation(observations)
	if !ok || latest.Outcome != OutcomeFollowUp || latest.NextFollowUp == nil {
		return 0, false
	}
	return latest.NextFollowUp.Sub(now), true
}

func latestObservation(observations []CallObservation) (CallObservation, bool) {
	if len(observations) == 0 {
		return CallObservation{}, false
	}

	latest := observations[0]
	for _, obs := range observations[1:] {
		if obs.CreatedAt.After(latest.CreatedAt) {
			latest = obs
			continue
		}
		if obs.CreatedAt.Equal(latest.CreatedAt) && obs.ID.String() > latest.ID.String() {
			latest = obs
		}
	}
	return latest, true
}

func projection(code ProjectionCode) Projection {
	return Projection{Code: code, Label: projectionLabels[code]}
}
