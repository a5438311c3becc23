// Package domain provides core business rules for the leads bounded context.
package domain

// Status is the persisted lifecycle state of a lead. It mutates only as a
// side effect of a new call record, or through the explicit removal action.
type Status string

const (
	StatusActive        Status = "active"
	StatusContacted     Status = "contacted"
	StatusFollowUp      Status = "follow_up"
	StatusConverted     Status = "converted"
	StatusCompleted     Status = "completed"
	StatusNotInterested Status = "not_interested"
	StatusRemoved       Status = "removed"
)

// IsRemoved reports whether the lead is in the soft-terminal removed state.
// Removed leads are excluded from all active views.
func (s Status) IsRemoved() bool {
	return s == StatusRemoved
}

// Valid reports whether the status is a known lead status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusContacted, StatusFollowUp, StatusConverted,
		StatusCompleted, StatusNotInterested, StatusRemoved:
		return true
	}
	return false
}

// Outcome is the business disposition of a single call attempt.
type Outcome string

const (
	OutcomeInterested    Outcome = "interested"
	OutcomeNotInterested Outcome = "not_interested"
	OutcomeFollowUp      Outcome = "follow_up"
	OutcomeConverted     Outcome = "converted"
	OutcomeLost          Outcome = "lost"
	OutcomeCompleted     Outcome = "completed"
	OutcomeNotAnswered   Outcome = "not_answered"
	OutcomeFailed        Outcome = "failed"
)

// Valid reports whether the outcome is a known call outcome.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeInterested, OutcomeNotInterested, OutcomeFollowUp, OutcomeConverted,
		OutcomeLost, OutcomeCompleted, OutcomeNotAnswered, OutcomeFailed:
		return true
	}
	return false
}

// NextLeadStatus maps a call outcome to the lead status written alongside the
// call record. This coarse mapping is deliberately independent from the
// display projection in projector.go; the two rules coexist and must not be
// unified.
func NextLeadStatus(outcome Outcome) Status {
	switch outcome {
	case OutcomeCompleted:
		return StatusConverted
	case OutcomeNotInterested:
		return StatusNotInterested
	case OutcomeFollowUp:
		return StatusFollowUp
	default:
		return StatusContacted
	}
}
