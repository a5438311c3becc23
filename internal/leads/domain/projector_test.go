package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestProjectStatusNoCalls(t *testing.T) {
	got := ProjectStatus(nil)
	if got.Code != ProjectionNotCalled {
		t.Fatalf("expected not_called, got %s", got.Code)
	}
	if got.Label != "Not Called" {
		t.Fatalf("expected label 'Not Called', got %q", got.Label)
	}
}

func TestProjectStatusFollowUpWithTime(t *testing.T) {
	followUp := time.Now().Add(48 * time.Hour)
	obs := []CallObservation{
		{ID: uuid.New(), Outcome: OutcomeFollowUp, NextFollowUp: &followUp, CreatedAt: time.Now()},
	}

	got := ProjectStatus(obs)
	if got.Code != ProjectionFollowUp {
		t.Fatalf("expected follow_up, got %s", got.Code)
	}
	if got.Label != "Follow-up Added" {
		t.Fatalf("expected label 'Follow-up Added', got %q", got.Label)
	}
}

func TestProjectStatusFollowUpCleared(t *testing.T) {
	// A follow_up record whose follow-up time was deleted resolves to called.
	obs := []CallObservation{
		{ID: uuid.New(), Outcome: OutcomeFollowUp, NextFollowUp: nil, CreatedAt: time.Now()},
	}

	got := ProjectStatus(obs)
	if got.Code != ProjectionCalled {
		t.Fatalf("expected called, got %s", got.Code)
	}
}

func TestProjectStatusOutcomeMapping(t *testing.T) {
	cases := []struct {
		outcome Outcome
		want    ProjectionCode
	}{
		{OutcomeCompleted, ProjectionCalled},
		{OutcomeConverted, ProjectionCalled},
		{OutcomeInterested, ProjectionCalled},
		{OutcomeNotInterested, ProjectionNotInterested},
		{OutcomeLost, ProjectionNotInterested},
		{OutcomeNotAnswered, ProjectionCalled},
		{OutcomeFailed, ProjectionCalled},
	}

	for _, tc := range cases {
		obs := []CallObservation{
			{ID: uuid.New(), Outcome: tc.outcome, CreatedAt: time.Now()},
		}
		got := ProjectStatus(obs)
		if got.Code != tc.want {
			t.Fatalf("outcome %s: expected %s, got %s", tc.outcome, tc.want, got.Code)
		}
	}
}

func TestProjectStatusLatestRecordWins(t *testing.T) {
	base := time.Now()
	followUp := base.Add(24 * time.Hour)
	obs := []CallObservation{
		{ID: uuid.New(), Outcome: OutcomeFollowUp, NextFollowUp: &followUp, CreatedAt: base.Add(-time.Hour)},
		{ID: uuid.New(), Outcome: OutcomeNotInterested, CreatedAt: base},
	}

	got := ProjectStatus(obs)
	if got.Code != ProjectionNotInterested {
		t.Fatalf("expected latest record to win, got %s", got.Code)
	}
}

func TestProjectStatusTieBreakIsDeterministic(t *testing.T) {
	created := time.Now()
	a := CallObservation{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), Outcome: OutcomeCompleted, CreatedAt: created}
	b := CallObservation{ID: uuid.MustParse("ffffffff-ffff-ffff-ffff-ffffffffffff"), Outcome: OutcomeNotInterested, CreatedAt: created}

	first := ProjectStatus([]CallObservation{a, b})
	second := ProjectStatus([]CallObservation{b, a})

	if first.Code != second.Code {
		t.Fatalf("projection depends on input order: %s vs %s", first.Code, second.Code)
	}
	// Higher ID string wins the tie.
	if first.Code != ProjectionNotInterested {
		t.Fatalf("expected tie-break winner not_interested, got %s", first.Code)
	}
}

func TestFollowUpRemaining(t *testing.T) {
	now := time.Now()
	followUp := now.Add(48 * time.Hour)
	obs := []CallObservation{
		{ID: uuid.New(), Outcome: OutcomeFollowUp, NextFollowUp: &followUp, CreatedAt: now},
	}

	remaining, ok := FollowUpRemaining(obs, now)
	if !ok {
		t.Fatal("expected a pending follow-up")
	}
	if remaining != 48*time.Hour {
		t.Fatalf("expected exactly 48h remaining, got %s", remaining)
	}

	if _, ok := FollowUpRemaining(nil, now); ok {
		t.Fatal("expected no follow-up for empty history")
	}
}

func TestNextLeadStatusMapping(t *testing.T) {
	cases := []struct {
		outcome Outcome
		want    Status
	}{
		{OutcomeCompleted, StatusConverted},
		{OutcomeNotInterested, StatusNotInterested},
		{OutcomeFollowUp, StatusFollowUp},
		{OutcomeConverted, StatusContacted},
		{OutcomeInterested, StatusContacted},
		{OutcomeNotAnswered, StatusContacted},
	}

	for _, tc := range cases {
		if got := NextLeadStatus(tc.outcome); got != tc.want {
			t.Fatalf("outcome %s: expected %s, got %s", tc.outcome, tc.want, got)
		}
	}
}
