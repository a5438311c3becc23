package telephony

import (
	"context"
	"errors"
	"sync"
	"time"

	callrepo "calldesk_backend/internal/calls/repository"
	callsvc "calldesk_backend/internal/calls/service"
	"calldesk_backend/internal/leads/domain"
	"calldesk_backend/platform/apperr"
	"calldesk_backend/platform/logger"

	"github.com/google/uuid"
)

// SessionState is the controller-side lifecycle of an outbound call.
type SessionState string

const (
	SessionInitiating SessionState = "initiating"
	SessionInProgress SessionState = "in_progress"
	SessionCompleted  SessionState = "completed"
	SessionFailed     SessionState = "failed"
	SessionCanceled   SessionState = "canceled"
)

var ErrSessionNotFound = errors.New("telephony session not found")

const notAnsweredNote = "Call was not answered (busy, failed, or no answer)."
const timedOutNote = "Call abandoned: no terminal status from the provider within the poll window."

// session is the ephemeral per-call state. It exists only between initiation
// and a terminal transition; nothing here is persisted.
type session struct {
	id             uuid.UUID
	providerCallID string
	leadID         uuid.UUID
	employeeID     uuid.UUID
	companyID      uuid.UUID
	from           string
	to             string

	state        SessionState
	lastStatus   CallStatus
	awaitingDisp bool
	finalizing   bool
	callRecordID *uuid.UUID
	startedAt    time.Time
	cancelPoll   context.CancelFunc
	stopOnce     sync.Once
}

// SessionView is a read-only snapshot handed to the transport layer.
type SessionView struct {
	ID                  uuid.UUID    `json:"id"`
	ProviderCallID      string       `json:"providerCallId"`
	LeadID              uuid.UUID    `json:"leadId"`
	State               SessionState `json:"state"`
	LastProviderStatus  CallStatus   `json:"lastProviderStatus"`
	AwaitingDisposition bool         `json:"awaitingDisposition"`
	CallRecordID        *uuid.UUID   `json:"callRecordId,omitempty"`
	StartedAt           time.Time    `json:"startedAt"`
}

// OutcomeRecorder is the slice of the call recorder the controller writes
// terminal-status records through. Satisfied by the calls service.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, input callsvc.RecordOutcomeInput) (callrepo.CallRecord, error)
}

// Controller drives provider calls through their lifecycle. One poll loop per
// session, strictly sequential polls, stopped exactly once.
type Controller struct {
	provider     Provider
	recorder     OutcomeRecorder
	log          *logger.Logger
	pollInterval time.Duration
	pollTimeout  time.Duration

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

// NewController builds a controller. pollInterval defaults to 2s and
// pollTimeout to 15m when zero.
func NewController(provider Provider, recorder OutcomeRecorder, log *logger.Logger, pollInterval, pollTimeout time.Duration) *Controller {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if pollTimeout <= 0 {
		pollTimeout = 15 * time.Minute
	}
	return &Controller{
		provider:     provider,
		recorder:     recorder,
		log:          log,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
		sessions:     make(map[uuid.UUID]*session),
	}
}

// InitiateInput starts an outbound call for a lead.
type InitiateInput struct {
	LeadID     uuid.UUID
	EmployeeID uuid.UUID
	CompanyID  uuid.UUID
	From       string
	To         string
	CallerID   string
}

// Initiate connects the call at the provider and starts the poll loop. A
// provider failure surfaces to the caller and leaves no session or record.
func (c *Controller) Initiate(ctx context.Context, input InitiateInput) (SessionView, error) {
	ref, err := c.provider.Connect(ctx, ConnectRequest{
		From:      input.From,
		To:        input.To,
		CallerID:  input.CallerID,
		CompanyID: input.CompanyID.String(),
	})
	if err != nil {
		return SessionView{}, apperr.Wrap(apperr.KindUpstream, "call initiation failed", err)
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:             uuid.New(),
		providerCallID: ref.CallID,
		leadID:         input.LeadID,
		employeeID:     input.EmployeeID,
		companyID:      input.CompanyID,
		from:           input.From,
		to:             input.To,
		state:          SessionInProgress,
		lastStatus:     StatusQueued,
		startedAt:      time.Now(),
		cancelPoll:     cancel,
	}

	c.mu.Lock()
	c.sessions[s.id] = s
	c.mu.Unlock()

	c.log.CallEvent("initiated", ref.CallID, string(StatusQueued))

	go c.poll(pollCtx, s)

	return c.snapshot(s), nil
}

// Status returns the current view of a session.
func (c *Controller) Status(sessionID uuid.UUID) (SessionView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[sessionID]
	if !ok {
		return SessionView{}, ErrSessionNotFound
	}
	return c.snapshotLocked(s), nil
}

// Cancel stops polling and discards the session without writing a call
// record. The provider-side call is not torn down.
func (c *Controller) Cancel(sessionID uuid.UUID) error {
	c.mu.Lock()
	s, ok := c.sessions[sessionID]
	if !ok {
		c.mu.Unlock()
		return ErrSessionNotFound
	}
	if s.state != SessionInProgress || s.finalizing {
		c.mu.Unlock()
		return apperr.Conflict("session is no longer in progress")
	}
	s.state = SessionCanceled
	delete(c.sessions, sessionID)
	c.mu.Unlock()

	s.stopOnce.Do(s.cancelPoll)
	c.log.CallEvent("canceled", s.providerCallID, string(s.lastStatus))
	return nil
}

// poll is the single loop for one session. Each tick issues exactly one
// status fetch; the next tick is not scheduled until the fetch returns.
func (c *Controller) poll(ctx context.Context, s *session) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	deadline := s.startedAt.Add(c.pollTimeout)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if time.Now().After(deadline) {
			c.finalizeTimeout(s)
			return
		}

		details, err := c.provider.CallDetails(ctx, s.providerCallID, s.companyID.String())
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// Transient fetch errors leave the session in progress; the next
			// tick retries.
			c.log.Warn("call status fetch failed", "provider_call_id", s.providerCallID, "error", err)
			continue
		}

		c.mu.Lock()
		s.lastStatus = details.Status
		c.mu.Unlock()

		if !details.Status.Terminal() {
			continue
		}

		s.stopOnce.Do(s.cancelPoll)
		c.finalize(s, details)
		return
	}
}

// claimTerminal marks the session as finalizing. The claim fails when another
// path already took the session out of in_progress, typically a concurrent
// cancel; the caller must then write nothing.
func (c *Controller) claimTerminal(s *session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.state != SessionInProgress || s.finalizing {
		return false
	}
	s.finalizing = true
	return true
}

// finalize handles a terminal provider status exactly once per session.
func (c *Controller) finalize(s *session, details CallDetails) {
	if !c.claimTerminal(s) {
		c.log.CallEvent("terminal_ignored", s.providerCallID, string(details.Status))
		return
	}

	ctx, cancelWrite := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelWrite()

	switch {
	case details.Status == StatusCompleted:
		// Connected at the telephony layer only. The human still classifies
		// the business outcome through manual entry.
		duration := details.DurationSeconds
		input := c.baseInput(s, details.Status)
		input.Outcome = domain.OutcomeCompleted
		input.Notes = "Telephony call connected; disposition pending."
		input.DurationSeconds = &duration
		input.StartedAt = details.StartTime
		input.EndedAt = details.EndTime
		if details.RecordingURL != "" {
			input.RecordingURL = &details.RecordingURL
		}
		if details.Direction != "" {
			input.Direction = &details.Direction
		}
		rec, err := c.recorder.RecordOutcome(ctx, input)
		c.transition(s, SessionCompleted, details.Status, rec, err, true)

	case details.Status.Unanswered():
		input := c.baseInput(s, details.Status)
		input.Outcome = domain.OutcomeNotAnswered
		input.Notes = notAnsweredNote
		input.StartedAt = details.StartTime
		input.EndedAt = details.EndTime
		if details.Direction != "" {
			input.Direction = &details.Direction
		}
		rec, err := c.recorder.RecordOutcome(ctx, input)
		c.transition(s, SessionFailed, details.Status, rec, err, false)

	default:
		// Provider-side cancellation: discard without a record.
		c.mu.Lock()
		s.state = SessionCanceled
		s.lastStatus = details.Status
		c.mu.Unlock()
		c.log.CallEvent("provider_canceled", s.providerCallID, string(details.Status))
	}
}

// finalizeTimeout fails a session that never reached a terminal status within
// the poll window.
func (c *Controller) finalizeTimeout(s *session) {
	s.stopOnce.Do(s.cancelPoll)

	if !c.claimTerminal(s) {
		return
	}

	ctx, cancelWrite := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelWrite()

	input := c.baseInput(s, s.lastStatus)
	input.Outcome = domain.OutcomeFailed
	input.Notes = timedOutNote
	rec, err := c.recorder.RecordOutcome(ctx, input)
	c.transition(s, SessionFailed, s.lastStatus, rec, err, false)
	c.log.CallEvent("poll_timeout", s.providerCallID, string(s.lastStatus))
}

// baseInput carries the provider-side call metadata every telephony-sourced
// record shares.
func (c *Controller) baseInput(s *session, status CallStatus) callsvc.RecordOutcomeInput {
	providerStatus := string(status)
	return callsvc.RecordOutcomeInput{
		LeadID:         s.leadID,
		EmployeeID:     s.employeeID,
		CompanyID:      s.companyID,
		ProviderCallID: &s.providerCallID,
		FromNumber:     &s.from,
		ToNumber:       &s.to,
		ProviderStatus: &providerStatus,
		Source:         "telephony",
	}
}

func (c *Controller) transition(s *session, state SessionState, status CallStatus, rec callrepo.CallRecord, recordErr error, awaitingDisp bool) {
	c.mu.Lock()
	s.state = state
	s.lastStatus = status
	s.awaitingDisp = awaitingDisp
	if recordErr == nil {
		id := rec.ID
		s.callRecordID = &id
	}
	c.mu.Unlock()

	if recordErr != nil {
		c.log.Error("failed to persist call record on terminal status",
			"provider_call_id", s.providerCallID, "status", string(status), "error", recordErr)
	}
	c.log.CallEvent("terminal", s.providerCallID, string(status))
}

func (c *Controller) snapshot(s *session) SessionView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked(s)
}

func (c *Controller) snapshotLocked(s *session) SessionView {
	return SessionView{
		ID:                  s.id,
		ProviderCallID:      s.providerCallID,
		LeadID:              s.leadID,
		State:               s.state,
		LastProviderStatus:  s.lastStatus,
		AwaitingDisposition: s.awaitingDisp,
		CallRecordID:        s.callRecordID,
		StartedAt:           s.startedAt,
	}
}
