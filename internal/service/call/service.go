package call

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"callmate-backend/internal/domain"
	"callmate-backend/internal/signaling"
	"callmate-backend/pkg/logger"
	"callmate-backend/pkg/metrics"
)

// CallRepository is the persistence collaborator for call records. The
// lifecycle engine is the sole mutator of calls and their participants.
type CallRepository interface {
	Insert(ctx context.Context, call *domain.Call) error
	GetByID(ctx context.Context, callID uuid.UUID) (*domain.Call, error)
	Update(ctx context.Context, call *domain.Call) error
	GetByParticipantOrCreator(ctx context.Context, userID uuid.UUID) ([]*domain.Call, error)
}

// Service enforces call lifecycle transitions, participant membership
// rules, and end-call authorization
type Service struct {
	callRepo CallRepository
	provider signaling.Provider
	metrics  *metrics.Metrics
	locks    *keyedLocks
	now      func() time.Time
}

// NewService creates a new call lifecycle service. metrics may be nil.
func NewService(callRepo CallRepository, provider signaling.Provider, m *metrics.Metrics) *Service {
	return &Service{
		callRepo: callRepo,
		provider: provider,
		metrics:  m,
		locks:    newKeyedLocks(),
		now:      time.Now,
	}
}

// CreateCall allocates a new call with the caller as first participant and
// registers it with the signaling provider. Provider failure does not fail
// the operation: the call is persisted without a handle and creation is
// degraded.
func (s *Service) CreateCall(ctx context.Context, callerID uuid.UUID) (*domain.Call, string, error) {
	now := s.now()
	call := &domain.Call{
		CallID:    uuid.New(),
		CreatedBy: callerID,
		Status:    domain.CallStatusCreated,
		StartedAt: now,
		Participants: []domain.Participant{
			{UserID: callerID, JoinedAt: now},
		},
	}

	signalingState := "ok"
	handle, err := s.provider.CreateCall(ctx, call.CallID, callerID)
	if err != nil {
		signalingState = "degraded"
		logger.Log.Warn("signaling provider unavailable, creating call without handle",
			zap.String("call_id", call.CallID.String()),
			zap.Error(err))
	} else {
		call.ExternalHandle = &handle
	}

	if err := s.callRepo.Insert(ctx, call); err != nil {
		s.metrics.RecordCallOperationFailed("create")
		return nil, "", fmt.Errorf("failed to persist call: %w", err)
	}

	token := s.issueToken(callerID, call.CallID)
	s.metrics.RecordCallStarted(signalingState)

	return call, token, nil
}

// JoinCall adds the caller to the call unless they already hold an open
// membership entry. Joining a freshly created call activates it. Repeat
// joins by a still-active participant are idempotent.
func (s *Service) JoinCall(ctx context.Context, callID, userID uuid.UUID) (*domain.Call, string, error) {
	s.locks.Lock(callID)
	defer s.locks.Unlock(callID)

	call, err := s.callRepo.GetByID(ctx, callID)
	if err != nil {
		return nil, "", err
	}

	if call.Status == domain.CallStatusEnded {
		return nil, "", domain.ErrCallEnded
	}

	if call.ActiveParticipant(userID) == nil {
		call.Participants = append(call.Participants, domain.Participant{
			UserID:   userID,
			JoinedAt: s.now(),
		})

		if call.Status == domain.CallStatusCreated {
			call.Status = domain.CallStatusActive
		}

		if err := s.callRepo.Update(ctx, call); err != nil {
			s.metrics.RecordCallOperationFailed("join")
			return nil, "", fmt.Errorf("failed to persist join: %w", err)
		}
	}

	return call, s.issueToken(userID, callID), nil
}

// LeaveCall closes the caller's open membership entry. Departure of the
// creator hands the call over to the longest-present remaining participant;
// departure of the last active participant ends the call. Leaving a call
// the caller never joined is a no-op.
func (s *Service) LeaveCall(ctx context.Context, callID, userID uuid.UUID) (*domain.Call, error) {
	s.locks.Lock(callID)
	defer s.locks.Unlock(callID)

	call, err := s.callRepo.GetByID(ctx, callID)
	if err != nil {
		return nil, err
	}

	active := call.ActiveParticipant(userID)
	if active == nil {
		return call, nil
	}

	now := s.now()
	active.LeftAt = &now

	if call.CreatedBy == userID {
		if next := earliestActive(call); next != nil {
			call.CreatedBy = next.UserID
		}
	}

	if call.ActiveCount() == 0 && call.Status != domain.CallStatusEnded {
		call.Status = domain.CallStatusEnded
		call.EndedAt = &now
	}

	if err := s.callRepo.Update(ctx, call); err != nil {
		s.metrics.RecordCallOperationFailed("leave")
		return nil, fmt.Errorf("failed to persist leave: %w", err)
	}

	if call.Status == domain.CallStatusEnded {
		s.metrics.RecordCallEnded(call.Duration())
		s.teardownProvider(call)
	}

	return call, nil
}

// EndCall terminates the call for everyone. Only the creator or an admin
// may end a call; every open membership entry is closed at the same
// instant. The provider teardown runs out-of-band and never rolls back the
// local transition.
func (s *Service) EndCall(ctx context.Context, callID, callerID uuid.UUID, callerRole string) (*domain.Call, error) {
	s.locks.Lock(callID)
	defer s.locks.Unlock(callID)

	call, err := s.callRepo.GetByID(ctx, callID)
	if err != nil {
		return nil, err
	}

	if call.CreatedBy != callerID && callerRole != domain.RoleAdmin {
		return nil, domain.ErrNotAuthorized
	}

	if call.Status == domain.CallStatusEnded {
		return nil, domain.ErrCallEnded
	}

	now := s.now()
	call.Status = domain.CallStatusEnded
	call.EndedAt = &now
	for i := range call.Participants {
		if call.Participants[i].LeftAt == nil {
			call.Participants[i].LeftAt = &now
		}
	}

	if err := s.callRepo.Update(ctx, call); err != nil {
		s.metrics.RecordCallOperationFailed("end")
		return nil, fmt.Errorf("failed to persist end: %w", err)
	}

	s.metrics.RecordCallEnded(call.Duration())
	s.teardownProvider(call)

	return call, nil
}

// GetCallDetails retrieves a call with its full participant history
func (s *Service) GetCallDetails(ctx context.Context, callID uuid.UUID) (*domain.Call, error) {
	return s.callRepo.GetByID(ctx, callID)
}

// ListCalls returns summaries of every call the user created or took part
// in, historical memberships included, newest first
func (s *Service) ListCalls(ctx context.Context, userID uuid.UUID) ([]*domain.CallSummary, error) {
	calls, err := s.callRepo.GetByParticipantOrCreator(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list calls: %w", err)
	}

	summaries := make([]*domain.CallSummary, 0, len(calls))
	for _, c := range calls {
		summaries = append(summaries, c.Summary())
	}

	return summaries, nil
}

// issueToken mints a provider join token. Token failure degrades the
// response rather than failing the lifecycle operation.
func (s *Service) issueToken(userID, callID uuid.UUID) string {
	token, err := s.provider.IssueToken(userID)
	if err != nil {
		logger.Log.Warn("failed to issue provider token",
			zap.String("call_id", callID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return ""
	}
	return token
}

// teardownProvider ends the provider-side session out-of-band. The local
// ended record stays authoritative if the provider call fails.
func (s *Service) teardownProvider(call *domain.Call) {
	if call.ExternalHandle == nil {
		return
	}
	handle := *call.ExternalHandle
	callID := call.CallID

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.provider.EndCall(ctx, handle); err != nil {
			logger.Log.Error("failed to end provider call",
				zap.String("call_id", callID.String()),
				zap.String("handle", handle),
				zap.Error(err))
		}
	}()
}

// earliestActive returns the still-active participant with the earliest
// join time, keeping the first entry on ties (stable participant order)
func earliestActive(call *domain.Call) *domain.Participant {
	var best *domain.Participant
	for i := range call.Participants {
		p := &call.Participants[i]
		if p.LeftAt != nil {
			continue
		}
		if best == nil || p.JoinedAt.Before(best.JoinedAt) {
			best = p
		}
	}
	return best
}
