package call

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"callmate-backend/internal/domain"
)

// MockCallRepository is a testify mock of CallRepository
type MockCallRepository struct {
	mock.Mock
}

func (m *MockCallRepository) Insert(ctx context.Context, call *domain.Call) error {
	args := m.Called(ctx, call)
	return args.Error(0)
}

func (m *MockCallRepository) GetByID(ctx context.Context, callID uuid.UUID) (*domain.Call, error) {
	args := m.Called(ctx, callID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Call), args.Error(1)
}

func (m *MockCallRepository) Update(ctx context.Context, call *domain.Call) error {
	args := m.Called(ctx, call)
	return args.Error(0)
}

func (m *MockCallRepository) GetByParticipantOrCreator(ctx context.Context, userID uuid.UUID) ([]*domain.Call, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Call), args.Error(1)
}

// fakeProvider is an in-memory signaling provider
type fakeProvider struct {
	createErr error
	tokenErr  error
	endErr    error
	ended     chan string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{ended: make(chan string, 8)}
}

func (f *fakeProvider) CreateCall(_ context.Context, callID, _ uuid.UUID) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	return "default:" + callID.String(), nil
}

func (f *fakeProvider) IssueToken(userID uuid.UUID) (string, error) {
	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	return "join-token-" + userID.String(), nil
}

func (f *fakeProvider) EndCall(_ context.Context, handle string) error {
	f.ended <- handle
	return f.endErr
}

// memoryCallRepo is an in-memory store with copy-in/copy-out semantics, so
// concurrent read-modify-write sequences race the way they would against a
// real database
type memoryCallRepo struct {
	mu    sync.Mutex
	calls map[uuid.UUID]*domain.Call
}

func newMemoryCallRepo() *memoryCallRepo {
	return &memoryCallRepo{calls: make(map[uuid.UUID]*domain.Call)}
}

func (r *memoryCallRepo) Insert(_ context.Context, call *domain.Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[call.CallID] = cloneCall(call)
	return nil
}

func (r *memoryCallRepo) GetByID(_ context.Context, callID uuid.UUID) (*domain.Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	call, ok := r.calls[callID]
	if !ok {
		return nil, domain.ErrCallNotFound
	}
	return cloneCall(call), nil
}

func (r *memoryCallRepo) Update(_ context.Context, call *domain.Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.calls[call.CallID]; !ok {
		return domain.ErrCallNotFound
	}
	r.calls[call.CallID] = cloneCall(call)
	return nil
}

func (r *memoryCallRepo) GetByParticipantOrCreator(_ context.Context, userID uuid.UUID) ([]*domain.Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Call
	for _, call := range r.calls {
		if call.CreatedBy == userID {
			out = append(out, cloneCall(call))
			continue
		}
		for _, p := range call.Participants {
			if p.UserID == userID {
				out = append(out, cloneCall(call))
				break
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, nil
}

func cloneCall(call *domain.Call) *domain.Call {
	dup := *call
	if call.ExternalHandle != nil {
		h := *call.ExternalHandle
		dup.ExternalHandle = &h
	}
	if call.EndedAt != nil {
		t := *call.EndedAt
		dup.EndedAt = &t
	}
	dup.Participants = make([]domain.Participant, len(call.Participants))
	for i, p := range call.Participants {
		dup.Participants[i] = p
		if p.LeftAt != nil {
			t := *p.LeftAt
			dup.Participants[i].LeftAt = &t
		}
	}
	return &dup
}

// fakeClock is a controllable time source for deterministic timestamps
type fakeClock struct {
	mu      sync.Mutex
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()
}
