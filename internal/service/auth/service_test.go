package auth

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"callmate-backend/internal/domain"
	redisRepo "callmate-backend/internal/repository/redis"
	"callmate-backend/pkg/jwt"
	"callmate-backend/pkg/logger"
	"callmate-backend/pkg/password"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	logger.Sugar = logger.Log.Sugar()
	os.Exit(m.Run())
}

// MockUserRepository is a testify mock of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

// MockSessionRepository is a testify mock of SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) CreateSession(ctx context.Context, session *redisRepo.Session, ttl time.Duration) error {
	args := m.Called(ctx, session, ttl)
	return args.Error(0)
}

func (m *MockSessionRepository) DeleteSession(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockSessionRepository) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	args := m.Called(ctx, jti, ttl)
	return args.Error(0)
}

// fakeProvider is an in-memory signaling provider
type fakeProvider struct{}

func (fakeProvider) CreateCall(_ context.Context, callID, _ uuid.UUID) (string, error) {
	return "default:" + callID.String(), nil
}

func (fakeProvider) IssueToken(userID uuid.UUID) (string, error) {
	return "join-token-" + userID.String(), nil
}

func (fakeProvider) EndCall(context.Context, string) error {
	return nil
}

func newTestJWTManager() *jwt.JWTManager {
	return jwt.NewJWTManager("test-secret-key-at-least-32-chars-long", time.Hour)
}

func TestRegister(t *testing.T) {
	mockUsers := new(MockUserRepository)
	mockSessions := new(MockSessionRepository)
	svc := NewService(mockUsers, mockSessions, newTestJWTManager(), fakeProvider{}, nil)

	mockUsers.On("EmailExists", mock.Anything, "alice@example.com").Return(false, nil)
	mockUsers.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)
	mockSessions.On("CreateSession", mock.Anything, mock.AnythingOfType("*redis.Session"), mock.Anything).Return(nil)

	out, err := svc.Register(context.Background(), &RegisterInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "correct-horse-battery",
	})

	require.NoError(t, err)
	assert.Equal(t, "Alice", out.User.Name)
	assert.Equal(t, domain.RoleUser, out.User.Role)
	assert.NotEmpty(t, out.Token)
	assert.NotEmpty(t, out.ProviderToken)

	// The session is keyed by the token id so logout can address it
	session := mockSessions.Calls[0].Arguments.Get(1).(*redisRepo.Session)
	assert.Equal(t, jwt.TokenID(out.Token), session.SessionID)

	// The stored user carries a verifiable hash, never the plaintext
	createdUser := mockUsers.Calls[1].Arguments.Get(1).(*domain.User)
	assert.NotEqual(t, "correct-horse-battery", createdUser.PasswordHash)
	assert.True(t, password.Verify(createdUser.PasswordHash, "correct-horse-battery"))

	mockUsers.AssertExpectations(t)
	mockSessions.AssertExpectations(t)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	mockUsers := new(MockUserRepository)
	svc := NewService(mockUsers, nil, newTestJWTManager(), fakeProvider{}, nil)

	mockUsers.On("EmailExists", mock.Anything, "taken@example.com").Return(true, nil)

	_, err := svc.Register(context.Background(), &RegisterInput{
		Name:     "Bob",
		Email:    "taken@example.com",
		Password: "some-long-password",
	})

	assert.ErrorIs(t, err, domain.ErrEmailExists)
	mockUsers.AssertNotCalled(t, "Create")
}

func TestRegister_WeakPassword(t *testing.T) {
	mockUsers := new(MockUserRepository)
	svc := NewService(mockUsers, nil, newTestJWTManager(), fakeProvider{}, nil)

	_, err := svc.Register(context.Background(), &RegisterInput{
		Name:     "Bob",
		Email:    "bob@example.com",
		Password: "short",
	})

	assert.ErrorIs(t, err, domain.ErrValidation)
	mockUsers.AssertNotCalled(t, "EmailExists")
}

func TestRegister_OverlongPassword(t *testing.T) {
	mockUsers := new(MockUserRepository)
	svc := NewService(mockUsers, nil, newTestJWTManager(), fakeProvider{}, nil)

	_, err := svc.Register(context.Background(), &RegisterInput{
		Name:     "Bob",
		Email:    "bob@example.com",
		Password: strings.Repeat("x", 80),
	})

	assert.ErrorIs(t, err, domain.ErrValidation)
	mockUsers.AssertNotCalled(t, "EmailExists")
}

func TestLogin(t *testing.T) {
	mockUsers := new(MockUserRepository)
	svc := NewService(mockUsers, nil, newTestJWTManager(), fakeProvider{}, nil)

	hash, err := password.Hash("hunter2hunter2")
	require.NoError(t, err)

	user := &domain.User{
		UserID:       uuid.New(),
		Email:        "carol@example.com",
		Name:         "Carol",
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	mockUsers.On("GetByEmail", mock.Anything, "carol@example.com").Return(user, nil)

	out, err := svc.Login(context.Background(), &LoginInput{
		Email:    "carol@example.com",
		Password: "hunter2hunter2",
	})

	require.NoError(t, err)
	assert.Equal(t, user.UserID, out.User.UserID)
	assert.NotEmpty(t, out.Token)
}

func TestLogin_WrongPassword(t *testing.T) {
	mockUsers := new(MockUserRepository)
	svc := NewService(mockUsers, nil, newTestJWTManager(), fakeProvider{}, nil)

	hash, err := password.Hash("the-real-password")
	require.NoError(t, err)

	mockUsers.On("GetByEmail", mock.Anything, "carol@example.com").Return(&domain.User{
		UserID:       uuid.New(),
		Email:        "carol@example.com",
		PasswordHash: hash,
	}, nil)

	_, err = svc.Login(context.Background(), &LoginInput{
		Email:    "carol@example.com",
		Password: "a-wrong-guess",
	})

	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLogin_UnknownEmail(t *testing.T) {
	mockUsers := new(MockUserRepository)
	svc := NewService(mockUsers, nil, newTestJWTManager(), fakeProvider{}, nil)

	mockUsers.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, domain.ErrUserNotFound)

	_, err := svc.Login(context.Background(), &LoginInput{
		Email:    "ghost@example.com",
		Password: "whatever-it-is",
	})

	// Unknown email is indistinguishable from a wrong password
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLogout(t *testing.T) {
	mockSessions := new(MockSessionRepository)
	jwtManager := newTestJWTManager()
	svc := NewService(nil, mockSessions, jwtManager, fakeProvider{}, nil)

	token, err := jwtManager.GenerateToken(uuid.New(), "dave@example.com", "Dave", domain.RoleUser)
	require.NoError(t, err)
	claims, err := jwtManager.ValidateToken(token)
	require.NoError(t, err)

	mockSessions.On("RevokeToken", mock.Anything, claims.ID, mock.AnythingOfType("time.Duration")).Return(nil)
	mockSessions.On("DeleteSession", mock.Anything, claims.ID).Return(nil)

	err = svc.Logout(context.Background(), claims.ID, token)

	require.NoError(t, err)
	mockSessions.AssertExpectations(t)
}

func TestLogout_SessionDeleteFailureIsNonFatal(t *testing.T) {
	mockSessions := new(MockSessionRepository)
	jwtManager := newTestJWTManager()
	svc := NewService(nil, mockSessions, jwtManager, fakeProvider{}, nil)

	token, err := jwtManager.GenerateToken(uuid.New(), "dave@example.com", "Dave", domain.RoleUser)
	require.NoError(t, err)
	jti := jwt.TokenID(token)

	mockSessions.On("RevokeToken", mock.Anything, jti, mock.AnythingOfType("time.Duration")).Return(nil)
	mockSessions.On("DeleteSession", mock.Anything, jti).Return(errors.New("redis: connection refused"))

	// Revocation succeeded, so logout still succeeds
	require.NoError(t, svc.Logout(context.Background(), jti, token))
	mockSessions.AssertExpectations(t)
}
