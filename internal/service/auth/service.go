package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"callmate-backend/internal/domain"
	redisRepo "callmate-backend/internal/repository/redis"
	"callmate-backend/internal/signaling"
	"callmate-backend/pkg/constants"
	"callmate-backend/pkg/jwt"
	"callmate-backend/pkg/logger"
	"callmate-backend/pkg/metrics"
	"callmate-backend/pkg/password"
)

// UserRepository interface
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

// SessionRepository interface
type SessionRepository interface {
	CreateSession(ctx context.Context, session *redisRepo.Session, ttl time.Duration) error
	DeleteSession(ctx context.Context, sessionID string) error
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
}

// Service handles registration, login, and session management
type Service struct {
	userRepo    UserRepository
	sessionRepo SessionRepository
	jwtManager  *jwt.JWTManager
	provider    signaling.Provider
	metrics     *metrics.Metrics
}

// NewService creates a new auth service. sessionRepo and metrics may be
// nil; sessions and metrics are then skipped.
func NewService(
	userRepo UserRepository,
	sessionRepo SessionRepository,
	jwtManager *jwt.JWTManager,
	provider signaling.Provider,
	m *metrics.Metrics,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		jwtManager:  jwtManager,
		provider:    provider,
		metrics:     m,
	}
}

// RegisterInput contains user registration data
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// AuthOutput contains the result of a successful register or login
type AuthOutput struct {
	User          *domain.UserResponse
	Token         string
	ProviderToken string
}

// Register creates a new user account and signs the user in
func (s *Service) Register(ctx context.Context, input *RegisterInput) (*AuthOutput, error) {
	s.metrics.RecordAuthAttempt("register")

	if err := password.Validate(input.Password); err != nil {
		s.metrics.RecordAuthFailure("register", "weak_password")
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	exists, err := s.userRepo.EmailExists(ctx, input.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		s.metrics.RecordAuthFailure("register", "email_exists")
		return nil, domain.ErrEmailExists
	}

	hash, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		UserID:       uuid.New(),
		Email:        input.Email,
		Name:         input.Name,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		CreatedAt:    time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.signIn(ctx, user)
}

// LoginInput contains login credentials
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and signs the user in
func (s *Service) Login(ctx context.Context, input *LoginInput) (*AuthOutput, error) {
	s.metrics.RecordAuthAttempt("login")

	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		// Absent user and bad password are indistinguishable to callers
		if errors.Is(err, domain.ErrUserNotFound) {
			s.metrics.RecordAuthFailure("login", "unknown_email")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !password.Verify(user.PasswordHash, input.Password) {
		s.metrics.RecordAuthFailure("login", "bad_password")
		return nil, domain.ErrInvalidCredentials
	}

	return s.signIn(ctx, user)
}

// GetCurrentUser retrieves the authenticated user's profile with a fresh
// provider token
func (s *Service) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*AuthOutput, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &AuthOutput{User: user.ToResponse()}
	if token, err := s.provider.IssueToken(user.UserID); err == nil {
		out.ProviderToken = token
	}
	return out, nil
}

// Logout revokes the presented token for the rest of its validity window
// and removes the session stored at sign-in
func (s *Service) Logout(ctx context.Context, jti, tokenString string) error {
	if s.sessionRepo == nil {
		return nil
	}

	ttl := jwt.TokenRemainingLife(tokenString)
	if err := s.sessionRepo.RevokeToken(ctx, jti, ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	// Sessions are keyed by the token id, so the jti addresses both
	if err := s.sessionRepo.DeleteSession(ctx, jti); err != nil {
		logger.Log.Warn("failed to delete session at logout",
			zap.String("jti", jti),
			zap.Error(err))
	}

	return nil
}

// signIn mints tokens and stores the session
func (s *Service) signIn(ctx context.Context, user *domain.User) (*AuthOutput, error) {
	token, err := s.jwtManager.GenerateToken(user.UserID, user.Email, user.Name, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	out := &AuthOutput{
		User:  user.ToResponse(),
		Token: token,
	}

	if providerToken, err := s.provider.IssueToken(user.UserID); err == nil {
		out.ProviderToken = providerToken
	} else {
		logger.Log.Warn("failed to issue provider token at sign-in",
			zap.String("user_id", user.UserID.String()),
			zap.Error(err))
	}

	if s.sessionRepo != nil {
		// Keyed by the token id so logout can address the session
		session := &redisRepo.Session{
			SessionID: jwt.TokenID(token),
			UserID:    user.UserID,
			Token:     token,
			CreatedAt: time.Now(),
			ExpiresAt: time.Now().Add(constants.SessionExpiry),
		}

		if err := s.sessionRepo.CreateSession(ctx, session, constants.SessionExpiry); err != nil {
			// Sessions are advisory; a Redis outage must not block sign-in
			logger.Log.Warn("failed to store session",
				zap.String("user_id", user.UserID.String()),
				zap.Error(err))
		}
	}

	return out, nil
}
