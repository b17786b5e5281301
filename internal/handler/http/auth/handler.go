package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"callmate-backend/internal/middleware"
	"callmate-backend/internal/service/auth"
	"callmate-backend/pkg/logger"
	"callmate-backend/pkg/response"
)

// Handler handles authentication HTTP requests
type Handler struct {
	authService *auth.Service
}

// NewHandler creates a new auth handler
func NewHandler(authService *auth.Service) *Handler {
	return &Handler{authService: authService}
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is the body returned by register and login
type AuthResponse struct {
	UserID        uuid.UUID `json:"user_id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Role          string    `json:"role"`
	Token         string    `json:"token"`
	ProviderToken string    `json:"provider_token,omitempty"`
}

// Register creates a new user account
// POST /auth/register
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "Name, email and password are required")
		return
	}

	out, err := h.authService.Register(c.Request.Context(), &auth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		logger.Log.Warn("registration failed", zap.String("email", req.Email), zap.Error(err))
		response.FromError(c, err)
		return
	}

	response.JSON(c, http.StatusCreated, toAuthResponse(out))
}

// Login authenticates a user
// POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "Email and password are required")
		return
	}

	out, err := h.authService.Login(c.Request.Context(), &auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.JSON(c, http.StatusOK, toAuthResponse(out))
}

// Me returns the authenticated user's profile with a fresh provider token
// GET /auth/me
func (h *Handler) Me(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		response.Unauthorized(c, "Not authenticated")
		return
	}

	out, err := h.authService.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"user":           out.User,
		"provider_token": out.ProviderToken,
	})
}

// Logout revokes the presented token
// POST /auth/logout
func (h *Handler) Logout(c *gin.Context) {
	jti := c.GetString(middleware.CtxTokenID)
	token := c.GetString(middleware.CtxToken)

	if err := h.authService.Logout(c.Request.Context(), jti, token); err != nil {
		logger.Log.Error("logout failed", zap.Error(err))
		response.InternalError(c, "Failed to log out")
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"message": "Logged out"})
}

func toAuthResponse(out *auth.AuthOutput) AuthResponse {
	return AuthResponse{
		UserID:        out.User.UserID,
		Name:          out.User.Name,
		Email:         out.User.Email,
		Role:          out.User.Role,
		Token:         out.Token,
		ProviderToken: out.ProviderToken,
	}
}

// callerID extracts the authenticated user id set by the auth middleware
func callerID(c *gin.Context) (uuid.UUID, bool) {
	val, exists := c.Get(middleware.CtxUserID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := val.(uuid.UUID)
	return id, ok
}
