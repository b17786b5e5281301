package call

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"callmate-backend/internal/domain"
	"callmate-backend/internal/middleware"
	"callmate-backend/internal/service/call"
	"callmate-backend/pkg/logger"
	"callmate-backend/pkg/response"
)

// Handler handles call lifecycle HTTP requests
type Handler struct {
	callService *call.Service
}

// NewHandler creates a new call handler
func NewHandler(callService *call.Service) *Handler {
	return &Handler{callService: callService}
}

// CallResponse wraps a call with the provider join token for the caller
type CallResponse struct {
	*domain.Call
	JoinToken string `json:"join_token,omitempty"`
}

// CreateCall starts a new call with the caller as first participant
// POST /calls
func (h *Handler) CreateCall(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		response.Unauthorized(c, "Not authenticated")
		return
	}

	created, token, err := h.callService.CreateCall(c.Request.Context(), userID)
	if err != nil {
		logger.Log.Error("create call failed", zap.String("user_id", userID.String()), zap.Error(err))
		response.FromError(c, err)
		return
	}

	response.JSON(c, http.StatusCreated, CallResponse{Call: created, JoinToken: token})
}

// JoinCall adds the caller to an existing call
// POST /calls/:id/join
func (h *Handler) JoinCall(c *gin.Context) {
	callID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid call ID")
		return
	}

	userID, ok := callerID(c)
	if !ok {
		response.Unauthorized(c, "Not authenticated")
		return
	}

	joined, token, err := h.callService.JoinCall(c.Request.Context(), callID, userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.JSON(c, http.StatusOK, CallResponse{Call: joined, JoinToken: token})
}

// LeaveCall closes the caller's membership in the call
// POST /calls/:id/leave
func (h *Handler) LeaveCall(c *gin.Context) {
	callID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid call ID")
		return
	}

	userID, ok := callerID(c)
	if !ok {
		response.Unauthorized(c, "Not authenticated")
		return
	}

	left, err := h.callService.LeaveCall(c.Request.Context(), callID, userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"message": "Successfully left the call",
		"call":    left,
	})
}

// EndCall terminates the call for everyone (creator or admin only)
// POST /calls/:id/end
func (h *Handler) EndCall(c *gin.Context) {
	callID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid call ID")
		return
	}

	userID, ok := callerID(c)
	if !ok {
		response.Unauthorized(c, "Not authenticated")
		return
	}
	role := c.GetString(middleware.CtxRole)

	ended, err := h.callService.EndCall(c.Request.Context(), callID, userID, role)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.JSON(c, http.StatusOK, ended)
}

// GetCallDetails retrieves one call with its participant history
// GET /calls/:id
func (h *Handler) GetCallDetails(c *gin.Context) {
	callID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid call ID")
		return
	}

	found, err := h.callService.GetCallDetails(c.Request.Context(), callID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.JSON(c, http.StatusOK, found)
}

// ListCalls returns the caller's call history, newest first
// GET /calls
func (h *Handler) ListCalls(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		response.Unauthorized(c, "Not authenticated")
		return
	}

	summaries, err := h.callService.ListCalls(c.Request.Context(), userID)
	if err != nil {
		logger.Log.Error("list calls failed", zap.String("user_id", userID.String()), zap.Error(err))
		response.FromError(c, err)
		return
	}

	response.JSON(c, http.StatusOK, summaries)
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
