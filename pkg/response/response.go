package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"callmate-backend/internal/domain"
)

// ErrorBody is the minimal error payload returned to clients. Internal
// error detail never leaks through it.
type ErrorBody struct {
	Message string `json:"message"`
}

// JSON sends a successful response with the payload as the body
func JSON(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// Error sends an error response with the given status code and message
func Error(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, ErrorBody{Message: message})
}

// ValidationError sends a validation error response (400)
func ValidationError(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Unauthorized sends unauthorized error (401)
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

// Forbidden sends forbidden error (403)
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, message)
}

// NotFound sends not found error (404)
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// InternalError sends internal server error (500)
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}

// FromError maps a service error to its HTTP status code and writes the
// response. Unrecognised errors become a generic 500; callers log the
// detail server-side.
func FromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrCallNotFound):
		NotFound(c, "Call not found")
	case errors.Is(err, domain.ErrUserNotFound):
		NotFound(c, "User not found")
	case errors.Is(err, domain.ErrCallEnded):
		ValidationError(c, "This call has ended")
	case errors.Is(err, domain.ErrNotAuthorized):
		Forbidden(c, "Not authorized")
	case errors.Is(err, domain.ErrEmailExists):
		ValidationError(c, "User already exists with this email")
	case errors.Is(err, domain.ErrInvalidCredentials):
		Unauthorized(c, "Invalid email or password")
	case errors.Is(err, domain.ErrValidation):
		ValidationError(c, "Validation failed")
	default:
		InternalError(c, "Internal server error")
	}
}
