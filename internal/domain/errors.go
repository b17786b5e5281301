package domain

import "errors"

// Sentinel errors for the lifecycle and auth services. Handlers map these
// to HTTP status codes at the request boundary with errors.Is.
var (
	// ErrCallNotFound is returned when no call exists for the given id
	ErrCallNotFound = errors.New("call not found")

	// ErrCallEnded is returned when an operation is illegal because the
	// call has already ended
	ErrCallEnded = errors.New("call has ended")

	// ErrNotAuthorized is returned when the caller is authenticated but
	// not allowed to perform the operation
	ErrNotAuthorized = errors.New("not authorized")

	// ErrUserNotFound is returned when no user exists for the given id
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailExists is returned when registering with a taken email
	ErrEmailExists = errors.New("email already registered")

	// ErrInvalidCredentials is returned on a failed login
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrValidation is returned when request input fails service-level
	// validation that the transport binding did not catch
	ErrValidation = errors.New("validation failed")
)
