// Package signaling abstracts the external call-signaling provider that
// establishes and tears down real-time media sessions. The provider is
// opaque: the lifecycle engine only stores the handle it returns.
package signaling

import (
	"context"

	"github.com/google/uuid"
)

// Provider is the injected capability used by the call lifecycle engine
type Provider interface {
	// CreateCall registers a call with the provider and returns an
	// opaque handle for later reference
	CreateCall(ctx context.Context, callID, createdBy uuid.UUID) (string, error)

	// IssueToken mints a join token the client presents to the provider
	IssueToken(userID uuid.UUID) (string, error)

	// EndCall tears down the provider-side call session
	EndCall(ctx context.Context, handle string) error
}
