package repository

import (
	"context"
	"time"

	"attendance-control-plane/internal/token/domain"
)

// Repository defines persistence for rotating tokens. Token validity is
// derived purely from the stored record so validation stays correct across
// multiple server processes.
type Repository interface {
	Create(ctx context.Context, t *domain.RotatingToken) error
	// GetCurrent returns the latest non-superseded token for the session, or nil.
	GetCurrent(ctx context.Context, sessionID string) (*domain.RotatingToken, error)
	// GetBySessionAndNonce returns the token issued for (sessionID, nonce), or nil.
	GetBySessionAndNonce(ctx context.Context, sessionID, nonce string) (*domain.RotatingToken, error)
	// ConsumeNonce atomically marks the nonce spent. Exactly one of any number
	// of concurrent callers gets true; the rest get false.
	ConsumeNonce(ctx context.Context, sessionID, nonce string) (bool, error)
	// SupersedeCurrent invalidates the session's current token epoch, if any.
	SupersedeCurrent(ctx context.Context, sessionID string, at time.Time) error
}
