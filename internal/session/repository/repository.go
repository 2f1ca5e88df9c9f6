package repository

import (
	"context"
	"time"

	"attendance-control-plane/internal/session/domain"
)

// Repository defines persistence for sessions.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	// ListActive returns all sessions currently in the active state.
	ListActive(ctx context.Context) ([]*domain.Session, error)
	// Activate transitions a scheduled session to active with the given window.
	// Returns false when the session was not in the scheduled state (no-op).
	Activate(ctx context.Context, id string, startsAt, endsAt time.Time) (bool, error)
	// End transitions an active session to ended. Returns false when the
	// session was already ended or never started (no-op); exactly one caller
	// wins a concurrent stop.
	End(ctx context.Context, id string) (bool, error)
	// ExpireDue ends every active session whose window elapsed before now and
	// returns the IDs actually transitioned.
	ExpireDue(ctx context.Context, now time.Time) ([]string, error)
	// UpdateGeofence replaces the geofence center/radius of an active session.
	// Returns false when the session is not active.
	UpdateGeofence(ctx context.Context, id string, lat, lng, radiusM float64) (bool, error)
}
