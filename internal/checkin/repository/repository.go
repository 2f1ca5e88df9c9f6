package repository

import (
	"context"
	"time"

	"attendance-control-plane/internal/checkin/domain"
)

// Repository defines persistence for check-in attempts.
type Repository interface {
	Create(ctx context.Context, a *domain.CheckInAttempt) error
	GetByID(ctx context.Context, id string) (*domain.CheckInAttempt, error)
	// ListPendingBySession returns the session's PENDING_REVIEW attempts,
	// oldest first.
	ListPendingBySession(ctx context.Context, sessionID string) ([]*domain.CheckInAttempt, error)
	// UpdateReview finalizes a pending attempt with the reviewer's decision.
	// Returns false when the attempt was not pending (no-op); exactly one of
	// two concurrent reviewers wins.
	UpdateReview(ctx context.Context, id, verdict, note, reviewedBy string, at time.Time) (bool, error)
	// CountRecentFingerprints counts distinct other fingerprints the student
	// succeeded from since the given instant.
	CountRecentFingerprints(ctx context.Context, studentID, excludeFingerprint string, since time.Time) (int, error)
}
