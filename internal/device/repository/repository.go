package repository

import (
	"context"

	"attendance-control-plane/internal/device/domain"
)

// Repository defines persistence for device bindings. Counter updates are
// atomic in-database increments so concurrent attempts never lose events;
// the score itself is last-write-wins.
type Repository interface {
	GetByFingerprint(ctx context.Context, fingerprint string) (*domain.DeviceBinding, error)
	Create(ctx context.Context, b *domain.DeviceBinding) error
	// RecordMismatch increments the mismatch counter and decays the trust
	// score by penalty, floored at MinTrust. Returns the updated binding.
	RecordMismatch(ctx context.Context, fingerprint string, penalty int) (*domain.DeviceBinding, error)
	// RecordCleanCheckIn recovers the trust score by recovery, capped at
	// MaxTrust, and touches last_seen_at. Returns the updated binding.
	RecordCleanCheckIn(ctx context.Context, fingerprint string, recovery int) (*domain.DeviceBinding, error)
	// IncrementMultiDevice increments the multi-device counter.
	IncrementMultiDevice(ctx context.Context, fingerprint string) error
}
