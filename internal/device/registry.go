// Package device binds device fingerprints to student identities and
// maintains a decaying trust score per binding. The fingerprint is a
// loosely-stable client-computed signal, never cryptographic proof; callers
// must combine its flags with a second independent signal before hard
// rejecting.
package device

import (
	"context"
	"time"

	"github.com/google/uuid"

	"attendance-control-plane/internal/device/domain"
	devicerepo "attendance-control-plane/internal/device/repository"
)

// AttemptCounter counts a student's recent successful check-ins from other
// fingerprints, for the multipleDevices signal.
type AttemptCounter interface {
	CountRecentFingerprints(ctx context.Context, studentID, excludeFingerprint string, since time.Time) (int, error)
}

// Config holds trust tuning for the registry.
type Config struct {
	// Penalty is the trust decrement per mismatch event.
	Penalty int
	// Recovery is the bounded trust increment per clean owner check-in.
	Recovery int
	// Floor marks a binding suspicious when its score falls below it.
	Floor int
	// MultiDeviceWindow is the rolling window for the multipleDevices signal.
	MultiDeviceWindow time.Duration
}

// DefaultConfig mirrors the production defaults.
func DefaultConfig() Config {
	return Config{Penalty: 15, Recovery: 2, Floor: 50, MultiDeviceWindow: 10 * time.Minute}
}

// Assessment is the device signal bundle for one check-in attempt.
type Assessment struct {
	Binding         *domain.DeviceBinding
	Mismatch        bool
	LowTrust        bool
	MultipleDevices bool
}

// Registry resolves fingerprints to bindings and applies trust decay/recovery.
type Registry struct {
	repo     devicerepo.Repository
	attempts AttemptCounter
	cfg      Config
	nowF     func() time.Time
}

// NewRegistry returns a Registry over repo, using attempts for the
// multi-device window query.
func NewRegistry(repo devicerepo.Repository, attempts AttemptCounter, cfg Config) *Registry {
	if cfg.Penalty <= 0 {
		cfg.Penalty = 15
	}
	if cfg.Recovery <= 0 {
		cfg.Recovery = 2
	}
	if cfg.Floor <= 0 {
		cfg.Floor = 50
	}
	if cfg.MultiDeviceWindow <= 0 {
		cfg.MultiDeviceWindow = 10 * time.Minute
	}
	return &Registry{
		repo:     repo,
		attempts: attempts,
		cfg:      cfg,
		nowF:     func() time.Time { return time.Now().UTC() },
	}
}

// Assess looks up or binds the fingerprint and returns the device signals
// for the attempt. A first-seen fingerprint binds to the submitting student
// at full trust. A different student on a bound fingerprint records a
// mismatch and never transfers ownership.
func (r *Registry) Assess(ctx context.Context, fingerprint, studentID string) (Assessment, error) {
	b, err := r.repo.GetByFingerprint(ctx, fingerprint)
	if err != nil {
		return Assessment{}, err
	}

	var a Assessment
	now := r.nowF()
	if b == nil {
		b = &domain.DeviceBinding{
			ID:          uuid.New().String(),
			Fingerprint: fingerprint,
			StudentID:   studentID,
			TrustScore:  domain.MaxTrust,
			LastSeenAt:  &now,
			CreatedAt:   now,
		}
		if err := r.repo.Create(ctx, b); err != nil {
			return Assessment{}, err
		}
	} else if !b.OwnedBy(studentID) {
		updated, err := r.repo.RecordMismatch(ctx, fingerprint, r.cfg.Penalty)
		if err != nil {
			return Assessment{}, err
		}
		if updated != nil {
			b = updated
		}
		a.Mismatch = true
	}

	a.Binding = b
	a.LowTrust = b.TrustScore < r.cfg.Floor

	n, err := r.attempts.CountRecentFingerprints(ctx, studentID, fingerprint, now.Add(-r.cfg.MultiDeviceWindow))
	if err != nil {
		return Assessment{}, err
	}
	if n > 0 {
		a.MultipleDevices = true
		if err := r.repo.IncrementMultiDevice(ctx, fingerprint); err != nil {
			return Assessment{}, err
		}
	}
	return a, nil
}

// RecordSuccess applies bounded trust recovery after a clean check-in by the
// binding's owner. No-op for non-owners.
func (r *Registry) RecordSuccess(ctx context.Context, fingerprint, studentID string) error {
	b, err := r.repo.GetByFingerprint(ctx, fingerprint)
	if err != nil {
		return err
	}
	if !b.OwnedBy(studentID) {
		return nil
	}
	_, err = r.repo.RecordCleanCheckIn(ctx, fingerprint, r.cfg.Recovery)
	return err
}
