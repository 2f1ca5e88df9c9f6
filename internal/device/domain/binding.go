package domain

import "time"

// TrustScore bounds.
const (
	MinTrust = 0
	MaxTrust = 100
)

// DeviceBinding ties a device fingerprint to the student who first checked
// in with it. Bindings are never deleted; trust only decays and recovers.
type DeviceBinding struct {
	ID          string
	Fingerprint string
	StudentID   string
	TrustScore  int
	// MismatchCount counts attempts by other students against this binding.
	MismatchCount int
	// MultiDeviceCount counts times this binding took part in a multi-device signal.
	MultiDeviceCount int
	LastSeenAt       *time.Time
	CreatedAt        time.Time
}

// OwnedBy reports whether studentID owns this binding.
func (b *DeviceBinding) OwnedBy(studentID string) bool {
	return b != nil && b.StudentID == studentID
}
