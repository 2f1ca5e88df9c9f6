package engine

import (
	"context"

	devicedomain "attendance-control-plane/internal/device/domain"
	sessiondomain "attendance-control-plane/internal/session/domain"
)

// CheckInResult holds the policy disposition for one check-in attempt.
type CheckInResult struct {
	// RejectOnDeviceMismatch rejects a device-mismatch attempt outright
	// instead of allowing it with the flag.
	RejectOnDeviceMismatch bool
	// ReviewOutsideGeofence routes out-of-fence attempts to the review queue
	// rather than auto-rejecting them.
	ReviewOutsideGeofence bool
}

// Evaluator evaluates check-in disposition policies using OPA or other engines.
type Evaluator interface {
	// EvaluateCheckIn evaluates course and session policy for the given
	// attempt context. binding may be nil for a first-seen fingerprint.
	EvaluateCheckIn(
		ctx context.Context,
		session *sessiondomain.Session,
		binding *devicedomain.DeviceBinding,
	) (CheckInResult, error)
}
