package domain

import "time"

// State is the lifecycle state of a class session. Transitions are one-way:
// scheduled -> active -> ended.
type State string

const (
	StateScheduled State = "scheduled"
	StateActive    State = "active"
	StateEnded     State = "ended"
)

// SecurityLevel controls how strictly device conflicts are handled for a session.
type SecurityLevel string

const (
	SecurityStandard SecurityLevel = "standard"
	SecurityElevated SecurityLevel = "elevated"
)

// Session represents one class session with its geofence and check-in window.
type Session struct {
	ID           string
	CourseID     string
	InstructorID string
	Lat          float64
	Lng          float64
	RadiusM      float64
	StartsAt     *time.Time // nil until started
	EndsAt       *time.Time // nil until started
	// RotationInterval is the token rotation cadence; fixed at start.
	RotationInterval time.Duration
	// LateAfter is the late threshold measured from StartsAt.
	LateAfter     time.Duration
	SecurityLevel SecurityLevel
	State         State
	CreatedAt     time.Time
}

// IsActive reports whether the session accepts check-ins.
func (s *Session) IsActive() bool {
	return s != nil && s.State == StateActive
}

// LateDeadline returns the instant after which a check-in counts as LATE,
// and false if the session has not started.
func (s *Session) LateDeadline() (time.Time, bool) {
	if s == nil || s.StartsAt == nil {
		return time.Time{}, false
	}
	return s.StartsAt.Add(s.LateAfter), true
}

// Due reports whether the session's window has elapsed as of now.
func (s *Session) Due(now time.Time) bool {
	return s != nil && s.EndsAt != nil && now.After(*s.EndsAt)
}
