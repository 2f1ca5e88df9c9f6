package domain

import "time"

// Verdict values for a finalized attempt.
const (
	VerdictPresent       = "PRESENT"
	VerdictLate          = "LATE"
	VerdictSuspicious    = "SUSPICIOUS"
	VerdictPendingReview = "PENDING_REVIEW"
	VerdictRejected      = "REJECTED"
)

// CheckInAttempt is one student's attempt against a session. Immutable once
// finalized, except the reviewer fields when promoted out of the review queue.
type CheckInAttempt struct {
	ID          string
	SessionID   string
	StudentID   string
	Lat         float64
	Lng         float64
	AccuracyM   float64
	DistanceM   float64
	Fingerprint string
	// TrustScore is the binding's score at submission time.
	TrustScore int
	Flags      []string
	Verdict    string
	ReviewNote string
	ReviewedBy string
	ReviewedAt *time.Time
	CreatedAt  time.Time
}
