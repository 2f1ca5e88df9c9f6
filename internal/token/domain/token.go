package domain

import "time"

// RotatingToken is one check-in token epoch for a session. At most one
// token per session is valid at any instant: issuing a new epoch supersedes
// the previous one, and each nonce is consumable exactly once.
type RotatingToken struct {
	ID           string
	SessionID    string
	Nonce        string
	Signature    string
	IssuedAt     time.Time
	ExpiresAt    time.Time
	ConsumedAt   *time.Time // nil until the nonce is spent
	SupersededAt *time.Time // nil while this is the current epoch
	CreatedAt    time.Time
}

// Valid reports whether the token is the current epoch and unexpired as of
// now. Expiry is boundary-inclusive: now == ExpiresAt still passes.
func (t *RotatingToken) Valid(now time.Time) bool {
	return t != nil && t.SupersededAt == nil && !now.After(t.ExpiresAt)
}
