package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"time"
)

// TokenSigner produces and verifies the keyed hash carried by rotating
// check-in tokens. The signature covers sessionID, nonce, and issuedAt
// (unix millis) under a server-held secret; clients can neither mint nor
// alter tokens without it.
type TokenSigner struct {
	secret []byte
}

// NewTokenSigner returns a TokenSigner keyed with secret. secret must not be empty.
func NewTokenSigner(secret string) *TokenSigner {
	return &TokenSigner{secret: []byte(secret)}
}

// Sign returns the hex-encoded HMAC-SHA256 over sessionID, nonce, and issuedAt.
func (s *TokenSigner) Sign(sessionID, nonce string, issuedAt time.Time) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(sessionID))
	mac.Write([]byte{0})
	mac.Write([]byte(nonce))
	mac.Write([]byte{0})
	mac.Write([]byte(strconv.FormatInt(issuedAt.UnixMilli(), 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches Sign(sessionID, nonce, issuedAt)
// using a constant-time comparison.
func (s *TokenSigner) Verify(sessionID, nonce string, issuedAt time.Time, signature string) bool {
	want := s.Sign(sessionID, nonce, issuedAt)
	return subtle.ConstantTimeCompare([]byte(want), []byte(signature)) == 1
}

// GenerateNonce returns a 128-bit random hex string for single-use token nonces.
func GenerateNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
