// Package token issues and authenticates rotating, signed, single-use
// check-in tokens.
package token

import (
	"context"
	"time"

	"github.com/google/uuid"

	"attendance-control-plane/internal/security"
	sessiondomain "attendance-control-plane/internal/session/domain"
	"attendance-control-plane/internal/token/domain"
	tokenrepo "attendance-control-plane/internal/token/repository"
)

// FailReason classifies a failed validation.
type FailReason string

const (
	ReasonExpired           FailReason = "expired"
	ReasonSignatureMismatch FailReason = "signature-mismatch"
	ReasonNonceReused       FailReason = "nonce-reused"
	ReasonSessionNotActive  FailReason = "session-not-active"
)

// Result is the outcome of a token validation.
type Result struct {
	OK     bool
	Reason FailReason
}

func pass() Result { return Result{OK: true} }

func fail(r FailReason) Result { return Result{Reason: r} }

// SessionGetter is the minimal session lookup needed by the validator.
type SessionGetter interface {
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
}

// Service issues and validates rotating tokens for sessions.
type Service struct {
	repo     tokenrepo.Repository
	sessions SessionGetter
	signer   *security.TokenSigner
	nowF     func() time.Time
}

// NewService returns a token Service backed by repo, resolving sessions via
// sessions and signing with signer.
func NewService(repo tokenrepo.Repository, sessions SessionGetter, signer *security.TokenSigner) *Service {
	return &Service{
		repo:     repo,
		sessions: sessions,
		signer:   signer,
		nowF:     func() time.Time { return time.Now().UTC() },
	}
}

// Issue mints a new token epoch for the session and supersedes the previous
// one, keeping at most one valid token per session. Called at session start,
// on each rotation tick, and on manual force-refresh.
func (s *Service) Issue(ctx context.Context, sess *sessiondomain.Session) (*domain.RotatingToken, error) {
	now := s.nowF()
	nonce, err := security.GenerateNonce()
	if err != nil {
		return nil, err
	}
	if err := s.repo.SupersedeCurrent(ctx, sess.ID, now); err != nil {
		return nil, err
	}
	t := &domain.RotatingToken{
		ID:        uuid.New().String(),
		SessionID: sess.ID,
		Nonce:     nonce,
		Signature: s.signer.Sign(sess.ID, nonce, now),
		IssuedAt:  now,
		ExpiresAt: now.Add(sess.RotationInterval),
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Current returns the session's current token epoch, or nil.
func (s *Service) Current(ctx context.Context, sessionID string) (*domain.RotatingToken, error) {
	return s.repo.GetCurrent(ctx, sessionID)
}

// Invalidate supersedes the session's current token without issuing a new
// one. Used when a session stops or expires.
func (s *Service) Invalidate(ctx context.Context, sessionID string) error {
	return s.repo.SupersedeCurrent(ctx, sessionID, s.nowF())
}

// Validate authenticates a presented token. Validity is evaluated against
// wall-clock time at validation, not generation; claimedAt is what the client
// believes the token's issue time to be and is not trusted for validity.
// The nonce is spent only after every other check passes, so a failed attempt
// does not burn the epoch for honest resubmission.
func (s *Service) Validate(ctx context.Context, sessionID, signature, nonce string, claimedAt time.Time) (Result, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return Result{}, err
	}
	if sess == nil || !sess.IsActive() {
		return fail(ReasonSessionNotActive), nil
	}

	t, err := s.repo.GetBySessionAndNonce(ctx, sessionID, nonce)
	if err != nil {
		return Result{}, err
	}
	if t == nil {
		// Nonce was never issued for this session; the signature cannot
		// correspond to any server-minted token.
		return fail(ReasonSignatureMismatch), nil
	}
	if !s.signer.Verify(sessionID, nonce, t.IssuedAt, signature) {
		return fail(ReasonSignatureMismatch), nil
	}
	if !t.Valid(s.nowF()) {
		return fail(ReasonExpired), nil
	}

	ok, err := s.repo.ConsumeNonce(ctx, sessionID, nonce)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return fail(ReasonNonceReused), nil
	}
	return pass(), nil
}
