package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"attendance-control-plane/internal/audit"
	checkindomain "attendance-control-plane/internal/checkin/domain"
	checkinrepo "attendance-control-plane/internal/checkin/repository"
	sessiondomain "attendance-control-plane/internal/session/domain"
)

// Sentinel errors for the review queue; the handler maps them to HTTP codes.
var (
	ErrAttemptNotFound = errors.New("attempt not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrNotOwner        = errors.New("session belongs to another instructor")
	ErrNotPending      = errors.New("attempt is not pending review")
	ErrWrongSession    = errors.New("attempt belongs to another session")
)

// SessionGetter is the minimal session repository needed for owner checks.
type SessionGetter interface {
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
}

// ItemResult is the per-attempt outcome of a bulk review action.
type ItemResult struct {
	AttemptID string `json:"attemptId"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
}

// Service promotes or demotes PENDING_REVIEW attempts. Only the session's
// owning instructor may act on its queue.
type Service struct {
	attempts checkinrepo.Repository
	sessions SessionGetter
	auditor  audit.Recorder
	nowF     func() time.Time
}

// NewService returns a review queue service.
func NewService(attempts checkinrepo.Repository, sessions SessionGetter, auditor audit.Recorder) *Service {
	return &Service{
		attempts: attempts,
		sessions: sessions,
		auditor:  auditor,
		nowF:     func() time.Time { return time.Now().UTC() },
	}
}

// ListPending returns the session's review queue, oldest first.
func (s *Service) ListPending(ctx context.Context, sessionID, instructorID string) ([]*checkindomain.CheckInAttempt, error) {
	if err := s.authorize(ctx, sessionID, instructorID); err != nil {
		return nil, err
	}
	return s.attempts.ListPendingBySession(ctx, sessionID)
}

// AcceptOne promotes a pending attempt to PRESENT and audits the decision.
func (s *Service) AcceptOne(ctx context.Context, sessionID, attemptID, instructorID, note string) error {
	return s.decideOne(ctx, sessionID, attemptID, instructorID, note, checkindomain.VerdictPresent)
}

// RejectOne demotes a pending attempt to REJECTED (counts as absent) and
// audits the decision.
func (s *Service) RejectOne(ctx context.Context, sessionID, attemptID, instructorID, reason string) error {
	return s.decideOne(ctx, sessionID, attemptID, instructorID, reason, checkindomain.VerdictRejected)
}

// AcceptAll promotes every pending attempt in the session. Decisions are
// applied per item; one item's failure does not roll back the others.
func (s *Service) AcceptAll(ctx context.Context, sessionID, instructorID, note string) ([]ItemResult, error) {
	return s.decideAll(ctx, sessionID, instructorID, note, checkindomain.VerdictPresent)
}

// RejectAll demotes every pending attempt in the session, per item.
func (s *Service) RejectAll(ctx context.Context, sessionID, instructorID, reason string) ([]ItemResult, error) {
	return s.decideAll(ctx, sessionID, instructorID, reason, checkindomain.VerdictRejected)
}

func (s *Service) authorize(ctx context.Context, sessionID, instructorID string) error {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess == nil {
		return ErrSessionNotFound
	}
	if sess.InstructorID != instructorID {
		return ErrNotOwner
	}
	return nil
}

func (s *Service) decideOne(ctx context.Context, sessionID, attemptID, instructorID, note, verdict string) error {
	if err := s.authorize(ctx, sessionID, instructorID); err != nil {
		return err
	}
	a, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return err
	}
	if a == nil {
		return ErrAttemptNotFound
	}
	if a.SessionID != sessionID {
		return ErrWrongSession
	}
	return s.apply(ctx, a, instructorID, note, verdict)
}

func (s *Service) decideAll(ctx context.Context, sessionID, instructorID, note, verdict string) ([]ItemResult, error) {
	if err := s.authorize(ctx, sessionID, instructorID); err != nil {
		return nil, err
	}
	pending, err := s.attempts.ListPendingBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	results := make([]ItemResult, 0, len(pending))
	for _, a := range pending {
		if err := s.apply(ctx, a, instructorID, note, verdict); err != nil {
			results = append(results, ItemResult{AttemptID: a.ID, Error: err.Error()})
			continue
		}
		results = append(results, ItemResult{AttemptID: a.ID, OK: true})
	}
	return results, nil
}

// apply finalizes one attempt and writes the decision's audit event. The
// conditional update means a concurrently-decided attempt is reported as not
// pending rather than double-audited.
func (s *Service) apply(ctx context.Context, a *checkindomain.CheckInAttempt, instructorID, note, verdict string) error {
	updated, err := s.attempts.UpdateReview(ctx, a.ID, verdict, note, instructorID, s.nowF())
	if err != nil {
		return err
	}
	if !updated {
		return ErrNotPending
	}
	event := audit.EventReviewAccepted
	if verdict == checkindomain.VerdictRejected {
		event = audit.EventReviewRejected
	}
	return s.auditor.Record(ctx, event, a.StudentID, a.SessionID,
		fmt.Sprintf(`{"attemptId":%q,"reviewer":%q,"note":%q}`, a.ID, instructorID, note))
}
