package checkin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"attendance-control-plane/internal/audit"
	"attendance-control-plane/internal/checkin/domain"
	checkinrepo "attendance-control-plane/internal/checkin/repository"
	"attendance-control-plane/internal/device"
	devicedomain "attendance-control-plane/internal/device/domain"
	"attendance-control-plane/internal/geofence"
	"attendance-control-plane/internal/policy/engine"
	sessiondomain "attendance-control-plane/internal/session/domain"
	"attendance-control-plane/internal/suspicion"
	"attendance-control-plane/internal/token"
)

// Sentinel errors for the check-in service; the handler maps them to HTTP codes.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrValidation      = errors.New("invalid check-in request")
)

// SessionGetter is the minimal session repository needed by the check-in service.
type SessionGetter interface {
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
}

// TokenValidator authenticates and consumes rotating tokens.
type TokenValidator interface {
	Validate(ctx context.Context, sessionID, signature, nonce string, claimedAt time.Time) (token.Result, error)
}

// DeviceAssessor resolves fingerprints and applies trust decay/recovery.
type DeviceAssessor interface {
	Assess(ctx context.Context, fingerprint, studentID string) (device.Assessment, error)
	RecordSuccess(ctx context.Context, fingerprint, studentID string) error
}

// Request is one check-in submission. Altitude, heading, and speed are
// accepted from clients but carry no weight in the verdict.
type Request struct {
	SessionID   string
	StudentID   string
	Signature   string
	Nonce       string
	ClaimedAt   time.Time
	Lat         float64
	Lng         float64
	AccuracyM   float64
	Fingerprint string
	DeviceType  string
	Browser     string
	OS          string
}

// Response is what the submitting client sees.
type Response struct {
	Verdict       string   `json:"verdict"`
	Distance      float64  `json:"distance"`
	AllowedRadius float64  `json:"allowedRadius"`
	Flags         []string `json:"flags"`
	Message       string   `json:"message"`
}

// Service runs the verification pipeline for one submission: token, geofence,
// device trust, policy disposition, suspicion rules, persistence, audit.
type Service struct {
	sessions SessionGetter
	tokens   TokenValidator
	devices  DeviceAssessor
	policies engine.Evaluator
	repo     checkinrepo.Repository
	auditor  audit.Recorder
	verdicts metric.Int64Counter
	nowF     func() time.Time
}

// NewService returns a check-in service with the given collaborators.
func NewService(
	sessions SessionGetter,
	tokens TokenValidator,
	devices DeviceAssessor,
	policies engine.Evaluator,
	repo checkinrepo.Repository,
	auditor audit.Recorder,
) *Service {
	verdicts, err := otel.Meter("attendance-control-plane/checkin").Int64Counter(
		"checkin.verdicts",
		metric.WithDescription("Check-in attempts by final verdict"),
	)
	if err != nil {
		log.Printf("checkin: failed to create verdict counter: %v", err)
	}
	return &Service{
		sessions: sessions,
		tokens:   tokens,
		devices:  devices,
		policies: policies,
		repo:     repo,
		auditor:  auditor,
		verdicts: verdicts,
		nowF:     func() time.Time { return time.Now().UTC() },
	}
}

// Submit processes one check-in. The verdict and its flags are audited before
// the response is returned; a failed token check produces only the audit
// entry, never an attempt row.
func (s *Service) Submit(ctx context.Context, req Request) (*Response, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	sess, err := s.sessions.GetByID(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}

	tokenRes, err := s.tokens.Validate(ctx, req.SessionID, req.Signature, req.Nonce, req.ClaimedAt)
	if err != nil {
		return nil, err
	}
	if !tokenRes.OK {
		return s.rejectInvalidToken(ctx, req, sess, tokenRes.Reason)
	}

	fence := geofence.Evaluate(sess.Lat, sess.Lng, sess.RadiusM, req.Lat, req.Lng)

	assessment, err := s.devices.Assess(ctx, req.Fingerprint, req.StudentID)
	if err != nil {
		return nil, err
	}

	disposition, err := s.policies.EvaluateCheckIn(ctx, sess, assessment.Binding)
	if err != nil {
		return nil, err
	}

	now := s.nowF()
	late := false
	if deadline, ok := sess.LateDeadline(); ok {
		late = now.After(deadline)
	}

	outcome := suspicion.Evaluate(suspicion.Input{
		WithinRadius:          fence.WithinRadius,
		Late:                  late,
		DeviceMismatch:        assessment.Mismatch,
		RejectOnMismatch:      disposition.RejectOnDeviceMismatch,
		RejectOutsideGeofence: !disposition.ReviewOutsideGeofence,
		LowTrust:              assessment.LowTrust,
		MultipleDevices:       assessment.MultipleDevices,
	})
	flags := suspicion.FlagStrings(outcome.Flags)

	trustScore := devicedomain.MaxTrust
	if assessment.Binding != nil {
		trustScore = assessment.Binding.TrustScore
	}
	attempt := &domain.CheckInAttempt{
		ID:          uuid.New().String(),
		SessionID:   req.SessionID,
		StudentID:   req.StudentID,
		Lat:         req.Lat,
		Lng:         req.Lng,
		AccuracyM:   req.AccuracyM,
		DistanceM:   fence.DistanceM,
		Fingerprint: req.Fingerprint,
		TrustScore:  trustScore,
		Flags:       flags,
		Verdict:     string(outcome.Verdict),
		CreatedAt:   now,
	}
	if err := s.repo.Create(ctx, attempt); err != nil {
		return nil, err
	}

	if !assessment.Mismatch &&
		(outcome.Verdict == suspicion.VerdictPresent || outcome.Verdict == suspicion.VerdictLate) {
		if err := s.devices.RecordSuccess(ctx, req.Fingerprint, req.StudentID); err != nil {
			log.Printf("checkin: trust recovery failed for %s: %v", req.StudentID, err)
		}
	}

	if assessment.Mismatch {
		mismatchMeta, _ := json.Marshal(map[string]string{
			"fingerprint": req.Fingerprint,
			"deviceType":  req.DeviceType,
			"browser":     req.Browser,
			"os":          req.OS,
		})
		s.auditor.LogEvent(ctx, audit.EventDeviceMismatch, req.StudentID, req.SessionID, string(mismatchMeta))
	}

	meta, _ := json.Marshal(map[string]interface{}{
		"attemptId": attempt.ID,
		"distance":  fence.DistanceM,
		"flags":     flags,
	})
	if err := s.auditor.Record(ctx, verdictEvent(outcome.Verdict), req.StudentID, req.SessionID, string(meta)); err != nil {
		return nil, err
	}

	s.count(ctx, string(outcome.Verdict))
	return &Response{
		Verdict:       string(outcome.Verdict),
		Distance:      fence.DistanceM,
		AllowedRadius: sess.RadiusM,
		Flags:         flags,
		Message:       verdictMessage(outcome.Verdict),
	}, nil
}

func (s *Service) rejectInvalidToken(ctx context.Context, req Request, sess *sessiondomain.Session, reason token.FailReason) (*Response, error) {
	err := s.auditor.Record(ctx, audit.EventTokenInvalid, req.StudentID, req.SessionID,
		fmt.Sprintf(`{"reason":%q}`, string(reason)))
	if err != nil {
		return nil, err
	}
	s.count(ctx, domain.VerdictRejected)
	return &Response{
		Verdict:       domain.VerdictRejected,
		AllowedRadius: sess.RadiusM,
		Flags:         []string{},
		Message:       tokenFailMessage(reason),
	}, nil
}

func (s *Service) count(ctx context.Context, verdict string) {
	if s.verdicts == nil {
		return
	}
	s.verdicts.Add(ctx, 1, metric.WithAttributes(attribute.String("verdict", verdict)))
}

func validate(req Request) error {
	switch {
	case req.SessionID == "":
		return fmt.Errorf("%w: missing session id", ErrValidation)
	case req.StudentID == "":
		return fmt.Errorf("%w: missing student id", ErrValidation)
	case req.Signature == "" || req.Nonce == "":
		return fmt.Errorf("%w: missing token", ErrValidation)
	case req.Fingerprint == "":
		return fmt.Errorf("%w: missing device fingerprint", ErrValidation)
	case req.Lat < -90 || req.Lat > 90 || req.Lng < -180 || req.Lng > 180:
		return fmt.Errorf("%w: location out of range", ErrValidation)
	}
	return nil
}

func verdictEvent(v suspicion.Verdict) string {
	switch v {
	case suspicion.VerdictPresent:
		return audit.EventCheckInPresent
	case suspicion.VerdictLate:
		return audit.EventCheckInLate
	case suspicion.VerdictSuspicious:
		return audit.EventCheckInSuspicious
	case suspicion.VerdictPendingReview:
		return audit.EventCheckInPendingReview
	default:
		return audit.EventCheckInRejected
	}
}

func verdictMessage(v suspicion.Verdict) string {
	switch v {
	case suspicion.VerdictPresent:
		return "attendance recorded"
	case suspicion.VerdictLate:
		return "attendance recorded as late"
	case suspicion.VerdictSuspicious:
		return "attendance recorded and flagged for verification"
	case suspicion.VerdictPendingReview:
		return "attempt held for instructor review"
	default:
		return "check-in rejected"
	}
}

func tokenFailMessage(reason token.FailReason) string {
	switch reason {
	case token.ReasonExpired:
		return "token expired, scan the current code and retry"
	case token.ReasonNonceReused:
		return "token already used, scan the current code and retry"
	case token.ReasonSessionNotActive:
		return "session is not accepting check-ins"
	default:
		return "token could not be verified"
	}
}
