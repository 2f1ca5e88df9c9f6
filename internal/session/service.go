package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"attendance-control-plane/internal/audit"
	"attendance-control-plane/internal/session/domain"
	"attendance-control-plane/internal/session/repository"
	tokendomain "attendance-control-plane/internal/token/domain"
)

// Sentinel errors for the session lifecycle; the handler maps them to HTTP codes.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotOwner        = errors.New("session belongs to another instructor")
	ErrSessionEnded    = errors.New("session has ended")
	ErrNotActive       = errors.New("session is not active")
)

// TokenIssuer is the minimal token service needed by the lifecycle manager.
type TokenIssuer interface {
	Issue(ctx context.Context, sess *domain.Session) (*tokendomain.RotatingToken, error)
	Current(ctx context.Context, sessionID string) (*tokendomain.RotatingToken, error)
	Invalidate(ctx context.Context, sessionID string) error
}

// Defaults fill in session parameters the instructor did not set.
type Defaults struct {
	RotationInterval time.Duration
	Duration         time.Duration
	LateAfter        time.Duration
}

// CreateParams describe a new scheduled session.
type CreateParams struct {
	CourseID         string
	InstructorID     string
	Lat              float64
	Lng              float64
	RadiusM          float64
	RotationInterval time.Duration
	LateAfter        time.Duration
	SecurityLevel    domain.SecurityLevel
}

// Manager owns session state transitions and the token rotation cadence.
type Manager struct {
	repo     repository.Repository
	tokens   TokenIssuer
	auditor  audit.Recorder
	defaults Defaults
	nowF     func() time.Time
}

// NewManager returns a session lifecycle manager.
func NewManager(repo repository.Repository, tokens TokenIssuer, auditor audit.Recorder, defaults Defaults) *Manager {
	return &Manager{
		repo:     repo,
		tokens:   tokens,
		auditor:  auditor,
		defaults: defaults,
		nowF:     func() time.Time { return time.Now().UTC() },
	}
}

// Create persists a new session in the scheduled state. Unset durations take
// the configured defaults; the geofence center and radius are required.
func (m *Manager) Create(ctx context.Context, p CreateParams) (*domain.Session, error) {
	if p.RadiusM <= 0 {
		return nil, errors.New("geofence radius must be positive")
	}
	if p.RotationInterval <= 0 {
		p.RotationInterval = m.defaults.RotationInterval
	}
	if p.LateAfter <= 0 {
		p.LateAfter = m.defaults.LateAfter
	}
	if p.SecurityLevel == "" {
		p.SecurityLevel = domain.SecurityStandard
	}
	s := &domain.Session{
		ID:               uuid.New().String(),
		CourseID:         p.CourseID,
		InstructorID:     p.InstructorID,
		Lat:              p.Lat,
		Lng:              p.Lng,
		RadiusM:          p.RadiusM,
		RotationInterval: p.RotationInterval,
		LateAfter:        p.LateAfter,
		SecurityLevel:    p.SecurityLevel,
		State:            domain.StateScheduled,
		CreatedAt:        m.nowF(),
	}
	// The window duration is applied at Start, which fixes starts_at/ends_at.
	if err := m.repo.Create(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the session for id, or ErrSessionNotFound.
func (m *Manager) Get(ctx context.Context, id string) (*domain.Session, error) {
	s, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Start activates a scheduled session: fixes the time window, issues the
// first rotating token, and audits the transition. Starting an already-active
// session returns the current state and token without a second audit event.
func (m *Manager) Start(ctx context.Context, id, instructorID string, duration time.Duration) (*domain.Session, *tokendomain.RotatingToken, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if s.InstructorID != instructorID {
		return nil, nil, ErrNotOwner
	}
	if s.State == domain.StateEnded {
		return nil, nil, ErrSessionEnded
	}
	if duration <= 0 {
		duration = m.defaults.Duration
	}

	now := m.nowF()
	endsAt := now.Add(duration)
	activated, err := m.repo.Activate(ctx, id, now, endsAt)
	if err != nil {
		return nil, nil, err
	}
	if !activated {
		// Lost the race or already active: report the stored state.
		s, err = m.Get(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if s.State != domain.StateActive {
			return nil, nil, ErrSessionEnded
		}
		t, err := m.tokens.Current(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		return s, t, nil
	}

	s.State = domain.StateActive
	s.StartsAt = &now
	s.EndsAt = &endsAt
	t, err := m.tokens.Issue(ctx, s)
	if err != nil {
		return nil, nil, err
	}
	m.auditor.LogEvent(ctx, audit.EventSessionStarted, instructorID, id,
		fmt.Sprintf(`{"endsAt":%d,"rotationIntervalMs":%d}`, endsAt.UnixMilli(), s.RotationInterval.Milliseconds()))
	return s, t, nil
}

// Stop ends an active session, invalidates its current token, and audits the
// transition. Idempotent: stopping an ended or never-started session is a
// no-op and produces no duplicate audit event.
func (m *Manager) Stop(ctx context.Context, id, instructorID string) error {
	s, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	if s.InstructorID != instructorID {
		return ErrNotOwner
	}
	ended, err := m.repo.End(ctx, id)
	if err != nil {
		return err
	}
	if !ended {
		return nil
	}
	if err := m.tokens.Invalidate(ctx, id); err != nil {
		log.Printf("session: failed to invalidate token for %s: %v", id, err)
	}
	m.auditor.LogEvent(ctx, audit.EventSessionEnded, instructorID, id, `{"reason":"manual"}`)
	return nil
}

// UpdateGeofence replaces the geofence center and radius of an active session.
func (m *Manager) UpdateGeofence(ctx context.Context, id, instructorID string, lat, lng, radiusM float64) error {
	if radiusM <= 0 {
		return errors.New("geofence radius must be positive")
	}
	s, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	if s.InstructorID != instructorID {
		return ErrNotOwner
	}
	updated, err := m.repo.UpdateGeofence(ctx, id, lat, lng, radiusM)
	if err != nil {
		return err
	}
	if !updated {
		return ErrNotActive
	}
	m.auditor.LogEvent(ctx, audit.EventGeofenceUpdated, instructorID, id,
		fmt.Sprintf(`{"lat":%g,"lng":%g,"radiusM":%g}`, lat, lng, radiusM))
	return nil
}

// RefreshToken force-rotates the session's token: the prior token is
// invalidated immediately and a fresh one issued.
func (m *Manager) RefreshToken(ctx context.Context, id, instructorID string) (*tokendomain.RotatingToken, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.InstructorID != instructorID {
		return nil, ErrNotOwner
	}
	if !s.IsActive() {
		return nil, ErrNotActive
	}
	return m.tokens.Issue(ctx, s)
}

// CurrentToken returns the session's live token for QR display, rotating it
// first if the stored one has lapsed. Presenters poll this; validity is
// decided by wall-clock comparison against the stored record, so multiple
// server processes agree without coordination.
func (m *Manager) CurrentToken(ctx context.Context, id string) (*tokendomain.RotatingToken, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.IsActive() {
		return nil, ErrNotActive
	}
	t, err := m.tokens.Current(ctx, id)
	if err != nil {
		return nil, err
	}
	if t != nil && t.Valid(m.nowF()) {
		return t, nil
	}
	return m.tokens.Issue(ctx, s)
}

// RotateDue issues fresh tokens for every active session whose current token
// has lapsed. Called from the rotation loop.
func (m *Manager) RotateDue(ctx context.Context) error {
	active, err := m.repo.ListActive(ctx)
	if err != nil {
		return err
	}
	now := m.nowF()
	for _, s := range active {
		// A session past its window gets no fresh token; the expiry sweep
		// will end it.
		if s.Due(now) {
			continue
		}
		t, err := m.tokens.Current(ctx, s.ID)
		if err != nil {
			log.Printf("session: rotation lookup failed for %s: %v", s.ID, err)
			continue
		}
		if t != nil && t.Valid(now) {
			continue
		}
		if _, err := m.tokens.Issue(ctx, s); err != nil {
			log.Printf("session: rotation issue failed for %s: %v", s.ID, err)
		}
	}
	return nil
}

// ExpireSweep ends every active session whose window has elapsed. Each
// expired session gets its token invalidated and exactly one audit event.
func (m *Manager) ExpireSweep(ctx context.Context) (int, error) {
	ids, err := m.repo.ExpireDue(ctx, m.nowF())
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := m.tokens.Invalidate(ctx, id); err != nil {
			log.Printf("session: failed to invalidate token for expired %s: %v", id, err)
		}
		m.auditor.LogEvent(ctx, audit.EventSessionEnded, id, id, `{"reason":"expired"}`)
	}
	return len(ids), nil
}

// RunRotation polls for due rotations every tick until ctx is cancelled.
func (m *Manager) RunRotation(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.RotateDue(ctx); err != nil {
				log.Printf("session: rotation sweep failed: %v", err)
			}
		}
	}
}

// RunExpiry runs the expiry sweep every tick until ctx is cancelled.
func (m *Manager) RunExpiry(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.ExpireSweep(ctx); err != nil {
				log.Printf("session: expiry sweep failed: %v", err)
			}
		}
	}
}
