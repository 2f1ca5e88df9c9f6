package session

import (
	"context"
	"testing"
	"time"

	"attendance-control-plane/internal/audit"
	"attendance-control-plane/internal/session/domain"
	"attendance-control-plane/internal/session/repository"
	tokendomain "attendance-control-plane/internal/token/domain"
)

type mockSessionRepo struct {
	sessions map[string]*domain.Session
}

var _ repository.Repository = (*mockSessionRepo)(nil)

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: map[string]*domain.Session{}}
}

func (m *mockSessionRepo) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *mockSessionRepo) Create(ctx context.Context, s *domain.Session) error {
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *mockSessionRepo) ListActive(ctx context.Context) ([]*domain.Session, error) {
	var out []*domain.Session
	for _, s := range m.sessions {
		if s.State == domain.StateActive {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockSessionRepo) Activate(ctx context.Context, id string, startsAt, endsAt time.Time) (bool, error) {
	s, ok := m.sessions[id]
	if !ok || s.State != domain.StateScheduled {
		return false, nil
	}
	s.State = domain.StateActive
	s.StartsAt = &startsAt
	s.EndsAt = &endsAt
	return true, nil
}

func (m *mockSessionRepo) End(ctx context.Context, id string) (bool, error) {
	s, ok := m.sessions[id]
	if !ok || s.State != domain.StateActive {
		return false, nil
	}
	s.State = domain.StateEnded
	return true, nil
}

func (m *mockSessionRepo) ExpireDue(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	for id, s := range m.sessions {
		if s.State == domain.StateActive && s.EndsAt != nil && s.EndsAt.Before(now) {
			s.State = domain.StateEnded
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *mockSessionRepo) UpdateGeofence(ctx context.Context, id string, lat, lng, radiusM float64) (bool, error) {
	s, ok := m.sessions[id]
	if !ok || s.State != domain.StateActive {
		return false, nil
	}
	s.Lat, s.Lng, s.RadiusM = lat, lng, radiusM
	return true, nil
}

type mockIssuer struct {
	current     map[string]*tokendomain.RotatingToken
	issued      int
	invalidated int
}

func newMockIssuer() *mockIssuer {
	return &mockIssuer{current: map[string]*tokendomain.RotatingToken{}}
}

func (m *mockIssuer) Issue(ctx context.Context, sess *domain.Session) (*tokendomain.RotatingToken, error) {
	m.issued++
	t := &tokendomain.RotatingToken{
		SessionID: sess.ID,
		IssuedAt:  time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(sess.RotationInterval),
	}
	m.current[sess.ID] = t
	return t, nil
}

func (m *mockIssuer) Current(ctx context.Context, sessionID string) (*tokendomain.RotatingToken, error) {
	return m.current[sessionID], nil
}

func (m *mockIssuer) Invalidate(ctx context.Context, sessionID string) error {
	m.invalidated++
	delete(m.current, sessionID)
	return nil
}

type recordedEvent struct {
	eventType string
	subjectID string
	sessionID string
}

type mockRecorder struct {
	events []recordedEvent
}

var _ audit.Recorder = (*mockRecorder)(nil)

func (m *mockRecorder) Record(ctx context.Context, eventType, subjectID, sessionID, metadata string) error {
	m.events = append(m.events, recordedEvent{eventType, subjectID, sessionID})
	return nil
}

func (m *mockRecorder) LogEvent(ctx context.Context, eventType, subjectID, sessionID, metadata string) {
	_ = m.Record(ctx, eventType, subjectID, sessionID, metadata)
}

func (m *mockRecorder) count(eventType string) int {
	n := 0
	for _, e := range m.events {
		if e.eventType == eventType {
			n++
		}
	}
	return n
}

func testDefaults() Defaults {
	return Defaults{
		RotationInterval: 30 * time.Second,
		Duration:         time.Hour,
		LateAfter:        15 * time.Minute,
	}
}

func newTestManager() (*Manager, *mockSessionRepo, *mockIssuer, *mockRecorder) {
	repo := newMockSessionRepo()
	issuer := newMockIssuer()
	rec := &mockRecorder{}
	return NewManager(repo, issuer, rec, testDefaults()), repo, issuer, rec
}

func TestManager_CreateAppliesDefaults(t *testing.T) {
	m, repo, _, _ := newTestManager()

	s, err := m.Create(context.Background(), CreateParams{
		CourseID: "cs101", InstructorID: "instr-1",
		Lat: 28.6139, Lng: 77.2090, RadiusM: 50,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.State != domain.StateScheduled {
		t.Errorf("state = %s, want scheduled", s.State)
	}
	if s.RotationInterval != 30*time.Second || s.LateAfter != 15*time.Minute {
		t.Errorf("defaults not applied: %+v", s)
	}
	if repo.sessions[s.ID] == nil {
		t.Error("session not persisted")
	}
}

func TestManager_CreateRejectsBadRadius(t *testing.T) {
	m, _, _, _ := newTestManager()
	if _, err := m.Create(context.Background(), CreateParams{InstructorID: "i", RadiusM: 0}); err == nil {
		t.Fatal("expected error for zero radius")
	}
}

func TestManager_StartActivatesAndIssues(t *testing.T) {
	m, _, issuer, rec := newTestManager()
	s, _ := m.Create(context.Background(), CreateParams{InstructorID: "instr-1", RadiusM: 50})

	started, tok, err := m.Start(context.Background(), s.ID, "instr-1", time.Hour)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if started.State != domain.StateActive {
		t.Errorf("state = %s, want active", started.State)
	}
	if started.StartsAt == nil || started.EndsAt == nil {
		t.Fatal("time window not fixed")
	}
	if got := started.EndsAt.Sub(*started.StartsAt); got != time.Hour {
		t.Errorf("window = %v, want 1h", got)
	}
	if tok == nil {
		t.Fatal("no token issued")
	}
	if issuer.issued != 1 {
		t.Errorf("issued = %d, want 1", issuer.issued)
	}
	if rec.count(audit.EventSessionStarted) != 1 {
		t.Errorf("session_started events = %d, want 1", rec.count(audit.EventSessionStarted))
	}
}

func TestManager_StartTwiceIsIdempotent(t *testing.T) {
	m, _, issuer, rec := newTestManager()
	s, _ := m.Create(context.Background(), CreateParams{InstructorID: "instr-1", RadiusM: 50})

	if _, _, err := m.Start(context.Background(), s.ID, "instr-1", time.Hour); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	_, tok, err := m.Start(context.Background(), s.ID, "instr-1", time.Hour)
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if tok == nil {
		t.Error("second Start should report the current token")
	}
	if issuer.issued != 1 {
		t.Errorf("issued = %d, want 1 (no re-issue on second start)", issuer.issued)
	}
	if rec.count(audit.EventSessionStarted) != 1 {
		t.Errorf("session_started events = %d, want 1", rec.count(audit.EventSessionStarted))
	}
}

func TestManager_StartByNonOwner(t *testing.T) {
	m, _, _, _ := newTestManager()
	s, _ := m.Create(context.Background(), CreateParams{InstructorID: "instr-1", RadiusM: 50})

	if _, _, err := m.Start(context.Background(), s.ID, "instr-2", 0); err != ErrNotOwner {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}
}

func TestManager_StartUnknownSession(t *testing.T) {
	m, _, _, _ := newTestManager()
	if _, _, err := m.Start(context.Background(), "nope", "instr-1", 0); err != ErrSessionNotFound {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestManager_StopIsIdempotentAndAuditsOnce(t *testing.T) {
	m, _, issuer, rec := newTestManager()
	s, _ := m.Create(context.Background(), CreateParams{InstructorID: "instr-1", RadiusM: 50})
	_, _, _ = m.Start(context.Background(), s.ID, "instr-1", time.Hour)

	if err := m.Stop(context.Background(), s.ID, "instr-1"); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	if err := m.Stop(context.Background(), s.ID, "instr-1"); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if got := rec.count(audit.EventSessionEnded); got != 1 {
		t.Errorf("session_ended events = %d, want exactly 1", got)
	}
	if issuer.invalidated != 1 {
		t.Errorf("invalidated = %d, want 1", issuer.invalidated)
	}
}

func TestManager_StopByNonOwner(t *testing.T) {
	m, _, _, _ := newTestManager()
	s, _ := m.Create(context.Background(), CreateParams{InstructorID: "instr-1", RadiusM: 50})
	_, _, _ = m.Start(context.Background(), s.ID, "instr-1", time.Hour)

	if err := m.Stop(context.Background(), s.ID, "instr-2"); err != ErrNotOwner {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}
}

func TestManager_UpdateGeofence(t *testing.T) {
	m, repo, _, _ := newTestManager()
	s, _ := m.Create(context.Background(), CreateParams{InstructorID: "instr-1", RadiusM: 50})

	// Not active yet.
	if err := m.UpdateGeofence(context.Background(), s.ID, "instr-1", 1, 2, 75); err != ErrNotActive {
		t.Fatalf("err = %v, want ErrNotActive", err)
	}

	_, _, _ = m.Start(context.Background(), s.ID, "instr-1", time.Hour)
	if err := m.UpdateGeofence(context.Background(), s.ID, "instr-1", 1, 2, 75); err != nil {
		t.Fatalf("UpdateGeofence: %v", err)
	}
	got := repo.sessions[s.ID]
	if got.Lat != 1 || got.Lng != 2 || got.RadiusM != 75 {
		t.Errorf("geofence not updated: %+v", got)
	}
}

func TestManager_RefreshTokenRequiresActive(t *testing.T) {
	m, _, issuer, _ := newTestManager()
	s, _ := m.Create(context.Background(), CreateParams{InstructorID: "instr-1", RadiusM: 50})

	if _, err := m.RefreshToken(context.Background(), s.ID, "instr-1"); err != ErrNotActive {
		t.Fatalf("err = %v, want ErrNotActive", err)
	}

	_, _, _ = m.Start(context.Background(), s.ID, "instr-1", time.Hour)
	if _, err := m.RefreshToken(context.Background(), s.ID, "instr-1"); err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	if issuer.issued != 2 {
		t.Errorf("issued = %d, want 2", issuer.issued)
	}
}

func TestManager_CurrentTokenRotatesLapsed(t *testing.T) {
	m, _, issuer, _ := newTestManager()
	s, _ := m.Create(context.Background(), CreateParams{InstructorID: "instr-1", RadiusM: 50})
	_, _, _ = m.Start(context.Background(), s.ID, "instr-1", time.Hour)

	// Fresh token: no rotation.
	if _, err := m.CurrentToken(context.Background(), s.ID); err != nil {
		t.Fatalf("CurrentToken: %v", err)
	}
	if issuer.issued != 1 {
		t.Errorf("issued = %d, want 1", issuer.issued)
	}

	// Lapse the stored token; the next poll rotates.
	issuer.current[s.ID].ExpiresAt = time.Now().UTC().Add(-time.Second)
	tok, err := m.CurrentToken(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("CurrentToken after lapse: %v", err)
	}
	if issuer.issued != 2 {
		t.Errorf("issued = %d, want 2", issuer.issued)
	}
	if !tok.Valid(time.Now().UTC()) {
		t.Error("rotated token should be valid")
	}
}

func TestManager_RotateDueSkipsFresh(t *testing.T) {
	m, _, issuer, _ := newTestManager()
	a, _ := m.Create(context.Background(), CreateParams{InstructorID: "instr-1", RadiusM: 50})
	b, _ := m.Create(context.Background(), CreateParams{InstructorID: "instr-1", RadiusM: 50})
	_, _, _ = m.Start(context.Background(), a.ID, "instr-1", time.Hour)
	_, _, _ = m.Start(context.Background(), b.ID, "instr-1", time.Hour)

	issuer.current[a.ID].ExpiresAt = time.Now().UTC().Add(-time.Second)
	if err := m.RotateDue(context.Background()); err != nil {
		t.Fatalf("RotateDue: %v", err)
	}
	// Two initial issues plus one rotation for the lapsed session.
	if issuer.issued != 3 {
		t.Errorf("issued = %d, want 3", issuer.issued)
	}
}

func TestManager_RotateDueSkipsElapsedWindow(t *testing.T) {
	m, repo, issuer, _ := newTestManager()
	s, _ := m.Create(context.Background(), CreateParams{InstructorID: "instr-1", RadiusM: 50})
	_, _, _ = m.Start(context.Background(), s.ID, "instr-1", time.Hour)

	// Session past its window with a lapsed token: rotation leaves it alone
	// for the expiry sweep instead of issuing a fresh token.
	past := time.Now().UTC().Add(-time.Minute)
	repo.sessions[s.ID].EndsAt = &past
	issuer.current[s.ID].ExpiresAt = time.Now().UTC().Add(-time.Second)

	if err := m.RotateDue(context.Background()); err != nil {
		t.Fatalf("RotateDue: %v", err)
	}
	if issuer.issued != 1 {
		t.Errorf("issued = %d, want 1 (no rotation after window elapsed)", issuer.issued)
	}
}

func TestManager_ExpireSweep(t *testing.T) {
	m, repo, issuer, rec := newTestManager()
	s, _ := m.Create(context.Background(), CreateParams{InstructorID: "instr-1", RadiusM: 50})
	_, _, _ = m.Start(context.Background(), s.ID, "instr-1", time.Hour)

	past := time.Now().UTC().Add(-time.Minute)
	repo.sessions[s.ID].EndsAt = &past

	n, err := m.ExpireSweep(context.Background())
	if err != nil {
		t.Fatalf("ExpireSweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expired = %d, want 1", n)
	}
	if repo.sessions[s.ID].State != domain.StateEnded {
		t.Error("session not ended")
	}
	if issuer.invalidated != 1 {
		t.Errorf("invalidated = %d, want 1", issuer.invalidated)
	}
	if rec.count(audit.EventSessionEnded) != 1 {
		t.Errorf("session_ended events = %d, want 1", rec.count(audit.EventSessionEnded))
	}

	// Second sweep is a no-op.
	n, err = m.ExpireSweep(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("second sweep: n=%d err=%v, want 0/nil", n, err)
	}
	if rec.count(audit.EventSessionEnded) != 1 {
		t.Error("duplicate session_ended audit event after second sweep")
	}
}
