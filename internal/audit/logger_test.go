package audit

import (
	"context"
	"errors"
	"testing"

	"attendance-control-plane/internal/audit/domain"
	auditrepo "attendance-control-plane/internal/audit/repository"
)

type mockAuditRepo struct {
	created []*domain.AuditEvent
	err     error
}

var _ auditrepo.Repository = (*mockAuditRepo)(nil)

func (m *mockAuditRepo) Create(ctx context.Context, e *domain.AuditEvent) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, e)
	return nil
}

func (m *mockAuditRepo) ListBySubject(ctx context.Context, subjectID string, eventTypes []string, limit, offset int32) ([]*domain.AuditEvent, error) {
	return nil, nil
}

func (m *mockAuditRepo) ListBySession(ctx context.Context, sessionID string, limit, offset int32) ([]*domain.AuditEvent, error) {
	return nil, nil
}

func TestLogger_Record(t *testing.T) {
	repo := &mockAuditRepo{}
	l := NewLogger(repo, func(context.Context) string { return "10.0.0.7" })

	err := l.Record(context.Background(), EventCheckInPresent, "student-1", "sess-1", `{"distance":12.5}`)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 event, got %d", len(repo.created))
	}
	e := repo.created[0]
	if e.ID == "" {
		t.Error("event ID not set")
	}
	if e.EventType != EventCheckInPresent || e.SubjectID != "student-1" || e.SessionID != "sess-1" {
		t.Errorf("unexpected event: %+v", e)
	}
	if e.Origin != "10.0.0.7" {
		t.Errorf("origin = %q, want extractor value", e.Origin)
	}
	if e.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestLogger_RecordPropagatesRepoError(t *testing.T) {
	repo := &mockAuditRepo{err: errors.New("insert failed")}
	l := NewLogger(repo, nil)

	if err := l.Record(context.Background(), EventCheckInRejected, "student-1", "sess-1", ""); err == nil {
		t.Fatal("expected error from repo")
	}
}

func TestLogger_NilOriginExtractor(t *testing.T) {
	repo := &mockAuditRepo{}
	l := NewLogger(repo, nil)

	if err := l.Record(context.Background(), EventLoginSuccess, "instr-1", "", ""); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if repo.created[0].Origin != "unknown" {
		t.Errorf("origin = %q, want unknown", repo.created[0].Origin)
	}
}

func TestLogger_LogEventSwallowsErrors(t *testing.T) {
	repo := &mockAuditRepo{err: errors.New("db down")}
	l := NewLogger(repo, nil)

	// Must not panic or propagate.
	l.LogEvent(context.Background(), EventSessionEnded, "sess-1", "sess-1", "")
}

func TestLogger_LogEventNilRepo(t *testing.T) {
	l := NewLogger(nil, nil)
	l.LogEvent(context.Background(), EventSessionEnded, "sess-1", "sess-1", "")
}
