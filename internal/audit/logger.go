package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"attendance-control-plane/internal/audit/domain"
	auditrepo "attendance-control-plane/internal/audit/repository"
)

// OriginExtractor returns the request origin (client IP) from the request context.
type OriginExtractor func(context.Context) string

// Recorder writes audit events. Record is synchronous and returns persistence
// errors; the check-in path uses it so no verdict is handed out unaudited.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type Recorder interface {
	Record(ctx context.Context, eventType, subjectID, sessionID, metadata string) error
	LogEvent(ctx context.Context, eventType, subjectID, sessionID, metadata string)
}

// EventEmitter forwards audit events to an external sink (OTel log records).
// Emission is best-effort and never blocks the audit write.
type EventEmitter interface {
	Emit(ctx context.Context, e *domain.AuditEvent) error
}

// Logger implements Recorder using the audit repository and an optional
// origin extractor.
type Logger struct {
	repo            auditrepo.Repository
	originExtractor OriginExtractor
	emitter         EventEmitter
}

// NewLogger returns a Recorder that persists to repo and uses originExtractor
// for the client origin. originExtractor may be nil; then origin is recorded
// as "unknown".
func NewLogger(repo auditrepo.Repository, originExtractor OriginExtractor) *Logger {
	return &Logger{repo: repo, originExtractor: originExtractor}
}

// WithEmitter also forwards every recorded event to emitter.
func (l *Logger) WithEmitter(e EventEmitter) *Logger {
	l.emitter = e
	return l
}

// Record appends one audit event and returns any persistence error.
func (l *Logger) Record(ctx context.Context, eventType, subjectID, sessionID, metadata string) error {
	origin := "unknown"
	if l.originExtractor != nil {
		origin = l.originExtractor(ctx)
	}
	e := &domain.AuditEvent{
		ID:        uuid.New().String(),
		EventType: eventType,
		SubjectID: subjectID,
		SessionID: sessionID,
		Metadata:  metadata,
		Origin:    origin,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, e); err != nil {
		return err
	}
	if l.emitter != nil {
		if err := l.emitter.Emit(ctx, e); err != nil {
			log.Printf("audit: failed to emit event %s: %v", eventType, err)
		}
	}
	return nil
}

// LogEvent appends one audit event. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, eventType, subjectID, sessionID, metadata string) {
	if l.repo == nil {
		return
	}
	if err := l.Record(ctx, eventType, subjectID, sessionID, metadata); err != nil {
		log.Printf("audit: failed to log event %s for %s: %v", eventType, subjectID, err)
	}
}
