package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"attendance-control-plane/internal/audit/domain"
)

// PostgresRepository persists audit events in Postgres.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository returns an audit repository that uses the given db for persistence.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type eventRow struct {
	ID        string    `db:"id"`
	EventType string    `db:"event_type"`
	SubjectID string    `db:"subject_id"`
	SessionID string    `db:"session_id"`
	Metadata  string    `db:"metadata"`
	Origin    string    `db:"origin"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *eventRow) model() *domain.AuditEvent {
	return &domain.AuditEvent{
		ID:        r.ID,
		EventType: r.EventType,
		SubjectID: r.SubjectID,
		SessionID: r.SessionID,
		Metadata:  r.Metadata,
		Origin:    r.Origin,
		CreatedAt: r.CreatedAt,
	}
}

// Create appends one audit event. The event must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.AuditEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, event_type, subject_id, session_id, metadata, origin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.EventType, e.SubjectID, e.SessionID, e.Metadata, e.Origin, e.CreatedAt)
	return err
}

// ListBySubject returns the subject's events newest first, optionally
// narrowed to eventTypes, paginated by limit and offset.
func (r *PostgresRepository) ListBySubject(ctx context.Context, subjectID string, eventTypes []string, limit, offset int32) ([]*domain.AuditEvent, error) {
	query := `
		SELECT id, event_type, subject_id, session_id, metadata, origin, created_at
		FROM audit_events WHERE subject_id = ?`
	args := []interface{}{subjectID}
	if len(eventTypes) > 0 {
		q, inArgs, err := sqlx.In(` AND event_type IN (?)`, eventTypes)
		if err != nil {
			return nil, err
		}
		query += q
		args = append(args, inArgs...)
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	var rows []eventRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	out := make([]*domain.AuditEvent, len(rows))
	for i := range rows {
		out[i] = rows[i].model()
	}
	return out, nil
}

// ListBySession returns a session's events newest first, paginated by limit and offset.
func (r *PostgresRepository) ListBySession(ctx context.Context, sessionID string, limit, offset int32) ([]*domain.AuditEvent, error) {
	var rows []eventRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, event_type, subject_id, session_id, metadata, origin, created_at
		FROM audit_events WHERE session_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, sessionID, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.AuditEvent, len(rows))
	for i := range rows {
		out[i] = rows[i].model()
	}
	return out, nil
}
