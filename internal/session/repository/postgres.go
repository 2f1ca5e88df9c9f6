package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"attendance-control-plane/internal/session/domain"
)

// PostgresRepository persists sessions in Postgres.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type sessionRow struct {
	ID                 string       `db:"id"`
	CourseID           string       `db:"course_id"`
	InstructorID       string       `db:"instructor_id"`
	Lat                float64      `db:"lat"`
	Lng                float64      `db:"lng"`
	RadiusM            float64      `db:"radius_m"`
	StartsAt           sql.NullTime `db:"starts_at"`
	EndsAt             sql.NullTime `db:"ends_at"`
	RotationIntervalMS int64        `db:"rotation_interval_ms"`
	LateAfterMS        int64        `db:"late_after_ms"`
	SecurityLevel      string       `db:"security_level"`
	State              string       `db:"state"`
	CreatedAt          time.Time    `db:"created_at"`
}

func (r *sessionRow) model() *domain.Session {
	s := &domain.Session{
		ID:               r.ID,
		CourseID:         r.CourseID,
		InstructorID:     r.InstructorID,
		Lat:              r.Lat,
		Lng:              r.Lng,
		RadiusM:          r.RadiusM,
		RotationInterval: time.Duration(r.RotationIntervalMS) * time.Millisecond,
		LateAfter:        time.Duration(r.LateAfterMS) * time.Millisecond,
		SecurityLevel:    domain.SecurityLevel(r.SecurityLevel),
		State:            domain.State(r.State),
		CreatedAt:        r.CreatedAt,
	}
	if r.StartsAt.Valid {
		t := r.StartsAt.Time
		s.StartsAt = &t
	}
	if r.EndsAt.Valid {
		t := r.EndsAt.Time
		s.EndsAt = &t
	}
	return s
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	var row sessionRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, course_id, instructor_id, lat, lng, radius_m, starts_at, ends_at,
		       rotation_interval_ms, late_after_ms, security_level, state, created_at
		FROM sessions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.model(), nil
}

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	var startsAt, endsAt interface{}
	if s.StartsAt != nil {
		startsAt = *s.StartsAt
	}
	if s.EndsAt != nil {
		endsAt = *s.EndsAt
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, course_id, instructor_id, lat, lng, radius_m, starts_at, ends_at,
		                      rotation_interval_ms, late_after_ms, security_level, state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		s.ID, s.CourseID, s.InstructorID, s.Lat, s.Lng, s.RadiusM, startsAt, endsAt,
		s.RotationInterval.Milliseconds(), s.LateAfter.Milliseconds(),
		string(s.SecurityLevel), string(s.State), s.CreatedAt)
	return err
}

// ListActive returns all sessions currently in the active state.
func (r *PostgresRepository) ListActive(ctx context.Context) ([]*domain.Session, error) {
	var rows []sessionRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, course_id, instructor_id, lat, lng, radius_m, starts_at, ends_at,
		       rotation_interval_ms, late_after_ms, security_level, state, created_at
		FROM sessions WHERE state = 'active' ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Session, len(rows))
	for i := range rows {
		out[i] = rows[i].model()
	}
	return out, nil
}

// Activate transitions a scheduled session to active. The conditional UPDATE
// makes concurrent starts race-safe: only one caller sees true.
func (r *PostgresRepository) Activate(ctx context.Context, id string, startsAt, endsAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET state = 'active', starts_at = $2, ends_at = $3
		WHERE id = $1 AND state = 'scheduled'`, id, startsAt, endsAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// End transitions an active session to ended. Only one of two concurrent
// callers observes true; the other sees the terminal state.
func (r *PostgresRepository) End(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET state = 'ended' WHERE id = $1 AND state = 'active'`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ExpireDue ends every active session whose window elapsed before now.
func (r *PostgresRepository) ExpireDue(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `
		UPDATE sessions SET state = 'ended'
		WHERE state = 'active' AND ends_at IS NOT NULL AND ends_at < $1
		RETURNING id`, now)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// UpdateGeofence replaces the geofence center/radius of an active session.
func (r *PostgresRepository) UpdateGeofence(ctx context.Context, id string, lat, lng, radiusM float64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET lat = $2, lng = $3, radius_m = $4
		WHERE id = $1 AND state = 'active'`, id, lat, lng, radiusM)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
