package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"attendance-control-plane/internal/checkin/domain"
)

// PostgresRepository persists check-in attempts in Postgres.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository returns an attempt repository that uses the given db for persistence.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const attemptColumns = `id, session_id, student_id, lat, lng, accuracy_m, distance_m,
	fingerprint, trust_score, flags, verdict, review_note, reviewed_by, reviewed_at, created_at`

type attemptRow struct {
	ID          string       `db:"id"`
	SessionID   string       `db:"session_id"`
	StudentID   string       `db:"student_id"`
	Lat         float64      `db:"lat"`
	Lng         float64      `db:"lng"`
	AccuracyM   float64      `db:"accuracy_m"`
	DistanceM   float64      `db:"distance_m"`
	Fingerprint string       `db:"fingerprint"`
	TrustScore  int          `db:"trust_score"`
	Flags       string       `db:"flags"`
	Verdict     string       `db:"verdict"`
	ReviewNote  string       `db:"review_note"`
	ReviewedBy  string       `db:"reviewed_by"`
	ReviewedAt  sql.NullTime `db:"reviewed_at"`
	CreatedAt   time.Time    `db:"created_at"`
}

func (r *attemptRow) model() *domain.CheckInAttempt {
	a := &domain.CheckInAttempt{
		ID:          r.ID,
		SessionID:   r.SessionID,
		StudentID:   r.StudentID,
		Lat:         r.Lat,
		Lng:         r.Lng,
		AccuracyM:   r.AccuracyM,
		DistanceM:   r.DistanceM,
		Fingerprint: r.Fingerprint,
		TrustScore:  r.TrustScore,
		Verdict:     r.Verdict,
		ReviewNote:  r.ReviewNote,
		ReviewedBy:  r.ReviewedBy,
		CreatedAt:   r.CreatedAt,
	}
	if r.Flags != "" {
		a.Flags = strings.Split(r.Flags, ",")
	}
	if r.ReviewedAt.Valid {
		t := r.ReviewedAt.Time
		a.ReviewedAt = &t
	}
	return a
}

// Create persists the attempt. The attempt must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.CheckInAttempt) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO checkin_attempts (id, session_id, student_id, lat, lng, accuracy_m, distance_m,
		                              fingerprint, trust_score, flags, verdict, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.SessionID, a.StudentID, a.Lat, a.Lng, a.AccuracyM, a.DistanceM,
		a.Fingerprint, a.TrustScore, strings.Join(a.Flags, ","), a.Verdict, a.CreatedAt)
	return err
}

// GetByID returns the attempt for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.CheckInAttempt, error) {
	var row attemptRow
	err := r.db.GetContext(ctx, &row, `
		SELECT `+attemptColumns+` FROM checkin_attempts WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.model(), nil
}

// ListPendingBySession returns the session's PENDING_REVIEW attempts, oldest first.
func (r *PostgresRepository) ListPendingBySession(ctx context.Context, sessionID string) ([]*domain.CheckInAttempt, error) {
	var rows []attemptRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+attemptColumns+` FROM checkin_attempts
		WHERE session_id = $1 AND verdict = $2
		ORDER BY created_at`, sessionID, domain.VerdictPendingReview)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.CheckInAttempt, len(rows))
	for i := range rows {
		out[i] = rows[i].model()
	}
	return out, nil
}

// UpdateReview finalizes a pending attempt. The conditional UPDATE makes
// concurrent reviews race-safe: only one reviewer sees true.
func (r *PostgresRepository) UpdateReview(ctx context.Context, id, verdict, note, reviewedBy string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE checkin_attempts
		SET verdict = $2, review_note = $3, reviewed_by = $4, reviewed_at = $5
		WHERE id = $1 AND verdict = $6`,
		id, verdict, note, reviewedBy, at, domain.VerdictPendingReview)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// CountRecentFingerprints counts distinct other fingerprints the student
// succeeded from since the given instant.
func (r *PostgresRepository) CountRecentFingerprints(ctx context.Context, studentID, excludeFingerprint string, since time.Time) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `
		SELECT COUNT(DISTINCT fingerprint) FROM checkin_attempts
		WHERE student_id = $1 AND fingerprint <> $2 AND created_at >= $3
		  AND verdict IN ($4, $5, $6)`,
		studentID, excludeFingerprint, since,
		domain.VerdictPresent, domain.VerdictLate, domain.VerdictSuspicious)
	if err != nil {
		return 0, err
	}
	return n, nil
}
