package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"attendance-control-plane/internal/device/domain"
)

// PostgresRepository persists device bindings in Postgres.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository returns a device binding repository that uses the given db for persistence.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type bindingRow struct {
	ID               string       `db:"id"`
	Fingerprint      string       `db:"fingerprint"`
	StudentID        string       `db:"student_id"`
	TrustScore       int          `db:"trust_score"`
	MismatchCount    int          `db:"mismatch_count"`
	MultiDeviceCount int          `db:"multi_device_count"`
	LastSeenAt       sql.NullTime `db:"last_seen_at"`
	CreatedAt        time.Time    `db:"created_at"`
}

func (r *bindingRow) model() *domain.DeviceBinding {
	b := &domain.DeviceBinding{
		ID:               r.ID,
		Fingerprint:      r.Fingerprint,
		StudentID:        r.StudentID,
		TrustScore:       r.TrustScore,
		MismatchCount:    r.MismatchCount,
		MultiDeviceCount: r.MultiDeviceCount,
		CreatedAt:        r.CreatedAt,
	}
	if r.LastSeenAt.Valid {
		t := r.LastSeenAt.Time
		b.LastSeenAt = &t
	}
	return b
}

const bindingColumns = `id, fingerprint, student_id, trust_score, mismatch_count, multi_device_count, last_seen_at, created_at`

// GetByFingerprint returns the binding for fingerprint, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.DeviceBinding, error) {
	var row bindingRow
	err := r.db.GetContext(ctx, &row, `
		SELECT `+bindingColumns+` FROM device_bindings WHERE fingerprint = $1`, fingerprint)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.model(), nil
}

// Create persists the binding. The binding must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, b *domain.DeviceBinding) error {
	var lastSeen interface{}
	if b.LastSeenAt != nil {
		lastSeen = *b.LastSeenAt
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO device_bindings (id, fingerprint, student_id, trust_score, mismatch_count, multi_device_count, last_seen_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		b.ID, b.Fingerprint, b.StudentID, b.TrustScore, b.MismatchCount, b.MultiDeviceCount, lastSeen, b.CreatedAt)
	return err
}

// RecordMismatch decays trust and bumps the mismatch counter in one atomic
// UPDATE so concurrent attempts never lose an increment.
func (r *PostgresRepository) RecordMismatch(ctx context.Context, fingerprint string, penalty int) (*domain.DeviceBinding, error) {
	var row bindingRow
	err := r.db.GetContext(ctx, &row, `
		UPDATE device_bindings
		SET mismatch_count = mismatch_count + 1,
		    trust_score = GREATEST($2, trust_score - $3),
		    last_seen_at = now()
		WHERE fingerprint = $1
		RETURNING `+bindingColumns, fingerprint, domain.MinTrust, penalty)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.model(), nil
}

// RecordCleanCheckIn recovers trust by a bounded increment, capped at MaxTrust.
func (r *PostgresRepository) RecordCleanCheckIn(ctx context.Context, fingerprint string, recovery int) (*domain.DeviceBinding, error) {
	var row bindingRow
	err := r.db.GetContext(ctx, &row, `
		UPDATE device_bindings
		SET trust_score = LEAST($2, trust_score + $3),
		    last_seen_at = now()
		WHERE fingerprint = $1
		RETURNING `+bindingColumns, fingerprint, domain.MaxTrust, recovery)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.model(), nil
}

// IncrementMultiDevice increments the multi-device counter.
func (r *PostgresRepository) IncrementMultiDevice(ctx context.Context, fingerprint string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE device_bindings SET multi_device_count = multi_device_count + 1
		WHERE fingerprint = $1`, fingerprint)
	return err
}
