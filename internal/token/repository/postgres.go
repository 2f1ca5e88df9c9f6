package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"attendance-control-plane/internal/token/domain"
)

// PostgresRepository persists rotating tokens in Postgres.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository returns a token repository that uses the given db for persistence.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type tokenRow struct {
	ID           string       `db:"id"`
	SessionID    string       `db:"session_id"`
	Nonce        string       `db:"nonce"`
	Signature    string       `db:"signature"`
	IssuedAt     time.Time    `db:"issued_at"`
	ExpiresAt    time.Time    `db:"expires_at"`
	ConsumedAt   sql.NullTime `db:"consumed_at"`
	SupersededAt sql.NullTime `db:"superseded_at"`
	CreatedAt    time.Time    `db:"created_at"`
}

func (r *tokenRow) model() *domain.RotatingToken {
	t := &domain.RotatingToken{
		ID:        r.ID,
		SessionID: r.SessionID,
		Nonce:     r.Nonce,
		Signature: r.Signature,
		IssuedAt:  r.IssuedAt,
		ExpiresAt: r.ExpiresAt,
		CreatedAt: r.CreatedAt,
	}
	if r.ConsumedAt.Valid {
		at := r.ConsumedAt.Time
		t.ConsumedAt = &at
	}
	if r.SupersededAt.Valid {
		at := r.SupersededAt.Time
		t.SupersededAt = &at
	}
	return t
}

const tokenColumns = `id, session_id, nonce, signature, issued_at, expires_at, consumed_at, superseded_at, created_at`

// Create persists the token. The token must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.RotatingToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO rotating_tokens (id, session_id, nonce, signature, issued_at, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.SessionID, t.Nonce, t.Signature, t.IssuedAt, t.ExpiresAt, t.CreatedAt)
	return err
}

// GetCurrent returns the latest non-superseded token for the session, or nil.
func (r *PostgresRepository) GetCurrent(ctx context.Context, sessionID string) (*domain.RotatingToken, error) {
	var row tokenRow
	err := r.db.GetContext(ctx, &row, `
		SELECT `+tokenColumns+` FROM rotating_tokens
		WHERE session_id = $1 AND superseded_at IS NULL
		ORDER BY issued_at DESC LIMIT 1`, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.model(), nil
}

// GetBySessionAndNonce returns the token issued for (sessionID, nonce), or nil.
func (r *PostgresRepository) GetBySessionAndNonce(ctx context.Context, sessionID, nonce string) (*domain.RotatingToken, error) {
	var row tokenRow
	err := r.db.GetContext(ctx, &row, `
		SELECT `+tokenColumns+` FROM rotating_tokens
		WHERE session_id = $1 AND nonce = $2`, sessionID, nonce)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.model(), nil
}

// ConsumeNonce marks the nonce spent via a conditional UPDATE; the row guard
// makes it a single atomic compare-and-set, so exactly one caller wins.
func (r *PostgresRepository) ConsumeNonce(ctx context.Context, sessionID, nonce string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE rotating_tokens SET consumed_at = now()
		WHERE session_id = $1 AND nonce = $2 AND consumed_at IS NULL`, sessionID, nonce)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// SupersedeCurrent invalidates the session's current token epoch, if any.
func (r *PostgresRepository) SupersedeCurrent(ctx context.Context, sessionID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE rotating_tokens SET superseded_at = $2
		WHERE session_id = $1 AND superseded_at IS NULL`, sessionID, at)
	return err
}
