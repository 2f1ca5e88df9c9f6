package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"attendance-control-plane/internal/instructor/domain"
)

// PostgresRepository persists instructor accounts in Postgres.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository returns an instructor repository that uses the given db for persistence.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type instructorRow struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	Name         string    `db:"name"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r *instructorRow) model() *domain.Instructor {
	return &domain.Instructor{
		ID:           r.ID,
		Email:        r.Email,
		Name:         r.Name,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
	}
}

// GetByID returns the instructor for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Instructor, error) {
	var row instructorRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, email, name, password_hash, created_at FROM instructors WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.model(), nil
}

// GetByEmail returns the instructor for email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Instructor, error) {
	var row instructorRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, email, name, password_hash, created_at FROM instructors WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.model(), nil
}

// Create persists the instructor. The instructor must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, i *domain.Instructor) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO instructors (id, email, name, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		i.ID, i.Email, i.Name, i.PasswordHash, i.CreatedAt)
	return err
}
