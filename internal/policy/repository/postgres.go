package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// PostgresRepository reads course policies from Postgres.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository returns a policy repository that uses the given db.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ListEnabledByCourse returns the enabled Rego policy sources for a course,
// oldest first.
func (r *PostgresRepository) ListEnabledByCourse(ctx context.Context, courseID string) ([]string, error) {
	var out []string
	err := r.db.SelectContext(ctx, &out, `
		SELECT rego FROM course_policies
		WHERE course_id = $1 AND enabled ORDER BY created_at`, courseID)
	if err != nil {
		return nil, err
	}
	return out, nil
}
