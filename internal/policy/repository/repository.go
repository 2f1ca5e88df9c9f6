package repository

import "context"

// Repository defines persistence for course-level check-in policies.
type Repository interface {
	// ListEnabledByCourse returns the enabled Rego policy sources for a course.
	ListEnabledByCourse(ctx context.Context, courseID string) ([]string, error)
}
