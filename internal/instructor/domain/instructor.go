package domain

import "time"

// Instructor is an account that can run sessions and work review queues.
type Instructor struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}
