// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev instructor (dev@example.edu) already exists.
package main

import (
	"context"
	"log"
	"time"

	"attendance-control-plane/internal/config"
	"attendance-control-plane/internal/db"
	"attendance-control-plane/internal/security"
)

const (
	devInstructorEmail = "dev@example.edu"
	devPassword        = "password123"
	devInstructorID    = "dev-instructor-001"
	devSessionID       = "dev-session-001"
	devPolicyID        = "dev-policy-001"
	devCourseID        = "cs101"
)

// strictMismatchPolicy rejects mismatches from heavily conflicted devices
// even on standard-security sessions.
const strictMismatchPolicy = `package attendance.checkin

default reject_on_device_mismatch = false
default review_outside_geofence = true

reject_on_device_mismatch if {
	input.device.mismatch_count > 3
}
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()

	var existing int
	if err := conn.GetContext(ctx, &existing,
		`SELECT COUNT(*) FROM instructors WHERE email = $1`, devInstructorEmail); err != nil {
		log.Fatalf("seed: check existing: %v", err)
	}
	if existing > 0 {
		log.Println("seed: dev instructor already present, nothing to do")
		return
	}

	hash, err := security.NewHasher(cfg.BcryptCost).Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("seed: hash password: %v", err)
	}
	now := time.Now().UTC()

	_, err = conn.ExecContext(ctx, `
		INSERT INTO instructors (id, email, name, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		devInstructorID, devInstructorEmail, "Dev Instructor", hash, now)
	if err != nil {
		log.Fatalf("seed: instructor: %v", err)
	}

	_, err = conn.ExecContext(ctx, `
		INSERT INTO sessions (id, course_id, instructor_id, lat, lng, radius_m,
		                      rotation_interval_ms, late_after_ms, security_level, state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		devSessionID, devCourseID, devInstructorID, 28.6139, 77.2090, 50.0,
		cfg.RotationInterval().Milliseconds(), cfg.LateAfter().Milliseconds(),
		"standard", "scheduled", now)
	if err != nil {
		log.Fatalf("seed: session: %v", err)
	}

	_, err = conn.ExecContext(ctx, `
		INSERT INTO course_policies (id, course_id, name, rego, enabled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		devPolicyID, devCourseID, "strict-mismatch", strictMismatchPolicy, true, now)
	if err != nil {
		log.Fatalf("seed: policy: %v", err)
	}

	log.Printf("seed: created instructor %s (password %q), session %s, policy %s",
		devInstructorEmail, devPassword, devSessionID, devPolicyID)
}
