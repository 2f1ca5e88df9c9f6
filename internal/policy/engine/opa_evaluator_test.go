package engine

import (
	"context"
	"errors"
	"testing"

	devicedomain "attendance-control-plane/internal/device/domain"
	"attendance-control-plane/internal/policy/repository"
	sessiondomain "attendance-control-plane/internal/session/domain"
)

func TestOPAEvaluator_HealthCheck(t *testing.T) {
	e := NewOPAEvaluator(nil)
	if err := e.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

// mockPolicyRepo implements repository.Repository for tests.
type mockPolicyRepo struct {
	policies map[string][]string
	err      error
}

var _ repository.Repository = (*mockPolicyRepo)(nil)

func (m *mockPolicyRepo) ListEnabledByCourse(ctx context.Context, courseID string) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.policies[courseID], nil
}

func standardSession() *sessiondomain.Session {
	return &sessiondomain.Session{
		ID:            "sess-1",
		CourseID:      "course-1",
		SecurityLevel: sessiondomain.SecurityStandard,
	}
}

func TestEvaluateCheckIn_DefaultPolicyStandard(t *testing.T) {
	e := NewOPAEvaluator(nil)

	res, err := e.EvaluateCheckIn(context.Background(), standardSession(), nil)
	if err != nil {
		t.Fatalf("EvaluateCheckIn: %v", err)
	}
	if res.RejectOnDeviceMismatch {
		t.Error("standard security should not reject on device mismatch")
	}
	if !res.ReviewOutsideGeofence {
		t.Error("out-of-fence attempts should default to human review")
	}
}

func TestEvaluateCheckIn_DefaultPolicyElevated(t *testing.T) {
	e := NewOPAEvaluator(nil)
	sess := standardSession()
	sess.SecurityLevel = sessiondomain.SecurityElevated

	res, err := e.EvaluateCheckIn(context.Background(), sess, nil)
	if err != nil {
		t.Fatalf("EvaluateCheckIn: %v", err)
	}
	if !res.RejectOnDeviceMismatch {
		t.Error("elevated security should reject on device mismatch")
	}
}

func TestEvaluateCheckIn_CourseOverride(t *testing.T) {
	// Course policy that rejects mismatches from heavily conflicted devices
	// even on standard security.
	override := `package attendance.checkin

default reject_on_device_mismatch = false
default review_outside_geofence = true

reject_on_device_mismatch if {
	input.device.mismatch_count > 3
}
`
	repo := &mockPolicyRepo{policies: map[string][]string{"course-1": {override}}}
	e := NewOPAEvaluator(repo)

	binding := &devicedomain.DeviceBinding{TrustScore: 40, MismatchCount: 5}
	res, err := e.EvaluateCheckIn(context.Background(), standardSession(), binding)
	if err != nil {
		t.Fatalf("EvaluateCheckIn: %v", err)
	}
	if !res.RejectOnDeviceMismatch {
		t.Error("override should reject for mismatch_count > 3")
	}

	binding.MismatchCount = 1
	res, err = e.EvaluateCheckIn(context.Background(), standardSession(), binding)
	if err != nil {
		t.Fatalf("EvaluateCheckIn: %v", err)
	}
	if res.RejectOnDeviceMismatch {
		t.Error("override should allow for mismatch_count <= 3")
	}
}

func TestEvaluateCheckIn_RepoErrorFallsBackToDefault(t *testing.T) {
	repo := &mockPolicyRepo{err: errors.New("db down")}
	e := NewOPAEvaluator(repo)
	sess := standardSession()
	sess.SecurityLevel = sessiondomain.SecurityElevated

	res, err := e.EvaluateCheckIn(context.Background(), sess, nil)
	if err != nil {
		t.Fatalf("EvaluateCheckIn: %v", err)
	}
	if !res.RejectOnDeviceMismatch {
		t.Error("fallback should still honor elevated security")
	}
}

func TestEvaluateCheckIn_BrokenOverrideFallsBackToDefaults(t *testing.T) {
	repo := &mockPolicyRepo{policies: map[string][]string{"course-1": {"package attendance.checkin\nthis is not rego"}}}
	e := NewOPAEvaluator(repo)

	res, err := e.EvaluateCheckIn(context.Background(), standardSession(), nil)
	if err != nil {
		t.Fatalf("EvaluateCheckIn: %v", err)
	}
	if res.RejectOnDeviceMismatch || !res.ReviewOutsideGeofence {
		t.Errorf("broken policy should fall back to defaults, got %+v", res)
	}
}
