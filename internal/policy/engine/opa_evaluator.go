package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	devicedomain "attendance-control-plane/internal/device/domain"
	"attendance-control-plane/internal/policy/repository"
	sessiondomain "attendance-control-plane/internal/session/domain"
)

const defaultPolicyPackage = "attendance.checkin"

// Default Rego policy matching the built-in security-level semantics:
// elevated sessions reject a device mismatch outright, out-of-fence attempts
// always go to human review.
const defaultRegoPolicy = `package attendance.checkin

default reject_on_device_mismatch = false
default review_outside_geofence = true

reject_on_device_mismatch if {
	input.session.security_level == "elevated"
}
`

// OPAEvaluator evaluates check-in disposition policies using OPA Rego.
// Courses may override the default policy with rows in course_policies.
type OPAEvaluator struct {
	policyRepo repository.Repository
}

// NewOPAEvaluator returns an OPA-based policy evaluator. policyRepo may be
// nil; then only the default policy is evaluated.
func NewOPAEvaluator(policyRepo repository.Repository) *OPAEvaluator {
	return &OPAEvaluator{policyRepo: policyRepo}
}

// HealthCheck verifies that the in-process OPA Rego engine can compile and
// evaluate the default policy. Does not touch the policy repo or database.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	modules := map[string]string{"policy_0.rego": defaultRegoPolicy}
	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return fmt.Errorf("compile default policy: %w", err)
	}
	minimalInput := map[string]interface{}{
		"session": map[string]interface{}{
			"id":             "",
			"course_id":      "",
			"security_level": "standard",
		},
		"device": map[string]interface{}{
			"trust_score":    100,
			"mismatch_count": 0,
			"is_new":         true,
		},
	}
	q := rego.New(
		rego.Query("data."+defaultPolicyPackage+".reject_on_device_mismatch"),
		rego.Compiler(compiler),
		rego.Input(minimalInput),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return fmt.Errorf("eval default policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return fmt.Errorf("policy query returned no result")
	}
	return nil
}

// EvaluateCheckIn evaluates the check-in disposition for the attempt. Any
// evaluation failure falls back to the built-in defaults so a bad course
// policy can never take check-ins down.
func (e *OPAEvaluator) EvaluateCheckIn(
	ctx context.Context,
	session *sessiondomain.Session,
	binding *devicedomain.DeviceBinding,
) (CheckInResult, error) {
	input := e.buildInput(session, binding)

	policies, err := e.loadPolicies(ctx, session)
	if err != nil {
		log.Printf("policy: failed to load course policies: %v; using default", err)
		policies = []string{defaultRegoPolicy}
	}

	result, err := e.evaluatePolicies(ctx, policies, input)
	if err != nil {
		log.Printf("policy: evaluation failed: %v; using defaults", err)
		return e.defaultResult(session), nil
	}
	return result, nil
}

func (e *OPAEvaluator) loadPolicies(ctx context.Context, session *sessiondomain.Session) ([]string, error) {
	if e.policyRepo == nil || session == nil {
		return []string{defaultRegoPolicy}, nil
	}
	overrides, err := e.policyRepo.ListEnabledByCourse(ctx, session.CourseID)
	if err != nil {
		return nil, err
	}
	if len(overrides) == 0 {
		return []string{defaultRegoPolicy}, nil
	}
	return overrides, nil
}

func (e *OPAEvaluator) buildInput(session *sessiondomain.Session, binding *devicedomain.DeviceBinding) map[string]interface{} {
	sess := map[string]interface{}{
		"id":             "",
		"course_id":      "",
		"security_level": string(sessiondomain.SecurityStandard),
	}
	if session != nil {
		sess["id"] = session.ID
		sess["course_id"] = session.CourseID
		sess["security_level"] = string(session.SecurityLevel)
	}

	device := map[string]interface{}{
		"trust_score":    devicedomain.MaxTrust,
		"mismatch_count": 0,
		"is_new":         true,
	}
	if binding != nil {
		device["trust_score"] = binding.TrustScore
		device["mismatch_count"] = binding.MismatchCount
		device["is_new"] = false
	}

	return map[string]interface{}{
		"session": sess,
		"device":  device,
	}
}

func (e *OPAEvaluator) evaluatePolicies(ctx context.Context, policies []string, input map[string]interface{}) (CheckInResult, error) {
	modules := make(map[string]string)
	for i, policy := range policies {
		modules[fmt.Sprintf("policy_%d.rego", i)] = policy
	}

	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return CheckInResult{}, fmt.Errorf("compile policies: %w", err)
	}

	out := CheckInResult{
		RejectOnDeviceMismatch: false,
		ReviewOutsideGeofence:  true,
	}

	rejectQuery := rego.New(
		rego.Query("data."+defaultPolicyPackage+".reject_on_device_mismatch"),
		rego.Compiler(compiler),
		rego.Input(input),
	)
	rejectRS, err := rejectQuery.Eval(ctx)
	if err != nil {
		return CheckInResult{}, fmt.Errorf("eval reject_on_device_mismatch: %w", err)
	}
	if len(rejectRS) > 0 && len(rejectRS[0].Expressions) > 0 {
		if v, ok := rejectRS[0].Expressions[0].Value.(bool); ok {
			out.RejectOnDeviceMismatch = v
		}
	}

	reviewQuery := rego.New(
		rego.Query("data."+defaultPolicyPackage+".review_outside_geofence"),
		rego.Compiler(compiler),
		rego.Input(input),
	)
	reviewRS, err := reviewQuery.Eval(ctx)
	if err != nil {
		return CheckInResult{}, fmt.Errorf("eval review_outside_geofence: %w", err)
	}
	if len(reviewRS) > 0 && len(reviewRS[0].Expressions) > 0 {
		if v, ok := reviewRS[0].Expressions[0].Value.(bool); ok {
			out.ReviewOutsideGeofence = v
		}
	}

	return out, nil
}

// defaultResult mirrors the default policy without the Rego engine.
func (e *OPAEvaluator) defaultResult(session *sessiondomain.Session) CheckInResult {
	out := CheckInResult{ReviewOutsideGeofence: true}
	if session != nil && session.SecurityLevel == sessiondomain.SecurityElevated {
		out.RejectOnDeviceMismatch = true
	}
	return out
}
