package suspicion

import (
	"reflect"
	"testing"
)

func TestEvaluate_VerdictTable(t *testing.T) {
	tests := []struct {
		name      string
		in        Input
		verdict   Verdict
		wantFlags []Flag
	}{
		{
			name:    "inside radius before late threshold",
			in:      Input{WithinRadius: true},
			verdict: VerdictPresent,
		},
		{
			name:    "inside radius after late threshold",
			in:      Input{WithinRadius: true, Late: true},
			verdict: VerdictLate,
		},
		{
			name:      "outside geofence goes to review regardless of timing",
			in:        Input{WithinRadius: false, Late: true},
			verdict:   VerdictPendingReview,
			wantFlags: []Flag{FlagOutsideGeofence},
		},
		{
			name:      "outside geofence rejects when policy opts out of review",
			in:        Input{WithinRadius: false, RejectOutsideGeofence: true},
			verdict:   VerdictRejected,
			wantFlags: []Flag{FlagOutsideGeofence},
		},
		{
			name:      "device mismatch on standard security allows with flag",
			in:        Input{WithinRadius: true, DeviceMismatch: true},
			verdict:   VerdictPresent,
			wantFlags: []Flag{FlagDeviceMismatch},
		},
		{
			name:      "device mismatch on elevated security rejects outright",
			in:        Input{WithinRadius: true, DeviceMismatch: true, RejectOnMismatch: true},
			verdict:   VerdictRejected,
			wantFlags: []Flag{FlagDeviceMismatch},
		},
		{
			name:      "low trust alone does not downgrade",
			in:        Input{WithinRadius: true, LowTrust: true},
			verdict:   VerdictPresent,
			wantFlags: []Flag{FlagLowTrustScore},
		},
		{
			name:      "multiple devices alone does not downgrade",
			in:        Input{WithinRadius: true, MultipleDevices: true},
			verdict:   VerdictPresent,
			wantFlags: []Flag{FlagMultipleDevices},
		},
		{
			name:      "low trust combined with device mismatch forces suspicious",
			in:        Input{WithinRadius: true, DeviceMismatch: true, LowTrust: true},
			verdict:   VerdictSuspicious,
			wantFlags: []Flag{FlagDeviceMismatch, FlagLowTrustScore},
		},
		{
			name:      "multiple devices combined with device mismatch forces suspicious on late arrival",
			in:        Input{WithinRadius: true, Late: true, DeviceMismatch: true, MultipleDevices: true},
			verdict:   VerdictSuspicious,
			wantFlags: []Flag{FlagDeviceMismatch, FlagMultipleDevices},
		},
		{
			name:      "weak flags together still do not downgrade",
			in:        Input{WithinRadius: true, LowTrust: true, MultipleDevices: true},
			verdict:   VerdictPresent,
			wantFlags: []Flag{FlagLowTrustScore, FlagMultipleDevices},
		},
		{
			name:      "pending review keeps all applicable flags recorded",
			in:        Input{WithinRadius: false, DeviceMismatch: true, LowTrust: true},
			verdict:   VerdictPendingReview,
			wantFlags: []Flag{FlagDeviceMismatch, FlagOutsideGeofence, FlagLowTrustScore},
		},
		{
			name:      "elevated rejection still records later flags",
			in:        Input{WithinRadius: false, DeviceMismatch: true, RejectOnMismatch: true, MultipleDevices: true},
			verdict:   VerdictRejected,
			wantFlags: []Flag{FlagDeviceMismatch, FlagOutsideGeofence, FlagMultipleDevices},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Evaluate(tt.in)
			if out.Verdict != tt.verdict {
				t.Errorf("verdict = %s, want %s", out.Verdict, tt.verdict)
			}
			if !reflect.DeepEqual(out.Flags, tt.wantFlags) {
				t.Errorf("flags = %v, want %v", out.Flags, tt.wantFlags)
			}
		})
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	in := Input{WithinRadius: false, DeviceMismatch: true, LowTrust: true, MultipleDevices: true}
	first := Evaluate(in)
	for i := 0; i < 10; i++ {
		if got := Evaluate(in); !reflect.DeepEqual(got, first) {
			t.Fatalf("evaluation not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestFlagStrings(t *testing.T) {
	got := FlagStrings([]Flag{FlagDeviceMismatch, FlagOutsideGeofence})
	want := []string{"deviceMismatch", "outsideGeofence"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FlagStrings = %v, want %v", got, want)
	}
}
