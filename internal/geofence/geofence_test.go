package geofence

import (
	"math"
	"testing"
)

func TestDistance_IdenticalPoints(t *testing.T) {
	if d := Distance(28.6139, 77.2090, 28.6139, 77.2090); d != 0 {
		t.Errorf("Distance(A,A) = %v, want 0", d)
	}
}

func TestDistance_Symmetric(t *testing.T) {
	d1 := Distance(28.6139, 77.2090, 28.6200, 77.2200)
	d2 := Distance(28.6200, 77.2200, 28.6139, 77.2090)
	if math.Abs(d1-d2) > 1e-9 {
		t.Errorf("Distance not symmetric: %v vs %v", d1, d2)
	}
}

func TestDistance_KnownValues(t *testing.T) {
	// Nearby student: roughly 23 m from the center.
	d := Distance(28.6139, 77.2090, 28.6141, 77.2091)
	if d < 15 || d > 35 {
		t.Errorf("nearby distance = %v, want ~23m", d)
	}

	// Distant student: roughly 950 m out.
	d = Distance(28.6139, 77.2090, 28.6200, 77.2200)
	if d < 800 || d > 1400 {
		t.Errorf("distant distance = %v, want ~1km", d)
	}
}

func TestEvaluate_WithinRadius(t *testing.T) {
	res := Evaluate(28.6139, 77.2090, 50, 28.6141, 77.2091)
	if !res.WithinRadius {
		t.Errorf("student ~23m out should be within a 50m radius (got distance %v)", res.DistanceM)
	}

	res = Evaluate(28.6139, 77.2090, 50, 28.6200, 77.2200)
	if res.WithinRadius {
		t.Errorf("student ~950m out should not be within a 50m radius (got distance %v)", res.DistanceM)
	}
}

func TestEvaluate_BoundaryTiePasses(t *testing.T) {
	d := Distance(28.6139, 77.2090, 28.6141, 77.2091)
	res := Evaluate(28.6139, 77.2090, d, 28.6141, 77.2091)
	if !res.WithinRadius {
		t.Error("distance exactly equal to radius should pass")
	}
}

func TestEvaluate_ZeroRadius(t *testing.T) {
	res := Evaluate(28.6139, 77.2090, 0, 28.6139, 77.2090)
	if !res.WithinRadius {
		t.Error("identical point should pass a zero radius")
	}
}
