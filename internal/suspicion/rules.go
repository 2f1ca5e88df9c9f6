// Package suspicion fuses token, geofence, device, and timing signals into a
// verdict plus explainable flags. The rule set is an explicit ordered table so
// it can be unit tested independently of any I/O.
package suspicion

// Flag names an applicable suspicion signal. Flags are recorded even when an
// earlier rule has already fixed the verdict.
type Flag string

const (
	FlagDeviceMismatch  Flag = "deviceMismatch"
	FlagOutsideGeofence Flag = "outsideGeofence"
	FlagLowTrustScore   Flag = "lowTrustScore"
	FlagMultipleDevices Flag = "multipleDevices"
)

// Verdict is the final classification of a check-in attempt.
type Verdict string

const (
	VerdictPresent       Verdict = "PRESENT"
	VerdictLate          Verdict = "LATE"
	VerdictSuspicious    Verdict = "SUSPICIOUS"
	VerdictPendingReview Verdict = "PENDING_REVIEW"
	VerdictRejected      Verdict = "REJECTED"
)

// Input carries the signals for one attempt that already passed token
// validation (an invalid token is rejected before the engine runs).
type Input struct {
	WithinRadius bool
	// Late means the attempt arrived after the session's late threshold.
	Late bool
	// DeviceMismatch means the fingerprint is bound to another student.
	DeviceMismatch bool
	// RejectOnMismatch is the policy disposition for the session's security
	// level: elevated sessions reject a mismatch outright, standard ones
	// allow it with the flag.
	RejectOnMismatch bool
	// RejectOutsideGeofence is the policy disposition for out-of-fence
	// attempts. Unset, they are held for human review; a policy may opt a
	// course into rejecting them outright.
	RejectOutsideGeofence bool
	LowTrust              bool
	MultipleDevices       bool
}

// Outcome is the engine's verdict with every applicable flag, in rule order.
type Outcome struct {
	Verdict Verdict
	Flags   []Flag
}

// rule is one row of the ordered table: when it applies it contributes its
// flag, and may decide the verdict. The first decision wins; later rules
// still contribute flags.
type rule struct {
	name    string
	applies func(Input) bool
	flag    Flag
	decide  func(Input) (Verdict, bool)
}

var rules = []rule{
	{
		name:    "device-mismatch",
		applies: func(in Input) bool { return in.DeviceMismatch },
		flag:    FlagDeviceMismatch,
		decide: func(in Input) (Verdict, bool) {
			if in.RejectOnMismatch {
				return VerdictRejected, true
			}
			return "", false
		},
	},
	{
		name:    "outside-geofence",
		applies: func(in Input) bool { return !in.WithinRadius },
		flag:    FlagOutsideGeofence,
		// Outside the fence defers to a human unless policy says otherwise.
		decide: func(in Input) (Verdict, bool) {
			if in.RejectOutsideGeofence {
				return VerdictRejected, true
			}
			return VerdictPendingReview, true
		},
	},
	{
		name:    "on-time",
		applies: func(in Input) bool { return in.WithinRadius && !in.Late },
		decide:  func(Input) (Verdict, bool) { return VerdictPresent, true },
	},
	{
		name:    "late",
		applies: func(in Input) bool { return in.WithinRadius && in.Late },
		decide:  func(Input) (Verdict, bool) { return VerdictLate, true },
	},
	{
		name:    "low-trust",
		applies: func(in Input) bool { return in.LowTrust },
		flag:    FlagLowTrustScore,
	},
	{
		name:    "multiple-devices",
		applies: func(in Input) bool { return in.MultipleDevices },
		flag:    FlagMultipleDevices,
	},
}

// weakFlags never force a downgrade on their own: the fingerprint is an
// unverifiable client-computed signal, so it must pair with an independent
// signal before it can override PRESENT/LATE.
func weakFlag(f Flag) bool {
	return f == FlagLowTrustScore || f == FlagMultipleDevices
}

// Evaluate runs the ordered rule table over in and returns the verdict with
// every applicable flag.
func Evaluate(in Input) Outcome {
	var out Outcome
	decided := false
	for _, r := range rules {
		if !r.applies(in) {
			continue
		}
		if r.flag != "" {
			out.Flags = append(out.Flags, r.flag)
		}
		if !decided && r.decide != nil {
			if v, ok := r.decide(in); ok {
				out.Verdict = v
				decided = true
			}
		}
	}

	// Weak flags upgrade a tentative PRESENT/LATE to SUSPICIOUS only when an
	// independent flag corroborates them. Verdicts fixed by earlier rules
	// (REJECTED, PENDING_REVIEW) stand.
	if out.Verdict == VerdictPresent || out.Verdict == VerdictLate {
		weak, independent := false, false
		for _, f := range out.Flags {
			if weakFlag(f) {
				weak = true
			} else {
				independent = true
			}
		}
		if weak && independent {
			out.Verdict = VerdictSuspicious
		}
	}
	return out
}

// FlagStrings converts flags to plain strings for persistence and responses.
func FlagStrings(flags []Flag) []string {
	out := make([]string, len(flags))
	for i, f := range flags {
		out[i] = string(f)
	}
	return out
}
