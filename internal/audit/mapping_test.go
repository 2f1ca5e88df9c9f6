package audit

import "testing"

func TestCategoryFor(t *testing.T) {
	tests := []struct {
		eventType string
		want      string
	}{
		{EventCheckInPresent, CategoryAttendance},
		{EventCheckInRejected, CategoryAttendance},
		{EventReviewAccepted, CategoryAttendance},
		{EventSessionEnded, CategoryAttendance},
		{EventTokenInvalid, CategorySecurity},
		{EventDeviceMismatch, CategorySecurity},
		{EventRateLimited, CategorySecurity},
		{EventLoginFailure, CategoryAuthentication},
		{EventInstructorRegistered, CategoryAuthentication},
		{"nonsense", ""},
	}
	for _, tt := range tests {
		if got := CategoryFor(tt.eventType); got != tt.want {
			t.Errorf("CategoryFor(%q) = %q, want %q", tt.eventType, got, tt.want)
		}
	}
}

func TestEventTypesFor(t *testing.T) {
	types := EventTypesFor(CategorySecurity)
	if len(types) == 0 {
		t.Fatal("expected security event types")
	}
	for _, et := range types {
		if CategoryFor(et) != CategorySecurity {
			t.Errorf("event type %q maps back to %q", et, CategoryFor(et))
		}
	}
	if EventTypesFor("nope") != nil {
		t.Error("unknown category should return nil")
	}
}

func TestEveryEventTypeHasOneCategory(t *testing.T) {
	seen := map[string]string{}
	for cat, types := range categoryEvents {
		for _, et := range types {
			if prev, ok := seen[et]; ok {
				t.Errorf("event type %q in both %q and %q", et, prev, cat)
			}
			seen[et] = cat
		}
	}
}
