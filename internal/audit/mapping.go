package audit

// Event types written by the core. Metadata carries the verdict flags,
// distance, or failure reason as JSON where the type alone is not enough.
const (
	EventCheckInPresent       = "checkin_present"
	EventCheckInLate          = "checkin_late"
	EventCheckInSuspicious    = "checkin_suspicious"
	EventCheckInPendingReview = "checkin_pending_review"
	EventCheckInRejected      = "checkin_rejected"
	EventReviewAccepted       = "review_accepted"
	EventReviewRejected       = "review_rejected"
	EventSessionStarted       = "session_started"
	EventSessionEnded         = "session_ended"
	EventGeofenceUpdated      = "session_geofence_updated"

	EventTokenInvalid   = "token_invalid"
	EventDeviceMismatch = "device_mismatch"
	EventRateLimited    = "rate_limited"

	EventLoginSuccess         = "login_success"
	EventLoginFailure         = "login_failure"
	EventInstructorRegistered = "instructor_registered"
)

// Categories for the read-only audit query surface.
const (
	CategoryAttendance     = "attendance"
	CategorySecurity       = "security"
	CategoryAuthentication = "authentication"
)

var categoryEvents = map[string][]string{
	CategoryAttendance: {
		EventCheckInPresent, EventCheckInLate, EventCheckInSuspicious,
		EventCheckInPendingReview, EventCheckInRejected,
		EventReviewAccepted, EventReviewRejected,
		EventSessionStarted, EventSessionEnded, EventGeofenceUpdated,
	},
	CategorySecurity: {
		EventTokenInvalid, EventDeviceMismatch, EventRateLimited,
	},
	CategoryAuthentication: {
		EventLoginSuccess, EventLoginFailure, EventInstructorRegistered,
	},
}

// EventTypesFor returns the event types belonging to a category, or nil for
// an unknown category.
func EventTypesFor(category string) []string {
	return categoryEvents[category]
}

// CategoryFor returns the category for an event type, or "" for an unknown
// event type.
func CategoryFor(eventType string) string {
	for cat, types := range categoryEvents {
		for _, t := range types {
			if t == eventType {
				return cat
			}
		}
	}
	return ""
}
