package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
)

type contextKey struct{ name string }

var clientIPKey = contextKey{"client_ip"}

// ginInstructorKey is where Auth stores the instructor id on the gin context.
const ginInstructorKey = "instructor_id"

// RequestContext copies the client IP into the request's context so code that
// only sees a context.Context (the audit logger) can still record the origin.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.WithValue(c.Request.Context(), clientIPKey, c.ClientIP())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// ClientIP returns the client IP from ctx, or "unknown" if not set.
func ClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(clientIPKey).(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// InstructorID returns the authenticated instructor id for the request, or ""
// on unauthenticated routes.
func InstructorID(c *gin.Context) string {
	return c.GetString(ginInstructorKey)
}
