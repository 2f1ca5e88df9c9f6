package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"attendance-control-plane/internal/audit"
	audithandler "attendance-control-plane/internal/audit/handler"
	checkinhandler "attendance-control-plane/internal/checkin/handler"
	instructorhandler "attendance-control-plane/internal/instructor/handler"
	reviewhandler "attendance-control-plane/internal/review/handler"
	"attendance-control-plane/internal/security"
	"attendance-control-plane/internal/server/middleware"
	sessionhandler "attendance-control-plane/internal/session/handler"
)

// Deps are the handlers and cross-cutting pieces the router mounts.
type Deps struct {
	Tokens   *security.TokenProvider
	Limiter  *middleware.LimiterStore
	Auditor  audit.Recorder
	Health   func(context.Context) error
	Auth     *instructorhandler.Handler
	CheckIns *checkinhandler.Handler
	Sessions *sessionhandler.Handler
	Reviews  *reviewhandler.Handler
	Audit    *audithandler.Handler
}

// NewRouter assembles the HTTP surface: public auth and check-in routes
// behind the rate limiter, instructor routes behind Bearer auth.
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestContext())

	r.GET("/healthz", func(c *gin.Context) {
		if deps.Health != nil {
			if err := deps.Health(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	public := r.Group("/")
	public.Use(middleware.RateLimit(deps.Limiter, deps.Auditor))
	deps.Auth.Register(public)
	deps.CheckIns.Register(public)

	protected := r.Group("/")
	protected.Use(middleware.Auth(deps.Tokens))
	deps.Sessions.Register(protected)
	deps.Reviews.Register(protected)
	deps.Audit.Register(protected)

	return r
}
