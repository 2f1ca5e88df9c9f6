package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"attendance-control-plane/internal/server/middleware"
	"attendance-control-plane/internal/session"
	"attendance-control-plane/internal/session/domain"
	"attendance-control-plane/internal/token"
	tokendomain "attendance-control-plane/internal/token/domain"
)

// Handler serves instructor-facing session lifecycle routes.
type Handler struct {
	manager *session.Manager
}

func NewHandler(manager *session.Manager) *Handler {
	return &Handler{manager: manager}
}

// Register mounts the session routes on r. The caller wraps r with
// authentication; every route here is instructor-only.
func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/api/sessions", h.create)
	r.GET("/api/sessions/:id", h.get)
	r.POST("/api/sessions/:id/start", h.start)
	r.POST("/api/sessions/:id/stop", h.stop)
	r.POST("/api/sessions/:id/refresh-token", h.refreshToken)
	r.PATCH("/api/sessions/:id/geofence", h.updateGeofence)
	r.GET("/api/sessions/:id/token", h.currentToken)
}

type createRequest struct {
	CourseID           string  `json:"courseId" binding:"required"`
	Lat                float64 `json:"lat"`
	Lng                float64 `json:"lng"`
	RadiusM            float64 `json:"radiusM" binding:"required,gt=0"`
	RotationIntervalMS int64   `json:"rotationIntervalMs"`
	LateAfterMS        int64   `json:"lateAfterMs"`
	SecurityLevel      string  `json:"securityLevel"`
}

type sessionResponse struct {
	ID            string  `json:"id"`
	CourseID      string  `json:"courseId"`
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
	RadiusM       float64 `json:"radiusM"`
	State         string  `json:"state"`
	SecurityLevel string  `json:"securityLevel"`
	StartsAt      *int64  `json:"startsAt,omitempty"`
	EndsAt        *int64  `json:"endsAt,omitempty"`
}

type tokenResponse struct {
	SessionID string `json:"sessionId"`
	Signature string `json:"signature"`
	Nonce     string `json:"nonce"`
	IssuedAt  int64  `json:"issuedAt"`
	ExpiresAt int64  `json:"expiresAt"`
	QR        string `json:"qr"`
}

func toSessionResponse(s *domain.Session) sessionResponse {
	out := sessionResponse{
		ID:            s.ID,
		CourseID:      s.CourseID,
		Lat:           s.Lat,
		Lng:           s.Lng,
		RadiusM:       s.RadiusM,
		State:         string(s.State),
		SecurityLevel: string(s.SecurityLevel),
	}
	if s.StartsAt != nil {
		ms := s.StartsAt.UnixMilli()
		out.StartsAt = &ms
	}
	if s.EndsAt != nil {
		ms := s.EndsAt.UnixMilli()
		out.EndsAt = &ms
	}
	return out
}

func toTokenResponse(t *tokendomain.RotatingToken) tokenResponse {
	qr, err := token.EncodeQR(t)
	if err != nil {
		log.Printf("session: failed to encode QR payload: %v", err)
	}
	return tokenResponse{
		SessionID: t.SessionID,
		Signature: t.Signature,
		Nonce:     t.Nonce,
		IssuedAt:  t.IssuedAt.UnixMilli(),
		ExpiresAt: t.ExpiresAt.UnixMilli(),
		QR:        qr,
	}
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	s, err := h.manager.Create(c.Request.Context(), session.CreateParams{
		CourseID:         req.CourseID,
		InstructorID:     middleware.InstructorID(c),
		Lat:              req.Lat,
		Lng:              req.Lng,
		RadiusM:          req.RadiusM,
		RotationInterval: time.Duration(req.RotationIntervalMS) * time.Millisecond,
		LateAfter:        time.Duration(req.LateAfterMS) * time.Millisecond,
		SecurityLevel:    domain.SecurityLevel(req.SecurityLevel),
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, toSessionResponse(s))
}

func (h *Handler) get(c *gin.Context) {
	s, err := h.manager.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(s))
}

type startRequest struct {
	DurationMin int `json:"durationMin"`
}

func (h *Handler) start(c *gin.Context) {
	var req startRequest
	_ = c.ShouldBindJSON(&req) // body optional
	s, t, err := h.manager.Start(c.Request.Context(), c.Param("id"), middleware.InstructorID(c),
		time.Duration(req.DurationMin)*time.Minute)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := gin.H{"session": toSessionResponse(s)}
	if t != nil {
		resp["token"] = toTokenResponse(t)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) stop(c *gin.Context) {
	if err := h.manager.Stop(c.Request.Context(), c.Param("id"), middleware.InstructorID(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ended"})
}

func (h *Handler) refreshToken(c *gin.Context) {
	t, err := h.manager.RefreshToken(c.Request.Context(), c.Param("id"), middleware.InstructorID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTokenResponse(t))
}

type geofenceRequest struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	RadiusM float64 `json:"radiusM" binding:"required,gt=0"`
}

func (h *Handler) updateGeofence(c *gin.Context) {
	var req geofenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	err := h.manager.UpdateGeofence(c.Request.Context(), c.Param("id"), middleware.InstructorID(c),
		req.Lat, req.Lng, req.RadiusM)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *Handler) currentToken(c *gin.Context) {
	t, err := h.manager.CurrentToken(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTokenResponse(t))
}

// writeError maps service sentinel errors to HTTP codes without leaking
// internal state.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, session.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "not the session owner"})
	case errors.Is(err, session.ErrSessionEnded), errors.Is(err, session.ErrNotActive):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
