package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	checkindomain "attendance-control-plane/internal/checkin/domain"
	"attendance-control-plane/internal/review"
	"attendance-control-plane/internal/server/middleware"
)

// Handler serves instructor-facing review queue routes.
type Handler struct {
	service *review.Service
}

func NewHandler(service *review.Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the review routes on r. The caller wraps r with
// authentication; every route here is instructor-only.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/api/sessions/:id/review", h.listPending)
	r.POST("/api/sessions/:id/review/accept-all", h.acceptAll)
	r.POST("/api/sessions/:id/review/reject-all", h.rejectAll)
	r.POST("/api/sessions/:id/review/:attemptId/accept", h.acceptOne)
	r.POST("/api/sessions/:id/review/:attemptId/reject", h.rejectOne)
}

type attemptResponse struct {
	ID          string   `json:"id"`
	SessionID   string   `json:"sessionId"`
	StudentID   string   `json:"studentId"`
	DistanceM   float64  `json:"distanceM"`
	TrustScore  int      `json:"trustScore"`
	Flags       []string `json:"flags"`
	Verdict     string   `json:"verdict"`
	SubmittedAt int64    `json:"submittedAt"`
}

func toAttemptResponse(a *checkindomain.CheckInAttempt) attemptResponse {
	return attemptResponse{
		ID:          a.ID,
		SessionID:   a.SessionID,
		StudentID:   a.StudentID,
		DistanceM:   a.DistanceM,
		TrustScore:  a.TrustScore,
		Flags:       a.Flags,
		Verdict:     a.Verdict,
		SubmittedAt: a.CreatedAt.UnixMilli(),
	}
}

func (h *Handler) listPending(c *gin.Context) {
	attempts, err := h.service.ListPending(c.Request.Context(), c.Param("id"), middleware.InstructorID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]attemptResponse, len(attempts))
	for i, a := range attempts {
		out[i] = toAttemptResponse(a)
	}
	c.JSON(http.StatusOK, gin.H{"pending": out})
}

type decisionRequest struct {
	Note string `json:"note"`
}

func (h *Handler) acceptOne(c *gin.Context) {
	var req decisionRequest
	_ = c.ShouldBindJSON(&req) // note optional
	err := h.service.AcceptOne(c.Request.Context(), c.Param("id"), c.Param("attemptId"),
		middleware.InstructorID(c), req.Note)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}

func (h *Handler) rejectOne(c *gin.Context) {
	var req decisionRequest
	_ = c.ShouldBindJSON(&req)
	err := h.service.RejectOne(c.Request.Context(), c.Param("id"), c.Param("attemptId"),
		middleware.InstructorID(c), req.Note)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}

func (h *Handler) acceptAll(c *gin.Context) {
	var req decisionRequest
	_ = c.ShouldBindJSON(&req)
	results, err := h.service.AcceptAll(c.Request.Context(), c.Param("id"), middleware.InstructorID(c), req.Note)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *Handler) rejectAll(c *gin.Context) {
	var req decisionRequest
	_ = c.ShouldBindJSON(&req)
	results, err := h.service.RejectAll(c.Request.Context(), c.Param("id"), middleware.InstructorID(c), req.Note)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, review.ErrSessionNotFound), errors.Is(err, review.ErrAttemptNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, review.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "not the session owner"})
	case errors.Is(err, review.ErrNotPending), errors.Is(err, review.ErrWrongSession):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
