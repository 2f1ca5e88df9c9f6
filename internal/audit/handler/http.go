package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"attendance-control-plane/internal/audit"
	auditdomain "attendance-control-plane/internal/audit/domain"
	auditrepo "attendance-control-plane/internal/audit/repository"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Handler serves the read-only audit query surface.
type Handler struct {
	repo auditrepo.Repository
}

func NewHandler(repo auditrepo.Repository) *Handler {
	return &Handler{repo: repo}
}

// Register mounts the audit routes on r. The caller wraps r with
// authentication; the audit surface is instructor-only.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/api/students/:id/audit", h.listForStudent)
	r.GET("/api/sessions/:id/audit", h.listForSession)
}

type eventResponse struct {
	ID        string `json:"id"`
	EventType string `json:"eventType"`
	Category  string `json:"category"`
	SubjectID string `json:"subjectId"`
	SessionID string `json:"sessionId,omitempty"`
	Metadata  string `json:"metadata,omitempty"`
	Origin    string `json:"origin,omitempty"`
	CreatedAt string `json:"createdAt"`
}

func toResponse(events []*auditdomain.AuditEvent) []eventResponse {
	out := make([]eventResponse, len(events))
	for i, e := range events {
		out[i] = eventResponse{
			ID:        e.ID,
			EventType: e.EventType,
			Category:  audit.CategoryFor(e.EventType),
			SubjectID: e.SubjectID,
			SessionID: e.SessionID,
			Metadata:  e.Metadata,
			Origin:    e.Origin,
			CreatedAt: e.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		}
	}
	return out
}

func (h *Handler) listForStudent(c *gin.Context) {
	var eventTypes []string
	if category := c.Query("category"); category != "" {
		eventTypes = audit.EventTypesFor(category)
		if eventTypes == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category"})
			return
		}
	}
	limit, offset := pagination(c)
	events, err := h.repo.ListBySubject(c.Request.Context(), c.Param("id"), eventTypes, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": toResponse(events)})
}

func (h *Handler) listForSession(c *gin.Context) {
	limit, offset := pagination(c)
	events, err := h.repo.ListBySession(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": toResponse(events)})
}

func pagination(c *gin.Context) (limit, offset int32) {
	limit = defaultLimit
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		if v > maxLimit {
			v = maxLimit
		}
		limit = int32(v)
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v > 0 {
		offset = int32(v)
	}
	return limit, offset
}
