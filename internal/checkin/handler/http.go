package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"attendance-control-plane/internal/checkin"
	"attendance-control-plane/internal/token"
)

// Handler serves the student-facing check-in route.
type Handler struct {
	service *checkin.Service
}

func NewHandler(service *checkin.Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the check-in route on r. The route is unauthenticated but
// rate-limited by the caller.
func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/api/checkins", h.submit)
}

type submitRequest struct {
	// QR carries a raw scanned payload; when present it is parsed and
	// overrides SessionID/Token/Nonce/Timestamp.
	QR string `json:"qr"`

	SessionID string `json:"sessionId"`
	Token     string `json:"token"`
	Nonce     string `json:"nonce"`
	Timestamp int64  `json:"timestamp"`

	StudentID string   `json:"studentId"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  float64  `json:"accuracy"`
	Altitude  *float64 `json:"altitude"`
	Heading   *float64 `json:"heading"`
	Speed     *float64 `json:"speed"`

	DeviceFingerprint     string `json:"deviceFingerprint"`
	FingerprintComponents string `json:"fingerprintComponents"`
	DeviceType            string `json:"deviceType"`
	Browser               string `json:"browser"`
	OS                    string `json:"os"`
}

func (h *Handler) submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.QR != "" {
		p, err := token.ParseQR(req.QR)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed QR payload"})
			return
		}
		req.SessionID = p.SessionID
		req.Token = p.Signature
		req.Nonce = p.Nonce
		req.Timestamp = p.IssuedAtMillis
	}
	if req.Latitude == nil || req.Longitude == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "location is required"})
		return
	}

	resp, err := h.service.Submit(c.Request.Context(), checkin.Request{
		SessionID:   req.SessionID,
		StudentID:   req.StudentID,
		Signature:   req.Token,
		Nonce:       req.Nonce,
		ClaimedAt:   time.UnixMilli(req.Timestamp).UTC(),
		Lat:         *req.Latitude,
		Lng:         *req.Longitude,
		AccuracyM:   req.Accuracy,
		Fingerprint: req.DeviceFingerprint,
		DeviceType:  req.DeviceType,
		Browser:     req.Browser,
		OS:          req.OS,
	})
	if err != nil {
		switch {
		case errors.Is(err, checkin.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, checkin.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}
	c.JSON(http.StatusOK, resp)
}
