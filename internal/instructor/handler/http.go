package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"attendance-control-plane/internal/instructor"
)

// Handler serves instructor registration and login.
type Handler struct {
	service *instructor.AuthService
}

func NewHandler(service *instructor.AuthService) *Handler {
	return &Handler{service: service}
}

// Register mounts the auth routes on r. Both routes are public.
func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/api/auth/register", h.register)
	r.POST("/api/auth/login", h.login)
}

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	i, err := h.service.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, instructor.ErrEmailAlreadyRegistered) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": i.ID, "email": i.Email, "name": i.Name})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	res, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, instructor.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accessToken":  res.AccessToken,
		"expiresAt":    res.ExpiresAt.UnixMilli(),
		"instructorId": res.InstructorID,
		"name":         res.Name,
	})
}
