package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/luftkuhl/ninethree-backend/internal/platform/logger"
	"github.com/luftkuhl/ninethree-backend/internal/services"
)

type AuthHandler struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewAuthHandler(log *logger.Logger, authService services.AuthService) *AuthHandler {
	return &AuthHandler{
		log:         log.With("handler", "AuthHandler"),
		authService: authService,
	}
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err)
		return
	}
	err := h.authService.Register(c.Request.Context(), req.Username, req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrUserExists) {
			RespondError(c, http.StatusConflict, "USER_EXISTS", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "REGISTER_FAILED", err)
		return
	}
	RespondOK(c, gin.H{"status": "registered"})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err)
		return
	}
	token, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			RespondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "LOGIN_FAILED", err)
		return
	}
	RespondOK(c, gin.H{"token": token})
}
