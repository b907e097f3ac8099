package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskboard/internal/service/auth"
)

type AuthHandler struct {
	svc    *auth.Service
	logger *zap.Logger
}

func NewAuthHandler(svc *auth.Service, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: logger}
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Register: invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	u, err := h.svc.Register(c.Request.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		h.logger.Warn("Register: failed",
			zap.String("email", req.Email),
			zap.Error(err),
		)
		writeError(c, err)
		return
	}

	h.logger.Info("Register: success",
		zap.String("user_id", u.ID),
		zap.String("email", u.Email),
	)
	c.JSON(http.StatusCreated, gin.H{"user": u})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Login: invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	token, u, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Warn("Login: failed",
			zap.String("email", req.Email),
			zap.String("client_ip", c.ClientIP()),
		)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	h.logger.Info("Login: success", zap.String("user_id", u.ID))
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  u,
	})
}

func (h *AuthHandler) Me(c *gin.Context) {
	actor := actorFrom(c)
	u, err := h.svc.CurrentUser(c.Request.Context(), actor.ID)
	if err != nil {
		h.logger.Error("Me: failed to load user",
			zap.String("user_id", actor.ID),
			zap.Error(err),
		)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}
