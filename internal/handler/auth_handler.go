package handler

import (
	"net/http"

	"learnhub/internal/middleware"
	"learnhub/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	svc        *service.AuthService
	cookieName string
}

func NewAuthHandler(svc *service.AuthService, cookieName string) *AuthHandler {
	return &AuthHandler{svc: svc, cookieName: cookieName}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=128"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	// AttributionToken lets clients without cookies carry the affiliate attribution.
	AttributionToken string `json:"attribution_token"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token := req.AttributionToken
	if cookie, err := c.Cookie(h.cookieName); err == nil && cookie != "" {
		token = cookie
	}
	u, tokens, err := h.svc.Register(c.Request.Context(), req.Name, req.Email, req.Password, token)
	if err != nil {
		respondError(c, "auth", err)
		return
	}
	if token != "" {
		c.SetCookie(h.cookieName, "", -1, "/", "", false, true)
	}
	c.JSON(http.StatusCreated, gin.H{
		"user":          u,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, tokens, err := h.svc.Login(req.Email, req.Password)
	if err != nil {
		respondError(c, "auth", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":          u,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
	})
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tokens, err := h.svc.Refresh(req.RefreshToken)
	if err != nil {
		respondError(c, "auth", err)
		return
	}
	c.JSON(http.StatusOK, tokens)
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.ChangePassword(middleware.GetUserID(c), req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, "auth", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
