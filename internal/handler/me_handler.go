package handler

import (
	"net/http"

	"learnhub/internal/middleware"
	"learnhub/internal/repository"

	"github.com/gin-gonic/gin"
)

type MeHandler struct {
	userRepo *repository.UserRepository
}

func NewMeHandler(userRepo *repository.UserRepository) *MeHandler {
	return &MeHandler{userRepo: userRepo}
}

func (h *MeHandler) GetProfile(c *gin.Context) {
	u, err := h.userRepo.GetByID(middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, u)
}

// RegisterFCMToken saves the FCM token for push notifications.
func (h *MeHandler) RegisterFCMToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.userRepo.UpdateFCMToken(middleware.GetUserID(c), req.Token); err != nil {
		respondError(c, "me", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
