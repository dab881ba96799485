package handler

import (
	"net/http"
	"strconv"
	"time"

	"learnhub/internal/middleware"
	"learnhub/internal/repository"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	repo *repository.NotificationRepository
}

func NewNotificationHandler(repo *repository.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{repo: repo}
}

func (h *NotificationHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	list, err := h.repo.ListByUserID(userID, limit, offset)
	if err != nil {
		respondError(c, "notification", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.repo.MarkRead(id, middleware.GetUserID(c), time.Now().UTC()); err != nil {
		respondError(c, "notification", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
