package handler

import (
	"net/http"

	"learnhub/internal/middleware"
	"learnhub/internal/repository"
	"learnhub/internal/service"

	"github.com/gin-gonic/gin"
)

// TeacherHandler serves the teacher dashboard. Course content lives elsewhere.
type TeacherHandler struct {
	userRepo      *repository.UserRepository
	subscriptions *service.SubscriptionService
}

func NewTeacherHandler(userRepo *repository.UserRepository, subscriptions *service.SubscriptionService) *TeacherHandler {
	return &TeacherHandler{userRepo: userRepo, subscriptions: subscriptions}
}

func (h *TeacherHandler) Dashboard(c *gin.Context) {
	u, err := h.userRepo.GetByID(middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	plans, err := h.subscriptions.ListPlans(true)
	if err != nil {
		respondError(c, "teacher", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": u, "active_plans": len(plans)})
}
