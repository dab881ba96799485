package handler

import (
	"net/http"

	"learnhub/internal/service"

	"github.com/gin-gonic/gin"
)

type PlanHandler struct {
	svc *service.SubscriptionService
}

func NewPlanHandler(svc *service.SubscriptionService) *PlanHandler {
	return &PlanHandler{svc: svc}
}

// List handles GET /plans. Admins may pass ?all=true to include retired plans.
func (h *PlanHandler) List(c *gin.Context) {
	plans, err := h.svc.ListPlans(c.Query("all") != "true")
	if err != nil {
		respondError(c, "plan", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": plans})
}

func (h *PlanHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.GetPlan(id)
	if err != nil {
		respondError(c, "plan", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PlanHandler) Create(c *gin.Context) {
	var req service.PlanInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.svc.CreatePlan(req)
	if err != nil {
		respondError(c, "plan", err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *PlanHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.PlanInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.svc.UpdatePlan(id, req)
	if err != nil {
		respondError(c, "plan", err)
		return
	}
	c.JSON(http.StatusOK, p)
}
