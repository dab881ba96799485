package handler

import (
	"net/http"

	"learnhub/internal/middleware"
	"learnhub/internal/service"

	"github.com/gin-gonic/gin"
)

// ParentHandler serves the parent dashboard: child profiles, checkout and plan assignment.
type ParentHandler struct {
	children      *service.ChildService
	subscriptions *service.SubscriptionService
}

func NewParentHandler(children *service.ChildService, subscriptions *service.SubscriptionService) *ParentHandler {
	return &ParentHandler{children: children, subscriptions: subscriptions}
}

func (h *ParentHandler) Dashboard(c *gin.Context) {
	parentID := middleware.GetUserID(c)
	children, err := h.children.List(parentID)
	if err != nil {
		respondError(c, "parent", err)
		return
	}
	plans, err := h.subscriptions.ListPurchased(parentID)
	if err != nil {
		respondError(c, "parent", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"children": children, "purchased_plans": plans})
}

func (h *ParentHandler) ListChildren(c *gin.Context) {
	list, err := h.children.List(middleware.GetUserID(c))
	if err != nil {
		respondError(c, "parent", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (h *ParentHandler) CreateChild(c *gin.Context) {
	var req service.ChildInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	child, err := h.children.Create(middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, "parent", err)
		return
	}
	c.JSON(http.StatusCreated, child)
}

func (h *ParentHandler) GetChild(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	child, err := h.children.Get(middleware.GetUserID(c), id)
	if err != nil {
		respondError(c, "parent", err)
		return
	}
	c.JSON(http.StatusOK, child)
}

func (h *ParentHandler) UpdateChild(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.ChildInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	child, err := h.children.Update(middleware.GetUserID(c), id, req)
	if err != nil {
		respondError(c, "parent", err)
		return
	}
	c.JSON(http.StatusOK, child)
}

func (h *ParentHandler) DeleteChild(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.children.Delete(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		respondError(c, "parent", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *ParentHandler) UploadAvatar(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}
	defer f.Close()
	child, err := h.children.UploadAvatar(c.Request.Context(), middleware.GetUserID(c), id, f)
	if err != nil {
		respondError(c, "parent", err)
		return
	}
	c.JSON(http.StatusOK, child)
}

func (h *ParentHandler) CurrentPlan(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	pp, err := h.children.CurrentPlan(middleware.GetUserID(c), id)
	if err != nil {
		respondError(c, "parent", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"current_plan": pp})
}

func (h *ParentHandler) Purchase(c *gin.Context) {
	var req struct {
		PlanID uint `json:"plan_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pp, err := h.subscriptions.Purchase(c.Request.Context(), middleware.GetUserID(c), req.PlanID)
	if err != nil {
		respondError(c, "checkout", err)
		return
	}
	c.JSON(http.StatusCreated, pp)
}

func (h *ParentHandler) ListPurchased(c *gin.Context) {
	list, err := h.subscriptions.ListPurchased(middleware.GetUserID(c))
	if err != nil {
		respondError(c, "parent", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (h *ParentHandler) Assign(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		ChildID uint `json:"child_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pp, err := h.subscriptions.AssignToChild(c.Request.Context(), middleware.GetUserID(c), id, req.ChildID)
	if err != nil {
		respondError(c, "parent", err)
		return
	}
	c.JSON(http.StatusOK, pp)
}

func (h *ParentHandler) Unassign(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	pp, err := h.subscriptions.Unassign(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		respondError(c, "parent", err)
		return
	}
	c.JSON(http.StatusOK, pp)
}
