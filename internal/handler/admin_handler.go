package handler

import (
	"log"
	"net/http"
	"time"

	"learnhub/internal/domain"
	"learnhub/internal/middleware"
	"learnhub/internal/repository"
	"learnhub/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminHandler serves the admin dashboard, including the affiliate program back office.
type AdminHandler struct {
	adminRepo   *repository.AdminRepository
	userRepo    *repository.UserRepository
	auditRepo   *repository.AuditLogRepository
	authSvc     *service.AuthService
	affiliates  *service.AffiliateService
	commissions *service.CommissionService
	invoices    *service.InvoiceService
	settings    *service.SettingsService
}

func NewAdminHandler(
	adminRepo *repository.AdminRepository,
	userRepo *repository.UserRepository,
	auditRepo *repository.AuditLogRepository,
	authSvc *service.AuthService,
	affiliates *service.AffiliateService,
	commissions *service.CommissionService,
	invoices *service.InvoiceService,
	settings *service.SettingsService,
) *AdminHandler {
	return &AdminHandler{
		adminRepo:   adminRepo,
		userRepo:    userRepo,
		auditRepo:   auditRepo,
		authSvc:     authSvc,
		affiliates:  affiliates,
		commissions: commissions,
		invoices:    invoices,
		settings:    settings,
	}
}

// Dashboard handles GET /admin/dashboard with overview stats.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	stats, err := h.adminRepo.GetDashboardStats(time.Now().UTC())
	if err != nil {
		respondError(c, "admin", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListUsers handles GET /admin/users.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, limit := parsePagination(c)
	users, total, err := h.userRepo.List(c.Query("search"), c.Query("role"), page, limit)
	if err != nil {
		respondError(c, "admin", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": users, "total": total, "page": page, "limit": limit})
}

// CreateUser handles POST /admin/users. role=AFFILIATE also opens the affiliate profile.
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required,max=128"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
		Role     string `json:"role" binding:"required,oneof=ADMIN PARENT TEACHER AFFILIATE"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := h.authSvc.CreateUser(c.Request.Context(), middleware.GetUserID(c), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		respondError(c, "admin", err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

// ListAffiliates handles GET /admin/affiliates?active=true.
func (h *AdminHandler) ListAffiliates(c *gin.Context) {
	page, limit := parsePagination(c)
	list, total, err := h.affiliates.List(c.Query("active") == "true", page, limit)
	if err != nil {
		respondError(c, "admin", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "total": total, "page": page, "limit": limit})
}

func (h *AdminHandler) GetAffiliate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	a, err := h.affiliates.GetByID(id)
	if err != nil {
		respondError(c, "admin", err)
		return
	}
	d, err := h.affiliates.Dashboard(a)
	if err != nil {
		respondError(c, "admin", err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *AdminHandler) SetRates(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		CommissionRate    *float64 `json:"commission_rate" binding:"required,gte=0,lte=100"`
		ReferralBonusRate *float64 `json:"referral_bonus_rate" binding:"required,gte=0,lte=100"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, err := h.affiliates.SetRates(c.Request.Context(), middleware.GetUserID(c), id, *req.CommissionRate, *req.ReferralBonusRate)
	if err != nil {
		respondError(c, "admin", err)
		return
	}
	c.JSON(http.StatusOK, a)
}

type toggleRequest struct {
	Value *bool `json:"value" binding:"required"`
}

func (h *AdminHandler) SetActive(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, err := h.affiliates.SetActive(c.Request.Context(), middleware.GetUserID(c), id, *req.Value)
	if err != nil {
		respondError(c, "admin", err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *AdminHandler) SetCanRecommend(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, err := h.affiliates.SetCanRecommend(c.Request.Context(), middleware.GetUserID(c), id, *req.Value)
	if err != nil {
		respondError(c, "admin", err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *AdminHandler) DeleteAffiliate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.affiliates.Delete(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		respondError(c, "admin", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *AdminHandler) AffiliateCommissions(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	page, limit := parsePagination(c)
	list, err := h.commissions.List(id, c.Query("status"), limit, (page-1)*limit)
	if err != nil {
		respondError(c, "admin", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "page": page, "limit": limit})
}

func (h *AdminHandler) CancelCommission(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	cm, err := h.commissions.Cancel(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		respondError(c, "admin", err)
		return
	}
	c.JSON(http.StatusOK, cm)
}

// ListRequests handles GET /admin/affiliate-requests?status=pending.
func (h *AdminHandler) ListRequests(c *gin.Context) {
	page, limit := parsePagination(c)
	list, total, err := h.affiliates.ListRequests(c.Query("status"), page, limit)
	if err != nil {
		respondError(c, "admin", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "total": total, "page": page, "limit": limit})
}

func (h *AdminHandler) ApproveRequest(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Password string `json:"password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	hash, err := service.HashPassword(req.Password)
	if err != nil {
		respondError(c, "admin", err)
		return
	}
	a, err := h.affiliates.ApproveRequest(c.Request.Context(), middleware.GetUserID(c), id, hash)
	if err != nil {
		respondError(c, "admin", err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *AdminHandler) RejectRequest(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.affiliates.RejectRequest(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		respondError(c, "admin", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": domain.RequestStatusRejected})
}

type periodRequest struct {
	Month int `json:"month" binding:"required,min=1,max=12"`
	Year  int `json:"year" binding:"required,min=2000,max=9999"`
}

func (h *AdminHandler) ListInvoices(c *gin.Context) {
	page, limit := parsePagination(c)
	list, total, err := h.invoices.List(c.Query("status"), page, limit)
	if err != nil {
		respondError(c, "admin", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "total": total, "page": page, "limit": limit})
}

func (h *AdminHandler) GetInvoice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	inv, err := h.invoices.Get(id)
	if err != nil {
		respondError(c, "admin", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoice": inv, "period": inv.Period()})
}

// CreateInvoice handles POST /admin/affiliates/:id/invoices for one affiliate and period.
func (h *AdminHandler) CreateInvoice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req periodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	inv, err := h.invoices.CreateMonthlyInvoice(c.Request.Context(), id, req.Month, req.Year)
	if err != nil {
		respondError(c, "admin", err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

// GenerateInvoices handles POST /admin/invoices/generate for every active affiliate.
func (h *AdminHandler) GenerateInvoices(c *gin.Context) {
	var req periodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := h.invoices.GenerateMonthlyInvoices(c.Request.Context(), req.Month, req.Year)
	if err != nil {
		if len(created) == 0 {
			respondError(c, "admin", err)
			return
		}
		log.Printf("[admin] invoice generation %02d/%d incomplete: %v", req.Month, req.Year, err)
		c.JSON(http.StatusMultiStatus, gin.H{"data": created, "created": len(created), "error": "some affiliates could not be invoiced"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": created, "created": len(created)})
}

func (h *AdminHandler) PayInvoice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		PaymentMethod string `json:"payment_method" binding:"required,max=64"`
		PaymentNotes  string `json:"payment_notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	inv, err := h.invoices.MarkAsPaid(c.Request.Context(), middleware.GetUserID(c), id, req.PaymentMethod, req.PaymentNotes)
	if err != nil {
		respondError(c, "admin", err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// GetSettings handles GET /admin/settings.
func (h *AdminHandler) GetSettings(c *gin.Context) {
	rows, err := h.settings.All()
	if err != nil {
		respondError(c, "admin", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows, "effective": h.settings.Affiliate()})
}

// UpdateSettings handles PUT /admin/settings.
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req struct {
		Settings map[string]string `json:"settings" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for k, v := range req.Settings {
		if err := h.settings.Set(k, v); err != nil {
			respondError(c, "admin", err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "effective": h.settings.Affiliate()})
}

// AuditLogs handles GET /admin/audit-logs?resource=affiliate.
func (h *AdminHandler) AuditLogs(c *gin.Context) {
	page, limit := parsePagination(c)
	list, total, err := h.auditRepo.List(c.Query("resource"), page, limit)
	if err != nil {
		respondError(c, "admin", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "total": total, "page": page, "limit": limit})
}
