package handler

import (
	"net/http"

	"learnhub/internal/middleware"
	"learnhub/internal/models"
	"learnhub/internal/service"

	"github.com/gin-gonic/gin"
)

// AffiliateHandler serves the affiliate's own dashboard and onboarding.
type AffiliateHandler struct {
	affiliates  *service.AffiliateService
	attribution *service.AttributionService
	commissions *service.CommissionService
	invoices    *service.InvoiceService
}

func NewAffiliateHandler(
	affiliates *service.AffiliateService,
	attribution *service.AttributionService,
	commissions *service.CommissionService,
	invoices *service.InvoiceService,
) *AffiliateHandler {
	return &AffiliateHandler{affiliates: affiliates, attribution: attribution, commissions: commissions, invoices: invoices}
}

func (h *AffiliateHandler) current(c *gin.Context) (*models.Affiliate, bool) {
	a, err := h.affiliates.GetForUser(middleware.GetUserID(c))
	if err != nil {
		respondError(c, "affiliate", err)
		return nil, false
	}
	return a, true
}

func (h *AffiliateHandler) Dashboard(c *gin.Context) {
	a, ok := h.current(c)
	if !ok {
		return
	}
	d, err := h.affiliates.Dashboard(a)
	if err != nil {
		respondError(c, "affiliate", err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *AffiliateHandler) Link(c *gin.Context) {
	a, ok := h.current(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"link": h.affiliates.Link(a), "code": a.UniqueCode, "active": a.IsActive})
}

func (h *AffiliateHandler) UpdateBankInfo(c *gin.Context) {
	var req service.BankInfo
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, err := h.affiliates.UpdateBankInfo(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, "affiliate", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"affiliate": a, "onboarding_complete": a.IsOnboardingComplete()})
}

func (h *AffiliateHandler) UpdateCompanyInfo(c *gin.Context) {
	var req service.CompanyInfo
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, err := h.affiliates.UpdateCompanyInfo(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, "affiliate", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"affiliate": a, "onboarding_complete": a.IsOnboardingComplete()})
}

func (h *AffiliateHandler) SignContract(c *gin.Context) {
	var req struct {
		Signature string `json:"signature"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, err := h.affiliates.SignContract(c.Request.Context(), middleware.GetUserID(c), req.Signature)
	if err != nil {
		respondError(c, "affiliate", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"affiliate": a, "link": h.affiliates.Link(a)})
}

func (h *AffiliateHandler) Clicks(c *gin.Context) {
	a, ok := h.current(c)
	if !ok {
		return
	}
	page, limit := parsePagination(c)
	list, err := h.attribution.ListClicks(a.ID, limit, (page-1)*limit)
	if err != nil {
		respondError(c, "affiliate", err)
		return
	}
	rate, err := h.attribution.ConversionRate(a.ID)
	if err != nil {
		respondError(c, "affiliate", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "conversion_rate": rate, "page": page, "limit": limit})
}

func (h *AffiliateHandler) Commissions(c *gin.Context) {
	a, ok := h.current(c)
	if !ok {
		return
	}
	page, limit := parsePagination(c)
	list, err := h.commissions.List(a.ID, c.Query("status"), limit, (page-1)*limit)
	if err != nil {
		respondError(c, "affiliate", err)
		return
	}
	totals, err := h.commissions.Totals(a.ID)
	if err != nil {
		respondError(c, "affiliate", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "totals": totals, "page": page, "limit": limit})
}

func (h *AffiliateHandler) Invoices(c *gin.Context) {
	a, ok := h.current(c)
	if !ok {
		return
	}
	list, err := h.invoices.ListByAffiliate(a.ID)
	if err != nil {
		respondError(c, "affiliate", err)
		return
	}
	out := make([]gin.H, len(list))
	for i := range list {
		out[i] = gin.H{"invoice": list[i], "period": list[i].Period()}
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (h *AffiliateHandler) Invoice(c *gin.Context) {
	a, ok := h.current(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	inv, err := h.invoices.GetForAffiliate(id, a.ID)
	if err != nil {
		respondError(c, "affiliate", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoice": inv, "period": inv.Period()})
}

func (h *AffiliateHandler) Referrals(c *gin.Context) {
	a, ok := h.current(c)
	if !ok {
		return
	}
	list, err := h.affiliates.ListReferrals(a.ID)
	if err != nil {
		respondError(c, "affiliate", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "total": len(list)})
}

func (h *AffiliateHandler) SubmitRequest(c *gin.Context) {
	var req service.RecommendationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r, err := h.affiliates.SubmitRequest(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, "affiliate", err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *AffiliateHandler) MyRequests(c *gin.Context) {
	a, ok := h.current(c)
	if !ok {
		return
	}
	list, err := h.affiliates.ListMyRequests(a.ID)
	if err != nil {
		respondError(c, "affiliate", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}
