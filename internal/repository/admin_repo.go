package repository

import (
	"time"

	"learnhub/internal/domain"
	"learnhub/internal/models"

	"gorm.io/gorm"
)

type DashboardStats struct {
	TotalUsers             int64 `json:"total_users"`
	TotalParents           int64 `json:"total_parents"`
	TotalTeachers          int64 `json:"total_teachers"`
	TotalChildren          int64 `json:"total_children"`
	ActivePurchasedPlans   int64 `json:"active_purchased_plans"`
	TotalRevenueCents      int64 `json:"total_revenue_cents"`
	TotalAffiliates        int64 `json:"total_affiliates"`
	ActiveAffiliates       int64 `json:"active_affiliates"`
	TotalClicks            int64 `json:"total_clicks"`
	ConvertedClicks        int64 `json:"converted_clicks"`
	PendingCommissionCents int64 `json:"pending_commission_cents"`
	PendingInvoices        int64 `json:"pending_invoices"`
	PendingRequests        int64 `json:"pending_requests"`
}

type AdminRepository struct {
	db *gorm.DB
}

func NewAdminRepository(db *gorm.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

func (r *AdminRepository) GetDashboardStats(now time.Time) (*DashboardStats, error) {
	var s DashboardStats
	counts := []struct {
		model interface{}
		where []interface{}
		dst   *int64
	}{
		{&models.User{}, nil, &s.TotalUsers},
		{&models.User{}, []interface{}{"role = ?", domain.RoleParent}, &s.TotalParents},
		{&models.User{}, []interface{}{"role = ?", domain.RoleTeacher}, &s.TotalTeachers},
		{&models.ChildProfile{}, nil, &s.TotalChildren},
		{&models.PurchasedPlan{}, []interface{}{"is_active = ? AND expires_at > ?", true, now}, &s.ActivePurchasedPlans},
		{&models.Affiliate{}, nil, &s.TotalAffiliates},
		{&models.Affiliate{}, []interface{}{"is_active = ?", true}, &s.ActiveAffiliates},
		{&models.AffiliateClick{}, nil, &s.TotalClicks},
		{&models.AffiliateClick{}, []interface{}{"converted_user_id IS NOT NULL"}, &s.ConvertedClicks},
		{&models.AffiliateInvoice{}, []interface{}{"status = ?", domain.InvoiceStatusPending}, &s.PendingInvoices},
		{&models.AffiliateRequest{}, []interface{}{"status = ?", domain.RequestStatusPending}, &s.PendingRequests},
	}
	for _, c := range counts {
		q := r.db.Model(c.model)
		if len(c.where) > 0 {
			q = q.Where(c.where[0], c.where[1:]...)
		}
		if err := q.Count(c.dst).Error; err != nil {
			return nil, err
		}
	}

	var rev struct{ Total int64 }
	if err := r.db.Model(&models.Payment{}).Select("COALESCE(SUM(amount_cents), 0) AS total").
		Where("status = ?", domain.PaymentStatusCompleted).Scan(&rev).Error; err != nil {
		return nil, err
	}
	s.TotalRevenueCents = rev.Total

	var pending struct{ Total int64 }
	if err := r.db.Model(&models.AffiliateCommission{}).Select("COALESCE(SUM(amount_cents), 0) AS total").
		Where("status = ?", domain.CommissionStatusPending).Scan(&pending).Error; err != nil {
		return nil, err
	}
	s.PendingCommissionCents = pending.Total
	return &s, nil
}
