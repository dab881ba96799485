package repository

import (
	"time"

	"learnhub/internal/domain"
	"learnhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CommissionTotal struct {
	Status      string `json:"status"`
	Count       int64  `json:"count"`
	AmountCents int64  `json:"amount_cents"`
}

type AffiliateCommissionRepository struct {
	db *gorm.DB
}

func NewAffiliateCommissionRepository(db *gorm.DB) *AffiliateCommissionRepository {
	return &AffiliateCommissionRepository{db: db}
}

func (r *AffiliateCommissionRepository) WithTx(tx *gorm.DB) *AffiliateCommissionRepository {
	return &AffiliateCommissionRepository{db: tx}
}

func (r *AffiliateCommissionRepository) Create(c *models.AffiliateCommission) error {
	return r.db.Omit(clause.Associations).Create(c).Error
}

func (r *AffiliateCommissionRepository) GetByID(id uint) (*models.AffiliateCommission, error) {
	var c models.AffiliateCommission
	if err := r.db.First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *AffiliateCommissionRepository) ListByAffiliate(affiliateID uint, status string, limit, offset int) ([]models.AffiliateCommission, error) {
	q := r.db.Where("affiliate_id = ?", affiliateID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var list []models.AffiliateCommission
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

// LockPendingInPeriod loads the uninvoiced pending commissions of an affiliate created in
// [from, to) and locks them for the rest of the transaction.
func (r *AffiliateCommissionRepository) LockPendingInPeriod(affiliateID uint, from, to time.Time) ([]models.AffiliateCommission, error) {
	var list []models.AffiliateCommission
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("affiliate_id = ? AND status = ? AND invoice_id IS NULL", affiliateID, domain.CommissionStatusPending).
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("id ASC").
		Find(&list).Error
	return list, err
}

// SumPendingInPeriod returns the pending total of an affiliate for [from, to).
func (r *AffiliateCommissionRepository) SumPendingInPeriod(affiliateID uint, from, to time.Time) (int64, error) {
	var out struct{ Total int64 }
	err := r.db.Model(&models.AffiliateCommission{}).
		Select("COALESCE(SUM(amount_cents), 0) AS total").
		Where("affiliate_id = ? AND status = ? AND invoice_id IS NULL", affiliateID, domain.CommissionStatusPending).
		Where("created_at >= ? AND created_at < ?", from, to).
		Scan(&out).Error
	return out.Total, err
}

// MarkPaid links the given pending commissions to invoiceID and flips them to paid. It returns
// the number of rows changed; rows that left the pending state are not touched.
func (r *AffiliateCommissionRepository) MarkPaid(ids []uint, invoiceID uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.Model(&models.AffiliateCommission{}).
		Where("id IN ? AND status = ? AND invoice_id IS NULL", ids, domain.CommissionStatusPending).
		Updates(map[string]interface{}{"status": domain.CommissionStatusPaid, "invoice_id": invoiceID})
	return res.RowsAffected, res.Error
}

// Cancel flips a pending commission to cancelled and reports whether it did.
func (r *AffiliateCommissionRepository) Cancel(id uint, at time.Time) (bool, error) {
	res := r.db.Model(&models.AffiliateCommission{}).
		Where("id = ? AND status = ?", id, domain.CommissionStatusPending).
		Updates(map[string]interface{}{"status": domain.CommissionStatusCancelled, "cancelled_at": at})
	return res.RowsAffected == 1, res.Error
}

func (r *AffiliateCommissionRepository) TotalsByStatus(affiliateID uint) ([]CommissionTotal, error) {
	var out []CommissionTotal
	err := r.db.Model(&models.AffiliateCommission{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(amount_cents), 0) AS amount_cents").
		Where("affiliate_id = ?", affiliateID).
		Group("status").
		Scan(&out).Error
	return out, err
}

func (r *AffiliateCommissionRepository) ListByInvoice(invoiceID uint) ([]models.AffiliateCommission, error) {
	var list []models.AffiliateCommission
	err := r.db.Where("invoice_id = ?", invoiceID).Order("id ASC").Find(&list).Error
	return list, err
}

func (r *AffiliateCommissionRepository) DeleteByAffiliate(affiliateID uint) error {
	return r.db.Where("affiliate_id = ?", affiliateID).Delete(&models.AffiliateCommission{}).Error
}
