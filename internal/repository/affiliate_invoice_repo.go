package repository

import (
	"time"

	"learnhub/internal/domain"
	"learnhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AffiliateInvoiceRepository struct {
	db *gorm.DB
}

func NewAffiliateInvoiceRepository(db *gorm.DB) *AffiliateInvoiceRepository {
	return &AffiliateInvoiceRepository{db: db}
}

func (r *AffiliateInvoiceRepository) WithTx(tx *gorm.DB) *AffiliateInvoiceRepository {
	return &AffiliateInvoiceRepository{db: tx}
}

func (r *AffiliateInvoiceRepository) Create(inv *models.AffiliateInvoice) error {
	return r.db.Omit(clause.Associations).Create(inv).Error
}

// GetByID returns the invoice with its commissions.
func (r *AffiliateInvoiceRepository) GetByID(id uint) (*models.AffiliateInvoice, error) {
	var inv models.AffiliateInvoice
	err := r.db.Preload("Commissions", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).First(&inv, id).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *AffiliateInvoiceRepository) ListByAffiliate(affiliateID uint) ([]models.AffiliateInvoice, error) {
	var list []models.AffiliateInvoice
	err := r.db.Where("affiliate_id = ?", affiliateID).Order("year DESC, month DESC").Find(&list).Error
	return list, err
}

func (r *AffiliateInvoiceRepository) List(status string, page, limit int) ([]models.AffiliateInvoice, int64, error) {
	q := r.db.Model(&models.AffiliateInvoice{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.AffiliateInvoice
	err := q.Order("created_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&list).Error
	return list, total, err
}

// LastNumberWithPrefix returns the highest invoice number starting with prefix, or "" when there
// is none. Longer numbers sort first so a sequence past 9999 still wins over 9999.
func (r *AffiliateInvoiceRepository) LastNumberWithPrefix(prefix string) (string, error) {
	var numbers []string
	err := r.db.Model(&models.AffiliateInvoice{}).
		Where("invoice_number LIKE ?", prefix+"%").
		Order("LENGTH(invoice_number) DESC").
		Order("invoice_number DESC").
		Limit(1).
		Pluck("invoice_number", &numbers).Error
	if err != nil || len(numbers) == 0 {
		return "", err
	}
	return numbers[0], nil
}

func (r *AffiliateInvoiceRepository) ExistsForPeriod(affiliateID uint, month, year int) (bool, error) {
	var n int64
	err := r.db.Model(&models.AffiliateInvoice{}).
		Where("affiliate_id = ? AND month = ? AND year = ?", affiliateID, month, year).
		Count(&n).Error
	return n > 0, err
}

// MarkPaid settles a pending invoice and reports whether it did.
func (r *AffiliateInvoiceRepository) MarkPaid(id uint, at time.Time, method, notes string) (bool, error) {
	res := r.db.Model(&models.AffiliateInvoice{}).
		Where("id = ? AND status = ?", id, domain.InvoiceStatusPending).
		Updates(map[string]interface{}{
			"status":         domain.InvoiceStatusPaid,
			"paid_at":        at,
			"payment_method": method,
			"payment_notes":  notes,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *AffiliateInvoiceRepository) DeleteByAffiliate(affiliateID uint) error {
	return r.db.Where("affiliate_id = ?", affiliateID).Delete(&models.AffiliateInvoice{}).Error
}
