package repository

import (
	"time"

	"learnhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ClickStats struct {
	Total     int64 `json:"total_clicks"`
	Converted int64 `json:"converted_clicks"`
}

type AffiliateClickRepository struct {
	db *gorm.DB
}

func NewAffiliateClickRepository(db *gorm.DB) *AffiliateClickRepository {
	return &AffiliateClickRepository{db: db}
}

func (r *AffiliateClickRepository) WithTx(tx *gorm.DB) *AffiliateClickRepository {
	return &AffiliateClickRepository{db: tx}
}

func (r *AffiliateClickRepository) Create(c *models.AffiliateClick) error {
	return r.db.Omit(clause.Associations).Create(c).Error
}

func (r *AffiliateClickRepository) GetByID(id uint) (*models.AffiliateClick, error) {
	var c models.AffiliateClick
	if err := r.db.First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// MarkConverted converts a click that has not converted yet and reports whether it did.
func (r *AffiliateClickRepository) MarkConverted(id, userID uint, at time.Time) (bool, error) {
	res := r.db.Model(&models.AffiliateClick{}).
		Where("id = ? AND converted_user_id IS NULL", id).
		Updates(map[string]interface{}{"converted_user_id": userID, "converted_at": at})
	return res.RowsAffected == 1, res.Error
}

func (r *AffiliateClickRepository) Stats(affiliateID uint) (ClickStats, error) {
	var s ClickStats
	if err := r.db.Model(&models.AffiliateClick{}).Where("affiliate_id = ?", affiliateID).Count(&s.Total).Error; err != nil {
		return s, err
	}
	err := r.db.Model(&models.AffiliateClick{}).
		Where("affiliate_id = ? AND converted_user_id IS NOT NULL", affiliateID).
		Count(&s.Converted).Error
	return s, err
}

func (r *AffiliateClickRepository) ListByAffiliate(affiliateID uint, limit, offset int) ([]models.AffiliateClick, error) {
	var list []models.AffiliateClick
	err := r.db.Where("affiliate_id = ?", affiliateID).Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

func (r *AffiliateClickRepository) DeleteByAffiliate(affiliateID uint) error {
	return r.db.Where("affiliate_id = ?", affiliateID).Delete(&models.AffiliateClick{}).Error
}
