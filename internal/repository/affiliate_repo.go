package repository

import (
	"learnhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AffiliateRepository struct {
	db *gorm.DB
}

func NewAffiliateRepository(db *gorm.DB) *AffiliateRepository {
	return &AffiliateRepository{db: db}
}

func (r *AffiliateRepository) WithTx(tx *gorm.DB) *AffiliateRepository {
	return &AffiliateRepository{db: tx}
}

func (r *AffiliateRepository) Create(a *models.Affiliate) error {
	return r.db.Omit(clause.Associations).Create(a).Error
}

func (r *AffiliateRepository) GetByID(id uint) (*models.Affiliate, error) {
	var a models.Affiliate
	if err := r.db.First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AffiliateRepository) GetByUserID(userID uint) (*models.Affiliate, error) {
	var a models.Affiliate
	if err := r.db.Where("user_id = ?", userID).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// GetActiveByCode returns the active affiliate owning code.
func (r *AffiliateRepository) GetActiveByCode(code string) (*models.Affiliate, error) {
	var a models.Affiliate
	err := r.db.Where("unique_code = ? AND is_active = ?", code, true).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AffiliateRepository) CodeExists(code string) (bool, error) {
	var n int64
	err := r.db.Model(&models.Affiliate{}).Where("unique_code = ?", code).Count(&n).Error
	return n > 0, err
}

// UpdateFields applies a partial update. The referral code is never part of an update.
func (r *AffiliateRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	delete(fields, "unique_code")
	return r.db.Model(&models.Affiliate{}).Where("id = ?", id).Updates(fields).Error
}

// ListByRecommender returns the affiliates recommended by affiliateID.
func (r *AffiliateRepository) ListByRecommender(affiliateID uint) ([]models.Affiliate, error) {
	var list []models.Affiliate
	err := r.db.Preload("User").Where("recommended_by_id = ?", affiliateID).Order("created_at DESC").Find(&list).Error
	return list, err
}

// ClearRecommender nullifies the back-reference on every affiliate recommended by affiliateID.
func (r *AffiliateRepository) ClearRecommender(affiliateID uint) error {
	return r.db.Model(&models.Affiliate{}).Where("recommended_by_id = ?", affiliateID).
		Update("recommended_by_id", nil).Error
}

func (r *AffiliateRepository) List(activeOnly bool, page, limit int) ([]models.Affiliate, int64, error) {
	q := r.db.Model(&models.Affiliate{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Affiliate
	err := q.Preload("User").Order("created_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&list).Error
	return list, total, err
}

func (r *AffiliateRepository) ListActiveIDs() ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.Affiliate{}).Where("is_active = ?", true).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

func (r *AffiliateRepository) Delete(id uint) error {
	return r.db.Delete(&models.Affiliate{}, id).Error
}
