package repository

import (
	"time"

	"learnhub/internal/domain"
	"learnhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AffiliateRequestRepository struct {
	db *gorm.DB
}

func NewAffiliateRequestRepository(db *gorm.DB) *AffiliateRequestRepository {
	return &AffiliateRequestRepository{db: db}
}

func (r *AffiliateRequestRepository) WithTx(tx *gorm.DB) *AffiliateRequestRepository {
	return &AffiliateRequestRepository{db: tx}
}

func (r *AffiliateRequestRepository) Create(req *models.AffiliateRequest) error {
	return r.db.Omit(clause.Associations).Create(req).Error
}

func (r *AffiliateRequestRepository) GetByID(id uint) (*models.AffiliateRequest, error) {
	var req models.AffiliateRequest
	if err := r.db.First(&req, id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *AffiliateRequestRepository) ListByStatus(status string, page, limit int) ([]models.AffiliateRequest, int64, error) {
	q := r.db.Model(&models.AffiliateRequest{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.AffiliateRequest
	err := q.Order("created_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&list).Error
	return list, total, err
}

func (r *AffiliateRequestRepository) ListByRecommender(affiliateID uint) ([]models.AffiliateRequest, error) {
	var list []models.AffiliateRequest
	err := r.db.Where("recommended_by_id = ?", affiliateID).Order("created_at DESC").Find(&list).Error
	return list, err
}

// Review moves a pending request to status and reports whether it did.
func (r *AffiliateRequestRepository) Review(id uint, status string, reviewerID uint, at time.Time, createdAffiliateID *uint) (bool, error) {
	res := r.db.Model(&models.AffiliateRequest{}).
		Where("id = ? AND status = ?", id, domain.RequestStatusPending).
		Updates(map[string]interface{}{
			"status":               status,
			"reviewed_by_id":       reviewerID,
			"reviewed_at":          at,
			"created_affiliate_id": createdAffiliateID,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *AffiliateRequestRepository) DeleteByRecommender(affiliateID uint) error {
	return r.db.Where("recommended_by_id = ?", affiliateID).Delete(&models.AffiliateRequest{}).Error
}
