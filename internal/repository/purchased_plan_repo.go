package repository

import (
	"time"

	"learnhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PurchasedPlanRepository struct {
	db *gorm.DB
}

func NewPurchasedPlanRepository(db *gorm.DB) *PurchasedPlanRepository {
	return &PurchasedPlanRepository{db: db}
}

func (r *PurchasedPlanRepository) WithTx(tx *gorm.DB) *PurchasedPlanRepository {
	return &PurchasedPlanRepository{db: tx}
}

func (r *PurchasedPlanRepository) Create(p *models.PurchasedPlan) error {
	return r.db.Omit(clause.Associations).Create(p).Error
}

func (r *PurchasedPlanRepository) GetByID(id uint) (*models.PurchasedPlan, error) {
	var p models.PurchasedPlan
	if err := r.db.Preload("Plan").First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetForUpdate loads a purchased plan owned by userID and locks the row for the transaction.
func (r *PurchasedPlanRepository) GetForUpdate(id, userID uint) (*models.PurchasedPlan, error) {
	var p models.PurchasedPlan
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", id, userID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PurchasedPlanRepository) ListByUser(userID uint) ([]models.PurchasedPlan, error) {
	var list []models.PurchasedPlan
	err := r.db.Preload("Plan").Where("user_id = ?", userID).Order("expires_at DESC").Find(&list).Error
	return list, err
}

// SetChild assigns (or with nil, unassigns) the plan's child profile.
func (r *PurchasedPlanRepository) SetChild(id uint, childID *uint, at *time.Time) error {
	return r.db.Model(&models.PurchasedPlan{}).Where("id = ?", id).
		Updates(map[string]interface{}{"child_profile_id": childID, "assigned_at": at}).Error
}

// UnassignChild detaches every plan from the given child profile.
func (r *PurchasedPlanRepository) UnassignChild(childID uint) error {
	return r.db.Model(&models.PurchasedPlan{}).Where("child_profile_id = ?", childID).
		Updates(map[string]interface{}{"child_profile_id": nil, "assigned_at": nil}).Error
}

func (r *PurchasedPlanRepository) CountActive(now time.Time) (int64, error) {
	var n int64
	err := r.db.Model(&models.PurchasedPlan{}).Where("is_active = ? AND expires_at > ?", true, now).Count(&n).Error
	return n, err
}
