package repository

import (
	"learnhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChildProfileRepository struct {
	db *gorm.DB
}

func NewChildProfileRepository(db *gorm.DB) *ChildProfileRepository {
	return &ChildProfileRepository{db: db}
}

func (r *ChildProfileRepository) WithTx(tx *gorm.DB) *ChildProfileRepository {
	return &ChildProfileRepository{db: tx}
}

func (r *ChildProfileRepository) Create(c *models.ChildProfile) error {
	return r.db.Omit(clause.Associations).Create(c).Error
}

// GetByID returns the profile with its purchased plans.
func (r *ChildProfileRepository) GetByID(id uint) (*models.ChildProfile, error) {
	var c models.ChildProfile
	if err := r.db.Preload("PurchasedPlans.Plan").First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetForParent returns the profile only when it belongs to parentID.
func (r *ChildProfileRepository) GetForParent(id, parentID uint) (*models.ChildProfile, error) {
	var c models.ChildProfile
	err := r.db.Preload("PurchasedPlans.Plan").Where("id = ? AND parent_id = ?", id, parentID).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ChildProfileRepository) ListByParent(parentID uint) ([]models.ChildProfile, error) {
	var list []models.ChildProfile
	err := r.db.Preload("PurchasedPlans.Plan").Where("parent_id = ?", parentID).Order("created_at ASC").Find(&list).Error
	return list, err
}

func (r *ChildProfileRepository) Update(c *models.ChildProfile) error {
	return r.db.Omit(clause.Associations).Save(c).Error
}

func (r *ChildProfileRepository) Delete(id uint) error {
	return r.db.Delete(&models.ChildProfile{}, id).Error
}
