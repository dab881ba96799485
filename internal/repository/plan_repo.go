package repository

import (
	"learnhub/internal/models"

	"gorm.io/gorm"
)

type PlanRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) List(activeOnly bool) ([]models.Plan, error) {
	var list []models.Plan
	q := r.db.Order("price_cents ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	err := q.Find(&list).Error
	return list, err
}

func (r *PlanRepository) GetByID(id uint) (*models.Plan, error) {
	var p models.Plan
	if err := r.db.First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PlanRepository) Create(p *models.Plan) error {
	return r.db.Create(p).Error
}

func (r *PlanRepository) Update(p *models.Plan) error {
	return r.db.Save(p).Error
}
