package models

import (
	"time"

	"gorm.io/gorm"
)

// Plan is a purchasable subscription offering of the catalog.
type Plan struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"size:128;not null" json:"name"`
	Description  string         `gorm:"type:text" json:"description"`
	PriceCents   int64          `gorm:"not null" json:"price_cents"`
	DurationDays int            `gorm:"not null" json:"duration_days"`
	IsActive     bool           `gorm:"not null;index" json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Plan) TableName() string { return "plans" }
