package models

import (
	"time"

	"gorm.io/datatypes"
)

// Payment records a checkout for a plan purchase.
type Payment struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	UserID      uint              `gorm:"not null;index" json:"user_id"`
	PlanID      uint              `gorm:"not null;index" json:"plan_id"`
	OrderID     string            `gorm:"size:64;uniqueIndex;not null" json:"order_id"`
	AmountCents int64             `gorm:"not null" json:"amount_cents"`
	Currency    string            `gorm:"size:3;not null" json:"currency"`
	Provider    string            `gorm:"size:50;not null" json:"provider"`
	ProviderRef string            `gorm:"size:255;index" json:"provider_ref"`
	Status      string            `gorm:"size:20;not null;index" json:"status"` // PENDING, COMPLETED, FAILED
	Metadata    datatypes.JSONMap `json:"metadata"`
	CompletedAt *time.Time        `json:"completed_at"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }
