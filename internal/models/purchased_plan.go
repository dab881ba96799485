package models

import "time"

// PurchasedPlan is a parent's instance of buying a Plan. PaidPriceCents is a snapshot taken at
// purchase time and never follows later catalog price changes.
type PurchasedPlan struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         uint       `gorm:"not null;index" json:"user_id"`
	PlanID         uint       `gorm:"not null;index" json:"plan_id"`
	ChildProfileID *uint      `gorm:"index" json:"child_profile_id"`
	PaymentID      *uint      `gorm:"index" json:"payment_id,omitempty"`
	PaidPriceCents int64      `gorm:"not null" json:"paid_price_cents"`
	PurchasedAt    time.Time  `gorm:"not null" json:"purchased_at"`
	ExpiresAt      time.Time  `gorm:"not null;index" json:"expires_at"`
	IsActive       bool       `gorm:"not null" json:"is_active"`
	AssignedAt     *time.Time `json:"assigned_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Plan Plan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
}

func (PurchasedPlan) TableName() string { return "purchased_plans" }

// Active reports whether the plan is flagged active and not yet expired at now.
func (p *PurchasedPlan) Active(now time.Time) bool {
	return p.IsActive && p.ExpiresAt.After(now)
}
