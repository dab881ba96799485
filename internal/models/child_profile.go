package models

import (
	"time"

	"gorm.io/gorm"
)

// ChildProfile is a learner profile owned by exactly one parent user.
type ChildProfile struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ParentID    uint           `gorm:"not null;index" json:"parent_id"`
	Name        string         `gorm:"size:128;not null" json:"name"`
	DateOfBirth *time.Time     `json:"date_of_birth"`
	GradeLevel  string         `gorm:"size:32" json:"grade_level"`
	AvatarURL   string         `gorm:"size:512" json:"avatar_url"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	PurchasedPlans []PurchasedPlan `gorm:"foreignKey:ChildProfileID" json:"purchased_plans,omitempty"`
}

func (ChildProfile) TableName() string { return "child_profiles" }

// CurrentPlan returns the active plan with the latest expiry, or nil. PurchasedPlans must be loaded.
func (c *ChildProfile) CurrentPlan(now time.Time) *PurchasedPlan {
	var current *PurchasedPlan
	for i := range c.PurchasedPlans {
		p := &c.PurchasedPlans[i]
		if !p.Active(now) {
			continue
		}
		if current == nil || p.ExpiresAt.After(current.ExpiresAt) {
			current = p
		}
	}
	return current
}
