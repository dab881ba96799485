package models

import "time"

// AffiliateRequest is a candidate recommended by an existing affiliate, pending admin review.
type AffiliateRequest struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	RecommendedByID    uint       `gorm:"not null;index" json:"recommended_by"`
	Name               string     `gorm:"size:128;not null" json:"name"`
	Email              string     `gorm:"size:255;not null;index" json:"email"`
	Phone              string     `gorm:"size:32" json:"phone"`
	Message            string     `gorm:"type:text" json:"message"`
	Status             string     `gorm:"size:16;not null;index" json:"status"` // pending | approved | rejected
	ReviewedByID       *uint      `json:"reviewed_by"`
	ReviewedAt         *time.Time `json:"reviewed_at"`
	CreatedAffiliateID *uint      `json:"created_affiliate_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	RecommendedBy Affiliate `gorm:"foreignKey:RecommendedByID;constraint:OnDelete:CASCADE" json:"-"`
}

func (AffiliateRequest) TableName() string { return "affiliate_requests" }
