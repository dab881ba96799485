package models

import "time"

// AffiliateClick is one visit to an affiliate landing link. A click converts at most once.
type AffiliateClick struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	AffiliateID     uint       `gorm:"not null;index" json:"affiliate_id"`
	IPAddress       string     `gorm:"size:45" json:"ip_address"`
	UserAgent       string     `gorm:"size:512" json:"user_agent"`
	Referer         string     `gorm:"size:1024" json:"referer"`
	ConvertedUserID *uint      `gorm:"index" json:"converted_user_id"`
	ConvertedAt     *time.Time `json:"converted_at"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`

	Affiliate Affiliate `gorm:"foreignKey:AffiliateID;constraint:OnDelete:CASCADE" json:"-"`
}

func (AffiliateClick) TableName() string { return "affiliate_clicks" }

func (c *AffiliateClick) Converted() bool { return c.ConvertedUserID != nil }
