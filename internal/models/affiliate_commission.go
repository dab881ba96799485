package models

import "time"

// AffiliateCommission is an amount owed to an affiliate for one purchase. CommissionRate is the
// rate captured when the commission was created.
type AffiliateCommission struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	AffiliateID         uint       `gorm:"not null;index;index:idx_commission_source,unique" json:"affiliate_id"`
	UserID              uint       `gorm:"not null;index" json:"user_id"`
	PurchasedPlanID     *uint      `gorm:"index:idx_commission_source,unique" json:"purchased_plan_id"`
	Type                string     `gorm:"size:16;not null;index:idx_commission_source,unique" json:"type"` // direct | referral
	AmountCents         int64      `gorm:"not null" json:"amount_cents"`
	PurchaseAmountCents int64      `gorm:"not null" json:"purchase_amount_cents"`
	CommissionRate      float64    `gorm:"type:decimal(5,2);not null" json:"commission_rate"`
	Status              string     `gorm:"size:16;not null;index" json:"status"` // pending | paid | cancelled
	InvoiceID           *uint      `gorm:"index" json:"invoice_id"`
	CancelledAt         *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt           time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`

	Affiliate Affiliate `gorm:"foreignKey:AffiliateID;constraint:OnDelete:CASCADE" json:"-"`
}

func (AffiliateCommission) TableName() string { return "affiliate_commissions" }
