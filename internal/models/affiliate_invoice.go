package models

import (
	"fmt"
	"time"
)

// AffiliateInvoice batches the pending commissions of one affiliate for one billing period.
type AffiliateInvoice struct {
	ID                    uint       `gorm:"primaryKey" json:"id"`
	AffiliateID           uint       `gorm:"not null;index;uniqueIndex:idx_invoice_period" json:"affiliate_id"`
	InvoiceNumber         string     `gorm:"uniqueIndex;size:32;not null" json:"invoice_number"`
	Month                 int        `gorm:"not null;uniqueIndex:idx_invoice_period" json:"month"`
	Year                  int        `gorm:"not null;uniqueIndex:idx_invoice_period" json:"year"`
	TotalAmountCents      int64      `gorm:"not null" json:"total_amount_cents"`
	TotalCommissionsCount int        `gorm:"not null" json:"total_commissions_count"`
	Status                string     `gorm:"size:16;not null;index" json:"status"` // pending | paid
	PaidAt                *time.Time `json:"paid_at"`
	PaymentMethod         string     `gorm:"size:64" json:"payment_method"`
	PaymentNotes          string     `gorm:"type:text" json:"payment_notes"`
	CreatedAt             time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`

	Affiliate   Affiliate             `gorm:"foreignKey:AffiliateID;constraint:OnDelete:CASCADE" json:"-"`
	Commissions []AffiliateCommission `gorm:"foreignKey:InvoiceID" json:"commissions,omitempty"`
}

func (AffiliateInvoice) TableName() string { return "affiliate_invoices" }

// Period returns the billing period label, e.g. "March 2026".
func (i *AffiliateInvoice) Period() string {
	if i.Month < 1 || i.Month > 12 {
		return fmt.Sprintf("%02d/%d", i.Month, i.Year)
	}
	return fmt.Sprintf("%s %d", time.Month(i.Month), i.Year)
}
