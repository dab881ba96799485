package models

import (
	"strings"
	"time"
)

// Affiliate is a partner account linked 1:1 to a user. UniqueCode is assigned once at creation
// and never updated.
type Affiliate struct {
	ID                uint    `gorm:"primaryKey" json:"id"`
	UserID            uint    `gorm:"uniqueIndex;not null" json:"user_id"`
	UniqueCode        string  `gorm:"uniqueIndex;size:32;not null" json:"unique_code"`
	CommissionRate    float64 `gorm:"type:decimal(5,2);not null" json:"commission_rate"`
	ReferralBonusRate float64 `gorm:"type:decimal(5,2);not null" json:"referral_bonus_rate"`

	BankName          string `gorm:"size:128" json:"bank_name"`
	AccountHolderName string `gorm:"size:128" json:"account_holder_name"`
	IBAN              string `gorm:"size:34" json:"iban"`
	SwiftBIC          string `gorm:"size:11" json:"swift_bic"`

	CompanyName         string `gorm:"size:255" json:"company_name"`
	CompanyRegistration string `gorm:"size:64" json:"company_registration"`
	TaxID               string `gorm:"size:64" json:"tax_id"`
	CompanyAddress      string `gorm:"type:text" json:"company_address"`

	ContractSigned   bool       `gorm:"not null;default:false" json:"contract_signed"`
	Signature        string     `gorm:"type:text" json:"-"`
	ContractSignedAt *time.Time `json:"contract_signed_at"`

	IsActive     bool `gorm:"not null;default:false;index" json:"is_active"`
	CanRecommend bool `gorm:"not null;default:false" json:"can_recommend"`
	// RecommendedByID is a weak back-reference to the recommending affiliate.
	RecommendedByID *uint     `gorm:"index" json:"recommended_by"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	User          User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	RecommendedBy *Affiliate `gorm:"foreignKey:RecommendedByID;constraint:OnDelete:SET NULL" json:"-"`
}

func (Affiliate) TableName() string { return "affiliates" }

func (a *Affiliate) IsBankInfoComplete() bool {
	return notBlank(a.BankName) && notBlank(a.AccountHolderName) && notBlank(a.IBAN)
}

func (a *Affiliate) IsCompanyInfoComplete() bool {
	return notBlank(a.CompanyName) && notBlank(a.CompanyAddress)
}

// IsOnboardingComplete is derived on every call; it is never stored.
func (a *Affiliate) IsOnboardingComplete() bool {
	return a.IsBankInfoComplete() && a.IsCompanyInfoComplete() && a.ContractSigned
}

// Link returns the public referral link for baseURL.
func (a *Affiliate) Link(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/sales/" + a.UniqueCode
}

func notBlank(s string) bool { return strings.TrimSpace(s) != "" }
