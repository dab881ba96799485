package domain

const (
	RoleAdmin     = "ADMIN"
	RoleParent    = "PARENT"
	RoleTeacher   = "TEACHER"
	RoleAffiliate = "AFFILIATE"
)

const (
	CommissionTypeDirect   = "direct"
	CommissionTypeReferral = "referral"
)

const (
	CommissionStatusPending   = "pending"
	CommissionStatusPaid      = "paid"
	CommissionStatusCancelled = "cancelled"
)

const (
	InvoiceStatusPending = "pending"
	InvoiceStatusPaid    = "paid"
)

const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
)

const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusFailed    = "FAILED"
)

// System setting keys (admin-tunable, see SettingsService).
const (
	SettingDefaultCommissionRate    = "affiliate_default_commission_rate"
	SettingDefaultReferralBonusRate = "affiliate_default_referral_bonus_rate"
	SettingCookieLifetimeDays       = "affiliate_cookie_lifetime_days"
	SettingMinPayoutCents           = "affiliate_min_payout_cents"
	SettingInvoiceAutoGenerate      = "affiliate_invoice_auto_generate"
	SettingInvoiceGenerationDay     = "affiliate_invoice_generation_day"
)

const (
	NotifCommissionEarned   = "COMMISSION_EARNED"
	NotifInvoiceCreated     = "INVOICE_CREATED"
	NotifInvoicePaid        = "INVOICE_PAID"
	NotifRequestApproved    = "RECOMMENDATION_APPROVED"
	NotifAffiliateActivated = "AFFILIATE_ACTIVATED"
)

// AffiliateCodeLength is the length of generated referral codes.
const AffiliateCodeLength = 12
