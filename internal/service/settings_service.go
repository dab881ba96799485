package service

import (
	"strconv"
	"strings"

	"learnhub/config"
	"learnhub/internal/domain"
	"learnhub/internal/models"
	"learnhub/internal/repository"

	"gorm.io/gorm"
)

// AffiliateSettings is the effective affiliate program configuration.
type AffiliateSettings struct {
	DefaultCommissionRate    float64 `json:"default_commission_rate"`
	DefaultReferralBonusRate float64 `json:"default_referral_bonus_rate"`
	CookieLifetimeDays       int     `json:"cookie_lifetime_days"`
	MinPayoutCents           int64   `json:"min_payout_cents"`
	InvoiceAutoGenerate      bool    `json:"invoice_auto_generate"`
	InvoiceGenerationDay     int     `json:"invoice_generation_day"`
}

// SettingsService reads admin overrides from system settings, falling back to config.
type SettingsService struct {
	repo *repository.SettingRepository
	cfg  *config.AffiliateConfig
}

func NewSettingsService(repo *repository.SettingRepository, cfg *config.AffiliateConfig) *SettingsService {
	return &SettingsService{repo: repo, cfg: cfg}
}

// WithTx binds reads to tx so they can run inside another service's transaction.
func (s *SettingsService) WithTx(tx *gorm.DB) *SettingsService {
	return &SettingsService{repo: s.repo.WithTx(tx), cfg: s.cfg}
}

func (s *SettingsService) Affiliate() AffiliateSettings {
	return AffiliateSettings{
		DefaultCommissionRate:    s.getFloat(domain.SettingDefaultCommissionRate, s.cfg.DefaultCommissionRate),
		DefaultReferralBonusRate: s.getFloat(domain.SettingDefaultReferralBonusRate, s.cfg.DefaultReferralBonusRate),
		CookieLifetimeDays:       s.getInt(domain.SettingCookieLifetimeDays, s.cfg.CookieLifetimeDays),
		MinPayoutCents:           int64(s.getInt(domain.SettingMinPayoutCents, int(s.cfg.MinPayoutCents))),
		InvoiceAutoGenerate:      s.getBool(domain.SettingInvoiceAutoGenerate, s.cfg.InvoiceAutoGenerate),
		InvoiceGenerationDay:     s.getInt(domain.SettingInvoiceGenerationDay, s.cfg.InvoiceGenerationDay),
	}
}

// SeedDefaults writes the config values as settings rows when they are missing.
func (s *SettingsService) SeedDefaults() error {
	return s.repo.SeedDefaults(map[string]string{
		domain.SettingDefaultCommissionRate:    strconv.FormatFloat(s.cfg.DefaultCommissionRate, 'f', 2, 64),
		domain.SettingDefaultReferralBonusRate: strconv.FormatFloat(s.cfg.DefaultReferralBonusRate, 'f', 2, 64),
		domain.SettingCookieLifetimeDays:       strconv.Itoa(s.cfg.CookieLifetimeDays),
		domain.SettingMinPayoutCents:           strconv.FormatInt(s.cfg.MinPayoutCents, 10),
		domain.SettingInvoiceAutoGenerate:      strconv.FormatBool(s.cfg.InvoiceAutoGenerate),
		domain.SettingInvoiceGenerationDay:     strconv.Itoa(s.cfg.InvoiceGenerationDay),
	})
}

func (s *SettingsService) All() ([]models.SystemSetting, error) {
	return s.repo.GetAll()
}

// Set stores an admin override. Only known keys are accepted and values must parse as the
// key's type.
func (s *SettingsService) Set(key, value string) error {
	value = strings.TrimSpace(value)
	var err error
	switch key {
	case domain.SettingDefaultCommissionRate, domain.SettingDefaultReferralBonusRate:
		_, err = strconv.ParseFloat(value, 64)
	case domain.SettingCookieLifetimeDays, domain.SettingInvoiceGenerationDay:
		_, err = strconv.Atoi(value)
	case domain.SettingMinPayoutCents:
		_, err = strconv.ParseInt(value, 10, 64)
	case domain.SettingInvoiceAutoGenerate:
		_, err = strconv.ParseBool(value)
	default:
		return domain.Validation("unknown setting " + key)
	}
	if err != nil {
		return domain.Validation("invalid value for " + key)
	}
	return s.repo.Set(key, value)
}

func (s *SettingsService) getString(key string) (string, bool) {
	if s.repo == nil {
		return "", false
	}
	val, err := s.repo.Get(key)
	if err != nil || val == "" {
		return "", false
	}
	return val, true
}

func (s *SettingsService) getInt(key string, fallback int) int {
	val, ok := s.getString(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

func (s *SettingsService) getFloat(key string, fallback float64) float64 {
	val, ok := s.getString(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return f
}

func (s *SettingsService) getBool(key string, fallback bool) bool {
	val, ok := s.getString(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return b
}
