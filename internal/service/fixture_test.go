package service

import (
	"testing"
	"time"

	"learnhub/config"
	"learnhub/internal/database"
	"learnhub/internal/domain"
	"learnhub/internal/models"
	"learnhub/internal/repository"
	"learnhub/pkg/payment"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory database. One connection keeps every query on the same
// memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

type fixture struct {
	db            *gorm.DB
	cfg           *config.Config
	now           time.Time
	provider      *payment.StubProvider
	settings      *SettingsService
	affiliates    *AffiliateService
	attribution   *AttributionService
	commissions   *CommissionService
	invoices      *InvoiceService
	subscriptions *SubscriptionService
	children      *ChildService
	auth          *AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	cfg := &config.Config{
		JWT: config.JWTConfig{
			AccessSecret:  "access-secret",
			RefreshSecret: "refresh-secret",
			AccessExpiry:  time.Minute,
			RefreshExpiry: time.Hour,
			Issuer:        "learnhub-test",
		},
		Payment: config.PaymentConfig{Currency: "EUR", PaymentExpiry: time.Minute},
		Affiliate: config.AffiliateConfig{
			BaseURL:                  "https://learnhub.test",
			SignupPath:               "/register",
			DefaultCommissionRate:    10,
			DefaultReferralBonusRate: 5,
			CookieName:               "affiliate_ref",
			CookieSecret:             "cookie-secret",
			CookieLifetimeDays:       30,
			InvoiceGenerationDay:     1,
		},
	}

	userRepo := repository.NewUserRepository(db)
	affiliateRepo := repository.NewAffiliateRepository(db)
	clickRepo := repository.NewAffiliateClickRepository(db)
	commissionRepo := repository.NewAffiliateCommissionRepository(db)
	invoiceRepo := repository.NewAffiliateInvoiceRepository(db)
	requestRepo := repository.NewAffiliateRequestRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	ppRepo := repository.NewPurchasedPlanRepository(db)
	childRepo := repository.NewChildProfileRepository(db)

	f := &fixture{
		db:       db,
		cfg:      cfg,
		now:      time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC),
		provider: &payment.StubProvider{},
	}
	clock := func() time.Time { return f.now }

	notifier := NewNotificationService(repository.NewNotificationRepository(db), userRepo, nil)
	f.settings = NewSettingsService(repository.NewSettingRepository(db), &cfg.Affiliate)
	f.affiliates = NewAffiliateService(db, affiliateRepo, userRepo, clickRepo, commissionRepo, invoiceRepo, requestRepo, auditRepo, f.settings, notifier, cfg.Affiliate.BaseURL)
	f.attribution = NewAttributionService(db, affiliateRepo, clickRepo, userRepo, f.settings, cfg.Affiliate.CookieSecret)
	f.commissions = NewCommissionService(db, affiliateRepo, commissionRepo, auditRepo, notifier)
	f.invoices = NewInvoiceService(db, affiliateRepo, commissionRepo, invoiceRepo, auditRepo, f.settings, notifier)
	f.subscriptions = NewSubscriptionService(db, repository.NewPlanRepository(db), ppRepo, childRepo, userRepo,
		repository.NewPaymentRepository(db), f.commissions, f.provider, cfg.Payment.Currency, cfg.Payment.PaymentExpiry)
	f.children = NewChildService(db, childRepo, ppRepo, nil)
	f.auth = NewAuthService(cfg, db, userRepo, auditRepo, f.affiliates, f.attribution)

	f.affiliates.SetClock(clock)
	f.attribution.SetClock(clock)
	f.commissions.SetClock(clock)
	f.invoices.SetClock(clock)
	f.subscriptions.SetClock(clock)
	f.children.SetClock(clock)
	return f
}

func (f *fixture) user(t *testing.T, email, role string) *models.User {
	t.Helper()
	u := &models.User{Name: email, Email: email, PasswordHash: "x", Role: role}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

// affiliate creates an active affiliate, optionally recommended by another one.
func (f *fixture) affiliate(t *testing.T, email string, recommendedBy *models.Affiliate) *models.Affiliate {
	t.Helper()
	u := f.user(t, email, domain.RoleAffiliate)
	var ref *uint
	if recommendedBy != nil {
		ref = &recommendedBy.ID
	}
	a, err := f.affiliates.CreateForUser(f.db, u.ID, ref)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(a).Update("is_active", true).Error)
	a.IsActive = true
	return a
}

// commission inserts a pending commission created at the given time.
func (f *fixture) commission(t *testing.T, a *models.Affiliate, cents int64, at time.Time) *models.AffiliateCommission {
	t.Helper()
	c := &models.AffiliateCommission{
		AffiliateID:         a.ID,
		UserID:              a.UserID,
		Type:                domain.CommissionTypeDirect,
		AmountCents:         cents,
		PurchaseAmountCents: cents * 10,
		CommissionRate:      10,
		Status:              domain.CommissionStatusPending,
		CreatedAt:           at,
		UpdatedAt:           at,
	}
	require.NoError(t, f.db.Create(c).Error)
	return c
}

func (f *fixture) plan(t *testing.T, cents int64, days int, active bool) *models.Plan {
	t.Helper()
	p := &models.Plan{Name: "Plan", PriceCents: cents, DurationDays: days, IsActive: active}
	require.NoError(t, f.db.Create(p).Error)
	return p
}
