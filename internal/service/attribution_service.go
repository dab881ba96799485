package service

import (
	"context"
	"errors"
	"log"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"learnhub/internal/auth"
	"learnhub/internal/domain"
	"learnhub/internal/models"
	"learnhub/internal/repository"

	"gorm.io/gorm"
)

// Visit is what the landing route knows about a referral link hit.
type Visit struct {
	Code      string
	IP        string
	UserAgent string
	Referer   string
}

// AttributionService tracks link clicks and turns them into signed attribution tokens that
// survive the signup funnel in a cookie.
type AttributionService struct {
	db            *gorm.DB
	affiliateRepo *repository.AffiliateRepository
	clickRepo     *repository.AffiliateClickRepository
	userRepo      *repository.UserRepository
	settings      *SettingsService
	secret        string
	now           Clock
}

func NewAttributionService(
	db *gorm.DB,
	affiliateRepo *repository.AffiliateRepository,
	clickRepo *repository.AffiliateClickRepository,
	userRepo *repository.UserRepository,
	settings *SettingsService,
	secret string,
) *AttributionService {
	return &AttributionService{
		db:            db,
		affiliateRepo: affiliateRepo,
		clickRepo:     clickRepo,
		userRepo:      userRepo,
		settings:      settings,
		secret:        secret,
		now:           SystemClock,
	}
}

func (s *AttributionService) SetClock(c Clock) { s.now = c }

// CookieLifetime is the current attribution window.
func (s *AttributionService) CookieLifetime() time.Duration {
	days := s.settings.Affiliate().CookieLifetimeDays
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

// RecordClick stores a click for the active affiliate owning v.Code and returns the click with
// its signed attribution token. Repeat visits each get a row.
func (s *AttributionService) RecordClick(ctx context.Context, v Visit) (*models.AffiliateClick, string, error) {
	a, err := s.affiliateRepo.WithTx(s.db.WithContext(ctx)).GetActiveByCode(v.Code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", domain.ErrAffiliateInactive
	} else if err != nil {
		return nil, "", err
	}
	now := s.now()
	click := &models.AffiliateClick{
		AffiliateID: a.ID,
		IPAddress:   truncate(v.IP, 45),
		UserAgent:   truncate(v.UserAgent, 512),
		Referer:     truncate(v.Referer, 1024),
		CreatedAt:   now,
	}
	if err := s.clickRepo.WithTx(s.db.WithContext(ctx)).Create(click); err != nil {
		return nil, "", err
	}
	token, err := auth.SignAttribution(s.secret, auth.Attribution{
		AffiliateID: a.ID,
		ClickID:     click.ID,
		Code:        a.UniqueCode,
	}, now, s.CookieLifetime())
	if err != nil {
		return nil, "", err
	}
	return click, token, nil
}

// ParseToken verifies an attribution token against the service clock.
func (s *AttributionService) ParseToken(token string) (*auth.Attribution, error) {
	a, err := auth.ParseAttribution(s.secret, token, s.now())
	if err != nil {
		return nil, domain.ErrInvalidAttribution
	}
	return a, nil
}

// ConvertClick marks the click as converted by userID. A click that already converted keeps its
// first attribution and the call is a no-op reporting false.
func (s *AttributionService) ConvertClick(clickRepo *repository.AffiliateClickRepository, clickID, userID uint) (bool, error) {
	if _, err := clickRepo.GetByID(clickID); errors.Is(err, gorm.ErrRecordNotFound) {
		return false, domain.ErrClickNotFound
	} else if err != nil {
		return false, err
	}
	return clickRepo.MarkConverted(clickID, userID, s.now())
}

// Attribute links a freshly registered user to the affiliate in the token. It runs inside the
// registration transaction. Invalid tokens and inactive affiliates are ignored.
func (s *AttributionService) Attribute(tx *gorm.DB, token string, userID uint) error {
	if token == "" {
		return nil
	}
	attr, err := s.ParseToken(token)
	if err != nil {
		log.Printf("[attribution] ignoring token for user %d: %v", userID, err)
		return nil
	}
	a, err := s.affiliateRepo.WithTx(tx).GetByID(attr.AffiliateID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	} else if err != nil {
		return err
	}
	if !a.IsActive || a.UniqueCode != attr.Code {
		return nil
	}
	clicks := s.clickRepo.WithTx(tx)
	click, err := clicks.GetByID(attr.ClickID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && click.AffiliateID != a.ID) {
		return nil
	} else if err != nil {
		return err
	}
	if _, err := s.userRepo.WithTx(tx).SetAffiliatedBy(userID, a.ID, s.now()); err != nil {
		return err
	}
	converted, err := s.ConvertClick(clicks, click.ID, userID)
	if err != nil {
		return err
	}
	if converted {
		log.Printf("[attribution] click %d converted by user %d (affiliate %d)", click.ID, userID, a.ID)
	}
	return nil
}

// ConversionRate returns converted/total*100 rounded to two decimals, 0 without clicks.
func (s *AttributionService) ConversionRate(affiliateID uint) (float64, error) {
	stats, err := s.clickRepo.Stats(affiliateID)
	if err != nil {
		return 0, err
	}
	return conversionRate(stats), nil
}

func (s *AttributionService) ListClicks(affiliateID uint, limit, offset int) ([]models.AffiliateClick, error) {
	return s.clickRepo.ListByAffiliate(affiliateID, limit, offset)
}

func conversionRate(st repository.ClickStats) float64 {
	if st.Total == 0 {
		return 0
	}
	return math.Round(float64(st.Converted)/float64(st.Total)*100*100) / 100
}

// truncate caps s at n bytes without splitting a UTF-8 sequence. Invalid input bytes are
// replaced first so the column never receives a malformed string.
func truncate(s string, n int) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
