package service

import (
	"context"
	"crypto/rand"
	"errors"
	"log"
	"math/big"
	"strings"

	"learnhub/internal/domain"
	"learnhub/internal/models"
	"learnhub/internal/repository"

	"gorm.io/gorm"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// AffiliateService owns the affiliate registry: creation, onboarding, activation, admin
// maintenance and the recommendation workflow.
type AffiliateService struct {
	db             *gorm.DB
	affiliateRepo  *repository.AffiliateRepository
	userRepo       *repository.UserRepository
	clickRepo      *repository.AffiliateClickRepository
	commissionRepo *repository.AffiliateCommissionRepository
	invoiceRepo    *repository.AffiliateInvoiceRepository
	requestRepo    *repository.AffiliateRequestRepository
	auditRepo      *repository.AuditLogRepository
	settings       *SettingsService
	notifier       *NotificationService
	baseURL        string
	now            Clock
	newCode        CodeSource
}

// CodeSource draws a candidate affiliate code of length n.
type CodeSource func(n int) (string, error)

func NewAffiliateService(
	db *gorm.DB,
	affiliateRepo *repository.AffiliateRepository,
	userRepo *repository.UserRepository,
	clickRepo *repository.AffiliateClickRepository,
	commissionRepo *repository.AffiliateCommissionRepository,
	invoiceRepo *repository.AffiliateInvoiceRepository,
	requestRepo *repository.AffiliateRequestRepository,
	auditRepo *repository.AuditLogRepository,
	settings *SettingsService,
	notifier *NotificationService,
	baseURL string,
) *AffiliateService {
	return &AffiliateService{
		db:             db,
		affiliateRepo:  affiliateRepo,
		userRepo:       userRepo,
		clickRepo:      clickRepo,
		commissionRepo: commissionRepo,
		invoiceRepo:    invoiceRepo,
		requestRepo:    requestRepo,
		auditRepo:      auditRepo,
		settings:       settings,
		notifier:       notifier,
		baseURL:        baseURL,
		now:            SystemClock,
		newCode:        randomCode,
	}
}

func (s *AffiliateService) SetClock(c Clock) { s.now = c }

func (s *AffiliateService) SetCodeSource(src CodeSource) { s.newCode = src }

// GenerateUniqueCode draws codes until one is not taken by any affiliate.
func (s *AffiliateService) GenerateUniqueCode(repo *repository.AffiliateRepository) (string, error) {
	for {
		code, err := s.newCode(domain.AffiliateCodeLength)
		if err != nil {
			return "", err
		}
		exists, err := repo.CodeExists(code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
}

func randomCode(n int) (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[idx.Int64()])
	}
	return b.String(), nil
}

// CreateForUser creates the affiliate row of userID with the default rates. It must run inside
// the transaction that created or promoted the user; tx may be the root handle.
func (s *AffiliateService) CreateForUser(tx *gorm.DB, userID uint, recommendedBy *uint) (*models.Affiliate, error) {
	repo := s.affiliateRepo.WithTx(tx)
	if _, err := repo.GetByUserID(userID); err == nil {
		return nil, domain.ErrAffiliateExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	code, err := s.GenerateUniqueCode(repo)
	if err != nil {
		return nil, err
	}
	cfg := s.settings.WithTx(tx).Affiliate()
	a := &models.Affiliate{
		UserID:            userID,
		UniqueCode:        code,
		CommissionRate:    cfg.DefaultCommissionRate,
		ReferralBonusRate: cfg.DefaultReferralBonusRate,
		RecommendedByID:   recommendedBy,
	}
	if err := repo.Create(a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AffiliateService) GetByID(id uint) (*models.Affiliate, error) {
	a, err := s.affiliateRepo.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAffiliateNotFound
	}
	return a, err
}

// GetForUser returns the affiliate profile of the logged-in user.
func (s *AffiliateService) GetForUser(userID uint) (*models.Affiliate, error) {
	a, err := s.affiliateRepo.GetByUserID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAffiliateNotFound
	}
	return a, err
}

func (s *AffiliateService) Link(a *models.Affiliate) string {
	return a.Link(s.baseURL)
}

type BankInfo struct {
	BankName          string `json:"bank_name" binding:"required,max=128"`
	AccountHolderName string `json:"account_holder_name" binding:"required,max=128"`
	IBAN              string `json:"iban" binding:"required,iban"`
	SwiftBIC          string `json:"swift_bic" binding:"omitempty,min=8,max=11"`
}

type CompanyInfo struct {
	CompanyName         string `json:"company_name" binding:"required,max=255"`
	CompanyRegistration string `json:"company_registration" binding:"omitempty,max=64"`
	TaxID               string `json:"tax_id" binding:"omitempty,max=64"`
	CompanyAddress      string `json:"company_address" binding:"required"`
}

func (s *AffiliateService) UpdateBankInfo(ctx context.Context, userID uint, in BankInfo) (*models.Affiliate, error) {
	a, err := s.GetForUser(userID)
	if err != nil {
		return nil, err
	}
	fields := map[string]interface{}{
		"bank_name":           strings.TrimSpace(in.BankName),
		"account_holder_name": strings.TrimSpace(in.AccountHolderName),
		"iban":                normalizeIBAN(in.IBAN),
		"swift_bic":           strings.ToUpper(strings.TrimSpace(in.SwiftBIC)),
	}
	if err := s.affiliateRepo.WithTx(s.db.WithContext(ctx)).UpdateFields(a.ID, fields); err != nil {
		return nil, err
	}
	return s.affiliateRepo.GetByID(a.ID)
}

func (s *AffiliateService) UpdateCompanyInfo(ctx context.Context, userID uint, in CompanyInfo) (*models.Affiliate, error) {
	a, err := s.GetForUser(userID)
	if err != nil {
		return nil, err
	}
	fields := map[string]interface{}{
		"company_name":         strings.TrimSpace(in.CompanyName),
		"company_registration": strings.TrimSpace(in.CompanyRegistration),
		"tax_id":               strings.TrimSpace(in.TaxID),
		"company_address":      strings.TrimSpace(in.CompanyAddress),
	}
	if err := s.affiliateRepo.WithTx(s.db.WithContext(ctx)).UpdateFields(a.ID, fields); err != nil {
		return nil, err
	}
	return s.affiliateRepo.GetByID(a.ID)
}

func normalizeIBAN(iban string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(iban), " ", ""))
}

// SignContract stores the signature and activates the affiliate. It is the only path that
// sets is_active to true for a new affiliate.
func (s *AffiliateService) SignContract(ctx context.Context, userID uint, signature string) (*models.Affiliate, error) {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return nil, domain.ErrSignatureRequired
	}
	a, err := s.GetForUser(userID)
	if err != nil {
		return nil, err
	}
	if a.ContractSigned {
		return nil, domain.ErrContractAlreadySigned
	}
	at := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.affiliateRepo.WithTx(tx).UpdateFields(a.ID, map[string]interface{}{
			"contract_signed":    true,
			"signature":          signature,
			"contract_signed_at": at,
			"is_active":          true,
		}); err != nil {
			return err
		}
		return recordAudit(s.auditRepo.WithTx(tx), userID, "affiliate.contract_signed", "affiliate", a.ID, nil)
	})
	if err != nil {
		return nil, err
	}
	a.ContractSigned = true
	a.Signature = signature
	a.ContractSignedAt = &at
	a.IsActive = true
	log.Printf("[affiliate] %d signed contract, now active", a.ID)
	s.notifier.NotifyAffiliateActivated(a.UserID)
	return a, nil
}

// Dashboard is the affiliate's own overview.
type Dashboard struct {
	Affiliate           *models.Affiliate            `json:"affiliate"`
	Link                string                       `json:"link"`
	TotalClicks         int64                        `json:"total_clicks"`
	ConvertedClicks     int64                        `json:"converted_clicks"`
	ConversionRate      float64                      `json:"conversion_rate"`
	Commissions         []repository.CommissionTotal `json:"commissions"`
	BankInfoComplete    bool                         `json:"bank_info_complete"`
	CompanyInfoComplete bool                         `json:"company_info_complete"`
	OnboardingComplete  bool                         `json:"onboarding_complete"`
	Referrals           int                          `json:"referrals"`
}

func (s *AffiliateService) Dashboard(a *models.Affiliate) (*Dashboard, error) {
	stats, err := s.clickRepo.Stats(a.ID)
	if err != nil {
		return nil, err
	}
	totals, err := s.commissionRepo.TotalsByStatus(a.ID)
	if err != nil {
		return nil, err
	}
	refs, err := s.affiliateRepo.ListByRecommender(a.ID)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		Affiliate:           a,
		Link:                s.Link(a),
		TotalClicks:         stats.Total,
		ConvertedClicks:     stats.Converted,
		ConversionRate:      conversionRate(stats),
		Commissions:         totals,
		BankInfoComplete:    a.IsBankInfoComplete(),
		CompanyInfoComplete: a.IsCompanyInfoComplete(),
		OnboardingComplete:  a.IsOnboardingComplete(),
		Referrals:           len(refs),
	}, nil
}

// ListReferrals returns the affiliates this affiliate recommended.
func (s *AffiliateService) ListReferrals(affiliateID uint) ([]models.Affiliate, error) {
	return s.affiliateRepo.ListByRecommender(affiliateID)
}

func (s *AffiliateService) List(activeOnly bool, page, limit int) ([]models.Affiliate, int64, error) {
	return s.affiliateRepo.List(activeOnly, page, limit)
}

// SetRates changes future commission rates. Existing commissions keep their snapshot.
func (s *AffiliateService) SetRates(ctx context.Context, adminID, affiliateID uint, commissionRate, referralBonusRate float64) (*models.Affiliate, error) {
	if commissionRate < 0 || commissionRate > 100 || referralBonusRate < 0 || referralBonusRate > 100 {
		return nil, domain.Validation("rates must be between 0 and 100")
	}
	return s.adminUpdate(ctx, adminID, affiliateID, "affiliate.rates_changed", map[string]interface{}{
		"commission_rate":     commissionRate,
		"referral_bonus_rate": referralBonusRate,
	})
}

func (s *AffiliateService) SetActive(ctx context.Context, adminID, affiliateID uint, active bool) (*models.Affiliate, error) {
	return s.adminUpdate(ctx, adminID, affiliateID, "affiliate.active_changed", map[string]interface{}{"is_active": active})
}

func (s *AffiliateService) SetCanRecommend(ctx context.Context, adminID, affiliateID uint, allowed bool) (*models.Affiliate, error) {
	return s.adminUpdate(ctx, adminID, affiliateID, "affiliate.can_recommend_changed", map[string]interface{}{"can_recommend": allowed})
}

func (s *AffiliateService) adminUpdate(ctx context.Context, adminID, affiliateID uint, action string, fields map[string]interface{}) (*models.Affiliate, error) {
	if _, err := s.GetByID(affiliateID); err != nil {
		return nil, err
	}
	meta := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		meta[k] = v
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.affiliateRepo.WithTx(tx).UpdateFields(affiliateID, fields); err != nil {
			return err
		}
		return recordAudit(s.auditRepo.WithTx(tx), adminID, action, "affiliate", affiliateID, meta)
	})
	if err != nil {
		return nil, err
	}
	return s.affiliateRepo.GetByID(affiliateID)
}

// Delete removes an affiliate with its clicks, commissions, invoices and requests. Affiliates
// it recommended stay and lose the back-reference.
func (s *AffiliateService) Delete(ctx context.Context, adminID, affiliateID uint) error {
	a, err := s.GetByID(affiliateID)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.clickRepo.WithTx(tx).DeleteByAffiliate(a.ID); err != nil {
			return err
		}
		if err := s.commissionRepo.WithTx(tx).DeleteByAffiliate(a.ID); err != nil {
			return err
		}
		if err := s.invoiceRepo.WithTx(tx).DeleteByAffiliate(a.ID); err != nil {
			return err
		}
		if err := s.requestRepo.WithTx(tx).DeleteByRecommender(a.ID); err != nil {
			return err
		}
		if err := s.affiliateRepo.WithTx(tx).ClearRecommender(a.ID); err != nil {
			return err
		}
		if err := s.affiliateRepo.WithTx(tx).Delete(a.ID); err != nil {
			return err
		}
		return recordAudit(s.auditRepo.WithTx(tx), adminID, "affiliate.deleted", "affiliate", a.ID,
			map[string]interface{}{"user_id": a.UserID, "code": a.UniqueCode})
	})
}

type RecommendationInput struct {
	Name    string `json:"name" binding:"required,max=255"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone" binding:"omitempty,max=32"`
	Message string `json:"message" binding:"omitempty,max=2000"`
}

// SubmitRequest records a recommendation by the affiliate of userID. The affiliate must exist,
// be active and be allowed to recommend.
func (s *AffiliateService) SubmitRequest(ctx context.Context, userID uint, in RecommendationInput) (*models.AffiliateRequest, error) {
	a, err := s.GetForUser(userID)
	if err != nil {
		return nil, err
	}
	if !a.IsActive {
		return nil, domain.ErrAffiliateInactive
	}
	if !a.CanRecommend {
		return nil, domain.ErrRecommendForbidden
	}
	req := &models.AffiliateRequest{
		RecommendedByID: a.ID,
		Name:            strings.TrimSpace(in.Name),
		Email:           strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:           strings.TrimSpace(in.Phone),
		Message:         strings.TrimSpace(in.Message),
		Status:          domain.RequestStatusPending,
	}
	if err := s.requestRepo.WithTx(s.db.WithContext(ctx)).Create(req); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *AffiliateService) ListMyRequests(affiliateID uint) ([]models.AffiliateRequest, error) {
	return s.requestRepo.ListByRecommender(affiliateID)
}

func (s *AffiliateService) ListRequests(status string, page, limit int) ([]models.AffiliateRequest, int64, error) {
	return s.requestRepo.ListByStatus(status, page, limit)
}

// ApproveRequest creates the candidate's AFFILIATE user and affiliate profile, linked to the
// recommender, and closes the request. passwordHash is the initial credential chosen by the admin.
func (s *AffiliateService) ApproveRequest(ctx context.Context, adminID, requestID uint, passwordHash string) (*models.Affiliate, error) {
	req, err := s.requestRepo.GetByID(requestID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrRequestNotFound
	} else if err != nil {
		return nil, err
	}
	if req.Status != domain.RequestStatusPending {
		return nil, domain.ErrRequestReviewed
	}
	var created *models.Affiliate
	at := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.userRepo.WithTx(tx)
		if err := ensureEmailFree(users, req.Email); err != nil {
			return err
		}
		u := &models.User{Name: req.Name, Email: req.Email, PasswordHash: passwordHash, Role: domain.RoleAffiliate}
		if err := users.Create(u); err != nil {
			return err
		}
		recommender := req.RecommendedByID
		a, err := s.CreateForUser(tx, u.ID, &recommender)
		if err != nil {
			return err
		}
		ok, err := s.requestRepo.WithTx(tx).Review(req.ID, domain.RequestStatusApproved, adminID, at, &a.ID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrRequestReviewed
		}
		created = a
		return recordAudit(s.auditRepo.WithTx(tx), adminID, "affiliate_request.approved", "affiliate_request", req.ID,
			map[string]interface{}{"affiliate_id": a.ID})
	})
	if err != nil {
		return nil, err
	}
	if recommender, err := s.affiliateRepo.GetByID(req.RecommendedByID); err == nil {
		s.notifier.NotifyRequestApproved(recommender.UserID, req.Name)
	}
	return created, nil
}

func (s *AffiliateService) RejectRequest(ctx context.Context, adminID, requestID uint) error {
	req, err := s.requestRepo.GetByID(requestID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrRequestNotFound
	} else if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.requestRepo.WithTx(tx).Review(req.ID, domain.RequestStatusRejected, adminID, s.now(), nil)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrRequestReviewed
		}
		return recordAudit(s.auditRepo.WithTx(tx), adminID, "affiliate_request.rejected", "affiliate_request", req.ID, nil)
	})
}
