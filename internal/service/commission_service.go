package service

import (
	"context"
	"errors"
	"log"
	"math"

	"learnhub/internal/domain"
	"learnhub/internal/models"
	"learnhub/internal/repository"

	"gorm.io/gorm"
)

// CommissionService maintains the commission ledger. Commissions only reach paid through
// InvoiceService.
type CommissionService struct {
	db             *gorm.DB
	affiliateRepo  *repository.AffiliateRepository
	commissionRepo *repository.AffiliateCommissionRepository
	auditRepo      *repository.AuditLogRepository
	notifier       *NotificationService
	now            Clock
}

func NewCommissionService(
	db *gorm.DB,
	affiliateRepo *repository.AffiliateRepository,
	commissionRepo *repository.AffiliateCommissionRepository,
	auditRepo *repository.AuditLogRepository,
	notifier *NotificationService,
) *CommissionService {
	return &CommissionService{
		db:             db,
		affiliateRepo:  affiliateRepo,
		commissionRepo: commissionRepo,
		auditRepo:      auditRepo,
		notifier:       notifier,
		now:            SystemClock,
	}
}

func (s *CommissionService) SetClock(c Clock) { s.now = c }

// commissionAmount applies a percentage rate to an amount in cents, rounding half away from zero.
func commissionAmount(paidCents int64, rate float64) int64 {
	return int64(math.Round(float64(paidCents) * rate / 100))
}

// ForPurchase creates the commissions owed for a purchase by buyer, if buyer was attributed to
// an affiliate. It must run inside the purchase transaction.
func (s *CommissionService) ForPurchase(tx *gorm.DB, buyer *models.User, pp *models.PurchasedPlan) ([]models.AffiliateCommission, error) {
	if buyer.AffiliatedByID == nil {
		return nil, nil
	}
	a, err := s.affiliateRepo.WithTx(tx).GetByID(*buyer.AffiliatedByID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return s.CreateCommission(tx, a, buyer.ID, pp)
}

// CreateCommission records the direct commission of a and, when a was recommended by an
// active affiliate, that referrer's referral commission. The chain stops after one level.
// Rates are captured on each row so later rate changes never touch them.
func (s *CommissionService) CreateCommission(tx *gorm.DB, a *models.Affiliate, userID uint, pp *models.PurchasedPlan) ([]models.AffiliateCommission, error) {
	if !a.IsActive {
		log.Printf("[commission] affiliate %d inactive, no commission for purchase %d", a.ID, pp.ID)
		return nil, nil
	}
	repo := s.commissionRepo.WithTx(tx)
	now := s.now()
	planID := pp.ID
	out := make([]models.AffiliateCommission, 0, 2)

	direct := models.AffiliateCommission{
		AffiliateID:         a.ID,
		UserID:              userID,
		PurchasedPlanID:     &planID,
		Type:                domain.CommissionTypeDirect,
		AmountCents:         commissionAmount(pp.PaidPriceCents, a.CommissionRate),
		PurchaseAmountCents: pp.PaidPriceCents,
		CommissionRate:      a.CommissionRate,
		Status:              domain.CommissionStatusPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := repo.Create(&direct); err != nil {
		return nil, err
	}
	out = append(out, direct)

	if a.RecommendedByID == nil {
		return out, nil
	}
	ref, err := s.affiliateRepo.WithTx(tx).GetByID(*a.RecommendedByID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return out, nil
	} else if err != nil {
		return nil, err
	}
	if !ref.IsActive {
		log.Printf("[commission] referrer %d inactive, referral commission forfeited", ref.ID)
		return out, nil
	}
	referral := models.AffiliateCommission{
		AffiliateID:         ref.ID,
		UserID:              userID,
		PurchasedPlanID:     &planID,
		Type:                domain.CommissionTypeReferral,
		AmountCents:         commissionAmount(pp.PaidPriceCents, ref.ReferralBonusRate),
		PurchaseAmountCents: pp.PaidPriceCents,
		CommissionRate:      ref.ReferralBonusRate,
		Status:              domain.CommissionStatusPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := repo.Create(&referral); err != nil {
		return nil, err
	}
	return append(out, referral), nil
}

// NotifyEarned tells each affiliate about its new commissions. Call after commit.
func (s *CommissionService) NotifyEarned(list []models.AffiliateCommission) {
	for i := range list {
		a, err := s.affiliateRepo.GetByID(list[i].AffiliateID)
		if err != nil {
			continue
		}
		s.notifier.NotifyCommissionEarned(a.UserID, &list[i])
	}
}

// Cancel moves a pending commission to cancelled. Paid and cancelled commissions are terminal.
func (s *CommissionService) Cancel(ctx context.Context, adminID, id uint) (*models.AffiliateCommission, error) {
	c, err := s.commissionRepo.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrCommissionNotFound
	} else if err != nil {
		return nil, err
	}
	if c.Status != domain.CommissionStatusPending {
		return nil, domain.ErrCommissionNotPending
	}
	at := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.commissionRepo.WithTx(tx).Cancel(c.ID, at)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrCommissionNotPending
		}
		return recordAudit(s.auditRepo.WithTx(tx), adminID, "commission.cancelled", "commission", c.ID,
			map[string]interface{}{"affiliate_id": c.AffiliateID, "amount_cents": c.AmountCents})
	})
	if err != nil {
		return nil, err
	}
	c.Status = domain.CommissionStatusCancelled
	c.CancelledAt = &at
	return c, nil
}

func (s *CommissionService) List(affiliateID uint, status string, limit, offset int) ([]models.AffiliateCommission, error) {
	return s.commissionRepo.ListByAffiliate(affiliateID, status, limit, offset)
}

func (s *CommissionService) Totals(affiliateID uint) ([]repository.CommissionTotal, error) {
	return s.commissionRepo.TotalsByStatus(affiliateID)
}
