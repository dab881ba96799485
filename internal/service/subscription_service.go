package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"learnhub/internal/domain"
	"learnhub/internal/models"
	"learnhub/internal/repository"
	"learnhub/pkg/payment"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubscriptionService covers the plan catalog, checkout and assignment of purchased plans to
// child profiles.
type SubscriptionService struct {
	db          *gorm.DB
	planRepo    *repository.PlanRepository
	ppRepo      *repository.PurchasedPlanRepository
	childRepo   *repository.ChildProfileRepository
	userRepo    *repository.UserRepository
	paymentRepo *repository.PaymentRepository
	commissions *CommissionService
	provider    payment.Provider
	currency    string
	payExpiry   time.Duration
	now         Clock
}

func NewSubscriptionService(
	db *gorm.DB,
	planRepo *repository.PlanRepository,
	ppRepo *repository.PurchasedPlanRepository,
	childRepo *repository.ChildProfileRepository,
	userRepo *repository.UserRepository,
	paymentRepo *repository.PaymentRepository,
	commissions *CommissionService,
	provider payment.Provider,
	currency string,
	payExpiry time.Duration,
) *SubscriptionService {
	return &SubscriptionService{
		db:          db,
		planRepo:    planRepo,
		ppRepo:      ppRepo,
		childRepo:   childRepo,
		userRepo:    userRepo,
		paymentRepo: paymentRepo,
		commissions: commissions,
		provider:    provider,
		currency:    currency,
		payExpiry:   payExpiry,
		now:         SystemClock,
	}
}

func (s *SubscriptionService) SetClock(c Clock) { s.now = c }

type PlanInput struct {
	Name         string `json:"name" binding:"required,max=128"`
	Description  string `json:"description"`
	PriceCents   int64  `json:"price_cents" binding:"required,gt=0"`
	DurationDays int    `json:"duration_days" binding:"required,gt=0"`
	IsActive     *bool  `json:"is_active"`
}

func (s *SubscriptionService) ListPlans(activeOnly bool) ([]models.Plan, error) {
	return s.planRepo.List(activeOnly)
}

func (s *SubscriptionService) GetPlan(id uint) (*models.Plan, error) {
	p, err := s.planRepo.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPlanNotFound
	}
	return p, err
}

func (s *SubscriptionService) CreatePlan(in PlanInput) (*models.Plan, error) {
	p := &models.Plan{
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		PriceCents:   in.PriceCents,
		DurationDays: in.DurationDays,
		IsActive:     in.IsActive == nil || *in.IsActive,
	}
	if err := s.planRepo.Create(p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdatePlan edits the catalog entry. Purchased plans keep the price they were bought at.
func (s *SubscriptionService) UpdatePlan(id uint, in PlanInput) (*models.Plan, error) {
	p, err := s.GetPlan(id)
	if err != nil {
		return nil, err
	}
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.PriceCents = in.PriceCents
	p.DurationDays = in.DurationDays
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if err := s.planRepo.Update(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Purchase charges userID for the plan and records the purchased plan. The payment row, the
// purchased plan and any affiliate commissions commit together.
func (s *SubscriptionService) Purchase(ctx context.Context, userID, planID uint) (*models.PurchasedPlan, error) {
	plan, err := s.GetPlan(planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, domain.ErrPlanUnavailable
	}
	orderID := "ord_" + uuid.NewString()
	resp, err := s.provider.InitiatePayment(ctx, payment.PaymentRequest{
		UserID:      userID,
		AmountCents: plan.PriceCents,
		Currency:    s.currency,
		OrderID:     orderID,
		Description: plan.Name,
		Metadata:    map[string]interface{}{"plan_id": plan.ID},
		ExpiresIn:   s.payExpiry,
	})
	if err != nil {
		log.Printf("[checkout] initiate %s for user %d: %v", orderID, userID, err)
		return nil, domain.ErrPaymentFailed
	}
	ok, err := s.provider.VerifyPayment(ctx, resp.Reference)
	if err != nil || !ok {
		log.Printf("[checkout] verify %s for user %d failed: %v", orderID, userID, err)
		s.recordFailedPayment(ctx, userID, plan, orderID, resp.Reference)
		return nil, domain.ErrPaymentFailed
	}

	now := s.now()
	var pp *models.PurchasedPlan
	var earned []models.AffiliateCommission
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		buyer, err := s.userRepo.WithTx(tx).GetByID(userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		} else if err != nil {
			return err
		}
		pay := &models.Payment{
			UserID:      userID,
			PlanID:      plan.ID,
			OrderID:     orderID,
			AmountCents: plan.PriceCents,
			Currency:    s.currency,
			Provider:    s.provider.Name(),
			ProviderRef: resp.Reference,
			Status:      domain.PaymentStatusCompleted,
			Metadata:    map[string]interface{}{"plan_name": plan.Name},
			CompletedAt: &now,
		}
		if err := s.paymentRepo.WithTx(tx).Create(pay); err != nil {
			return err
		}
		pp = &models.PurchasedPlan{
			UserID:         userID,
			PlanID:         plan.ID,
			PaymentID:      &pay.ID,
			PaidPriceCents: plan.PriceCents,
			PurchasedAt:    now,
			ExpiresAt:      now.AddDate(0, 0, plan.DurationDays),
			IsActive:       true,
		}
		if err := s.ppRepo.WithTx(tx).Create(pp); err != nil {
			return err
		}
		earned, err = s.commissions.ForPurchase(tx, buyer, pp)
		return err
	})
	if err != nil {
		return nil, err
	}
	pp.Plan = *plan
	log.Printf("[checkout] user %d bought plan %d (%s), purchased plan %d", userID, plan.ID, orderID, pp.ID)
	s.commissions.NotifyEarned(earned)
	return pp, nil
}

func (s *SubscriptionService) recordFailedPayment(ctx context.Context, userID uint, plan *models.Plan, orderID, ref string) {
	err := s.paymentRepo.WithTx(s.db.WithContext(ctx)).Create(&models.Payment{
		UserID:      userID,
		PlanID:      plan.ID,
		OrderID:     orderID,
		AmountCents: plan.PriceCents,
		Currency:    s.currency,
		Provider:    s.provider.Name(),
		ProviderRef: ref,
		Status:      domain.PaymentStatusFailed,
	})
	if err != nil {
		log.Printf("[checkout] record failed payment %s: %v", orderID, err)
	}
}

func (s *SubscriptionService) ListPurchased(userID uint) ([]models.PurchasedPlan, error) {
	return s.ppRepo.ListByUser(userID)
}

// AssignToChild moves a purchased plan of parentID onto a child profile. The child must belong to
// the plan's owner and the plan must be active; on any failure neither row changes.
func (s *SubscriptionService) AssignToChild(ctx context.Context, parentID, purchasedPlanID, childID uint) (*models.PurchasedPlan, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pp, err := s.ppRepo.WithTx(tx).GetForUpdate(purchasedPlanID, parentID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrPurchasedPlanNotFound
		} else if err != nil {
			return err
		}
		child, err := s.childRepo.WithTx(tx).GetByID(childID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrChildNotFound
		} else if err != nil {
			return err
		}
		if child.ParentID != pp.UserID {
			return domain.ErrChildNotOwned
		}
		now := s.now()
		if !pp.Active(now) {
			return domain.ErrPurchasedPlanExpired
		}
		return s.ppRepo.WithTx(tx).SetChild(pp.ID, &child.ID, &now)
	})
	if err != nil {
		return nil, err
	}
	return s.ppRepo.GetByID(purchasedPlanID)
}

func (s *SubscriptionService) Unassign(ctx context.Context, parentID, purchasedPlanID uint) (*models.PurchasedPlan, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pp, err := s.ppRepo.WithTx(tx).GetForUpdate(purchasedPlanID, parentID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrPurchasedPlanNotFound
		} else if err != nil {
			return err
		}
		return s.ppRepo.WithTx(tx).SetChild(pp.ID, nil, nil)
	})
	if err != nil {
		return nil, err
	}
	return s.ppRepo.GetByID(purchasedPlanID)
}
