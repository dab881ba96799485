package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"learnhub/internal/domain"
	"learnhub/internal/models"
	"learnhub/internal/repository"

	"gorm.io/gorm"
)

const maxInvoiceNumberAttempts = 3

// InvoiceService batches pending commissions into monthly invoices and settles them.
type InvoiceService struct {
	db             *gorm.DB
	affiliateRepo  *repository.AffiliateRepository
	commissionRepo *repository.AffiliateCommissionRepository
	invoiceRepo    *repository.AffiliateInvoiceRepository
	auditRepo      *repository.AuditLogRepository
	settings       *SettingsService
	notifier       *NotificationService
	now            Clock
}

func NewInvoiceService(
	db *gorm.DB,
	affiliateRepo *repository.AffiliateRepository,
	commissionRepo *repository.AffiliateCommissionRepository,
	invoiceRepo *repository.AffiliateInvoiceRepository,
	auditRepo *repository.AuditLogRepository,
	settings *SettingsService,
	notifier *NotificationService,
) *InvoiceService {
	return &InvoiceService{
		db:             db,
		affiliateRepo:  affiliateRepo,
		commissionRepo: commissionRepo,
		invoiceRepo:    invoiceRepo,
		auditRepo:      auditRepo,
		settings:       settings,
		notifier:       notifier,
		now:            SystemClock,
	}
}

func (s *InvoiceService) SetClock(c Clock) { s.now = c }

// GenerateInvoiceNumber returns INV-YYYYMM-NNNN where the sequence continues from the highest
// number issued in the calendar month of now, not in the billing period. Deleted invoices leave
// gaps; their numbers are never handed out again.
func (s *InvoiceService) GenerateInvoiceNumber(repo *repository.AffiliateInvoiceRepository, now time.Time) (string, error) {
	now = now.UTC()
	prefix := fmt.Sprintf("INV-%04d%02d-", now.Year(), int(now.Month()))
	last, err := repo.LastNumberWithPrefix(prefix)
	if err != nil {
		return "", err
	}
	seq := 0
	if last != "" {
		seq, err = strconv.Atoi(strings.TrimPrefix(last, prefix))
		if err != nil {
			return "", fmt.Errorf("invoice number %q: %w", last, err)
		}
	}
	return fmt.Sprintf("%s%04d", prefix, seq+1), nil
}

func validPeriod(month, year int) bool {
	return month >= 1 && month <= 12 && year >= 2000 && year <= 9999
}

// CreateMonthlyInvoice invoices every pending commission of the affiliate created in the billing
// period. Invoice creation and commission linkage commit together or not at all. The pending
// rows are locked and the linkage update is status-guarded, so a concurrent run either waits or
// fails with ErrInvoiceConflict instead of invoicing a commission twice.
func (s *InvoiceService) CreateMonthlyInvoice(ctx context.Context, affiliateID uint, month, year int) (*models.AffiliateInvoice, error) {
	if !validPeriod(month, year) {
		return nil, domain.ErrInvalidPeriod
	}
	a, err := s.affiliateRepo.GetByID(affiliateID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAffiliateNotFound
	} else if err != nil {
		return nil, err
	}
	var inv *models.AffiliateInvoice
	for attempt := 1; ; attempt++ {
		inv, err = s.createInvoiceTx(ctx, a, month, year)
		// A concurrent invoice took the number or the period; the next attempt sees its row.
		if errors.Is(err, gorm.ErrDuplicatedKey) && attempt < maxInvoiceNumberAttempts {
			log.Printf("[invoice] affiliate=%d number taken, retrying (%d)", a.ID, attempt)
			continue
		}
		break
	}
	if err != nil {
		return nil, err
	}
	log.Printf("[invoice] %s affiliate=%d period=%02d/%d total=%d count=%d",
		inv.InvoiceNumber, a.ID, month, year, inv.TotalAmountCents, inv.TotalCommissionsCount)
	s.notifier.NotifyInvoiceCreated(a.UserID, inv)
	return s.invoiceRepo.GetByID(inv.ID)
}

func (s *InvoiceService) createInvoiceTx(ctx context.Context, a *models.Affiliate, month, year int) (*models.AffiliateInvoice, error) {
	from, to := monthBounds(year, time.Month(month))
	var inv *models.AffiliateInvoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoices := s.invoiceRepo.WithTx(tx)
		commissions := s.commissionRepo.WithTx(tx)

		exists, err := invoices.ExistsForPeriod(a.ID, month, year)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrInvoiceExists
		}
		pending, err := commissions.LockPendingInPeriod(a.ID, from, to)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return domain.ErrNothingToInvoice
		}
		var total int64
		ids := make([]uint, len(pending))
		for i, c := range pending {
			total += c.AmountCents
			ids[i] = c.ID
		}
		now := s.now()
		number, err := s.GenerateInvoiceNumber(invoices, now)
		if err != nil {
			return err
		}
		inv = &models.AffiliateInvoice{
			AffiliateID:           a.ID,
			InvoiceNumber:         number,
			Month:                 month,
			Year:                  year,
			TotalAmountCents:      total,
			TotalCommissionsCount: len(pending),
			Status:                domain.InvoiceStatusPending,
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		if err := invoices.Create(inv); err != nil {
			return err
		}
		n, err := commissions.MarkPaid(ids, inv.ID)
		if err != nil {
			return err
		}
		if n != int64(len(ids)) {
			return domain.ErrInvoiceConflict
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// GenerateMonthlyInvoices runs CreateMonthlyInvoice for every active affiliate. Affiliates with
// nothing pending or a total below the minimum payout are skipped and keep their commissions
// pending. Failures for one affiliate do not stop the batch; they are joined into the error.
func (s *InvoiceService) GenerateMonthlyInvoices(ctx context.Context, month, year int) ([]models.AffiliateInvoice, error) {
	if !validPeriod(month, year) {
		return nil, domain.ErrInvalidPeriod
	}
	ids, err := s.affiliateRepo.WithTx(s.db.WithContext(ctx)).ListActiveIDs()
	if err != nil {
		return nil, err
	}
	minPayout := s.settings.Affiliate().MinPayoutCents
	from, to := monthBounds(year, time.Month(month))
	var created []models.AffiliateInvoice
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		total, err := s.commissionRepo.SumPendingInPeriod(id, from, to)
		if err != nil {
			errs = append(errs, fmt.Errorf("affiliate %d: %w", id, err))
			continue
		}
		if total == 0 || total < minPayout {
			continue
		}
		inv, err := s.CreateMonthlyInvoice(ctx, id, month, year)
		switch {
		case err == nil:
			created = append(created, *inv)
		case errors.Is(err, domain.ErrInvoiceExists), errors.Is(err, domain.ErrNothingToInvoice):
		default:
			log.Printf("[invoice] affiliate %d period %02d/%d: %v", id, month, year, err)
			errs = append(errs, fmt.Errorf("affiliate %d: %w", id, err))
		}
	}
	return created, errors.Join(errs...)
}

// MarkAsPaid settles a pending invoice. Its commissions were already flipped at creation.
func (s *InvoiceService) MarkAsPaid(ctx context.Context, adminID, id uint, method, notes string) (*models.AffiliateInvoice, error) {
	inv, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if inv.Status == domain.InvoiceStatusPaid {
		return nil, domain.ErrInvoiceAlreadyPaid
	}
	at := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.invoiceRepo.WithTx(tx).MarkPaid(inv.ID, at, method, notes)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvoiceAlreadyPaid
		}
		return recordAudit(s.auditRepo.WithTx(tx), adminID, "invoice.paid", "invoice", inv.ID,
			map[string]interface{}{"payment_method": method, "total_amount_cents": inv.TotalAmountCents})
	})
	if err != nil {
		return nil, err
	}
	inv.Status = domain.InvoiceStatusPaid
	inv.PaidAt = &at
	inv.PaymentMethod = method
	inv.PaymentNotes = notes
	if a, err := s.affiliateRepo.GetByID(inv.AffiliateID); err == nil {
		s.notifier.NotifyInvoicePaid(a.UserID, inv)
	}
	return inv, nil
}

func (s *InvoiceService) Get(id uint) (*models.AffiliateInvoice, error) {
	inv, err := s.invoiceRepo.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrInvoiceNotFound
	}
	return inv, err
}

// GetForAffiliate hides other affiliates' invoices behind NotFound.
func (s *InvoiceService) GetForAffiliate(id, affiliateID uint) (*models.AffiliateInvoice, error) {
	inv, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if inv.AffiliateID != affiliateID {
		return nil, domain.ErrInvoiceNotFound
	}
	return inv, nil
}

func (s *InvoiceService) ListByAffiliate(affiliateID uint) ([]models.AffiliateInvoice, error) {
	return s.invoiceRepo.ListByAffiliate(affiliateID)
}

func (s *InvoiceService) List(status string, page, limit int) ([]models.AffiliateInvoice, int64, error) {
	return s.invoiceRepo.List(status, page, limit)
}
