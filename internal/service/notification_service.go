package service

import (
	"context"
	"fmt"
	"log"

	"learnhub/internal/domain"
	"learnhub/internal/models"
	"learnhub/internal/repository"
)

// NotificationService stores in-app notifications and forwards them as pushes. Delivery is best
// effort: callers notify after their transaction committed and failures are only logged.
type NotificationService struct {
	repo     *repository.NotificationRepository
	userRepo *repository.UserRepository
	push     *PushService
}

func NewNotificationService(repo *repository.NotificationRepository, userRepo *repository.UserRepository, push *PushService) *NotificationService {
	return &NotificationService{repo: repo, userRepo: userRepo, push: push}
}

func (s *NotificationService) Notify(userID uint, notifType, title, body string, data map[string]interface{}) {
	if s == nil {
		return
	}
	if err := s.repo.Create(&models.Notification{
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Body:   body,
		Data:   data,
	}); err != nil {
		log.Printf("[notify] store %s for user %d: %v", notifType, userID, err)
		return
	}
	if s.push == nil {
		return
	}
	u, err := s.userRepo.GetByID(userID)
	if err != nil || u.FCMToken == "" {
		return
	}
	_ = s.push.Send(context.Background(), u.FCMToken, notifType, title, body, data)
}

func (s *NotificationService) NotifyCommissionEarned(userID uint, c *models.AffiliateCommission) {
	s.Notify(userID, domain.NotifCommissionEarned, "New commission",
		fmt.Sprintf("You earned %s (%s commission).", formatCents(c.AmountCents), c.Type),
		map[string]interface{}{"commission_id": c.ID, "amount_cents": c.AmountCents})
}

func (s *NotificationService) NotifyInvoiceCreated(userID uint, inv *models.AffiliateInvoice) {
	s.Notify(userID, domain.NotifInvoiceCreated, "Invoice created",
		fmt.Sprintf("Invoice %s for %s: %s.", inv.InvoiceNumber, inv.Period(), formatCents(inv.TotalAmountCents)),
		map[string]interface{}{"invoice_id": inv.ID})
}

func (s *NotificationService) NotifyInvoicePaid(userID uint, inv *models.AffiliateInvoice) {
	s.Notify(userID, domain.NotifInvoicePaid, "Invoice paid",
		fmt.Sprintf("Invoice %s has been paid.", inv.InvoiceNumber),
		map[string]interface{}{"invoice_id": inv.ID})
}

func (s *NotificationService) NotifyRequestApproved(userID uint, candidateName string) {
	s.Notify(userID, domain.NotifRequestApproved, "Recommendation approved",
		candidateName+" joined the affiliate program.", nil)
}

func (s *NotificationService) NotifyAffiliateActivated(userID uint) {
	s.Notify(userID, domain.NotifAffiliateActivated, "Account activated",
		"Your contract is signed and your referral link is live.", nil)
}

func formatCents(c int64) string {
	sign := ""
	if c < 0 {
		sign, c = "-", -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}
