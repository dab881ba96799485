package payment

import (
	"context"
	"time"
)

type PaymentRequest struct {
	UserID      uint
	AmountCents int64
	Currency    string
	OrderID     string // unique per checkout
	Description string
	Metadata    map[string]interface{}
	ExpiresIn   time.Duration
}

type PaymentResponse struct {
	Reference   string
	Status      string
	CheckoutURL string
	ExpiresAt   time.Time
}

// Provider is a payment gateway used by plan checkout.
type Provider interface {
	Name() string
	InitiatePayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, error)
	VerifyPayment(ctx context.Context, reference string) (bool, error)
}
