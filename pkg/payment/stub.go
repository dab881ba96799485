package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// StubProvider settles every payment immediately. Decline makes verification fail, for tests
// and local runs of the failure path.
type StubProvider struct {
	Decline bool
}

func (s *StubProvider) Name() string { return "stub" }

func (s *StubProvider) InitiatePayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, error) {
	if req.AmountCents <= 0 {
		return nil, errors.New("payment amount must be positive")
	}
	ref := fmt.Sprintf("stub_%s", req.OrderID)
	return &PaymentResponse{
		Reference: ref,
		Status:    "PENDING",
		ExpiresAt: time.Now().Add(req.ExpiresIn),
	}, nil
}

func (s *StubProvider) VerifyPayment(ctx context.Context, reference string) (bool, error) {
	if s.Decline {
		return false, nil
	}
	return strings.HasPrefix(reference, "stub_"), nil
}
