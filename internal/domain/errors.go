package domain

import "errors"

type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindNotFound
	KindForbidden
	KindInvariant
)

// Error is a classified business error. Anything that is not an *Error is treated as an
// infrastructure failure by the HTTP layer.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func Validation(msg string) *Error { return &Error{Kind: KindValidation, Msg: msg} }
func NotFound(msg string) *Error   { return &Error{Kind: KindNotFound, Msg: msg} }
func Forbidden(msg string) *Error  { return &Error{Kind: KindForbidden, Msg: msg} }
func Invariant(msg string) *Error  { return &Error{Kind: KindInvariant, Msg: msg} }

// KindOf returns the kind of err, or 0 when err carries no classification.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}

var (
	ErrUserNotFound          = NotFound("user not found")
	ErrEmailExists           = Invariant("email already registered")
	ErrInvalidCreds          = Validation("invalid email or password")
	ErrAffiliateNotFound     = NotFound("affiliate not found")
	ErrAffiliateInactive     = NotFound("affiliate not found or inactive")
	ErrAffiliateExists       = Invariant("user already has an affiliate profile")
	ErrRecommendForbidden    = Forbidden("affiliate is not allowed to recommend")
	ErrSignatureRequired     = Validation("signature is required")
	ErrContractAlreadySigned = Invariant("contract already signed")
	ErrClickNotFound         = NotFound("click not found")
	ErrInvalidAttribution    = Validation("invalid or expired attribution")
	ErrCommissionNotFound    = NotFound("commission not found")
	ErrCommissionNotPending  = Invariant("commission is not pending")
	ErrInvoiceNotFound       = NotFound("invoice not found")
	ErrInvoiceAlreadyPaid    = Invariant("invoice already paid")
	ErrInvoiceExists         = Invariant("invoice already exists for this period")
	ErrNothingToInvoice      = Invariant("no pending commissions in period")
	ErrInvoiceConflict       = Invariant("commissions changed during invoicing")
	ErrInvalidPeriod         = Validation("invalid billing period")
	ErrRequestNotFound       = NotFound("recommendation request not found")
	ErrRequestReviewed       = Invariant("recommendation request already reviewed")
	ErrPlanNotFound          = NotFound("plan not found")
	ErrPlanUnavailable       = Invariant("plan is not available for purchase")
	ErrPurchasedPlanNotFound = NotFound("purchased plan not found")
	ErrPurchasedPlanExpired  = Invariant("purchased plan is not active")
	ErrChildNotFound         = NotFound("child profile not found")
	ErrChildNotOwned         = Invariant("child profile does not belong to the plan owner")
	ErrPaymentFailed         = Invariant("payment could not be verified")
)
