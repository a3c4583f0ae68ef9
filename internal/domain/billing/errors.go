package billing

import "errors"

var (
	ErrBillNotFound         = errors.New("bill not found")
	ErrBillClosed           = errors.New("bill is paid or void")
	ErrBillVoid             = errors.New("bill is void")
	ErrBillHasPayments      = errors.New("bills with payments cannot be voided")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrDiscountTooLarge     = errors.New("discount exceeds the billable amount")
	ErrOverpayment          = errors.New("payment exceeds the balance due")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")

	ErrClaimNotFound          = errors.New("NHIF claim not found")
	ErrNoNHIFNumber           = errors.New("patient has no NHIF number")
	ErrClaimExceedsBalance    = errors.New("claim amount exceeds the bill balance")
	ErrApprovedExceedsClaimed = errors.New("approved amount must be positive and not exceed the claimed amount")
	ErrInvalidClaimTransition = errors.New("invalid claim status transition")
)
