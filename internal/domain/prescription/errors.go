package prescription

import "errors"

var (
	ErrPrescriptionNotFound = errors.New("prescription not found")
	ErrNotRefillable        = errors.New("prescription cannot be refilled")
	ErrNotDispensable       = errors.New("prescription is not dispensable")
	ErrNotCancellable       = errors.New("prescription cannot be cancelled")
	ErrPrescriptionExpired  = errors.New("prescription has expired")
	ErrQuantityLocked       = errors.New("dispense quantity does not match the locked quantity")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrInvalidExpiry        = errors.New("expiry must be after issue time")
	ErrInvalidRoute         = errors.New("invalid route of administration")

	ErrExceptionNotFound    = errors.New("dispense exception not found")
	ErrExceptionOpen        = errors.New("prescription already has an open exception")
	ErrExceptionNotPending  = errors.New("exception is not pending review")
	ErrInvalidExceptionType = errors.New("invalid exception type")
	ErrPartialNotLess       = errors.New("partial dispense must be less than the remaining quantity")
	ErrQuantityUnchanged    = errors.New("quantity change must differ from the remaining quantity")
	ErrExceptionStale       = errors.New("exception no longer matches the remaining quantity")
)
