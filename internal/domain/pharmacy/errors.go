package pharmacy

import "errors"

var (
	ErrMedicationNotFound   = errors.New("medication not found")
	ErrMedicationInactive   = errors.New("medication is not active")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrPrescriptionRequired = errors.New("medication requires a prescription")
	ErrInvalidDosageForm    = errors.New("invalid dosage form")
	ErrSaleNotFound         = errors.New("pharmacy sale not found")
)
