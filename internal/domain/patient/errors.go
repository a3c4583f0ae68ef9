package patient

import "errors"

var (
	ErrPatientNotFound    = errors.New("patient not found")
	ErrPatientDeceased    = errors.New("operation not permitted: patient is deceased")
	ErrPatientMerged      = errors.New("operation not permitted: patient record was merged into another")
	ErrPatientInactive    = errors.New("patient is not active")
	ErrInvalidGender      = errors.New("invalid gender value")
	ErrInvalidDateOfBirth = errors.New("date of birth cannot be in the future")
	ErrMergeSamePatient   = errors.New("cannot merge a patient into itself")
	ErrMergeActiveStay    = errors.New("cannot merge a patient with an active admission or occupied bed")
)
