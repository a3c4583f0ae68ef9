package ward

import "errors"

var (
	ErrWardNotFound       = errors.New("ward not found")
	ErrWardCodeTaken      = errors.New("ward code already exists")
	ErrBedNotFound        = errors.New("bed not found")
	ErrBedNumberTaken     = errors.New("bed number already exists in this ward")
	ErrBedUnavailable     = errors.New("bed is not available")
	ErrBedOccupied        = errors.New("bed is occupied")
	ErrBedNotOccupied     = errors.New("bed is not occupied")
	ErrInvalidBedStatus   = errors.New("invalid bed status")
	ErrSameBed            = errors.New("target bed is the current bed")
	ErrAdmissionNotFound  = errors.New("admission not found")
	ErrAdmissionClosed    = errors.New("admission is already discharged")
	ErrAlreadyAdmitted    = errors.New("patient already has an open admission")
	ErrPatientHasBed      = errors.New("patient already occupies a bed")
	ErrWardGenderMismatch = errors.New("ward does not accept patients of this gender")
	ErrInvalidDisposition = errors.New("invalid discharge disposition")
	ErrInvalidWardType    = errors.New("invalid ward type")
)
