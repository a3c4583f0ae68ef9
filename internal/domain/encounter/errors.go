package encounter

import "errors"

var (
	ErrEncounterNotFound       = errors.New("encounter not found")
	ErrInvalidStatusTransition = errors.New("invalid encounter status transition")
	ErrInvalidClass            = errors.New("invalid encounter class")
	ErrEncounterNotInProgress  = errors.New("encounter is not in progress")
)
