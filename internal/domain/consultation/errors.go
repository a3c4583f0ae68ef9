package consultation

import "errors"

var (
	ErrConsultationNotFound = errors.New("consultation not found")
	ErrConsultationLocked   = errors.New("completed consultations cannot be modified; use addenda")
	ErrNotCompleted         = errors.New("addenda can only be added to completed consultations")
	ErrAssessmentRequired   = errors.New("a diagnosis or assessment is required to complete a consultation")
	ErrAttachmentNotFound   = errors.New("attachment not found")
	ErrAttachmentTooLarge   = errors.New("attachment exceeds the maximum size")
)
