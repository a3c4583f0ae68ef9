package v1

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/appointment"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/billing"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/consultation"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/encounter"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/order"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/patient"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/pharmacy"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/prescription"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/triage"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/ward"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/middleware"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/service"
)

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

type DuplicateResponse struct {
	Error   string                   `json:"error"`
	Code    string                   `json:"code"`
	Matches []patient.MatchCandidate `json:"matches"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

var notFoundErrors = []error{
	patient.ErrPatientNotFound,
	appointment.ErrAppointmentNotFound,
	encounter.ErrEncounterNotFound,
	consultation.ErrConsultationNotFound,
	consultation.ErrAttachmentNotFound,
	ward.ErrWardNotFound,
	ward.ErrBedNotFound,
	ward.ErrAdmissionNotFound,
	pharmacy.ErrMedicationNotFound,
	pharmacy.ErrSaleNotFound,
	prescription.ErrPrescriptionNotFound,
	prescription.ErrExceptionNotFound,
	order.ErrOrderNotFound,
	order.ErrItemNotFound,
	triage.ErrEntryNotFound,
	billing.ErrBillNotFound,
	billing.ErrClaimNotFound,
}

var conflictErrors = []error{
	appointment.ErrAppointmentConflict,
	ward.ErrWardCodeTaken,
	ward.ErrBedNumberTaken,
	ward.ErrBedUnavailable,
	ward.ErrBedOccupied,
	ward.ErrAlreadyAdmitted,
	ward.ErrPatientHasBed,
	patient.ErrMergeActiveStay,
	pharmacy.ErrInsufficientStock,
	prescription.ErrQuantityLocked,
	prescription.ErrExceptionOpen,
	prescription.ErrExceptionStale,
	triage.ErrAlreadyQueued,
	triage.ErrQueueEmpty,
	billing.ErrBillHasPayments,
}

// Every other sentinel from the domain packages is a rule the request broke.
var badRequestErrors = []error{
	patient.ErrPatientDeceased,
	patient.ErrPatientMerged,
	patient.ErrPatientInactive,
	patient.ErrInvalidGender,
	patient.ErrInvalidDateOfBirth,
	patient.ErrMergeSamePatient,
	appointment.ErrInvalidStatusTransition,
	appointment.ErrScheduledInPast,
	appointment.ErrInvalidDuration,
	appointment.ErrInvalidAppointmentType,
	appointment.ErrNotReschedulable,
	encounter.ErrInvalidStatusTransition,
	encounter.ErrInvalidClass,
	encounter.ErrEncounterNotInProgress,
	consultation.ErrConsultationLocked,
	consultation.ErrNotCompleted,
	consultation.ErrAssessmentRequired,
	consultation.ErrAttachmentTooLarge,
	ward.ErrBedNotOccupied,
	ward.ErrInvalidBedStatus,
	ward.ErrSameBed,
	ward.ErrAdmissionClosed,
	ward.ErrWardGenderMismatch,
	ward.ErrInvalidDisposition,
	ward.ErrInvalidWardType,
	pharmacy.ErrMedicationInactive,
	pharmacy.ErrInvalidQuantity,
	pharmacy.ErrPrescriptionRequired,
	pharmacy.ErrInvalidDosageForm,
	prescription.ErrNotRefillable,
	prescription.ErrNotDispensable,
	prescription.ErrNotCancellable,
	prescription.ErrPrescriptionExpired,
	prescription.ErrInvalidQuantity,
	prescription.ErrInvalidExpiry,
	prescription.ErrInvalidRoute,
	prescription.ErrExceptionNotPending,
	prescription.ErrInvalidExceptionType,
	prescription.ErrPartialNotLess,
	prescription.ErrQuantityUnchanged,
	order.ErrNoItems,
	order.ErrInvalidOrderType,
	order.ErrInvalidPriority,
	order.ErrInvalidStatusTransition,
	order.ErrOrderClosed,
	order.ErrItemClosed,
	triage.ErrInvalidPriority,
	triage.ErrNotWaiting,
	triage.ErrNotCalled,
	triage.ErrQueueRequired,
	billing.ErrBillClosed,
	billing.ErrBillVoid,
	billing.ErrInvalidQuantity,
	billing.ErrInvalidAmount,
	billing.ErrDiscountTooLarge,
	billing.ErrOverpayment,
	billing.ErrInvalidPaymentMethod,
	billing.ErrNoNHIFNumber,
	billing.ErrClaimExceedsBalance,
	billing.ErrApprovedExceedsClaimed,
	billing.ErrInvalidClaimTransition,
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

func respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Fields: validErr.Fields,
		})
		return
	}

	var dupErr *service.DuplicatePatientError
	if errors.As(err, &dupErr) {
		c.JSON(http.StatusConflict, DuplicateResponse{
			Error:   dupErr.Error(),
			Code:    "POSSIBLE_DUPLICATE",
			Matches: dupErr.Matches,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "access denied"})

	case isAny(err, notFoundErrors):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})

	case isAny(err, conflictErrors):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})

	case isAny(err, badRequestErrors):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})

	default:
		// The access log picks the cause up from c.Errors.
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return false
	}

	return true
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	raw := c.Param(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + param + ": must be a valid UUID"})
		return uuid.Nil, false
	}
	return id, true
}

func parseQueryInt(c *gin.Context, key string, defaultVal int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}

// queryUUID reads an optional UUID filter. A malformed value writes a 400 and
// returns ok=false.
func queryUUID(c *gin.Context, key string) (*uuid.UUID, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid "+key+": must be a valid UUID")
		return nil, false
	}
	return &id, true
}

// queryTime accepts RFC 3339 timestamps or plain dates.
func queryTime(c *gin.Context, key string) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, true
		}
	}
	respondError(c, http.StatusBadRequest, "invalid "+key+": expected RFC 3339 or YYYY-MM-DD")
	return nil, false
}

func queryEnum[T ~string](c *gin.Context, key string) *T {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	v := T(raw)
	return &v
}

func actor(c *gin.Context) domain.Actor {
	return middleware.GetActor(c)
}

// byID calls fn with the :id path parameter and writes the result. Used for
// reads and for state changes that take no body.
func byID[T any](c *gin.Context, fn func(context.Context, uuid.UUID, domain.Actor) (T, error)) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	out, err := fn(c.Request.Context(), id, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, out)
}
