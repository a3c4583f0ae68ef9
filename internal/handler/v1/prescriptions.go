package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/prescription"
)

type createPrescriptionRequest struct {
	PatientID      uuid.UUID                          `json:"patient_id" binding:"required"`
	EncounterID    *uuid.UUID                         `json:"encounter_id"`
	MedicationID   uuid.UUID                          `json:"medication_id" binding:"required"`
	Dosage         string                             `json:"dosage"`
	Frequency      string                             `json:"frequency"`
	Route          prescription.RouteOfAdministration `json:"route"`
	DurationDays   int                                `json:"duration_days"`
	Quantity       int                                `json:"quantity"`
	RefillsAllowed int                                `json:"refills_allowed"`
	IssuedAt       *time.Time                         `json:"issued_at"`
	ExpiresAt      *time.Time                         `json:"expires_at"`
	Instructions   string                             `json:"instructions"`
}

type dispenseRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

type exceptionRequest struct {
	Type              prescription.ExceptionType `json:"type" binding:"required"`
	RequestedQuantity int                        `json:"requested_quantity"`
	Reason            string                     `json:"reason" binding:"required"`
}

type reviewRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

func (h *Handler) CreatePrescription(c *gin.Context) {
	var req createPrescriptionRequest
	if !bindJSON(c, &req) {
		return
	}
	rx, err := h.svc.Prescriptions.CreatePrescription(c.Request.Context(), &prescription.CreatePrescriptionCommand{
		PatientID:      req.PatientID,
		EncounterID:    req.EncounterID,
		MedicationID:   req.MedicationID,
		Dosage:         req.Dosage,
		Frequency:      req.Frequency,
		Route:          req.Route,
		DurationDays:   req.DurationDays,
		Quantity:       req.Quantity,
		RefillsAllowed: req.RefillsAllowed,
		IssuedAt:       req.IssuedAt,
		ExpiresAt:      req.ExpiresAt,
		Instructions:   req.Instructions,
	}, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, rx)
}

func (h *Handler) GetPrescription(c *gin.Context) {
	byID(c, h.svc.Prescriptions.GetPrescription)
}

func (h *Handler) ListPrescriptions(c *gin.Context) {
	patientID, ok := queryUUID(c, "patient_id")
	if !ok {
		return
	}
	doctorID, ok := queryUUID(c, "doctor_id")
	if !ok {
		return
	}
	res, err := h.svc.Prescriptions.ListPrescriptions(c.Request.Context(), &prescription.ListPrescriptionsQuery{
		PatientID: patientID,
		DoctorID:  doctorID,
		Status:    queryEnum[prescription.PrescriptionStatus](c, "status"),
		Page:      parseQueryInt(c, "page", 1),
		PageSize:  parseQueryInt(c, "page_size", 20),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

// DispensePrescription must be sent the exact allowed quantity: the full
// remainder, or what an approved exception permits.
func (h *Handler) DispensePrescription(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req dispenseRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Prescriptions.Dispense(c.Request.Context(), &prescription.DispenseCommand{
		PrescriptionID: id,
		Quantity:       req.Quantity,
	}, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

func (h *Handler) RefillPrescription(c *gin.Context) {
	byID(c, h.svc.Prescriptions.Refill)
}

func (h *Handler) CancelPrescription(c *gin.Context) {
	byID(c, h.svc.Prescriptions.Cancel)
}

func (h *Handler) RequestException(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req exceptionRequest
	if !bindJSON(c, &req) {
		return
	}
	ex, err := h.svc.Prescriptions.RequestException(c.Request.Context(), &prescription.RequestExceptionCommand{
		PrescriptionID:    id,
		Type:              req.Type,
		RequestedQuantity: req.RequestedQuantity,
		Reason:            req.Reason,
	}, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, ex)
}

func (h *Handler) ListExceptions(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	out, err := h.svc.Prescriptions.ListExceptions(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, out)
}

func (h *Handler) ReviewException(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req reviewRequest
	if !bindJSON(c, &req) {
		return
	}
	ex, err := h.svc.Prescriptions.ReviewException(c.Request.Context(), &prescription.ReviewExceptionCommand{
		ExceptionID: id,
		Approve:     req.Approve,
		Note:        req.Note,
	}, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, ex)
}
