package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/encounter"
)

type createEncounterRequest struct {
	PatientID     uuid.UUID       `json:"patient_id" binding:"required"`
	AppointmentID *uuid.UUID      `json:"appointment_id"`
	Class         encounter.Class `json:"class" binding:"required"`
	AttendingID   *uuid.UUID      `json:"attending_id"`
	Department    string          `json:"department"`
	Reason        string          `json:"reason"`
	StartNow      bool            `json:"start_now"`
}

func (h *Handler) CreateEncounter(c *gin.Context) {
	var req createEncounterRequest
	if !bindJSON(c, &req) {
		return
	}
	e, err := h.svc.Encounters.CreateEncounter(c.Request.Context(), &encounter.CreateEncounterCommand{
		PatientID:     req.PatientID,
		AppointmentID: req.AppointmentID,
		Class:         req.Class,
		AttendingID:   req.AttendingID,
		Department:    req.Department,
		Reason:        req.Reason,
		StartNow:      req.StartNow,
	}, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, e)
}

func (h *Handler) GetEncounter(c *gin.Context) {
	byID(c, h.svc.Encounters.GetEncounter)
}

func (h *Handler) ListEncounters(c *gin.Context) {
	patientID, ok := queryUUID(c, "patient_id")
	if !ok {
		return
	}
	res, err := h.svc.Encounters.ListEncounters(c.Request.Context(), &encounter.ListEncountersQuery{
		PatientID: patientID,
		Status:    queryEnum[encounter.Status](c, "status"),
		Class:     queryEnum[encounter.Class](c, "class"),
		Page:      parseQueryInt(c, "page", 1),
		PageSize:  parseQueryInt(c, "page_size", 20),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

func (h *Handler) StartEncounter(c *gin.Context) {
	byID(c, h.svc.Encounters.StartEncounter)
}

func (h *Handler) CompleteEncounter(c *gin.Context) {
	byID(c, h.svc.Encounters.CompleteEncounter)
}

func (h *Handler) CancelEncounter(c *gin.Context) {
	byID(c, h.svc.Encounters.CancelEncounter)
}
