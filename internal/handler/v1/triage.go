package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/triage"
)

type enqueueRequest struct {
	PatientID      uuid.UUID      `json:"patient_id" binding:"required"`
	EncounterID    *uuid.UUID     `json:"encounter_id"`
	Queue          string         `json:"queue"`
	Priority       int            `json:"priority"`
	ChiefComplaint string         `json:"chief_complaint"`
	Vitals         *triage.Vitals `json:"vitals"`
}

type priorityRequest struct {
	Priority int `json:"priority" binding:"required"`
}

func (h *Handler) Enqueue(c *gin.Context) {
	var req enqueueRequest
	if !bindJSON(c, &req) {
		return
	}
	e, err := h.svc.Triage.Enqueue(c.Request.Context(), &triage.EnqueueCommand{
		PatientID:      req.PatientID,
		EncounterID:    req.EncounterID,
		Queue:          req.Queue,
		Priority:       req.Priority,
		ChiefComplaint: req.ChiefComplaint,
		Vitals:         req.Vitals,
	}, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, e)
}

func (h *Handler) GetTriageEntry(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	e, err := h.svc.Triage.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, e)
}

func (h *Handler) ListWaiting(c *gin.Context) {
	out, err := h.svc.Triage.ListWaiting(c.Request.Context(), c.Param("queue"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, out)
}

// QueueStats accepts an optional since query parameter; the default window
// is the last 24 hours.
func (h *Handler) QueueStats(c *gin.Context) {
	since, ok := queryTime(c, "since")
	if !ok {
		return
	}
	st, err := h.svc.Triage.Stats(c.Request.Context(), c.Param("queue"), since)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, st)
}

// CallNext pops the most urgent waiting patient, earliest arrival first
// within a priority.
func (h *Handler) CallNext(c *gin.Context) {
	e, err := h.svc.Triage.CallNext(c.Request.Context(), c.Param("queue"), actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, e)
}

func (h *Handler) Reprioritize(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req priorityRequest
	if !bindJSON(c, &req) {
		return
	}
	e, err := h.svc.Triage.Reprioritize(c.Request.Context(), id, req.Priority, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, e)
}

func (h *Handler) CompleteTriage(c *gin.Context) {
	byID(c, h.svc.Triage.Complete)
}

func (h *Handler) MarkLeft(c *gin.Context) {
	byID(c, h.svc.Triage.MarkLeft)
}
