package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/appointment"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/encounter"
)

type scheduleAppointmentRequest struct {
	PatientID      uuid.UUID                   `json:"patient_id" binding:"required"`
	DoctorID       uuid.UUID                   `json:"doctor_id" binding:"required"`
	ScheduledAt    time.Time                   `json:"scheduled_at" binding:"required"`
	DurationMins   int                         `json:"duration_mins"`
	Type           appointment.AppointmentType `json:"type" binding:"required"`
	ChiefComplaint string                      `json:"chief_complaint"`
	Notes          string                      `json:"notes"`
	Room           string                      `json:"room"`
}

type rescheduleRequest struct {
	ScheduledAt  time.Time `json:"scheduled_at" binding:"required"`
	DurationMins *int      `json:"duration_mins"`
	Room         *string   `json:"room"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type completeAppointmentRequest struct {
	ActualDurationMins *int `json:"actual_duration_mins"`
}

type checkInResponse struct {
	Appointment *appointment.Appointment `json:"appointment"`
	Encounter   *encounter.Encounter     `json:"encounter"`
}

func (h *Handler) ScheduleAppointment(c *gin.Context) {
	var req scheduleAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.svc.Appointments.ScheduleAppointment(c.Request.Context(), &appointment.CreateAppointmentCommand{
		PatientID:      req.PatientID,
		DoctorID:       req.DoctorID,
		ScheduledAt:    req.ScheduledAt,
		DurationMins:   req.DurationMins,
		Type:           req.Type,
		ChiefComplaint: req.ChiefComplaint,
		Notes:          req.Notes,
		Room:           req.Room,
	}, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, a)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	byID(c, h.svc.Appointments.GetAppointment)
}

func (h *Handler) ListAppointments(c *gin.Context) {
	patientID, ok := queryUUID(c, "patient_id")
	if !ok {
		return
	}
	doctorID, ok := queryUUID(c, "doctor_id")
	if !ok {
		return
	}
	from, ok := queryTime(c, "from")
	if !ok {
		return
	}
	to, ok := queryTime(c, "to")
	if !ok {
		return
	}
	res, err := h.svc.Appointments.ListAppointments(c.Request.Context(), &appointment.ListAppointmentsQuery{
		PatientID: patientID,
		DoctorID:  doctorID,
		Status:    queryEnum[appointment.AppointmentStatus](c, "status"),
		Type:      queryEnum[appointment.AppointmentType](c, "type"),
		DateFrom:  from,
		DateTo:    to,
		Page:      parseQueryInt(c, "page", 1),
		PageSize:  parseQueryInt(c, "page_size", 20),
	}, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

func (h *Handler) RescheduleAppointment(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req rescheduleRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.svc.Appointments.Reschedule(c.Request.Context(), id, &appointment.RescheduleCommand{
		ScheduledAt:  req.ScheduledAt,
		DurationMins: req.DurationMins,
		Room:         req.Room,
	}, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

func (h *Handler) ConfirmAppointment(c *gin.Context) {
	byID(c, h.svc.Appointments.ConfirmAppointment)
}

// CheckInAppointment moves the appointment to in_progress and opens the
// outpatient encounter it belongs to.
func (h *Handler) CheckInAppointment(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	a, enc, err := h.svc.Appointments.CheckIn(c.Request.Context(), id, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, checkInResponse{Appointment: a, Encounter: enc})
}

func (h *Handler) CompleteAppointment(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req completeAppointmentRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	a, err := h.svc.Appointments.CompleteAppointment(c.Request.Context(), id, req.ActualDurationMins, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req reasonRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	a, err := h.svc.Appointments.CancelAppointment(c.Request.Context(), id, req.Reason, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

func (h *Handler) NoShowAppointment(c *gin.Context) {
	byID(c, h.svc.Appointments.MarkNoShow)
}
