package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/ward"
)

type createWardRequest struct {
	Code              string                 `json:"code" binding:"required"`
	Name              string                 `json:"name" binding:"required"`
	Type              ward.WardType          `json:"type" binding:"required"`
	GenderRestriction ward.GenderRestriction `json:"gender_restriction"`
	DailyRate         domain.Money           `json:"daily_rate"`
	Floor             string                 `json:"floor"`
}

type createBedRequest struct {
	WardID    uuid.UUID `json:"ward_id" binding:"required"`
	BedNumber string    `json:"bed_number" binding:"required"`
	Notes     string    `json:"notes"`
}

type assignBedRequest struct {
	PatientID uuid.UUID `json:"patient_id" binding:"required"`
}

type bedStatusRequest struct {
	Status ward.BedStatus `json:"status" binding:"required"`
}

type admitRequest struct {
	PatientID uuid.UUID `json:"patient_id" binding:"required"`
	BedID     uuid.UUID `json:"bed_id" binding:"required"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	Diagnosis string    `json:"diagnosis"`
	Reason    string    `json:"reason"`
}

type transferRequest struct {
	ToBedID uuid.UUID `json:"to_bed_id" binding:"required"`
	Reason  string    `json:"reason"`
}

type dischargeRequest struct {
	Summary     string           `json:"summary"`
	Disposition ward.Disposition `json:"disposition"`
}

func (h *Handler) CreateWard(c *gin.Context) {
	var req createWardRequest
	if !bindJSON(c, &req) {
		return
	}
	w, err := h.svc.Wards.CreateWard(c.Request.Context(), &ward.CreateWardCommand{
		Code:              req.Code,
		Name:              req.Name,
		Type:              req.Type,
		GenderRestriction: req.GenderRestriction,
		DailyRate:         req.DailyRate,
		Floor:             req.Floor,
	}, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, w)
}

func (h *Handler) ListWards(c *gin.Context) {
	wards, err := h.svc.Wards.ListWards(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, wards)
}

func (h *Handler) WardOccupancy(c *gin.Context) {
	occ, err := h.svc.Wards.Occupancy(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, occ)
}

func (h *Handler) CreateBed(c *gin.Context) {
	var req createBedRequest
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.svc.Wards.CreateBed(c.Request.Context(), &ward.CreateBedCommand{
		WardID:    req.WardID,
		BedNumber: req.BedNumber,
		Notes:     req.Notes,
	}, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, b)
}

func (h *Handler) ListBeds(c *gin.Context) {
	wardID, ok := queryUUID(c, "ward_id")
	if !ok {
		return
	}
	beds, err := h.svc.Wards.ListBeds(c.Request.Context(), &ward.ListBedsQuery{
		WardID: wardID,
		Status: queryEnum[ward.BedStatus](c, "status"),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, beds)
}

// AssignBed places a patient in a bed without opening an admission, e.g. an
// observation bay.
func (h *Handler) AssignBed(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req assignBedRequest
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.svc.Wards.AssignBed(c.Request.Context(), id, req.PatientID, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, b)
}

func (h *Handler) VacateBed(c *gin.Context) {
	byID(c, h.svc.Wards.VacateBed)
}

func (h *Handler) SetBedStatus(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req bedStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.svc.Wards.SetBedStatus(c.Request.Context(), id, req.Status, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, b)
}

func (h *Handler) Admit(c *gin.Context) {
	var req admitRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.svc.Wards.Admit(c.Request.Context(), &ward.AdmitCommand{
		PatientID: req.PatientID,
		BedID:     req.BedID,
		DoctorID:  req.DoctorID,
		Diagnosis: req.Diagnosis,
		Reason:    req.Reason,
	}, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, a)
}

func (h *Handler) GetAdmission(c *gin.Context) {
	byID(c, h.svc.Wards.GetAdmission)
}

func (h *Handler) ListAdmissions(c *gin.Context) {
	patientID, ok := queryUUID(c, "patient_id")
	if !ok {
		return
	}
	wardID, ok := queryUUID(c, "ward_id")
	if !ok {
		return
	}
	res, err := h.svc.Wards.ListAdmissions(c.Request.Context(), &ward.ListAdmissionsQuery{
		PatientID: patientID,
		WardID:    wardID,
		Status:    queryEnum[ward.AdmissionStatus](c, "status"),
		Page:      parseQueryInt(c, "page", 1),
		PageSize:  parseQueryInt(c, "page_size", 20),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

func (h *Handler) TransferBed(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req transferRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.svc.Wards.Transfer(c.Request.Context(), &ward.TransferCommand{
		AdmissionID: id,
		ToBedID:     req.ToBedID,
		Reason:      req.Reason,
	}, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

func (h *Handler) Discharge(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req dischargeRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	a, err := h.svc.Wards.Discharge(c.Request.Context(), &ward.DischargeCommand{
		AdmissionID: id,
		Summary:     req.Summary,
		Disposition: req.Disposition,
	}, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

func (h *Handler) ListTransfers(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	out, err := h.svc.Wards.ListTransfers(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, out)
}
