package v1

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/patient"
)

type createPatientRequest struct {
	FirstName        string                    `json:"first_name" binding:"required"`
	MiddleName       string                    `json:"middle_name"`
	LastName         string                    `json:"last_name" binding:"required"`
	DateOfBirth      string                    `json:"date_of_birth" binding:"required"`
	Gender           patient.Gender            `json:"gender" binding:"required"`
	BloodType        patient.BloodType         `json:"blood_type"`
	NationalID       string                    `json:"national_id"`
	NHIFNumber       string                    `json:"nhif_number"`
	Phone            string                    `json:"phone"`
	Email            string                    `json:"email"`
	Address          string                    `json:"address"`
	Town             string                    `json:"town"`
	County           string                    `json:"county"`
	EmergencyContact *patient.EmergencyContact `json:"emergency_contact"`
	Allergies        []string                  `json:"allergies"`
	Notes            string                    `json:"notes"`
	Force            bool                      `json:"force"`
}

type updatePatientRequest struct {
	FirstName        *string                   `json:"first_name"`
	MiddleName       *string                   `json:"middle_name"`
	LastName         *string                   `json:"last_name"`
	Gender           *patient.Gender           `json:"gender"`
	BloodType        *patient.BloodType        `json:"blood_type"`
	NationalID       *string                   `json:"national_id"`
	NHIFNumber       *string                   `json:"nhif_number"`
	Phone            *string                   `json:"phone"`
	Email            *string                   `json:"email"`
	Address          *string                   `json:"address"`
	Town             *string                   `json:"town"`
	County           *string                   `json:"county"`
	EmergencyContact *patient.EmergencyContact `json:"emergency_contact"`
	Allergies        *[]string                 `json:"allergies"`
	Notes            *string                   `json:"notes"`
}

type duplicateSearchRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth"`
	NationalID  string `json:"national_id"`
	NHIFNumber  string `json:"nhif_number"`
	Phone       string `json:"phone"`
}

type mergeRequest struct {
	TargetID uuid.UUID `json:"target_id" binding:"required"`
	Reason   string    `json:"reason" binding:"required"`
}

func parseDate(c *gin.Context, field, raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid "+field+": expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return t, true
}

func (h *Handler) CreatePatient(c *gin.Context) {
	var req createPatientRequest
	if !bindJSON(c, &req) {
		return
	}
	dob, ok := parseDate(c, "date_of_birth", req.DateOfBirth)
	if !ok {
		return
	}
	a := actor(c)
	p, err := h.svc.Patients.CreatePatient(c.Request.Context(), &patient.CreatePatientCommand{
		FirstName:        req.FirstName,
		MiddleName:       req.MiddleName,
		LastName:         req.LastName,
		DateOfBirth:      dob,
		Gender:           req.Gender,
		BloodType:        req.BloodType,
		NationalID:       req.NationalID,
		NHIFNumber:       req.NHIFNumber,
		Phone:            req.Phone,
		Email:            req.Email,
		Address:          req.Address,
		Town:             req.Town,
		County:           req.County,
		EmergencyContact: req.EmergencyContact,
		Allergies:        req.Allergies,
		Notes:            req.Notes,
		Force:            req.Force,
		CreatedBy:        a.UserID,
	}, a)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, p)
}

func (h *Handler) GetPatient(c *gin.Context) {
	byID(c, h.svc.Patients.GetPatient)
}

func (h *Handler) UpdatePatient(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updatePatientRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.Patients.UpdatePatient(c.Request.Context(), id, &patient.UpdatePatientCommand{
		FirstName:        req.FirstName,
		MiddleName:       req.MiddleName,
		LastName:         req.LastName,
		Gender:           req.Gender,
		BloodType:        req.BloodType,
		NationalID:       req.NationalID,
		NHIFNumber:       req.NHIFNumber,
		Phone:            req.Phone,
		Email:            req.Email,
		Address:          req.Address,
		Town:             req.Town,
		County:           req.County,
		EmergencyContact: req.EmergencyContact,
		Allergies:        req.Allergies,
		Notes:            req.Notes,
	}, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, p)
}

func (h *Handler) ListPatients(c *gin.Context) {
	res, err := h.svc.Patients.ListPatients(c.Request.Context(), &patient.ListPatientsQuery{
		Search:   c.Query("q"),
		Status:   queryEnum[patient.Status](c, "status"),
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 20),
	}, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

func (h *Handler) DeactivatePatient(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Patients.DeactivatePatient(c.Request.Context(), id, actor(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) MarkDeceased(c *gin.Context) {
	byID(c, h.svc.Patients.MarkDeceased)
}

// FindDuplicates scores a prospective registration against existing records
// without creating anything.
func (h *Handler) FindDuplicates(c *gin.Context) {
	var req duplicateSearchRequest
	if !bindJSON(c, &req) {
		return
	}
	dob, ok := parseDate(c, "date_of_birth", req.DateOfBirth)
	if !ok {
		return
	}
	matches, err := h.svc.Patients.FindDuplicates(c.Request.Context(), patient.MatchCriteria{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DateOfBirth: dob,
		NationalID:  req.NationalID,
		NHIFNumber:  req.NHIFNumber,
		Phone:       req.Phone,
	}, nil, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, matches)
}

func (h *Handler) DuplicatesOf(c *gin.Context) {
	byID(c, h.svc.Patients.DuplicatesOf)
}

// MergePatient folds the path patient into target_id.
func (h *Handler) MergePatient(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req mergeRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Patients.MergePatients(c.Request.Context(), &patient.MergeCommand{
		SourceID: id,
		TargetID: req.TargetID,
		Reason:   req.Reason,
	}, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

func (h *Handler) ActivePrescriptions(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	rx, err := h.svc.Prescriptions.ActiveForPatient(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, rx)
}

func (h *Handler) SalesByPatient(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	sales, err := h.svc.Pharmacy.SalesByPatient(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, sales)
}
