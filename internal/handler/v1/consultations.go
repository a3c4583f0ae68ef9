package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/consultation"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/service"
)

type createConsultationRequest struct {
	EncounterID    uuid.UUID                `json:"encounter_id" binding:"required"`
	ChiefComplaint string                   `json:"chief_complaint"`
	SOAPNote       *consultation.SOAPNote   `json:"soap_note"`
	Vitals         *consultation.Vitals     `json:"vitals"`
	Diagnoses      []consultation.Diagnosis `json:"diagnoses"`
	Notes          string                   `json:"notes"`
}

type updateConsultationRequest struct {
	ChiefComplaint *string                   `json:"chief_complaint"`
	SOAPNote       *consultation.SOAPNote    `json:"soap_note"`
	Vitals         *consultation.Vitals      `json:"vitals"`
	Diagnoses      *[]consultation.Diagnosis `json:"diagnoses"`
	Notes          *string                   `json:"notes"`
}

type addendumRequest struct {
	Content string `json:"content" binding:"required"`
}

type attachmentURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) CreateConsultation(c *gin.Context) {
	var req createConsultationRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.svc.Consultations.CreateConsultation(c.Request.Context(), &consultation.CreateConsultationCommand{
		EncounterID:    req.EncounterID,
		ChiefComplaint: req.ChiefComplaint,
		SOAPNote:       req.SOAPNote,
		Vitals:         req.Vitals,
		Diagnoses:      req.Diagnoses,
		Notes:          req.Notes,
	}, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, out)
}

func (h *Handler) GetConsultation(c *gin.Context) {
	byID(c, h.svc.Consultations.GetConsultation)
}

func (h *Handler) ListConsultations(c *gin.Context) {
	q := &consultation.ListConsultationsQuery{
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 20),
	}
	var ok bool
	if q.PatientID, ok = queryUUID(c, "patient_id"); !ok {
		return
	}
	if q.EncounterID, ok = queryUUID(c, "encounter_id"); !ok {
		return
	}
	if q.ClinicianID, ok = queryUUID(c, "clinician_id"); !ok {
		return
	}
	if q.DateFrom, ok = queryTime(c, "from"); !ok {
		return
	}
	if q.DateTo, ok = queryTime(c, "to"); !ok {
		return
	}
	res, err := h.svc.Consultations.ListConsultations(c.Request.Context(), q, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

func (h *Handler) UpdateConsultation(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updateConsultationRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.svc.Consultations.UpdateConsultation(c.Request.Context(), id, &consultation.UpdateConsultationCommand{
		ChiefComplaint: req.ChiefComplaint,
		SOAPNote:       req.SOAPNote,
		Vitals:         req.Vitals,
		Diagnoses:      req.Diagnoses,
		Notes:          req.Notes,
	}, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, out)
}

func (h *Handler) CompleteConsultation(c *gin.Context) {
	byID(c, h.svc.Consultations.CompleteConsultation)
}

func (h *Handler) AddAddendum(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req addendumRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.svc.Consultations.AddAddendum(c.Request.Context(), id, req.Content, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, a)
}

// AttachDocument accepts a multipart form with a single "file" part.
func (h *Handler) AttachDocument(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	if h.maxUpload > 0 {
		// Leave room for the multipart envelope around the file.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+1<<20)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respondServiceError(c, consultation.ErrAttachmentTooLarge)
			return
		}
		respondError(c, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "unreadable upload")
		return
	}
	defer f.Close()

	att, err := h.svc.Consultations.AttachDocument(c.Request.Context(), &service.AttachCommand{
		ConsultationID: id,
		FileName:       fh.Filename,
		ContentType:    fh.Header.Get("Content-Type"),
		Body:           f,
	}, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, att)
}

func (h *Handler) AttachmentURL(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	attID, ok := parseUUID(c, "attachmentId")
	if !ok {
		return
	}
	url, exp, err := h.svc.Consultations.AttachmentURL(c.Request.Context(), id, attID, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, attachmentURLResponse{URL: url, ExpiresAt: exp})
}
