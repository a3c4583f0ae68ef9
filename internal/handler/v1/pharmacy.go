package v1

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/pharmacy"
)

type createMedicationRequest struct {
	Name                 string              `json:"name" binding:"required"`
	GenericName          string              `json:"generic_name"`
	Form                 pharmacy.DosageForm `json:"form" binding:"required"`
	Strength             string              `json:"strength"`
	Unit                 string              `json:"unit"`
	UnitPrice            domain.Money        `json:"unit_price"`
	InitialStock         int                 `json:"initial_stock"`
	ReorderLevel         int                 `json:"reorder_level"`
	RequiresPrescription bool                `json:"requires_prescription"`
	Taxable              bool                `json:"taxable"`
}

type stockRequest struct {
	Quantity int    `json:"quantity" binding:"required"`
	Note     string `json:"note"`
}

type saleRequest struct {
	PatientID    uuid.UUID `json:"patient_id" binding:"required"`
	MedicationID uuid.UUID `json:"medication_id" binding:"required"`
	Quantity     int       `json:"quantity" binding:"required"`
}

func (h *Handler) CreateMedication(c *gin.Context) {
	var req createMedicationRequest
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.svc.Pharmacy.CreateMedication(c.Request.Context(), &pharmacy.CreateMedicationCommand{
		Name:                 req.Name,
		GenericName:          req.GenericName,
		Form:                 req.Form,
		Strength:             req.Strength,
		Unit:                 req.Unit,
		UnitPrice:            req.UnitPrice,
		InitialStock:         req.InitialStock,
		ReorderLevel:         req.ReorderLevel,
		RequiresPrescription: req.RequiresPrescription,
		Taxable:              req.Taxable,
	}, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, m)
}

func (h *Handler) GetMedication(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	m, err := h.svc.Pharmacy.GetMedication(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, m)
}

func (h *Handler) ListMedications(c *gin.Context) {
	q := &pharmacy.ListMedicationsQuery{
		Search:   c.Query("q"),
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 20),
	}
	q.LowStock, _ = strconv.ParseBool(c.Query("low_stock"))
	if raw := c.Query("active"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			q.Active = &v
		}
	}
	res, err := h.svc.Pharmacy.ListMedications(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

func (h *Handler) RestockMedication(c *gin.Context) {
	h.stockChange(c, h.svc.Pharmacy.Restock)
}

// AdjustStock applies a signed correction; a note is mandatory.
func (h *Handler) AdjustStock(c *gin.Context) {
	h.stockChange(c, h.svc.Pharmacy.Adjust)
}

func (h *Handler) stockChange(c *gin.Context, apply func(context.Context, *pharmacy.StockCommand, domain.Actor) (*pharmacy.Medication, error)) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req stockRequest
	if !bindJSON(c, &req) {
		return
	}
	m, err := apply(c.Request.Context(), &pharmacy.StockCommand{MedicationID: id, Delta: req.Quantity, Note: req.Note}, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, m)
}

func (h *Handler) StockMovements(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	out, err := h.svc.Pharmacy.Movements(c.Request.Context(), id, parseQueryInt(c, "limit", 50))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, out)
}

func (h *Handler) OverTheCounterSale(c *gin.Context) {
	var req saleRequest
	if !bindJSON(c, &req) {
		return
	}
	sale, err := h.svc.Pharmacy.OverTheCounterSale(c.Request.Context(), &pharmacy.SaleCommand{
		PatientID:    req.PatientID,
		MedicationID: req.MedicationID,
		Quantity:     req.Quantity,
	}, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, sale)
}

func (h *Handler) GetSale(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	sale, err := h.svc.Pharmacy.GetSale(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, sale)
}
