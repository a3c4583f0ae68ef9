package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/billing"
)

// Amounts on the wire are integer cents.

type createBillRequest struct {
	PatientID   uuid.UUID  `json:"patient_id" binding:"required"`
	EncounterID *uuid.UUID `json:"encounter_id"`
	AdmissionID *uuid.UUID `json:"admission_id"`
}

type addItemRequest struct {
	Category    billing.ItemCategory `json:"category" binding:"required"`
	Description string               `json:"description" binding:"required"`
	Quantity    int                  `json:"quantity" binding:"required"`
	UnitPrice   domain.Money         `json:"unit_price"`
	Taxable     bool                 `json:"taxable"`
}

type discountRequest struct {
	Amount domain.Money `json:"amount" binding:"required"`
	Reason string       `json:"reason" binding:"required"`
}

type paymentRequest struct {
	Amount    domain.Money          `json:"amount" binding:"required"`
	Method    billing.PaymentMethod `json:"method" binding:"required"`
	Reference string                `json:"reference"`
}

type createClaimRequest struct {
	BillID uuid.UUID    `json:"bill_id" binding:"required"`
	Amount domain.Money `json:"amount" binding:"required"`
}

type approveClaimRequest struct {
	Amount domain.Money `json:"approved_amount" binding:"required"`
}

func (h *Handler) CreateBill(c *gin.Context) {
	var req createBillRequest
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.svc.Billing.CreateBill(c.Request.Context(), &billing.CreateBillCommand{
		PatientID:   req.PatientID,
		EncounterID: req.EncounterID,
		AdmissionID: req.AdmissionID,
	}, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, b)
}

func (h *Handler) GetBill(c *gin.Context) {
	byID(c, h.svc.Billing.GetBill)
}

func (h *Handler) ListBills(c *gin.Context) {
	patientID, ok := queryUUID(c, "patient_id")
	if !ok {
		return
	}
	res, err := h.svc.Billing.ListBills(c.Request.Context(), &billing.ListBillsQuery{
		PatientID: patientID,
		Status:    queryEnum[billing.BillStatus](c, "status"),
		Page:      parseQueryInt(c, "page", 1),
		PageSize:  parseQueryInt(c, "page_size", 20),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

func (h *Handler) AddBillItem(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req addItemRequest
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.svc.Billing.AddItem(c.Request.Context(), &billing.AddItemCommand{
		BillID:      id,
		Category:    req.Category,
		Description: req.Description,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		Taxable:     req.Taxable,
	}, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, b)
}

func (h *Handler) ApplyDiscount(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req discountRequest
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.svc.Billing.ApplyDiscount(c.Request.Context(), id, req.Amount, req.Reason, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, b)
}

func (h *Handler) RecordPayment(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req paymentRequest
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.svc.Billing.RecordPayment(c.Request.Context(), &billing.PaymentCommand{
		BillID:    id,
		Amount:    req.Amount,
		Method:    req.Method,
		Reference: req.Reference,
	}, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, b)
}

func (h *Handler) VoidBill(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req reasonRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	b, err := h.svc.Billing.VoidBill(c.Request.Context(), id, req.Reason, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, b)
}

func (h *Handler) CreateClaim(c *gin.Context) {
	var req createClaimRequest
	if !bindJSON(c, &req) {
		return
	}
	cl, err := h.svc.Billing.CreateClaim(c.Request.Context(), &billing.CreateClaimCommand{
		BillID: req.BillID,
		Amount: req.Amount,
	}, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, cl)
}

func (h *Handler) GetClaim(c *gin.Context) {
	byID(c, h.svc.Billing.GetClaim)
}

func (h *Handler) ListClaims(c *gin.Context) {
	patientID, ok := queryUUID(c, "patient_id")
	if !ok {
		return
	}
	res, err := h.svc.Billing.ListClaims(c.Request.Context(), &billing.ListClaimsQuery{
		PatientID: patientID,
		Status:    queryEnum[billing.ClaimStatus](c, "status"),
		Page:      parseQueryInt(c, "page", 1),
		PageSize:  parseQueryInt(c, "page_size", 20),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

func (h *Handler) SubmitClaim(c *gin.Context) {
	byID(c, h.svc.Billing.SubmitClaim)
}

func (h *Handler) ApproveClaim(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req approveClaimRequest
	if !bindJSON(c, &req) {
		return
	}
	cl, err := h.svc.Billing.ApproveClaim(c.Request.Context(), id, req.Amount, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, cl)
}

func (h *Handler) RejectClaim(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req reasonRequest
	if !bindJSON(c, &req) {
		return
	}
	cl, err := h.svc.Billing.RejectClaim(c.Request.Context(), id, req.Reason, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, cl)
}

func (h *Handler) MarkClaimPaid(c *gin.Context) {
	byID(c, h.svc.Billing.MarkClaimPaid)
}
