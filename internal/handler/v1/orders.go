package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/order"
)

type orderItemRequest struct {
	Code  string       `json:"code"`
	Name  string       `json:"name" binding:"required"`
	Price domain.Money `json:"price"`
}

type createOrderRequest struct {
	PatientID     uuid.UUID          `json:"patient_id" binding:"required"`
	EncounterID   *uuid.UUID         `json:"encounter_id"`
	Type          order.OrderType    `json:"type" binding:"required"`
	Priority      order.Priority     `json:"priority"`
	ClinicalNotes string             `json:"clinical_notes"`
	Items         []orderItemRequest `json:"items" binding:"required,dive"`
}

type resultRequest struct {
	Result string `json:"result" binding:"required"`
}

func (h *Handler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	items := make([]order.ItemInput, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.ItemInput{Code: it.Code, Name: it.Name, Price: it.Price}
	}
	o, err := h.svc.Orders.CreateOrder(c.Request.Context(), &order.CreateOrderCommand{
		PatientID:     req.PatientID,
		EncounterID:   req.EncounterID,
		Type:          req.Type,
		Priority:      req.Priority,
		ClinicalNotes: req.ClinicalNotes,
		Items:         items,
	}, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, o)
}

func (h *Handler) GetOrder(c *gin.Context) {
	byID(c, h.svc.Orders.GetOrder)
}

func (h *Handler) ListOrders(c *gin.Context) {
	q, ok := orderQuery(c)
	if !ok {
		return
	}
	res, err := h.svc.Orders.ListOrders(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

// ListOverdueOrders returns open orders past their priority's SLA.
func (h *Handler) ListOverdueOrders(c *gin.Context) {
	q, ok := orderQuery(c)
	if !ok {
		return
	}
	res, err := h.svc.Orders.ListOverdue(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

func orderQuery(c *gin.Context) (*order.ListOrdersQuery, bool) {
	q := &order.ListOrdersQuery{
		Type:     queryEnum[order.OrderType](c, "type"),
		Status:   queryEnum[order.Status](c, "status"),
		Priority: queryEnum[order.Priority](c, "priority"),
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 20),
	}
	var ok bool
	if q.PatientID, ok = queryUUID(c, "patient_id"); !ok {
		return nil, false
	}
	if q.EncounterID, ok = queryUUID(c, "encounter_id"); !ok {
		return nil, false
	}
	return q, true
}

func (h *Handler) StartOrder(c *gin.Context) {
	byID(c, h.svc.Orders.StartOrder)
}

func (h *Handler) CancelOrder(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req reasonRequest
	if !bindJSON(c, &req) {
		return
	}
	o, err := h.svc.Orders.CancelOrder(c.Request.Context(), id, req.Reason, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, o)
}

func (h *Handler) RecordResult(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	itemID, ok := parseUUID(c, "itemId")
	if !ok {
		return
	}
	var req resultRequest
	if !bindJSON(c, &req) {
		return
	}
	o, err := h.svc.Orders.RecordResult(c.Request.Context(), id, itemID, req.Result, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, o)
}

func (h *Handler) CancelOrderItem(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	itemID, ok := parseUUID(c, "itemId")
	if !ok {
		return
	}
	o, err := h.svc.Orders.CancelItem(c.Request.Context(), id, itemID, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, o)
}
