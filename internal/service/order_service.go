package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/billing"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/order"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/patient"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/events"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/metrics"
)

var orderCategory = map[order.OrderType]billing.ItemCategory{
	order.TypeLab:       billing.CategoryLab,
	order.TypeRadiology: billing.CategoryRadiology,
	order.TypeProcedure: billing.CategoryProcedure,
}

// OrderService handles computerized provider order entry.
type OrderService struct {
	repo        order.Repository
	patientRepo patient.Repository
	billing     *BillingService
	tx          Transactor
	auditSvc    *AuditService
	events      publisher
	metrics     *metrics.Collector
	log         *zap.Logger
	sla         order.SLA
	now         func() time.Time
}

func NewOrderService(
	repo order.Repository,
	patientRepo patient.Repository,
	billingSvc *BillingService,
	tx Transactor,
	auditSvc *AuditService,
	pub events.Publisher,
	m *metrics.Collector,
	log *zap.Logger,
	sla order.SLA,
) *OrderService {
	return &OrderService{
		repo:        repo,
		patientRepo: patientRepo,
		billing:     billingSvc,
		tx:          tx,
		auditSvc:    auditSvc,
		events:      publisher{pub: pub, log: log},
		metrics:     m,
		log:         log,
		sla:         sla,
		now:         utcNow,
	}
}

// CreateOrder places an order and bills its priced items in the same transaction.
func (s *OrderService) CreateOrder(ctx context.Context, cmd *order.CreateOrderCommand, actor domain.Actor) (*order.Order, error) {
	if !actor.Role.IsClinician() {
		return nil, ErrForbidden
	}
	if !cmd.Type.IsValid() {
		return nil, order.ErrInvalidOrderType
	}
	if cmd.Priority == "" {
		cmd.Priority = order.PriorityRoutine
	}
	if !cmd.Priority.IsValid() {
		return nil, order.ErrInvalidPriority
	}
	if len(cmd.Items) == 0 {
		return nil, order.ErrNoItems
	}
	var errs fieldErrors
	for i, in := range cmd.Items {
		if strings.TrimSpace(in.Code) == "" {
			errs.add("items[%d].code is required", i)
		}
		if strings.TrimSpace(in.Name) == "" {
			errs.add("items[%d].name is required", i)
		}
		if in.Price < 0 {
			errs.add("items[%d].price cannot be negative", i)
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	o := &order.Order{
		PatientID:     cmd.PatientID,
		EncounterID:   cmd.EncounterID,
		OrderedBy:     actor.UserID,
		Type:          cmd.Type,
		Priority:      cmd.Priority,
		Status:        order.StatusPending,
		ClinicalNotes: cmd.ClinicalNotes,
		OrderedAt:     s.now(),
	}
	for _, in := range cmd.Items {
		o.Items = append(o.Items, order.OrderItem{
			Code:   strings.ToUpper(strings.TrimSpace(in.Code)),
			Name:   strings.TrimSpace(in.Name),
			Price:  in.Price,
			Status: order.ItemPending,
		})
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		p, err := s.patientRepo.GetByID(ctx, cmd.PatientID)
		if err != nil {
			return err
		}
		if err := p.CheckUsable(); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, o); err != nil {
			return err
		}
		for i := range o.Items {
			it := &o.Items[i]
			if it.Price == 0 {
				continue
			}
			if _, _, err := s.billing.Charge(ctx, billing.Charge{
				PatientID:   o.PatientID,
				EncounterID: o.EncounterID,
				Category:    orderCategory[o.Type],
				Description: it.Code + " " + it.Name,
				Quantity:    1,
				UnitPrice:   it.Price,
				SourceType:  "order_item",
				SourceID:    &it.ID,
			}, actor); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.Evaluate(s.sla, s.now())
	s.auditSvc.record(ctx, actor, domain.ActionCreate, "order", o.ID.String(), map[string]any{
		"type":     o.Type,
		"priority": o.Priority,
		"items":    len(o.Items),
	})
	s.events.emit(ctx, events.OrderCreated, o.PatientID, actor, map[string]any{
		"order_id": o.ID,
		"type":     o.Type,
		"priority": o.Priority,
		"due_at":   o.DueAt,
	})
	return o, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID, actor domain.Actor) (*order.Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Evaluate(s.sla, s.now())
	s.auditSvc.record(ctx, actor, domain.ActionRead, "order", id.String(), nil)
	return o, nil
}

func (s *OrderService) ListOrders(ctx context.Context, q *order.ListOrdersQuery) (*order.PagedOrders, error) {
	q.Page, q.PageSize = domain.Page(q.Page, q.PageSize)
	return s.repo.List(ctx, q, s.sla, s.now())
}

func (s *OrderService) ListOverdue(ctx context.Context, q *order.ListOrdersQuery) (*order.PagedOrders, error) {
	q.OverdueOnly = true
	return s.ListOrders(ctx, q)
}

func (s *OrderService) StartOrder(ctx context.Context, id uuid.UUID, actor domain.Actor) (*order.Order, error) {
	return s.mutate(ctx, id, actor, func(o *order.Order, now time.Time) error {
		return o.Start(now)
	})
}

func (s *OrderService) RecordResult(ctx context.Context, orderID, itemID uuid.UUID, result string, actor domain.Actor) (*order.Order, error) {
	if strings.TrimSpace(result) == "" {
		return nil, &ValidationError{Fields: []string{"result is required"}}
	}
	return s.mutate(ctx, orderID, actor, func(o *order.Order, now time.Time) error {
		_, err := o.RecordResult(itemID, result, actor.UserID, now)
		return err
	})
}

func (s *OrderService) CancelItem(ctx context.Context, orderID, itemID uuid.UUID, actor domain.Actor) (*order.Order, error) {
	return s.mutate(ctx, orderID, actor, func(o *order.Order, now time.Time) error {
		_, err := o.CancelItem(itemID, now)
		return err
	})
}

func (s *OrderService) CancelOrder(ctx context.Context, id uuid.UUID, reason string, actor domain.Actor) (*order.Order, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, &ValidationError{Fields: []string{"reason is required"}}
	}
	return s.mutate(ctx, id, actor, func(o *order.Order, now time.Time) error {
		return o.Cancel(reason, now)
	})
}

func (s *OrderService) mutate(ctx context.Context, id uuid.UUID, actor domain.Actor, fn func(*order.Order, time.Time) error) (*order.Order, error) {
	var o *order.Order
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if o, err = s.repo.GetByIDForUpdate(ctx, id); err != nil {
			return err
		}
		if err := fn(o, s.now()); err != nil {
			return err
		}
		return s.repo.Save(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	o.Evaluate(s.sla, s.now())
	s.auditSvc.record(ctx, actor, domain.ActionUpdate, "order", id.String(), map[string]string{"status": string(o.Status)})
	return o, nil
}

// RefreshOverdueGauge recomputes the overdue count per priority.
func (s *OrderService) RefreshOverdueGauge(ctx context.Context) error {
	open, err := s.repo.ListOpen(ctx)
	if err != nil {
		return err
	}
	now := s.now()
	counts := map[order.Priority]int{
		order.PriorityStat:    0,
		order.PriorityUrgent:  0,
		order.PriorityRoutine: 0,
	}
	for _, o := range open {
		o.Evaluate(s.sla, now)
		if o.Overdue {
			counts[o.Priority]++
		}
	}
	for p, n := range counts {
		s.metrics.OrdersOverdue.WithLabelValues(string(p)).Set(float64(n))
	}
	return nil
}
