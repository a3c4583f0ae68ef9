package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/billing"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/patient"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/events"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/metrics"
)

type BillingService struct {
	repo        billing.Repository
	patientRepo patient.Repository
	tx          Transactor
	auditSvc    *AuditService
	events      publisher
	metrics     *metrics.Collector
	log         *zap.Logger
	taxBPS      int
	now         func() time.Time
}

func NewBillingService(
	repo billing.Repository,
	patientRepo patient.Repository,
	tx Transactor,
	auditSvc *AuditService,
	pub events.Publisher,
	m *metrics.Collector,
	log *zap.Logger,
	taxBPS int,
) *BillingService {
	return &BillingService{
		repo:        repo,
		patientRepo: patientRepo,
		tx:          tx,
		auditSvc:    auditSvc,
		events:      publisher{pub: pub, log: log},
		metrics:     m,
		log:         log,
		taxBPS:      taxBPS,
		now:         utcNow,
	}
}

func (s *BillingService) CreateBill(ctx context.Context, cmd *billing.CreateBillCommand, actor domain.Actor) (*billing.Bill, error) {
	p, err := s.patientRepo.GetByID(ctx, cmd.PatientID)
	if err != nil {
		return nil, err
	}
	if p.Status == patient.StatusMerged {
		return nil, patient.ErrPatientMerged
	}
	b := &billing.Bill{
		PatientID:   cmd.PatientID,
		EncounterID: cmd.EncounterID,
		AdmissionID: cmd.AdmissionID,
		Status:      billing.BillOpen,
		CreatedBy:   actor.UserID,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("creating bill: %w", err)
	}
	s.auditSvc.record(ctx, actor, domain.ActionCreate, "bill", b.ID.String(), nil)
	return b, nil
}

func (s *BillingService) GetBill(ctx context.Context, id uuid.UUID, actor domain.Actor) (*billing.Bill, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionRead, "bill", id.String(), nil)
	return b, nil
}

func (s *BillingService) ListBills(ctx context.Context, q *billing.ListBillsQuery) (*billing.PagedBills, error) {
	q.Page, q.PageSize = domain.Page(q.Page, q.PageSize)
	return s.repo.List(ctx, q)
}

func (s *BillingService) AddItem(ctx context.Context, cmd *billing.AddItemCommand, actor domain.Actor) (*billing.Bill, error) {
	if strings.TrimSpace(cmd.Description) == "" {
		return nil, &ValidationError{Fields: []string{"description is required"}}
	}
	var b *billing.Bill
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if b, err = s.repo.GetByIDForUpdate(ctx, cmd.BillID); err != nil {
			return err
		}
		_, err = s.appendItem(ctx, b, billing.BillItem{
			Category:    cmd.Category,
			Description: cmd.Description,
			Quantity:    cmd.Quantity,
			UnitPrice:   cmd.UnitPrice,
			Taxable:     cmd.Taxable,
			SourceType:  "manual",
			CreatedBy:   actor.UserID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionUpdate, "bill", b.ID.String(), map[string]any{
		"item":  cmd.Description,
		"total": b.Total,
	})
	return b, nil
}

// Charge appends an item to the patient's open bill for the encounter or
// admission, opening a bill when none exists. It joins the caller's
// transaction, so the charge commits or rolls back with the clinical change
// that produced it.
func (s *BillingService) Charge(ctx context.Context, ch billing.Charge, actor domain.Actor) (*billing.Bill, *billing.BillItem, error) {
	var (
		b    *billing.Bill
		item *billing.BillItem
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		b, err = s.repo.FindOpenForUpdate(ctx, ch.PatientID, ch.EncounterID, ch.AdmissionID)
		if err != nil {
			return fmt.Errorf("finding open bill: %w", err)
		}
		if b == nil {
			b = &billing.Bill{
				PatientID:   ch.PatientID,
				EncounterID: ch.EncounterID,
				AdmissionID: ch.AdmissionID,
				Status:      billing.BillOpen,
				CreatedBy:   actor.UserID,
			}
			if err := s.repo.Create(ctx, b); err != nil {
				return fmt.Errorf("opening bill: %w", err)
			}
		}
		item, err = s.appendItem(ctx, b, billing.BillItem{
			Category:    ch.Category,
			Description: ch.Description,
			Quantity:    ch.Quantity,
			UnitPrice:   ch.UnitPrice,
			Taxable:     ch.Taxable,
			SourceType:  ch.SourceType,
			SourceID:    ch.SourceID,
			CreatedBy:   actor.UserID,
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return b, item, nil
}

func (s *BillingService) appendItem(ctx context.Context, b *billing.Bill, it billing.BillItem) (*billing.BillItem, error) {
	if err := b.AddItem(it); err != nil {
		return nil, err
	}
	item := &b.Items[len(b.Items)-1]
	if err := s.repo.AddItem(ctx, item); err != nil {
		return nil, fmt.Errorf("adding bill item: %w", err)
	}
	b.Recalculate(s.taxBPS)
	if err := s.repo.SaveTotals(ctx, b); err != nil {
		return nil, fmt.Errorf("saving bill totals: %w", err)
	}
	return item, nil
}

func (s *BillingService) ApplyDiscount(ctx context.Context, id uuid.UUID, amount domain.Money, reason string, actor domain.Actor) (*billing.Bill, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, &ValidationError{Fields: []string{"reason is required"}}
	}
	var b *billing.Bill
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if b, err = s.repo.GetByIDForUpdate(ctx, id); err != nil {
			return err
		}
		if err := b.ApplyDiscount(amount, reason, s.taxBPS); err != nil {
			return err
		}
		return s.repo.SaveTotals(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionUpdate, "bill", id.String(), map[string]any{
		"discount": amount,
		"reason":   reason,
	})
	return b, nil
}

func (s *BillingService) RecordPayment(ctx context.Context, cmd *billing.PaymentCommand, actor domain.Actor) (*billing.Bill, error) {
	var b *billing.Bill
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if b, err = s.repo.GetByIDForUpdate(ctx, cmd.BillID); err != nil {
			return err
		}
		return s.pay(ctx, b, billing.Payment{
			Amount:     cmd.Amount,
			Method:     cmd.Method,
			Reference:  strings.TrimSpace(cmd.Reference),
			ReceivedBy: actor.UserID,
			ReceivedAt: s.now(),
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.PaymentsTotal.WithLabelValues(string(cmd.Method)).Add(float64(cmd.Amount))
	s.auditSvc.record(ctx, actor, domain.ActionUpdate, "bill", b.ID.String(), map[string]any{
		"payment": cmd.Amount,
		"method":  cmd.Method,
		"status":  b.Status,
	})
	return b, nil
}

func (s *BillingService) pay(ctx context.Context, b *billing.Bill, p billing.Payment) error {
	if err := b.AddPayment(p, s.taxBPS); err != nil {
		return err
	}
	if err := s.repo.AddPayment(ctx, &b.Payments[len(b.Payments)-1]); err != nil {
		return fmt.Errorf("recording payment: %w", err)
	}
	return s.repo.SaveTotals(ctx, b)
}

func (s *BillingService) VoidBill(ctx context.Context, id uuid.UUID, reason string, actor domain.Actor) (*billing.Bill, error) {
	var b *billing.Bill
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if b, err = s.repo.GetByIDForUpdate(ctx, id); err != nil {
			return err
		}
		if err := b.Void(reason, s.now()); err != nil {
			return err
		}
		return s.repo.SaveTotals(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionUpdate, "bill", id.String(), map[string]string{"status": string(b.Status), "reason": reason})
	return b, nil
}

func (s *BillingService) CreateClaim(ctx context.Context, cmd *billing.CreateClaimCommand, actor domain.Actor) (*billing.NHIFClaim, error) {
	if cmd.Amount <= 0 {
		return nil, billing.ErrInvalidAmount
	}
	var c *billing.NHIFClaim
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		b, err := s.repo.GetByIDForUpdate(ctx, cmd.BillID)
		if err != nil {
			return err
		}
		if b.Status == billing.BillVoid {
			return billing.ErrBillVoid
		}
		p, err := s.patientRepo.GetByID(ctx, b.PatientID)
		if err != nil {
			return err
		}
		if strings.TrimSpace(p.NHIFNumber) == "" {
			return billing.ErrNoNHIFNumber
		}
		b.Recalculate(s.taxBPS)
		if cmd.Amount > b.BalanceDue {
			return billing.ErrClaimExceedsBalance
		}
		c = &billing.NHIFClaim{
			BillID:        b.ID,
			PatientID:     b.PatientID,
			NHIFNumber:    p.NHIFNumber,
			ClaimedAmount: cmd.Amount,
			Status:        billing.ClaimDraft,
			CreatedBy:     actor.UserID,
		}
		return s.repo.CreateClaim(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionCreate, "nhif_claim", c.ID.String(), map[string]any{"amount": c.ClaimedAmount})
	return c, nil
}

func (s *BillingService) GetClaim(ctx context.Context, id uuid.UUID, actor domain.Actor) (*billing.NHIFClaim, error) {
	c, err := s.repo.GetClaim(ctx, id)
	if err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionRead, "nhif_claim", id.String(), nil)
	return c, nil
}

func (s *BillingService) ListClaims(ctx context.Context, q *billing.ListClaimsQuery) (*billing.PagedClaims, error) {
	q.Page, q.PageSize = domain.Page(q.Page, q.PageSize)
	return s.repo.ListClaims(ctx, q)
}

func (s *BillingService) SubmitClaim(ctx context.Context, id uuid.UUID, actor domain.Actor) (*billing.NHIFClaim, error) {
	c, err := s.claimTransition(ctx, id, actor, func(ctx context.Context, c *billing.NHIFClaim) error {
		return c.Submit(s.now())
	})
	if err != nil {
		return nil, err
	}
	s.events.emit(ctx, events.ClaimSubmitted, c.ID, actor, map[string]any{
		"claim_number": c.ClaimNumber,
		"bill_id":      c.BillID,
		"amount":       c.ClaimedAmount,
	})
	return c, nil
}

func (s *BillingService) ApproveClaim(ctx context.Context, id uuid.UUID, amount domain.Money, actor domain.Actor) (*billing.NHIFClaim, error) {
	return s.claimTransition(ctx, id, actor, func(ctx context.Context, c *billing.NHIFClaim) error {
		return c.Approve(amount, s.now())
	})
}

func (s *BillingService) RejectClaim(ctx context.Context, id uuid.UUID, reason string, actor domain.Actor) (*billing.NHIFClaim, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, &ValidationError{Fields: []string{"reason is required"}}
	}
	return s.claimTransition(ctx, id, actor, func(ctx context.Context, c *billing.NHIFClaim) error {
		return c.Reject(reason, s.now())
	})
}

// MarkClaimPaid settles the approved amount on the bill as an nhif payment.
func (s *BillingService) MarkClaimPaid(ctx context.Context, id uuid.UUID, actor domain.Actor) (*billing.NHIFClaim, error) {
	c, err := s.claimTransition(ctx, id, actor, func(ctx context.Context, c *billing.NHIFClaim) error {
		now := s.now()
		if err := c.MarkPaid(now); err != nil {
			return err
		}
		b, err := s.repo.GetByIDForUpdate(ctx, c.BillID)
		if err != nil {
			return err
		}
		return s.pay(ctx, b, billing.Payment{
			Amount:     c.ApprovedAmount,
			Method:     billing.MethodNHIF,
			Reference:  c.ClaimNumber,
			ReceivedBy: actor.UserID,
			ReceivedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.PaymentsTotal.WithLabelValues(string(billing.MethodNHIF)).Add(float64(c.ApprovedAmount))
	return c, nil
}

func (s *BillingService) claimTransition(ctx context.Context, id uuid.UUID, actor domain.Actor, apply func(context.Context, *billing.NHIFClaim) error) (*billing.NHIFClaim, error) {
	var c *billing.NHIFClaim
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if c, err = s.repo.GetClaimForUpdate(ctx, id); err != nil {
			return err
		}
		if err := apply(ctx, c); err != nil {
			return err
		}
		return s.repo.SaveClaim(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionUpdate, "nhif_claim", id.String(), map[string]string{"status": string(c.Status)})
	return c, nil
}
