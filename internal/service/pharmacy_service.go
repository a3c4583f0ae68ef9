package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/billing"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/patient"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/pharmacy"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/metrics"
)

// PharmacyService owns medication stock. Every stock change goes through a
// row lock and leaves a ledger entry.
type PharmacyService struct {
	repo        pharmacy.Repository
	patientRepo patient.Repository
	billing     *BillingService
	tx          Transactor
	auditSvc    *AuditService
	metrics     *metrics.Collector
	log         *zap.Logger
}

func NewPharmacyService(
	repo pharmacy.Repository,
	patientRepo patient.Repository,
	billingSvc *BillingService,
	tx Transactor,
	auditSvc *AuditService,
	m *metrics.Collector,
	log *zap.Logger,
) *PharmacyService {
	return &PharmacyService{
		repo:        repo,
		patientRepo: patientRepo,
		billing:     billingSvc,
		tx:          tx,
		auditSvc:    auditSvc,
		metrics:     m,
		log:         log,
	}
}

func (s *PharmacyService) CreateMedication(ctx context.Context, cmd *pharmacy.CreateMedicationCommand, actor domain.Actor) (*pharmacy.Medication, error) {
	var errs fieldErrors
	if strings.TrimSpace(cmd.Name) == "" {
		errs.add("name is required")
	}
	if strings.TrimSpace(cmd.Unit) == "" {
		errs.add("unit is required")
	}
	if cmd.UnitPrice < 0 {
		errs.add("unit_price cannot be negative")
	}
	if cmd.InitialStock < 0 {
		errs.add("initial_stock cannot be negative")
	}
	if cmd.ReorderLevel < 0 {
		errs.add("reorder_level cannot be negative")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	if !cmd.Form.IsValid() {
		return nil, pharmacy.ErrInvalidDosageForm
	}

	m := &pharmacy.Medication{
		Name:                 strings.TrimSpace(cmd.Name),
		GenericName:          strings.TrimSpace(cmd.GenericName),
		Form:                 cmd.Form,
		Strength:             cmd.Strength,
		Unit:                 cmd.Unit,
		UnitPrice:            cmd.UnitPrice,
		ReorderLevel:         cmd.ReorderLevel,
		RequiresPrescription: cmd.RequiresPrescription,
		Taxable:              cmd.Taxable,
		IsActive:             true,
	}
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateMedication(ctx, m); err != nil {
			return err
		}
		if cmd.InitialStock == 0 {
			return nil
		}
		mv, err := m.Move(cmd.InitialStock, pharmacy.ReasonRestock, nil, actor.UserID)
		if err != nil {
			return err
		}
		mv.Note = "initial stock"
		if err := s.repo.CreateMovement(ctx, mv); err != nil {
			return err
		}
		return s.repo.SaveMedication(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionCreate, "medication", m.ID.String(), nil)
	return m, nil
}

func (s *PharmacyService) GetMedication(ctx context.Context, id uuid.UUID) (*pharmacy.Medication, error) {
	return s.repo.GetMedication(ctx, id)
}

func (s *PharmacyService) ListMedications(ctx context.Context, q *pharmacy.ListMedicationsQuery) (*pharmacy.PagedMedications, error) {
	q.Page, q.PageSize = domain.Page(q.Page, q.PageSize)
	return s.repo.ListMedications(ctx, q)
}

// Restock adds received units.
func (s *PharmacyService) Restock(ctx context.Context, cmd *pharmacy.StockCommand, actor domain.Actor) (*pharmacy.Medication, error) {
	if cmd.Delta <= 0 {
		return nil, pharmacy.ErrInvalidQuantity
	}
	return s.move(ctx, cmd, pharmacy.ReasonRestock, actor)
}

// Adjust applies a signed stock correction, e.g. after a stock take.
func (s *PharmacyService) Adjust(ctx context.Context, cmd *pharmacy.StockCommand, actor domain.Actor) (*pharmacy.Medication, error) {
	if strings.TrimSpace(cmd.Note) == "" {
		return nil, &ValidationError{Fields: []string{"note is required for an adjustment"}}
	}
	return s.move(ctx, cmd, pharmacy.ReasonAdjustment, actor)
}

func (s *PharmacyService) move(ctx context.Context, cmd *pharmacy.StockCommand, reason pharmacy.MovementReason, actor domain.Actor) (*pharmacy.Medication, error) {
	var m *pharmacy.Medication
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if m, err = s.repo.GetMedicationForUpdate(ctx, cmd.MedicationID); err != nil {
			return err
		}
		mv, err := m.Move(cmd.Delta, reason, nil, actor.UserID)
		if err != nil {
			return err
		}
		mv.Note = cmd.Note
		if err := s.repo.CreateMovement(ctx, mv); err != nil {
			return err
		}
		return s.repo.SaveMedication(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	if m.IsLowStock() {
		s.log.Warn("medication at or below reorder level",
			zap.String("medication_id", m.ID.String()),
			zap.Int("stock", m.StockQuantity),
			zap.Int("reorder_level", m.ReorderLevel),
		)
	}
	s.auditSvc.record(ctx, actor, domain.ActionUpdate, "medication", m.ID.String(), map[string]any{
		"delta":  cmd.Delta,
		"reason": reason,
	})
	return m, nil
}

func (s *PharmacyService) Movements(ctx context.Context, medicationID uuid.UUID, limit int) ([]*pharmacy.StockMovement, error) {
	if _, err := s.repo.GetMedication(ctx, medicationID); err != nil {
		return nil, err
	}
	return s.repo.ListMovements(ctx, medicationID, limit)
}

// OverTheCounterSale sells a non-prescription medication and charges the
// patient's open bill.
func (s *PharmacyService) OverTheCounterSale(ctx context.Context, cmd *pharmacy.SaleCommand, actor domain.Actor) (*pharmacy.PharmacySale, error) {
	if err := requireRole(actor, domain.RolePharmacist, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if cmd.Quantity <= 0 {
		return nil, pharmacy.ErrInvalidQuantity
	}

	var sale *pharmacy.PharmacySale
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		p, err := s.patientRepo.GetByID(ctx, cmd.PatientID)
		if err != nil {
			return err
		}
		if err := p.CheckUsable(); err != nil {
			return err
		}
		m, err := s.repo.GetMedicationForUpdate(ctx, cmd.MedicationID)
		if err != nil {
			return err
		}
		if !m.IsActive {
			return pharmacy.ErrMedicationInactive
		}
		if m.RequiresPrescription {
			return pharmacy.ErrPrescriptionRequired
		}

		sale, err = s.sell(ctx, m, p.ID, nil, cmd.Quantity, pharmacy.ReasonSale, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.DispensesTotal.WithLabelValues("over_the_counter").Inc()
	s.auditSvc.record(ctx, actor, domain.ActionCreate, "pharmacy_sale", sale.ID.String(), map[string]any{
		"medication_id": sale.MedicationID,
		"quantity":      sale.Quantity,
	})
	return sale, nil
}

// sell decrements locked stock, records the sale and bills it. The caller
// holds the medication row lock and the transaction.
func (s *PharmacyService) sell(
	ctx context.Context,
	m *pharmacy.Medication,
	patientID uuid.UUID,
	prescriptionID *uuid.UUID,
	qty int,
	reason pharmacy.MovementReason,
	actor domain.Actor,
) (*pharmacy.PharmacySale, error) {
	if m.StockQuantity < qty {
		return nil, pharmacy.ErrInsufficientStock
	}
	sale := &pharmacy.PharmacySale{
		ID:             uuid.New(),
		PatientID:      patientID,
		PrescriptionID: prescriptionID,
		MedicationID:   m.ID,
		Quantity:       qty,
		UnitPrice:      m.UnitPrice,
		Total:          m.UnitPrice.Times(qty),
		PharmacistID:   actor.UserID,
	}

	mv, err := m.Move(-qty, reason, &sale.ID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateMovement(ctx, mv); err != nil {
		return nil, err
	}
	if err := s.repo.SaveMedication(ctx, m); err != nil {
		return nil, err
	}

	source := "pharmacy_sale"
	sourceID := &sale.ID
	if prescriptionID != nil {
		source = "prescription"
		sourceID = prescriptionID
	}
	bill, _, err := s.billing.Charge(ctx, billing.Charge{
		PatientID:   patientID,
		Category:    billing.CategoryPharmacy,
		Description: medicationLabel(m),
		Quantity:    qty,
		UnitPrice:   m.UnitPrice,
		Taxable:     m.Taxable,
		SourceType:  source,
		SourceID:    sourceID,
	}, actor)
	if err != nil {
		return nil, fmt.Errorf("billing sale: %w", err)
	}
	sale.BillID = &bill.ID
	if err := s.repo.CreateSale(ctx, sale); err != nil {
		return nil, fmt.Errorf("recording sale: %w", err)
	}
	return sale, nil
}

func (s *PharmacyService) GetSale(ctx context.Context, id uuid.UUID) (*pharmacy.PharmacySale, error) {
	return s.repo.GetSale(ctx, id)
}

func (s *PharmacyService) SalesByPatient(ctx context.Context, patientID uuid.UUID) ([]*pharmacy.PharmacySale, error) {
	return s.repo.ListSalesByPatient(ctx, patientID)
}

func medicationLabel(m *pharmacy.Medication) string {
	if m.Strength == "" {
		return m.Name
	}
	return m.Name + " " + m.Strength
}
