package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/patient"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/pharmacy"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/prescription"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/events"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/metrics"
)

const defaultPrescriptionValidity = 30 * 24 * time.Hour

type PrescriptionService struct {
	repo        prescription.Repository
	patientRepo patient.Repository
	medications pharmacy.Repository
	pharmacy    *PharmacyService
	tx          Transactor
	auditSvc    *AuditService
	events      publisher
	metrics     *metrics.Collector
	log         *zap.Logger
	validity    time.Duration
	now         func() time.Time
}

func NewPrescriptionService(
	repo prescription.Repository,
	patientRepo patient.Repository,
	medications pharmacy.Repository,
	pharmacySvc *PharmacyService,
	tx Transactor,
	auditSvc *AuditService,
	pub events.Publisher,
	m *metrics.Collector,
	log *zap.Logger,
	validity time.Duration,
) *PrescriptionService {
	if validity <= 0 {
		validity = defaultPrescriptionValidity
	}
	return &PrescriptionService{
		repo:        repo,
		patientRepo: patientRepo,
		medications: medications,
		pharmacy:    pharmacySvc,
		tx:          tx,
		auditSvc:    auditSvc,
		events:      publisher{pub: pub, log: log},
		metrics:     m,
		log:         log,
		validity:    validity,
		now:         utcNow,
	}
}

func (s *PrescriptionService) CreatePrescription(ctx context.Context, cmd *prescription.CreatePrescriptionCommand, actor domain.Actor) (*prescription.Prescription, error) {
	if err := requireRole(actor, domain.RoleDoctor); err != nil {
		return nil, err
	}

	var errs fieldErrors
	if strings.TrimSpace(cmd.Dosage) == "" {
		errs.add("dosage is required")
	}
	if strings.TrimSpace(cmd.Frequency) == "" {
		errs.add("frequency is required")
	}
	if cmd.DurationDays < 0 {
		errs.add("duration_days cannot be negative")
	}
	if cmd.RefillsAllowed < 0 {
		errs.add("refills_allowed cannot be negative")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	if cmd.Quantity <= 0 {
		return nil, prescription.ErrInvalidQuantity
	}
	if cmd.Route == "" {
		cmd.Route = prescription.RouteOral
	}
	if !cmd.Route.IsValid() {
		return nil, prescription.ErrInvalidRoute
	}

	issued := s.now()
	if cmd.IssuedAt != nil {
		issued = cmd.IssuedAt.UTC()
	}
	expires := issued.Add(s.validity)
	if cmd.ExpiresAt != nil {
		expires = cmd.ExpiresAt.UTC()
	}
	if !expires.After(issued) {
		return nil, prescription.ErrInvalidExpiry
	}

	p, err := s.patientRepo.GetByID(ctx, cmd.PatientID)
	if err != nil {
		return nil, err
	}
	if err := p.CheckUsable(); err != nil {
		return nil, err
	}
	med, err := s.medications.GetMedication(ctx, cmd.MedicationID)
	if err != nil {
		return nil, err
	}
	if !med.IsActive {
		return nil, pharmacy.ErrMedicationInactive
	}

	rx := &prescription.Prescription{
		PatientID:      cmd.PatientID,
		DoctorID:       actor.UserID,
		EncounterID:    cmd.EncounterID,
		MedicationID:   cmd.MedicationID,
		Dosage:         strings.TrimSpace(cmd.Dosage),
		Frequency:      strings.TrimSpace(cmd.Frequency),
		Route:          cmd.Route,
		DurationDays:   cmd.DurationDays,
		Quantity:       cmd.Quantity,
		RefillsAllowed: cmd.RefillsAllowed,
		IssuedAt:       issued,
		ExpiresAt:      expires,
		Status:         prescription.StatusActive,
		Instructions:   cmd.Instructions,
	}
	if err := s.repo.Create(ctx, rx); err != nil {
		return nil, err
	}

	s.metrics.PrescriptionsIssued.Inc()
	s.auditSvc.record(ctx, actor, domain.ActionCreate, "prescription", rx.ID.String(), map[string]any{
		"medication_id": rx.MedicationID,
		"quantity":      rx.Quantity,
	})
	return rx, nil
}

func (s *PrescriptionService) GetPrescription(ctx context.Context, id uuid.UUID, actor domain.Actor) (*prescription.Prescription, error) {
	rx, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionRead, "prescription", id.String(), nil)
	return rx, nil
}

func (s *PrescriptionService) ListPrescriptions(ctx context.Context, q *prescription.ListPrescriptionsQuery) (*prescription.PagedPrescriptions, error) {
	q.Page, q.PageSize = domain.Page(q.Page, q.PageSize)
	return s.repo.List(ctx, q)
}

func (s *PrescriptionService) ActiveForPatient(ctx context.Context, patientID uuid.UUID) ([]*prescription.Prescription, error) {
	return s.repo.GetActiveByPatient(ctx, patientID)
}

// RequestException asks a doctor to approve dispensing something other than
// the locked remaining quantity.
func (s *PrescriptionService) RequestException(ctx context.Context, cmd *prescription.RequestExceptionCommand, actor domain.Actor) (*prescription.DispenseException, error) {
	if strings.TrimSpace(cmd.Reason) == "" {
		return nil, &ValidationError{Fields: []string{"reason is required"}}
	}

	var ex *prescription.DispenseException
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		rx, err := s.repo.GetByIDForUpdate(ctx, cmd.PrescriptionID)
		if err != nil {
			return err
		}
		if err := rx.CheckDispensable(s.now()); err != nil {
			return err
		}
		if err := prescription.ValidateRequest(cmd.Type, cmd.RequestedQuantity, rx.Remaining()); err != nil {
			return err
		}
		open, err := s.repo.OpenException(ctx, rx.ID)
		if err != nil {
			return err
		}
		if open != nil {
			return prescription.ErrExceptionOpen
		}

		ex = &prescription.DispenseException{
			PrescriptionID:    rx.ID,
			Type:              cmd.Type,
			RequestedQuantity: cmd.RequestedQuantity,
			OriginalRemaining: rx.Remaining(),
			Reason:            strings.TrimSpace(cmd.Reason),
			Status:            prescription.ExceptionPending,
			RequestedBy:       actor.UserID,
		}
		return s.repo.CreateException(ctx, ex)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ExceptionsTotal.WithLabelValues(string(ex.Status)).Inc()
	s.auditSvc.record(ctx, actor, domain.ActionCreate, "dispense_exception", ex.ID.String(), map[string]any{
		"prescription_id":    ex.PrescriptionID,
		"type":               ex.Type,
		"requested_quantity": ex.RequestedQuantity,
	})
	return ex, nil
}

// ReviewException approves or rejects a pending exception. Doctors only.
func (s *PrescriptionService) ReviewException(ctx context.Context, cmd *prescription.ReviewExceptionCommand, actor domain.Actor) (*prescription.DispenseException, error) {
	if err := requireRole(actor, domain.RoleDoctor); err != nil {
		return nil, err
	}
	if !cmd.Approve && strings.TrimSpace(cmd.Note) == "" {
		return nil, &ValidationError{Fields: []string{"note is required when rejecting"}}
	}

	var ex *prescription.DispenseException
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		// Prescription first, then exception, the same order Dispense locks them.
		pending, err := s.repo.GetException(ctx, cmd.ExceptionID)
		if err != nil {
			return err
		}
		rx, err := s.repo.GetByIDForUpdate(ctx, pending.PrescriptionID)
		if err != nil {
			return err
		}
		if ex, err = s.repo.GetExceptionForUpdate(ctx, cmd.ExceptionID); err != nil {
			return err
		}
		if cmd.Approve {
			if err := rx.CheckDispensable(s.now()); err != nil {
				return err
			}
			if ex.OriginalRemaining != rx.Remaining() {
				return prescription.ErrExceptionStale
			}
		}
		if err := ex.Review(cmd.Approve, actor.UserID, cmd.Note, s.now()); err != nil {
			return err
		}
		return s.repo.SaveException(ctx, ex)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ExceptionsTotal.WithLabelValues(string(ex.Status)).Inc()
	s.auditSvc.record(ctx, actor, domain.ActionUpdate, "dispense_exception", ex.ID.String(), map[string]string{
		"status": string(ex.Status),
	})
	return ex, nil
}

func (s *PrescriptionService) ListExceptions(ctx context.Context, prescriptionID uuid.UUID) ([]*prescription.DispenseException, error) {
	if _, err := s.repo.GetByID(ctx, prescriptionID); err != nil {
		return nil, err
	}
	return s.repo.ListExceptions(ctx, prescriptionID)
}

// DispenseResult is what the pharmacy hands over in one dispense.
type DispenseResult struct {
	Prescription *prescription.Prescription      `json:"prescription"`
	Sale         *pharmacy.PharmacySale          `json:"sale"`
	Exception    *prescription.DispenseException `json:"exception,omitempty"`
}

// Dispense hands out exactly the allowed quantity. Stock, sale, bill item,
// prescription counters and the exception all change in one transaction.
func (s *PrescriptionService) Dispense(ctx context.Context, cmd *prescription.DispenseCommand, actor domain.Actor) (*DispenseResult, error) {
	if err := requireRole(actor, domain.RolePharmacist, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if cmd.Quantity <= 0 {
		return nil, prescription.ErrInvalidQuantity
	}

	res := &DispenseResult{}
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		now := s.now()
		rx, err := s.repo.GetByIDForUpdate(ctx, cmd.PrescriptionID)
		if err != nil {
			return err
		}
		if err := rx.CheckDispensable(now); err != nil {
			return err
		}

		open, err := s.repo.OpenException(ctx, rx.ID)
		if err != nil {
			return err
		}
		var ex *prescription.DispenseException
		if open != nil && open.Status == prescription.ExceptionApproved {
			ex = open
		}
		if cmd.Quantity != rx.AllowedQuantity(ex) {
			return prescription.ErrQuantityLocked
		}

		med, err := s.medications.GetMedicationForUpdate(ctx, rx.MedicationID)
		if err != nil {
			return err
		}
		sale, err := s.pharmacy.sell(ctx, med, rx.PatientID, &rx.ID, cmd.Quantity, pharmacy.ReasonDispense, actor)
		if err != nil {
			return err
		}

		rx.RecordDispense(cmd.Quantity, ex)
		if err := s.repo.Save(ctx, rx); err != nil {
			return err
		}
		switch {
		case ex != nil:
			ex.Apply(now)
			if err := s.repo.SaveException(ctx, ex); err != nil {
				return err
			}
		case open != nil && rx.Status == prescription.StatusDispensed:
			open.Status = prescription.ExceptionVoid
			if err := s.repo.SaveException(ctx, open); err != nil {
				return err
			}
		}

		res.Prescription, res.Sale, res.Exception = rx, sale, ex
		return nil
	})
	if err != nil {
		return nil, err
	}

	kind := "full"
	switch {
	case res.Exception != nil:
		kind = string(res.Exception.Type)
		s.metrics.ExceptionsTotal.WithLabelValues(string(prescription.ExceptionApplied)).Inc()
	case res.Prescription.Status == prescription.StatusPartiallyDispensed:
		kind = "partial"
	}
	s.metrics.DispensesTotal.WithLabelValues(kind).Inc()

	s.auditSvc.record(ctx, actor, domain.ActionUpdate, "prescription", res.Prescription.ID.String(), map[string]any{
		"dispensed": cmd.Quantity,
		"status":    res.Prescription.Status,
		"sale_id":   res.Sale.ID,
	})
	s.events.emit(ctx, events.PrescriptionDispense, res.Prescription.PatientID, actor, map[string]any{
		"prescription_id": res.Prescription.ID,
		"medication_id":   res.Prescription.MedicationID,
		"quantity":        cmd.Quantity,
		"bill_id":         res.Sale.BillID,
	})
	return res, nil
}

// Cancel stops a prescription that has not been fully dispensed and voids
// any open exception.
func (s *PrescriptionService) Cancel(ctx context.Context, id uuid.UUID, actor domain.Actor) (*prescription.Prescription, error) {
	if err := requireRole(actor, domain.RoleDoctor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	var rx *prescription.Prescription
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if rx, err = s.repo.GetByIDForUpdate(ctx, id); err != nil {
			return err
		}
		if err := rx.Cancel(); err != nil {
			return err
		}
		if err := s.repo.Save(ctx, rx); err != nil {
			return err
		}
		ex, err := s.repo.OpenException(ctx, rx.ID)
		if err != nil || ex == nil {
			return err
		}
		ex.Status = prescription.ExceptionVoid
		return s.repo.SaveException(ctx, ex)
	})
	if err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionUpdate, "prescription", id.String(), map[string]string{"status": string(rx.Status)})
	return rx, nil
}

func (s *PrescriptionService) Refill(ctx context.Context, id uuid.UUID, actor domain.Actor) (*prescription.Prescription, error) {
	var rx *prescription.Prescription
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if rx, err = s.repo.GetByIDForUpdate(ctx, id); err != nil {
			return err
		}
		if err := rx.Refill(s.now()); err != nil {
			return err
		}
		return s.repo.Save(ctx, rx)
	})
	if err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionUpdate, "prescription", id.String(), map[string]int{"refills_used": rx.RefillsUsed})
	return rx, nil
}

// ExpireStale marks every dispensable prescription past its expiry as expired
// and voids their open exceptions.
func (s *PrescriptionService) ExpireStale(ctx context.Context) (int64, error) {
	var n int64
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.repo.ExpireStale(ctx, s.now())
		return err
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.metrics.PrescriptionsExpired.Add(float64(n))
		s.log.Info("expired stale prescriptions", zap.Int64("count", n))
	}
	return n, nil
}
