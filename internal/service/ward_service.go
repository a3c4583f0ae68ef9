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
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/encounter"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/patient"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/ward"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/events"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/metrics"
)

type WardService struct {
	repo        ward.Repository
	patientRepo patient.Repository
	encounters  encounter.Repository
	billing     *BillingService
	tx          Transactor
	auditSvc    *AuditService
	events      publisher
	metrics     *metrics.Collector
	log         *zap.Logger
	now         func() time.Time
}

func NewWardService(
	repo ward.Repository,
	patientRepo patient.Repository,
	encounters encounter.Repository,
	billingSvc *BillingService,
	tx Transactor,
	auditSvc *AuditService,
	pub events.Publisher,
	m *metrics.Collector,
	log *zap.Logger,
) *WardService {
	return &WardService{
		repo:        repo,
		patientRepo: patientRepo,
		encounters:  encounters,
		billing:     billingSvc,
		tx:          tx,
		auditSvc:    auditSvc,
		events:      publisher{pub: pub, log: log},
		metrics:     m,
		log:         log,
		now:         utcNow,
	}
}

func (s *WardService) CreateWard(ctx context.Context, cmd *ward.CreateWardCommand, actor domain.Actor) (*ward.Ward, error) {
	var errs fieldErrors
	if strings.TrimSpace(cmd.Code) == "" {
		errs.add("code is required")
	}
	if strings.TrimSpace(cmd.Name) == "" {
		errs.add("name is required")
	}
	if cmd.DailyRate < 0 {
		errs.add("daily_rate cannot be negative")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	if !cmd.Type.IsValid() {
		return nil, ward.ErrInvalidWardType
	}

	w := &ward.Ward{
		Code:              strings.ToUpper(strings.TrimSpace(cmd.Code)),
		Name:              strings.TrimSpace(cmd.Name),
		Type:              cmd.Type,
		GenderRestriction: cmd.GenderRestriction,
		DailyRate:         cmd.DailyRate,
		Floor:             cmd.Floor,
		IsActive:          true,
	}
	if err := s.repo.CreateWard(ctx, w); err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionCreate, "ward", w.ID.String(), nil)
	return w, nil
}

func (s *WardService) ListWards(ctx context.Context) ([]*ward.Ward, error) {
	return s.repo.ListWards(ctx)
}

func (s *WardService) CreateBed(ctx context.Context, cmd *ward.CreateBedCommand, actor domain.Actor) (*ward.Bed, error) {
	if strings.TrimSpace(cmd.BedNumber) == "" {
		return nil, &ValidationError{Fields: []string{"bed_number is required"}}
	}
	if _, err := s.repo.GetWard(ctx, cmd.WardID); err != nil {
		return nil, err
	}
	b := &ward.Bed{
		WardID:    cmd.WardID,
		BedNumber: strings.TrimSpace(cmd.BedNumber),
		Status:    ward.BedAvailable,
		Notes:     cmd.Notes,
	}
	if err := s.repo.CreateBed(ctx, b); err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionCreate, "bed", b.ID.String(), nil)
	return b, nil
}

func (s *WardService) ListBeds(ctx context.Context, q *ward.ListBedsQuery) ([]*ward.Bed, error) {
	return s.repo.ListBeds(ctx, q)
}

// AssignBed places a patient without an admission (observation, day case) in a bed.
func (s *WardService) AssignBed(ctx context.Context, bedID, patientID uuid.UUID, actor domain.Actor) (*ward.Bed, error) {
	var b *ward.Bed
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		p, err := s.usablePatient(ctx, patientID)
		if err != nil {
			return err
		}
		open, err := s.repo.OpenAdmissionForPatient(ctx, patientID)
		if err != nil {
			return err
		}
		if open != nil {
			return ward.ErrAlreadyAdmitted
		}
		if err := s.checkNoBed(ctx, patientID); err != nil {
			return err
		}
		if b, err = s.repo.GetBedForUpdate(ctx, bedID); err != nil {
			return err
		}
		if err := s.checkWardAccepts(ctx, b.WardID, p); err != nil {
			return err
		}
		if err := b.Occupy(patientID, nil, s.now()); err != nil {
			return err
		}
		return s.repo.SaveBed(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionUpdate, "bed", bedID.String(), map[string]any{"assigned_patient_id": patientID})
	return b, nil
}

// VacateBed frees a bed that is not held by an open admission; admitted
// patients leave through Discharge or Transfer.
func (s *WardService) VacateBed(ctx context.Context, bedID uuid.UUID, actor domain.Actor) (*ward.Bed, error) {
	var b *ward.Bed
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if b, err = s.repo.GetBedForUpdate(ctx, bedID); err != nil {
			return err
		}
		if b.CurrentAdmissionID != nil {
			a, err := s.repo.GetAdmission(ctx, *b.CurrentAdmissionID)
			if err != nil {
				return err
			}
			if a.IsOpen() {
				return ward.ErrBedOccupied
			}
		}
		if err := b.Vacate(); err != nil {
			return err
		}
		return s.repo.SaveBed(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionUpdate, "bed", bedID.String(), map[string]string{"status": string(b.Status)})
	return b, nil
}

func (s *WardService) SetBedStatus(ctx context.Context, bedID uuid.UUID, status ward.BedStatus, actor domain.Actor) (*ward.Bed, error) {
	var b *ward.Bed
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if b, err = s.repo.GetBedForUpdate(ctx, bedID); err != nil {
			return err
		}
		if err := b.SetStatus(status); err != nil {
			return err
		}
		return s.repo.SaveBed(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionUpdate, "bed", bedID.String(), map[string]string{"status": string(status)})
	return b, nil
}

// Admit opens an inpatient encounter and an admission and occupies the bed,
// all in one transaction.
func (s *WardService) Admit(ctx context.Context, cmd *ward.AdmitCommand, actor domain.Actor) (*ward.Admission, error) {
	if cmd.DoctorID == uuid.Nil {
		cmd.DoctorID = actor.UserID
	}
	var a *ward.Admission
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		p, err := s.usablePatient(ctx, cmd.PatientID)
		if err != nil {
			return err
		}
		open, err := s.repo.OpenAdmissionForPatient(ctx, cmd.PatientID)
		if err != nil {
			return err
		}
		if open != nil {
			return ward.ErrAlreadyAdmitted
		}
		if err := s.checkNoBed(ctx, cmd.PatientID); err != nil {
			return err
		}
		bed, err := s.repo.GetBedForUpdate(ctx, cmd.BedID)
		if err != nil {
			return err
		}
		if !bed.IsAvailable() {
			return ward.ErrBedUnavailable
		}
		if err := s.checkWardAccepts(ctx, bed.WardID, p); err != nil {
			return err
		}

		now := s.now()
		enc := &encounter.Encounter{
			PatientID:   cmd.PatientID,
			Class:       encounter.ClassInpatient,
			Status:      encounter.StatusScheduled,
			AttendingID: &cmd.DoctorID,
			Reason:      firstNonEmpty(cmd.Reason, cmd.Diagnosis),
			CreatedBy:   actor.UserID,
		}
		if err := enc.Start(now); err != nil {
			return err
		}
		if err := s.encounters.Create(ctx, enc); err != nil {
			return fmt.Errorf("creating encounter: %w", err)
		}

		a = &ward.Admission{
			PatientID:   cmd.PatientID,
			EncounterID: enc.ID,
			WardID:      bed.WardID,
			BedID:       bed.ID,
			DoctorID:    cmd.DoctorID,
			Status:      ward.AdmissionAdmitted,
			AdmittedAt:  now,
			Diagnosis:   cmd.Diagnosis,
			CreatedBy:   actor.UserID,
		}
		if err := s.repo.CreateAdmission(ctx, a); err != nil {
			return err
		}
		enc.AdmissionID = &a.ID
		if err := s.encounters.Save(ctx, enc); err != nil {
			return err
		}
		if err := bed.Occupy(cmd.PatientID, &a.ID, now); err != nil {
			return err
		}
		return s.repo.SaveBed(ctx, bed)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AdmissionsTotal.Inc()
	s.auditSvc.record(ctx, actor, domain.ActionCreate, "admission", a.ID.String(), map[string]any{"bed_id": a.BedID})
	s.events.emit(ctx, events.PatientAdmitted, a.PatientID, actor, map[string]any{
		"admission_id": a.ID,
		"ward_id":      a.WardID,
		"bed_id":       a.BedID,
	})
	return a, nil
}

// Transfer moves an admitted patient between beds. Both beds are locked in
// UUID order so that crossing transfers cannot deadlock.
func (s *WardService) Transfer(ctx context.Context, cmd *ward.TransferCommand, actor domain.Actor) (*ward.Admission, error) {
	var (
		a  *ward.Admission
		tr *ward.BedTransfer
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if a, err = s.repo.GetAdmissionForUpdate(ctx, cmd.AdmissionID); err != nil {
			return err
		}
		if !a.IsOpen() {
			return ward.ErrAdmissionClosed
		}
		if a.BedID == cmd.ToBedID {
			return ward.ErrSameBed
		}

		beds := make(map[uuid.UUID]*ward.Bed, 2)
		for _, id := range lockOrder(a.BedID, cmd.ToBedID) {
			b, err := s.repo.GetBedForUpdate(ctx, id)
			if err != nil {
				return err
			}
			beds[id] = b
		}
		from, to := beds[a.BedID], beds[cmd.ToBedID]
		if !to.IsAvailable() {
			return ward.ErrBedUnavailable
		}
		p, err := s.patientRepo.GetByID(ctx, a.PatientID)
		if err != nil {
			return err
		}
		if err := s.checkWardAccepts(ctx, to.WardID, p); err != nil {
			return err
		}

		now := s.now()
		if err := from.Vacate(); err != nil {
			return err
		}
		if err := to.Occupy(a.PatientID, &a.ID, now); err != nil {
			return err
		}
		if err := s.repo.SaveBed(ctx, from); err != nil {
			return err
		}
		if err := s.repo.SaveBed(ctx, to); err != nil {
			return err
		}

		tr = &ward.BedTransfer{
			AdmissionID: a.ID,
			FromBedID:   from.ID,
			ToBedID:     to.ID,
			Reason:      cmd.Reason,
			TransferBy:  actor.UserID,
			TransferAt:  now,
		}
		if err := s.repo.CreateTransfer(ctx, tr); err != nil {
			return err
		}
		a.BedID = to.ID
		a.WardID = to.WardID
		return s.repo.SaveAdmission(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.TransfersTotal.Inc()
	s.auditSvc.record(ctx, actor, domain.ActionUpdate, "admission", a.ID.String(), map[string]any{
		"from_bed_id": tr.FromBedID,
		"to_bed_id":   tr.ToBedID,
	})
	s.events.emit(ctx, events.BedTransferred, a.PatientID, actor, map[string]any{
		"admission_id": a.ID,
		"from_bed_id":  tr.FromBedID,
		"to_bed_id":    tr.ToBedID,
	})
	return a, nil
}

// Discharge closes the admission and its encounter, frees the bed and bills
// the stay at the ward's daily rate.
func (s *WardService) Discharge(ctx context.Context, cmd *ward.DischargeCommand, actor domain.Actor) (*ward.Admission, error) {
	if cmd.Disposition == "" {
		cmd.Disposition = ward.DispositionHome
	}
	if !cmd.Disposition.IsValid() {
		return nil, ward.ErrInvalidDisposition
	}

	var a *ward.Admission
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if a, err = s.repo.GetAdmissionForUpdate(ctx, cmd.AdmissionID); err != nil {
			return err
		}
		now := s.now()
		if err := a.Discharge(cmd.Summary, cmd.Disposition, actor.UserID, now); err != nil {
			return err
		}
		bed, err := s.repo.GetBedForUpdate(ctx, a.BedID)
		if err != nil {
			return err
		}
		if err := bed.Vacate(); err != nil {
			return err
		}
		if err := s.repo.SaveBed(ctx, bed); err != nil {
			return err
		}
		if err := s.repo.SaveAdmission(ctx, a); err != nil {
			return err
		}

		enc, err := s.encounters.GetByID(ctx, a.EncounterID)
		if err != nil {
			return err
		}
		if enc.IsOpen() {
			if err := enc.Complete(now); err != nil {
				return err
			}
			if err := s.encounters.Save(ctx, enc); err != nil {
				return err
			}
		}

		if cmd.Disposition == ward.DispositionDeceased {
			p, err := s.patientRepo.GetByIDForUpdate(ctx, a.PatientID)
			if err != nil {
				return err
			}
			if err := p.MarkDeceased(); err != nil {
				return err
			}
			if err := s.patientRepo.Save(ctx, p); err != nil {
				return err
			}
		}

		w, err := s.repo.GetWard(ctx, a.WardID)
		if err != nil {
			return err
		}
		days := ward.BedDays(a.AdmittedAt, now)
		_, _, err = s.billing.Charge(ctx, billing.Charge{
			PatientID:   a.PatientID,
			EncounterID: &a.EncounterID,
			AdmissionID: &a.ID,
			Category:    billing.CategoryBed,
			Description: fmt.Sprintf("%s bed days (%d)", w.Name, days),
			Quantity:    days,
			UnitPrice:   w.DailyRate,
			SourceType:  "admission",
			SourceID:    &a.ID,
		}, actor)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.DischargesTotal.WithLabelValues(string(a.Disposition)).Inc()
	s.auditSvc.record(ctx, actor, domain.ActionUpdate, "admission", a.ID.String(), map[string]string{
		"status":      string(a.Status),
		"disposition": string(a.Disposition),
	})
	s.events.emit(ctx, events.PatientDischarged, a.PatientID, actor, map[string]any{
		"admission_id": a.ID,
		"disposition":  a.Disposition,
	})
	return a, nil
}

func (s *WardService) GetAdmission(ctx context.Context, id uuid.UUID, actor domain.Actor) (*ward.Admission, error) {
	a, err := s.repo.GetAdmission(ctx, id)
	if err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionRead, "admission", id.String(), nil)
	return a, nil
}

func (s *WardService) ListAdmissions(ctx context.Context, q *ward.ListAdmissionsQuery) (*ward.PagedAdmissions, error) {
	q.Page, q.PageSize = domain.Page(q.Page, q.PageSize)
	return s.repo.ListAdmissions(ctx, q)
}

func (s *WardService) ListTransfers(ctx context.Context, admissionID uuid.UUID) ([]*ward.BedTransfer, error) {
	if _, err := s.repo.GetAdmission(ctx, admissionID); err != nil {
		return nil, err
	}
	return s.repo.ListTransfers(ctx, admissionID)
}

// Occupancy summarizes every active ward.
func (s *WardService) Occupancy(ctx context.Context) ([]ward.Occupancy, error) {
	wards, err := s.repo.ListWards(ctx)
	if err != nil {
		return nil, err
	}
	beds, err := s.repo.ListBeds(ctx, &ward.ListBedsQuery{})
	if err != nil {
		return nil, err
	}
	byWard := make(map[uuid.UUID][]*ward.Bed, len(wards))
	for _, b := range beds {
		byWard[b.WardID] = append(byWard[b.WardID], b)
	}
	out := make([]ward.Occupancy, 0, len(wards))
	for _, w := range wards {
		if !w.IsActive {
			continue
		}
		out = append(out, ward.Summarize(w, byWard[w.ID]))
	}
	return out, nil
}

// RefreshOccupancyGauge publishes per-ward bed counts.
func (s *WardService) RefreshOccupancyGauge(ctx context.Context) error {
	summary, err := s.Occupancy(ctx)
	if err != nil {
		return err
	}
	for _, o := range summary {
		for status, n := range o.ByStatus {
			s.metrics.BedOccupancy.WithLabelValues(o.WardCode, string(status)).Set(float64(n))
		}
	}
	return nil
}

func (s *WardService) usablePatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, err := s.patientRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.CheckUsable(); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *WardService) checkWardAccepts(ctx context.Context, wardID uuid.UUID, p *patient.Patient) error {
	w, err := s.repo.GetWard(ctx, wardID)
	if err != nil {
		return err
	}
	if !w.Accepts(string(p.Gender)) {
		return ward.ErrWardGenderMismatch
	}
	return nil
}

func (s *WardService) checkNoBed(ctx context.Context, patientID uuid.UUID) error {
	held, err := s.repo.BedForPatient(ctx, patientID)
	if err != nil {
		return err
	}
	if held != nil {
		return ward.ErrPatientHasBed
	}
	return nil
}

// lockOrder returns ids sorted so every caller acquires row locks in the same order.
func lockOrder(a, b uuid.UUID) []uuid.UUID {
	if b.String() < a.String() {
		return []uuid.UUID{b, a}
	}
	return []uuid.UUID{a, b}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
