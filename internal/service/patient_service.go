package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/patient"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/ward"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/events"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/metrics"
)

type PatientService struct {
	repo     patient.Repository
	wards    ward.Repository
	tx       Transactor
	auditSvc *AuditService
	events   publisher
	metrics  *metrics.Collector
	log      *zap.Logger
	now      func() time.Time
}

func NewPatientService(
	repo patient.Repository,
	wards ward.Repository,
	tx Transactor,
	auditSvc *AuditService,
	pub events.Publisher,
	m *metrics.Collector,
	log *zap.Logger,
) *PatientService {
	return &PatientService{
		repo:     repo,
		wards:    wards,
		tx:       tx,
		auditSvc: auditSvc,
		events:   publisher{pub: pub, log: log},
		metrics:  m,
		log:      log,
		now:      utcNow,
	}
}

func (s *PatientService) CreatePatient(ctx context.Context, cmd *patient.CreatePatientCommand, actor domain.Actor) (*patient.Patient, error) {
	if err := s.validateCreate(cmd); err != nil {
		return nil, err
	}

	p := &patient.Patient{
		FirstName:   strings.TrimSpace(cmd.FirstName),
		MiddleName:  strings.TrimSpace(cmd.MiddleName),
		LastName:    strings.TrimSpace(cmd.LastName),
		DateOfBirth: cmd.DateOfBirth,
		Gender:      cmd.Gender,
		BloodType:   cmd.BloodType,
		NationalID:  strings.TrimSpace(cmd.NationalID),
		NHIFNumber:  strings.TrimSpace(cmd.NHIFNumber),
		ContactInfo: patient.ContactInfo{
			Phone:   patient.NormalizePhone(cmd.Phone),
			Email:   strings.ToLower(strings.TrimSpace(cmd.Email)),
			Address: cmd.Address,
			Town:    cmd.Town,
			County:  cmd.County,
		},
		EmergencyContact: cmd.EmergencyContact,
		Allergies:        cmd.Allergies,
		Notes:            cmd.Notes,
		Status:           patient.StatusActive,
		CreatedBy:        actor.UserID,
	}
	if p.BloodType == "" {
		p.BloodType = patient.BloodTypeUnknown
	}

	matches, err := s.rank(ctx, patient.CriteriaFor(p), nil)
	if err != nil {
		return nil, err
	}
	var blocking []patient.MatchCandidate
	for _, m := range matches {
		if m.Score >= patient.BlockingMatchScore {
			blocking = append(blocking, m)
		}
	}
	if len(blocking) > 0 && !cmd.Force {
		return nil, &DuplicatePatientError{Matches: blocking}
	}

	if err := s.repo.Create(ctx, p); err != nil {
		s.log.Error("failed to create patient", zap.Error(err))
		return nil, fmt.Errorf("creating patient: %w", err)
	}
	s.metrics.PatientsCreatedTotal.Inc()

	var changes any
	if len(blocking) > 0 {
		changes = map[string]any{"forced": true, "matches": len(blocking)}
	}
	s.auditSvc.record(ctx, actor, domain.ActionCreate, "patient", p.ID.String(), changes)

	s.log.Info("patient created",
		zap.String("patient_id", p.ID.String()),
		zap.String("patient_number", p.PatientNumber),
		zap.String("created_by", actor.UserID.String()),
	)
	return p, nil
}

func (s *PatientService) GetPatient(ctx context.Context, id uuid.UUID, actor domain.Actor) (*patient.Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionRead, "patient", id.String(), nil)
	return p, nil
}

func (s *PatientService) UpdatePatient(ctx context.Context, id uuid.UUID, cmd *patient.UpdatePatientCommand, actor domain.Actor) (*patient.Patient, error) {
	if cmd.Gender != nil && !cmd.Gender.IsValid() {
		return nil, patient.ErrInvalidGender
	}
	var p *patient.Patient
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p.Status == patient.StatusMerged {
			return patient.ErrPatientMerged
		}
		cmd.Apply(p)

		var errs fieldErrors
		if p.FirstName == "" {
			errs.add("first_name is required")
		}
		if p.LastName == "" {
			errs.add("last_name is required")
		}
		if err := errs.Err(); err != nil {
			return err
		}
		return s.repo.Save(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionUpdate, "patient", id.String(), nil)
	return p, nil
}

func (s *PatientService) ListPatients(ctx context.Context, q *patient.ListPatientsQuery, actor domain.Actor) (*patient.PagedPatients, error) {
	q.Page, q.PageSize = domain.Page(q.Page, q.PageSize)
	out, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionRead, "patient_list", "", map[string]any{"search": q.Search, "count": len(out.Patients)})
	return out, nil
}

func (s *PatientService) DeactivatePatient(ctx context.Context, id uuid.UUID, actor domain.Actor) error {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := p.Deactivate(); err != nil {
			return err
		}
		return s.repo.SoftDelete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.auditSvc.record(ctx, actor, domain.ActionDelete, "patient", id.String(), nil)
	return nil
}

func (s *PatientService) MarkDeceased(ctx context.Context, id uuid.UUID, actor domain.Actor) (*patient.Patient, error) {
	var p *patient.Patient
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if p, err = s.repo.GetByIDForUpdate(ctx, id); err != nil {
			return err
		}
		if err := p.MarkDeceased(); err != nil {
			return err
		}
		return s.repo.Save(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionUpdate, "patient", id.String(), map[string]string{"status": string(p.Status)})
	return p, nil
}

// FindDuplicates scores existing records against c. excludeID drops the
// record being checked against itself.
func (s *PatientService) FindDuplicates(ctx context.Context, c patient.MatchCriteria, excludeID *uuid.UUID, actor domain.Actor) ([]patient.MatchCandidate, error) {
	if c.IsEmpty() {
		return nil, &ValidationError{Fields: []string{"an identifier, or names with date_of_birth, is required"}}
	}
	matches, err := s.rank(ctx, c, excludeID)
	if err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionRead, "patient_duplicates", "", map[string]int{"matches": len(matches)})
	return matches, nil
}

// DuplicatesOf runs FindDuplicates using an existing record's demographics.
func (s *PatientService) DuplicatesOf(ctx context.Context, id uuid.UUID, actor domain.Actor) ([]patient.MatchCandidate, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.FindDuplicates(ctx, patient.CriteriaFor(p), &p.ID, actor)
}

// MergePatients folds source into target. Both rows are locked in UUID order
// so that two concurrent merges of the same pair cannot deadlock.
func (s *PatientService) MergePatients(ctx context.Context, cmd *patient.MergeCommand, actor domain.Actor) (*patient.MergeResult, error) {
	if cmd.SourceID == cmd.TargetID {
		return nil, patient.ErrMergeSamePatient
	}

	var result *patient.MergeResult
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		first, second := cmd.SourceID, cmd.TargetID
		if second.String() < first.String() {
			first, second = second, first
		}
		locked := make(map[uuid.UUID]*patient.Patient, 2)
		for _, id := range []uuid.UUID{first, second} {
			p, err := s.repo.GetByIDForUpdate(ctx, id)
			if err != nil {
				return err
			}
			locked[id] = p
		}
		source, target := locked[cmd.SourceID], locked[cmd.TargetID]
		if target.Status == patient.StatusMerged {
			return patient.ErrPatientMerged
		}

		stay, err := s.wards.OpenAdmissionForPatient(ctx, source.ID)
		if err != nil {
			return fmt.Errorf("checking admissions: %w", err)
		}
		if stay != nil {
			return patient.ErrMergeActiveStay
		}
		bed, err := s.wards.BedForPatient(ctx, source.ID)
		if err != nil {
			return fmt.Errorf("checking beds: %w", err)
		}
		if bed != nil {
			return patient.ErrMergeActiveStay
		}

		if err := source.MergeInto(target.ID); err != nil {
			return err
		}
		moved, err := s.repo.ReassignReferences(ctx, source.ID, target.ID)
		if err != nil {
			return err
		}
		target.AbsorbIdentifiers(source)

		if err := s.repo.Save(ctx, source); err != nil {
			return err
		}
		if err := s.repo.Save(ctx, target); err != nil {
			return err
		}
		if err := s.repo.CreateMergeLog(ctx, &patient.MergeLog{
			SourceID:   source.ID,
			TargetID:   target.ID,
			Reassigned: moved,
			Reason:     cmd.Reason,
			MergedBy:   actor.UserID,
		}); err != nil {
			return err
		}
		result = &patient.MergeResult{Source: source, Target: target, Reassigned: moved}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PatientsMergedTotal.Inc()
	s.auditSvc.record(ctx, actor, domain.ActionMerge, "patient", cmd.SourceID.String(), map[string]any{
		"merged_into": cmd.TargetID,
		"reassigned":  result.Reassigned,
	})
	s.events.emit(ctx, events.PatientMerged, cmd.TargetID, actor, map[string]any{
		"source_id":  cmd.SourceID,
		"target_id":  cmd.TargetID,
		"reassigned": result.Reassigned,
	})
	s.log.Info("patients merged",
		zap.String("source_id", cmd.SourceID.String()),
		zap.String("target_id", cmd.TargetID.String()),
	)
	return result, nil
}

func (s *PatientService) rank(ctx context.Context, c patient.MatchCriteria, excludeID *uuid.UUID) ([]patient.MatchCandidate, error) {
	if c.IsEmpty() {
		return nil, nil
	}
	candidates, err := s.repo.FindCandidates(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("finding duplicate candidates: %w", err)
	}
	return patient.RankMatches(c, candidates, excludeID), nil
}

func (s *PatientService) validateCreate(cmd *patient.CreatePatientCommand) error {
	var errs fieldErrors
	if strings.TrimSpace(cmd.FirstName) == "" {
		errs.add("first_name is required")
	}
	if strings.TrimSpace(cmd.LastName) == "" {
		errs.add("last_name is required")
	}
	if cmd.DateOfBirth.IsZero() {
		errs.add("date_of_birth is required")
	} else if cmd.DateOfBirth.After(s.now()) {
		errs.add("date_of_birth cannot be in the future")
	}
	if !cmd.Gender.IsValid() {
		errs.add("gender is invalid")
	}
	if cmd.Phone != "" && len(patient.NormalizePhone(cmd.Phone)) < 9 {
		errs.add("phone is invalid")
	}
	return errs.Err()
}
