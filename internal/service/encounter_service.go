package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/appointment"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/encounter"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/patient"
)

type EncounterService struct {
	repo         encounter.Repository
	patientRepo  patient.Repository
	appointments appointment.Repository
	tx           Transactor
	auditSvc     *AuditService
	log          *zap.Logger
	now          func() time.Time
}

func NewEncounterService(
	repo encounter.Repository,
	patientRepo patient.Repository,
	appointments appointment.Repository,
	tx Transactor,
	auditSvc *AuditService,
	log *zap.Logger,
) *EncounterService {
	return &EncounterService{
		repo:         repo,
		patientRepo:  patientRepo,
		appointments: appointments,
		tx:           tx,
		auditSvc:     auditSvc,
		log:          log,
		now:          utcNow,
	}
}

func (s *EncounterService) CreateEncounter(ctx context.Context, cmd *encounter.CreateEncounterCommand, actor domain.Actor) (*encounter.Encounter, error) {
	if !cmd.Class.IsValid() {
		return nil, encounter.ErrInvalidClass
	}
	p, err := s.patientRepo.GetByID(ctx, cmd.PatientID)
	if err != nil {
		return nil, err
	}
	if err := p.CheckUsable(); err != nil {
		return nil, err
	}

	e := &encounter.Encounter{
		PatientID:     cmd.PatientID,
		AppointmentID: cmd.AppointmentID,
		Class:         cmd.Class,
		Status:        encounter.StatusScheduled,
		AttendingID:   cmd.AttendingID,
		Department:    cmd.Department,
		Reason:        cmd.Reason,
		CreatedBy:     actor.UserID,
	}
	if cmd.StartNow {
		if err := e.Start(s.now()); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionCreate, "encounter", e.ID.String(), nil)
	return e, nil
}

func (s *EncounterService) GetEncounter(ctx context.Context, id uuid.UUID, actor domain.Actor) (*encounter.Encounter, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionRead, "encounter", id.String(), nil)
	return e, nil
}

func (s *EncounterService) ListEncounters(ctx context.Context, q *encounter.ListEncountersQuery) (*encounter.PagedEncounters, error) {
	q.Page, q.PageSize = domain.Page(q.Page, q.PageSize)
	return s.repo.List(ctx, q)
}

func (s *EncounterService) StartEncounter(ctx context.Context, id uuid.UUID, actor domain.Actor) (*encounter.Encounter, error) {
	return s.transition(ctx, id, actor, func(ctx context.Context, e *encounter.Encounter) error {
		return e.Start(s.now())
	})
}

// CompleteEncounter also completes the appointment that opened the encounter
// when that appointment is still in progress.
func (s *EncounterService) CompleteEncounter(ctx context.Context, id uuid.UUID, actor domain.Actor) (*encounter.Encounter, error) {
	return s.transition(ctx, id, actor, func(ctx context.Context, e *encounter.Encounter) error {
		now := s.now()
		if err := e.Complete(now); err != nil {
			return err
		}
		if e.AppointmentID == nil {
			return nil
		}
		a, err := s.appointments.GetByIDForUpdate(ctx, *e.AppointmentID)
		if err != nil {
			return err
		}
		if a.Status != appointment.StatusInProgress {
			return nil
		}
		if err := a.Complete(nil, now); err != nil {
			return err
		}
		return s.appointments.Save(ctx, a)
	})
}

func (s *EncounterService) CancelEncounter(ctx context.Context, id uuid.UUID, actor domain.Actor) (*encounter.Encounter, error) {
	return s.transition(ctx, id, actor, func(ctx context.Context, e *encounter.Encounter) error {
		return e.Cancel(s.now())
	})
}

func (s *EncounterService) transition(ctx context.Context, id uuid.UUID, actor domain.Actor, apply func(context.Context, *encounter.Encounter) error) (*encounter.Encounter, error) {
	var e *encounter.Encounter
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if e, err = s.repo.GetByID(ctx, id); err != nil {
			return err
		}
		if err := apply(ctx, e); err != nil {
			return err
		}
		return s.repo.Save(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionUpdate, "encounter", id.String(), map[string]string{"status": string(e.Status)})
	return e, nil
}
