package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/appointment"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/encounter"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/patient"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/metrics"
)

type AppointmentService struct {
	repo        appointment.Repository
	patientRepo patient.Repository
	encounters  encounter.Repository
	tx          Transactor
	auditSvc    *AuditService
	metrics     *metrics.Collector
	log         *zap.Logger
	now         func() time.Time
}

func NewAppointmentService(
	repo appointment.Repository,
	patientRepo patient.Repository,
	encounters encounter.Repository,
	tx Transactor,
	auditSvc *AuditService,
	m *metrics.Collector,
	log *zap.Logger,
) *AppointmentService {
	return &AppointmentService{
		repo:        repo,
		patientRepo: patientRepo,
		encounters:  encounters,
		tx:          tx,
		auditSvc:    auditSvc,
		metrics:     m,
		log:         log,
		now:         utcNow,
	}
}

func (s *AppointmentService) ScheduleAppointment(ctx context.Context, cmd *appointment.CreateAppointmentCommand, actor domain.Actor) (*appointment.Appointment, error) {
	if cmd.DurationMins == 0 {
		cmd.DurationMins = 30
	}
	// -------- Input Validation -----------
	if cmd.ScheduledAt.Before(s.now()) {
		return nil, appointment.ErrScheduledInPast
	}
	if cmd.DurationMins < appointment.MinDurationMins || cmd.DurationMins > appointment.MaxDurationMins {
		return nil, appointment.ErrInvalidDuration
	}
	if !cmd.Type.IsValid() {
		return nil, appointment.ErrInvalidAppointmentType
	}
	if cmd.DoctorID == uuid.Nil {
		return nil, &ValidationError{Fields: []string{"doctor_id is required"}}
	}

	a := &appointment.Appointment{
		PatientID:      cmd.PatientID,
		DoctorID:       cmd.DoctorID,
		ScheduledAt:    cmd.ScheduledAt.UTC(),
		DurationMins:   cmd.DurationMins,
		Type:           cmd.Type,
		Status:         appointment.StatusScheduled,
		ChiefComplaint: cmd.ChiefComplaint,
		Notes:          cmd.Notes,
		Room:           cmd.Room,
		CreatedBy:      actor.UserID,
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		p, err := s.patientRepo.GetByID(ctx, cmd.PatientID)
		if err != nil {
			return fmt.Errorf("verifying patient: %w", err)
		}
		if err := p.CheckUsable(); err != nil {
			return err
		}
		if err := s.ensureFree(ctx, a, nil); err != nil {
			return err
		}
		return s.repo.Create(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AppointmentsTotal.WithLabelValues(string(a.Status)).Inc()
	s.auditSvc.record(ctx, actor, domain.ActionCreate, "appointment", a.ID.String(), nil)
	return a, nil
}

func (s *AppointmentService) GetAppointment(ctx context.Context, id uuid.UUID, actor domain.Actor) (*appointment.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionRead, "appointment", id.String(), nil)
	return a, nil
}

func (s *AppointmentService) ListAppointments(ctx context.Context, q *appointment.ListAppointmentsQuery, actor domain.Actor) (*appointment.PagedAppointments, error) {
	q.Page, q.PageSize = domain.Page(q.Page, q.PageSize)
	return s.repo.List(ctx, q)
}

func (s *AppointmentService) Reschedule(ctx context.Context, id uuid.UUID, cmd *appointment.RescheduleCommand, actor domain.Actor) (*appointment.Appointment, error) {
	if cmd.ScheduledAt.Before(s.now()) {
		return nil, appointment.ErrScheduledInPast
	}
	if cmd.DurationMins != nil && (*cmd.DurationMins < appointment.MinDurationMins || *cmd.DurationMins > appointment.MaxDurationMins) {
		return nil, appointment.ErrInvalidDuration
	}

	var a *appointment.Appointment
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if a, err = s.repo.GetByIDForUpdate(ctx, id); err != nil {
			return err
		}
		if a.Status != appointment.StatusScheduled && a.Status != appointment.StatusConfirmed {
			return appointment.ErrNotReschedulable
		}
		a.ScheduledAt = cmd.ScheduledAt.UTC()
		if cmd.DurationMins != nil {
			a.DurationMins = *cmd.DurationMins
		}
		if cmd.Room != nil {
			a.Room = *cmd.Room
		}
		if err := s.ensureFree(ctx, a, &a.ID); err != nil {
			return err
		}
		// A moved appointment needs confirming again.
		a.Status = appointment.StatusScheduled
		return s.repo.Save(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionUpdate, "appointment", id.String(), map[string]any{
		"scheduled_at": a.ScheduledAt,
	})
	return a, nil
}

func (s *AppointmentService) ConfirmAppointment(ctx context.Context, id uuid.UUID, actor domain.Actor) (*appointment.Appointment, error) {
	return s.transition(ctx, id, actor, func(a *appointment.Appointment) error {
		return a.Confirm()
	})
}

func (s *AppointmentService) CancelAppointment(ctx context.Context, id uuid.UUID, reason string, actor domain.Actor) (*appointment.Appointment, error) {
	return s.transition(ctx, id, actor, func(a *appointment.Appointment) error {
		return a.Cancel(reason, actor.UserID, s.now())
	})
}

func (s *AppointmentService) MarkNoShow(ctx context.Context, id uuid.UUID, actor domain.Actor) (*appointment.Appointment, error) {
	return s.transition(ctx, id, actor, func(a *appointment.Appointment) error {
		return a.MarkNoShow()
	})
}

func (s *AppointmentService) CompleteAppointment(ctx context.Context, id uuid.UUID, actualDurationMins *int, actor domain.Actor) (*appointment.Appointment, error) {
	return s.transition(ctx, id, actor, func(a *appointment.Appointment) error {
		return a.Complete(actualDurationMins, s.now())
	})
}

// CheckIn starts the visit and opens its outpatient encounter in the same transaction.
func (s *AppointmentService) CheckIn(ctx context.Context, id uuid.UUID, actor domain.Actor) (*appointment.Appointment, *encounter.Encounter, error) {
	var (
		a   *appointment.Appointment
		enc *encounter.Encounter
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if a, err = s.repo.GetByIDForUpdate(ctx, id); err != nil {
			return err
		}
		p, err := s.patientRepo.GetByID(ctx, a.PatientID)
		if err != nil {
			return err
		}
		if err := p.CheckUsable(); err != nil {
			return err
		}
		now := s.now()
		if err := a.CheckIn(now); err != nil {
			return err
		}
		if err := s.repo.Save(ctx, a); err != nil {
			return err
		}
		enc = &encounter.Encounter{
			PatientID:     a.PatientID,
			AppointmentID: &a.ID,
			Class:         encounter.ClassOutpatient,
			Status:        encounter.StatusScheduled,
			AttendingID:   &a.DoctorID,
			Reason:        a.ChiefComplaint,
			CreatedBy:     actor.UserID,
		}
		if err := enc.Start(now); err != nil {
			return err
		}
		return s.encounters.Create(ctx, enc)
	})
	if err != nil {
		return nil, nil, err
	}

	s.metrics.AppointmentsTotal.WithLabelValues(string(a.Status)).Inc()
	s.auditSvc.record(ctx, actor, domain.ActionUpdate, "appointment", id.String(), map[string]any{
		"status":       a.Status,
		"encounter_id": enc.ID,
	})
	return a, enc, nil
}

func (s *AppointmentService) transition(ctx context.Context, id uuid.UUID, actor domain.Actor, apply func(*appointment.Appointment) error) (*appointment.Appointment, error) {
	var a *appointment.Appointment
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if a, err = s.repo.GetByIDForUpdate(ctx, id); err != nil {
			return err
		}
		if err := apply(a); err != nil {
			return err
		}
		return s.repo.Save(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.AppointmentsTotal.WithLabelValues(string(a.Status)).Inc()
	s.auditSvc.record(ctx, actor, domain.ActionUpdate, "appointment", id.String(), map[string]string{"status": string(a.Status)})
	return a, nil
}

func (s *AppointmentService) ensureFree(ctx context.Context, a *appointment.Appointment, excludeID *uuid.UUID) error {
	conflict, err := s.repo.HasConflict(ctx, a.DoctorID, a.ScheduledAt, a.EndsAt(), excludeID)
	if err != nil {
		return fmt.Errorf("checking conflicts: %w", err)
	}
	if conflict {
		return appointment.ErrAppointmentConflict
	}
	return nil
}
