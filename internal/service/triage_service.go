package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/patient"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/triage"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/metrics"
)

const defaultStatsWindow = 24 * time.Hour

type TriageService struct {
	repo        triage.Repository
	patientRepo patient.Repository
	tx          Transactor
	auditSvc    *AuditService
	metrics     *metrics.Collector
	log         *zap.Logger
	now         func() time.Time
}

func NewTriageService(
	repo triage.Repository,
	patientRepo patient.Repository,
	tx Transactor,
	auditSvc *AuditService,
	m *metrics.Collector,
	log *zap.Logger,
) *TriageService {
	return &TriageService{
		repo:        repo,
		patientRepo: patientRepo,
		tx:          tx,
		auditSvc:    auditSvc,
		metrics:     m,
		log:         log,
		now:         utcNow,
	}
}

func (s *TriageService) Enqueue(ctx context.Context, cmd *triage.EnqueueCommand, actor domain.Actor) (*triage.Entry, error) {
	queue := strings.ToLower(strings.TrimSpace(cmd.Queue))
	if queue == "" {
		return nil, triage.ErrQueueRequired
	}
	if !triage.ValidPriority(cmd.Priority) {
		return nil, triage.ErrInvalidPriority
	}

	p, err := s.patientRepo.GetByID(ctx, cmd.PatientID)
	if err != nil {
		return nil, err
	}
	if err := p.CheckUsable(); err != nil {
		return nil, err
	}
	waiting, err := s.repo.IsWaiting(ctx, queue, cmd.PatientID)
	if err != nil {
		return nil, err
	}
	if waiting {
		return nil, triage.ErrAlreadyQueued
	}

	e := &triage.Entry{
		PatientID:      cmd.PatientID,
		EncounterID:    cmd.EncounterID,
		Queue:          queue,
		Priority:       cmd.Priority,
		ChiefComplaint: cmd.ChiefComplaint,
		Vitals:         cmd.Vitals,
		Status:         triage.StatusWaiting,
		QueuedAt:       s.now(),
		TriagedBy:      actor.UserID,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionCreate, "triage_entry", e.ID.String(), map[string]any{
		"queue":    e.Queue,
		"priority": e.Priority,
	})
	return e, nil
}

func (s *TriageService) Get(ctx context.Context, id uuid.UUID) (*triage.Entry, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *TriageService) Reprioritize(ctx context.Context, id uuid.UUID, priority int, actor domain.Actor) (*triage.Entry, error) {
	return s.mutate(ctx, id, actor, func(e *triage.Entry) error {
		return e.Reprioritize(priority)
	})
}

// CallNext pops the head of the queue. Concurrent callers each get a
// different patient because locked rows are skipped.
func (s *TriageService) CallNext(ctx context.Context, queue string, actor domain.Actor) (*triage.Entry, error) {
	queue = strings.ToLower(strings.TrimSpace(queue))
	if queue == "" {
		return nil, triage.ErrQueueRequired
	}
	var e *triage.Entry
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if e, err = s.repo.LockNext(ctx, queue); err != nil {
			return err
		}
		if err := e.Call(actor.UserID, s.now()); err != nil {
			return err
		}
		return s.repo.Save(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.TriageWaitSeconds.WithLabelValues(strconv.Itoa(e.Priority)).
		Observe(e.CalledAt.Sub(e.QueuedAt).Seconds())
	s.auditSvc.record(ctx, actor, domain.ActionUpdate, "triage_entry", e.ID.String(), map[string]string{"status": string(e.Status)})
	return e, nil
}

func (s *TriageService) Complete(ctx context.Context, id uuid.UUID, actor domain.Actor) (*triage.Entry, error) {
	return s.mutate(ctx, id, actor, func(e *triage.Entry) error {
		return e.Complete(s.now())
	})
}

func (s *TriageService) MarkLeft(ctx context.Context, id uuid.UUID, actor domain.Actor) (*triage.Entry, error) {
	return s.mutate(ctx, id, actor, func(e *triage.Entry) error {
		return e.MarkLeft(s.now())
	})
}

func (s *TriageService) mutate(ctx context.Context, id uuid.UUID, actor domain.Actor, fn func(*triage.Entry) error) (*triage.Entry, error) {
	var e *triage.Entry
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if e, err = s.repo.GetByIDForUpdate(ctx, id); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
		return s.repo.Save(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionUpdate, "triage_entry", id.String(), map[string]any{
		"status":   e.Status,
		"priority": e.Priority,
	})
	return e, nil
}

func (s *TriageService) ListWaiting(ctx context.Context, queue string) ([]*triage.Entry, error) {
	return s.repo.ListWaiting(ctx, strings.ToLower(strings.TrimSpace(queue)))
}

// Stats reports the current queue and the wait times of entries called since
// the given time, or over the last day when since is nil.
func (s *TriageService) Stats(ctx context.Context, queue string, since *time.Time) (triage.Stats, error) {
	queue = strings.ToLower(strings.TrimSpace(queue))
	now := s.now()
	from := now.Add(-defaultStatsWindow)
	if since != nil {
		if since.After(now) {
			return triage.Stats{}, &ValidationError{Fields: []string{"since must not be in the future"}}
		}
		from = since.UTC()
	}
	waiting, err := s.repo.ListWaiting(ctx, queue)
	if err != nil {
		return triage.Stats{}, err
	}
	called, err := s.repo.ListCalledSince(ctx, queue, from)
	if err != nil {
		return triage.Stats{}, err
	}
	st := triage.ComputeStats(queue, waiting, called, now)
	st.Since = from
	return st, nil
}

