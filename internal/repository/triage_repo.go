package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/triage"
)

type TriageRepository struct {
	base
}

func NewTriageRepository(db *gorm.DB) *TriageRepository {
	return &TriageRepository{base{db}}
}

func (r *TriageRepository) Create(ctx context.Context, e *triage.Entry) error {
	err := r.conn(ctx).Create(e).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// uq_triage_waiting_patient
		return triage.ErrAlreadyQueued
	}
	return err
}

func (r *TriageRepository) GetByID(ctx context.Context, id uuid.UUID) (*triage.Entry, error) {
	var e triage.Entry
	if err := r.conn(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, notFound(err, triage.ErrEntryNotFound)
	}
	return &e, nil
}

func (r *TriageRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*triage.Entry, error) {
	var e triage.Entry
	if err := r.conn(ctx).Clauses(forUpdate).First(&e, "id = ?", id).Error; err != nil {
		return nil, notFound(err, triage.ErrEntryNotFound)
	}
	return &e, nil
}

func (r *TriageRepository) Save(ctx context.Context, e *triage.Entry) error {
	return r.conn(ctx).Save(e).Error
}

func (r *TriageRepository) IsWaiting(ctx context.Context, queue string, patientID uuid.UUID) (bool, error) {
	var n int64
	err := r.conn(ctx).Model(&triage.Entry{}).
		Where("queue = ? AND patient_id = ? AND status = ?", queue, patientID, triage.StatusWaiting).
		Count(&n).Error
	return n > 0, err
}

// LockNext lets two nurses call from the same queue at once without handing
// out the same patient.
func (r *TriageRepository) LockNext(ctx context.Context, queue string) (*triage.Entry, error) {
	var e triage.Entry
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("queue = ? AND status = ?", queue, triage.StatusWaiting).
		Order("priority, queued_at").
		Take(&e).Error
	if err != nil {
		return nil, notFound(err, triage.ErrQueueEmpty)
	}
	return &e, nil
}

func (r *TriageRepository) ListWaiting(ctx context.Context, queue string) ([]*triage.Entry, error) {
	var out []*triage.Entry
	err := r.conn(ctx).
		Where("queue = ? AND status = ?", queue, triage.StatusWaiting).
		Order("priority, queued_at").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	triage.Sort(out)
	return out, nil
}

func (r *TriageRepository) ListCalledSince(ctx context.Context, queue string, since time.Time) ([]*triage.Entry, error) {
	var out []*triage.Entry
	err := r.conn(ctx).
		Where("queue = ? AND called_at >= ?", queue, since).
		Order("called_at").
		Find(&out).Error
	return out, err
}
