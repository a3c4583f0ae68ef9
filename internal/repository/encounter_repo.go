package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/encounter"
)

type EncounterRepository struct {
	base
}

func NewEncounterRepository(db *gorm.DB) *EncounterRepository {
	return &EncounterRepository{base{db}}
}

func (r *EncounterRepository) Create(ctx context.Context, e *encounter.Encounter) error {
	return r.conn(ctx).Create(e).Error
}

func (r *EncounterRepository) GetByID(ctx context.Context, id uuid.UUID) (*encounter.Encounter, error) {
	var e encounter.Encounter
	if err := r.conn(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, notFound(err, encounter.ErrEncounterNotFound)
	}
	return &e, nil
}

func (r *EncounterRepository) Save(ctx context.Context, e *encounter.Encounter) error {
	return r.conn(ctx).Save(e).Error
}

func (r *EncounterRepository) List(ctx context.Context, q *encounter.ListEncountersQuery) (*encounter.PagedEncounters, error) {
	db := r.conn(ctx).Model(&encounter.Encounter{})
	if q.PatientID != nil {
		db = db.Where("patient_id = ?", *q.PatientID)
	}
	if q.Status != nil {
		db = db.Where("status = ?", *q.Status)
	}
	if q.Class != nil {
		db = db.Where("class = ?", *q.Class)
	}

	db, total, page, size, err := paginate(db, q.Page, q.PageSize)
	if err != nil {
		return nil, err
	}
	var out []*encounter.Encounter
	if err := db.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return &encounter.PagedEncounters{
		Encounters: out,
		TotalCount: total,
		Page:       page,
		PageSize:   size,
		TotalPages: domain.TotalPages(total, size),
	}, nil
}
