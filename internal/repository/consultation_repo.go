package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/consultation"
)

type ConsultationRepository struct {
	base
}

func NewConsultationRepository(db *gorm.DB) *ConsultationRepository {
	return &ConsultationRepository{base{db}}
}

func (r *ConsultationRepository) Create(ctx context.Context, c *consultation.Consultation) error {
	return r.conn(ctx).Omit("Addenda").Create(c).Error
}

func (r *ConsultationRepository) GetByID(ctx context.Context, id uuid.UUID) (*consultation.Consultation, error) {
	var c consultation.Consultation
	err := r.conn(ctx).
		Preload("Addenda", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		First(&c, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, consultation.ErrConsultationNotFound)
	}
	return &c, nil
}

func (r *ConsultationRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*consultation.Consultation, error) {
	var c consultation.Consultation
	if err := r.conn(ctx).Clauses(forUpdate).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err, consultation.ErrConsultationNotFound)
	}
	return &c, nil
}

func (r *ConsultationRepository) Save(ctx context.Context, c *consultation.Consultation) error {
	return r.conn(ctx).Omit("Addenda").Save(c).Error
}

func (r *ConsultationRepository) AddAddendum(ctx context.Context, a *consultation.Addendum) error {
	return r.conn(ctx).Create(a).Error
}

func (r *ConsultationRepository) List(ctx context.Context, q *consultation.ListConsultationsQuery) (*consultation.PagedConsultations, error) {
	db := r.conn(ctx).Model(&consultation.Consultation{})
	if q.PatientID != nil {
		db = db.Where("patient_id = ?", *q.PatientID)
	}
	if q.EncounterID != nil {
		db = db.Where("encounter_id = ?", *q.EncounterID)
	}
	if q.ClinicianID != nil {
		db = db.Where("clinician_id = ?", *q.ClinicianID)
	}
	if q.DateFrom != nil {
		db = db.Where("created_at >= ?", *q.DateFrom)
	}
	if q.DateTo != nil {
		db = db.Where("created_at < ?", *q.DateTo)
	}

	db, total, page, size, err := paginate(db, q.Page, q.PageSize)
	if err != nil {
		return nil, err
	}
	var out []*consultation.Consultation
	if err := db.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return &consultation.PagedConsultations{
		Consultations: out,
		TotalCount:    total,
		Page:          page,
		PageSize:      size,
		TotalPages:    domain.TotalPages(total, size),
	}, nil
}
