package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/pharmacy"
)

type PharmacyRepository struct {
	base
}

func NewPharmacyRepository(db *gorm.DB) *PharmacyRepository {
	return &PharmacyRepository{base{db}}
}

func (r *PharmacyRepository) CreateMedication(ctx context.Context, m *pharmacy.Medication) error {
	return r.conn(ctx).Create(m).Error
}

func (r *PharmacyRepository) GetMedication(ctx context.Context, id uuid.UUID) (*pharmacy.Medication, error) {
	var m pharmacy.Medication
	if err := r.conn(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, pharmacy.ErrMedicationNotFound)
	}
	return &m, nil
}

func (r *PharmacyRepository) GetMedicationForUpdate(ctx context.Context, id uuid.UUID) (*pharmacy.Medication, error) {
	var m pharmacy.Medication
	if err := r.conn(ctx).Clauses(forUpdate).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, pharmacy.ErrMedicationNotFound)
	}
	return &m, nil
}

func (r *PharmacyRepository) SaveMedication(ctx context.Context, m *pharmacy.Medication) error {
	return r.conn(ctx).Save(m).Error
}

func (r *PharmacyRepository) ListMedications(ctx context.Context, q *pharmacy.ListMedicationsQuery) (*pharmacy.PagedMedications, error) {
	db := r.conn(ctx).Model(&pharmacy.Medication{})
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + s + "%"
		db = db.Where("name ILIKE ? OR generic_name ILIKE ?", like, like)
	}
	if q.LowStock {
		db = db.Where("stock_quantity <= reorder_level")
	}
	if q.Active != nil {
		db = db.Where("is_active = ?", *q.Active)
	}

	db, total, page, size, err := paginate(db, q.Page, q.PageSize)
	if err != nil {
		return nil, err
	}
	var out []*pharmacy.Medication
	if err := db.Order("name").Find(&out).Error; err != nil {
		return nil, err
	}
	return &pharmacy.PagedMedications{
		Medications: out,
		TotalCount:  total,
		Page:        page,
		PageSize:    size,
		TotalPages:  domain.TotalPages(total, size),
	}, nil
}

func (r *PharmacyRepository) CreateMovement(ctx context.Context, mv *pharmacy.StockMovement) error {
	return r.conn(ctx).Create(mv).Error
}

func (r *PharmacyRepository) ListMovements(ctx context.Context, medicationID uuid.UUID, limit int) ([]*pharmacy.StockMovement, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []*pharmacy.StockMovement
	err := r.conn(ctx).
		Where("medication_id = ?", medicationID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *PharmacyRepository) CreateSale(ctx context.Context, s *pharmacy.PharmacySale) error {
	return r.conn(ctx).Create(s).Error
}

func (r *PharmacyRepository) GetSale(ctx context.Context, id uuid.UUID) (*pharmacy.PharmacySale, error) {
	var s pharmacy.PharmacySale
	if err := r.conn(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, notFound(err, pharmacy.ErrSaleNotFound)
	}
	return &s, nil
}

func (r *PharmacyRepository) ListSalesByPatient(ctx context.Context, patientID uuid.UUID) ([]*pharmacy.PharmacySale, error) {
	var out []*pharmacy.PharmacySale
	err := r.conn(ctx).Where("patient_id = ?", patientID).Order("created_at DESC").Find(&out).Error
	return out, err
}
