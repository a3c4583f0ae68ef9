package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/prescription"
)

type PrescriptionRepository struct {
	base
}

func NewPrescriptionRepository(db *gorm.DB) *PrescriptionRepository {
	return &PrescriptionRepository{base{db}}
}

var dispensable = []prescription.PrescriptionStatus{
	prescription.StatusActive,
	prescription.StatusPartiallyDispensed,
}

func (r *PrescriptionRepository) Create(ctx context.Context, p *prescription.Prescription) error {
	return r.conn(ctx).Create(p).Error
}

func (r *PrescriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*prescription.Prescription, error) {
	var p prescription.Prescription
	if err := r.conn(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err, prescription.ErrPrescriptionNotFound)
	}
	return &p, nil
}

func (r *PrescriptionRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*prescription.Prescription, error) {
	var p prescription.Prescription
	if err := r.conn(ctx).Clauses(forUpdate).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err, prescription.ErrPrescriptionNotFound)
	}
	return &p, nil
}

func (r *PrescriptionRepository) Save(ctx context.Context, p *prescription.Prescription) error {
	return r.conn(ctx).Save(p).Error
}

func (r *PrescriptionRepository) List(ctx context.Context, q *prescription.ListPrescriptionsQuery) (*prescription.PagedPrescriptions, error) {
	db := r.conn(ctx).Model(&prescription.Prescription{})
	if q.PatientID != nil {
		db = db.Where("patient_id = ?", *q.PatientID)
	}
	if q.DoctorID != nil {
		db = db.Where("doctor_id = ?", *q.DoctorID)
	}
	if q.Status != nil {
		db = db.Where("status = ?", *q.Status)
	}

	db, total, page, size, err := paginate(db, q.Page, q.PageSize)
	if err != nil {
		return nil, err
	}
	var out []*prescription.Prescription
	if err := db.Order("issued_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return &prescription.PagedPrescriptions{
		Prescriptions: out,
		TotalCount:    total,
		Page:          page,
		PageSize:      size,
		TotalPages:    domain.TotalPages(total, size),
	}, nil
}

func (r *PrescriptionRepository) GetActiveByPatient(ctx context.Context, patientID uuid.UUID) ([]*prescription.Prescription, error) {
	var out []*prescription.Prescription
	err := r.conn(ctx).
		Where("patient_id = ? AND status IN ? AND expires_at > ?", patientID, dispensable, time.Now().UTC()).
		Order("issued_at DESC").
		Find(&out).Error
	return out, err
}

// ExpireStale also voids the open exceptions of every prescription it expires.
func (r *PrescriptionRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	db := r.conn(ctx)
	var ids []uuid.UUID
	err := db.Raw(
		`UPDATE clinical.prescriptions SET status = ?, updated_at = ?
		 WHERE status IN ? AND expires_at <= ?
		 RETURNING id`,
		prescription.StatusExpired, now, dispensable, now,
	).Scan(&ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	err = db.Model(&prescription.DispenseException{}).
		Where("prescription_id IN ? AND status IN ?", ids, openExceptions).
		Updates(map[string]any{"status": prescription.ExceptionVoid, "updated_at": now}).Error
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

var openExceptions = []prescription.ExceptionStatus{
	prescription.ExceptionPending,
	prescription.ExceptionApproved,
}

func (r *PrescriptionRepository) CreateException(ctx context.Context, e *prescription.DispenseException) error {
	err := r.conn(ctx).Create(e).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// uq_exceptions_open
		return prescription.ErrExceptionOpen
	}
	return err
}

func (r *PrescriptionRepository) GetException(ctx context.Context, id uuid.UUID) (*prescription.DispenseException, error) {
	var e prescription.DispenseException
	if err := r.conn(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, notFound(err, prescription.ErrExceptionNotFound)
	}
	return &e, nil
}

func (r *PrescriptionRepository) GetExceptionForUpdate(ctx context.Context, id uuid.UUID) (*prescription.DispenseException, error) {
	var e prescription.DispenseException
	if err := r.conn(ctx).Clauses(forUpdate).First(&e, "id = ?", id).Error; err != nil {
		return nil, notFound(err, prescription.ErrExceptionNotFound)
	}
	return &e, nil
}

func (r *PrescriptionRepository) SaveException(ctx context.Context, e *prescription.DispenseException) error {
	return r.conn(ctx).Save(e).Error
}

func (r *PrescriptionRepository) ListExceptions(ctx context.Context, prescriptionID uuid.UUID) ([]*prescription.DispenseException, error) {
	var out []*prescription.DispenseException
	err := r.conn(ctx).Where("prescription_id = ?", prescriptionID).Order("created_at").Find(&out).Error
	return out, err
}

func (r *PrescriptionRepository) OpenException(ctx context.Context, prescriptionID uuid.UUID) (*prescription.DispenseException, error) {
	var e prescription.DispenseException
	err := r.conn(ctx).
		Where("prescription_id = ? AND status IN ?", prescriptionID, openExceptions).
		Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}
