package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/ward"
)

type WardRepository struct {
	base
}

func NewWardRepository(db *gorm.DB) *WardRepository {
	return &WardRepository{base{db}}
}

func (r *WardRepository) CreateWard(ctx context.Context, w *ward.Ward) error {
	err := r.conn(ctx).Create(w).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ward.ErrWardCodeTaken
	}
	return err
}

func (r *WardRepository) GetWard(ctx context.Context, id uuid.UUID) (*ward.Ward, error) {
	var w ward.Ward
	if err := r.conn(ctx).First(&w, "id = ?", id).Error; err != nil {
		return nil, notFound(err, ward.ErrWardNotFound)
	}
	return &w, nil
}

func (r *WardRepository) ListWards(ctx context.Context) ([]*ward.Ward, error) {
	var out []*ward.Ward
	err := r.conn(ctx).Order("code").Find(&out).Error
	return out, err
}

func (r *WardRepository) CreateBed(ctx context.Context, b *ward.Bed) error {
	err := r.conn(ctx).Create(b).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ward.ErrBedNumberTaken
	}
	return err
}

func (r *WardRepository) GetBed(ctx context.Context, id uuid.UUID) (*ward.Bed, error) {
	var b ward.Bed
	if err := r.conn(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, notFound(err, ward.ErrBedNotFound)
	}
	return &b, nil
}

func (r *WardRepository) GetBedForUpdate(ctx context.Context, id uuid.UUID) (*ward.Bed, error) {
	var b ward.Bed
	if err := r.conn(ctx).Clauses(forUpdate).First(&b, "id = ?", id).Error; err != nil {
		return nil, notFound(err, ward.ErrBedNotFound)
	}
	return &b, nil
}

func (r *WardRepository) SaveBed(ctx context.Context, b *ward.Bed) error {
	err := r.conn(ctx).Save(b).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// uq_beds_occupied_patient
		return ward.ErrPatientHasBed
	}
	return err
}

func (r *WardRepository) ListBeds(ctx context.Context, q *ward.ListBedsQuery) ([]*ward.Bed, error) {
	db := r.conn(ctx).Model(&ward.Bed{})
	if q.WardID != nil {
		db = db.Where("ward_id = ?", *q.WardID)
	}
	if q.Status != nil {
		db = db.Where("status = ?", *q.Status)
	}
	var out []*ward.Bed
	err := db.Order("ward_id, bed_number").Find(&out).Error
	return out, err
}

func (r *WardRepository) BedForPatient(ctx context.Context, patientID uuid.UUID) (*ward.Bed, error) {
	var b ward.Bed
	err := r.conn(ctx).
		Where("current_patient_id = ? AND status = ?", patientID, ward.BedOccupied).
		Take(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *WardRepository) CreateAdmission(ctx context.Context, a *ward.Admission) error {
	err := r.conn(ctx).Create(a).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// uq_admissions_open_patient
		return ward.ErrAlreadyAdmitted
	}
	return err
}

func (r *WardRepository) GetAdmission(ctx context.Context, id uuid.UUID) (*ward.Admission, error) {
	var a ward.Admission
	if err := r.conn(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, notFound(err, ward.ErrAdmissionNotFound)
	}
	return &a, nil
}

func (r *WardRepository) GetAdmissionForUpdate(ctx context.Context, id uuid.UUID) (*ward.Admission, error) {
	var a ward.Admission
	if err := r.conn(ctx).Clauses(forUpdate).First(&a, "id = ?", id).Error; err != nil {
		return nil, notFound(err, ward.ErrAdmissionNotFound)
	}
	return &a, nil
}

func (r *WardRepository) SaveAdmission(ctx context.Context, a *ward.Admission) error {
	return r.conn(ctx).Save(a).Error
}

func (r *WardRepository) ListAdmissions(ctx context.Context, q *ward.ListAdmissionsQuery) (*ward.PagedAdmissions, error) {
	db := r.conn(ctx).Model(&ward.Admission{})
	if q.PatientID != nil {
		db = db.Where("patient_id = ?", *q.PatientID)
	}
	if q.WardID != nil {
		db = db.Where("ward_id = ?", *q.WardID)
	}
	if q.Status != nil {
		db = db.Where("status = ?", *q.Status)
	}

	db, total, page, size, err := paginate(db, q.Page, q.PageSize)
	if err != nil {
		return nil, err
	}
	var out []*ward.Admission
	if err := db.Order("admitted_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return &ward.PagedAdmissions{
		Admissions: out,
		TotalCount: total,
		Page:       page,
		PageSize:   size,
		TotalPages: domain.TotalPages(total, size),
	}, nil
}

func (r *WardRepository) OpenAdmissionForPatient(ctx context.Context, patientID uuid.UUID) (*ward.Admission, error) {
	var a ward.Admission
	err := r.conn(ctx).
		Where("patient_id = ? AND status = ?", patientID, ward.AdmissionAdmitted).
		Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *WardRepository) CreateTransfer(ctx context.Context, t *ward.BedTransfer) error {
	return r.conn(ctx).Create(t).Error
}

func (r *WardRepository) ListTransfers(ctx context.Context, admissionID uuid.UUID) ([]*ward.BedTransfer, error) {
	var out []*ward.BedTransfer
	err := r.conn(ctx).Where("admission_id = ?", admissionID).Order("transferred_at").Find(&out).Error
	return out, err
}
