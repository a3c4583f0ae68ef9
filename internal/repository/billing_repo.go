package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/billing"
)

type BillingRepository struct {
	base
}

func NewBillingRepository(db *gorm.DB) *BillingRepository {
	return &BillingRepository{base{db}}
}

var chargeable = []billing.BillStatus{billing.BillOpen, billing.BillPartiallyPaid}

func (r *BillingRepository) Create(ctx context.Context, b *billing.Bill) error {
	db := r.conn(ctx)
	if b.BillNumber == "" {
		num, err := nextNumber(db, "billing.bill_number_seq", "INV")
		if err != nil {
			return err
		}
		b.BillNumber = num
	}
	return db.Omit("Items", "Payments").Create(b).Error
}

func withLines(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("received_at") })
}

func (r *BillingRepository) GetByID(ctx context.Context, id uuid.UUID) (*billing.Bill, error) {
	var b billing.Bill
	if err := withLines(r.conn(ctx)).First(&b, "id = ?", id).Error; err != nil {
		return nil, notFound(err, billing.ErrBillNotFound)
	}
	return &b, nil
}

func (r *BillingRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*billing.Bill, error) {
	var b billing.Bill
	if err := withLines(r.conn(ctx)).Clauses(forUpdate).First(&b, "id = ?", id).Error; err != nil {
		return nil, notFound(err, billing.ErrBillNotFound)
	}
	return &b, nil
}

func (r *BillingRepository) FindOpenForUpdate(ctx context.Context, patientID uuid.UUID, encounterID, admissionID *uuid.UUID) (*billing.Bill, error) {
	db := withLines(r.conn(ctx)).Clauses(forUpdate).
		Where("patient_id = ? AND status IN ?", patientID, chargeable)
	if admissionID != nil {
		db = db.Where("admission_id = ?", *admissionID)
	} else if encounterID != nil {
		db = db.Where("encounter_id = ?", *encounterID)
	} else {
		db = db.Where("encounter_id IS NULL AND admission_id IS NULL")
	}

	var b billing.Bill
	err := db.Order("created_at DESC").Take(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BillingRepository) SaveTotals(ctx context.Context, b *billing.Bill) error {
	return r.conn(ctx).Model(b).Select(
		"status", "subtotal", "tax", "discount", "total", "paid", "balance_due",
		"discount_reason", "voided_at", "void_reason",
	).Updates(b).Error
}

func (r *BillingRepository) AddItem(ctx context.Context, it *billing.BillItem) error {
	return r.conn(ctx).Create(it).Error
}

func (r *BillingRepository) AddPayment(ctx context.Context, p *billing.Payment) error {
	return r.conn(ctx).Create(p).Error
}

func (r *BillingRepository) List(ctx context.Context, q *billing.ListBillsQuery) (*billing.PagedBills, error) {
	db := r.conn(ctx).Model(&billing.Bill{})
	if q.PatientID != nil {
		db = db.Where("patient_id = ?", *q.PatientID)
	}
	if q.Status != nil {
		db = db.Where("status = ?", *q.Status)
	}

	db, total, page, size, err := paginate(db, q.Page, q.PageSize)
	if err != nil {
		return nil, err
	}
	var out []*billing.Bill
	if err := db.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return &billing.PagedBills{
		Bills:      out,
		TotalCount: total,
		Page:       page,
		PageSize:   size,
		TotalPages: domain.TotalPages(total, size),
	}, nil
}

func (r *BillingRepository) CreateClaim(ctx context.Context, c *billing.NHIFClaim) error {
	db := r.conn(ctx)
	if c.ClaimNumber == "" {
		num, err := nextNumber(db, "billing.claim_number_seq", "NHIF")
		if err != nil {
			return err
		}
		c.ClaimNumber = num
	}
	return db.Create(c).Error
}

func (r *BillingRepository) GetClaim(ctx context.Context, id uuid.UUID) (*billing.NHIFClaim, error) {
	var c billing.NHIFClaim
	if err := r.conn(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err, billing.ErrClaimNotFound)
	}
	return &c, nil
}

func (r *BillingRepository) GetClaimForUpdate(ctx context.Context, id uuid.UUID) (*billing.NHIFClaim, error) {
	var c billing.NHIFClaim
	if err := r.conn(ctx).Clauses(forUpdate).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err, billing.ErrClaimNotFound)
	}
	return &c, nil
}

func (r *BillingRepository) SaveClaim(ctx context.Context, c *billing.NHIFClaim) error {
	return r.conn(ctx).Save(c).Error
}

func (r *BillingRepository) ListClaims(ctx context.Context, q *billing.ListClaimsQuery) (*billing.PagedClaims, error) {
	db := r.conn(ctx).Model(&billing.NHIFClaim{})
	if q.PatientID != nil {
		db = db.Where("patient_id = ?", *q.PatientID)
	}
	if q.Status != nil {
		db = db.Where("status = ?", *q.Status)
	}

	db, total, page, size, err := paginate(db, q.Page, q.PageSize)
	if err != nil {
		return nil, err
	}
	var out []*billing.NHIFClaim
	if err := db.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return &billing.PagedClaims{
		Claims:     out,
		TotalCount: total,
		Page:       page,
		PageSize:   size,
		TotalPages: domain.TotalPages(total, size),
	}, nil
}
