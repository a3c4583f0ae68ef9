package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
)

// AuditRepository never joins the caller's transaction: audit rows are
// written by the background worker after the request has returned.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// CreateBatch inserts entries in chunks of 100.
func (r *AuditRepository) CreateBatch(ctx context.Context, entries []*domain.AuditLog) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(entries, 100).Error
}
