package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/order"
)

type OrderRepository struct {
	base
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{base{db}}
}

var closedOrder = []order.Status{order.StatusCompleted, order.StatusCancelled}

func withItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, code") })
}

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	return r.conn(ctx).Create(o).Error
}

func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	if err := withItems(r.conn(ctx)).First(&o, "id = ?", id).Error; err != nil {
		return nil, notFound(err, order.ErrOrderNotFound)
	}
	return &o, nil
}

// GetByIDForUpdate locks only the order row; items are loaded by a separate
// query and are guarded by that lock.
func (r *OrderRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	if err := withItems(r.conn(ctx)).Clauses(forUpdate).First(&o, "id = ?", id).Error; err != nil {
		return nil, notFound(err, order.ErrOrderNotFound)
	}
	return &o, nil
}

func (r *OrderRepository) Save(ctx context.Context, o *order.Order) error {
	db := r.conn(ctx)
	if err := db.Omit("Items").Save(o).Error; err != nil {
		return err
	}
	for i := range o.Items {
		if err := db.Save(&o.Items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *OrderRepository) List(ctx context.Context, q *order.ListOrdersQuery, sla order.SLA, now time.Time) (*order.PagedOrders, error) {
	db := r.conn(ctx).Model(&order.Order{})
	if q.PatientID != nil {
		db = db.Where("patient_id = ?", *q.PatientID)
	}
	if q.EncounterID != nil {
		db = db.Where("encounter_id = ?", *q.EncounterID)
	}
	if q.Type != nil {
		db = db.Where("type = ?", *q.Type)
	}
	if q.Status != nil {
		db = db.Where("status = ?", *q.Status)
	}
	if q.Priority != nil {
		db = db.Where("priority = ?", *q.Priority)
	}
	if q.OverdueOnly {
		db = db.Where("status NOT IN ?", closedOrder).
			Where(`ordered_at + (CASE priority WHEN ? THEN ?::float8 WHEN ? THEN ?::float8 ELSE ?::float8 END) * INTERVAL '1 second' < ?`,
				order.PriorityStat, sla.Stat.Seconds(),
				order.PriorityUrgent, sla.Urgent.Seconds(),
				sla.Routine.Seconds(), now)
	}

	db, total, page, size, err := paginate(db, q.Page, q.PageSize)
	if err != nil {
		return nil, err
	}
	var out []*order.Order
	if err := withItems(db).Order("ordered_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	for _, o := range out {
		o.Evaluate(sla, now)
	}
	return &order.PagedOrders{
		Orders:     out,
		TotalCount: total,
		Page:       page,
		PageSize:   size,
		TotalPages: domain.TotalPages(total, size),
	}, nil
}

func (r *OrderRepository) ListOpen(ctx context.Context) ([]*order.Order, error) {
	var out []*order.Order
	err := r.conn(ctx).Where("status NOT IN ?", closedOrder).Order("ordered_at").Find(&out).Error
	return out, err
}
