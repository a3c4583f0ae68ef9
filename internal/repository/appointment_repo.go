package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/appointment"
)

type AppointmentRepository struct {
	base
}

func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{base{db}}
}

func (r *AppointmentRepository) Create(ctx context.Context, a *appointment.Appointment) error {
	return r.conn(ctx).Create(a).Error
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var a appointment.Appointment
	if err := r.conn(ctx).Where("deleted_at IS NULL").First(&a, "id = ?", id).Error; err != nil {
		return nil, notFound(err, appointment.ErrAppointmentNotFound)
	}
	return &a, nil
}

func (r *AppointmentRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var a appointment.Appointment
	if err := r.conn(ctx).Clauses(forUpdate).Where("deleted_at IS NULL").First(&a, "id = ?", id).Error; err != nil {
		return nil, notFound(err, appointment.ErrAppointmentNotFound)
	}
	return &a, nil
}

func (r *AppointmentRepository) Save(ctx context.Context, a *appointment.Appointment) error {
	return r.conn(ctx).Save(a).Error
}

func (r *AppointmentRepository) List(ctx context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error) {
	db := r.conn(ctx).Model(&appointment.Appointment{}).Where("deleted_at IS NULL")
	if q.PatientID != nil {
		db = db.Where("patient_id = ?", *q.PatientID)
	}
	if q.DoctorID != nil {
		db = db.Where("doctor_id = ?", *q.DoctorID)
	}
	if q.Status != nil {
		db = db.Where("status = ?", *q.Status)
	}
	if q.Type != nil {
		db = db.Where("type = ?", *q.Type)
	}
	if q.DateFrom != nil {
		db = db.Where("scheduled_at >= ?", *q.DateFrom)
	}
	if q.DateTo != nil {
		db = db.Where("scheduled_at < ?", *q.DateTo)
	}

	db, total, page, size, err := paginate(db, q.Page, q.PageSize)
	if err != nil {
		return nil, err
	}
	var out []*appointment.Appointment
	if err := db.Order("scheduled_at").Find(&out).Error; err != nil {
		return nil, err
	}
	return &appointment.PagedAppointments{
		Appointments: out,
		TotalCount:   total,
		Page:         page,
		PageSize:     size,
		TotalPages:   domain.TotalPages(total, size),
	}, nil
}

// HasConflict treats [start, end) intervals as overlapping when each starts
// before the other ends. Cancelled and no-show bookings free their slot.
func (r *AppointmentRepository) HasConflict(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	db := r.conn(ctx).Model(&appointment.Appointment{}).
		Where("doctor_id = ? AND deleted_at IS NULL", doctorID).
		Where("status NOT IN ?", []appointment.AppointmentStatus{appointment.StatusCancelled, appointment.StatusNoShow}).
		Where("scheduled_at < ?", end).
		Where("scheduled_at + (duration_mins * INTERVAL '1 minute') > ?", start)
	if excludeID != nil {
		db = db.Where("id <> ?", *excludeID)
	}
	var n int64
	if err := db.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
