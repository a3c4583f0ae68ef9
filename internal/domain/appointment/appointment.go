package appointment

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type AppointmentType string

const (
	TypeConsultation   AppointmentType = "consultation"
	TypeFollowUp       AppointmentType = "follow_up"
	TypeRoutineCheckup AppointmentType = "routine_checkup"
	TypeProcedure      AppointmentType = "procedure"
	TypeAntenatal      AppointmentType = "antenatal"
	TypeImmunization   AppointmentType = "immunization"
)

func (t AppointmentType) IsValid() bool {
	switch t {
	case TypeConsultation, TypeFollowUp, TypeRoutineCheckup, TypeProcedure, TypeAntenatal, TypeImmunization:
		return true
	}
	return false
}

// State transitions:
//
//	scheduled → confirmed → in_progress → completed
//	scheduled → in_progress (walk-in check-in)
//	scheduled | confirmed → cancelled
//	confirmed → no_show
type AppointmentStatus string

const (
	StatusScheduled  AppointmentStatus = "scheduled"
	StatusConfirmed  AppointmentStatus = "confirmed"
	StatusInProgress AppointmentStatus = "in_progress"
	StatusCompleted  AppointmentStatus = "completed"
	StatusCancelled  AppointmentStatus = "cancelled"
	StatusNoShow     AppointmentStatus = "no_show"
)

var transitions = map[AppointmentStatus][]AppointmentStatus{
	StatusScheduled:  {StatusConfirmed, StatusInProgress, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusNoShow, StatusCancelled},
	StatusInProgress: {StatusCompleted},
}

const (
	MinDurationMins = 5
	MaxDurationMins = 480
)

type Appointment struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"-"`

	PatientID uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index" json:"patient_id"`
	DoctorID  uuid.UUID `gorm:"column:doctor_id;type:uuid;not null;index" json:"doctor_id"`

	ScheduledAt  time.Time         `gorm:"column:scheduled_at;not null;index" json:"scheduled_at"`
	DurationMins int               `gorm:"column:duration_mins;not null;default:30" json:"duration_mins"`
	Type         AppointmentType   `gorm:"column:type;type:varchar(50);not null;index" json:"type"`
	Status       AppointmentStatus `gorm:"column:status;type:varchar(30);not null;default:'scheduled';index" json:"status"`

	ChiefComplaint string `gorm:"column:chief_complaint;type:text" json:"chief_complaint,omitempty"`
	Notes          string `gorm:"column:notes;type:text" json:"notes,omitempty"`
	Room           string `gorm:"column:room;type:varchar(50)" json:"room,omitempty"`

	// Cancellation tracking
	CancelledAt        *time.Time `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	CancellationReason string     `gorm:"column:cancellation_reason;type:text" json:"cancellation_reason,omitempty"`
	CancelledBy        *uuid.UUID `gorm:"column:cancelled_by;type:uuid" json:"cancelled_by,omitempty"`

	CheckedInAt        *time.Time `gorm:"column:checked_in_at" json:"checked_in_at,omitempty"`
	CompletedAt        *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	ActualDurationMins *int       `gorm:"column:actual_duration_mins" json:"actual_duration_mins,omitempty"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
}

func (Appointment) TableName() string {
	return "clinical.appointments"
}

func (a *Appointment) EndsAt() time.Time {
	return a.ScheduledAt.Add(time.Duration(a.DurationMins) * time.Minute)
}

func (a *Appointment) CanTransitionTo(newStatus AppointmentStatus) bool {
	return slices.Contains(transitions[a.Status], newStatus)
}

func (a *Appointment) transition(to AppointmentStatus) error {
	if !a.CanTransitionTo(to) {
		return ErrInvalidStatusTransition
	}
	a.Status = to
	return nil
}

func (a *Appointment) Confirm() error {
	return a.transition(StatusConfirmed)
}

func (a *Appointment) CheckIn(at time.Time) error {
	if err := a.transition(StatusInProgress); err != nil {
		return err
	}
	a.CheckedInAt = &at
	return nil
}

func (a *Appointment) MarkNoShow() error {
	return a.transition(StatusNoShow)
}

func (a *Appointment) Cancel(reason string, cancelledBy uuid.UUID, at time.Time) error {
	if err := a.transition(StatusCancelled); err != nil {
		return err
	}
	a.CancelledAt = &at
	a.CancellationReason = reason
	a.CancelledBy = &cancelledBy
	return nil
}

// Complete closes the visit. Without an explicit duration the time since
// check-in is recorded.
func (a *Appointment) Complete(actualDurationMins *int, at time.Time) error {
	if err := a.transition(StatusCompleted); err != nil {
		return err
	}
	a.CompletedAt = &at
	if actualDurationMins == nil && a.CheckedInAt != nil {
		mins := int(at.Sub(*a.CheckedInAt).Minutes())
		actualDurationMins = &mins
	}
	a.ActualDurationMins = actualDurationMins
	return nil
}

// IsBooked reports whether the appointment still holds its time slot.
func (a *Appointment) IsBooked() bool {
	return a.Status != StatusCancelled && a.Status != StatusNoShow
}

type CreateAppointmentCommand struct {
	PatientID      uuid.UUID
	DoctorID       uuid.UUID
	ScheduledAt    time.Time
	DurationMins   int
	Type           AppointmentType
	ChiefComplaint string
	Notes          string
	Room           string
}

type RescheduleCommand struct {
	ScheduledAt  time.Time
	DurationMins *int
	Room         *string
}

type ListAppointmentsQuery struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    *AppointmentStatus
	Type      *AppointmentType
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
}

type PagedAppointments struct {
	Appointments []*Appointment `json:"appointments"`
	TotalCount   int64          `json:"total_count"`
	Page         int            `json:"page"`
	PageSize     int            `json:"page_size"`
	TotalPages   int            `json:"total_pages"`
}
