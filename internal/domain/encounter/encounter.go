package encounter

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
)

type Class string

const (
	ClassOutpatient Class = "outpatient"
	ClassInpatient  Class = "inpatient"
	ClassEmergency  Class = "emergency"
)

func (c Class) IsValid() bool {
	switch c {
	case ClassOutpatient, ClassInpatient, ClassEmergency:
		return true
	}
	return false
}

// Status transitions:
//
//	scheduled → in_progress → completed
//	scheduled | in_progress → cancelled
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusScheduled:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

// Encounter is one episode of care linking a patient to a visit or a stay.
type Encounter struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	PatientID     uuid.UUID  `gorm:"column:patient_id;type:uuid;not null;index" json:"patient_id"`
	AppointmentID *uuid.UUID `gorm:"column:appointment_id;type:uuid;index" json:"appointment_id,omitempty"`
	AdmissionID   *uuid.UUID `gorm:"column:admission_id;type:uuid;index" json:"admission_id,omitempty"`

	Class       Class      `gorm:"column:class;type:varchar(20);not null;index" json:"class"`
	Status      Status     `gorm:"column:status;type:varchar(20);not null;default:'scheduled';index" json:"status"`
	AttendingID *uuid.UUID `gorm:"column:attending_id;type:uuid;index" json:"attending_id,omitempty"`
	Department  string     `gorm:"column:department;type:varchar(100)" json:"department,omitempty"`
	Reason      string     `gorm:"column:reason;type:text" json:"reason,omitempty"`

	StartedAt *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	EndedAt   *time.Time `gorm:"column:ended_at" json:"ended_at,omitempty"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
}

func (Encounter) TableName() string {
	return "clinical.encounters"
}

func (e *Encounter) CanTransitionTo(to Status) bool {
	return slices.Contains(transitions[e.Status], to)
}

func (e *Encounter) Start(at time.Time) error {
	if !e.CanTransitionTo(StatusInProgress) {
		return ErrInvalidStatusTransition
	}
	e.Status = StatusInProgress
	e.StartedAt = &at
	return nil
}

func (e *Encounter) Complete(at time.Time) error {
	if !e.CanTransitionTo(StatusCompleted) {
		return ErrInvalidStatusTransition
	}
	e.Status = StatusCompleted
	e.EndedAt = &at
	return nil
}

func (e *Encounter) Cancel(at time.Time) error {
	if !e.CanTransitionTo(StatusCancelled) {
		return ErrInvalidStatusTransition
	}
	e.Status = StatusCancelled
	e.EndedAt = &at
	return nil
}

func (e *Encounter) IsOpen() bool {
	return e.Status == StatusScheduled || e.Status == StatusInProgress
}

type CreateEncounterCommand struct {
	PatientID     uuid.UUID
	AppointmentID *uuid.UUID
	Class         Class
	AttendingID   *uuid.UUID
	Department    string
	Reason        string
	// StartNow opens the encounter in_progress immediately.
	StartNow bool
}

type ListEncountersQuery struct {
	PatientID *uuid.UUID
	Status    *Status
	Class     *Class
	Page      int
	PageSize  int
}

type PagedEncounters struct {
	Encounters []*Encounter `json:"encounters"`
	TotalCount int64        `json:"total_count"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalPages int          `json:"total_pages"`
}

type Repository interface {
	Create(ctx context.Context, e *Encounter) error
	GetByID(ctx context.Context, id uuid.UUID) (*Encounter, error)
	Save(ctx context.Context, e *Encounter) error
	List(ctx context.Context, q *ListEncountersQuery) (*PagedEncounters, error)
}
