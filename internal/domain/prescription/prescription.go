package prescription

import (
	"time"

	"github.com/google/uuid"
)

type PrescriptionStatus string

const (
	StatusActive             PrescriptionStatus = "active"
	StatusPartiallyDispensed PrescriptionStatus = "partially_dispensed"
	StatusDispensed          PrescriptionStatus = "dispensed"
	StatusCancelled          PrescriptionStatus = "cancelled"
	StatusExpired            PrescriptionStatus = "expired"
)

type RouteOfAdministration string

const (
	RouteOral          RouteOfAdministration = "oral"
	RouteIntravenous   RouteOfAdministration = "intravenous"
	RouteIntramuscular RouteOfAdministration = "intramuscular"
	RouteTopical       RouteOfAdministration = "topical"
	RouteInhaled       RouteOfAdministration = "inhaled"
	RouteSublingual    RouteOfAdministration = "sublingual"
	RouteRectal        RouteOfAdministration = "rectal"
)

func (r RouteOfAdministration) IsValid() bool {
	switch r {
	case RouteOral, RouteIntravenous, RouteIntramuscular, RouteTopical, RouteInhaled, RouteSublingual, RouteRectal:
		return true
	}
	return false
}

// Prescription locks the quantity the doctor ordered. The pharmacy may only
// dispense exactly the remaining quantity unless a doctor has approved a
// DispenseException.
type Prescription struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	PatientID    uuid.UUID  `gorm:"column:patient_id;type:uuid;not null;index" json:"patient_id"`
	DoctorID     uuid.UUID  `gorm:"column:doctor_id;type:uuid;not null;index" json:"doctor_id"`
	EncounterID  *uuid.UUID `gorm:"column:encounter_id;type:uuid;index" json:"encounter_id,omitempty"`
	MedicationID uuid.UUID  `gorm:"column:medication_id;type:uuid;not null;index" json:"medication_id"`

	Dosage       string                `gorm:"column:dosage;type:varchar(50);not null" json:"dosage"`        // e.g. "500mg"
	Frequency    string                `gorm:"column:frequency;type:varchar(100);not null" json:"frequency"` // e.g. "twice daily"
	Route        RouteOfAdministration `gorm:"column:route;type:varchar(30);not null" json:"route"`
	DurationDays int                   `gorm:"column:duration_days" json:"duration_days,omitempty"`

	Quantity          int `gorm:"column:quantity;not null" json:"quantity"`
	QuantityDispensed int `gorm:"column:quantity_dispensed;not null;default:0" json:"quantity_dispensed"`
	RefillsAllowed    int `gorm:"column:refills_allowed;default:0" json:"refills_allowed"`
	RefillsUsed       int `gorm:"column:refills_used;default:0" json:"refills_used"`

	IssuedAt  time.Time `gorm:"column:issued_at;not null;index" json:"issued_at"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null;index" json:"expires_at"`

	Status PrescriptionStatus `gorm:"column:status;type:varchar(30);not null;default:'active';index" json:"status"`

	Instructions string `gorm:"column:instructions;type:text" json:"instructions,omitempty"`
}

func (Prescription) TableName() string {
	return "clinical.prescriptions"
}

func (p *Prescription) Remaining() int {
	return p.Quantity - p.QuantityDispensed
}

func (p *Prescription) IsExpired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// CheckDispensable reports why nothing can be dispensed right now, if anything.
func (p *Prescription) CheckDispensable(now time.Time) error {
	switch p.Status {
	case StatusActive, StatusPartiallyDispensed:
	default:
		return ErrNotDispensable
	}
	if p.IsExpired(now) {
		return ErrPrescriptionExpired
	}
	return nil
}

// AllowedQuantity is the only quantity the pharmacy may hand out next.
func (p *Prescription) AllowedQuantity(ex *DispenseException) int {
	if ex != nil && ex.Status == ExceptionApproved {
		return ex.RequestedQuantity
	}
	return p.Remaining()
}

// RecordDispense updates the counters after qty units were handed out.
// A quantity change closes the prescription regardless of what was ordered;
// a partial dispense keeps the remainder open.
func (p *Prescription) RecordDispense(qty int, ex *DispenseException) {
	p.QuantityDispensed += qty
	if ex != nil && ex.Type == ExceptionQuantityChange {
		p.Status = StatusDispensed
		return
	}
	if p.QuantityDispensed >= p.Quantity {
		p.Status = StatusDispensed
		return
	}
	p.Status = StatusPartiallyDispensed
}

func (p *Prescription) Cancel() error {
	switch p.Status {
	case StatusActive, StatusPartiallyDispensed:
		p.Status = StatusCancelled
		return nil
	}
	return ErrNotCancellable
}

func (p *Prescription) IsRefillable(now time.Time) bool {
	return p.Status == StatusDispensed &&
		p.RefillsUsed < p.RefillsAllowed &&
		!p.IsExpired(now)
}

// Refill reopens a fully dispensed prescription for another round.
func (p *Prescription) Refill(now time.Time) error {
	if !p.IsRefillable(now) {
		return ErrNotRefillable
	}
	p.RefillsUsed++
	p.QuantityDispensed = 0
	p.Status = StatusActive
	return nil
}

type ExceptionType string

const (
	ExceptionQuantityChange ExceptionType = "quantity_change"
	ExceptionPartial        ExceptionType = "partial_dispense"
)

func (t ExceptionType) IsValid() bool {
	return t == ExceptionQuantityChange || t == ExceptionPartial
}

type ExceptionStatus string

const (
	ExceptionPending  ExceptionStatus = "pending"
	ExceptionApproved ExceptionStatus = "approved"
	ExceptionRejected ExceptionStatus = "rejected"
	ExceptionApplied  ExceptionStatus = "applied"
	ExceptionVoid     ExceptionStatus = "void"
)

// DispenseException is a request to hand out something other than the
// remaining locked quantity.
type DispenseException struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	PrescriptionID    uuid.UUID       `gorm:"column:prescription_id;type:uuid;not null;index" json:"prescription_id"`
	Type              ExceptionType   `gorm:"column:type;type:varchar(30);not null" json:"type"`
	RequestedQuantity int             `gorm:"column:requested_quantity;not null" json:"requested_quantity"`
	OriginalRemaining int             `gorm:"column:original_remaining;not null" json:"original_remaining"`
	Reason            string          `gorm:"column:reason;type:text;not null" json:"reason"`
	Status            ExceptionStatus `gorm:"column:status;type:varchar(20);not null;default:'pending';index" json:"status"`

	RequestedBy uuid.UUID  `gorm:"column:requested_by;type:uuid;not null" json:"requested_by"`
	ReviewedBy  *uuid.UUID `gorm:"column:reviewed_by;type:uuid" json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
	ReviewNote  string     `gorm:"column:review_note;type:text" json:"review_note,omitempty"`
	AppliedAt   *time.Time `gorm:"column:applied_at" json:"applied_at,omitempty"`
}

func (DispenseException) TableName() string {
	return "pharmacy.dispense_exceptions"
}

// IsOpen reports whether the exception still blocks a new request.
func (e *DispenseException) IsOpen() bool {
	return e.Status == ExceptionPending || e.Status == ExceptionApproved
}

func (e *DispenseException) Review(approve bool, by uuid.UUID, note string, at time.Time) error {
	if e.Status != ExceptionPending {
		return ErrExceptionNotPending
	}
	e.Status = ExceptionRejected
	if approve {
		e.Status = ExceptionApproved
	}
	e.ReviewedBy = &by
	e.ReviewedAt = &at
	e.ReviewNote = note
	return nil
}

func (e *DispenseException) Apply(at time.Time) {
	e.Status = ExceptionApplied
	e.AppliedAt = &at
}

// ValidateRequest checks a requested quantity against what is still owed.
func ValidateRequest(t ExceptionType, requested, remaining int) error {
	if !t.IsValid() {
		return ErrInvalidExceptionType
	}
	if requested <= 0 {
		return ErrInvalidQuantity
	}
	switch t {
	case ExceptionPartial:
		if requested >= remaining {
			return ErrPartialNotLess
		}
	case ExceptionQuantityChange:
		if requested == remaining {
			return ErrQuantityUnchanged
		}
	}
	return nil
}

type CreatePrescriptionCommand struct {
	PatientID      uuid.UUID
	EncounterID    *uuid.UUID
	MedicationID   uuid.UUID
	Dosage         string
	Frequency      string
	Route          RouteOfAdministration
	DurationDays   int
	Quantity       int
	RefillsAllowed int
	IssuedAt       *time.Time
	ExpiresAt      *time.Time
	Instructions   string
}

type RequestExceptionCommand struct {
	PrescriptionID    uuid.UUID
	Type              ExceptionType
	RequestedQuantity int
	Reason            string
}

type ReviewExceptionCommand struct {
	ExceptionID uuid.UUID
	Approve     bool
	Note        string
}

type DispenseCommand struct {
	PrescriptionID uuid.UUID
	Quantity       int
}

type ListPrescriptionsQuery struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    *PrescriptionStatus
	Page      int
	PageSize  int
}

type PagedPrescriptions struct {
	Prescriptions []*Prescription `json:"prescriptions"`
	TotalCount    int64           `json:"total_count"`
	Page          int             `json:"page"`
	PageSize      int             `json:"page_size"`
	TotalPages    int             `json:"total_pages"`
}
