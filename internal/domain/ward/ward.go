package ward

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
)

type WardType string

const (
	WardGeneral    WardType = "general"
	WardMaternity  WardType = "maternity"
	WardPaediatric WardType = "paediatric"
	WardSurgical   WardType = "surgical"
	WardICU        WardType = "icu"
	WardPrivate    WardType = "private"
	WardIsolation  WardType = "isolation"
)

func (t WardType) IsValid() bool {
	switch t {
	case WardGeneral, WardMaternity, WardPaediatric, WardSurgical, WardICU, WardPrivate, WardIsolation:
		return true
	}
	return false
}

// GenderRestriction limits which patients a ward accepts. Empty means mixed.
type GenderRestriction string

const (
	GenderAny    GenderRestriction = ""
	GenderMale   GenderRestriction = "male"
	GenderFemale GenderRestriction = "female"
)

type Ward struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Code              string            `gorm:"column:code;type:varchar(20);uniqueIndex;not null" json:"code"`
	Name              string            `gorm:"column:name;type:varchar(100);not null" json:"name"`
	Type              WardType          `gorm:"column:type;type:varchar(30);not null" json:"type"`
	GenderRestriction GenderRestriction `gorm:"column:gender_restriction;type:varchar(10)" json:"gender_restriction,omitempty"`
	DailyRate         domain.Money      `gorm:"column:daily_rate;not null;default:0" json:"daily_rate"`
	Floor             string            `gorm:"column:floor;type:varchar(20)" json:"floor,omitempty"`
	IsActive          bool              `gorm:"column:is_active;not null;default:true" json:"is_active"`
}

func (Ward) TableName() string {
	return "clinical.wards"
}

// Accepts reports whether a patient of the given gender may be placed here.
func (w *Ward) Accepts(gender string) bool {
	return w.GenderRestriction == GenderAny || string(w.GenderRestriction) == gender
}

type BedStatus string

const (
	BedAvailable   BedStatus = "available"
	BedOccupied    BedStatus = "occupied"
	BedReserved    BedStatus = "reserved"
	BedMaintenance BedStatus = "maintenance"
	BedCleaning    BedStatus = "cleaning"
)

func (s BedStatus) IsValid() bool {
	switch s {
	case BedAvailable, BedOccupied, BedReserved, BedMaintenance, BedCleaning:
		return true
	}
	return false
}

type Bed struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	WardID    uuid.UUID `gorm:"column:ward_id;type:uuid;not null;uniqueIndex:idx_ward_bed_number" json:"ward_id"`
	BedNumber string    `gorm:"column:bed_number;type:varchar(20);not null;uniqueIndex:idx_ward_bed_number" json:"bed_number"`
	Status    BedStatus `gorm:"column:status;type:varchar(20);not null;default:'available';index" json:"status"`

	CurrentPatientID   *uuid.UUID `gorm:"column:current_patient_id;type:uuid;index" json:"current_patient_id,omitempty"`
	CurrentAdmissionID *uuid.UUID `gorm:"column:current_admission_id;type:uuid" json:"current_admission_id,omitempty"`
	OccupiedSince      *time.Time `gorm:"column:occupied_since" json:"occupied_since,omitempty"`
	Notes              string     `gorm:"column:notes;type:text" json:"notes,omitempty"`
}

func (Bed) TableName() string {
	return "clinical.beds"
}

func (b *Bed) IsAvailable() bool {
	return b.Status == BedAvailable
}

// Occupy places a patient in an available bed.
func (b *Bed) Occupy(patientID uuid.UUID, admissionID *uuid.UUID, at time.Time) error {
	if b.Status != BedAvailable {
		return ErrBedUnavailable
	}
	b.Status = BedOccupied
	b.CurrentPatientID = &patientID
	b.CurrentAdmissionID = admissionID
	b.OccupiedSince = &at
	return nil
}

// Vacate clears the occupant and sends the bed to cleaning.
func (b *Bed) Vacate() error {
	if b.Status != BedOccupied {
		return ErrBedNotOccupied
	}
	b.Status = BedCleaning
	b.CurrentPatientID = nil
	b.CurrentAdmissionID = nil
	b.OccupiedSince = nil
	return nil
}

// SetStatus moves an unoccupied bed between the housekeeping states.
func (b *Bed) SetStatus(s BedStatus) error {
	if !s.IsValid() || s == BedOccupied {
		return ErrInvalidBedStatus
	}
	if b.Status == BedOccupied {
		return ErrBedOccupied
	}
	b.Status = s
	return nil
}

type AdmissionStatus string

const (
	AdmissionAdmitted   AdmissionStatus = "admitted"
	AdmissionDischarged AdmissionStatus = "discharged"
)

type Disposition string

const (
	DispositionHome     Disposition = "home"
	DispositionReferred Disposition = "referred"
	DispositionAMA      Disposition = "against_medical_advice"
	DispositionDeceased Disposition = "deceased"
)

func (d Disposition) IsValid() bool {
	switch d {
	case DispositionHome, DispositionReferred, DispositionAMA, DispositionDeceased:
		return true
	}
	return false
}

type Admission struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	PatientID   uuid.UUID       `gorm:"column:patient_id;type:uuid;not null;index" json:"patient_id"`
	EncounterID uuid.UUID       `gorm:"column:encounter_id;type:uuid;not null;index" json:"encounter_id"`
	WardID      uuid.UUID       `gorm:"column:ward_id;type:uuid;not null;index" json:"ward_id"`
	BedID       uuid.UUID       `gorm:"column:bed_id;type:uuid;not null;index" json:"bed_id"`
	DoctorID    uuid.UUID       `gorm:"column:admitting_doctor_id;type:uuid;not null" json:"admitting_doctor_id"`
	Status      AdmissionStatus `gorm:"column:status;type:varchar(20);not null;default:'admitted';index" json:"status"`

	AdmittedAt   time.Time  `gorm:"column:admitted_at;not null;index" json:"admitted_at"`
	DischargedAt *time.Time `gorm:"column:discharged_at" json:"discharged_at,omitempty"`

	Diagnosis        string      `gorm:"column:diagnosis;type:text" json:"diagnosis,omitempty"`
	DischargeSummary string      `gorm:"column:discharge_summary;type:text" json:"discharge_summary,omitempty"`
	Disposition      Disposition `gorm:"column:disposition;type:varchar(30)" json:"disposition,omitempty"`
	DischargedBy     *uuid.UUID  `gorm:"column:discharged_by;type:uuid" json:"discharged_by,omitempty"`
	CreatedBy        uuid.UUID   `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
}

func (Admission) TableName() string {
	return "clinical.admissions"
}

func (a *Admission) IsOpen() bool {
	return a.Status == AdmissionAdmitted
}

// Discharge closes the admission.
func (a *Admission) Discharge(summary string, disp Disposition, by uuid.UUID, at time.Time) error {
	if a.Status != AdmissionAdmitted {
		return ErrAdmissionClosed
	}
	a.Status = AdmissionDischarged
	a.DischargedAt = &at
	a.DischargeSummary = summary
	a.Disposition = disp
	a.DischargedBy = &by
	return nil
}

// BedDays returns the number of chargeable days, counting any part day as a
// full day and never less than one.
func BedDays(from, to time.Time) int {
	days := int(math.Ceil(to.Sub(from).Hours() / 24))
	return max(days, 1)
}

type BedTransfer struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	AdmissionID uuid.UUID `gorm:"column:admission_id;type:uuid;not null;index" json:"admission_id"`
	FromBedID   uuid.UUID `gorm:"column:from_bed_id;type:uuid;not null" json:"from_bed_id"`
	ToBedID     uuid.UUID `gorm:"column:to_bed_id;type:uuid;not null" json:"to_bed_id"`
	Reason      string    `gorm:"column:reason;type:text" json:"reason,omitempty"`
	TransferBy  uuid.UUID `gorm:"column:transferred_by;type:uuid;not null" json:"transferred_by"`
	TransferAt  time.Time `gorm:"column:transferred_at;not null" json:"transferred_at"`
}

func (BedTransfer) TableName() string {
	return "clinical.bed_transfers"
}

// Occupancy summarizes the beds of a ward.
type Occupancy struct {
	WardID   uuid.UUID         `json:"ward_id"`
	WardCode string            `json:"ward_code"`
	WardName string            `json:"ward_name"`
	Total    int               `json:"total"`
	ByStatus map[BedStatus]int `json:"by_status"`
	Rate     float64           `json:"occupancy_rate"`
}

// Summarize counts beds by status. Rate is occupied over total.
func Summarize(w *Ward, beds []*Bed) Occupancy {
	o := Occupancy{
		WardID:   w.ID,
		WardCode: w.Code,
		WardName: w.Name,
		ByStatus: map[BedStatus]int{
			BedAvailable: 0, BedOccupied: 0, BedReserved: 0, BedMaintenance: 0, BedCleaning: 0,
		},
	}
	for _, b := range beds {
		o.Total++
		o.ByStatus[b.Status]++
	}
	if o.Total > 0 {
		o.Rate = float64(o.ByStatus[BedOccupied]) / float64(o.Total)
	}
	return o
}

type CreateWardCommand struct {
	Code              string
	Name              string
	Type              WardType
	GenderRestriction GenderRestriction
	DailyRate         domain.Money
	Floor             string
}

type CreateBedCommand struct {
	WardID    uuid.UUID
	BedNumber string
	Notes     string
}

type AdmitCommand struct {
	PatientID uuid.UUID
	BedID     uuid.UUID
	DoctorID  uuid.UUID
	Diagnosis string
	Reason    string
}

type TransferCommand struct {
	AdmissionID uuid.UUID
	ToBedID     uuid.UUID
	Reason      string
}

type DischargeCommand struct {
	AdmissionID uuid.UUID
	Summary     string
	Disposition Disposition
}

type ListBedsQuery struct {
	WardID *uuid.UUID
	Status *BedStatus
}

type ListAdmissionsQuery struct {
	PatientID *uuid.UUID
	WardID    *uuid.UUID
	Status    *AdmissionStatus
	Page      int
	PageSize  int
}

type PagedAdmissions struct {
	Admissions []*Admission `json:"admissions"`
	TotalCount int64        `json:"total_count"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalPages int          `json:"total_pages"`
}
