package consultation

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// SOAPNote represents the structured clinical note format.
type SOAPNote struct {
	Subjective string `json:"subjective"`
	Objective  string `json:"objective"`
	Assessment string `json:"assessment"`
	Plan       string `json:"plan"`
}

type Vitals struct {
	BloodPressureSystolic  *int     `json:"bp_systolic,omitempty"`
	BloodPressureDiastolic *int     `json:"bp_diastolic,omitempty"`
	HeartRateBPM           *int     `json:"heart_rate_bpm,omitempty"`
	TemperatureCelsius     *float64 `json:"temperature_celsius,omitempty"`
	WeightKg               *float64 `json:"weight_kg,omitempty"`
	HeightCm               *float64 `json:"height_cm,omitempty"`
	OxygenSaturation       *float64 `json:"oxygen_saturation,omitempty"`
	RespiratoryRate        *int     `json:"respiratory_rate_bpm,omitempty"`
}

// BMI returns the body mass index when weight and height are both recorded.
func (v *Vitals) BMI() *float64 {
	if v == nil || v.WeightKg == nil || v.HeightCm == nil || *v.HeightCm <= 0 {
		return nil
	}
	m := *v.HeightCm / 100
	bmi := *v.WeightKg / (m * m)
	return &bmi
}

type Diagnosis struct {
	Code        string `json:"code,omitempty"` // ICD-10
	Description string `json:"description"`
	Primary     bool   `json:"primary,omitempty"`
}

// Attachment is a document stored in the blob store (lab PDF, scan, referral letter).
type Attachment struct {
	ID          uuid.UUID `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	StorageKey  string    `json:"storage_key"`
	SizeBytes   int64     `json:"size_bytes"`
	UploadedAt  time.Time `json:"uploaded_at"`
	UploadedBy  uuid.UUID `json:"uploaded_by"`
}

// Consultation is the clinician's documentation of an encounter. It is
// editable while in progress and frozen once completed; later corrections are
// appended as addenda.
type Consultation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	EncounterID    uuid.UUID `gorm:"column:encounter_id;type:uuid;not null;index" json:"encounter_id"`
	PatientID      uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index" json:"patient_id"`
	ClinicianID    uuid.UUID `gorm:"column:clinician_id;type:uuid;not null;index" json:"clinician_id"`
	Status         Status    `gorm:"column:status;type:varchar(20);not null;default:'in_progress';index" json:"status"`
	ChiefComplaint string    `gorm:"column:chief_complaint;type:text" json:"chief_complaint,omitempty"`

	SOAPNote    *SOAPNote    `gorm:"column:soap_note;serializer:json" json:"soap_note,omitempty"`
	Vitals      *Vitals      `gorm:"column:vitals;serializer:json" json:"vitals,omitempty"`
	Diagnoses   []Diagnosis  `gorm:"column:diagnoses;serializer:json" json:"diagnoses,omitempty"`
	Attachments []Attachment `gorm:"column:attachments;serializer:json" json:"attachments,omitempty"`

	Notes       string     `gorm:"column:notes;type:text" json:"notes,omitempty"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`

	Addenda []Addendum `gorm:"foreignKey:ConsultationID" json:"addenda,omitempty"`
}

func (Consultation) TableName() string {
	return "clinical.consultations"
}

func (c *Consultation) IsEditable() bool {
	return c.Status == StatusInProgress
}

// Complete freezes the note. A primary diagnosis or an assessment is required.
func (c *Consultation) Complete(at time.Time) error {
	if c.Status != StatusInProgress {
		return ErrConsultationLocked
	}
	if len(c.Diagnoses) == 0 && (c.SOAPNote == nil || strings.TrimSpace(c.SOAPNote.Assessment) == "") {
		return ErrAssessmentRequired
	}
	c.Status = StatusCompleted
	c.CompletedAt = &at
	return nil
}

func (c *Consultation) FindAttachment(id uuid.UUID) (*Attachment, bool) {
	for i := range c.Attachments {
		if c.Attachments[i].ID == id {
			return &c.Attachments[i], true
		}
	}
	return nil, false
}

// Addendum is an append-only correction to a completed consultation.
type Addendum struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	ConsultationID uuid.UUID `gorm:"column:consultation_id;type:uuid;not null;index" json:"consultation_id"`
	Content        string    `gorm:"column:content;type:text;not null" json:"content"`
	CreatedBy      uuid.UUID `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
}

func (Addendum) TableName() string {
	return "clinical.consultation_addenda"
}

type CreateConsultationCommand struct {
	EncounterID    uuid.UUID
	ChiefComplaint string
	SOAPNote       *SOAPNote
	Vitals         *Vitals
	Diagnoses      []Diagnosis
	Notes          string
}

type UpdateConsultationCommand struct {
	ChiefComplaint *string
	SOAPNote       *SOAPNote
	Vitals         *Vitals
	Diagnoses      *[]Diagnosis
	Notes          *string
}

func (cmd *UpdateConsultationCommand) Apply(c *Consultation) {
	if cmd.ChiefComplaint != nil {
		c.ChiefComplaint = *cmd.ChiefComplaint
	}
	if cmd.SOAPNote != nil {
		c.SOAPNote = cmd.SOAPNote
	}
	if cmd.Vitals != nil {
		c.Vitals = cmd.Vitals
	}
	if cmd.Diagnoses != nil {
		c.Diagnoses = *cmd.Diagnoses
	}
	if cmd.Notes != nil {
		c.Notes = *cmd.Notes
	}
}

type ListConsultationsQuery struct {
	PatientID   *uuid.UUID
	EncounterID *uuid.UUID
	ClinicianID *uuid.UUID
	DateFrom    *time.Time
	DateTo      *time.Time
	Page        int
	PageSize    int
}

type PagedConsultations struct {
	Consultations []*Consultation `json:"consultations"`
	TotalCount    int64           `json:"total_count"`
	Page          int             `json:"page"`
	PageSize      int             `json:"page_size"`
	TotalPages    int             `json:"total_pages"`
}
