package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderOther   Gender = "other"
	GenderUnknown Gender = "unknown"
)

func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther, GenderUnknown:
		return true
	}
	return false
}

type BloodType string

const (
	BloodTypeAPos    BloodType = "A+"
	BloodTypeANeg    BloodType = "A-"
	BloodTypeBPos    BloodType = "B+"
	BloodTypeBNeg    BloodType = "B-"
	BloodTypeABPos   BloodType = "AB+"
	BloodTypeABNeg   BloodType = "AB-"
	BloodTypeOPos    BloodType = "O+"
	BloodTypeONeg    BloodType = "O-"
	BloodTypeUnknown BloodType = "unknown"
)

// Status represents the lifecycle state of a patient record.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusDeceased Status = "deceased"
	StatusMerged   Status = "merged"
)

type ContactInfo struct {
	Phone   string `gorm:"column:phone;type:varchar(20);index" json:"phone"`
	Email   string `gorm:"column:email;type:varchar(255)" json:"email,omitempty"`
	Address string `gorm:"column:address;type:text" json:"address,omitempty"`
	Town    string `gorm:"column:town;type:varchar(100)" json:"town,omitempty"`
	County  string `gorm:"column:county;type:varchar(100)" json:"county,omitempty"`
}

type EmergencyContact struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Phone        string `json:"phone"`
}

type Patient struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"-"` // Soft Delete

	PatientNumber string    `gorm:"column:patient_number;type:varchar(20);uniqueIndex;not null" json:"patient_number"`
	FirstName     string    `gorm:"column:first_name;type:varchar(100);not null" json:"first_name"`
	MiddleName    string    `gorm:"column:middle_name;type:varchar(100)" json:"middle_name,omitempty"`
	LastName      string    `gorm:"column:last_name;type:varchar(100);not null" json:"last_name"`
	DateOfBirth   time.Time `gorm:"column:date_of_birth;type:date;not null;index" json:"date_of_birth"`
	Gender        Gender    `gorm:"column:gender;type:varchar(20);not null" json:"gender"`
	BloodType     BloodType `gorm:"column:blood_type;type:varchar(8)" json:"blood_type,omitempty"`
	NationalID    string    `gorm:"column:national_id;type:varchar(50);index" json:"national_id,omitempty"`
	NHIFNumber    string    `gorm:"column:nhif_number;type:varchar(50);index" json:"nhif_number,omitempty"`

	ContactInfo

	EmergencyContact *EmergencyContact `gorm:"column:emergency_contact;serializer:json" json:"emergency_contact,omitempty"`
	Allergies        []string          `gorm:"column:allergies;serializer:json" json:"allergies,omitempty"`

	Status       Status     `gorm:"column:status;type:varchar(20);default:'active';index" json:"status"`
	MergedIntoID *uuid.UUID `gorm:"column:merged_into_id;type:uuid;index" json:"merged_into_id,omitempty"`
	Notes        string     `gorm:"column:notes;type:text" json:"notes,omitempty"` // PHI

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
}

func (Patient) TableName() string {
	return "clinical.patients"
}

func (p *Patient) FullName() string {
	return strings.Join(strings.Fields(p.FirstName+" "+p.MiddleName+" "+p.LastName), " ")
}

func (p *Patient) Age(now time.Time) int {
	years := now.Year() - p.DateOfBirth.Year()
	if now.Month() < p.DateOfBirth.Month() ||
		(now.Month() == p.DateOfBirth.Month() && now.Day() < p.DateOfBirth.Day()) {
		years--
	}
	return years
}

func (p *Patient) IsActive() bool {
	return p.Status == StatusActive && p.DeletedAt == nil
}

// CheckUsable returns the reason a patient record cannot take new clinical
// activity, or nil.
func (p *Patient) CheckUsable() error {
	switch p.Status {
	case StatusMerged:
		return ErrPatientMerged
	case StatusDeceased:
		return ErrPatientDeceased
	case StatusActive:
		if p.DeletedAt == nil {
			return nil
		}
	}
	return ErrPatientInactive
}

func (p *Patient) Deactivate() error {
	switch p.Status {
	case StatusDeceased:
		return ErrPatientDeceased
	case StatusMerged:
		return ErrPatientMerged
	}
	p.Status = StatusInactive
	return nil
}

func (p *Patient) MarkDeceased() error {
	if p.Status == StatusMerged {
		return ErrPatientMerged
	}
	p.Status = StatusDeceased
	return nil
}

// MergeInto retires p as a duplicate of target.
func (p *Patient) MergeInto(target uuid.UUID) error {
	if p.Status == StatusMerged {
		return ErrPatientMerged
	}
	if p.ID == target {
		return ErrMergeSamePatient
	}
	p.Status = StatusMerged
	p.MergedIntoID = &target
	return nil
}

// AbsorbIdentifiers copies identifiers the target lacks from a duplicate
// record being merged into it.
func (p *Patient) AbsorbIdentifiers(src *Patient) {
	if p.NationalID == "" {
		p.NationalID = src.NationalID
	}
	if p.NHIFNumber == "" {
		p.NHIFNumber = src.NHIFNumber
	}
	if p.Phone == "" {
		p.Phone = src.Phone
	}
	if p.Email == "" {
		p.Email = src.Email
	}
	if p.BloodType == "" || p.BloodType == BloodTypeUnknown {
		p.BloodType = src.BloodType
	}
	seen := make(map[string]bool, len(p.Allergies))
	for _, a := range p.Allergies {
		seen[strings.ToLower(a)] = true
	}
	for _, a := range src.Allergies {
		if !seen[strings.ToLower(a)] {
			p.Allergies = append(p.Allergies, a)
			seen[strings.ToLower(a)] = true
		}
	}
}

// MergeLog records a completed merge of a duplicate record.
type MergeLog struct {
	ID         uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt  time.Time        `gorm:"autoCreateTime" json:"created_at"`
	SourceID   uuid.UUID        `gorm:"column:source_id;type:uuid;not null;index" json:"source_id"`
	TargetID   uuid.UUID        `gorm:"column:target_id;type:uuid;not null;index" json:"target_id"`
	Reassigned map[string]int64 `gorm:"column:reassigned;serializer:json" json:"reassigned"`
	Reason     string           `gorm:"column:reason;type:text" json:"reason,omitempty"`
	MergedBy   uuid.UUID        `gorm:"column:merged_by;type:uuid;not null" json:"merged_by"`
}

func (MergeLog) TableName() string {
	return "clinical.patient_merge_logs"
}

type MergeCommand struct {
	SourceID uuid.UUID
	TargetID uuid.UUID
	Reason   string
}

type MergeResult struct {
	Source     *Patient         `json:"source"`
	Target     *Patient         `json:"target"`
	Reassigned map[string]int64 `json:"reassigned"`
}

type CreatePatientCommand struct {
	FirstName        string
	MiddleName       string
	LastName         string
	DateOfBirth      time.Time
	Gender           Gender
	BloodType        BloodType
	NationalID       string
	NHIFNumber       string
	Phone            string
	Email            string
	Address          string
	Town             string
	County           string
	EmergencyContact *EmergencyContact
	Allergies        []string
	Notes            string
	// Force registers the patient even when likely duplicates exist.
	Force     bool
	CreatedBy uuid.UUID
}

type UpdatePatientCommand struct {
	FirstName        *string
	MiddleName       *string
	LastName         *string
	Gender           *Gender
	BloodType        *BloodType
	NationalID       *string
	NHIFNumber       *string
	Phone            *string
	Email            *string
	Address          *string
	Town             *string
	County           *string
	EmergencyContact *EmergencyContact
	Allergies        *[]string
	Notes            *string
}

// Apply copies the set fields of cmd onto p.
func (cmd *UpdatePatientCommand) Apply(p *Patient) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&p.FirstName, cmd.FirstName)
	set(&p.MiddleName, cmd.MiddleName)
	set(&p.LastName, cmd.LastName)
	set(&p.NationalID, cmd.NationalID)
	set(&p.NHIFNumber, cmd.NHIFNumber)
	set(&p.Email, cmd.Email)
	set(&p.Address, cmd.Address)
	set(&p.Town, cmd.Town)
	set(&p.County, cmd.County)
	set(&p.Notes, cmd.Notes)
	if cmd.Phone != nil {
		p.Phone = NormalizePhone(*cmd.Phone)
	}
	if cmd.Gender != nil {
		p.Gender = *cmd.Gender
	}
	if cmd.BloodType != nil {
		p.BloodType = *cmd.BloodType
	}
	if cmd.EmergencyContact != nil {
		p.EmergencyContact = cmd.EmergencyContact
	}
	if cmd.Allergies != nil {
		p.Allergies = *cmd.Allergies
	}
}

// ListPatientsQuery defines filtering and pagination for patient list queries.
type ListPatientsQuery struct {
	Search   string // name, patient number or phone
	Status   *Status
	Page     int
	PageSize int
}

type PagedPatients struct {
	Patients   []*Patient `json:"patients"`
	TotalCount int64      `json:"total_count"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
}
