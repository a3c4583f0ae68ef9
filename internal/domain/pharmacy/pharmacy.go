package pharmacy

import (
	"time"

	"github.com/google/uuid"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
)

type DosageForm string

const (
	FormTablet     DosageForm = "tablet"
	FormCapsule    DosageForm = "capsule"
	FormSyrup      DosageForm = "syrup"
	FormInjection  DosageForm = "injection"
	FormCream      DosageForm = "cream"
	FormInhaler    DosageForm = "inhaler"
	FormSuspension DosageForm = "suspension"
	FormDrops      DosageForm = "drops"
)

func (f DosageForm) IsValid() bool {
	switch f {
	case FormTablet, FormCapsule, FormSyrup, FormInjection, FormCream, FormInhaler, FormSuspension, FormDrops:
		return true
	}
	return false
}

type Medication struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Name                 string       `gorm:"column:name;type:varchar(255);not null;index" json:"name"`
	GenericName          string       `gorm:"column:generic_name;type:varchar(255);index" json:"generic_name,omitempty"`
	Form                 DosageForm   `gorm:"column:form;type:varchar(30);not null" json:"form"`
	Strength             string       `gorm:"column:strength;type:varchar(50)" json:"strength,omitempty"` // e.g. "500mg"
	Unit                 string       `gorm:"column:unit;type:varchar(20);not null" json:"unit"`
	UnitPrice            domain.Money `gorm:"column:unit_price;not null" json:"unit_price"`
	StockQuantity        int          `gorm:"column:stock_quantity;not null;default:0" json:"stock_quantity"`
	ReorderLevel         int          `gorm:"column:reorder_level;not null;default:0" json:"reorder_level"`
	RequiresPrescription bool         `gorm:"column:requires_prescription;not null;default:true" json:"requires_prescription"`
	Taxable              bool         `gorm:"column:taxable;not null;default:false" json:"taxable"`
	IsActive             bool         `gorm:"column:is_active;not null;default:true;index" json:"is_active"`
}

func (Medication) TableName() string {
	return "pharmacy.medications"
}

func (m *Medication) IsLowStock() bool {
	return m.StockQuantity <= m.ReorderLevel
}

// Move applies a signed stock delta and returns the ledger row for it.
// Stock never goes below zero.
func (m *Medication) Move(delta int, reason MovementReason, ref *uuid.UUID, by uuid.UUID) (*StockMovement, error) {
	if delta == 0 {
		return nil, ErrInvalidQuantity
	}
	if m.StockQuantity+delta < 0 {
		return nil, ErrInsufficientStock
	}
	m.StockQuantity += delta
	return &StockMovement{
		MedicationID: m.ID,
		Delta:        delta,
		Reason:       reason,
		BalanceAfter: m.StockQuantity,
		ReferenceID:  ref,
		CreatedBy:    by,
	}, nil
}

type MovementReason string

const (
	ReasonDispense   MovementReason = "dispense"
	ReasonRestock    MovementReason = "restock"
	ReasonAdjustment MovementReason = "adjustment"
	ReasonSale       MovementReason = "sale"
)

// StockMovement is an append-only stock ledger row.
type StockMovement struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt    time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	MedicationID uuid.UUID      `gorm:"column:medication_id;type:uuid;not null;index" json:"medication_id"`
	Delta        int            `gorm:"column:delta;not null" json:"delta"`
	Reason       MovementReason `gorm:"column:reason;type:varchar(20);not null" json:"reason"`
	BalanceAfter int            `gorm:"column:balance_after;not null" json:"balance_after"`
	ReferenceID  *uuid.UUID     `gorm:"column:reference_id;type:uuid" json:"reference_id,omitempty"`
	Note         string         `gorm:"column:note;type:text" json:"note,omitempty"`
	CreatedBy    uuid.UUID      `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
}

func (StockMovement) TableName() string {
	return "pharmacy.stock_movements"
}

type PharmacySale struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`

	PatientID      uuid.UUID    `gorm:"column:patient_id;type:uuid;not null;index" json:"patient_id"`
	PrescriptionID *uuid.UUID   `gorm:"column:prescription_id;type:uuid;index" json:"prescription_id,omitempty"`
	MedicationID   uuid.UUID    `gorm:"column:medication_id;type:uuid;not null;index" json:"medication_id"`
	Quantity       int          `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice      domain.Money `gorm:"column:unit_price;not null" json:"unit_price"`
	Total          domain.Money `gorm:"column:total;not null" json:"total"`
	BillID         *uuid.UUID   `gorm:"column:bill_id;type:uuid;index" json:"bill_id,omitempty"`
	PharmacistID   uuid.UUID    `gorm:"column:pharmacist_id;type:uuid;not null" json:"pharmacist_id"`
}

func (PharmacySale) TableName() string {
	return "pharmacy.sales"
}

type CreateMedicationCommand struct {
	Name                 string
	GenericName          string
	Form                 DosageForm
	Strength             string
	Unit                 string
	UnitPrice            domain.Money
	InitialStock         int
	ReorderLevel         int
	RequiresPrescription bool
	Taxable              bool
}

type StockCommand struct {
	MedicationID uuid.UUID
	Delta        int
	Note         string
}

type SaleCommand struct {
	PatientID    uuid.UUID
	MedicationID uuid.UUID
	Quantity     int
}

type ListMedicationsQuery struct {
	Search   string
	LowStock bool
	Active   *bool
	Page     int
	PageSize int
}

type PagedMedications struct {
	Medications []*Medication `json:"medications"`
	TotalCount  int64         `json:"total_count"`
	Page        int           `json:"page"`
	PageSize    int           `json:"page_size"`
	TotalPages  int           `json:"total_pages"`
}
