package billing

import (
	"time"

	"github.com/google/uuid"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
)

type BillStatus string

const (
	BillOpen          BillStatus = "open"
	BillPartiallyPaid BillStatus = "partially_paid"
	BillPaid          BillStatus = "paid"
	BillVoid          BillStatus = "void"
)

type ItemCategory string

const (
	CategoryConsultation ItemCategory = "consultation"
	CategoryPharmacy     ItemCategory = "pharmacy"
	CategoryLab          ItemCategory = "lab"
	CategoryRadiology    ItemCategory = "radiology"
	CategoryProcedure    ItemCategory = "procedure"
	CategoryBed          ItemCategory = "bed"
	CategoryOther        ItemCategory = "other"
)

type PaymentMethod string

const (
	MethodCash      PaymentMethod = "cash"
	MethodMpesa     PaymentMethod = "mpesa"
	MethodCard      PaymentMethod = "card"
	MethodNHIF      PaymentMethod = "nhif"
	MethodInsurance PaymentMethod = "insurance"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case MethodCash, MethodMpesa, MethodCard, MethodNHIF, MethodInsurance:
		return true
	}
	return false
}

type Bill struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	BillNumber  string     `gorm:"column:bill_number;type:varchar(30);uniqueIndex;not null" json:"bill_number"`
	PatientID   uuid.UUID  `gorm:"column:patient_id;type:uuid;not null;index" json:"patient_id"`
	EncounterID *uuid.UUID `gorm:"column:encounter_id;type:uuid;index" json:"encounter_id,omitempty"`
	AdmissionID *uuid.UUID `gorm:"column:admission_id;type:uuid;index" json:"admission_id,omitempty"`
	Status      BillStatus `gorm:"column:status;type:varchar(20);not null;default:'open';index" json:"status"`

	Subtotal   domain.Money `gorm:"column:subtotal;not null;default:0" json:"subtotal"`
	Tax        domain.Money `gorm:"column:tax;not null;default:0" json:"tax"`
	Discount   domain.Money `gorm:"column:discount;not null;default:0" json:"discount"`
	Total      domain.Money `gorm:"column:total;not null;default:0" json:"total"`
	Paid       domain.Money `gorm:"column:paid;not null;default:0" json:"paid"`
	BalanceDue domain.Money `gorm:"column:balance_due;not null;default:0" json:"balance_due"`

	DiscountReason string     `gorm:"column:discount_reason;type:text" json:"discount_reason,omitempty"`
	VoidedAt       *time.Time `gorm:"column:voided_at" json:"voided_at,omitempty"`
	VoidReason     string     `gorm:"column:void_reason;type:text" json:"void_reason,omitempty"`
	CreatedBy      uuid.UUID  `gorm:"column:created_by;type:uuid;not null" json:"created_by"`

	Items    []BillItem `gorm:"foreignKey:BillID" json:"items,omitempty"`
	Payments []Payment  `gorm:"foreignKey:BillID" json:"payments,omitempty"`
}

func (Bill) TableName() string {
	return "billing.bills"
}

func (b *Bill) IsOpenForCharges() bool {
	return b.Status == BillOpen || b.Status == BillPartiallyPaid
}

// Recalculate derives every total from the items and payments, using
// taxBPS for taxable items, and settles the status.
func (b *Bill) Recalculate(taxBPS int) {
	var subtotal, tax domain.Money
	for _, it := range b.Items {
		amt := it.Amount()
		subtotal += amt
		if it.Taxable {
			tax += amt.ApplyRate(taxBPS)
		}
	}
	var paid domain.Money
	for _, p := range b.Payments {
		paid += p.Amount
	}
	b.Subtotal = subtotal
	b.Tax = tax
	b.Total = subtotal + tax - b.Discount
	b.Paid = paid
	b.BalanceDue = b.Total - paid

	switch {
	case b.Status == BillVoid:
	case b.Total > 0 && b.BalanceDue == 0:
		b.Status = BillPaid
	case paid > 0:
		b.Status = BillPartiallyPaid
	default:
		b.Status = BillOpen
	}
}

// AddItem appends a charge. Totals must be recalculated afterwards.
func (b *Bill) AddItem(it BillItem) error {
	if !b.IsOpenForCharges() {
		return ErrBillClosed
	}
	if it.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if it.UnitPrice < 0 {
		return ErrInvalidAmount
	}
	it.BillID = b.ID
	b.Items = append(b.Items, it)
	return nil
}

func (b *Bill) ApplyDiscount(amount domain.Money, reason string, taxBPS int) error {
	if b.Status == BillVoid || b.Status == BillPaid {
		return ErrBillClosed
	}
	if amount < 0 {
		return ErrInvalidAmount
	}
	prev := b.Discount
	b.Discount = 0
	b.Recalculate(taxBPS)
	if amount > b.Subtotal+b.Tax {
		b.Discount = prev
		b.Recalculate(taxBPS)
		return ErrDiscountTooLarge
	}
	b.Discount = amount
	b.DiscountReason = reason
	b.Recalculate(taxBPS)
	if b.BalanceDue < 0 {
		b.Discount = prev
		b.Recalculate(taxBPS)
		return ErrDiscountTooLarge
	}
	return nil
}

// AddPayment records a payment that must not exceed the balance due.
func (b *Bill) AddPayment(p Payment, taxBPS int) error {
	if b.Status == BillVoid {
		return ErrBillVoid
	}
	if !p.Method.IsValid() {
		return ErrInvalidPaymentMethod
	}
	if p.Amount <= 0 {
		return ErrInvalidAmount
	}
	b.Recalculate(taxBPS)
	if p.Amount > b.BalanceDue {
		return ErrOverpayment
	}
	p.BillID = b.ID
	b.Payments = append(b.Payments, p)
	b.Recalculate(taxBPS)
	return nil
}

func (b *Bill) Void(reason string, at time.Time) error {
	if b.Status == BillVoid {
		return ErrBillVoid
	}
	if len(b.Payments) > 0 {
		return ErrBillHasPayments
	}
	b.Status = BillVoid
	b.VoidedAt = &at
	b.VoidReason = reason
	return nil
}

type BillItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	BillID      uuid.UUID    `gorm:"column:bill_id;type:uuid;not null;index" json:"bill_id"`
	Category    ItemCategory `gorm:"column:category;type:varchar(20);not null" json:"category"`
	Description string       `gorm:"column:description;type:varchar(255);not null" json:"description"`
	Quantity    int          `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice   domain.Money `gorm:"column:unit_price;not null" json:"unit_price"`
	Taxable     bool         `gorm:"column:taxable;not null;default:false" json:"taxable"`

	// Source links the charge to the row that produced it (sale, order item, admission).
	SourceType string     `gorm:"column:source_type;type:varchar(30)" json:"source_type,omitempty"`
	SourceID   *uuid.UUID `gorm:"column:source_id;type:uuid;index" json:"source_id,omitempty"`
	CreatedBy  uuid.UUID  `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
}

func (BillItem) TableName() string {
	return "billing.bill_items"
}

func (it BillItem) Amount() domain.Money {
	return it.UnitPrice.Times(it.Quantity)
}

type Payment struct {
	ID         uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt  time.Time     `gorm:"autoCreateTime" json:"created_at"`
	BillID     uuid.UUID     `gorm:"column:bill_id;type:uuid;not null;index" json:"bill_id"`
	Amount     domain.Money  `gorm:"column:amount;not null" json:"amount"`
	Method     PaymentMethod `gorm:"column:method;type:varchar(20);not null;index" json:"method"`
	Reference  string        `gorm:"column:reference;type:varchar(100)" json:"reference,omitempty"` // M-Pesa code, card auth, claim number
	ReceivedBy uuid.UUID     `gorm:"column:received_by;type:uuid;not null" json:"received_by"`
	ReceivedAt time.Time     `gorm:"column:received_at;not null" json:"received_at"`
}

func (Payment) TableName() string {
	return "billing.payments"
}

// Charge is what another module adds to a patient's bill.
type Charge struct {
	PatientID   uuid.UUID
	EncounterID *uuid.UUID
	AdmissionID *uuid.UUID
	Category    ItemCategory
	Description string
	Quantity    int
	UnitPrice   domain.Money
	Taxable     bool
	SourceType  string
	SourceID    *uuid.UUID
}

type CreateBillCommand struct {
	PatientID   uuid.UUID
	EncounterID *uuid.UUID
	AdmissionID *uuid.UUID
}

type AddItemCommand struct {
	BillID      uuid.UUID
	Category    ItemCategory
	Description string
	Quantity    int
	UnitPrice   domain.Money
	Taxable     bool
}

type PaymentCommand struct {
	BillID    uuid.UUID
	Amount    domain.Money
	Method    PaymentMethod
	Reference string
}

type ListBillsQuery struct {
	PatientID *uuid.UUID
	Status    *BillStatus
	Page      int
	PageSize  int
}

type PagedBills struct {
	Bills      []*Bill `json:"bills"`
	TotalCount int64   `json:"total_count"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
	TotalPages int     `json:"total_pages"`
}
