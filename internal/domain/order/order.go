package order

import (
	"time"

	"github.com/google/uuid"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
)

type OrderType string

const (
	TypeLab       OrderType = "lab"
	TypeRadiology OrderType = "radiology"
	TypeProcedure OrderType = "procedure"
)

func (t OrderType) IsValid() bool {
	return t == TypeLab || t == TypeRadiology || t == TypeProcedure
}

type Priority string

const (
	PriorityStat    Priority = "stat"
	PriorityUrgent  Priority = "urgent"
	PriorityRoutine Priority = "routine"
)

func (p Priority) IsValid() bool {
	return p == PriorityStat || p == PriorityUrgent || p == PriorityRoutine
}

// SLA holds the turnaround allowed for each priority.
type SLA struct {
	Stat    time.Duration
	Urgent  time.Duration
	Routine time.Duration
}

func DefaultSLA() SLA {
	return SLA{Stat: time.Hour, Urgent: 4 * time.Hour, Routine: 24 * time.Hour}
}

func (s SLA) For(p Priority) time.Duration {
	switch p {
	case PriorityStat:
		return s.Stat
	case PriorityUrgent:
		return s.Urgent
	default:
		return s.Routine
	}
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

type ItemStatus string

const (
	ItemPending    ItemStatus = "pending"
	ItemInProgress ItemStatus = "in_progress"
	ItemResulted   ItemStatus = "resulted"
	ItemCancelled  ItemStatus = "cancelled"
)

type Order struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	PatientID   uuid.UUID  `gorm:"column:patient_id;type:uuid;not null;index" json:"patient_id"`
	EncounterID *uuid.UUID `gorm:"column:encounter_id;type:uuid;index" json:"encounter_id,omitempty"`
	OrderedBy   uuid.UUID  `gorm:"column:ordered_by;type:uuid;not null;index" json:"ordered_by"`
	Type        OrderType  `gorm:"column:type;type:varchar(20);not null;index" json:"type"`
	Priority    Priority   `gorm:"column:priority;type:varchar(20);not null;index" json:"priority"`
	Status      Status     `gorm:"column:status;type:varchar(20);not null;default:'pending';index" json:"status"`

	ClinicalNotes string     `gorm:"column:clinical_notes;type:text" json:"clinical_notes,omitempty"`
	OrderedAt     time.Time  `gorm:"column:ordered_at;not null;index" json:"ordered_at"`
	StartedAt     *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt   *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CancelledAt   *time.Time `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	CancelReason  string     `gorm:"column:cancel_reason;type:text" json:"cancel_reason,omitempty"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items"`

	// Computed on read.
	DueAt   time.Time `gorm:"-" json:"due_at"`
	Overdue bool      `gorm:"-" json:"overdue"`
}

func (Order) TableName() string {
	return "clinical.orders"
}

func (o *Order) IsClosed() bool {
	return o.Status == StatusCompleted || o.Status == StatusCancelled
}

// Evaluate fills DueAt and Overdue.
func (o *Order) Evaluate(sla SLA, now time.Time) {
	o.DueAt = o.OrderedAt.Add(sla.For(o.Priority))
	o.Overdue = !o.IsClosed() && now.After(o.DueAt)
}

func (o *Order) Start(at time.Time) error {
	if o.Status != StatusPending {
		return ErrInvalidStatusTransition
	}
	o.Status = StatusInProgress
	o.StartedAt = &at
	for i := range o.Items {
		if o.Items[i].Status == ItemPending {
			o.Items[i].Status = ItemInProgress
		}
	}
	return nil
}

func (o *Order) Cancel(reason string, at time.Time) error {
	if o.IsClosed() {
		return ErrOrderClosed
	}
	o.Status = StatusCancelled
	o.CancelledAt = &at
	o.CancelReason = reason
	for i := range o.Items {
		if o.Items[i].Status != ItemResulted {
			o.Items[i].Status = ItemCancelled
		}
	}
	return nil
}

func (o *Order) item(id uuid.UUID) (*OrderItem, error) {
	for i := range o.Items {
		if o.Items[i].ID == id {
			return &o.Items[i], nil
		}
	}
	return nil, ErrItemNotFound
}

// RecordResult stores a result on one item and completes the order once every
// live item has a result.
func (o *Order) RecordResult(itemID uuid.UUID, result string, by uuid.UUID, at time.Time) (*OrderItem, error) {
	if o.IsClosed() {
		return nil, ErrOrderClosed
	}
	it, err := o.item(itemID)
	if err != nil {
		return nil, err
	}
	if it.Status == ItemCancelled || it.Status == ItemResulted {
		return nil, ErrItemClosed
	}
	it.Status = ItemResulted
	it.Result = result
	it.ResultedBy = &by
	it.ResultedAt = &at
	if o.Status == StatusPending {
		o.Status = StatusInProgress
		o.StartedAt = &at
	}
	o.completeIfDone(at)
	return it, nil
}

func (o *Order) CancelItem(itemID uuid.UUID, at time.Time) (*OrderItem, error) {
	if o.IsClosed() {
		return nil, ErrOrderClosed
	}
	it, err := o.item(itemID)
	if err != nil {
		return nil, err
	}
	if it.Status == ItemCancelled || it.Status == ItemResulted {
		return nil, ErrItemClosed
	}
	it.Status = ItemCancelled
	o.completeIfDone(at)
	return it, nil
}

func (o *Order) completeIfDone(at time.Time) {
	live, resulted := 0, 0
	for _, it := range o.Items {
		switch it.Status {
		case ItemCancelled:
		case ItemResulted:
			live++
			resulted++
		default:
			live++
		}
	}
	switch {
	case live == 0:
		o.Status = StatusCancelled
		o.CancelledAt = &at
	case resulted == live:
		o.Status = StatusCompleted
		o.CompletedAt = &at
	}
}

type OrderItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	OrderID    uuid.UUID    `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	Code       string       `gorm:"column:code;type:varchar(50);not null" json:"code"`
	Name       string       `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Price      domain.Money `gorm:"column:price;not null;default:0" json:"price"`
	Status     ItemStatus   `gorm:"column:status;type:varchar(20);not null;default:'pending'" json:"status"`
	Result     string       `gorm:"column:result;type:text" json:"result,omitempty"`
	ResultedBy *uuid.UUID   `gorm:"column:resulted_by;type:uuid" json:"resulted_by,omitempty"`
	ResultedAt *time.Time   `gorm:"column:resulted_at" json:"resulted_at,omitempty"`
}

func (OrderItem) TableName() string {
	return "clinical.order_items"
}

type ItemInput struct {
	Code  string
	Name  string
	Price domain.Money
}

type CreateOrderCommand struct {
	PatientID     uuid.UUID
	EncounterID   *uuid.UUID
	Type          OrderType
	Priority      Priority
	ClinicalNotes string
	Items         []ItemInput
}

type ListOrdersQuery struct {
	PatientID   *uuid.UUID
	EncounterID *uuid.UUID
	Type        *OrderType
	Status      *Status
	Priority    *Priority
	OverdueOnly bool
	Page        int
	PageSize    int
}

type PagedOrders struct {
	Orders     []*Order `json:"orders"`
	TotalCount int64    `json:"total_count"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
	TotalPages int      `json:"total_pages"`
}
