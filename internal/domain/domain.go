package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleDoctor       Role = "doctor"
	RoleNurse        Role = "nurse"
	RoleReceptionist Role = "receptionist"
	RolePharmacist   Role = "pharmacist"
	RoleCashier      Role = "cashier"
	RoleLabTech      Role = "lab_technician"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RoleNurse, RoleReceptionist, RolePharmacist, RoleCashier, RoleLabTech:
		return true
	}
	return false
}

// IsClinician reports whether the role may author clinical documentation.
func (r Role) IsClinician() bool {
	return r == RoleDoctor || r == RoleNurse
}

type AuditAction string

const (
	ActionCreate AuditAction = "create"
	ActionRead   AuditAction = "read"
	ActionUpdate AuditAction = "update"
	ActionDelete AuditAction = "delete"
	ActionMerge  AuditAction = "merge"
)

type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OccurredAt time.Time `gorm:"autoCreateTime;index"`

	// Who
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	UserRole  Role      `gorm:"column:user_role;type:varchar(30);not null"`
	IPAddress string    `gorm:"column:ip_address;type:varchar(45)"` // Supports IPv6

	// What
	Action       AuditAction `gorm:"column:action;type:varchar(20);not null;index"`
	ResourceType string      `gorm:"column:resource_type;type:varchar(50);not null;index"`
	ResourceID   string      `gorm:"column:resource_id;type:varchar(50);index"`

	RequestID string `gorm:"column:request_id;type:varchar(50);index"`
	Changes   string `gorm:"column:changes;type:jsonb"`
}

func (AuditLog) TableName() string {
	return "audit.logs"
}

// Claims is the identity carried by a bearer token.
type Claims struct {
	UserID  uuid.UUID  `json:"sub"`
	Name    string     `json:"name"`
	Role    Role       `json:"role"`
	StaffID *uuid.UUID `json:"staff_id,omitempty"`
}

// Actor identifies the staff member performing an operation.
type Actor struct {
	UserID    uuid.UUID
	Role      Role
	IP        string
	RequestID string
}

// Money is an amount in minor currency units (cents).
type Money int64

func (m Money) Times(qty int) Money {
	return m * Money(qty)
}

// ApplyRate returns m scaled by a basis-point rate, rounded half away from zero.
func (m Money) ApplyRate(bps int) Money {
	n := int64(m) * int64(bps)
	q, r := n/10000, n%10000
	switch {
	case r*2 >= 10000:
		q++
	case r*2 <= -10000:
		q--
	}
	return Money(q)
}

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Page normalizes paging parameters: page >= 1 and 1 <= size <= 100 (default 20).
func Page(page, size int) (int, int) {
	if size <= 0 || size > 100 {
		size = 20
	}
	if page <= 0 {
		page = 1
	}
	return page, size
}

func TotalPages(total int64, size int) int {
	if size <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
