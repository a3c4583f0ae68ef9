package billing

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
)

type ClaimStatus string

const (
	ClaimDraft     ClaimStatus = "draft"
	ClaimSubmitted ClaimStatus = "submitted"
	ClaimApproved  ClaimStatus = "approved"
	ClaimRejected  ClaimStatus = "rejected"
	ClaimPaid      ClaimStatus = "paid"
)

var claimTransitions = map[ClaimStatus][]ClaimStatus{
	ClaimDraft:     {ClaimSubmitted},
	ClaimSubmitted: {ClaimApproved, ClaimRejected},
	ClaimApproved:  {ClaimPaid},
}

type NHIFClaim struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	ClaimNumber    string       `gorm:"column:claim_number;type:varchar(30);uniqueIndex;not null" json:"claim_number"`
	BillID         uuid.UUID    `gorm:"column:bill_id;type:uuid;not null;index" json:"bill_id"`
	PatientID      uuid.UUID    `gorm:"column:patient_id;type:uuid;not null;index" json:"patient_id"`
	NHIFNumber     string       `gorm:"column:nhif_number;type:varchar(30);not null" json:"nhif_number"`
	ClaimedAmount  domain.Money `gorm:"column:claimed_amount;not null" json:"claimed_amount"`
	ApprovedAmount domain.Money `gorm:"column:approved_amount;not null;default:0" json:"approved_amount"`
	Status         ClaimStatus  `gorm:"column:status;type:varchar(20);not null;default:'draft';index" json:"status"`

	SubmittedAt     *time.Time `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	ReviewedAt      *time.Time `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
	PaidAt          *time.Time `gorm:"column:paid_at" json:"paid_at,omitempty"`
	RejectionReason string     `gorm:"column:rejection_reason;type:text" json:"rejection_reason,omitempty"`
	CreatedBy       uuid.UUID  `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
}

func (NHIFClaim) TableName() string {
	return "billing.nhif_claims"
}

func (c *NHIFClaim) transition(to ClaimStatus) error {
	if !slices.Contains(claimTransitions[c.Status], to) {
		return ErrInvalidClaimTransition
	}
	c.Status = to
	return nil
}

func (c *NHIFClaim) Submit(at time.Time) error {
	if err := c.transition(ClaimSubmitted); err != nil {
		return err
	}
	c.SubmittedAt = &at
	return nil
}

func (c *NHIFClaim) Approve(amount domain.Money, at time.Time) error {
	if amount <= 0 || amount > c.ClaimedAmount {
		return ErrApprovedExceedsClaimed
	}
	if err := c.transition(ClaimApproved); err != nil {
		return err
	}
	c.ApprovedAmount = amount
	c.ReviewedAt = &at
	return nil
}

func (c *NHIFClaim) Reject(reason string, at time.Time) error {
	if err := c.transition(ClaimRejected); err != nil {
		return err
	}
	c.RejectionReason = reason
	c.ReviewedAt = &at
	return nil
}

func (c *NHIFClaim) MarkPaid(at time.Time) error {
	if err := c.transition(ClaimPaid); err != nil {
		return err
	}
	c.PaidAt = &at
	return nil
}

type CreateClaimCommand struct {
	BillID uuid.UUID
	Amount domain.Money
}

type ListClaimsQuery struct {
	PatientID *uuid.UUID
	Status    *ClaimStatus
	Page      int
	PageSize  int
}

type PagedClaims struct {
	Claims     []*NHIFClaim `json:"claims"`
	TotalCount int64        `json:"total_count"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalPages int          `json:"total_pages"`
}
