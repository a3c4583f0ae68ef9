package billing

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create inserts the bill and assigns its bill number.
	Create(ctx context.Context, b *Bill) error
	GetByID(ctx context.Context, id uuid.UUID) (*Bill, error)

	// GetByIDForUpdate locks the bill row and loads items and payments.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Bill, error)

	// FindOpenForUpdate locks the patient's open bill for the encounter or
	// admission. Returns nil when none exists.
	FindOpenForUpdate(ctx context.Context, patientID uuid.UUID, encounterID, admissionID *uuid.UUID) (*Bill, error)

	// SaveTotals writes the bill's computed columns and status.
	SaveTotals(ctx context.Context, b *Bill) error
	AddItem(ctx context.Context, it *BillItem) error
	AddPayment(ctx context.Context, p *Payment) error
	List(ctx context.Context, q *ListBillsQuery) (*PagedBills, error)

	CreateClaim(ctx context.Context, c *NHIFClaim) error
	GetClaim(ctx context.Context, id uuid.UUID) (*NHIFClaim, error)
	GetClaimForUpdate(ctx context.Context, id uuid.UUID) (*NHIFClaim, error)
	SaveClaim(ctx context.Context, c *NHIFClaim) error
	ListClaims(ctx context.Context, q *ListClaimsQuery) (*PagedClaims, error)
}
