package prescription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)

	// GetByIDForUpdate locks the prescription row for the rest of the transaction.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Prescription, error)
	Save(ctx context.Context, p *Prescription) error
	List(ctx context.Context, q *ListPrescriptionsQuery) (*PagedPrescriptions, error)
	GetActiveByPatient(ctx context.Context, patientID uuid.UUID) ([]*Prescription, error)

	// ExpireStale flips every dispensable prescription past its expiry to
	// expired and returns how many rows changed.
	ExpireStale(ctx context.Context, now time.Time) (int64, error)

	CreateException(ctx context.Context, e *DispenseException) error
	GetException(ctx context.Context, id uuid.UUID) (*DispenseException, error)
	GetExceptionForUpdate(ctx context.Context, id uuid.UUID) (*DispenseException, error)
	SaveException(ctx context.Context, e *DispenseException) error
	ListExceptions(ctx context.Context, prescriptionID uuid.UUID) ([]*DispenseException, error)

	// OpenException returns the pending or approved exception for a
	// prescription, or nil when there is none.
	OpenException(ctx context.Context, prescriptionID uuid.UUID) (*DispenseException, error)
}
