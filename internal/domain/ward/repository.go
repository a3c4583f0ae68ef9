package ward

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreateWard(ctx context.Context, w *Ward) error
	GetWard(ctx context.Context, id uuid.UUID) (*Ward, error)
	ListWards(ctx context.Context) ([]*Ward, error)

	CreateBed(ctx context.Context, b *Bed) error
	GetBed(ctx context.Context, id uuid.UUID) (*Bed, error)

	// GetBedForUpdate locks the bed row until the surrounding transaction ends.
	GetBedForUpdate(ctx context.Context, id uuid.UUID) (*Bed, error)
	SaveBed(ctx context.Context, b *Bed) error
	ListBeds(ctx context.Context, q *ListBedsQuery) ([]*Bed, error)

	// BedForPatient returns the bed the patient currently occupies, or nil.
	BedForPatient(ctx context.Context, patientID uuid.UUID) (*Bed, error)

	CreateAdmission(ctx context.Context, a *Admission) error
	GetAdmission(ctx context.Context, id uuid.UUID) (*Admission, error)
	GetAdmissionForUpdate(ctx context.Context, id uuid.UUID) (*Admission, error)
	SaveAdmission(ctx context.Context, a *Admission) error
	ListAdmissions(ctx context.Context, q *ListAdmissionsQuery) (*PagedAdmissions, error)

	// OpenAdmissionForPatient returns the patient's current admission, or nil.
	OpenAdmissionForPatient(ctx context.Context, patientID uuid.UUID) (*Admission, error)

	CreateTransfer(ctx context.Context, t *BedTransfer) error
	ListTransfers(ctx context.Context, admissionID uuid.UUID) ([]*BedTransfer, error)
}
