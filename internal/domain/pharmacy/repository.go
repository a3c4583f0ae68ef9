package pharmacy

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreateMedication(ctx context.Context, m *Medication) error
	GetMedication(ctx context.Context, id uuid.UUID) (*Medication, error)

	// GetMedicationForUpdate locks the medication row so concurrent
	// dispenses serialize on stock.
	GetMedicationForUpdate(ctx context.Context, id uuid.UUID) (*Medication, error)
	SaveMedication(ctx context.Context, m *Medication) error
	ListMedications(ctx context.Context, q *ListMedicationsQuery) (*PagedMedications, error)

	CreateMovement(ctx context.Context, mv *StockMovement) error
	ListMovements(ctx context.Context, medicationID uuid.UUID, limit int) ([]*StockMovement, error)

	CreateSale(ctx context.Context, s *PharmacySale) error
	GetSale(ctx context.Context, id uuid.UUID) (*PharmacySale, error)
	ListSalesByPatient(ctx context.Context, patientID uuid.UUID) ([]*PharmacySale, error)
}
