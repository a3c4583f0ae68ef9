package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new patient and assigns its patient number.
	Create(ctx context.Context, p *Patient) error

	// GetByID retrieves a patient by primary key. Returns ErrPatientNotFound if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// GetByIDForUpdate is GetByID holding a row lock until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Patient, error)

	// Save writes every column of an existing patient.
	Save(ctx context.Context, p *Patient) error

	// SoftDelete marks the patient as deleted (records are retained).
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// List returns a paginated, filtered list of patients.
	List(ctx context.Context, q *ListPatientsQuery) (*PagedPatients, error)

	// FindCandidates returns live records sharing any identifier or the date of
	// birth with c. Scoring happens in RankMatches.
	FindCandidates(ctx context.Context, c MatchCriteria) ([]*Patient, error)

	// ReassignReferences moves every row pointing at from over to to and
	// returns the number of rows touched per table.
	ReassignReferences(ctx context.Context, from, to uuid.UUID) (map[string]int64, error)

	CreateMergeLog(ctx context.Context, l *MergeLog) error
}
