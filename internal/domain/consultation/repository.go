package consultation

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, c *Consultation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error)

	// GetByIDForUpdate locks the row so concurrent edits and uploads serialize.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Consultation, error)
	Save(ctx context.Context, c *Consultation) error
	AddAddendum(ctx context.Context, a *Addendum) error
	List(ctx context.Context, q *ListConsultationsQuery) (*PagedConsultations, error)
}
