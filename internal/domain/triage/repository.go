package triage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Entry, error)
	Save(ctx context.Context, e *Entry) error

	// IsWaiting reports whether the patient already has a waiting entry in queue.
	IsWaiting(ctx context.Context, queue string, patientID uuid.UUID) (bool, error)

	// LockNext locks the head of the queue, skipping rows other callers hold.
	// Returns ErrQueueEmpty when nothing is waiting.
	LockNext(ctx context.Context, queue string) (*Entry, error)

	// ListWaiting returns waiting entries in serving order.
	ListWaiting(ctx context.Context, queue string) ([]*Entry, error)
	ListCalledSince(ctx context.Context, queue string, since time.Time) ([]*Entry, error)
}
