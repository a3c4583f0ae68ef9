package order

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Create inserts the order together with its items.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Order, error)

	// Save writes the order and every item.
	Save(ctx context.Context, o *Order) error
	List(ctx context.Context, q *ListOrdersQuery, sla SLA, now time.Time) (*PagedOrders, error)

	// ListOpen returns every order that is neither completed nor cancelled.
	ListOpen(ctx context.Context) ([]*Order, error)
}
