// Package service holds the application use cases. Each service validates
// input, runs its writes inside one transaction, records an audit entry and
// publishes domain events once the transaction has committed.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/events"
)

// Transactor runs fn inside a database transaction carried by ctx.
// Nested calls join the outer transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

func utcNow() time.Time { return time.Now().UTC() }

// publisher wraps an events.Publisher so that a broker outage never fails a
// request whose transaction already committed.
type publisher struct {
	pub events.Publisher
	log *zap.Logger
}

func (p publisher) emit(ctx context.Context, t events.Type, aggregateID uuid.UUID, actor domain.Actor, payload any) {
	if p.pub == nil {
		return
	}
	e, err := events.New(t, aggregateID, actor.UserID, payload)
	if err != nil {
		p.log.Error("encoding event", zap.String("type", string(t)), zap.Error(err))
		return
	}
	if err := p.pub.Publish(ctx, e); err != nil {
		p.log.Warn("event not published",
			zap.String("type", string(t)),
			zap.String("aggregate_id", aggregateID.String()),
			zap.Error(err),
		)
	}
}

func requireRole(actor domain.Actor, roles ...domain.Role) error {
	for _, r := range roles {
		if actor.Role == r {
			return nil
		}
	}
	return ErrForbidden
}
