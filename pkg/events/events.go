// Package events publishes domain events after their transaction commits.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	PatientMerged        Type = "patient.merged"
	PatientAdmitted      Type = "patient.admitted"
	PatientDischarged    Type = "patient.discharged"
	BedTransferred       Type = "bed.transferred"
	PrescriptionDispense Type = "prescription.dispensed"
	OrderCreated         Type = "order.created"
	ClaimSubmitted       Type = "claim.submitted"
)

type Event struct {
	ID          uuid.UUID       `json:"id"`
	Type        Type            `json:"type"`
	AggregateID uuid.UUID       `json:"aggregate_id"`
	OccurredAt  time.Time       `json:"occurred_at"`
	ActorID     uuid.UUID       `json:"actor_id"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// New builds an event, marshalling payload to JSON.
func New(t Type, aggregateID, actorID uuid.UUID, payload any) (Event, error) {
	e := Event{
		ID:          uuid.New(),
		Type:        t,
		AggregateID: aggregateID,
		OccurredAt:  time.Now().UTC(),
		ActorID:     actorID,
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Event{}, err
		}
		e.Payload = raw
	}
	return e, nil
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Noop drops every event. Used when Kafka is disabled.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error { return nil }
