package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/config"
)

// ErrUnavailable is returned while the breaker is open.
var ErrUnavailable = errors.New("event bus unavailable")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes events to a single topic keyed by aggregate ID, so every
// event for one patient or bed lands on the same partition in order.
type Kafka struct {
	w       messageWriter
	breaker *gobreaker.CircuitBreaker[struct{}]
	timeout time.Duration
	log     *zap.Logger
	counter *prometheus.CounterVec
}

func NewKafka(cfg config.KafkaConfig, log *zap.Logger, counter *prometheus.CounterVec) *Kafka {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: false,
	}
	return newKafka(w, cfg.WriteTimeout, log, counter)
}

func newKafka(w messageWriter, timeout time.Duration, log *zap.Logger, counter *prometheus.CounterVec) *Kafka {
	k := &Kafka{w: w, timeout: timeout, log: log.Named("events"), counter: counter}
	k.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "kafka-publisher",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			k.log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return k
}

func (k *Kafka) Publish(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(e.AggregateID.String()),
		Value: value,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(e.Type)},
			{Key: "event-id", Value: []byte(e.ID.String())},
		},
	}

	_, err = k.breaker.Execute(func() (struct{}, error) {
		wctx := ctx
		if k.timeout > 0 {
			var cancel context.CancelFunc
			wctx, cancel = context.WithTimeout(ctx, k.timeout)
			defer cancel()
		}
		return struct{}{}, k.w.WriteMessages(wctx, msg)
	})

	outcome := "ok"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "rejected"
		err = ErrUnavailable
	case err != nil:
		outcome = "error"
		err = fmt.Errorf("publishing %s: %w", e.Type, err)
	}
	if k.counter != nil {
		k.counter.WithLabelValues(string(e.Type), outcome).Inc()
	}
	return err
}

func (k *Kafka) Close() error {
	return k.w.Close()
}
