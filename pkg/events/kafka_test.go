package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (s *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msgs...)
	return nil
}

func (s *stubWriter) Close() error { return nil }

func newCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "events_total"}, []string{"type", "outcome"})
}

func TestKafkaPublish(t *testing.T) {
	w := &stubWriter{}
	counter := newCounter()
	k := newKafka(w, 0, zap.NewNop(), counter)

	patientID := uuid.New()
	e, err := New(PatientMerged, patientID, uuid.New(), map[string]string{"source": "p1"})
	require.NoError(t, err)
	require.NoError(t, k.Publish(context.Background(), e))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, patientID.String(), string(w.msgs[0].Key))
	assert.Equal(t, "event-type", w.msgs[0].Headers[0].Key)

	var decoded Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, PatientMerged, decoded.Type)
	assert.JSONEq(t, `{"source":"p1"}`, string(decoded.Payload))

	assert.Equal(t, float64(1), testutil.ToFloat64(counter.WithLabelValues(string(PatientMerged), "ok")))
}

func TestKafkaPublish_BreakerOpensAfterFailures(t *testing.T) {
	w := &stubWriter{err: errors.New("broker down")}
	counter := newCounter()
	k := newKafka(w, 0, zap.NewNop(), counter)
	e, _ := New(OrderCreated, uuid.New(), uuid.New(), nil)

	for range 5 {
		err := k.Publish(context.Background(), e)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}

	err := k.Publish(context.Background(), e)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, float64(5), testutil.ToFloat64(counter.WithLabelValues(string(OrderCreated), "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(counter.WithLabelValues(string(OrderCreated), "rejected")))
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.Publish(context.Background(), Event{}))
	assert.NoError(t, p.Close())
}
