package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/patient"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/triage"
)

// steppingClock advances by step on every call.
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func TestTriageService_Enqueue(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.registerPatient(t, "Moses", "Kariuki", patient.GenderMale)

	_, err := h.triage.Enqueue(ctx, &triage.EnqueueCommand{PatientID: p.ID, Queue: " ", Priority: 3}, nurse)
	assert.ErrorIs(t, err, triage.ErrQueueRequired)

	_, err = h.triage.Enqueue(ctx, &triage.EnqueueCommand{PatientID: p.ID, Queue: "OPD", Priority: 6}, nurse)
	assert.ErrorIs(t, err, triage.ErrInvalidPriority)

	e, err := h.triage.Enqueue(ctx, &triage.EnqueueCommand{PatientID: p.ID, Queue: " OPD ", Priority: 3, ChiefComplaint: "headache"}, nurse)
	require.NoError(t, err)
	assert.Equal(t, "opd", e.Queue)
	assert.Equal(t, triage.StatusWaiting, e.Status)

	_, err = h.triage.Enqueue(ctx, &triage.EnqueueCommand{PatientID: p.ID, Queue: "opd", Priority: 2}, nurse)
	assert.ErrorIs(t, err, triage.ErrAlreadyQueued)

	_, err = h.triage.Enqueue(ctx, &triage.EnqueueCommand{PatientID: p.ID, Queue: "casualty", Priority: 2}, nurse)
	assert.NoError(t, err)
}

func TestTriageService_CallNextServesByAcuityThenArrival(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.triage.now = steppingClock(time.Now().UTC().Add(-time.Hour), time.Minute)

	first := h.registerPatient(t, "Alice", "Wafula", patient.GenderFemale)
	second := h.registerPatient(t, "Bernard", "Chege", patient.GenderMale)
	urgent := h.registerPatient(t, "Caroline", "Nyambura", patient.GenderFemale)

	for _, c := range []struct {
		p        *patient.Patient
		priority int
	}{{first, 3}, {second, 3}, {urgent, 1}} {
		_, err := h.triage.Enqueue(ctx, &triage.EnqueueCommand{PatientID: c.p.ID, Queue: "opd", Priority: c.priority}, nurse)
		require.NoError(t, err)
	}

	waiting, err := h.triage.ListWaiting(ctx, "OPD")
	require.NoError(t, err)
	require.Len(t, waiting, 3)
	assert.Equal(t, urgent.ID, waiting[0].PatientID)
	assert.Equal(t, []int{1, 2, 3}, []int{waiting[0].Position, waiting[1].Position, waiting[2].Position})

	var order []string
	for range 3 {
		e, err := h.triage.CallNext(ctx, "opd", doctor)
		require.NoError(t, err)
		assert.Equal(t, triage.StatusCalled, e.Status)
		order = append(order, e.PatientID.String())
	}
	assert.Equal(t, []string{urgent.ID.String(), first.ID.String(), second.ID.String()}, order)

	_, err = h.triage.CallNext(ctx, "opd", doctor)
	assert.ErrorIs(t, err, triage.ErrQueueEmpty)

	assert.Equal(t, 2, testutil.CollectAndCount(h.metrics.TriageWaitSeconds))

	h.triage.now = func() time.Time { return time.Now().UTC() }
	stats, err := h.triage.Stats(ctx, "opd", nil)
	require.NoError(t, err)
	assert.Zero(t, stats.Waiting)
	assert.Equal(t, 3, stats.CalledSince)
	assert.Greater(t, stats.AvgWaitSeconds, 0.0)
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), stats.Since, time.Minute)

	later := time.Now().Add(time.Second)
	_, err = h.triage.Stats(ctx, "opd", &later)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	recent := time.Now()
	stats, err = h.triage.Stats(ctx, "opd", &recent)
	require.NoError(t, err)
	assert.Zero(t, stats.CalledSince)
	assert.True(t, recent.Equal(stats.Since))
}

func TestTriageService_Lifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.registerPatient(t, "Daniel", "Rotich", patient.GenderMale)

	e, err := h.triage.Enqueue(ctx, &triage.EnqueueCommand{PatientID: p.ID, Queue: "opd", Priority: 4}, nurse)
	require.NoError(t, err)

	_, err = h.triage.Complete(ctx, e.ID, doctor)
	assert.ErrorIs(t, err, triage.ErrNotCalled)

	e, err = h.triage.Reprioritize(ctx, e.ID, 2, nurse)
	require.NoError(t, err)
	assert.Equal(t, 2, e.Priority)

	_, err = h.triage.Reprioritize(ctx, e.ID, 0, nurse)
	assert.ErrorIs(t, err, triage.ErrInvalidPriority)

	e, err = h.triage.CallNext(ctx, "opd", doctor)
	require.NoError(t, err)
	_, err = h.triage.Reprioritize(ctx, e.ID, 1, nurse)
	assert.ErrorIs(t, err, triage.ErrNotWaiting)

	e, err = h.triage.Complete(ctx, e.ID, doctor)
	require.NoError(t, err)
	assert.Equal(t, triage.StatusCompleted, e.Status)

	_, err = h.triage.MarkLeft(ctx, e.ID, nurse)
	assert.ErrorIs(t, err, triage.ErrNotWaiting)

	again, err := h.triage.Enqueue(ctx, &triage.EnqueueCommand{PatientID: p.ID, Queue: "opd", Priority: 5}, nurse)
	require.NoError(t, err)
	again, err = h.triage.MarkLeft(ctx, again.ID, nurse)
	require.NoError(t, err)
	assert.Equal(t, triage.StatusLeft, again.Status)
}
