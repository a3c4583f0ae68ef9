package appointment

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from AppointmentStatus
		to   AppointmentStatus
		ok   bool
	}{
		{StatusScheduled, StatusConfirmed, true},
		{StatusScheduled, StatusInProgress, true},
		{StatusScheduled, StatusCancelled, true},
		{StatusScheduled, StatusCompleted, false},
		{StatusConfirmed, StatusNoShow, true},
		{StatusConfirmed, StatusInProgress, true},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusCancelled, false},
		{StatusCompleted, StatusScheduled, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusNoShow, StatusInProgress, false},
	}
	for _, tt := range tests {
		a := &Appointment{Status: tt.from}
		assert.Equal(t, tt.ok, a.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestCheckInThenComplete_RecordsDuration(t *testing.T) {
	a := &Appointment{Status: StatusConfirmed}
	start := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	require.NoError(t, a.CheckIn(start))
	assert.Equal(t, StatusInProgress, a.Status)

	require.NoError(t, a.Complete(nil, start.Add(25*time.Minute)))
	assert.Equal(t, StatusCompleted, a.Status)
	require.NotNil(t, a.ActualDurationMins)
	assert.Equal(t, 25, *a.ActualDurationMins)
}

func TestCancel(t *testing.T) {
	a := &Appointment{Status: StatusScheduled}
	by := uuid.New()
	now := time.Now()

	require.NoError(t, a.Cancel("patient travelling", by, now))
	assert.Equal(t, StatusCancelled, a.Status)
	assert.Equal(t, &by, a.CancelledBy)
	assert.False(t, a.IsBooked())

	assert.ErrorIs(t, a.Cancel("again", by, now), ErrInvalidStatusTransition)
}

func TestEndsAt(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	a := &Appointment{ScheduledAt: start, DurationMins: 45}
	assert.Equal(t, start.Add(45*time.Minute), a.EndsAt())
}
