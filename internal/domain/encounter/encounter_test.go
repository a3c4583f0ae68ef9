package encounter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncounterLifecycle(t *testing.T) {
	e := &Encounter{Status: StatusScheduled, Class: ClassOutpatient}
	now := time.Now()

	require.NoError(t, e.Start(now))
	assert.Equal(t, StatusInProgress, e.Status)
	assert.True(t, e.IsOpen())

	require.NoError(t, e.Complete(now.Add(time.Hour)))
	assert.Equal(t, StatusCompleted, e.Status)
	assert.False(t, e.IsOpen())

	assert.ErrorIs(t, e.Cancel(now), ErrInvalidStatusTransition)
	assert.ErrorIs(t, e.Start(now), ErrInvalidStatusTransition)
}

func TestEncounterCannotCompleteBeforeStart(t *testing.T) {
	e := &Encounter{Status: StatusScheduled}
	assert.ErrorIs(t, e.Complete(time.Now()), ErrInvalidStatusTransition)
	require.NoError(t, e.Cancel(time.Now()))
	assert.Equal(t, StatusCancelled, e.Status)
}

func TestClassIsValid(t *testing.T) {
	assert.True(t, ClassInpatient.IsValid())
	assert.False(t, Class("daycare").IsValid())
}
