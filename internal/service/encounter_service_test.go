package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/encounter"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/patient"
)

func TestEncounterService_Lifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.registerPatient(t, "Brian", "Kiprop", patient.GenderMale)

	_, err := h.encounters.CreateEncounter(ctx, &encounter.CreateEncounterCommand{PatientID: p.ID, Class: "home"}, nurse)
	assert.ErrorIs(t, err, encounter.ErrInvalidClass)

	_, err = h.encounters.CreateEncounter(ctx, &encounter.CreateEncounterCommand{PatientID: uuid.New(), Class: encounter.ClassOutpatient}, nurse)
	assert.ErrorIs(t, err, patient.ErrPatientNotFound)

	e, err := h.encounters.CreateEncounter(ctx, &encounter.CreateEncounterCommand{
		PatientID:  p.ID,
		Class:      encounter.ClassOutpatient,
		Department: "OPD",
	}, nurse)
	require.NoError(t, err)
	assert.Equal(t, encounter.StatusScheduled, e.Status)
	assert.Nil(t, e.StartedAt)

	e, err = h.encounters.StartEncounter(ctx, e.ID, doctor)
	require.NoError(t, err)
	assert.Equal(t, encounter.StatusInProgress, e.Status)
	require.NotNil(t, e.StartedAt)

	e, err = h.encounters.CompleteEncounter(ctx, e.ID, doctor)
	require.NoError(t, err)
	assert.Equal(t, encounter.StatusCompleted, e.Status)
	require.NotNil(t, e.EndedAt)

	_, err = h.encounters.CancelEncounter(ctx, e.ID, doctor)
	assert.ErrorIs(t, err, encounter.ErrInvalidStatusTransition)

	got, err := h.encounters.GetEncounter(ctx, e.ID, doctor)
	require.NoError(t, err)
	assert.Equal(t, encounter.StatusCompleted, got.Status)
}

func TestEncounterService_StartNowAndList(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.registerPatient(t, "Mercy", "Atieno", patient.GenderFemale)

	e, err := h.encounters.CreateEncounter(ctx, &encounter.CreateEncounterCommand{
		PatientID: p.ID,
		Class:     encounter.ClassEmergency,
		StartNow:  true,
	}, nurse)
	require.NoError(t, err)
	assert.Equal(t, encounter.StatusInProgress, e.Status)

	_, err = h.encounters.CreateEncounter(ctx, &encounter.CreateEncounterCommand{PatientID: p.ID, Class: encounter.ClassOutpatient}, nurse)
	require.NoError(t, err)

	cancelled, err := h.encounters.CancelEncounter(ctx, e.ID, doctor)
	require.NoError(t, err)
	assert.Equal(t, encounter.StatusCancelled, cancelled.Status)

	res, err := h.encounters.ListEncounters(ctx, &encounter.ListEncountersQuery{PatientID: &p.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.TotalCount)

	status := encounter.StatusScheduled
	res, err = h.encounters.ListEncounters(ctx, &encounter.ListEncountersQuery{PatientID: &p.ID, Status: &status})
	require.NoError(t, err)
	require.Len(t, res.Encounters, 1)
	assert.Equal(t, encounter.ClassOutpatient, res.Encounters[0].Class)
}
