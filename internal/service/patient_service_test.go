package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/appointment"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/patient"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/triage"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/ward"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/events"
)

func TestCreatePatient_Validation(t *testing.T) {
	h := newHarness(t)

	_, err := h.patients.CreatePatient(context.Background(), &patient.CreatePatientCommand{
		DateOfBirth: time.Now().Add(48 * time.Hour),
		Gender:      "robot",
		Phone:       "12",
	}, receptionist)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ElementsMatch(t, []string{
		"first_name is required",
		"last_name is required",
		"date_of_birth cannot be in the future",
		"gender is invalid",
		"phone is invalid",
	}, verr.Fields)
}

func TestCreatePatient_NormalizesAndNumbers(t *testing.T) {
	h := newHarness(t)

	p, err := h.patients.CreatePatient(context.Background(), &patient.CreatePatientCommand{
		FirstName:   "  Amina ",
		LastName:    "Otieno",
		DateOfBirth: time.Date(1988, 3, 14, 0, 0, 0, 0, time.UTC),
		Gender:      patient.GenderFemale,
		Phone:       "+254 712-345 678",
		Email:       "Amina@Example.COM",
	}, receptionist)
	require.NoError(t, err)

	assert.Equal(t, "Amina", p.FirstName)
	assert.Equal(t, "0712345678", p.Phone)
	assert.Equal(t, "amina@example.com", p.Email)
	assert.Equal(t, patient.BloodTypeUnknown, p.BloodType)
	assert.NotEmpty(t, p.PatientNumber)
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.PatientsCreatedTotal))
}

func TestCreatePatient_BlocksLikelyDuplicates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cmd := func() *patient.CreatePatientCommand {
		return &patient.CreatePatientCommand{
			FirstName:   "Brian",
			LastName:    "Kamau",
			DateOfBirth: time.Date(1975, 7, 1, 0, 0, 0, 0, time.UTC),
			Gender:      patient.GenderMale,
			NationalID:  "12345678",
		}
	}
	first, err := h.patients.CreatePatient(ctx, cmd(), receptionist)
	require.NoError(t, err)

	_, err = h.patients.CreatePatient(ctx, cmd(), receptionist)
	var dup *DuplicatePatientError
	require.ErrorAs(t, err, &dup)
	require.Len(t, dup.Matches, 1)
	assert.Equal(t, first.ID, dup.Matches[0].Patient.ID)
	assert.Equal(t, 100, dup.Matches[0].Score)

	forced := cmd()
	forced.Force = true
	second, err := h.patients.CreatePatient(ctx, forced, receptionist)
	require.NoError(t, err)
	assert.NotEqual(t, first.PatientNumber, second.PatientNumber)

	matches, err := h.patients.DuplicatesOf(ctx, second.ID, admin)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, first.ID, matches[0].Patient.ID)
}

func TestFindDuplicates_RequiresCriteria(t *testing.T) {
	h := newHarness(t)
	_, err := h.patients.FindDuplicates(context.Background(), patient.MatchCriteria{FirstName: "A"}, nil, admin)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestMergePatients(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	target := h.registerPatient(t, "Cate", "Wanjiru", patient.GenderFemale)
	source := h.registerPatient(t, "Kate", "Wanjiru", patient.GenderFemale)

	appt, err := h.appointments.ScheduleAppointment(ctx, &appointment.CreateAppointmentCommand{
		PatientID:   source.ID,
		DoctorID:    doctor.UserID,
		ScheduledAt: time.Now().Add(24 * time.Hour),
		Type:        appointment.TypeConsultation,
	}, receptionist)
	require.NoError(t, err)

	res, err := h.patients.MergePatients(ctx, &patient.MergeCommand{
		SourceID: source.ID,
		TargetID: target.ID,
		Reason:   "same person registered twice",
	}, admin)
	require.NoError(t, err)
	assert.Equal(t, patient.StatusMerged, res.Source.Status)
	assert.Equal(t, &target.ID, res.Source.MergedIntoID)
	assert.Equal(t, int64(1), res.Reassigned["clinical.appointments"])

	moved, err := h.appointments.GetAppointment(ctx, appt.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, target.ID, moved.PatientID)

	assert.Contains(t, h.pub.types(), events.PatientMerged)
	assert.Len(t, h.store.Patients().MergeLogs(ctx), 1)

	// The retired record cannot take new activity or be merged again.
	_, err = h.appointments.ScheduleAppointment(ctx, &appointment.CreateAppointmentCommand{
		PatientID:   source.ID,
		DoctorID:    doctor.UserID,
		ScheduledAt: time.Now().Add(48 * time.Hour),
		Type:        appointment.TypeFollowUp,
	}, receptionist)
	assert.ErrorIs(t, err, patient.ErrPatientMerged)

	_, err = h.patients.MergePatients(ctx, &patient.MergeCommand{SourceID: target.ID, TargetID: source.ID}, admin)
	assert.ErrorIs(t, err, patient.ErrPatientMerged)
}

func TestMergePatients_BothWaitingInQueue(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	target := h.registerPatient(t, "Faith", "Njeri", patient.GenderFemale)
	source := h.registerPatient(t, "Ruth", "Achieng", patient.GenderFemale)

	kept, err := h.triage.Enqueue(ctx, &triage.EnqueueCommand{PatientID: target.ID, Queue: "opd", Priority: 3}, nurse)
	require.NoError(t, err)
	_, err = h.triage.Enqueue(ctx, &triage.EnqueueCommand{PatientID: source.ID, Queue: "opd", Priority: 2}, nurse)
	require.NoError(t, err)
	lab, err := h.triage.Enqueue(ctx, &triage.EnqueueCommand{PatientID: source.ID, Queue: "lab", Priority: 3}, nurse)
	require.NoError(t, err)

	res, err := h.patients.MergePatients(ctx, &patient.MergeCommand{SourceID: source.ID, TargetID: target.ID}, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Reassigned["clinical.triage_entries:left"])
	assert.Equal(t, int64(2), res.Reassigned["clinical.triage_entries"])

	opd, err := h.triage.ListWaiting(ctx, "opd")
	require.NoError(t, err)
	require.Len(t, opd, 1)
	assert.Equal(t, kept.ID, opd[0].ID)
	assert.Equal(t, target.ID, opd[0].PatientID)

	labQueue, err := h.triage.ListWaiting(ctx, "lab")
	require.NoError(t, err)
	require.Len(t, labQueue, 1)
	assert.Equal(t, lab.ID, labQueue[0].ID)
	assert.Equal(t, target.ID, labQueue[0].PatientID)

	_, err = h.triage.Enqueue(ctx, &triage.EnqueueCommand{PatientID: target.ID, Queue: "opd", Priority: 1}, nurse)
	assert.ErrorIs(t, err, triage.ErrAlreadyQueued)
}

func TestMergePatients_SourceHoldsBed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, beds := h.ward(t, "OBS", ward.GenderAny, "O1")
	target := h.registerPatient(t, "John", "Mutiso", patient.GenderMale)
	source := h.registerPatient(t, "Paul", "Kibet", patient.GenderMale)

	_, err := h.wards.AssignBed(ctx, beds[0].ID, source.ID, nurse)
	require.NoError(t, err)

	_, err = h.patients.MergePatients(ctx, &patient.MergeCommand{SourceID: source.ID, TargetID: target.ID}, admin)
	assert.ErrorIs(t, err, patient.ErrMergeActiveStay)
}

func TestMergePatients_SamePatient(t *testing.T) {
	h := newHarness(t)
	p := h.registerPatient(t, "Dan", "Mwangi", patient.GenderMale)
	_, err := h.patients.MergePatients(context.Background(), &patient.MergeCommand{SourceID: p.ID, TargetID: p.ID}, admin)
	assert.ErrorIs(t, err, patient.ErrMergeSamePatient)
}

func TestDeactivateAndDeceased(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.registerPatient(t, "Esther", "Njeri", patient.GenderFemale)

	dead, err := h.patients.MarkDeceased(ctx, p.ID, doctor)
	require.NoError(t, err)
	assert.Equal(t, patient.StatusDeceased, dead.Status)

	err = h.patients.DeactivatePatient(ctx, p.ID, admin)
	assert.True(t, errors.Is(err, patient.ErrPatientDeceased))

	other := h.registerPatient(t, "Felix", "Odhiambo", patient.GenderMale)
	require.NoError(t, h.patients.DeactivatePatient(ctx, other.ID, admin))
	_, err = h.patients.GetPatient(ctx, other.ID, admin)
	assert.ErrorIs(t, err, patient.ErrPatientNotFound)
}
