package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/appointment"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/encounter"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/patient"
)

func scheduleAt(h *harness, t *testing.T, p *patient.Patient, at time.Time) *appointment.Appointment {
	t.Helper()
	a, err := h.appointments.ScheduleAppointment(context.Background(), &appointment.CreateAppointmentCommand{
		PatientID:      p.ID,
		DoctorID:       doctor.UserID,
		ScheduledAt:    at,
		Type:           appointment.TypeConsultation,
		ChiefComplaint: "headache",
	}, receptionist)
	require.NoError(t, err)
	return a
}

func TestScheduleAppointment_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.registerPatient(t, "Grace", "Achieng", patient.GenderFemale)

	tests := []struct {
		name string
		cmd  appointment.CreateAppointmentCommand
		want error
	}{
		{"past", appointment.CreateAppointmentCommand{ScheduledAt: time.Now().Add(-time.Hour), Type: appointment.TypeConsultation}, appointment.ErrScheduledInPast},
		{"too short", appointment.CreateAppointmentCommand{ScheduledAt: time.Now().Add(time.Hour), DurationMins: 2, Type: appointment.TypeConsultation}, appointment.ErrInvalidDuration},
		{"bad type", appointment.CreateAppointmentCommand{ScheduledAt: time.Now().Add(time.Hour), Type: "surgery"}, appointment.ErrInvalidAppointmentType},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cmd := tc.cmd
			cmd.PatientID = p.ID
			cmd.DoctorID = doctor.UserID
			_, err := h.appointments.ScheduleAppointment(ctx, &cmd, receptionist)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestScheduleAppointment_DoctorConflict(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.registerPatient(t, "Hassan", "Ali", patient.GenderMale)
	at := time.Now().Add(24 * time.Hour).Truncate(time.Minute)
	first := scheduleAt(h, t, p, at)

	_, err := h.appointments.ScheduleAppointment(ctx, &appointment.CreateAppointmentCommand{
		PatientID:   p.ID,
		DoctorID:    doctor.UserID,
		ScheduledAt: at.Add(15 * time.Minute),
		Type:        appointment.TypeFollowUp,
	}, receptionist)
	assert.ErrorIs(t, err, appointment.ErrAppointmentConflict)

	// Back to back is fine, and a cancelled slot frees the doctor.
	scheduleAt(h, t, p, at.Add(30*time.Minute))
	_, err = h.appointments.CancelAppointment(ctx, first.ID, "patient travelling", receptionist)
	require.NoError(t, err)
	scheduleAt(h, t, p, at)
}

func TestReschedule_ResetsConfirmation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.registerPatient(t, "Irene", "Chebet", patient.GenderFemale)
	a := scheduleAt(h, t, p, time.Now().Add(24*time.Hour))

	_, err := h.appointments.ConfirmAppointment(ctx, a.ID, receptionist)
	require.NoError(t, err)

	moved, err := h.appointments.Reschedule(ctx, a.ID, &appointment.RescheduleCommand{ScheduledAt: time.Now().Add(72 * time.Hour)}, receptionist)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusScheduled, moved.Status)
}

func TestCheckIn_OpensEncounterAndCompletesTogether(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.registerPatient(t, "James", "Kiprop", patient.GenderMale)
	a := scheduleAt(h, t, p, time.Now().Add(time.Hour))

	checked, enc, err := h.appointments.CheckIn(ctx, a.ID, receptionist)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusInProgress, checked.Status)
	assert.NotNil(t, checked.CheckedInAt)
	assert.Equal(t, encounter.StatusInProgress, enc.Status)
	assert.Equal(t, encounter.ClassOutpatient, enc.Class)
	assert.Equal(t, &a.ID, enc.AppointmentID)

	_, _, err = h.appointments.CheckIn(ctx, a.ID, receptionist)
	assert.ErrorIs(t, err, appointment.ErrInvalidStatusTransition)

	_, err = h.encounters.CompleteEncounter(ctx, enc.ID, doctor)
	require.NoError(t, err)
	done, err := h.appointments.GetAppointment(ctx, a.ID, doctor)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusCompleted, done.Status)

	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.AppointmentsTotal.WithLabelValues(string(appointment.StatusInProgress))))
}
