package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/consultation"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/encounter"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/patient"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/blobstore"
)

func openConsultation(h *harness, t *testing.T) *consultation.Consultation {
	t.Helper()
	ctx := context.Background()
	p := h.registerPatient(t, "Lucy", "Akinyi", patient.GenderFemale)
	enc, err := h.encounters.CreateEncounter(ctx, &encounter.CreateEncounterCommand{
		PatientID: p.ID,
		Class:     encounter.ClassOutpatient,
		StartNow:  true,
	}, nurse)
	require.NoError(t, err)

	c, err := h.consultations.CreateConsultation(ctx, &consultation.CreateConsultationCommand{
		EncounterID:    enc.ID,
		ChiefComplaint: "fever for three days",
	}, doctor)
	require.NoError(t, err)
	return c
}

func TestCreateConsultation_RequiresClinicianAndOpenEncounter(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.registerPatient(t, "Moses", "Kiptoo", patient.GenderMale)
	enc, err := h.encounters.CreateEncounter(ctx, &encounter.CreateEncounterCommand{PatientID: p.ID, Class: encounter.ClassOutpatient}, nurse)
	require.NoError(t, err)

	_, err = h.consultations.CreateConsultation(ctx, &consultation.CreateConsultationCommand{EncounterID: enc.ID}, cashier)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = h.consultations.CreateConsultation(ctx, &consultation.CreateConsultationCommand{EncounterID: enc.ID}, doctor)
	assert.ErrorIs(t, err, encounter.ErrEncounterNotInProgress)
}

func TestConsultation_AttachCompleteAddendum(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := openConsultation(h, t)

	att, err := h.consultations.AttachDocument(ctx, &AttachCommand{
		ConsultationID: c.ID,
		FileName:       "../../etc/cbc.pdf",
		ContentType:    "application/pdf",
		Body:           strings.NewReader("%PDF-1.4 full blood count"),
	}, doctor)
	require.NoError(t, err)
	assert.Equal(t, "cbc.pdf", att.FileName)
	assert.True(t, strings.HasPrefix(att.StorageKey, "consultations/"+c.ID.String()+"/"))

	url, _, err := h.consultations.AttachmentURL(ctx, c.ID, att.ID, doctor)
	require.NoError(t, err)
	assert.Contains(t, url, att.StorageKey)

	_, err = h.consultations.CompleteConsultation(ctx, c.ID, doctor)
	assert.ErrorIs(t, err, consultation.ErrAssessmentRequired)

	diagnoses := []consultation.Diagnosis{{Code: "B54", Description: "Malaria", Primary: true}}
	_, err = h.consultations.UpdateConsultation(ctx, c.ID, &consultation.UpdateConsultationCommand{Diagnoses: &diagnoses}, doctor)
	require.NoError(t, err)
	done, err := h.consultations.CompleteConsultation(ctx, c.ID, doctor)
	require.NoError(t, err)
	assert.Equal(t, consultation.StatusCompleted, done.Status)

	_, err = h.consultations.AttachDocument(ctx, &AttachCommand{
		ConsultationID: c.ID,
		FileName:       "late.txt",
		Body:           strings.NewReader("too late"),
	}, doctor)
	assert.ErrorIs(t, err, consultation.ErrConsultationLocked)

	_, err = h.consultations.AddAddendum(ctx, c.ID, "  ", doctor)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	_, err = h.consultations.AddAddendum(ctx, c.ID, "Malaria RDT confirmed positive.", doctor)
	require.NoError(t, err)

	got, err := h.consultations.GetConsultation(ctx, c.ID, doctor)
	require.NoError(t, err)
	assert.Len(t, got.Attachments, 1)
	assert.Len(t, got.Addenda, 1)
}

func TestAttachDocument_RejectsOversizedAndEmpty(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := openConsultation(h, t)

	_, err := h.consultations.AttachDocument(ctx, &AttachCommand{
		ConsultationID: c.ID,
		FileName:       "scan.png",
		Body:           strings.NewReader(strings.Repeat("x", 1<<20+1)),
	}, doctor)
	assert.ErrorIs(t, err, consultation.ErrAttachmentTooLarge)

	_, err = h.consultations.AttachDocument(ctx, &AttachCommand{
		ConsultationID: c.ID,
		FileName:       "empty.txt",
		Body:           strings.NewReader(""),
	}, doctor)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, _, err = h.consultations.AttachmentURL(ctx, c.ID, c.ID, doctor)
	assert.ErrorIs(t, err, consultation.ErrAttachmentNotFound)
	_, _, err = h.blobs.Get(ctx, "consultations/missing")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
