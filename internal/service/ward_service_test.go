package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/billing"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/encounter"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/patient"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/ward"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/events"
)

func (h *harness) ward(t *testing.T, code string, restrict ward.GenderRestriction, beds ...string) (*ward.Ward, []*ward.Bed) {
	t.Helper()
	ctx := context.Background()
	w, err := h.wards.CreateWard(ctx, &ward.CreateWardCommand{
		Code:              code,
		Name:              code + " Ward",
		Type:              ward.WardGeneral,
		GenderRestriction: restrict,
		DailyRate:         250000,
	}, admin)
	require.NoError(t, err)
	out := make([]*ward.Bed, 0, len(beds))
	for _, n := range beds {
		b, err := h.wards.CreateBed(ctx, &ward.CreateBedCommand{WardID: w.ID, BedNumber: n}, admin)
		require.NoError(t, err)
		out = append(out, b)
	}
	return w, out
}

func TestWardService_CreateWardValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.wards.CreateWard(ctx, &ward.CreateWardCommand{DailyRate: -1}, admin)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 3)

	_, err = h.wards.CreateWard(ctx, &ward.CreateWardCommand{Code: "x", Name: "X", Type: "morgue"}, admin)
	assert.ErrorIs(t, err, ward.ErrInvalidWardType)

	w, err := h.wards.CreateWard(ctx, &ward.CreateWardCommand{Code: " gw1 ", Name: "General", Type: ward.WardGeneral}, admin)
	require.NoError(t, err)
	assert.Equal(t, "GW1", w.Code)

	_, err = h.wards.CreateWard(ctx, &ward.CreateWardCommand{Code: "GW1", Name: "Again", Type: ward.WardGeneral}, admin)
	assert.ErrorIs(t, err, ward.ErrWardCodeTaken)

	_, err = h.wards.CreateBed(ctx, &ward.CreateBedCommand{WardID: w.ID}, admin)
	require.ErrorAs(t, err, &verr)
}

func TestWardService_AdmitTransferDischarge(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	w, beds := h.ward(t, "GEN", ward.GenderAny, "A1", "A2")
	p := h.registerPatient(t, "Achieng", "Otieno", patient.GenderFemale)

	a, err := h.wards.Admit(ctx, &ward.AdmitCommand{
		PatientID: p.ID,
		BedID:     beds[0].ID,
		Diagnosis: "pneumonia",
	}, doctor)
	require.NoError(t, err)
	assert.Equal(t, doctor.UserID, a.DoctorID)
	assert.Equal(t, w.ID, a.WardID)

	enc, err := h.store.Encounters().GetByID(ctx, a.EncounterID)
	require.NoError(t, err)
	assert.Equal(t, encounter.ClassInpatient, enc.Class)
	assert.Equal(t, encounter.StatusInProgress, enc.Status)
	require.NotNil(t, enc.AdmissionID)
	assert.Equal(t, a.ID, *enc.AdmissionID)

	bed, err := h.store.Wards().GetBed(ctx, beds[0].ID)
	require.NoError(t, err)
	assert.Equal(t, ward.BedOccupied, bed.Status)
	assert.Equal(t, a.ID, *bed.CurrentAdmissionID)

	_, err = h.wards.Admit(ctx, &ward.AdmitCommand{PatientID: p.ID, BedID: beds[1].ID}, doctor)
	assert.ErrorIs(t, err, ward.ErrAlreadyAdmitted)

	_, err = h.wards.VacateBed(ctx, beds[0].ID, nurse)
	assert.ErrorIs(t, err, ward.ErrBedOccupied)

	_, err = h.wards.Transfer(ctx, &ward.TransferCommand{AdmissionID: a.ID, ToBedID: beds[0].ID}, nurse)
	assert.ErrorIs(t, err, ward.ErrSameBed)

	a, err = h.wards.Transfer(ctx, &ward.TransferCommand{AdmissionID: a.ID, ToBedID: beds[1].ID, Reason: "closer to station"}, nurse)
	require.NoError(t, err)
	assert.Equal(t, beds[1].ID, a.BedID)

	from, _ := h.store.Wards().GetBed(ctx, beds[0].ID)
	assert.Equal(t, ward.BedCleaning, from.Status)
	assert.Nil(t, from.CurrentPatientID)

	transfers, err := h.wards.ListTransfers(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, beds[0].ID, transfers[0].FromBedID)

	a, err = h.wards.Discharge(ctx, &ward.DischargeCommand{AdmissionID: a.ID, Summary: "improved"}, doctor)
	require.NoError(t, err)
	assert.Equal(t, ward.AdmissionDischarged, a.Status)
	assert.Equal(t, ward.DispositionHome, a.Disposition)

	to, _ := h.store.Wards().GetBed(ctx, beds[1].ID)
	assert.Equal(t, ward.BedCleaning, to.Status)

	enc, _ = h.store.Encounters().GetByID(ctx, a.EncounterID)
	assert.Equal(t, encounter.StatusCompleted, enc.Status)

	bills, err := h.billing.ListBills(ctx, &billing.ListBillsQuery{PatientID: &p.ID})
	require.NoError(t, err)
	require.Len(t, bills.Bills, 1)
	bill, err := h.billing.GetBill(ctx, bills.Bills[0].ID, cashier)
	require.NoError(t, err)
	require.Len(t, bill.Items, 1)
	assert.Equal(t, billing.CategoryBed, bill.Items[0].Category)
	assert.Equal(t, 1, bill.Items[0].Quantity)
	assert.Equal(t, w.DailyRate, bill.Total)
	require.NotNil(t, bill.AdmissionID)
	assert.Equal(t, a.ID, *bill.AdmissionID)

	_, err = h.wards.Discharge(ctx, &ward.DischargeCommand{AdmissionID: a.ID}, doctor)
	assert.ErrorIs(t, err, ward.ErrAdmissionClosed)

	assert.Equal(t, []events.Type{events.PatientAdmitted, events.BedTransferred, events.PatientDischarged}, h.pub.types())
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.AdmissionsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.TransfersTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.DischargesTotal.WithLabelValues("home")))
}

func TestWardService_GenderRestriction(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, beds := h.ward(t, "MAT", ward.GenderFemale, "M1")
	p := h.registerPatient(t, "Brian", "Kiprono", patient.GenderMale)

	_, err := h.wards.Admit(ctx, &ward.AdmitCommand{PatientID: p.ID, BedID: beds[0].ID}, doctor)
	assert.ErrorIs(t, err, ward.ErrWardGenderMismatch)

	_, err = h.wards.AssignBed(ctx, beds[0].ID, p.ID, nurse)
	assert.ErrorIs(t, err, ward.ErrWardGenderMismatch)

	bed, _ := h.store.Wards().GetBed(ctx, beds[0].ID)
	assert.Equal(t, ward.BedAvailable, bed.Status)

	open, err := h.store.Wards().OpenAdmissionForPatient(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, open)
}

func TestWardService_BedHousekeeping(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, beds := h.ward(t, "OBS", ward.GenderAny, "O1")
	p := h.registerPatient(t, "Wanjiru", "Kamau", patient.GenderFemale)

	b, err := h.wards.AssignBed(ctx, beds[0].ID, p.ID, nurse)
	require.NoError(t, err)
	assert.Equal(t, ward.BedOccupied, b.Status)
	assert.Nil(t, b.CurrentAdmissionID)

	_, err = h.wards.SetBedStatus(ctx, b.ID, ward.BedMaintenance, nurse)
	assert.ErrorIs(t, err, ward.ErrBedOccupied)

	b, err = h.wards.VacateBed(ctx, b.ID, nurse)
	require.NoError(t, err)
	assert.Equal(t, ward.BedCleaning, b.Status)

	b, err = h.wards.SetBedStatus(ctx, b.ID, ward.BedAvailable, nurse)
	require.NoError(t, err)
	assert.True(t, b.IsAvailable())

	occ, err := h.wards.Occupancy(ctx)
	require.NoError(t, err)
	require.Len(t, occ, 1)
	assert.Equal(t, 1, occ[0].ByStatus[ward.BedAvailable])

	require.NoError(t, h.wards.RefreshOccupancyGauge(ctx))
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.BedOccupancy.WithLabelValues("OBS", "available")))
}

func TestWardService_OnePatientOneBed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, beds := h.ward(t, "GEN", ward.GenderAny, "G1", "G2", "G3")
	p := h.registerPatient(t, "Daniel", "Omondi", patient.GenderMale)

	_, err := h.wards.AssignBed(ctx, beds[0].ID, p.ID, nurse)
	require.NoError(t, err)

	_, err = h.wards.AssignBed(ctx, beds[1].ID, p.ID, nurse)
	assert.ErrorIs(t, err, ward.ErrPatientHasBed)

	_, err = h.wards.Admit(ctx, &ward.AdmitCommand{PatientID: p.ID, BedID: beds[2].ID, Diagnosis: "malaria"}, doctor)
	assert.ErrorIs(t, err, ward.ErrPatientHasBed)

	status := ward.BedOccupied
	held, err := h.wards.ListBeds(ctx, &ward.ListBedsQuery{Status: &status})
	require.NoError(t, err)
	assert.Len(t, held, 1)

	_, err = h.wards.VacateBed(ctx, beds[0].ID, nurse)
	require.NoError(t, err)
	a, err := h.wards.Admit(ctx, &ward.AdmitCommand{PatientID: p.ID, BedID: beds[2].ID, Diagnosis: "malaria"}, doctor)
	require.NoError(t, err)
	assert.Equal(t, beds[2].ID, a.BedID)
}

func TestWardService_DeceasedDischargeAndMergeGuard(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, beds := h.ward(t, "ICU", ward.GenderAny, "I1")
	src := h.registerPatient(t, "Juma", "Mwangi", patient.GenderMale)
	dst := h.registerPatient(t, "Otieno", "Barasa", patient.GenderMale)

	a, err := h.wards.Admit(ctx, &ward.AdmitCommand{PatientID: src.ID, BedID: beds[0].ID}, doctor)
	require.NoError(t, err)

	_, err = h.patients.MergePatients(ctx, &patient.MergeCommand{SourceID: src.ID, TargetID: dst.ID, Reason: "dup"}, admin)
	assert.ErrorIs(t, err, patient.ErrMergeActiveStay)

	_, err = h.wards.Discharge(ctx, &ward.DischargeCommand{AdmissionID: a.ID, Disposition: "escaped"}, doctor)
	assert.ErrorIs(t, err, ward.ErrInvalidDisposition)

	_, err = h.wards.Discharge(ctx, &ward.DischargeCommand{AdmissionID: a.ID, Disposition: ward.DispositionDeceased}, doctor)
	require.NoError(t, err)

	got, err := h.store.Patients().GetByID(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, patient.StatusDeceased, got.Status)
}
