package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/billing"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/patient"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/pharmacy"
)

func (h *harness) medication(t *testing.T, name string, stock int, rxOnly bool) *pharmacy.Medication {
	t.Helper()
	m, err := h.pharmacy.CreateMedication(context.Background(), &pharmacy.CreateMedicationCommand{
		Name:                 name,
		Form:                 pharmacy.FormTablet,
		Strength:             "500mg",
		Unit:                 "tablet",
		UnitPrice:            5000,
		InitialStock:         stock,
		ReorderLevel:         5,
		RequiresPrescription: rxOnly,
		Taxable:              true,
	}, pharmacist)
	require.NoError(t, err)
	return m
}

func TestPharmacyService_CreateMedicationValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.pharmacy.CreateMedication(ctx, &pharmacy.CreateMedicationCommand{UnitPrice: -1, InitialStock: -1}, pharmacist)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 4)

	_, err = h.pharmacy.CreateMedication(ctx, &pharmacy.CreateMedicationCommand{Name: "Amoxil", Unit: "tab", Form: "powder"}, pharmacist)
	assert.ErrorIs(t, err, pharmacy.ErrInvalidDosageForm)

	m := h.medication(t, "Paracetamol", 20, false)
	assert.Equal(t, 20, m.StockQuantity)
	moves, err := h.pharmacy.Movements(ctx, m.ID, 0)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, pharmacy.ReasonRestock, moves[0].Reason)
}

func TestPharmacyService_StockMovements(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	m := h.medication(t, "Ibuprofen", 10, false)

	_, err := h.pharmacy.Restock(ctx, &pharmacy.StockCommand{MedicationID: m.ID, Delta: 0}, pharmacist)
	assert.ErrorIs(t, err, pharmacy.ErrInvalidQuantity)

	_, err = h.pharmacy.Adjust(ctx, &pharmacy.StockCommand{MedicationID: m.ID, Delta: -2}, pharmacist)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = h.pharmacy.Adjust(ctx, &pharmacy.StockCommand{MedicationID: m.ID, Delta: -11, Note: "stock take"}, pharmacist)
	assert.ErrorIs(t, err, pharmacy.ErrInsufficientStock)

	m, err = h.pharmacy.Adjust(ctx, &pharmacy.StockCommand{MedicationID: m.ID, Delta: -7, Note: "expired batch"}, pharmacist)
	require.NoError(t, err)
	assert.Equal(t, 3, m.StockQuantity)
	assert.True(t, m.IsLowStock())

	m, err = h.pharmacy.Restock(ctx, &pharmacy.StockCommand{MedicationID: m.ID, Delta: 50}, pharmacist)
	require.NoError(t, err)
	assert.Equal(t, 53, m.StockQuantity)

	moves, err := h.pharmacy.Movements(ctx, m.ID, 10)
	require.NoError(t, err)
	assert.Len(t, moves, 3)

	low, err := h.pharmacy.ListMedications(ctx, &pharmacy.ListMedicationsQuery{LowStock: true})
	require.NoError(t, err)
	assert.Empty(t, low.Medications)
}

func TestPharmacyService_OverTheCounterSale(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.registerPatient(t, "Mercy", "Chebet", patient.GenderFemale)
	otc := h.medication(t, "Paracetamol", 10, false)
	rxOnly := h.medication(t, "Amoxicillin", 10, true)

	_, err := h.pharmacy.OverTheCounterSale(ctx, &pharmacy.SaleCommand{PatientID: p.ID, MedicationID: otc.ID, Quantity: 2}, cashier)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = h.pharmacy.OverTheCounterSale(ctx, &pharmacy.SaleCommand{PatientID: p.ID, MedicationID: rxOnly.ID, Quantity: 2}, pharmacist)
	assert.ErrorIs(t, err, pharmacy.ErrPrescriptionRequired)

	_, err = h.pharmacy.OverTheCounterSale(ctx, &pharmacy.SaleCommand{PatientID: p.ID, MedicationID: otc.ID, Quantity: 11}, pharmacist)
	assert.ErrorIs(t, err, pharmacy.ErrInsufficientStock)

	sale, err := h.pharmacy.OverTheCounterSale(ctx, &pharmacy.SaleCommand{PatientID: p.ID, MedicationID: otc.ID, Quantity: 2}, pharmacist)
	require.NoError(t, err)
	assert.Equal(t, domain.Money(10000), sale.Total)
	require.NotNil(t, sale.BillID)

	m, err := h.pharmacy.GetMedication(ctx, otc.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, m.StockQuantity)

	bill, err := h.billing.GetBill(ctx, *sale.BillID, cashier)
	require.NoError(t, err)
	require.Len(t, bill.Items, 1)
	assert.Equal(t, billing.CategoryPharmacy, bill.Items[0].Category)
	assert.Equal(t, "Paracetamol 500mg", bill.Items[0].Description)
	assert.Equal(t, domain.Money(1600), bill.Tax)
	assert.Equal(t, domain.Money(11600), bill.Total)

	sales, err := h.pharmacy.SalesByPatient(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, sales, 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.DispensesTotal.WithLabelValues("over_the_counter")))
}
