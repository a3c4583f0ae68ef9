package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/billing"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/order"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/patient"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/prescription"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/ward"
)

func TestWithinTransaction_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	boom := errors.New("boom")

	err := s.WithinTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, s.Patients().Create(ctx, &patient.Patient{FirstName: "Amina", LastName: "Otieno"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	page, err := s.Patients().List(ctx, &patient.ListPatientsQuery{})
	require.NoError(t, err)
	assert.Zero(t, page.TotalCount)
}

func TestWithinTransaction_NestedJoinsOuter(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	var id uuid.UUID
	err := s.WithinTransaction(ctx, func(ctx context.Context) error {
		p := &patient.Patient{FirstName: "Brian", LastName: "Kamau"}
		if err := s.Patients().Create(ctx, p); err != nil {
			return err
		}
		id = p.ID
		return s.WithinTransaction(ctx, func(ctx context.Context) error {
			_, err := s.Patients().GetByID(ctx, id)
			return err
		})
	})
	require.NoError(t, err)

	got, err := s.Patients().GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Brian", got.FirstName)
	assert.Regexp(t, `^P\d{10}$`, got.PatientNumber)
}

func TestPatient_ReturnedCopiesAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p := &patient.Patient{FirstName: "Cate", LastName: "Wanjiru", Allergies: []string{"penicillin"}}
	require.NoError(t, s.Patients().Create(ctx, p))

	got, err := s.Patients().GetByID(ctx, p.ID)
	require.NoError(t, err)
	got.Allergies[0] = "changed"

	again, err := s.Patients().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"penicillin"}, again.Allergies)
}

func TestWard_DuplicateCodesAndOpenAdmissions(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := s.Wards()

	require.NoError(t, repo.CreateWard(ctx, &ward.Ward{Code: "MED1", Name: "Medical 1"}))
	assert.ErrorIs(t, repo.CreateWard(ctx, &ward.Ward{Code: "MED1", Name: "Other"}), ward.ErrWardCodeTaken)

	patientID := uuid.New()
	none, err := repo.OpenAdmissionForPatient(ctx, patientID)
	require.NoError(t, err)
	assert.Nil(t, none)

	first := &ward.Admission{PatientID: patientID, Status: ward.AdmissionAdmitted}
	require.NoError(t, repo.CreateAdmission(ctx, first))
	err = repo.CreateAdmission(ctx, &ward.Admission{PatientID: patientID, Status: ward.AdmissionAdmitted})
	assert.ErrorIs(t, err, ward.ErrAlreadyAdmitted)

	open, err := repo.OpenAdmissionForPatient(ctx, patientID)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, first.ID, open.ID)
}

func TestPrescription_ExpireStaleVoidsOpenExceptions(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := s.Prescriptions()
	now := time.Now().UTC()

	stale := &prescription.Prescription{Status: prescription.StatusActive, IssuedAt: now.Add(-48 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
	fresh := &prescription.Prescription{Status: prescription.StatusActive, IssuedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, stale))
	require.NoError(t, repo.Create(ctx, fresh))
	exc := &prescription.DispenseException{PrescriptionID: stale.ID, Status: prescription.ExceptionPending}
	require.NoError(t, repo.CreateException(ctx, exc))

	n, err := repo.ExpireStale(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, prescription.StatusExpired, got.Status)

	gotExc, err := repo.GetException(ctx, exc.ID)
	require.NoError(t, err)
	assert.Equal(t, prescription.ExceptionVoid, gotExc.Status)

	open, err := repo.OpenException(ctx, stale.ID)
	require.NoError(t, err)
	assert.Nil(t, open)
}

func TestBilling_FindOpenForUpdateScopesByVisit(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := s.Billing()
	patientID, encounterID := uuid.New(), uuid.New()

	walkIn := &billing.Bill{PatientID: patientID, Status: billing.BillOpen}
	visit := &billing.Bill{PatientID: patientID, EncounterID: &encounterID, Status: billing.BillOpen}
	require.NoError(t, repo.Create(ctx, walkIn))
	require.NoError(t, repo.Create(ctx, visit))
	assert.NotEqual(t, walkIn.BillNumber, visit.BillNumber)

	require.NoError(t, repo.AddItem(ctx, &billing.BillItem{BillID: visit.ID, Quantity: 1, UnitPrice: domain.Money(500)}))

	got, err := repo.FindOpenForUpdate(ctx, patientID, &encounterID, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, visit.ID, got.ID)
	assert.Len(t, got.Items, 1)

	got, err = repo.FindOpenForUpdate(ctx, patientID, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, walkIn.ID, got.ID)

	admissionID := uuid.New()
	got, err = repo.FindOpenForUpdate(ctx, patientID, nil, &admissionID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOrder_ListOverdueOnly(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := s.Orders()
	now := time.Now().UTC()
	sla := order.DefaultSLA()

	late := &order.Order{Priority: order.PriorityStat, Status: order.StatusPending, OrderedAt: now.Add(-24 * time.Hour),
		Items: []order.OrderItem{{Code: "CBC", Name: "Full blood count"}}}
	onTime := &order.Order{Priority: order.PriorityRoutine, Status: order.StatusPending, OrderedAt: now}
	require.NoError(t, repo.Create(ctx, late))
	require.NoError(t, repo.Create(ctx, onTime))
	assert.Equal(t, late.ID, late.Items[0].OrderID)

	page, err := repo.List(ctx, &order.ListOrdersQuery{OverdueOnly: true}, sla, now)
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, late.ID, page.Orders[0].ID)
	assert.True(t, page.Orders[0].Overdue)

	open, err := repo.ListOpen(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 2)
}
