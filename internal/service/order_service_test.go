package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/billing"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/order"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/patient"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/events"
)

func TestOrderService_CreateValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.registerPatient(t, "Dennis", "Kibet", patient.GenderMale)
	items := []order.ItemInput{{Code: "cbc", Name: "Full blood count", Price: 80000}}

	tests := []struct {
		name    string
		cmd     order.CreateOrderCommand
		actor   domain.Actor
		wantErr error
	}{
		{"cashier cannot order", order.CreateOrderCommand{PatientID: p.ID, Type: order.TypeLab, Items: items}, cashier, ErrForbidden},
		{"bad type", order.CreateOrderCommand{PatientID: p.ID, Type: "pathology", Items: items}, doctor, order.ErrInvalidOrderType},
		{"bad priority", order.CreateOrderCommand{PatientID: p.ID, Type: order.TypeLab, Priority: "asap", Items: items}, doctor, order.ErrInvalidPriority},
		{"no items", order.CreateOrderCommand{PatientID: p.ID, Type: order.TypeLab}, nurse, order.ErrNoItems},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.orders.CreateOrder(ctx, &tt.cmd, tt.actor)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := h.orders.CreateOrder(ctx, &order.CreateOrderCommand{
		PatientID: p.ID, Type: order.TypeLab, Items: []order.ItemInput{{Price: -1}},
	}, doctor)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 3)
}

func TestOrderService_CreateChargesPricedItems(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.registerPatient(t, "Esther", "Moraa", patient.GenderFemale)

	o, err := h.orders.CreateOrder(ctx, &order.CreateOrderCommand{
		PatientID: p.ID,
		Type:      order.TypeLab,
		Items: []order.ItemInput{
			{Code: "cbc", Name: "Full blood count", Price: 80000},
			{Code: "mps", Name: "Malaria smear", Price: 50000},
			{Code: "note", Name: "Sample handling"},
		},
	}, doctor)
	require.NoError(t, err)
	assert.Equal(t, order.PriorityRoutine, o.Priority)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, "CBC", o.Items[0].Code)
	assert.Equal(t, o.OrderedAt.Add(24*time.Hour), o.DueAt)
	assert.False(t, o.Overdue)

	bills, err := h.billing.ListBills(ctx, &billing.ListBillsQuery{PatientID: &p.ID})
	require.NoError(t, err)
	require.Len(t, bills.Bills, 1)
	bill, err := h.billing.GetBill(ctx, bills.Bills[0].ID, cashier)
	require.NoError(t, err)
	require.Len(t, bill.Items, 2)
	assert.Equal(t, billing.CategoryLab, bill.Items[0].Category)
	assert.Equal(t, domain.Money(130000), bill.Total)
	assert.Equal(t, []events.Type{events.OrderCreated}, h.pub.types())
}

func TestOrderService_ResultsCompleteOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.registerPatient(t, "Collins", "Omondi", patient.GenderMale)

	o, err := h.orders.CreateOrder(ctx, &order.CreateOrderCommand{
		PatientID: p.ID,
		Type:      order.TypeRadiology,
		Priority:  order.PriorityUrgent,
		Items: []order.ItemInput{
			{Code: "cxr", Name: "Chest X-ray"},
			{Code: "usg", Name: "Abdominal ultrasound"},
		},
	}, doctor)
	require.NoError(t, err)

	o, err = h.orders.StartOrder(ctx, o.ID, nurse)
	require.NoError(t, err)
	assert.Equal(t, order.StatusInProgress, o.Status)
	_, err = h.orders.StartOrder(ctx, o.ID, nurse)
	assert.ErrorIs(t, err, order.ErrInvalidStatusTransition)

	_, err = h.orders.RecordResult(ctx, o.ID, o.Items[0].ID, " ", nurse)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	o, err = h.orders.RecordResult(ctx, o.ID, o.Items[0].ID, "clear lung fields", nurse)
	require.NoError(t, err)
	assert.Equal(t, order.StatusInProgress, o.Status)

	_, err = h.orders.RecordResult(ctx, o.ID, o.Items[0].ID, "again", nurse)
	assert.ErrorIs(t, err, order.ErrItemClosed)

	o, err = h.orders.CancelItem(ctx, o.ID, o.Items[1].ID, doctor)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCompleted, o.Status)
	assert.NotNil(t, o.CompletedAt)

	_, err = h.orders.CancelOrder(ctx, o.ID, "duplicate", doctor)
	assert.ErrorIs(t, err, order.ErrOrderClosed)
}

func TestOrderService_Overdue(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.registerPatient(t, "Halima", "Abdi", patient.GenderFemale)

	create := func(pr order.Priority) *order.Order {
		o, err := h.orders.CreateOrder(ctx, &order.CreateOrderCommand{
			PatientID: p.ID,
			Type:      order.TypeLab,
			Priority:  pr,
			Items:     []order.ItemInput{{Code: "u-e", Name: "Urea and electrolytes"}},
		}, doctor)
		require.NoError(t, err)
		return o
	}
	stat := create(order.PriorityStat)
	routine := create(order.PriorityRoutine)
	cancelled := create(order.PriorityStat)
	_, err := h.orders.CancelOrder(ctx, cancelled.ID, "sample haemolysed", doctor)
	require.NoError(t, err)

	h.orders.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }

	got, err := h.orders.GetOrder(ctx, stat.ID, nurse)
	require.NoError(t, err)
	assert.True(t, got.Overdue)

	overdue, err := h.orders.ListOverdue(ctx, &order.ListOrdersQuery{})
	require.NoError(t, err)
	require.Len(t, overdue.Orders, 1)
	assert.Equal(t, stat.ID, overdue.Orders[0].ID)

	all, err := h.orders.ListOrders(ctx, &order.ListOrdersQuery{PatientID: &p.ID})
	require.NoError(t, err)
	assert.Len(t, all.Orders, 3)

	require.NoError(t, h.orders.RefreshOverdueGauge(ctx))
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.OrdersOverdue.WithLabelValues("stat")))
	assert.Equal(t, float64(0), testutil.ToFloat64(h.metrics.OrdersOverdue.WithLabelValues("routine")))

	h.orders.now = func() time.Time { return time.Now().UTC().Add(25 * time.Hour) }
	overdue, err = h.orders.ListOverdue(ctx, &order.ListOrdersQuery{})
	require.NoError(t, err)
	ids := []any{overdue.Orders[0].ID, overdue.Orders[1].ID}
	assert.ElementsMatch(t, []any{stat.ID, routine.ID}, ids)
}
