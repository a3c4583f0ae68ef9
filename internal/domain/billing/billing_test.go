package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
)

const vat = 1600 // 16%

func openBill(items ...BillItem) *Bill {
	b := &Bill{ID: uuid.New(), Status: BillOpen, Items: items}
	b.Recalculate(vat)
	return b
}

func TestRecalculate(t *testing.T) {
	b := openBill(
		BillItem{Quantity: 2, UnitPrice: 150_00},
		BillItem{Quantity: 3, UnitPrice: 33_33, Taxable: true},
	)
	// 99.99 * 0.16 = 15.9984 -> 16.00
	assert.Equal(t, domain.Money(399_99), b.Subtotal)
	assert.Equal(t, domain.Money(16_00), b.Tax)
	assert.Equal(t, domain.Money(415_99), b.Total)
	assert.Equal(t, domain.Money(415_99), b.BalanceDue)
	assert.Equal(t, BillOpen, b.Status)
}

func TestRecalculate_TaxRoundsPerItem(t *testing.T) {
	b := openBill(
		BillItem{Quantity: 1, UnitPrice: 3_13, Taxable: true},
		BillItem{Quantity: 1, UnitPrice: 3_13, Taxable: true},
	)
	// 0.5008 rounds to 0.50 on each line.
	assert.Equal(t, domain.Money(1_00), b.Tax)
}

func TestPaymentsAndStatus(t *testing.T) {
	b := openBill(BillItem{Quantity: 1, UnitPrice: 1000_00})
	by := uuid.New()

	require.NoError(t, b.AddPayment(Payment{Amount: 400_00, Method: MethodMpesa, ReceivedBy: by}, vat))
	assert.Equal(t, BillPartiallyPaid, b.Status)
	assert.Equal(t, domain.Money(600_00), b.BalanceDue)

	assert.ErrorIs(t, b.AddPayment(Payment{Amount: 600_01, Method: MethodCash}, vat), ErrOverpayment)
	assert.ErrorIs(t, b.AddPayment(Payment{Amount: 10_00, Method: "cheque"}, vat), ErrInvalidPaymentMethod)
	assert.ErrorIs(t, b.AddPayment(Payment{Amount: 0, Method: MethodCash}, vat), ErrInvalidAmount)

	require.NoError(t, b.AddPayment(Payment{Amount: 600_00, Method: MethodCash, ReceivedBy: by}, vat))
	assert.Equal(t, BillPaid, b.Status)
	assert.Zero(t, b.BalanceDue)

	assert.ErrorIs(t, b.AddItem(BillItem{Quantity: 1, UnitPrice: 1}), ErrBillClosed)
	assert.ErrorIs(t, b.Void("mistake", time.Now()), ErrBillHasPayments)
}

func TestApplyDiscount(t *testing.T) {
	b := openBill(BillItem{Quantity: 1, UnitPrice: 100_00, Taxable: true})

	assert.ErrorIs(t, b.ApplyDiscount(116_01, "", vat), ErrDiscountTooLarge)
	assert.Zero(t, b.Discount)

	require.NoError(t, b.ApplyDiscount(16_00, "staff", vat))
	assert.Equal(t, domain.Money(100_00), b.Total)

	require.NoError(t, b.AddPayment(Payment{Amount: 90_00, Method: MethodCard}, vat))
	assert.ErrorIs(t, b.ApplyDiscount(30_00, "", vat), ErrDiscountTooLarge)
	assert.Equal(t, domain.Money(16_00), b.Discount)

	require.NoError(t, b.ApplyDiscount(116_00-90_00, "waiver", vat))
	assert.Equal(t, BillPaid, b.Status)
}

func TestEmptyBillIsOpen(t *testing.T) {
	b := openBill()
	assert.Equal(t, BillOpen, b.Status)
	require.NoError(t, b.Void("duplicate", time.Now()))
	b.Recalculate(vat)
	assert.Equal(t, BillVoid, b.Status)
	assert.ErrorIs(t, b.AddItem(BillItem{Quantity: 1}), ErrBillClosed)
}

func TestClaimProgression(t *testing.T) {
	now := time.Now()
	c := &NHIFClaim{Status: ClaimDraft, ClaimedAmount: 5000_00}

	assert.ErrorIs(t, c.MarkPaid(now), ErrInvalidClaimTransition)
	require.NoError(t, c.Submit(now))
	assert.ErrorIs(t, c.Approve(5000_01, now), ErrApprovedExceedsClaimed)
	require.NoError(t, c.Approve(4500_00, now))
	assert.Equal(t, domain.Money(4500_00), c.ApprovedAmount)
	assert.ErrorIs(t, c.Reject("late", now), ErrInvalidClaimTransition)
	require.NoError(t, c.MarkPaid(now))
	assert.Equal(t, ClaimPaid, c.Status)

	r := &NHIFClaim{Status: ClaimDraft, ClaimedAmount: 100}
	require.NoError(t, r.Submit(now))
	require.NoError(t, r.Reject("not covered", now))
	assert.ErrorIs(t, r.MarkPaid(now), ErrInvalidClaimTransition)
}
