package memory

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/billing"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/order"
)

type BillingRepository struct{ s *Store }

// assemble attaches the bill's items and payments in insertion order.
func assemble(st *state, b billing.Bill) billing.Bill {
	b.Items, b.Payments = nil, nil
	for _, it := range st.billItems {
		if it.BillID == b.ID {
			b.Items = append(b.Items, it)
		}
	}
	for _, p := range st.payments {
		if p.BillID == b.ID {
			b.Payments = append(b.Payments, p)
		}
	}
	return b
}

func (r *BillingRepository) Create(ctx context.Context, b *billing.Bill) error {
	return r.s.with(ctx, func(st *state) error {
		r.s.stamp(&b.ID, &b.CreatedAt)
		b.UpdatedAt = b.CreatedAt
		if b.BillNumber == "" {
			b.BillNumber = st.next("bill", "INV", b.CreatedAt)
		}
		row := *b
		row.Items, row.Payments = nil, nil
		st.bills[b.ID] = row
		return nil
	})
}

func (r *BillingRepository) GetByID(ctx context.Context, id uuid.UUID) (*billing.Bill, error) {
	var out billing.Bill
	err := r.s.with(ctx, func(st *state) error {
		b, ok := st.bills[id]
		if !ok {
			return billing.ErrBillNotFound
		}
		out = assemble(st, b)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *BillingRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*billing.Bill, error) {
	return r.GetByID(ctx, id)
}

func (r *BillingRepository) FindOpenForUpdate(ctx context.Context, patientID uuid.UUID, encounterID, admissionID *uuid.UUID) (*billing.Bill, error) {
	var out *billing.Bill
	err := r.s.with(ctx, func(st *state) error {
		rows := sorted(st.bills, func(b billing.Bill) time.Time { return b.CreatedAt })
		slices.Reverse(rows)
		for _, b := range rows {
			if b.PatientID != patientID || !b.IsOpenForCharges() {
				continue
			}
			switch {
			case admissionID != nil:
				if !matchesPtr(admissionID, b.AdmissionID) {
					continue
				}
			case encounterID != nil:
				if !matchesPtr(encounterID, b.EncounterID) {
					continue
				}
			default:
				if b.EncounterID != nil || b.AdmissionID != nil {
					continue
				}
			}
			found := assemble(st, b)
			out = &found
			return nil
		}
		return nil
	})
	return out, err
}

func (r *BillingRepository) SaveTotals(ctx context.Context, b *billing.Bill) error {
	return r.s.with(ctx, func(st *state) error {
		if _, ok := st.bills[b.ID]; !ok {
			return billing.ErrBillNotFound
		}
		b.UpdatedAt = r.s.now()
		row := *b
		row.Items, row.Payments = nil, nil
		st.bills[b.ID] = row
		return nil
	})
}

func (r *BillingRepository) AddItem(ctx context.Context, it *billing.BillItem) error {
	return r.s.with(ctx, func(st *state) error {
		r.s.stamp(&it.ID, &it.CreatedAt)
		st.billItems = append(st.billItems, *it)
		return nil
	})
}

func (r *BillingRepository) AddPayment(ctx context.Context, p *billing.Payment) error {
	return r.s.with(ctx, func(st *state) error {
		r.s.stamp(&p.ID, &p.CreatedAt)
		st.payments = append(st.payments, *p)
		return nil
	})
}

func (r *BillingRepository) List(ctx context.Context, q *billing.ListBillsQuery) (*billing.PagedBills, error) {
	out := &billing.PagedBills{}
	err := r.s.with(ctx, func(st *state) error {
		var rows []billing.Bill
		for _, b := range sorted(st.bills, func(b billing.Bill) time.Time { return b.CreatedAt }) {
			if matches(q.PatientID, b.PatientID) && matches(q.Status, b.Status) {
				rows = append(rows, b)
			}
		}
		slices.Reverse(rows)
		out.Bills, out.TotalCount, out.Page, out.PageSize = page(rows, q.Page, q.PageSize)
		out.TotalPages = domain.TotalPages(out.TotalCount, out.PageSize)
		return nil
	})
	return out, err
}

func (r *BillingRepository) CreateClaim(ctx context.Context, c *billing.NHIFClaim) error {
	return r.s.with(ctx, func(st *state) error {
		r.s.stamp(&c.ID, &c.CreatedAt)
		c.UpdatedAt = c.CreatedAt
		if c.ClaimNumber == "" {
			c.ClaimNumber = st.next("claim", "NHIF", c.CreatedAt)
		}
		st.claims[c.ID] = *c
		return nil
	})
}

func (r *BillingRepository) GetClaim(ctx context.Context, id uuid.UUID) (*billing.NHIFClaim, error) {
	var out billing.NHIFClaim
	err := r.s.with(ctx, func(st *state) error {
		c, ok := st.claims[id]
		if !ok {
			return billing.ErrClaimNotFound
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *BillingRepository) GetClaimForUpdate(ctx context.Context, id uuid.UUID) (*billing.NHIFClaim, error) {
	return r.GetClaim(ctx, id)
}

func (r *BillingRepository) SaveClaim(ctx context.Context, c *billing.NHIFClaim) error {
	return r.s.with(ctx, func(st *state) error {
		if _, ok := st.claims[c.ID]; !ok {
			return billing.ErrClaimNotFound
		}
		c.UpdatedAt = r.s.now()
		st.claims[c.ID] = *c
		return nil
	})
}

func (r *BillingRepository) ListClaims(ctx context.Context, q *billing.ListClaimsQuery) (*billing.PagedClaims, error) {
	out := &billing.PagedClaims{}
	err := r.s.with(ctx, func(st *state) error {
		var rows []billing.NHIFClaim
		for _, c := range sorted(st.claims, func(c billing.NHIFClaim) time.Time { return c.CreatedAt }) {
			if matches(q.PatientID, c.PatientID) && matches(q.Status, c.Status) {
				rows = append(rows, c)
			}
		}
		slices.Reverse(rows)
		out.Claims, out.TotalCount, out.Page, out.PageSize = page(rows, q.Page, q.PageSize)
		out.TotalPages = domain.TotalPages(out.TotalCount, out.PageSize)
		return nil
	})
	return out, err
}

type OrderRepository struct{ s *Store }

func cloneOrder(o order.Order) order.Order {
	o.Items = slices.Clone(o.Items)
	return o
}

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	return r.s.with(ctx, func(st *state) error {
		r.s.stamp(&o.ID, &o.CreatedAt)
		o.UpdatedAt = o.CreatedAt
		for i := range o.Items {
			r.s.stamp(&o.Items[i].ID, &o.Items[i].CreatedAt)
			o.Items[i].UpdatedAt = o.Items[i].CreatedAt
			o.Items[i].OrderID = o.ID
		}
		st.orders[o.ID] = cloneOrder(*o)
		return nil
	})
}

func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var out order.Order
	err := r.s.with(ctx, func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return order.ErrOrderNotFound
		}
		out = cloneOrder(o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *OrderRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *OrderRepository) Save(ctx context.Context, o *order.Order) error {
	return r.s.with(ctx, func(st *state) error {
		if _, ok := st.orders[o.ID]; !ok {
			return order.ErrOrderNotFound
		}
		now := r.s.now()
		o.UpdatedAt = now
		for i := range o.Items {
			o.Items[i].UpdatedAt = now
		}
		st.orders[o.ID] = cloneOrder(*o)
		return nil
	})
}

func (r *OrderRepository) List(ctx context.Context, q *order.ListOrdersQuery, sla order.SLA, now time.Time) (*order.PagedOrders, error) {
	out := &order.PagedOrders{}
	err := r.s.with(ctx, func(st *state) error {
		var rows []order.Order
		for _, o := range sorted(st.orders, func(o order.Order) time.Time { return o.OrderedAt }) {
			if !matches(q.PatientID, o.PatientID) || !matchesPtr(q.EncounterID, o.EncounterID) ||
				!matches(q.Type, o.Type) || !matches(q.Status, o.Status) || !matches(q.Priority, o.Priority) {
				continue
			}
			o = cloneOrder(o)
			o.Evaluate(sla, now)
			if q.OverdueOnly && !o.Overdue {
				continue
			}
			rows = append(rows, o)
		}
		slices.Reverse(rows)
		out.Orders, out.TotalCount, out.Page, out.PageSize = page(rows, q.Page, q.PageSize)
		out.TotalPages = domain.TotalPages(out.TotalCount, out.PageSize)
		return nil
	})
	return out, err
}

func (r *OrderRepository) ListOpen(ctx context.Context) ([]*order.Order, error) {
	var rows []order.Order
	err := r.s.with(ctx, func(st *state) error {
		for _, o := range sorted(st.orders, func(o order.Order) time.Time { return o.OrderedAt }) {
			if !o.IsClosed() {
				rows = append(rows, cloneOrder(o))
			}
		}
		return nil
	})
	return ptrs(rows), err
}

// AuditRepository keeps entries in the committed state only, like the SQL
// repository that never joins the caller's transaction.
type AuditRepository struct{ s *Store }

func (r *AuditRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	return r.CreateBatch(ctx, []*domain.AuditLog{entry})
}

func (r *AuditRepository) CreateBatch(_ context.Context, entries []*domain.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range entries {
		r.s.stamp(&e.ID, &e.OccurredAt)
		r.s.state.audit = append(r.s.state.audit, *e)
	}
	return nil
}

// Entries returns a copy of every audit entry written so far.
func (r *AuditRepository) Entries() []domain.AuditLog {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return slices.Clone(r.s.state.audit)
}
