package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/pharmacy"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/prescription"
)

type PharmacyRepository struct{ s *Store }

func (r *PharmacyRepository) CreateMedication(ctx context.Context, m *pharmacy.Medication) error {
	return r.s.with(ctx, func(st *state) error {
		r.s.stamp(&m.ID, &m.CreatedAt)
		m.UpdatedAt = m.CreatedAt
		st.medications[m.ID] = *m
		return nil
	})
}

func (r *PharmacyRepository) GetMedication(ctx context.Context, id uuid.UUID) (*pharmacy.Medication, error) {
	var out pharmacy.Medication
	err := r.s.with(ctx, func(st *state) error {
		m, ok := st.medications[id]
		if !ok {
			return pharmacy.ErrMedicationNotFound
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *PharmacyRepository) GetMedicationForUpdate(ctx context.Context, id uuid.UUID) (*pharmacy.Medication, error) {
	return r.GetMedication(ctx, id)
}

func (r *PharmacyRepository) SaveMedication(ctx context.Context, m *pharmacy.Medication) error {
	return r.s.with(ctx, func(st *state) error {
		if _, ok := st.medications[m.ID]; !ok {
			return pharmacy.ErrMedicationNotFound
		}
		m.UpdatedAt = r.s.now()
		st.medications[m.ID] = *m
		return nil
	})
}

func (r *PharmacyRepository) ListMedications(ctx context.Context, q *pharmacy.ListMedicationsQuery) (*pharmacy.PagedMedications, error) {
	out := &pharmacy.PagedMedications{}
	err := r.s.with(ctx, func(st *state) error {
		search := strings.ToLower(strings.TrimSpace(q.Search))
		var rows []pharmacy.Medication
		for _, m := range st.medications {
			if search != "" &&
				!strings.Contains(strings.ToLower(m.Name), search) &&
				!strings.Contains(strings.ToLower(m.GenericName), search) {
				continue
			}
			if (q.LowStock && !m.IsLowStock()) || !matches(q.Active, m.IsActive) {
				continue
			}
			rows = append(rows, m)
		}
		slices.SortFunc(rows, byString(func(m pharmacy.Medication) string { return m.Name }))
		out.Medications, out.TotalCount, out.Page, out.PageSize = page(rows, q.Page, q.PageSize)
		out.TotalPages = domain.TotalPages(out.TotalCount, out.PageSize)
		return nil
	})
	return out, err
}

func (r *PharmacyRepository) CreateMovement(ctx context.Context, mv *pharmacy.StockMovement) error {
	return r.s.with(ctx, func(st *state) error {
		r.s.stamp(&mv.ID, &mv.CreatedAt)
		st.movements = append(st.movements, *mv)
		return nil
	})
}

// ListMovements returns the newest movements first.
func (r *PharmacyRepository) ListMovements(ctx context.Context, medicationID uuid.UUID, limit int) ([]*pharmacy.StockMovement, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []pharmacy.StockMovement
	err := r.s.with(ctx, func(st *state) error {
		for i := len(st.movements) - 1; i >= 0 && len(rows) < limit; i-- {
			if st.movements[i].MedicationID == medicationID {
				rows = append(rows, st.movements[i])
			}
		}
		return nil
	})
	return ptrs(rows), err
}

func (r *PharmacyRepository) CreateSale(ctx context.Context, s *pharmacy.PharmacySale) error {
	return r.s.with(ctx, func(st *state) error {
		r.s.stamp(&s.ID, &s.CreatedAt)
		st.sales[s.ID] = *s
		return nil
	})
}

func (r *PharmacyRepository) GetSale(ctx context.Context, id uuid.UUID) (*pharmacy.PharmacySale, error) {
	var out pharmacy.PharmacySale
	err := r.s.with(ctx, func(st *state) error {
		s, ok := st.sales[id]
		if !ok {
			return pharmacy.ErrSaleNotFound
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *PharmacyRepository) ListSalesByPatient(ctx context.Context, patientID uuid.UUID) ([]*pharmacy.PharmacySale, error) {
	var rows []pharmacy.PharmacySale
	err := r.s.with(ctx, func(st *state) error {
		for _, s := range sorted(st.sales, func(s pharmacy.PharmacySale) time.Time { return s.CreatedAt }) {
			if s.PatientID == patientID {
				rows = append(rows, s)
			}
		}
		return nil
	})
	return ptrs(rows), err
}

type PrescriptionRepository struct{ s *Store }

func dispensable(p prescription.Prescription) bool {
	return p.Status == prescription.StatusActive || p.Status == prescription.StatusPartiallyDispensed
}

func (r *PrescriptionRepository) Create(ctx context.Context, p *prescription.Prescription) error {
	return r.s.with(ctx, func(st *state) error {
		r.s.stamp(&p.ID, &p.CreatedAt)
		p.UpdatedAt = p.CreatedAt
		st.prescriptions[p.ID] = *p
		return nil
	})
}

func (r *PrescriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*prescription.Prescription, error) {
	var out prescription.Prescription
	err := r.s.with(ctx, func(st *state) error {
		p, ok := st.prescriptions[id]
		if !ok {
			return prescription.ErrPrescriptionNotFound
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *PrescriptionRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*prescription.Prescription, error) {
	return r.GetByID(ctx, id)
}

func (r *PrescriptionRepository) Save(ctx context.Context, p *prescription.Prescription) error {
	return r.s.with(ctx, func(st *state) error {
		if _, ok := st.prescriptions[p.ID]; !ok {
			return prescription.ErrPrescriptionNotFound
		}
		p.UpdatedAt = r.s.now()
		st.prescriptions[p.ID] = *p
		return nil
	})
}

func (r *PrescriptionRepository) List(ctx context.Context, q *prescription.ListPrescriptionsQuery) (*prescription.PagedPrescriptions, error) {
	out := &prescription.PagedPrescriptions{}
	err := r.s.with(ctx, func(st *state) error {
		var rows []prescription.Prescription
		for _, p := range sorted(st.prescriptions, func(p prescription.Prescription) time.Time { return p.IssuedAt }) {
			if matches(q.PatientID, p.PatientID) && matches(q.DoctorID, p.DoctorID) && matches(q.Status, p.Status) {
				rows = append(rows, p)
			}
		}
		slices.Reverse(rows)
		out.Prescriptions, out.TotalCount, out.Page, out.PageSize = page(rows, q.Page, q.PageSize)
		out.TotalPages = domain.TotalPages(out.TotalCount, out.PageSize)
		return nil
	})
	return out, err
}

func (r *PrescriptionRepository) GetActiveByPatient(ctx context.Context, patientID uuid.UUID) ([]*prescription.Prescription, error) {
	now := r.s.now()
	var rows []prescription.Prescription
	err := r.s.with(ctx, func(st *state) error {
		for _, p := range sorted(st.prescriptions, func(p prescription.Prescription) time.Time { return p.IssuedAt }) {
			if p.PatientID == patientID && dispensable(p) && p.ExpiresAt.After(now) {
				rows = append(rows, p)
			}
		}
		return nil
	})
	slices.Reverse(rows)
	return ptrs(rows), err
}

func (r *PrescriptionRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.s.with(ctx, func(st *state) error {
		for id, p := range st.prescriptions {
			if !dispensable(p) || p.ExpiresAt.After(now) {
				continue
			}
			p.Status = prescription.StatusExpired
			p.UpdatedAt = now
			st.prescriptions[id] = p
			n++
			for eid, e := range st.exceptions {
				if e.PrescriptionID == id && e.IsOpen() {
					e.Status = prescription.ExceptionVoid
					e.UpdatedAt = now
					st.exceptions[eid] = e
				}
			}
		}
		return nil
	})
	return n, err
}

func (r *PrescriptionRepository) CreateException(ctx context.Context, e *prescription.DispenseException) error {
	return r.s.with(ctx, func(st *state) error {
		for _, other := range st.exceptions {
			if other.PrescriptionID == e.PrescriptionID && other.IsOpen() {
				return prescription.ErrExceptionOpen
			}
		}
		r.s.stamp(&e.ID, &e.CreatedAt)
		e.UpdatedAt = e.CreatedAt
		st.exceptions[e.ID] = *e
		return nil
	})
}

func (r *PrescriptionRepository) GetException(ctx context.Context, id uuid.UUID) (*prescription.DispenseException, error) {
	var out prescription.DispenseException
	err := r.s.with(ctx, func(st *state) error {
		e, ok := st.exceptions[id]
		if !ok {
			return prescription.ErrExceptionNotFound
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *PrescriptionRepository) GetExceptionForUpdate(ctx context.Context, id uuid.UUID) (*prescription.DispenseException, error) {
	return r.GetException(ctx, id)
}

func (r *PrescriptionRepository) SaveException(ctx context.Context, e *prescription.DispenseException) error {
	return r.s.with(ctx, func(st *state) error {
		if _, ok := st.exceptions[e.ID]; !ok {
			return prescription.ErrExceptionNotFound
		}
		e.UpdatedAt = r.s.now()
		st.exceptions[e.ID] = *e
		return nil
	})
}

func (r *PrescriptionRepository) ListExceptions(ctx context.Context, prescriptionID uuid.UUID) ([]*prescription.DispenseException, error) {
	var rows []prescription.DispenseException
	err := r.s.with(ctx, func(st *state) error {
		for _, e := range sorted(st.exceptions, func(e prescription.DispenseException) time.Time { return e.CreatedAt }) {
			if e.PrescriptionID == prescriptionID {
				rows = append(rows, e)
			}
		}
		return nil
	})
	return ptrs(rows), err
}

func (r *PrescriptionRepository) OpenException(ctx context.Context, prescriptionID uuid.UUID) (*prescription.DispenseException, error) {
	var out *prescription.DispenseException
	err := r.s.with(ctx, func(st *state) error {
		for _, e := range st.exceptions {
			if e.PrescriptionID == prescriptionID && e.IsOpen() {
				out = &e
				return nil
			}
		}
		return nil
	})
	return out, err
}
