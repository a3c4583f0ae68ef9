package memory

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/ward"
)

type WardRepository struct{ s *Store }

func (r *WardRepository) CreateWard(ctx context.Context, w *ward.Ward) error {
	return r.s.with(ctx, func(st *state) error {
		for _, other := range st.wards {
			if other.Code == w.Code {
				return ward.ErrWardCodeTaken
			}
		}
		r.s.stamp(&w.ID, &w.CreatedAt)
		w.UpdatedAt = w.CreatedAt
		st.wards[w.ID] = *w
		return nil
	})
}

func (r *WardRepository) GetWard(ctx context.Context, id uuid.UUID) (*ward.Ward, error) {
	var out ward.Ward
	err := r.s.with(ctx, func(st *state) error {
		w, ok := st.wards[id]
		if !ok {
			return ward.ErrWardNotFound
		}
		out = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *WardRepository) ListWards(ctx context.Context) ([]*ward.Ward, error) {
	var rows []ward.Ward
	err := r.s.with(ctx, func(st *state) error {
		for _, w := range st.wards {
			rows = append(rows, w)
		}
		return nil
	})
	slices.SortFunc(rows, byString(func(w ward.Ward) string { return w.Code }))
	return ptrs(rows), err
}

func (r *WardRepository) CreateBed(ctx context.Context, b *ward.Bed) error {
	return r.s.with(ctx, func(st *state) error {
		for _, other := range st.beds {
			if other.WardID == b.WardID && other.BedNumber == b.BedNumber {
				return ward.ErrBedNumberTaken
			}
		}
		r.s.stamp(&b.ID, &b.CreatedAt)
		b.UpdatedAt = b.CreatedAt
		st.beds[b.ID] = *b
		return nil
	})
}

func (r *WardRepository) GetBed(ctx context.Context, id uuid.UUID) (*ward.Bed, error) {
	var out ward.Bed
	err := r.s.with(ctx, func(st *state) error {
		b, ok := st.beds[id]
		if !ok {
			return ward.ErrBedNotFound
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *WardRepository) GetBedForUpdate(ctx context.Context, id uuid.UUID) (*ward.Bed, error) {
	return r.GetBed(ctx, id)
}

func (r *WardRepository) SaveBed(ctx context.Context, b *ward.Bed) error {
	return r.s.with(ctx, func(st *state) error {
		if _, ok := st.beds[b.ID]; !ok {
			return ward.ErrBedNotFound
		}
		if b.Status == ward.BedOccupied && b.CurrentPatientID != nil {
			for id, other := range st.beds {
				if id != b.ID && other.Status == ward.BedOccupied && samePatient(other.CurrentPatientID, *b.CurrentPatientID) {
					return ward.ErrPatientHasBed
				}
			}
		}
		b.UpdatedAt = r.s.now()
		st.beds[b.ID] = *b
		return nil
	})
}

func (r *WardRepository) BedForPatient(ctx context.Context, patientID uuid.UUID) (*ward.Bed, error) {
	var out *ward.Bed
	err := r.s.with(ctx, func(st *state) error {
		for _, b := range st.beds {
			if b.Status == ward.BedOccupied && samePatient(b.CurrentPatientID, patientID) {
				out = &b
				return nil
			}
		}
		return nil
	})
	return out, err
}

func samePatient(id *uuid.UUID, patientID uuid.UUID) bool {
	return id != nil && *id == patientID
}

func (r *WardRepository) ListBeds(ctx context.Context, q *ward.ListBedsQuery) ([]*ward.Bed, error) {
	var rows []ward.Bed
	err := r.s.with(ctx, func(st *state) error {
		for _, b := range st.beds {
			if matches(q.WardID, b.WardID) && matches(q.Status, b.Status) {
				rows = append(rows, b)
			}
		}
		return nil
	})
	slices.SortFunc(rows, byString(func(b ward.Bed) string { return b.WardID.String() + "/" + b.BedNumber }))
	return ptrs(rows), err
}

func (r *WardRepository) CreateAdmission(ctx context.Context, a *ward.Admission) error {
	return r.s.with(ctx, func(st *state) error {
		for _, other := range st.admissions {
			if other.PatientID == a.PatientID && other.IsOpen() {
				return ward.ErrAlreadyAdmitted
			}
		}
		r.s.stamp(&a.ID, &a.CreatedAt)
		a.UpdatedAt = a.CreatedAt
		st.admissions[a.ID] = *a
		return nil
	})
}

func (r *WardRepository) GetAdmission(ctx context.Context, id uuid.UUID) (*ward.Admission, error) {
	var out ward.Admission
	err := r.s.with(ctx, func(st *state) error {
		a, ok := st.admissions[id]
		if !ok {
			return ward.ErrAdmissionNotFound
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *WardRepository) GetAdmissionForUpdate(ctx context.Context, id uuid.UUID) (*ward.Admission, error) {
	return r.GetAdmission(ctx, id)
}

func (r *WardRepository) SaveAdmission(ctx context.Context, a *ward.Admission) error {
	return r.s.with(ctx, func(st *state) error {
		if _, ok := st.admissions[a.ID]; !ok {
			return ward.ErrAdmissionNotFound
		}
		a.UpdatedAt = r.s.now()
		st.admissions[a.ID] = *a
		return nil
	})
}

func (r *WardRepository) ListAdmissions(ctx context.Context, q *ward.ListAdmissionsQuery) (*ward.PagedAdmissions, error) {
	out := &ward.PagedAdmissions{}
	err := r.s.with(ctx, func(st *state) error {
		var rows []ward.Admission
		for _, a := range sorted(st.admissions, func(a ward.Admission) time.Time { return a.AdmittedAt }) {
			if matches(q.PatientID, a.PatientID) && matches(q.WardID, a.WardID) && matches(q.Status, a.Status) {
				rows = append(rows, a)
			}
		}
		slices.Reverse(rows)
		out.Admissions, out.TotalCount, out.Page, out.PageSize = page(rows, q.Page, q.PageSize)
		out.TotalPages = domain.TotalPages(out.TotalCount, out.PageSize)
		return nil
	})
	return out, err
}

func (r *WardRepository) OpenAdmissionForPatient(ctx context.Context, patientID uuid.UUID) (*ward.Admission, error) {
	var out *ward.Admission
	err := r.s.with(ctx, func(st *state) error {
		for _, a := range st.admissions {
			if a.PatientID == patientID && a.IsOpen() {
				out = &a
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *WardRepository) CreateTransfer(ctx context.Context, t *ward.BedTransfer) error {
	return r.s.with(ctx, func(st *state) error {
		r.s.stamp(&t.ID, nil)
		st.transfers = append(st.transfers, *t)
		return nil
	})
}

func (r *WardRepository) ListTransfers(ctx context.Context, admissionID uuid.UUID) ([]*ward.BedTransfer, error) {
	var rows []ward.BedTransfer
	err := r.s.with(ctx, func(st *state) error {
		for _, t := range st.transfers {
			if t.AdmissionID == admissionID {
				rows = append(rows, t)
			}
		}
		return nil
	})
	return ptrs(rows), err
}
