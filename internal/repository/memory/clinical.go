package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/appointment"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/billing"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/consultation"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/encounter"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/order"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/patient"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/pharmacy"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/prescription"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/triage"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/ward"
)

type PatientRepository struct{ s *Store }

func clonePatient(p patient.Patient) patient.Patient {
	p.Allergies = slices.Clone(p.Allergies)
	return p
}

func (r *PatientRepository) Create(ctx context.Context, p *patient.Patient) error {
	return r.s.with(ctx, func(st *state) error {
		r.s.stamp(&p.ID, &p.CreatedAt)
		p.UpdatedAt = p.CreatedAt
		p.PatientNumber = st.next("patient", "P", p.CreatedAt)
		st.patients[p.ID] = clonePatient(*p)
		return nil
	})
}

func (r *PatientRepository) GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	var out patient.Patient
	err := r.s.with(ctx, func(st *state) error {
		p, ok := st.patients[id]
		if !ok || p.DeletedAt != nil {
			return patient.ErrPatientNotFound
		}
		out = clonePatient(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *PatientRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	return r.GetByID(ctx, id)
}

func (r *PatientRepository) Save(ctx context.Context, p *patient.Patient) error {
	return r.s.with(ctx, func(st *state) error {
		if _, ok := st.patients[p.ID]; !ok {
			return patient.ErrPatientNotFound
		}
		p.UpdatedAt = r.s.now()
		st.patients[p.ID] = clonePatient(*p)
		return nil
	})
}

func (r *PatientRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.s.with(ctx, func(st *state) error {
		p, ok := st.patients[id]
		if !ok || p.DeletedAt != nil {
			return patient.ErrPatientNotFound
		}
		now := r.s.now()
		p.DeletedAt = &now
		p.Status = patient.StatusInactive
		st.patients[id] = p
		return nil
	})
}

func (r *PatientRepository) List(ctx context.Context, q *patient.ListPatientsQuery) (*patient.PagedPatients, error) {
	out := &patient.PagedPatients{}
	err := r.s.with(ctx, func(st *state) error {
		search := strings.ToLower(strings.TrimSpace(q.Search))
		phone := patient.NormalizePhone(search)
		var rows []patient.Patient
		for _, p := range sorted(st.patients, func(p patient.Patient) time.Time { return p.CreatedAt }) {
			if p.DeletedAt != nil || !matches(q.Status, p.Status) {
				continue
			}
			if search != "" &&
				!strings.Contains(strings.ToLower(p.FirstName+" "+p.LastName), search) &&
				!strings.Contains(strings.ToLower(p.PatientNumber), search) &&
				(len(phone) < 4 || !strings.Contains(p.Phone, phone)) {
				continue
			}
			rows = append(rows, clonePatient(p))
		}
		slices.SortStableFunc(rows, byString(func(p patient.Patient) string { return p.LastName + " " + p.FirstName }))
		out.Patients, out.TotalCount, out.Page, out.PageSize = page(rows, q.Page, q.PageSize)
		out.TotalPages = domain.TotalPages(out.TotalCount, out.PageSize)
		return nil
	})
	return out, err
}

// FindCandidates returns every live, unmerged record; scoring filters them.
func (r *PatientRepository) FindCandidates(ctx context.Context, _ patient.MatchCriteria) ([]*patient.Patient, error) {
	var rows []patient.Patient
	err := r.s.with(ctx, func(st *state) error {
		for _, p := range sorted(st.patients, func(p patient.Patient) time.Time { return p.CreatedAt }) {
			if p.DeletedAt == nil && p.Status != patient.StatusMerged {
				rows = append(rows, clonePatient(p))
			}
		}
		return nil
	})
	return ptrs(rows), err
}

func (r *PatientRepository) ReassignReferences(ctx context.Context, from, to uuid.UUID) (map[string]int64, error) {
	moved := map[string]int64{}
	err := r.s.with(ctx, func(st *state) error {
		waiting := map[string]bool{}
		for _, e := range st.triage {
			if e.PatientID == to && e.Status == triage.StatusWaiting {
				waiting[e.Queue] = true
			}
		}
		for id, e := range st.triage {
			if e.PatientID == from && e.Status == triage.StatusWaiting && waiting[e.Queue] {
				_ = e.MarkLeft(r.s.now())
				st.triage[id] = e
				moved["clinical.triage_entries:left"]++
			}
		}
		reassign(st.appointments, moved, "clinical.appointments", func(a *appointment.Appointment) *uuid.UUID { return &a.PatientID }, from, to)
		reassign(st.encounters, moved, "clinical.encounters", func(e *encounter.Encounter) *uuid.UUID { return &e.PatientID }, from, to)
		reassign(st.consultations, moved, "clinical.consultations", func(c *consultation.Consultation) *uuid.UUID { return &c.PatientID }, from, to)
		reassign(st.prescriptions, moved, "clinical.prescriptions", func(p *prescription.Prescription) *uuid.UUID { return &p.PatientID }, from, to)
		reassign(st.orders, moved, "clinical.orders", func(o *order.Order) *uuid.UUID { return &o.PatientID }, from, to)
		reassign(st.triage, moved, "clinical.triage_entries", func(e *triage.Entry) *uuid.UUID { return &e.PatientID }, from, to)
		reassign(st.admissions, moved, "clinical.admissions", func(a *ward.Admission) *uuid.UUID { return &a.PatientID }, from, to)
		reassign(st.sales, moved, "pharmacy.sales", func(s *pharmacy.PharmacySale) *uuid.UUID { return &s.PatientID }, from, to)
		reassign(st.bills, moved, "billing.bills", func(b *billing.Bill) *uuid.UUID { return &b.PatientID }, from, to)
		reassign(st.claims, moved, "billing.nhif_claims", func(c *billing.NHIFClaim) *uuid.UUID { return &c.PatientID }, from, to)
		for id, b := range st.beds {
			if b.CurrentPatientID != nil && *b.CurrentPatientID == from {
				b.CurrentPatientID = &to
				st.beds[id] = b
				moved["clinical.beds"]++
			}
		}
		return nil
	})
	return moved, err
}

// reassign rewrites a patient column. ref must point into the row copy.
func reassign[T any](table map[uuid.UUID]T, moved map[string]int64, name string, ref func(*T) *uuid.UUID, from, to uuid.UUID) {
	for id, row := range table {
		p := ref(&row)
		if *p != from {
			continue
		}
		*p = to
		table[id] = row
		moved[name]++
	}
}

func (r *PatientRepository) CreateMergeLog(ctx context.Context, l *patient.MergeLog) error {
	return r.s.with(ctx, func(st *state) error {
		r.s.stamp(&l.ID, &l.CreatedAt)
		st.mergeLogs = append(st.mergeLogs, *l)
		return nil
	})
}

// MergeLogs returns the merge history, oldest first.
func (r *PatientRepository) MergeLogs(ctx context.Context) []patient.MergeLog {
	var out []patient.MergeLog
	_ = r.s.with(ctx, func(st *state) error {
		out = slices.Clone(st.mergeLogs)
		return nil
	})
	return out
}

type AppointmentRepository struct{ s *Store }

func (r *AppointmentRepository) Create(ctx context.Context, a *appointment.Appointment) error {
	return r.s.with(ctx, func(st *state) error {
		r.s.stamp(&a.ID, &a.CreatedAt)
		a.UpdatedAt = a.CreatedAt
		st.appointments[a.ID] = *a
		return nil
	})
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var out appointment.Appointment
	err := r.s.with(ctx, func(st *state) error {
		a, ok := st.appointments[id]
		if !ok || a.DeletedAt != nil {
			return appointment.ErrAppointmentNotFound
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *AppointmentRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return r.GetByID(ctx, id)
}

func (r *AppointmentRepository) Save(ctx context.Context, a *appointment.Appointment) error {
	return r.s.with(ctx, func(st *state) error {
		if _, ok := st.appointments[a.ID]; !ok {
			return appointment.ErrAppointmentNotFound
		}
		a.UpdatedAt = r.s.now()
		st.appointments[a.ID] = *a
		return nil
	})
}

func (r *AppointmentRepository) List(ctx context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error) {
	out := &appointment.PagedAppointments{}
	err := r.s.with(ctx, func(st *state) error {
		var rows []appointment.Appointment
		for _, a := range sorted(st.appointments, func(a appointment.Appointment) time.Time { return a.ScheduledAt }) {
			if a.DeletedAt != nil ||
				!matches(q.PatientID, a.PatientID) ||
				!matches(q.DoctorID, a.DoctorID) ||
				!matches(q.Status, a.Status) ||
				!matches(q.Type, a.Type) ||
				(q.DateFrom != nil && a.ScheduledAt.Before(*q.DateFrom)) ||
				(q.DateTo != nil && !a.ScheduledAt.Before(*q.DateTo)) {
				continue
			}
			rows = append(rows, a)
		}
		out.Appointments, out.TotalCount, out.Page, out.PageSize = page(rows, q.Page, q.PageSize)
		out.TotalPages = domain.TotalPages(out.TotalCount, out.PageSize)
		return nil
	})
	return out, err
}

func (r *AppointmentRepository) HasConflict(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	var conflict bool
	err := r.s.with(ctx, func(st *state) error {
		for _, a := range st.appointments {
			if a.DoctorID != doctorID || a.DeletedAt != nil || !a.IsBooked() {
				continue
			}
			if excludeID != nil && a.ID == *excludeID {
				continue
			}
			if a.ScheduledAt.Before(end) && a.EndsAt().After(start) {
				conflict = true
				return nil
			}
		}
		return nil
	})
	return conflict, err
}

type EncounterRepository struct{ s *Store }

func (r *EncounterRepository) Create(ctx context.Context, e *encounter.Encounter) error {
	return r.s.with(ctx, func(st *state) error {
		r.s.stamp(&e.ID, &e.CreatedAt)
		e.UpdatedAt = e.CreatedAt
		st.encounters[e.ID] = *e
		return nil
	})
}

func (r *EncounterRepository) GetByID(ctx context.Context, id uuid.UUID) (*encounter.Encounter, error) {
	var out encounter.Encounter
	err := r.s.with(ctx, func(st *state) error {
		e, ok := st.encounters[id]
		if !ok {
			return encounter.ErrEncounterNotFound
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *EncounterRepository) Save(ctx context.Context, e *encounter.Encounter) error {
	return r.s.with(ctx, func(st *state) error {
		if _, ok := st.encounters[e.ID]; !ok {
			return encounter.ErrEncounterNotFound
		}
		e.UpdatedAt = r.s.now()
		st.encounters[e.ID] = *e
		return nil
	})
}

func (r *EncounterRepository) List(ctx context.Context, q *encounter.ListEncountersQuery) (*encounter.PagedEncounters, error) {
	out := &encounter.PagedEncounters{}
	err := r.s.with(ctx, func(st *state) error {
		var rows []encounter.Encounter
		for _, e := range sorted(st.encounters, func(e encounter.Encounter) time.Time { return e.CreatedAt }) {
			if matches(q.PatientID, e.PatientID) && matches(q.Status, e.Status) && matches(q.Class, e.Class) {
				rows = append(rows, e)
			}
		}
		slices.Reverse(rows)
		out.Encounters, out.TotalCount, out.Page, out.PageSize = page(rows, q.Page, q.PageSize)
		out.TotalPages = domain.TotalPages(out.TotalCount, out.PageSize)
		return nil
	})
	return out, err
}

type ConsultationRepository struct{ s *Store }

func cloneConsultation(c consultation.Consultation) consultation.Consultation {
	c.Diagnoses = slices.Clone(c.Diagnoses)
	c.Attachments = slices.Clone(c.Attachments)
	c.Addenda = nil
	return c
}

func (r *ConsultationRepository) Create(ctx context.Context, c *consultation.Consultation) error {
	return r.s.with(ctx, func(st *state) error {
		r.s.stamp(&c.ID, &c.CreatedAt)
		c.UpdatedAt = c.CreatedAt
		st.consultations[c.ID] = cloneConsultation(*c)
		return nil
	})
}

func (r *ConsultationRepository) GetByID(ctx context.Context, id uuid.UUID) (*consultation.Consultation, error) {
	var out consultation.Consultation
	err := r.s.with(ctx, func(st *state) error {
		c, ok := st.consultations[id]
		if !ok {
			return consultation.ErrConsultationNotFound
		}
		out = cloneConsultation(c)
		for _, a := range st.addenda {
			if a.ConsultationID == id {
				out.Addenda = append(out.Addenda, a)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ConsultationRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*consultation.Consultation, error) {
	return r.GetByID(ctx, id)
}

func (r *ConsultationRepository) Save(ctx context.Context, c *consultation.Consultation) error {
	return r.s.with(ctx, func(st *state) error {
		if _, ok := st.consultations[c.ID]; !ok {
			return consultation.ErrConsultationNotFound
		}
		c.UpdatedAt = r.s.now()
		st.consultations[c.ID] = cloneConsultation(*c)
		return nil
	})
}

func (r *ConsultationRepository) AddAddendum(ctx context.Context, a *consultation.Addendum) error {
	return r.s.with(ctx, func(st *state) error {
		r.s.stamp(&a.ID, &a.CreatedAt)
		st.addenda = append(st.addenda, *a)
		return nil
	})
}

func (r *ConsultationRepository) List(ctx context.Context, q *consultation.ListConsultationsQuery) (*consultation.PagedConsultations, error) {
	out := &consultation.PagedConsultations{}
	err := r.s.with(ctx, func(st *state) error {
		var rows []consultation.Consultation
		for _, c := range sorted(st.consultations, func(c consultation.Consultation) time.Time { return c.CreatedAt }) {
			if !matches(q.PatientID, c.PatientID) ||
				!matches(q.EncounterID, c.EncounterID) ||
				!matches(q.ClinicianID, c.ClinicianID) ||
				(q.DateFrom != nil && c.CreatedAt.Before(*q.DateFrom)) ||
				(q.DateTo != nil && !c.CreatedAt.Before(*q.DateTo)) {
				continue
			}
			rows = append(rows, cloneConsultation(c))
		}
		slices.Reverse(rows)
		out.Consultations, out.TotalCount, out.Page, out.PageSize = page(rows, q.Page, q.PageSize)
		out.TotalPages = domain.TotalPages(out.TotalCount, out.PageSize)
		return nil
	})
	return out, err
}

type TriageRepository struct{ s *Store }

func (r *TriageRepository) Create(ctx context.Context, e *triage.Entry) error {
	return r.s.with(ctx, func(st *state) error {
		for _, other := range st.triage {
			if other.Queue == e.Queue && other.PatientID == e.PatientID && other.Status == triage.StatusWaiting {
				return triage.ErrAlreadyQueued
			}
		}
		r.s.stamp(&e.ID, &e.CreatedAt)
		e.UpdatedAt = e.CreatedAt
		st.triage[e.ID] = *e
		return nil
	})
}

func (r *TriageRepository) GetByID(ctx context.Context, id uuid.UUID) (*triage.Entry, error) {
	var out triage.Entry
	err := r.s.with(ctx, func(st *state) error {
		e, ok := st.triage[id]
		if !ok {
			return triage.ErrEntryNotFound
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *TriageRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*triage.Entry, error) {
	return r.GetByID(ctx, id)
}

func (r *TriageRepository) Save(ctx context.Context, e *triage.Entry) error {
	return r.s.with(ctx, func(st *state) error {
		if _, ok := st.triage[e.ID]; !ok {
			return triage.ErrEntryNotFound
		}
		e.UpdatedAt = r.s.now()
		e.Position = 0
		st.triage[e.ID] = *e
		return nil
	})
}

func (r *TriageRepository) IsWaiting(ctx context.Context, queue string, patientID uuid.UUID) (bool, error) {
	var waiting bool
	err := r.s.with(ctx, func(st *state) error {
		for _, e := range st.triage {
			if e.Queue == queue && e.PatientID == patientID && e.Status == triage.StatusWaiting {
				waiting = true
				break
			}
		}
		return nil
	})
	return waiting, err
}

// LockNext returns the head of the queue. Transactions are serialized, so
// there is never a locked row to skip.
func (r *TriageRepository) LockNext(ctx context.Context, queue string) (*triage.Entry, error) {
	waiting, err := r.ListWaiting(ctx, queue)
	if err != nil {
		return nil, err
	}
	if len(waiting) == 0 {
		return nil, triage.ErrQueueEmpty
	}
	head := waiting[0]
	head.Position = 0
	return head, nil
}

func (r *TriageRepository) ListWaiting(ctx context.Context, queue string) ([]*triage.Entry, error) {
	var rows []triage.Entry
	err := r.s.with(ctx, func(st *state) error {
		for _, e := range st.triage {
			if e.Queue == queue && e.Status == triage.StatusWaiting {
				rows = append(rows, e)
			}
		}
		return nil
	})
	out := ptrs(rows)
	triage.Sort(out)
	return out, err
}

func (r *TriageRepository) ListCalledSince(ctx context.Context, queue string, since time.Time) ([]*triage.Entry, error) {
	var rows []triage.Entry
	err := r.s.with(ctx, func(st *state) error {
		for _, e := range sorted(st.triage, func(e triage.Entry) time.Time { return e.QueuedAt }) {
			if e.Queue == queue && e.CalledAt != nil && !e.CalledAt.Before(since) {
				rows = append(rows, e)
			}
		}
		return nil
	})
	return ptrs(rows), err
}
