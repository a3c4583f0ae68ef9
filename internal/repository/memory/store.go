// Package memory implements every domain repository in process. A
// transaction works on a copy of the whole state and swaps it in on commit,
// so a failed operation leaves nothing behind. Used by tests and local runs
// without PostgreSQL.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
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

type state struct {
	patients      map[uuid.UUID]patient.Patient
	mergeLogs     []patient.MergeLog
	appointments  map[uuid.UUID]appointment.Appointment
	encounters    map[uuid.UUID]encounter.Encounter
	consultations map[uuid.UUID]consultation.Consultation
	addenda       []consultation.Addendum
	wards         map[uuid.UUID]ward.Ward
	beds          map[uuid.UUID]ward.Bed
	admissions    map[uuid.UUID]ward.Admission
	transfers     []ward.BedTransfer
	medications   map[uuid.UUID]pharmacy.Medication
	movements     []pharmacy.StockMovement
	sales         map[uuid.UUID]pharmacy.PharmacySale
	prescriptions map[uuid.UUID]prescription.Prescription
	exceptions    map[uuid.UUID]prescription.DispenseException
	orders        map[uuid.UUID]order.Order
	triage        map[uuid.UUID]triage.Entry
	bills         map[uuid.UUID]billing.Bill
	billItems     []billing.BillItem
	payments      []billing.Payment
	claims        map[uuid.UUID]billing.NHIFClaim
	audit         []domain.AuditLog
	seq           map[string]int64
}

func newState() *state {
	return &state{
		patients:      map[uuid.UUID]patient.Patient{},
		appointments:  map[uuid.UUID]appointment.Appointment{},
		encounters:    map[uuid.UUID]encounter.Encounter{},
		consultations: map[uuid.UUID]consultation.Consultation{},
		wards:         map[uuid.UUID]ward.Ward{},
		beds:          map[uuid.UUID]ward.Bed{},
		admissions:    map[uuid.UUID]ward.Admission{},
		medications:   map[uuid.UUID]pharmacy.Medication{},
		sales:         map[uuid.UUID]pharmacy.PharmacySale{},
		prescriptions: map[uuid.UUID]prescription.Prescription{},
		exceptions:    map[uuid.UUID]prescription.DispenseException{},
		orders:        map[uuid.UUID]order.Order{},
		triage:        map[uuid.UUID]triage.Entry{},
		bills:         map[uuid.UUID]billing.Bill{},
		claims:        map[uuid.UUID]billing.NHIFClaim{},
		seq:           map[string]int64{},
	}
}

// clone copies every table. Values holding slices are cloned again on the
// way in and out of a table, so sharing them here is safe.
func (s *state) clone() *state {
	return &state{
		patients:      maps.Clone(s.patients),
		mergeLogs:     slices.Clone(s.mergeLogs),
		appointments:  maps.Clone(s.appointments),
		encounters:    maps.Clone(s.encounters),
		consultations: maps.Clone(s.consultations),
		addenda:       slices.Clone(s.addenda),
		wards:         maps.Clone(s.wards),
		beds:          maps.Clone(s.beds),
		admissions:    maps.Clone(s.admissions),
		transfers:     slices.Clone(s.transfers),
		medications:   maps.Clone(s.medications),
		movements:     slices.Clone(s.movements),
		sales:         maps.Clone(s.sales),
		prescriptions: maps.Clone(s.prescriptions),
		exceptions:    maps.Clone(s.exceptions),
		orders:        maps.Clone(s.orders),
		triage:        maps.Clone(s.triage),
		bills:         maps.Clone(s.bills),
		billItems:     slices.Clone(s.billItems),
		payments:      slices.Clone(s.payments),
		claims:        maps.Clone(s.claims),
		audit:         slices.Clone(s.audit),
		seq:           maps.Clone(s.seq),
	}
}

// next formats the next value of a named sequence like the database does.
func (s *state) next(name, prefix string, now time.Time) string {
	s.seq[name]++
	return fmt.Sprintf("%s%d%06d", prefix, now.Year(), s.seq[name])
}

type txKey struct{}

// Store is the shared state behind all memory repositories. One transaction
// runs at a time; reads and writes outside a transaction commit immediately.
type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{state: newState(), now: func() time.Time { return time.Now().UTC() }}
}

// WithinTransaction runs fn against a private copy of the state and commits
// it only when fn succeeds. Nested calls join the outer transaction.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*state); ok {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(context.WithValue(ctx, txKey{}, work)); err != nil {
		return err
	}
	s.state = work
	return nil
}

// with hands fn the transaction's state, or the committed state under the lock.
func (s *Store) with(ctx context.Context, fn func(st *state) error) error {
	if st, ok := ctx.Value(txKey{}).(*state); ok {
		return fn(st)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

// stamp fills a zero ID and the creation time.
func (s *Store) stamp(id *uuid.UUID, created *time.Time) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	if created != nil && created.IsZero() {
		*created = s.now()
	}
}

func (s *Store) Patients() *PatientRepository           { return &PatientRepository{s} }
func (s *Store) Appointments() *AppointmentRepository   { return &AppointmentRepository{s} }
func (s *Store) Encounters() *EncounterRepository       { return &EncounterRepository{s} }
func (s *Store) Consultations() *ConsultationRepository { return &ConsultationRepository{s} }
func (s *Store) Wards() *WardRepository                 { return &WardRepository{s} }
func (s *Store) Pharmacy() *PharmacyRepository          { return &PharmacyRepository{s} }
func (s *Store) Prescriptions() *PrescriptionRepository { return &PrescriptionRepository{s} }
func (s *Store) Orders() *OrderRepository               { return &OrderRepository{s} }
func (s *Store) Triage() *TriageRepository              { return &TriageRepository{s} }
func (s *Store) Billing() *BillingRepository            { return &BillingRepository{s} }
func (s *Store) Audit() *AuditRepository                { return &AuditRepository{s} }

// sorted returns the table's values ordered by key.
func sorted[T any](m map[uuid.UUID]T, key func(T) time.Time) []T {
	out := slices.Collect(maps.Values(m))
	slices.SortStableFunc(out, func(a, b T) int { return key(a).Compare(key(b)) })
	return out
}

// page cuts a window out of rows using the same normalization as the SQL
// repositories.
func page[T any](rows []T, p, size int) ([]*T, int64, int, int) {
	p, size = domain.Page(p, size)
	total := int64(len(rows))
	start := min((p-1)*size, len(rows))
	end := min(start+size, len(rows))
	out := make([]*T, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, &rows[i])
	}
	return out, total, p, size
}

func ptrs[T any](rows []T) []*T {
	out := make([]*T, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out
}

func matches[T comparable](filter *T, v T) bool {
	return filter == nil || *filter == v
}

func matchesPtr[T comparable](filter *T, v *T) bool {
	return filter == nil || (v != nil && *v == *filter)
}

func byString[T any](key func(T) string) func(a, b T) int {
	return func(a, b T) int { return cmp.Compare(key(a), key(b)) }
}

var (
	_ patient.Repository      = (*PatientRepository)(nil)
	_ appointment.Repository  = (*AppointmentRepository)(nil)
	_ encounter.Repository    = (*EncounterRepository)(nil)
	_ consultation.Repository = (*ConsultationRepository)(nil)
	_ ward.Repository         = (*WardRepository)(nil)
	_ pharmacy.Repository     = (*PharmacyRepository)(nil)
	_ prescription.Repository = (*PrescriptionRepository)(nil)
	_ order.Repository        = (*OrderRepository)(nil)
	_ triage.Repository       = (*TriageRepository)(nil)
	_ billing.Repository      = (*BillingRepository)(nil)
)
