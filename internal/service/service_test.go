package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/order"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/patient"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/repository/memory"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/blobstore"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/events"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/metrics"
)

// capturePublisher records every published event.
type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *capturePublisher) Publish(_ context.Context, e events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *capturePublisher) Close() error { return nil }

func (c *capturePublisher) types() []events.Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]events.Type, len(c.events))
	for i, e := range c.events {
		out[i] = e.Type
	}
	return out
}

type harness struct {
	store   *memory.Store
	blobs   *blobstore.Memory
	pub     *capturePublisher
	metrics *metrics.Collector
	audit   *AuditService

	patients      *PatientService
	appointments  *AppointmentService
	encounters    *EncounterService
	consultations *ConsultationService
	billing       *BillingService
	wards         *WardService
	pharmacy      *PharmacyService
	prescriptions *PrescriptionService
	orders        *OrderService
	triage        *TriageService
}

const testTaxBPS = 1600

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := zap.NewNop()
	s := memory.NewStore()
	h := &harness{
		store:   s,
		blobs:   blobstore.NewMemory(),
		pub:     &capturePublisher{},
		metrics: metrics.NewCollector(prometheus.NewRegistry(), "test"),
	}
	h.audit = NewAuditService(s.Audit(), log, h.metrics)
	t.Cleanup(h.audit.Shutdown)

	h.billing = NewBillingService(s.Billing(), s.Patients(), s, h.audit, h.pub, h.metrics, log, testTaxBPS)
	h.patients = NewPatientService(s.Patients(), s.Wards(), s, h.audit, h.pub, h.metrics, log)
	h.appointments = NewAppointmentService(s.Appointments(), s.Patients(), s.Encounters(), s, h.audit, h.metrics, log)
	h.encounters = NewEncounterService(s.Encounters(), s.Patients(), s.Appointments(), s, h.audit, log)
	h.consultations = NewConsultationService(s.Consultations(), s.Encounters(), h.blobs, s, h.audit, log, 1<<20, 15*time.Minute)
	h.wards = NewWardService(s.Wards(), s.Patients(), s.Encounters(), h.billing, s, h.audit, h.pub, h.metrics, log)
	h.pharmacy = NewPharmacyService(s.Pharmacy(), s.Patients(), h.billing, s, h.audit, h.metrics, log)
	h.prescriptions = NewPrescriptionService(s.Prescriptions(), s.Patients(), s.Pharmacy(), h.pharmacy, s, h.audit, h.pub, h.metrics, log, 0)
	h.orders = NewOrderService(s.Orders(), s.Patients(), h.billing, s, h.audit, h.pub, h.metrics, log, order.DefaultSLA())
	h.triage = NewTriageService(s.Triage(), s.Patients(), s, h.audit, h.metrics, log)
	return h
}

func actorWith(role domain.Role) domain.Actor {
	return domain.Actor{UserID: uuid.New(), Role: role, IP: "10.0.0.1", RequestID: uuid.NewString()}
}

var (
	admin        = actorWith(domain.RoleAdmin)
	doctor       = actorWith(domain.RoleDoctor)
	nurse        = actorWith(domain.RoleNurse)
	receptionist = actorWith(domain.RoleReceptionist)
	pharmacist   = actorWith(domain.RolePharmacist)
	cashier      = actorWith(domain.RoleCashier)
)

// registerPatient creates a patient with a unique NHIF number. Callers pick
// names far enough apart that duplicate detection stays quiet.
func (h *harness) registerPatient(t *testing.T, first, last string, gender patient.Gender) *patient.Patient {
	t.Helper()
	p, err := h.patients.CreatePatient(context.Background(), &patient.CreatePatientCommand{
		FirstName:   first,
		LastName:    last,
		DateOfBirth: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		Gender:      gender,
		NHIFNumber:  "NH" + uuid.NewString()[:8],
	}, receptionist)
	require.NoError(t, err)
	return p
}
