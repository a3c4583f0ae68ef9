package main

import (
	"gorm.io/gorm"

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
	"github.com/Kipyegorop/hospital-emr-sub000/internal/repository"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/repository/memory"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/service"
)

// stores is every repository the services need plus the transaction boundary
// they share.
type stores struct {
	tx            service.Transactor
	patients      patient.Repository
	appointments  appointment.Repository
	encounters    encounter.Repository
	consultations consultation.Repository
	wards         ward.Repository
	pharmacy      pharmacy.Repository
	prescriptions prescription.Repository
	orders        order.Repository
	triage        triage.Repository
	billing       billing.Repository
	audit         service.AuditRepository
}

func postgresStores(db *gorm.DB) stores {
	return stores{
		tx:            repository.NewTransactor(db),
		patients:      repository.NewPatientRepository(db),
		appointments:  repository.NewAppointmentRepository(db),
		encounters:    repository.NewEncounterRepository(db),
		consultations: repository.NewConsultationRepository(db),
		wards:         repository.NewWardRepository(db),
		pharmacy:      repository.NewPharmacyRepository(db),
		prescriptions: repository.NewPrescriptionRepository(db),
		orders:        repository.NewOrderRepository(db),
		triage:        repository.NewTriageRepository(db),
		billing:       repository.NewBillingRepository(db),
		audit:         repository.NewAuditRepository(db),
	}
}

func memoryStores() stores {
	s := memory.NewStore()
	return stores{
		tx:            s,
		patients:      s.Patients(),
		appointments:  s.Appointments(),
		encounters:    s.Encounters(),
		consultations: s.Consultations(),
		wards:         s.Wards(),
		pharmacy:      s.Pharmacy(),
		prescriptions: s.Prescriptions(),
		orders:        s.Orders(),
		triage:        s.Triage(),
		billing:       s.Billing(),
		audit:         s.Audit(),
	}
}
