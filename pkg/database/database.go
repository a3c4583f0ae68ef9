package database

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/config"
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

func Connect(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:                                   NewLogger(log, cfg.SlowQueryThreshold),
		PrepareStmt:                              true,
		DisableForeignKeyConstraintWhenMigrating: false,
		DisableAutomaticPing:                     false,
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
		TranslateError:                           true,
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: false,
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

// Ping checks the pool can reach the server. Used by the readiness probe.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&domain.AuditLog{},
		&patient.Patient{},
		&patient.MergeLog{},
		&appointment.Appointment{},
		&encounter.Encounter{},
		&consultation.Consultation{},
		&consultation.Addendum{},
		&ward.Ward{},
		&ward.Bed{},
		&ward.Admission{},
		&ward.BedTransfer{},
		&pharmacy.Medication{},
		&pharmacy.StockMovement{},
		&pharmacy.PharmacySale{},
		&prescription.Prescription{},
		&prescription.DispenseException{},
		&order.Order{},
		&order.OrderItem{},
		&triage.Entry{},
		&billing.Bill{},
		&billing.BillItem{},
		&billing.Payment{},
		&billing.NHIFClaim{},
	}
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	start := time.Now()

	schemas := []string{"clinical", "pharmacy", "billing", "audit"} // logical namespace
	for _, schema := range schemas {
		if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)).Error; err != nil {
			return fmt.Errorf("creating schema %s: %w", schema, err)
		}
	}

	for _, seq := range []string{"clinical.patient_number_seq", "billing.bill_number_seq", "billing.claim_number_seq"} {
		if err := db.Exec(fmt.Sprintf("CREATE SEQUENCE IF NOT EXISTS %s", seq)).Error; err != nil {
			return fmt.Errorf("creating sequence %s: %w", seq, err)
		}
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}

	createIndexes(db, log)

	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

// createIndexes adds the partial and expression indexes AutoMigrate cannot
// express. Failures are logged and skipped; pg_trgm may be unavailable.
func createIndexes(db *gorm.DB, log *zap.Logger) {
	indexes := []struct {
		name  string
		query string
	}{
		{
			name:  "idx_appointments_doctor_schedule",
			query: `CREATE INDEX IF NOT EXISTS idx_appointments_doctor_schedule ON clinical.appointments (doctor_id, scheduled_at, duration_mins) WHERE deleted_at IS NULL AND status NOT IN ('cancelled', 'no_show')`,
		},
		// Patient search: trigram index on the full name
		{
			name:  "idx_patients_name_trgm",
			query: `CREATE INDEX IF NOT EXISTS idx_patients_name_trgm ON clinical.patients USING gin ((first_name || ' ' || last_name) gin_trgm_ops) WHERE deleted_at IS NULL`,
		},
		{
			name:  "idx_prescriptions_dispensable",
			query: `CREATE INDEX IF NOT EXISTS idx_prescriptions_dispensable ON clinical.prescriptions (expires_at) WHERE status IN ('active', 'partially_dispensed')`,
		},
		{
			name:  "uq_exceptions_open",
			query: `CREATE UNIQUE INDEX IF NOT EXISTS uq_exceptions_open ON pharmacy.dispense_exceptions (prescription_id) WHERE status IN ('pending', 'approved')`,
		},
		{
			name:  "uq_admissions_open_patient",
			query: `CREATE UNIQUE INDEX IF NOT EXISTS uq_admissions_open_patient ON clinical.admissions (patient_id) WHERE status = 'admitted'`,
		},
		{
			name:  "uq_beds_occupied_patient",
			query: `CREATE UNIQUE INDEX IF NOT EXISTS uq_beds_occupied_patient ON clinical.beds (current_patient_id) WHERE status = 'occupied'`,
		},
		{
			name:  "uq_triage_waiting_patient",
			query: `CREATE UNIQUE INDEX IF NOT EXISTS uq_triage_waiting_patient ON clinical.triage_entries (queue, patient_id) WHERE status = 'waiting'`,
		},
		{
			name:  "idx_orders_open",
			query: `CREATE INDEX IF NOT EXISTS idx_orders_open ON clinical.orders (priority, ordered_at) WHERE status IN ('pending', 'in_progress')`,
		},
		{
			name:  "idx_bills_open_patient",
			query: `CREATE INDEX IF NOT EXISTS idx_bills_open_patient ON billing.bills (patient_id, encounter_id, admission_id) WHERE status IN ('open', 'partially_paid')`,
		},
	}

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS pg_trgm").Error; err != nil {
		log.Warn("pg_trgm extension unavailable", zap.Error(err))
	}

	for _, idx := range indexes {
		if err := db.Exec(idx.query).Error; err != nil {
			log.Warn("creating index failed", zap.String("index", idx.name), zap.Error(err))
		}
	}
}
