package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/patient"
)

type PatientRepository struct {
	base
}

func NewPatientRepository(db *gorm.DB) *PatientRepository {
	return &PatientRepository{base{db}}
}

func (r *PatientRepository) Create(ctx context.Context, p *patient.Patient) error {
	db := r.conn(ctx)
	if p.PatientNumber == "" {
		num, err := nextNumber(db, "clinical.patient_number_seq", "P")
		if err != nil {
			return err
		}
		p.PatientNumber = num
	}
	return db.Create(p).Error
}

func (r *PatientRepository) GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	var p patient.Patient
	err := r.conn(ctx).Where("deleted_at IS NULL").First(&p, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, patient.ErrPatientNotFound)
	}
	return &p, nil
}

func (r *PatientRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	var p patient.Patient
	err := r.conn(ctx).Clauses(forUpdate).Where("deleted_at IS NULL").First(&p, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, patient.ErrPatientNotFound)
	}
	return &p, nil
}

func (r *PatientRepository) Save(ctx context.Context, p *patient.Patient) error {
	return r.conn(ctx).Save(p).Error
}

func (r *PatientRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := r.conn(ctx).Model(&patient.Patient{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]any{"deleted_at": time.Now().UTC(), "status": patient.StatusInactive})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return patient.ErrPatientNotFound
	}
	return nil
}

func (r *PatientRepository) List(ctx context.Context, q *patient.ListPatientsQuery) (*patient.PagedPatients, error) {
	db := r.conn(ctx).Model(&patient.Patient{}).Where("deleted_at IS NULL")
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + s + "%"
		if phone := patient.NormalizePhone(s); len(phone) >= 4 {
			db = db.Where(
				"(first_name || ' ' || last_name) ILIKE ? OR patient_number ILIKE ? OR phone LIKE ?",
				like, like, "%"+phone+"%",
			)
		} else {
			db = db.Where("(first_name || ' ' || last_name) ILIKE ? OR patient_number ILIKE ?", like, like)
		}
	}
	if q.Status != nil {
		db = db.Where("status = ?", *q.Status)
	}

	db, total, page, size, err := paginate(db, q.Page, q.PageSize)
	if err != nil {
		return nil, err
	}
	var patients []*patient.Patient
	if err := db.Order("last_name, first_name, created_at").Find(&patients).Error; err != nil {
		return nil, err
	}
	return &patient.PagedPatients{
		Patients:   patients,
		TotalCount: total,
		Page:       page,
		PageSize:   size,
		TotalPages: domain.TotalPages(total, size),
	}, nil
}

// FindCandidates narrows the search with indexed equality on identifiers and
// the date of birth. Name similarity is left to patient.RankMatches.
func (r *PatientRepository) FindCandidates(ctx context.Context, c patient.MatchCriteria) ([]*patient.Patient, error) {
	var (
		conds []string
		args  []any
	)
	if id := normalizeID(c.NationalID); id != "" {
		conds = append(conds, "UPPER(REPLACE(national_id, ' ', '')) = ?")
		args = append(args, id)
	}
	if nhif := normalizeID(c.NHIFNumber); nhif != "" {
		conds = append(conds, "UPPER(REPLACE(nhif_number, ' ', '')) = ?")
		args = append(args, nhif)
	}
	if phone := patient.NormalizePhone(c.Phone); phone != "" {
		conds = append(conds, "phone = ?")
		args = append(args, phone)
	}
	if !c.DateOfBirth.IsZero() {
		conds = append(conds, "date_of_birth = ?")
		args = append(args, c.DateOfBirth.Format(time.DateOnly))
	}
	if len(conds) == 0 {
		return nil, nil
	}

	var out []*patient.Patient
	err := r.conn(ctx).
		Where("deleted_at IS NULL AND status <> ?", patient.StatusMerged).
		Where("("+strings.Join(conds, " OR ")+")", args...).
		Order("created_at").
		Limit(200).
		Find(&out).Error
	return out, err
}

const triageClosedKey = "clinical.triage_entries:left"

// referenceColumns lists every table holding a patient reference.
var referenceColumns = []struct{ table, column string }{
	{"clinical.appointments", "patient_id"},
	{"clinical.encounters", "patient_id"},
	{"clinical.consultations", "patient_id"},
	{"clinical.prescriptions", "patient_id"},
	{"clinical.orders", "patient_id"},
	{"clinical.triage_entries", "patient_id"},
	{"clinical.admissions", "patient_id"},
	{"clinical.beds", "current_patient_id"},
	{"pharmacy.sales", "patient_id"},
	{"billing.bills", "patient_id"},
	{"billing.nhif_claims", "patient_id"},
}

// closeDuplicateWaiting marks the source's waiting triage entries as left
// where the target already waits in the same queue.
const closeDuplicateWaiting = `UPDATE clinical.triage_entries AS s
SET status = 'left', completed_at = NOW(), updated_at = NOW()
WHERE s.patient_id = ? AND s.status = 'waiting'
  AND EXISTS (
    SELECT 1 FROM clinical.triage_entries t
    WHERE t.patient_id = ? AND t.queue = s.queue AND t.status = 'waiting'
  )`

func (r *PatientRepository) ReassignReferences(ctx context.Context, from, to uuid.UUID) (map[string]int64, error) {
	db := r.conn(ctx)
	moved := make(map[string]int64, len(referenceColumns)+1)
	res := db.Exec(closeDuplicateWaiting, from, to)
	if res.Error != nil {
		return nil, fmt.Errorf("closing duplicate triage entries: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		moved[triageClosedKey] = res.RowsAffected
	}
	for _, ref := range referenceColumns {
		res := db.Exec(
			fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?", ref.table, ref.column, ref.column),
			to, from,
		)
		if res.Error != nil {
			return nil, fmt.Errorf("reassigning %s: %w", ref.table, res.Error)
		}
		if res.RowsAffected > 0 {
			moved[ref.table] = res.RowsAffected
		}
	}
	return moved, nil
}

func (r *PatientRepository) CreateMergeLog(ctx context.Context, l *patient.MergeLog) error {
	return r.conn(ctx).Create(l).Error
}

func normalizeID(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}
