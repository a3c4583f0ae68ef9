package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/consultation"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/encounter"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/blobstore"
)

type ConsultationService struct {
	repo          consultation.Repository
	encounters    encounter.Repository
	blobs         blobstore.Store
	tx            Transactor
	auditSvc      *AuditService
	log           *zap.Logger
	maxUpload     int64
	presignExpiry time.Duration
	now           func() time.Time
}

func NewConsultationService(
	repo consultation.Repository,
	encounters encounter.Repository,
	blobs blobstore.Store,
	tx Transactor,
	auditSvc *AuditService,
	log *zap.Logger,
	maxUpload int64,
	presignExpiry time.Duration,
) *ConsultationService {
	return &ConsultationService{
		repo:          repo,
		encounters:    encounters,
		blobs:         blobs,
		tx:            tx,
		auditSvc:      auditSvc,
		log:           log,
		maxUpload:     maxUpload,
		presignExpiry: presignExpiry,
		now:           utcNow,
	}
}

func (s *ConsultationService) CreateConsultation(ctx context.Context, cmd *consultation.CreateConsultationCommand, actor domain.Actor) (*consultation.Consultation, error) {
	if !actor.Role.IsClinician() {
		return nil, ErrForbidden
	}
	enc, err := s.encounters.GetByID(ctx, cmd.EncounterID)
	if err != nil {
		return nil, err
	}
	if enc.Status != encounter.StatusInProgress {
		return nil, encounter.ErrEncounterNotInProgress
	}

	c := &consultation.Consultation{
		EncounterID:    enc.ID,
		PatientID:      enc.PatientID,
		ClinicianID:    actor.UserID,
		Status:         consultation.StatusInProgress,
		ChiefComplaint: cmd.ChiefComplaint,
		SOAPNote:       cmd.SOAPNote,
		Vitals:         cmd.Vitals,
		Diagnoses:      cmd.Diagnoses,
		Notes:          cmd.Notes,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("creating consultation: %w", err)
	}
	s.auditSvc.record(ctx, actor, domain.ActionCreate, "consultation", c.ID.String(), nil)
	return c, nil
}

func (s *ConsultationService) GetConsultation(ctx context.Context, id uuid.UUID, actor domain.Actor) (*consultation.Consultation, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionRead, "consultation", id.String(), nil)
	return c, nil
}

func (s *ConsultationService) ListConsultations(ctx context.Context, q *consultation.ListConsultationsQuery, actor domain.Actor) (*consultation.PagedConsultations, error) {
	q.Page, q.PageSize = domain.Page(q.Page, q.PageSize)
	out, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionRead, "consultation_list", "", map[string]int{"count": len(out.Consultations)})
	return out, nil
}

func (s *ConsultationService) UpdateConsultation(ctx context.Context, id uuid.UUID, cmd *consultation.UpdateConsultationCommand, actor domain.Actor) (*consultation.Consultation, error) {
	var c *consultation.Consultation
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if c, err = s.repo.GetByIDForUpdate(ctx, id); err != nil {
			return err
		}
		if !c.IsEditable() {
			return consultation.ErrConsultationLocked
		}
		cmd.Apply(c)
		return s.repo.Save(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionUpdate, "consultation", id.String(), nil)
	return c, nil
}

func (s *ConsultationService) CompleteConsultation(ctx context.Context, id uuid.UUID, actor domain.Actor) (*consultation.Consultation, error) {
	var c *consultation.Consultation
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if c, err = s.repo.GetByIDForUpdate(ctx, id); err != nil {
			return err
		}
		if err := c.Complete(s.now()); err != nil {
			return err
		}
		return s.repo.Save(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionUpdate, "consultation", id.String(), map[string]string{"status": string(c.Status)})
	return c, nil
}

func (s *ConsultationService) AddAddendum(ctx context.Context, id uuid.UUID, content string, actor domain.Actor) (*consultation.Addendum, error) {
	if !actor.Role.IsClinician() {
		return nil, ErrForbidden
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &ValidationError{Fields: []string{"content is required"}}
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != consultation.StatusCompleted {
		return nil, consultation.ErrNotCompleted
	}
	a := &consultation.Addendum{ConsultationID: id, Content: content, CreatedBy: actor.UserID}
	if err := s.repo.AddAddendum(ctx, a); err != nil {
		return nil, err
	}
	s.auditSvc.record(ctx, actor, domain.ActionCreate, "consultation_addendum", a.ID.String(), map[string]string{"consultation_id": id.String()})
	return a, nil
}

type AttachCommand struct {
	ConsultationID uuid.UUID
	FileName       string
	ContentType    string
	Body           io.Reader
}

// AttachDocument uploads the body to the blob store first, then records the
// key on the consultation. A failed database write removes the upload.
func (s *ConsultationService) AttachDocument(ctx context.Context, cmd *AttachCommand, actor domain.Actor) (*consultation.Attachment, error) {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(cmd.FileName), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return nil, &ValidationError{Fields: []string{"file_name is required"}}
	}

	data, err := io.ReadAll(io.LimitReader(cmd.Body, s.maxUpload+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > s.maxUpload {
		return nil, consultation.ErrAttachmentTooLarge
	}
	if len(data) == 0 {
		return nil, &ValidationError{Fields: []string{"file is empty"}}
	}
	contentType := cmd.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	// Fail fast before uploading.
	c, err := s.repo.GetByID(ctx, cmd.ConsultationID)
	if err != nil {
		return nil, err
	}
	if !c.IsEditable() {
		return nil, consultation.ErrConsultationLocked
	}

	att := consultation.Attachment{
		ID:          uuid.New(),
		FileName:    name,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
		UploadedAt:  s.now(),
		UploadedBy:  actor.UserID,
	}
	att.StorageKey = fmt.Sprintf("consultations/%s/%s/%s", c.ID, att.ID, name)

	if _, err := s.blobs.Put(ctx, att.StorageKey, bytes.NewReader(data), att.SizeBytes, contentType); err != nil {
		return nil, fmt.Errorf("storing attachment: %w", err)
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.repo.GetByIDForUpdate(ctx, cmd.ConsultationID)
		if err != nil {
			return err
		}
		if !locked.IsEditable() {
			return consultation.ErrConsultationLocked
		}
		locked.Attachments = append(locked.Attachments, att)
		return s.repo.Save(ctx, locked)
	})
	if err != nil {
		if derr := s.blobs.Delete(context.WithoutCancel(ctx), att.StorageKey); derr != nil {
			s.log.Warn("orphaned attachment blob", zap.String("key", att.StorageKey), zap.Error(derr))
		}
		return nil, err
	}

	s.auditSvc.record(ctx, actor, domain.ActionUpdate, "consultation", c.ID.String(), map[string]any{
		"attachment_id": att.ID,
		"file_name":     att.FileName,
		"size_bytes":    att.SizeBytes,
	})
	return &att, nil
}

// AttachmentURL returns a presigned download URL for one attachment.
func (s *ConsultationService) AttachmentURL(ctx context.Context, consultationID, attachmentID uuid.UUID, actor domain.Actor) (string, time.Time, error) {
	c, err := s.repo.GetByID(ctx, consultationID)
	if err != nil {
		return "", time.Time{}, err
	}
	att, ok := c.FindAttachment(attachmentID)
	if !ok {
		return "", time.Time{}, consultation.ErrAttachmentNotFound
	}
	url, err := s.blobs.PresignGet(ctx, att.StorageKey, s.presignExpiry)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presigning attachment: %w", err)
	}
	s.auditSvc.record(ctx, actor, domain.ActionRead, "consultation_attachment", attachmentID.String(), map[string]string{
		"consultation_id": consultationID.String(),
	})
	return url, s.now().Add(s.presignExpiry), nil
}
