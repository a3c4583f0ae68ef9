package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/metrics"
)

type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

type AuditEntry struct {
	Actor        domain.Actor
	Action       domain.AuditAction
	ResourceType string
	ResourceID   string
	// Changes is marshalled to JSON; nil is stored as an empty column.
	Changes any
}

type AuditService struct {
	repo    AuditRepository
	log     *zap.Logger
	metrics *metrics.Collector

	mu      sync.RWMutex
	closed  bool
	entries chan *domain.AuditLog
	done    chan struct{}
}

const auditBufferSize = 10_000

func NewAuditService(repo AuditRepository, log *zap.Logger, m *metrics.Collector) *AuditService {
	return newAuditService(repo, log, m, auditBufferSize)
}

func newAuditService(repo AuditRepository, log *zap.Logger, m *metrics.Collector, size int) *AuditService {
	svc := &AuditService{
		repo:    repo,
		log:     log.Named("audit"),
		metrics: m,
		entries: make(chan *domain.AuditLog, size),
		done:    make(chan struct{}),
	}
	go svc.worker()
	return svc
}

// LogAsync enqueues an audit entry for async persistence.
// If the buffer is full, the entry is dropped and a warning is emitted.
func (s *AuditService) LogAsync(_ context.Context, entry AuditEntry) {
	al := &domain.AuditLog{
		UserID:       entry.Actor.UserID,
		UserRole:     entry.Actor.Role,
		IPAddress:    entry.Actor.IP,
		RequestID:    entry.Actor.RequestID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
	}
	if entry.Changes != nil {
		raw, err := json.Marshal(entry.Changes)
		if err != nil {
			s.log.Warn("audit changes not serializable", zap.Error(err))
		} else {
			al.Changes = string(raw)
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.log.Warn("audit service stopped, dropping entry", zap.String("resource", entry.ResourceType))
		return
	}
	select {
	case s.entries <- al:
	default:
		s.metrics.AuditBufferDropped.Inc()
		s.log.Warn("audit log buffer full, dropping entry",
			zap.String("action", string(entry.Action)),
			zap.String("resource", entry.ResourceType),
		)
	}
}

// Shutdown stops accepting entries and waits up to 10s for the backlog to drain.
func (s *AuditService) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.entries)
	s.mu.Unlock()

	select {
	case <-s.done:
	case <-time.After(10 * time.Second):
		s.log.Warn("audit service shutdown timed out; some entries may be lost")
	}
}

func (s *AuditService) worker() {
	defer close(s.done)
	for entry := range s.entries {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.repo.Create(ctx, entry); err != nil {
			s.log.Error("failed to persist audit log", zap.Error(err))
		} else {
			s.metrics.AuditEntriesTotal.Inc()
		}
		cancel()
	}
}

func (s *AuditService) record(ctx context.Context, actor domain.Actor, action domain.AuditAction, resource, id string, changes any) {
	s.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       action,
		ResourceType: resource,
		ResourceID:   id,
		Changes:      changes,
	})
}
