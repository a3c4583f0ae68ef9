package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/repository/memory"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/metrics"
)

// gatedRepo blocks every write until the gate is opened.
type gatedRepo struct {
	gate    chan struct{}
	mu      sync.Mutex
	entries []*domain.AuditLog
}

func (r *gatedRepo) Create(_ context.Context, e *domain.AuditLog) error {
	<-r.gate
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func TestAuditService_PersistsOnShutdown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store := memory.NewStore()
	m := metrics.NewCollector(prometheus.NewRegistry(), "test")
	svc := NewAuditService(store.Audit(), zap.NewNop(), m)

	actor := actorWith(domain.RoleDoctor)
	id := uuid.NewString()
	svc.record(context.Background(), actor, domain.ActionRead, "patient", id, nil)
	svc.record(context.Background(), actor, domain.ActionUpdate, "patient", id, map[string]string{"status": "deceased"})
	svc.Shutdown()
	svc.Shutdown()

	entries := store.Audit().Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, actor.UserID, entries[0].UserID)
	assert.Equal(t, actor.RequestID, entries[0].RequestID)
	assert.Empty(t, entries[0].Changes)
	assert.JSONEq(t, `{"status":"deceased"}`, entries[1].Changes)
	assert.NotEqual(t, uuid.Nil, entries[1].ID)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.AuditEntriesTotal))

	svc.record(context.Background(), actor, domain.ActionRead, "patient", id, nil)
	assert.Len(t, store.Audit().Entries(), 2)
}

func TestAuditService_DropsWhenBufferFull(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	repo := &gatedRepo{gate: make(chan struct{})}
	m := metrics.NewCollector(prometheus.NewRegistry(), "test")
	svc := newAuditService(repo, zap.NewNop(), m, 1)

	actor := actorWith(domain.RoleNurse)
	// The worker may or may not have taken the first entry off the channel
	// yet, so at least one and at most two of the four are buffered.
	for range 4 {
		svc.record(context.Background(), actor, domain.ActionCreate, "triage_entry", uuid.NewString(), nil)
	}
	dropped := testutil.ToFloat64(m.AuditBufferDropped)
	assert.GreaterOrEqual(t, dropped, float64(2))

	close(repo.gate)
	svc.Shutdown()
	assert.Len(t, repo.entries, 4-int(dropped))
}
