package worker

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/opsdesk/internal/domain"
	"github.com/spec-kit/opsdesk/internal/observability"
	"github.com/spec-kit/opsdesk/internal/repository"
	"github.com/spec-kit/opsdesk/internal/service"
)

// sweepStore serves a fixed set of snapshots and records status writes.
type sweepStore struct {
	snapshots []domain.SLASnapshot
	statuses  map[string]domain.SLAStatus
}

func newSweepStore(snapshots []domain.SLASnapshot) *sweepStore {
	return &sweepStore{snapshots: snapshots, statuses: map[string]domain.SLAStatus{}}
}

func (s *sweepStore) GetSLA(_ context.Context, id string) (*domain.SLASnapshot, error) {
	for i := range s.snapshots {
		if s.snapshots[i].ID == id {
			c := s.snapshots[i]
			return &c, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *sweepStore) InitializeSLA(context.Context, string, repository.SLAInit) error {
	return nil
}

func (s *sweepStore) BeginPause(context.Context, string, time.Time) (bool, error) {
	return false, nil
}

func (s *sweepStore) FinishResume(context.Context, string, int64, domain.SLAStatus) (bool, error) {
	return false, nil
}

func (s *sweepStore) SetSLAStatus(_ context.Context, id string, status domain.SLAStatus, _ repository.SLAExpect) (bool, error) {
	s.statuses[id] = status
	return true, nil
}

func (s *sweepStore) ListDueForRefresh(_ context.Context, limit int) ([]domain.SLASnapshot, error) {
	if limit > 0 && limit < len(s.snapshots) {
		return s.snapshots[:limit], nil
	}
	return s.snapshots, nil
}

func tracked(id string, deadline, startedAt time.Time) domain.SLASnapshot {
	status := domain.SLAStatusOnTime
	return domain.SLASnapshot{
		ID:   id,
		Kind: domain.EntityKindRequest,
		SLAInfo: domain.SLAInfo{
			SLADeadline:  &deadline,
			SLAStatus:    &status,
			SLAStartedAt: &startedAt,
		},
	}
}

func TestSweepKindRefreshesEachSnapshot(t *testing.T) {
	start := time.Now().Add(-2 * time.Hour)
	store := newSweepStore([]domain.SLASnapshot{
		tracked("r1", start.Add(time.Hour), start),
		tracked("r2", start.Add(48*time.Hour), start),
	})
	stores := service.SLAStores{domain.EntityKindRequest: store}
	tracking := service.NewSLATrackingService(service.SLATrackingDependencies{
		Stores:  stores,
		Engine:  service.NewStatusEngine(),
		Metrics: observability.NewMetrics(),
		Logger:  zap.NewNop(),
	})
	w := NewSLARefreshWorker(tracking, stores, zap.NewNop(), time.Minute, 100)

	refreshed, err := w.sweepKind(context.Background(), domain.EntityKindRequest, store)
	require.NoError(t, err)
	assert.Equal(t, 2, refreshed)

	// r1's deadline is long past while r2 has nearly its whole window left
	assert.Equal(t, domain.SLAStatusOverdue, store.statuses["r1"])
	assert.Equal(t, domain.SLAStatusOnTime, store.statuses["r2"])
}

func TestSweepKindHonorsBatchSize(t *testing.T) {
	start := time.Now()
	store := newSweepStore([]domain.SLASnapshot{
		tracked("r1", start.Add(48*time.Hour), start),
		tracked("r2", start.Add(48*time.Hour), start),
		tracked("r3", start.Add(48*time.Hour), start),
	})
	stores := service.SLAStores{domain.EntityKindRequest: store}
	tracking := service.NewSLATrackingService(service.SLATrackingDependencies{
		Stores:  stores,
		Engine:  service.NewStatusEngine(),
		Metrics: observability.NewMetrics(),
		Logger:  zap.NewNop(),
	})
	w := NewSLARefreshWorker(tracking, stores, zap.NewNop(), time.Minute, 2)

	refreshed, err := w.sweepKind(context.Background(), domain.EntityKindRequest, store)
	require.NoError(t, err)
	assert.Equal(t, 2, refreshed)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	stores := service.SLAStores{}
	tracking := service.NewSLATrackingService(service.SLATrackingDependencies{
		Stores:  stores,
		Engine:  service.NewStatusEngine(),
		Metrics: observability.NewMetrics(),
		Logger:  zap.NewNop(),
	})
	w := NewSLARefreshWorker(tracking, stores, zap.NewNop(), 10*time.Millisecond, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}
