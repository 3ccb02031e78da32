package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/opsdesk/internal/domain"
	"github.com/spec-kit/opsdesk/internal/repository"
	"github.com/spec-kit/opsdesk/internal/service"
)

// SLARefreshWorker periodically sweeps tracked entities and refreshes
// their persisted SLA status. The tracking engine itself is single-shot;
// this worker is the scheduler that drives it.
type SLARefreshWorker struct {
	tracking  *service.SLATrackingService
	stores    service.SLAStores
	logger    *zap.Logger
	interval  time.Duration
	batchSize int
}

// NewSLARefreshWorker constructs the worker.
func NewSLARefreshWorker(tracking *service.SLATrackingService, stores service.SLAStores, logger *zap.Logger, interval time.Duration, batchSize int) *SLARefreshWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SLARefreshWorker{
		tracking:  tracking,
		stores:    stores,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run sweeps until the context is cancelled.
func (w *SLARefreshWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("sla refresh worker started", zap.Duration("interval", w.interval))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("sla refresh worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *SLARefreshWorker) sweep(ctx context.Context) {
	for kind, store := range w.stores {
		refreshed, err := w.sweepKind(ctx, kind, store)
		if err != nil {
			w.logger.Warn("sla refresh sweep failed",
				zap.String("entity_kind", string(kind)),
				zap.Error(err))
			continue
		}
		if refreshed > 0 {
			w.logger.Debug("sla refresh sweep done",
				zap.String("entity_kind", string(kind)),
				zap.Int("refreshed", refreshed))
		}
	}
}

func (w *SLARefreshWorker) sweepKind(ctx context.Context, kind domain.EntityKind, store repository.SLAStore) (int, error) {
	snapshots, err := store.ListDueForRefresh(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}
	refreshed := 0
	for _, snap := range snapshots {
		if _, err := w.tracking.RefreshStatus(ctx, kind, snap.ID); err != nil {
			w.logger.Warn("sla refresh failed",
				zap.String("entity_kind", string(kind)),
				zap.String("entity_id", snap.ID),
				zap.Error(err))
			continue
		}
		refreshed++
	}
	return refreshed, nil
}
