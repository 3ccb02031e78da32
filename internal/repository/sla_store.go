package repository

import (
	"context"
	"time"

	"github.com/spec-kit/opsdesk/internal/domain"
)

// SLAInit carries the fields persisted when SLA tracking starts.
type SLAInit struct {
	Deadline  time.Time
	Status    domain.SLAStatus
	StartedAt time.Time
}

// SLAExpect is the optimistic snapshot guard for status-only writes: the
// write is skipped when the stored pause state no longer matches, so a
// racing resume's atomic triple-write is never overwritten by a stale
// refresh.
type SLAExpect struct {
	PausedAt           *time.Time
	TotalPausedMinutes int64
}

// SLAStore applies SLA field updates to whichever concrete entity kind it
// fronts. Requests and tasks each provide an implementation; callers pick
// the store by entity kind instead of probing update failures.
type SLAStore interface {
	// GetSLA returns the current SLA snapshot for the entity.
	GetSLA(ctx context.Context, id string) (*domain.SLASnapshot, error)

	// InitializeSLA persists deadline, status, start instant and a zero
	// pause total on the entity.
	InitializeSLA(ctx context.Context, id string, init SLAInit) error

	// BeginPause sets sla_paused_at only when the entity is not already
	// paused. Returns false when the guard rejected the write.
	BeginPause(ctx context.Context, id string, pausedAt time.Time) (bool, error)

	// FinishResume clears sla_paused_at, stores the accumulated pause total
	// and the recomputed status in a single write, only when the entity is
	// currently paused. Returns false when the guard rejected the write.
	FinishResume(ctx context.Context, id string, totalPausedMinutes int64, status domain.SLAStatus) (bool, error)

	// SetSLAStatus persists a refreshed status guarded by expect.
	// Returns false when the stored pause state diverged from expect.
	SetSLAStatus(ctx context.Context, id string, status domain.SLAStatus, expect SLAExpect) (bool, error)

	// ListDueForRefresh returns snapshots of non-terminal entities with a
	// deadline set, for the periodic refresh sweep.
	ListDueForRefresh(ctx context.Context, limit int) ([]domain.SLASnapshot, error)
}
