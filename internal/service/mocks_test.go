package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/opsdesk/internal/domain"
	"github.com/spec-kit/opsdesk/internal/events"
	"github.com/spec-kit/opsdesk/internal/repository"
)

type mockPolicySource struct {
	policies []domain.SLAPolicy
	err      error
}

func (m *mockPolicySource) ListActiveByKind(_ context.Context, kind domain.EntityKind) ([]domain.SLAPolicy, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.SLAPolicy, 0, len(m.policies))
	for _, p := range m.policies {
		if p.EntityKind == kind && p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

// mockSLAStore keeps a single snapshot in memory and mimics the
// conditional-update guards of the SQL stores.
type mockSLAStore struct {
	snap *domain.SLASnapshot

	beginPauseApplied   bool
	finishResumeApplied bool
	setStatusApplied    bool

	// force*Reject simulates a concurrent writer winning the guard.
	forcePauseReject  bool
	forceResumeReject bool
	forceStatusReject bool
}

func newMockSLAStore(snap *domain.SLASnapshot) *mockSLAStore {
	return &mockSLAStore{snap: snap}
}

func (m *mockSLAStore) GetSLA(_ context.Context, id string) (*domain.SLASnapshot, error) {
	if m.snap == nil || m.snap.ID != id {
		return nil, pgx.ErrNoRows
	}
	c := *m.snap
	return &c, nil
}

func (m *mockSLAStore) InitializeSLA(_ context.Context, id string, init repository.SLAInit) error {
	if m.snap == nil || m.snap.ID != id {
		return pgx.ErrNoRows
	}
	status := init.Status
	deadline := init.Deadline
	startedAt := init.StartedAt
	m.snap.SLADeadline = &deadline
	m.snap.SLAStatus = &status
	m.snap.SLAStartedAt = &startedAt
	m.snap.SLAPausedAt = nil
	m.snap.SLATotalPausedMinutes = 0
	return nil
}

func (m *mockSLAStore) BeginPause(_ context.Context, id string, pausedAt time.Time) (bool, error) {
	if m.snap == nil || m.snap.ID != id {
		return false, nil
	}
	if m.forcePauseReject || m.snap.SLAPausedAt != nil {
		return false, nil
	}
	m.snap.SLAPausedAt = &pausedAt
	paused := domain.SLAStatusPaused
	m.snap.SLAStatus = &paused
	m.beginPauseApplied = true
	return true, nil
}

func (m *mockSLAStore) FinishResume(_ context.Context, id string, totalPausedMinutes int64, status domain.SLAStatus) (bool, error) {
	if m.snap == nil || m.snap.ID != id {
		return false, nil
	}
	if m.forceResumeReject || m.snap.SLAPausedAt == nil {
		return false, nil
	}
	m.snap.SLAPausedAt = nil
	m.snap.SLATotalPausedMinutes = totalPausedMinutes
	m.snap.SLAStatus = &status
	m.finishResumeApplied = true
	return true, nil
}

func (m *mockSLAStore) SetSLAStatus(_ context.Context, id string, status domain.SLAStatus, expect repository.SLAExpect) (bool, error) {
	if m.snap == nil || m.snap.ID != id {
		return false, nil
	}
	if m.forceStatusReject {
		return false, nil
	}
	if !pauseStateMatches(m.snap.SLAPausedAt, expect.PausedAt) || m.snap.SLATotalPausedMinutes != expect.TotalPausedMinutes {
		return false, nil
	}
	m.snap.SLAStatus = &status
	m.setStatusApplied = true
	return true, nil
}

func (m *mockSLAStore) ListDueForRefresh(_ context.Context, limit int) ([]domain.SLASnapshot, error) {
	if m.snap == nil || m.snap.SLADeadline == nil {
		return nil, nil
	}
	if limit == 0 {
		return nil, nil
	}
	return []domain.SLASnapshot{*m.snap}, nil
}

func pauseStateMatches(stored, expect *time.Time) bool {
	if stored == nil || expect == nil {
		return stored == nil && expect == nil
	}
	return stored.Equal(*expect)
}

// recordingDispatcher captures published events for assertions.
type recordingDispatcher struct {
	published []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}
