package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/opsdesk/internal/domain"
	"github.com/spec-kit/opsdesk/internal/events"
	apperrors "github.com/spec-kit/opsdesk/pkg/util"
)

// SLAPauseService starts and ends pause windows on trackable entities,
// maintaining the running total of paused minutes. The store-level guards
// make concurrent double pause or resume lose cleanly instead of
// double-applying.
type SLAPauseService struct {
	stores     SLAStores
	engine     *StatusEngine
	dispatcher events.Dispatcher
	now        func() time.Time
}

// NewSLAPauseService constructs the service.
func NewSLAPauseService(stores SLAStores, engine *StatusEngine, dispatcher events.Dispatcher) *SLAPauseService {
	return &SLAPauseService{
		stores:     stores,
		engine:     engine,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// PauseResult reports a started pause window.
type PauseResult struct {
	ID       string
	Kind     domain.EntityKind
	PausedAt time.Time
}

// ResumeResult reports an ended pause window.
type ResumeResult struct {
	ID                 string
	Kind               domain.EntityKind
	TotalPausedMinutes int64
	Status             domain.SLAStatus
}

// Pause stops the SLA clock. Fails with ErrAlreadyPaused when a pause
// window is already open.
func (s *SLAPauseService) Pause(ctx context.Context, kind domain.EntityKind, id string) (*PauseResult, error) {
	store, err := s.stores.For(kind)
	if err != nil {
		return nil, err
	}

	snap, err := store.GetSLA(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound(string(kind), map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if snap.IsSLAPaused() {
		return nil, ErrAlreadyPaused
	}

	pausedAt := s.now()
	applied, err := store.BeginPause(ctx, id, pausedAt)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !applied {
		// a concurrent pause won the conditional update
		return nil, ErrAlreadyPaused
	}

	s.publish(ctx, events.EventSLAPaused, kind, id, events.SLAPausedPayload{PausedAt: pausedAt})
	return &PauseResult{ID: id, Kind: kind, PausedAt: pausedAt}, nil
}

// Resume restarts the SLA clock, folds the closed pause window into the
// accumulated total and persists the recomputed status in the same write.
// Fails with ErrNotPaused when no pause window is open.
func (s *SLAPauseService) Resume(ctx context.Context, kind domain.EntityKind, id string) (*ResumeResult, error) {
	store, err := s.stores.For(kind)
	if err != nil {
		return nil, err
	}

	snap, err := store.GetSLA(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound(string(kind), map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if !snap.IsSLAPaused() {
		return nil, ErrNotPaused
	}
	if snap.SLADeadline == nil {
		return nil, ErrNoDeadlineSet
	}

	now := s.now()
	pauseDuration := minutesBetween(*snap.SLAPausedAt, now)
	if pauseDuration < 0 {
		pauseDuration = 0
	}
	newTotal := snap.SLATotalPausedMinutes + pauseDuration

	in := StatusInput{
		Deadline:           *snap.SLADeadline,
		TotalPausedMinutes: newTotal,
	}
	if snap.SLAStartedAt != nil {
		in.StartedAt = *snap.SLAStartedAt
	}
	result := s.engine.Classify(in)

	applied, err := store.FinishResume(ctx, id, newTotal, result.Status)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !applied {
		// a concurrent resume already closed the pause window
		return nil, ErrNotPaused
	}

	s.publish(ctx, events.EventSLAResumed, kind, id, events.SLAResumedPayload{
		TotalPausedMinutes: newTotal,
		Status:             result.Status,
	})
	return &ResumeResult{
		ID:                 id,
		Kind:               kind,
		TotalPausedMinutes: newTotal,
		Status:             result.Status,
	}, nil
}

func (s *SLAPauseService) publish(ctx context.Context, eventType events.EventType, kind domain.EntityKind, id string, payload any) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		Type:       eventType,
		EntityKind: kind,
		EntityID:   id,
		Timestamp:  s.now(),
		Payload:    payload,
	})
}
