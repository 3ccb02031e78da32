package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/opsdesk/internal/domain"
	"github.com/spec-kit/opsdesk/internal/events"
	"github.com/spec-kit/opsdesk/internal/observability"
	"github.com/spec-kit/opsdesk/internal/repository"
	apperrors "github.com/spec-kit/opsdesk/pkg/util"
)

// SLAStores maps an entity kind to the store owning its SLA fields.
// Callers always know the kind, so dispatch is a map lookup rather than
// probing concrete stores for update failures.
type SLAStores map[domain.EntityKind]repository.SLAStore

// For returns the store for the kind.
func (s SLAStores) For(kind domain.EntityKind) (repository.SLAStore, error) {
	store, ok := s[kind]
	if !ok {
		return nil, apperrors.NewValidationError("unknown entity kind", map[string]any{"entity_kind": kind})
	}
	return store, nil
}

// SLATrackingService orchestrates policy resolution, deadline calculation
// and status classification for the two entry points the rest of the
// system needs: initialize on entity creation and refresh on demand.
type SLATrackingService struct {
	stores     SLAStores
	resolver   *PolicyResolver
	engine     *StatusEngine
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// SLATrackingDependencies bundles collaborators for the facade.
type SLATrackingDependencies struct {
	Stores     SLAStores
	Resolver   *PolicyResolver
	Engine     *StatusEngine
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewSLATrackingService constructs the facade.
func NewSLATrackingService(deps SLATrackingDependencies) *SLATrackingService {
	return &SLATrackingService{
		stores:     deps.Stores,
		resolver:   deps.Resolver,
		engine:     deps.Engine,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        time.Now,
	}
}

// InitializeResult reports newly started tracking.
type InitializeResult struct {
	Deadline    time.Time
	TargetHours float64
	PolicyID    string
	StartedAt   time.Time
	Status      domain.SLAStatus
}

// RefreshResult reports a refreshed status.
type RefreshResult struct {
	Status               domain.SLAStatus
	TimeRemainingMinutes int64
}

// Initialize starts SLA tracking for a newly created entity: resolves the
// policy, computes the deadline and persists deadline, initial status,
// start instant and a zero pause total. Fails hard when no policy matches;
// entities must not silently exist without a deadline.
func (s *SLATrackingService) Initialize(ctx context.Context, kind domain.EntityKind, id string, priority domain.Priority, category *string) (*InitializeResult, error) {
	store, err := s.stores.For(kind)
	if err != nil {
		return nil, err
	}

	policy, err := s.resolver.Resolve(ctx, kind, priority, category)
	if err != nil {
		return nil, err
	}

	startedAt := s.now()
	computation, err := ComputeDeadline(startedAt, policy)
	if err != nil {
		return nil, err
	}

	result := s.engine.Classify(StatusInput{
		Deadline:  computation.Deadline,
		StartedAt: startedAt,
	})

	if err := store.InitializeSLA(ctx, id, repository.SLAInit{
		Deadline:  computation.Deadline,
		Status:    result.Status,
		StartedAt: startedAt,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound(string(kind), map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}

	s.logger.Debug("sla tracking initialized",
		zap.String("entity_kind", string(kind)),
		zap.String("entity_id", id),
		zap.String("policy_id", policy.ID),
		zap.Time("deadline", computation.Deadline),
	)

	return &InitializeResult{
		Deadline:    computation.Deadline,
		TargetHours: computation.TargetHours,
		PolicyID:    computation.PolicyID,
		StartedAt:   startedAt,
		Status:      result.Status,
	}, nil
}

// RefreshStatus reclassifies an entity from its current snapshot and
// persists the new status. Fails with ErrNoDeadlineSet before Initialize.
// The persisted write carries an optimistic guard on the pause state; when
// a concurrent pause or resume wins, the stale status write is skipped and
// the freshly computed result is still returned for display.
func (s *SLATrackingService) RefreshStatus(ctx context.Context, kind domain.EntityKind, id string) (*RefreshResult, error) {
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

	result, err := s.classifySnapshot(snap)
	if err != nil {
		return nil, err
	}

	applied, err := store.SetSLAStatus(ctx, id, result.Status, repository.SLAExpect{
		PausedAt:           snap.SLAPausedAt,
		TotalPausedMinutes: snap.SLATotalPausedMinutes,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !applied {
		s.logger.Debug("sla status write skipped, snapshot diverged",
			zap.String("entity_kind", string(kind)),
			zap.String("entity_id", id),
		)
	} else if result.Status == domain.SLAStatusOverdue && (snap.SLAStatus == nil || *snap.SLAStatus != domain.SLAStatusOverdue) {
		s.metrics.RecordSLABreach(string(kind))
		s.publishBreach(ctx, kind, id, result)
	}

	return &RefreshResult{
		Status:               result.Status,
		TimeRemainingMinutes: result.TimeRemainingMinutes,
	}, nil
}

// Status classifies an entity snapshot without persisting, for display.
func (s *SLATrackingService) Status(ctx context.Context, kind domain.EntityKind, id string) (*domain.SLAStatusResult, error) {
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
	return s.classifySnapshot(snap)
}

// classifySnapshot folds a live pause window into the paused total before
// classification.
func (s *SLATrackingService) classifySnapshot(snap *domain.SLASnapshot) (*domain.SLAStatusResult, error) {
	if snap.SLADeadline == nil {
		return nil, ErrNoDeadlineSet
	}

	pausedMinutes := snap.SLATotalPausedMinutes
	if snap.SLAPausedAt != nil {
		live := minutesBetween(*snap.SLAPausedAt, s.now())
		if live > 0 {
			pausedMinutes += live
		}
	}

	in := StatusInput{
		Deadline:           *snap.SLADeadline,
		TotalPausedMinutes: pausedMinutes,
		PausedAt:           snap.SLAPausedAt,
	}
	if snap.SLAStartedAt != nil {
		in.StartedAt = *snap.SLAStartedAt
	}
	result := s.engine.Classify(in)
	return &result, nil
}

func (s *SLATrackingService) publishBreach(ctx context.Context, kind domain.EntityKind, id string, result *domain.SLAStatusResult) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		Type:       events.EventSLABreached,
		EntityKind: kind,
		EntityID:   id,
		Timestamp:  s.now(),
		Payload: events.SLABreachedPayload{
			Deadline:          result.Deadline,
			EffectiveDeadline: result.EffectiveDeadline,
		},
	})
}
