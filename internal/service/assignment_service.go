package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/opsdesk/internal/domain"
	"github.com/spec-kit/opsdesk/internal/events"
	"github.com/spec-kit/opsdesk/internal/repository"
	apperrors "github.com/spec-kit/opsdesk/pkg/util"
)

// AssignmentService handles request assignment operations. Assignment has
// no effect on SLA computation; the clock keeps running regardless of who
// holds the request.
type AssignmentService struct {
	requests   repository.RequestRepository
	operators  repository.OperatorRepository
	dispatcher events.Dispatcher
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	RequestRepo  repository.RequestRepository
	OperatorRepo repository.OperatorRepository
	Dispatcher   events.Dispatcher
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		requests:   deps.RequestRepo,
		operators:  deps.OperatorRepo,
		dispatcher: deps.Dispatcher,
	}
}

// SelfAssign lets an operator take a request.
func (s *AssignmentService) SelfAssign(ctx context.Context, operator *domain.Operator, requestID string) (*domain.Request, error) {
	if operator == nil {
		return nil, apperrors.NewUnauthorized("operator required")
	}
	request, err := s.fetchRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !operatorCanAccess(operator, request) {
		return nil, apperrors.NewForbidden("access denied")
	}
	request.AssigneeID = &operator.ID
	if err := s.requests.Update(ctx, request); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishAssigned(ctx, operator.ID, request)
	return request, nil
}

// AssignToOperator assigns a request to the given operator (LEAD/ADMIN).
func (s *AssignmentService) AssignToOperator(ctx context.Context, actor *domain.Operator, requestID, assigneeID string) (*domain.Request, error) {
	if err := requireAssignPriv(actor); err != nil {
		return nil, err
	}
	assignee, err := s.operators.GetByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("operator", map[string]any{"operator_id": assigneeID})
		}
		return nil, apperrors.MapError(err)
	}
	if !assignee.Active {
		return nil, apperrors.NewConflict("assignee inactive", map[string]any{"operator_id": assigneeID})
	}
	request, err := s.fetchRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	request.AssigneeID = &assignee.ID
	if err := s.requests.Update(ctx, request); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishAssigned(ctx, actor.ID, request)
	return request, nil
}

// Unassign releases a request back to the queue (LEAD/ADMIN).
func (s *AssignmentService) Unassign(ctx context.Context, actor *domain.Operator, requestID string) (*domain.Request, error) {
	if err := requireAssignPriv(actor); err != nil {
		return nil, err
	}
	request, err := s.fetchRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	request.AssigneeID = nil
	if err := s.requests.Update(ctx, request); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishAssigned(ctx, actor.ID, request)
	return request, nil
}

func requireAssignPriv(operator *domain.Operator) error {
	if operator == nil {
		return apperrors.NewUnauthorized("operator required")
	}
	if operator.Role != domain.OperatorRoleLead && operator.Role != domain.OperatorRoleAdmin {
		return apperrors.NewForbidden("insufficient role for assignment")
	}
	return nil
}

func (s *AssignmentService) fetchRequest(ctx context.Context, requestID string) (*domain.Request, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("request", map[string]any{"request_id": requestID})
		}
		return nil, apperrors.MapError(err)
	}
	return request, nil
}

func (s *AssignmentService) publishAssigned(ctx context.Context, actorID string, request *domain.Request) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:         uuid.NewString(),
		Type:       events.EventRequestAssigned,
		EntityKind: domain.EntityKindRequest,
		EntityID:   request.ID,
		Actor:      operatorActor(actorID),
		Timestamp:  time.Now(),
		Payload: events.RequestAssignedPayload{
			AssigneeOperatorID: request.AssigneeID,
		},
	})
}
