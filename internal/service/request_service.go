package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/opsdesk/internal/domain"
	"github.com/spec-kit/opsdesk/internal/events"
	"github.com/spec-kit/opsdesk/internal/repository"
	apperrors "github.com/spec-kit/opsdesk/pkg/util"
)

// RequestService coordinates the intake and workflow lifecycle of
// operations requests. SLA tracking is delegated to the tracking facade
// and pause controller; this service only decides when the workflow
// enters or leaves a waiting state.
type RequestService struct {
	requests   repository.RequestRepository
	tasks      repository.TaskRepository
	categories repository.CategoryRepository
	tracking   *SLATrackingService
	pauses     *SLAPauseService
	dispatcher events.Dispatcher
}

// RequestDependencies bundles collaborators for the request service.
type RequestDependencies struct {
	RequestRepo  repository.RequestRepository
	TaskRepo     repository.TaskRepository
	CategoryRepo repository.CategoryRepository
	Tracking     *SLATrackingService
	Pauses       *SLAPauseService
	Dispatcher   events.Dispatcher
}

// RequestCreateInput describes request creation payload.
type RequestCreateInput struct {
	CategoryID  *string
	Title       string
	Description string
	Priority    domain.Priority
}

// RequestUserFilter describes requester listing filters.
type RequestUserFilter struct {
	Statuses   []domain.RequestStatus
	Priorities []domain.Priority
	Limit      int
	Offset     int
}

// RequestOperatorFilter describes operator listing filters.
type RequestOperatorFilter struct {
	CategoryID  *string
	AssigneeID  *string
	Statuses    []domain.RequestStatus
	Priorities  []domain.Priority
	SLAStatuses []domain.SLAStatus
	SearchTerm  *string
	Limit       int
	Offset      int
}

// NewRequestService constructs the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	return &RequestService{
		requests:   deps.RequestRepo,
		tasks:      deps.TaskRepo,
		categories: deps.CategoryRepo,
		tracking:   deps.Tracking,
		pauses:     deps.Pauses,
		dispatcher: deps.Dispatcher,
	}
}

// CreateRequest files a request for a requester and starts SLA tracking.
// Creation fails when no SLA policy matches: a request without a deadline
// would make every downstream status computation meaningless.
func (s *RequestService) CreateRequest(ctx context.Context, userID string, input RequestCreateInput) (*domain.Request, *InitializeResult, error) {
	var categoryName *string
	if input.CategoryID != nil {
		category, err := s.categories.GetByID(ctx, *input.CategoryID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil, apperrors.NewNotFound("category", map[string]any{"category_id": *input.CategoryID})
			}
			return nil, nil, apperrors.MapError(err)
		}
		if !category.IsActive {
			return nil, nil, apperrors.NewConflict("category inactive", map[string]any{"category_id": category.ID})
		}
		categoryName = &category.Name
	}

	request := &domain.Request{
		ExternalKey: generateExternalKey("REQ"),
		RequesterID: userID,
		CategoryID:  input.CategoryID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Status:      domain.RequestStatusNew,
		Priority:    input.Priority,
	}
	if request.Priority == "" {
		request.Priority = domain.PriorityMedium
	}

	if err := s.requests.Create(ctx, request); err != nil {
		return nil, nil, apperrors.MapError(err)
	}

	tracking, err := s.tracking.Initialize(ctx, domain.EntityKindRequest, request.ID, request.Priority, categoryName)
	if err != nil {
		return nil, nil, err
	}
	request.SLADeadline = &tracking.Deadline
	request.SLAStatus = &tracking.Status
	request.SLAStartedAt = &tracking.StartedAt

	s.publishEvent(ctx, events.Event{
		Type:       events.EventRequestCreated,
		EntityKind: domain.EntityKindRequest,
		EntityID:   request.ID,
		Actor:      userActor(userID),
		Payload: events.RequestCreatedPayload{
			CategoryID:  request.CategoryID,
			Priority:    request.Priority,
			Title:       request.Title,
			SLADeadline: request.SLADeadline,
			SLAStatus:   request.SLAStatus,
		},
	})
	return request, tracking, nil
}

// ListUserRequests returns paginated requests for a requester.
func (s *RequestService) ListUserRequests(ctx context.Context, userID string, filter RequestUserFilter) ([]domain.Request, error) {
	return s.requests.ListWithFilter(ctx, repository.RequestFilter{
		RequesterID: &userID,
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	})
}

// GetRequestForUser fetches a request ensuring ownership, with its tasks
// and live SLA classification.
func (s *RequestService) GetRequestForUser(ctx context.Context, userID, requestID string) (*domain.Request, []domain.Task, *domain.SLAStatusResult, error) {
	request, err := s.fetchRequest(ctx, requestID)
	if err != nil {
		return nil, nil, nil, err
	}
	if request.RequesterID != userID {
		return nil, nil, nil, apperrors.NewForbidden("access denied")
	}
	return s.withTasksAndStatus(ctx, request)
}

// ListOperatorRequests returns requests matching operator filters.
func (s *RequestService) ListOperatorRequests(ctx context.Context, operator *domain.Operator, filter RequestOperatorFilter) ([]domain.Request, error) {
	if operator == nil {
		return nil, apperrors.NewUnauthorized("operator required")
	}
	repoFilter := repository.RequestFilter{
		CategoryID:  filter.CategoryID,
		AssigneeID:  filter.AssigneeID,
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		SLAStatuses: filter.SLAStatuses,
		SearchTerm:  filter.SearchTerm,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	if operator.Role == domain.OperatorRoleAgent && operator.CategoryID != nil && repoFilter.CategoryID == nil {
		repoFilter.CategoryID = operator.CategoryID
	}
	return s.requests.ListWithFilter(ctx, repoFilter)
}

// GetRequestForOperator fetches a request ensuring operator access.
func (s *RequestService) GetRequestForOperator(ctx context.Context, operator *domain.Operator, requestID string) (*domain.Request, []domain.Task, *domain.SLAStatusResult, error) {
	request, err := s.fetchRequest(ctx, requestID)
	if err != nil {
		return nil, nil, nil, err
	}
	if !operatorCanAccess(operator, request) {
		return nil, nil, nil, apperrors.NewForbidden("access denied")
	}
	return s.withTasksAndStatus(ctx, request)
}

// StartWork moves a request into execution.
func (s *RequestService) StartWork(ctx context.Context, operator *domain.Operator, requestID string) (*domain.Request, error) {
	return s.transition(ctx, operator, requestID, domain.RequestStatusInProgress, "")
}

// WaitOnRequester parks a request on the requester and pauses its SLA
// clock: time spent waiting for clarification does not advance the window
// toward breach.
func (s *RequestService) WaitOnRequester(ctx context.Context, operator *domain.Operator, requestID, comment string) (*domain.Request, error) {
	request, err := s.transition(ctx, operator, requestID, domain.RequestStatusWaitingRequester, comment)
	if err != nil {
		return nil, err
	}
	if _, err := s.pauses.Pause(ctx, domain.EntityKindRequest, request.ID); err != nil && !errors.Is(err, ErrAlreadyPaused) {
		return nil, err
	}
	return request, nil
}

// ResumeFromRequester puts a parked request back into execution and
// resumes its SLA clock.
func (s *RequestService) ResumeFromRequester(ctx context.Context, operator *domain.Operator, requestID string) (*domain.Request, error) {
	request, err := s.transition(ctx, operator, requestID, domain.RequestStatusInProgress, "")
	if err != nil {
		return nil, err
	}
	if _, err := s.pauses.Resume(ctx, domain.EntityKindRequest, request.ID); err != nil && !errors.Is(err, ErrNotPaused) {
		return nil, err
	}
	return request, nil
}

// SubmitForApproval hands a finished request to the requester for sign-off.
func (s *RequestService) SubmitForApproval(ctx context.Context, operator *domain.Operator, requestID string) (*domain.Request, error) {
	return s.transition(ctx, operator, requestID, domain.RequestStatusPendingApproval, "")
}

// ApproveCompletion lets the requester sign off a request.
func (s *RequestService) ApproveCompletion(ctx context.Context, userID, requestID string) (*domain.Request, error) {
	request, err := s.fetchRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.RequesterID != userID {
		return nil, apperrors.NewForbidden("access denied")
	}
	if request.Status != domain.RequestStatusPendingApproval {
		return nil, apperrors.NewConflict("request not pending approval", map[string]any{"status": request.Status})
	}
	old := request.Status
	now := time.Now()
	request.Status = domain.RequestStatusCompleted
	request.CompletedAt = &now
	if err := s.requests.Update(ctx, request); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishStatusChange(ctx, userActor(userID), request, old, "")
	return request, nil
}

// CancelRequest cancels a request on the requester's behalf.
func (s *RequestService) CancelRequest(ctx context.Context, userID, requestID string) (*domain.Request, error) {
	request, err := s.fetchRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.RequesterID != userID {
		return nil, apperrors.NewForbidden("access denied")
	}
	if request.Status == domain.RequestStatusCompleted || request.Status == domain.RequestStatusCancelled {
		return nil, apperrors.NewConflict("request already closed", map[string]any{"status": request.Status})
	}
	old := request.Status
	request.Status = domain.RequestStatusCancelled
	if err := s.requests.Update(ctx, request); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishStatusChange(ctx, userActor(userID), request, old, "")
	return request, nil
}

// allowedTransitions holds the operator-driven workflow edges.
var allowedTransitions = map[domain.RequestStatus][]domain.RequestStatus{
	domain.RequestStatusNew:              {domain.RequestStatusInProgress, domain.RequestStatusCancelled},
	domain.RequestStatusInProgress:       {domain.RequestStatusWaitingRequester, domain.RequestStatusPendingApproval, domain.RequestStatusCancelled},
	domain.RequestStatusWaitingRequester: {domain.RequestStatusInProgress, domain.RequestStatusCancelled},
	domain.RequestStatusPendingApproval:  {domain.RequestStatusInProgress, domain.RequestStatusCompleted},
}

func transitionAllowed(from, to domain.RequestStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s *RequestService) transition(ctx context.Context, operator *domain.Operator, requestID string, to domain.RequestStatus, comment string) (*domain.Request, error) {
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
	if !transitionAllowed(request.Status, to) {
		return nil, apperrors.NewConflict("transition not allowed", map[string]any{
			"from": request.Status,
			"to":   to,
		})
	}
	old := request.Status
	request.Status = to
	if err := s.requests.Update(ctx, request); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishStatusChange(ctx, operatorActor(operator.ID), request, old, comment)
	return request, nil
}

func (s *RequestService) fetchRequest(ctx context.Context, requestID string) (*domain.Request, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("request", map[string]any{"request_id": requestID})
		}
		return nil, apperrors.MapError(err)
	}
	return request, nil
}

func (s *RequestService) withTasksAndStatus(ctx context.Context, request *domain.Request) (*domain.Request, []domain.Task, *domain.SLAStatusResult, error) {
	tasks, err := s.tasks.ListByRequest(ctx, request.ID)
	if err != nil {
		return nil, nil, nil, apperrors.MapError(err)
	}
	var status *domain.SLAStatusResult
	if request.SLADeadline != nil {
		status, err = s.tracking.Status(ctx, domain.EntityKindRequest, request.ID)
		if err != nil {
			return nil, nil, nil, err
		}
	}
	return request, tasks, status, nil
}

func (s *RequestService) publishStatusChange(ctx context.Context, actor events.Actor, request *domain.Request, old domain.RequestStatus, comment string) {
	s.publishEvent(ctx, events.Event{
		Type:       events.EventRequestStatusChanged,
		EntityKind: domain.EntityKindRequest,
		EntityID:   request.ID,
		Actor:      actor,
		Payload: events.RequestStatusChangedPayload{
			OldStatus: old,
			NewStatus: request.Status,
			Comment:   comment,
		},
	})
}

func (s *RequestService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now()
	_ = s.dispatcher.Publish(ctx, event)
}

func operatorCanAccess(operator *domain.Operator, request *domain.Request) bool {
	if operator == nil {
		return false
	}
	if operator.Role == domain.OperatorRoleAdmin || operator.Role == domain.OperatorRoleLead {
		return true
	}
	if operator.CategoryID == nil || request.CategoryID == nil {
		return true
	}
	return *operator.CategoryID == *request.CategoryID
}

func userActor(userID string) events.Actor {
	return events.Actor{Type: domain.SubjectTypeUser, UserID: &userID}
}

func operatorActor(operatorID string) events.Actor {
	return events.Actor{Type: domain.SubjectTypeOperator, OperatorID: &operatorID}
}

func generateExternalKey(prefix string) string {
	return prefix + "-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
