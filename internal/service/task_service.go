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

// TaskService manages execution tasks under a request. Each task opts into
// its own SLA tracking with kind TASK.
type TaskService struct {
	tasks      repository.TaskRepository
	requests   repository.RequestRepository
	tracking   *SLATrackingService
	pauses     *SLAPauseService
	dispatcher events.Dispatcher
}

// TaskDependencies bundles collaborators for the task service.
type TaskDependencies struct {
	TaskRepo    repository.TaskRepository
	RequestRepo repository.RequestRepository
	Tracking    *SLATrackingService
	Pauses      *SLAPauseService
	Dispatcher  events.Dispatcher
}

// TaskCreateInput describes task creation payload.
type TaskCreateInput struct {
	Title      string
	Priority   domain.Priority
	AssigneeID *string
}

// NewTaskService constructs the service.
func NewTaskService(deps TaskDependencies) *TaskService {
	return &TaskService{
		tasks:      deps.TaskRepo,
		requests:   deps.RequestRepo,
		tracking:   deps.Tracking,
		pauses:     deps.Pauses,
		dispatcher: deps.Dispatcher,
	}
}

// CreateTask creates a task under a request and starts SLA tracking for
// it. The task inherits the request's priority and category when the
// input leaves them unset.
func (s *TaskService) CreateTask(ctx context.Context, operator *domain.Operator, requestID string, input TaskCreateInput) (*domain.Task, *InitializeResult, error) {
	if operator == nil {
		return nil, nil, apperrors.NewUnauthorized("operator required")
	}
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("request", map[string]any{"request_id": requestID})
		}
		return nil, nil, apperrors.MapError(err)
	}
	if request.Status == domain.RequestStatusCompleted || request.Status == domain.RequestStatusCancelled {
		return nil, nil, apperrors.NewConflict("request already closed", map[string]any{"status": request.Status})
	}

	task := &domain.Task{
		RequestID:  request.ID,
		AssigneeID: input.AssigneeID,
		Title:      strings.TrimSpace(input.Title),
		Status:     domain.TaskStatusPending,
		Priority:   input.Priority,
		CategoryID: request.CategoryID,
	}
	if task.Priority == "" {
		task.Priority = request.Priority
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, nil, apperrors.MapError(err)
	}

	tracking, err := s.tracking.Initialize(ctx, domain.EntityKindTask, task.ID, task.Priority, nil)
	if err != nil {
		return nil, nil, err
	}
	task.SLADeadline = &tracking.Deadline
	task.SLAStatus = &tracking.Status
	task.SLAStartedAt = &tracking.StartedAt

	s.publishEvent(ctx, events.Event{
		Type:       events.EventTaskCreated,
		EntityKind: domain.EntityKindTask,
		EntityID:   task.ID,
		Actor:      operatorActor(operator.ID),
		Payload: events.TaskCreatedPayload{
			RequestID:   task.RequestID,
			Priority:    task.Priority,
			Title:       task.Title,
			SLADeadline: task.SLADeadline,
		},
	})
	return task, tracking, nil
}

// taskTransitions holds the allowed task workflow edges.
var taskTransitions = map[domain.TaskStatus][]domain.TaskStatus{
	domain.TaskStatusPending:    {domain.TaskStatusInProgress, domain.TaskStatusCancelled},
	domain.TaskStatusInProgress: {domain.TaskStatusDone, domain.TaskStatusCancelled},
}

// TransitionTask moves a task along its lifecycle.
func (s *TaskService) TransitionTask(ctx context.Context, operator *domain.Operator, taskID string, to domain.TaskStatus) (*domain.Task, error) {
	if operator == nil {
		return nil, apperrors.NewUnauthorized("operator required")
	}
	task, err := s.fetchTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !taskTransitionAllowed(task.Status, to) {
		return nil, apperrors.NewConflict("transition not allowed", map[string]any{
			"from": task.Status,
			"to":   to,
		})
	}
	old := task.Status
	task.Status = to
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:       events.EventTaskStatusChanged,
		EntityKind: domain.EntityKindTask,
		EntityID:   task.ID,
		Actor:      operatorActor(operator.ID),
		Payload: events.TaskStatusChangedPayload{
			OldStatus: old,
			NewStatus: task.Status,
		},
	})
	return task, nil
}

// PauseTask stops the task's SLA clock while blocked.
func (s *TaskService) PauseTask(ctx context.Context, operator *domain.Operator, taskID string) (*PauseResult, error) {
	if operator == nil {
		return nil, apperrors.NewUnauthorized("operator required")
	}
	return s.pauses.Pause(ctx, domain.EntityKindTask, taskID)
}

// ResumeTask restarts the task's SLA clock.
func (s *TaskService) ResumeTask(ctx context.Context, operator *domain.Operator, taskID string) (*ResumeResult, error) {
	if operator == nil {
		return nil, apperrors.NewUnauthorized("operator required")
	}
	return s.pauses.Resume(ctx, domain.EntityKindTask, taskID)
}

// GetTask fetches a task with its live SLA classification.
func (s *TaskService) GetTask(ctx context.Context, taskID string) (*domain.Task, *domain.SLAStatusResult, error) {
	task, err := s.fetchTask(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	var status *domain.SLAStatusResult
	if task.SLADeadline != nil {
		status, err = s.tracking.Status(ctx, domain.EntityKindTask, task.ID)
		if err != nil {
			return nil, nil, err
		}
	}
	return task, status, nil
}

// ListTasks returns the tasks of a request.
func (s *TaskService) ListTasks(ctx context.Context, requestID string) ([]domain.Task, error) {
	return s.tasks.ListByRequest(ctx, requestID)
}

func (s *TaskService) fetchTask(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("task", map[string]any{"task_id": taskID})
		}
		return nil, apperrors.MapError(err)
	}
	return task, nil
}

func taskTransitionAllowed(from, to domain.TaskStatus) bool {
	for _, allowed := range taskTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s *TaskService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now()
	_ = s.dispatcher.Publish(ctx, event)
}
