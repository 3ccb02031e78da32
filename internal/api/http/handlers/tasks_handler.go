package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/opsdesk/internal/api/dto"
	"github.com/spec-kit/opsdesk/internal/domain"
	"github.com/spec-kit/opsdesk/internal/service"
	apperrors "github.com/spec-kit/opsdesk/pkg/util"
)

// TasksHandler manages operator task endpoints.
type TasksHandler struct {
	tasks *service.TaskService
}

// NewTasksHandler constructs handler.
func NewTasksHandler(taskService *service.TaskService) *TasksHandler {
	return &TasksHandler{tasks: taskService}
}

// CreateTask POST /ops/requests/:id/tasks.
func (h *TasksHandler) CreateTask(c *fiber.Ctx) error {
	operator, err := operatorPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Title) == "" {
		return apperrors.NewValidationError("title required", nil)
	}
	input := service.TaskCreateInput{
		Title:      req.Title,
		Priority:   req.Priority,
		AssigneeID: req.AssigneeID,
	}
	task, _, err := h.tasks.CreateTask(c.Context(), operator, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": taskSummary(task)})
}

// ListTasks GET /ops/requests/:id/tasks.
func (h *TasksHandler) ListTasks(c *fiber.Ctx) error {
	if _, err := operatorPrincipal(c); err != nil {
		return err
	}
	tasks, err := h.tasks.ListTasks(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.TaskSummary, 0, len(tasks))
	for i := range tasks {
		items = append(items, taskSummary(&tasks[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTask GET /ops/tasks/:id.
func (h *TasksHandler) GetTask(c *fiber.Ctx) error {
	if _, err := operatorPrincipal(c); err != nil {
		return err
	}
	task, status, err := h.tasks.GetTask(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": taskDetail(task, status)})
}

// TransitionTask POST /ops/tasks/:id/transition.
func (h *TasksHandler) TransitionTask(c *fiber.Ctx) error {
	operator, err := operatorPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.TaskTransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}
	task, err := h.tasks.TransitionTask(c.Context(), operator, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": taskSummary(task)})
}

// PauseTask POST /ops/tasks/:id/sla/pause.
func (h *TasksHandler) PauseTask(c *fiber.Ctx) error {
	operator, err := operatorPrincipal(c)
	if err != nil {
		return err
	}
	result, err := h.tasks.PauseTask(c.Context(), operator, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"id":        result.ID,
		"paused_at": result.PausedAt,
	}})
}

// ResumeTask POST /ops/tasks/:id/sla/resume.
func (h *TasksHandler) ResumeTask(c *fiber.Ctx) error {
	operator, err := operatorPrincipal(c)
	if err != nil {
		return err
	}
	result, err := h.tasks.ResumeTask(c.Context(), operator, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"id":                   result.ID,
		"total_paused_minutes": result.TotalPausedMinutes,
		"status":               result.Status,
	}})
}

func taskSummary(task *domain.Task) dto.TaskSummary {
	return dto.TaskSummary{
		ID:          task.ID,
		RequestID:   task.RequestID,
		AssigneeID:  task.AssigneeID,
		Title:       task.Title,
		Status:      task.Status,
		Priority:    task.Priority,
		SLADeadline: task.SLADeadline,
		SLAStatus:   task.SLAStatus,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

func taskDetail(task *domain.Task, status *domain.SLAStatusResult) dto.TaskDetailResponse {
	return dto.TaskDetailResponse{
		TaskSummary: taskSummary(task),
		SLA:         slaStatusResponse(status),
	}
}
