package dto

import (
	"time"

	"github.com/spec-kit/opsdesk/internal/domain"
)

// CreateTaskRequest payload.
type CreateTaskRequest struct {
	Title      string          `json:"title"`
	Priority   domain.Priority `json:"priority"`
	AssigneeID *string         `json:"assignee_id"`
}

// TaskTransitionRequest payload.
type TaskTransitionRequest struct {
	Status domain.TaskStatus `json:"status"`
}

// TaskSummary response.
type TaskSummary struct {
	ID          string            `json:"id"`
	RequestID   string            `json:"request_id"`
	AssigneeID  *string           `json:"assignee_id,omitempty"`
	Title       string            `json:"title"`
	Status      domain.TaskStatus `json:"status"`
	Priority    domain.Priority   `json:"priority"`
	SLADeadline *time.Time        `json:"sla_deadline,omitempty"`
	SLAStatus   *domain.SLAStatus `json:"sla_status,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// TaskDetailResponse provides a task with its SLA classification.
type TaskDetailResponse struct {
	TaskSummary
	SLA *SLAStatusResponse `json:"sla,omitempty"`
}
