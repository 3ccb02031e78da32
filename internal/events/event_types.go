package events

import (
	"time"

	"github.com/spec-kit/opsdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestCreated       EventType = "request_created"
	EventRequestStatusChanged EventType = "request_status_changed"
	EventRequestAssigned      EventType = "request_assigned"
	EventTaskCreated          EventType = "task_created"
	EventTaskStatusChanged    EventType = "task_status_changed"
	EventSLAPaused            EventType = "sla_paused"
	EventSLAResumed           EventType = "sla_resumed"
	EventSLABreached          EventType = "sla_breached"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type       domain.SubjectType `json:"type"`
	UserID     *string            `json:"user_id,omitempty"`
	OperatorID *string            `json:"operator_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	EntityKind domain.EntityKind `json:"entity_kind"`
	EntityID   string            `json:"entity_id"`
	Actor      Actor             `json:"actor"`
	Timestamp  time.Time         `json:"timestamp"`
	Payload    interface{}       `json:"payload"`
}

// RequestCreatedPayload payload.
type RequestCreatedPayload struct {
	CategoryID  *string          `json:"category_id,omitempty"`
	Priority    domain.Priority  `json:"priority"`
	Title       string           `json:"title"`
	SLADeadline *time.Time       `json:"sla_deadline,omitempty"`
	SLAStatus   *domain.SLAStatus `json:"sla_status,omitempty"`
}

// RequestStatusChangedPayload payload.
type RequestStatusChangedPayload struct {
	OldStatus domain.RequestStatus `json:"old_status"`
	NewStatus domain.RequestStatus `json:"new_status"`
	Comment   string               `json:"comment,omitempty"`
}

// RequestAssignedPayload payload.
type RequestAssignedPayload struct {
	AssigneeOperatorID *string `json:"assignee_operator_id,omitempty"`
}

// TaskCreatedPayload payload.
type TaskCreatedPayload struct {
	RequestID   string          `json:"request_id"`
	Priority    domain.Priority `json:"priority"`
	Title       string          `json:"title"`
	SLADeadline *time.Time      `json:"sla_deadline,omitempty"`
}

// TaskStatusChangedPayload payload.
type TaskStatusChangedPayload struct {
	OldStatus domain.TaskStatus `json:"old_status"`
	NewStatus domain.TaskStatus `json:"new_status"`
}

// SLAPausedPayload payload.
type SLAPausedPayload struct {
	PausedAt time.Time `json:"paused_at"`
}

// SLAResumedPayload payload.
type SLAResumedPayload struct {
	TotalPausedMinutes int64            `json:"total_paused_minutes"`
	Status             domain.SLAStatus `json:"status"`
}

// SLABreachedPayload payload.
type SLABreachedPayload struct {
	Deadline          time.Time `json:"deadline"`
	EffectiveDeadline time.Time `json:"effective_deadline"`
}
