package dto

import (
	"time"

	"github.com/spec-kit/opsdesk/internal/domain"
)

// CreateRequestRequest payload.
type CreateRequestRequest struct {
	CategoryID  *string         `json:"category_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    domain.Priority `json:"priority"`
}

// StatusChangeRequest carries an optional comment for workflow moves.
type StatusChangeRequest struct {
	Comment string `json:"comment"`
}

// AssignRequest payload.
type AssignRequest struct {
	OperatorID string `json:"operator_id"`
}

// RequestSummary response.
type RequestSummary struct {
	ID          string               `json:"id"`
	ExternalKey string               `json:"external_key"`
	CategoryID  *string              `json:"category_id,omitempty"`
	AssigneeID  *string              `json:"assignee_id,omitempty"`
	Title       string               `json:"title"`
	Status      domain.RequestStatus `json:"status"`
	Priority    domain.Priority      `json:"priority"`
	SLADeadline *time.Time           `json:"sla_deadline,omitempty"`
	SLAStatus   *domain.SLAStatus    `json:"sla_status,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// RequestDetailResponse provides full request info.
type RequestDetailResponse struct {
	ID          string               `json:"id"`
	ExternalKey string               `json:"external_key"`
	CategoryID  *string              `json:"category_id,omitempty"`
	AssigneeID  *string              `json:"assignee_id,omitempty"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Status      domain.RequestStatus `json:"status"`
	Priority    domain.Priority      `json:"priority"`
	SLA         *SLAStatusResponse   `json:"sla,omitempty"`
	Tasks       []TaskSummary        `json:"tasks"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
}

// SLAStatusResponse is the display shape of an SLA classification.
type SLAStatusResponse struct {
	Status               domain.SLAStatus `json:"status"`
	TimeRemainingMinutes int64            `json:"time_remaining_minutes"`
	PercentageRemaining  float64          `json:"percentage_remaining"`
	Deadline             time.Time        `json:"deadline"`
	EffectiveDeadline    time.Time        `json:"effective_deadline"`
	TotalPausedMinutes   int64            `json:"total_paused_minutes"`
	IsPaused             bool             `json:"is_paused"`
}
