package domain

import "time"

// RequestStatus enumerates lifecycle states for operations requests.
type RequestStatus string

const (
	RequestStatusNew              RequestStatus = "NEW"
	RequestStatusInProgress       RequestStatus = "IN_PROGRESS"
	RequestStatusWaitingRequester RequestStatus = "WAITING_REQUESTER"
	RequestStatusPendingApproval  RequestStatus = "PENDING_APPROVAL"
	RequestStatusCompleted        RequestStatus = "COMPLETED"
	RequestStatusCancelled        RequestStatus = "CANCELLED"
)

// Priority enumerates SLA urgency for requests and tasks.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Request is the aggregate for operations requests.
type Request struct {
	ID          string
	ExternalKey string
	RequesterID string
	CategoryID  *string
	AssigneeID  *string
	Title       string
	Description string
	Status      RequestStatus
	Priority    Priority
	SLAInfo
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}
