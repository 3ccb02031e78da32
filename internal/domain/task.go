package domain

import "time"

// TaskStatus enumerates lifecycle states for execution tasks.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
	TaskStatusCancelled  TaskStatus = "CANCELLED"
)

// Task is an execution item carried out under a request.
type Task struct {
	ID         string
	RequestID  string
	AssigneeID *string
	Title      string
	Status     TaskStatus
	Priority   Priority
	CategoryID *string
	SLAInfo
	CreatedAt time.Time
	UpdatedAt time.Time
}
