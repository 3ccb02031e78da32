package domain

import "time"

// OperatorRole enumerates internal operator roles.
type OperatorRole string

const (
	OperatorRoleAgent OperatorRole = "AGENT"
	OperatorRoleLead  OperatorRole = "LEAD"
	OperatorRoleAdmin OperatorRole = "ADMIN"
)

// Operator models a member of the operations team.
type Operator struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         OperatorRole
	CategoryID   *string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
