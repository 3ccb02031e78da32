package domain

import "time"

// SubjectType differentiates requester vs operator tokens.
type SubjectType string

const (
	SubjectTypeUser     SubjectType = "USER"
	SubjectTypeOperator SubjectType = "OPERATOR"
)

// Token represents issued authentication token metadata.
type Token struct {
	ID        string
	SubjectID string
	Subject   SubjectType
	Role      *OperatorRole
	ExpiresAt time.Time
	IssuedAt  time.Time
}
