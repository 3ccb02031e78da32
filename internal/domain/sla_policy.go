package domain

import "time"

// SLAPolicy maps (entity kind, priority, category) to a target duration.
// Nil Priority or Category means the policy is generic on that axis.
// Policies are immutable once created; the engine only reads them.
type SLAPolicy struct {
	ID          string
	EntityKind  EntityKind
	Priority    *Priority
	Category    *string
	TargetHours float64
	IsActive    bool
	CreatedAt   time.Time
}

// IsUniversal reports whether the policy is the generic fallback on both axes.
func (p SLAPolicy) IsUniversal() bool {
	return p.Priority == nil && p.Category == nil
}
