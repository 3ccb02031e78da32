package domain

import "time"

// EntityKind names the concrete entity types that carry SLA tracking.
type EntityKind string

const (
	EntityKindRequest EntityKind = "REQUEST"
	EntityKindTask    EntityKind = "TASK"
)

// SLAStatus enumerates live compliance states.
type SLAStatus string

const (
	SLAStatusOnTime  SLAStatus = "ON_TIME"
	SLAStatusAtRisk  SLAStatus = "AT_RISK"
	SLAStatusOverdue SLAStatus = "OVERDUE"
	SLAStatusPaused  SLAStatus = "PAUSED"
)

// SLAInfo is the SLA projection embedded in requests and tasks.
// SLAPausedAt is non-nil iff the clock is currently paused;
// SLATotalPausedMinutes only grows, and only at resume time.
type SLAInfo struct {
	SLADeadline           *time.Time
	SLAStatus             *SLAStatus
	SLAStartedAt          *time.Time
	SLAPausedAt           *time.Time
	SLATotalPausedMinutes int64
}

// IsSLAPaused reports whether the SLA clock is paused.
func (s SLAInfo) IsSLAPaused() bool {
	return s.SLAPausedAt != nil
}

// SLASnapshot is the kind-tagged read model of an entity's SLA fields.
type SLASnapshot struct {
	ID   string
	Kind EntityKind
	SLAInfo
}

// SLAComputation is the output of deadline calculation.
type SLAComputation struct {
	Deadline    time.Time
	TargetHours float64
	PolicyID    string
}

// SLAStatusResult is the classified compliance state returned to callers.
// TimeRemainingMinutes and PercentageRemaining are clamped to >=0 and
// [0,100]; EffectiveDeadline is Deadline shifted by accumulated pause time.
type SLAStatusResult struct {
	Status               SLAStatus
	TimeRemainingMinutes int64
	PercentageRemaining  float64
	Deadline             time.Time
	EffectiveDeadline    time.Time
	TotalPausedMinutes   int64
	IsPaused             bool
}
