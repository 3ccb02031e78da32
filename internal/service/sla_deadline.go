package service

import (
	"time"

	"github.com/spec-kit/opsdesk/internal/domain"
)

// ComputeDeadline derives the absolute SLA deadline from a start instant
// and a resolved policy. time.Time is an absolute instant, so adding the
// target as a duration is exact across DST transitions and month or year
// boundaries. No side effects.
func ComputeDeadline(start time.Time, policy *domain.SLAPolicy) (*domain.SLAComputation, error) {
	if start.IsZero() {
		return nil, ErrInvalidStartTime
	}
	target := time.Duration(policy.TargetHours * float64(time.Hour))
	return &domain.SLAComputation{
		Deadline:    start.Add(target),
		TargetHours: policy.TargetHours,
		PolicyID:    policy.ID,
	}, nil
}
