package service

import (
	"time"

	"github.com/spec-kit/opsdesk/internal/domain"
)

// atRiskThresholdPercent is the remaining-window share below which an
// entity is flagged AT_RISK.
const atRiskThresholdPercent = 25.0

// StatusInput carries everything classification needs. PausedAt non-nil
// means the clock is live-paused and short-circuits to PAUSED. StartedAt
// anchors the percentage computation at the true start of the SLA window;
// deriving the window from "now" instead collapses the percentage to a
// near-constant ratio, so the anchor is required for a correct result.
type StatusInput struct {
	Deadline           time.Time
	StartedAt          time.Time
	TotalPausedMinutes int64
	PausedAt           *time.Time
}

// StatusEngine classifies SLA compliance for a deadline and pause state.
type StatusEngine struct {
	now func() time.Time
}

// NewStatusEngine constructs the engine.
func NewStatusEngine() *StatusEngine {
	return &StatusEngine{now: time.Now}
}

// Classify derives the live compliance state.
//
// effectiveDeadline = deadline + totalPausedMinutes. OVERDUE when no time
// remains, AT_RISK when less than a quarter of the true window remains,
// ON_TIME otherwise. Paused entities always classify PAUSED, even past the
// deadline. Remaining minutes and percentage are clamped in the result;
// negative intermediates only drive the OVERDUE branch.
func (e *StatusEngine) Classify(in StatusInput) domain.SLAStatusResult {
	if in.PausedAt != nil {
		return domain.SLAStatusResult{
			Status:               domain.SLAStatusPaused,
			TimeRemainingMinutes: 0,
			PercentageRemaining:  0,
			Deadline:             in.Deadline,
			EffectiveDeadline:    in.Deadline,
			TotalPausedMinutes:   in.TotalPausedMinutes,
			IsPaused:             true,
		}
	}

	now := e.now()
	effective := in.Deadline.Add(time.Duration(in.TotalPausedMinutes) * time.Minute)
	remaining := minutesBetween(now, effective)
	percentage := percentageRemaining(in.StartedAt, effective, remaining, now)

	status := domain.SLAStatusOnTime
	switch {
	case remaining <= 0:
		status = domain.SLAStatusOverdue
	case percentage < atRiskThresholdPercent:
		status = domain.SLAStatusAtRisk
	}

	return domain.SLAStatusResult{
		Status:               status,
		TimeRemainingMinutes: clampMinutes(remaining),
		PercentageRemaining:  clampPercentage(percentage),
		Deadline:             in.Deadline,
		EffectiveDeadline:    effective,
		TotalPausedMinutes:   in.TotalPausedMinutes,
		IsPaused:             false,
	}
}

// percentageRemaining computes remaining/(effective-start) against the true
// SLA window. A zero StartedAt (legacy rows predating tracking) degrades to
// the remaining-time sign instead of a bogus ratio.
func percentageRemaining(startedAt, effective time.Time, remainingMinutes int64, now time.Time) float64 {
	if startedAt.IsZero() {
		if remainingMinutes <= 0 {
			return 0
		}
		return 100
	}
	window := effective.Sub(startedAt)
	if window <= 0 {
		return 0
	}
	return float64(effective.Sub(now)) / float64(window) * 100
}

func minutesBetween(from, to time.Time) int64 {
	return int64(to.Sub(from) / time.Minute)
}

func clampMinutes(minutes int64) int64 {
	if minutes < 0 {
		return 0
	}
	return minutes
}

func clampPercentage(pct float64) float64 {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
