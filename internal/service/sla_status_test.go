package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/opsdesk/internal/domain"
)

func engineAt(now time.Time) *StatusEngine {
	e := NewStatusEngine()
	e.now = func() time.Time { return now }
	return e
}

func TestClassifyOnTime(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	deadline := start.Add(8 * time.Hour)
	engine := engineAt(start.Add(2 * time.Hour))

	got := engine.Classify(StatusInput{Deadline: deadline, StartedAt: start})

	assert.Equal(t, domain.SLAStatusOnTime, got.Status)
	assert.Equal(t, int64(360), got.TimeRemainingMinutes)
	assert.InDelta(t, 75.0, got.PercentageRemaining, 0.01)
	assert.Equal(t, deadline, got.EffectiveDeadline)
	assert.False(t, got.IsPaused)
}

func TestClassifyAtRiskBelowQuarterWindow(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	deadline := start.Add(8 * time.Hour)
	// 90 minutes remain of a 480-minute window: 18.75%.
	engine := engineAt(deadline.Add(-90 * time.Minute))

	got := engine.Classify(StatusInput{Deadline: deadline, StartedAt: start})

	assert.Equal(t, domain.SLAStatusAtRisk, got.Status)
	assert.Equal(t, int64(90), got.TimeRemainingMinutes)
	assert.InDelta(t, 18.75, got.PercentageRemaining, 0.01)
}

func TestClassifyExactQuarterWindowIsOnTime(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	deadline := start.Add(8 * time.Hour)
	engine := engineAt(deadline.Add(-120 * time.Minute))

	got := engine.Classify(StatusInput{Deadline: deadline, StartedAt: start})

	// Exactly 25% is not below the threshold.
	assert.Equal(t, domain.SLAStatusOnTime, got.Status)
}

func TestClassifyOverdueClampsResult(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	deadline := start.Add(time.Hour)
	engine := engineAt(deadline.Add(3 * time.Hour))

	got := engine.Classify(StatusInput{Deadline: deadline, StartedAt: start})

	assert.Equal(t, domain.SLAStatusOverdue, got.Status)
	assert.Equal(t, int64(0), got.TimeRemainingMinutes)
	assert.Equal(t, 0.0, got.PercentageRemaining)
}

func TestClassifyDeadlineInstantIsOverdue(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	deadline := start.Add(time.Hour)
	engine := engineAt(deadline)

	got := engine.Classify(StatusInput{Deadline: deadline, StartedAt: start})

	assert.Equal(t, domain.SLAStatusOverdue, got.Status)
}

func TestClassifyPauseShiftsEffectiveDeadline(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	deadline := start.Add(time.Hour)
	// 30 minutes past the raw deadline, but 90 minutes of accumulated
	// pause keep the entity inside its window.
	engine := engineAt(deadline.Add(30 * time.Minute))

	got := engine.Classify(StatusInput{
		Deadline:           deadline,
		StartedAt:          start,
		TotalPausedMinutes: 90,
	})

	assert.NotEqual(t, domain.SLAStatusOverdue, got.Status)
	assert.Equal(t, int64(60), got.TimeRemainingMinutes)
	assert.Equal(t, deadline.Add(90*time.Minute), got.EffectiveDeadline)
}

func TestClassifyPausedShortCircuits(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	deadline := start.Add(time.Hour)
	pausedAt := deadline.Add(-10 * time.Minute)
	// Far past the deadline; a paused entity still never goes OVERDUE.
	engine := engineAt(deadline.Add(48 * time.Hour))

	got := engine.Classify(StatusInput{
		Deadline:  deadline,
		StartedAt: start,
		PausedAt:  &pausedAt,
	})

	assert.Equal(t, domain.SLAStatusPaused, got.Status)
	assert.True(t, got.IsPaused)
}

func TestClassifyPercentageClampedToHundred(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	deadline := start.Add(8 * time.Hour)
	// now before the start instant can only happen with clock skew;
	// percentage must not exceed 100.
	engine := engineAt(start.Add(-10 * time.Minute))

	got := engine.Classify(StatusInput{Deadline: deadline, StartedAt: start})

	assert.Equal(t, 100.0, got.PercentageRemaining)
}

func TestClassifyZeroStartFallsBackToRemainingSign(t *testing.T) {
	deadline := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	engine := engineAt(deadline.Add(-time.Hour))
	got := engine.Classify(StatusInput{Deadline: deadline})
	assert.Equal(t, domain.SLAStatusOnTime, got.Status)
	assert.Equal(t, 100.0, got.PercentageRemaining)

	engine = engineAt(deadline.Add(time.Hour))
	got = engine.Classify(StatusInput{Deadline: deadline})
	assert.Equal(t, domain.SLAStatusOverdue, got.Status)
	assert.Equal(t, 0.0, got.PercentageRemaining)
}
