package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/opsdesk/internal/domain"
)

func TestComputeDeadline(t *testing.T) {
	start := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	p := policy("p1", domain.EntityKindRequest, nil, nil, 4)

	got, err := ComputeDeadline(start, &p)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 15, 14, 0, 0, 0, time.UTC), got.Deadline)
	assert.Equal(t, 4.0, got.TargetHours)
	assert.Equal(t, "p1", got.PolicyID)
}

func TestComputeDeadlineFractionalHours(t *testing.T) {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	p := policy("p1", domain.EntityKindTask, nil, nil, 0.5)

	got, err := ComputeDeadline(start, &p)
	require.NoError(t, err)
	assert.Equal(t, start.Add(30*time.Minute), got.Deadline)
}

func TestComputeDeadlineCrossesDayBoundary(t *testing.T) {
	start := time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC)
	p := policy("p1", domain.EntityKindRequest, nil, nil, 2)

	got, err := ComputeDeadline(start, &p)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC), got.Deadline)
}

func TestComputeDeadlineAbsoluteAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 2025-03-09 01:30 local is 30 minutes before the spring-forward
	// gap; adding 1h lands on 03:30 wall clock but exactly 1h of
	// absolute time.
	start := time.Date(2025, 3, 9, 1, 30, 0, 0, loc)
	p := policy("p1", domain.EntityKindRequest, nil, nil, 1)

	got, err := ComputeDeadline(start, &p)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, got.Deadline.Sub(start))
}

func TestComputeDeadlineRejectsZeroStart(t *testing.T) {
	p := policy("p1", domain.EntityKindRequest, nil, nil, 4)

	_, err := ComputeDeadline(time.Time{}, &p)
	assert.True(t, errors.Is(err, ErrInvalidStartTime))
}
