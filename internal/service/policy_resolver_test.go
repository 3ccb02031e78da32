package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/opsdesk/internal/domain"
)

func strPtr(s string) *string { return &s }

func prioPtr(p domain.Priority) *domain.Priority { return &p }

func policy(id string, kind domain.EntityKind, priority *domain.Priority, category *string, hours float64) domain.SLAPolicy {
	return domain.SLAPolicy{
		ID:          id,
		EntityKind:  kind,
		Priority:    priority,
		Category:    category,
		TargetHours: hours,
		IsActive:    true,
	}
}

func TestResolvePicksMostSpecificPolicy(t *testing.T) {
	source := &mockPolicySource{policies: []domain.SLAPolicy{
		policy("p1", domain.EntityKindRequest, prioPtr(domain.PriorityUrgent), strPtr("SUPPORT"), 1),
		policy("p2", domain.EntityKindRequest, prioPtr(domain.PriorityUrgent), nil, 2),
		policy("p3", domain.EntityKindRequest, nil, nil, 24),
	}}
	resolver := NewPolicyResolver(source)

	got, err := resolver.Resolve(context.Background(), domain.EntityKindRequest, domain.PriorityUrgent, strPtr("SUPPORT"))
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID)
	assert.Equal(t, 1.0, got.TargetHours)
}

func TestResolveFallsBackOnCategoryMismatch(t *testing.T) {
	source := &mockPolicySource{policies: []domain.SLAPolicy{
		policy("p1", domain.EntityKindRequest, prioPtr(domain.PriorityUrgent), strPtr("SUPPORT"), 1),
		policy("p2", domain.EntityKindRequest, prioPtr(domain.PriorityUrgent), nil, 2),
		policy("p3", domain.EntityKindRequest, nil, nil, 24),
	}}
	resolver := NewPolicyResolver(source)

	got, err := resolver.Resolve(context.Background(), domain.EntityKindRequest, domain.PriorityUrgent, strPtr("BILLING"))
	require.NoError(t, err)
	assert.Equal(t, "p2", got.ID)
}

func TestResolveUniversalFallback(t *testing.T) {
	source := &mockPolicySource{policies: []domain.SLAPolicy{
		policy("p1", domain.EntityKindRequest, prioPtr(domain.PriorityUrgent), strPtr("SUPPORT"), 1),
		policy("p2", domain.EntityKindRequest, prioPtr(domain.PriorityUrgent), nil, 2),
		policy("p3", domain.EntityKindRequest, nil, nil, 24),
	}}
	resolver := NewPolicyResolver(source)

	got, err := resolver.Resolve(context.Background(), domain.EntityKindRequest, domain.PriorityLow, nil)
	require.NoError(t, err)
	assert.Equal(t, "p3", got.ID)
	assert.Equal(t, 24.0, got.TargetHours)
}

func TestResolveAbsentCategoryOnlyMatchesGenericCategory(t *testing.T) {
	source := &mockPolicySource{policies: []domain.SLAPolicy{
		policy("p1", domain.EntityKindRequest, prioPtr(domain.PriorityHigh), strPtr("SUPPORT"), 1),
		policy("p2", domain.EntityKindRequest, prioPtr(domain.PriorityHigh), nil, 4),
	}}
	resolver := NewPolicyResolver(source)

	got, err := resolver.Resolve(context.Background(), domain.EntityKindRequest, domain.PriorityHigh, nil)
	require.NoError(t, err)
	assert.Equal(t, "p2", got.ID)
}

func TestResolveTieKeepsEarliestPolicy(t *testing.T) {
	// Two category policies with generic priority score identically; the
	// source returns policies in ascending id order, so p1 must win.
	source := &mockPolicySource{policies: []domain.SLAPolicy{
		policy("p1", domain.EntityKindRequest, nil, strPtr("SUPPORT"), 8),
		policy("p2", domain.EntityKindRequest, nil, strPtr("SUPPORT"), 16),
	}}
	resolver := NewPolicyResolver(source)

	got, err := resolver.Resolve(context.Background(), domain.EntityKindRequest, domain.PriorityMedium, strPtr("SUPPORT"))
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID)
}

func TestResolveCategoryBeatsNothingButPriorityWins(t *testing.T) {
	// Exact priority (2.0 + 0.5) outranks exact category with generic
	// priority (1.0 + 1.0).
	source := &mockPolicySource{policies: []domain.SLAPolicy{
		policy("p1", domain.EntityKindRequest, nil, strPtr("SUPPORT"), 8),
		policy("p2", domain.EntityKindRequest, prioPtr(domain.PriorityHigh), nil, 4),
	}}
	resolver := NewPolicyResolver(source)

	got, err := resolver.Resolve(context.Background(), domain.EntityKindRequest, domain.PriorityHigh, strPtr("SUPPORT"))
	require.NoError(t, err)
	assert.Equal(t, "p2", got.ID)
}

func TestResolveNoPolicies(t *testing.T) {
	resolver := NewPolicyResolver(&mockPolicySource{})

	_, err := resolver.Resolve(context.Background(), domain.EntityKindRequest, domain.PriorityHigh, nil)
	assert.True(t, errors.Is(err, ErrNoPolicyFound))
}

func TestResolveNoMatchingPolicy(t *testing.T) {
	source := &mockPolicySource{policies: []domain.SLAPolicy{
		policy("p1", domain.EntityKindRequest, prioPtr(domain.PriorityUrgent), nil, 2),
	}}
	resolver := NewPolicyResolver(source)

	_, err := resolver.Resolve(context.Background(), domain.EntityKindRequest, domain.PriorityLow, nil)
	assert.True(t, errors.Is(err, ErrNoPolicyFound))
}

func TestResolveIgnoresOtherKinds(t *testing.T) {
	source := &mockPolicySource{policies: []domain.SLAPolicy{
		policy("p1", domain.EntityKindTask, nil, nil, 4),
	}}
	resolver := NewPolicyResolver(source)

	_, err := resolver.Resolve(context.Background(), domain.EntityKindRequest, domain.PriorityLow, nil)
	assert.True(t, errors.Is(err, ErrNoPolicyFound))
}
