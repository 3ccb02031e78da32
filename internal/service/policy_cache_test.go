package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/opsdesk/internal/domain"
)

func TestPolicyCacheNilClientPassesThrough(t *testing.T) {
	source := &mockPolicySource{policies: []domain.SLAPolicy{
		policy("p1", domain.EntityKindRequest, nil, nil, 24),
	}}
	cache := NewPolicyCache(source, nil, 0, zap.NewNop())

	got, err := cache.ListActiveByKind(context.Background(), domain.EntityKindRequest)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].ID)

	assert.NoError(t, cache.Invalidate(context.Background(), domain.EntityKindRequest))
}

func TestPolicyCacheIsAValidResolverSource(t *testing.T) {
	source := &mockPolicySource{policies: []domain.SLAPolicy{
		policy("p1", domain.EntityKindRequest, nil, nil, 24),
	}}
	resolver := NewPolicyResolver(NewPolicyCache(source, nil, 0, zap.NewNop()))

	got, err := resolver.Resolve(context.Background(), domain.EntityKindRequest, domain.PriorityLow, nil)
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID)
}
