package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/opsdesk/internal/domain"
	"github.com/spec-kit/opsdesk/internal/repository"
)

const policyCacheKeyPrefix = "sla:policies:"

// PolicyCache is a read-through Redis cache over the policy repository.
// Policies are read-mostly, so lookups are cached per entity kind with a
// short TTL plus an explicit invalidation hook for when policies change.
// The resolver behaves identically with or without it: every cache failure
// falls through to the repository.
type PolicyCache struct {
	source repository.PolicySource
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewPolicyCache wraps a policy source with caching. A nil client disables
// caching entirely.
func NewPolicyCache(source repository.PolicySource, client *redis.Client, ttl time.Duration, logger *zap.Logger) *PolicyCache {
	return &PolicyCache{source: source, client: client, ttl: ttl, logger: logger}
}

// ListActiveByKind implements repository.PolicySource.
func (c *PolicyCache) ListActiveByKind(ctx context.Context, kind domain.EntityKind) ([]domain.SLAPolicy, error) {
	if c.client == nil {
		return c.source.ListActiveByKind(ctx, kind)
	}

	key := policyCacheKeyPrefix + string(kind)
	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var policies []domain.SLAPolicy
		if err := json.Unmarshal(raw, &policies); err == nil {
			return policies, nil
		}
		c.logger.Warn("corrupt policy cache entry, refetching", zap.String("key", key))
	}

	policies, err := c.source.ListActiveByKind(ctx, kind)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(policies); err == nil {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.logger.Warn("policy cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return policies, nil
}

// Invalidate drops the cached policy list for the kind. Policy
// administration must call this after any policy change.
func (c *PolicyCache) Invalidate(ctx context.Context, kind domain.EntityKind) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, policyCacheKeyPrefix+string(kind)).Err()
}
