package service

import (
	"context"

	"github.com/spec-kit/opsdesk/internal/domain"
	"github.com/spec-kit/opsdesk/internal/repository"
	apperrors "github.com/spec-kit/opsdesk/pkg/util"
)

// PolicyResolver selects the single best-matching SLA policy for an entity
// by specificity score.
//
// Scoring per active policy of the requested kind:
//   - priority: exact match +2, policy-generic +1, mismatch excludes the
//     policy
//   - category: exact match +1, policy-generic +0.5, mismatch excludes; a
//     missing input category only matches generic-category policies
//
// The strictly highest score wins. Ties keep the earliest policy in
// ascending id order, which the policy source guarantees, so resolution is
// deterministic across storage backends. A policy generic on both axes is
// the universal fallback and always stays a candidate.
type PolicyResolver struct {
	policies repository.PolicySource
}

// NewPolicyResolver constructs the resolver.
func NewPolicyResolver(policies repository.PolicySource) *PolicyResolver {
	return &PolicyResolver{policies: policies}
}

const (
	scorePriorityExact   = 2.0
	scorePriorityGeneric = 1.0
	scoreCategoryExact   = 1.0
	scoreCategoryGeneric = 0.5
)

// Resolve returns the best-matching active policy or ErrNoPolicyFound.
func (r *PolicyResolver) Resolve(ctx context.Context, kind domain.EntityKind, priority domain.Priority, category *string) (*domain.SLAPolicy, error) {
	policies, err := r.policies.ListActiveByKind(ctx, kind)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(policies) == 0 {
		return nil, ErrNoPolicyFound
	}

	var best *domain.SLAPolicy
	bestScore := -1.0

	for i := range policies {
		policy := &policies[i]
		score, ok := scorePolicy(policy, priority, category)
		if !ok {
			continue
		}
		if score > bestScore {
			best = policy
			bestScore = score
		}
	}

	if best == nil {
		return nil, ErrNoPolicyFound
	}
	return best, nil
}

// scorePolicy returns the specificity score, or ok=false when the policy
// is excluded from consideration.
func scorePolicy(policy *domain.SLAPolicy, priority domain.Priority, category *string) (float64, bool) {
	score := 0.0

	if policy.Priority != nil {
		if *policy.Priority != priority {
			return 0, false
		}
		score += scorePriorityExact
	} else {
		score += scorePriorityGeneric
	}

	if policy.Category != nil {
		if category == nil || *policy.Category != *category {
			return 0, false
		}
		score += scoreCategoryExact
	} else {
		score += scoreCategoryGeneric
	}

	return score, true
}
