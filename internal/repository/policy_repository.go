package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/opsdesk/internal/domain"
)

// PolicySource yields active SLA policies for an entity kind. Rows are
// returned in ascending id order so specificity ties always break the
// same way regardless of storage backend.
type PolicySource interface {
	ListActiveByKind(ctx context.Context, kind domain.EntityKind) ([]domain.SLAPolicy, error)
}

// PolicyRepository reads SLA policy records. Policy administration is
// handled elsewhere; this engine only resolves against active policies.
type PolicyRepository interface {
	PolicySource
	GetByID(ctx context.Context, id string) (*domain.SLAPolicy, error)
}

type policyRepository struct {
	pool *pgxpool.Pool
}

// NewPolicyRepository instantiates the repository.
func NewPolicyRepository(pool *pgxpool.Pool) PolicyRepository {
	return &policyRepository{pool: pool}
}

func (r *policyRepository) ListActiveByKind(ctx context.Context, kind domain.EntityKind) ([]domain.SLAPolicy, error) {
	const query = `
        SELECT id, target_entity_kind, priority, category, target_hours, is_active, created_at
        FROM sla_policies
        WHERE target_entity_kind=$1 AND is_active = TRUE
        ORDER BY id ASC`
	rows, err := r.pool.Query(ctx, query, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPolicies(rows)
}

func (r *policyRepository) GetByID(ctx context.Context, id string) (*domain.SLAPolicy, error) {
	const query = `
        SELECT id, target_entity_kind, priority, category, target_hours, is_active, created_at
        FROM sla_policies WHERE id=$1`
	var policy domain.SLAPolicy
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&policy.ID,
		&policy.EntityKind,
		&policy.Priority,
		&policy.Category,
		&policy.TargetHours,
		&policy.IsActive,
		&policy.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &policy, nil
}

func scanPolicies(rows pgx.Rows) ([]domain.SLAPolicy, error) {
	var result []domain.SLAPolicy
	for rows.Next() {
		var policy domain.SLAPolicy
		if err := rows.Scan(
			&policy.ID,
			&policy.EntityKind,
			&policy.Priority,
			&policy.Category,
			&policy.TargetHours,
			&policy.IsActive,
			&policy.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, policy)
	}
	return result, rows.Err()
}
