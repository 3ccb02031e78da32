package service

import (
	"context"

	"github.com/spec-kit/opsdesk/internal/auth"
	"github.com/spec-kit/opsdesk/internal/config"
	"github.com/spec-kit/opsdesk/internal/domain"
	"github.com/spec-kit/opsdesk/internal/repository"
	apperrors "github.com/spec-kit/opsdesk/pkg/util"
)

// OrgService manages catalog categories and operator accounts.
type OrgService struct {
	categories repository.CategoryRepository
	operators  repository.OperatorRepository
	bcryptCost int
}

// OrgDependencies encapsulates repositories required for org management.
type OrgDependencies struct {
	CategoryRepo repository.CategoryRepository
	OperatorRepo repository.OperatorRepository
}

// NewOrgService constructs the service.
func NewOrgService(cfg config.Config, deps OrgDependencies) *OrgService {
	return &OrgService{
		categories: deps.CategoryRepo,
		operators:  deps.OperatorRepo,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

func requireAdmin(actor *domain.Operator) error {
	if actor == nil || actor.Role != domain.OperatorRoleAdmin {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

// CreateCategory creates a new catalog category.
func (s *OrgService) CreateCategory(ctx context.Context, actor *domain.Operator, name, description string) (*domain.Category, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	category := &domain.Category{
		Name:        name,
		Description: description,
		IsActive:    true,
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, apperrors.MapError(err)
	}
	return category, nil
}

// ListCategories returns the active catalog categories. Open to any
// authenticated caller; requesters need them to file requests.
func (s *OrgService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.categories.ListActive(ctx)
}

// UpdateCategory modifies category metadata.
func (s *OrgService) UpdateCategory(ctx context.Context, actor *domain.Operator, category *domain.Category) (*domain.Category, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, apperrors.MapError(err)
	}
	return category, nil
}

// CreateOperator provisions an operator account.
func (s *OrgService) CreateOperator(ctx context.Context, actor *domain.Operator, name, email, password string, role domain.OperatorRole, categoryID *string) (*domain.Operator, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	operator := &domain.Operator{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CategoryID:   categoryID,
		Active:       true,
	}
	if err := s.operators.Create(ctx, operator); err != nil {
		return nil, apperrors.MapError(err)
	}
	return operator, nil
}

// ListOperators returns operators matching the filter.
func (s *OrgService) ListOperators(ctx context.Context, actor *domain.Operator, filter repository.OperatorFilter) ([]domain.Operator, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.operators.List(ctx, filter)
}
