package dto

import (
	"time"

	"github.com/spec-kit/opsdesk/internal/domain"
)

// CreateCategoryRequest payload.
type CreateCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CategoryResponse response.
type CategoryResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateOperatorRequest payload.
type CreateOperatorRequest struct {
	Name       string              `json:"name"`
	Email      string              `json:"email"`
	Password   string              `json:"password"`
	Role       domain.OperatorRole `json:"role"`
	CategoryID *string             `json:"category_id"`
}

// OperatorResponse response.
type OperatorResponse struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Email      string              `json:"email"`
	Role       domain.OperatorRole `json:"role"`
	CategoryID *string             `json:"category_id,omitempty"`
	Active     bool                `json:"active"`
}
