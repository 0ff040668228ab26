package repository

import (
	"context"

	"deskcrm_backend/internal/access/domain"

	"github.com/google/uuid"
)

// Role is a named permission bundle assigned to users.
type Role struct {
	ID       uuid.UUID
	Name     string
	IsSystem bool
}

// CatalogReader is the read-only permission catalog.
type CatalogReader interface {
	UserIsActive(ctx context.Context, userID uuid.UUID) (bool, error)
	RolesForUser(ctx context.Context, userID uuid.UUID) ([]Role, error)
	PermissionsForRole(ctx context.Context, roleID uuid.UUID) ([]string, error)
	GrantsForUser(ctx context.Context, userID uuid.UUID) ([]domain.Grant, error)
	DeskIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// LeadAccessReader loads the columns needed for row-level checks.
type LeadAccessReader interface {
	GetLeadAccess(ctx context.Context, leadID uuid.UUID) (domain.LeadAccess, error)
}

// Repository combines all access repository operations.
type Repository interface {
	CatalogReader
	LeadAccessReader
}
