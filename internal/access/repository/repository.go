package repository

import (
	"context"
	"errors"
	"fmt"

	"deskcrm_backend/internal/access/domain"
	"deskcrm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	userIsActiveQuery = `
		SELECT is_active FROM users WHERE id = $1`

	rolesForUserQuery = `
		SELECT r.id, r.name, r.is_system
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name`

	permissionsForRoleQuery = `
		SELECT p.name
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.name`

	grantsForUserQuery = `
		SELECT p.name, up.is_granted
		FROM user_permissions up
		JOIN permissions p ON p.id = up.permission_id
		WHERE up.user_id = $1`

	deskIDsForUserQuery = `
		SELECT desk_id FROM desk_users WHERE user_id = $1 ORDER BY is_primary DESC, desk_id`

	leadAccessQuery = `
		SELECT id, desk_id, assigned_to FROM leads WHERE id = $1`
)

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new access repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

func (r *Repo) UserIsActive(ctx context.Context, userID uuid.UUID) (bool, error) {
	var active bool
	err := r.pool.QueryRow(ctx, userIsActiveQuery, userID).Scan(&active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("load user status: %w", err)
	}
	return active, nil
}

func (r *Repo) RolesForUser(ctx context.Context, userID uuid.UUID) ([]Role, error) {
	rows, err := r.pool.Query(ctx, rolesForUserQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("list user roles: %w", err)
	}
	defer rows.Close()

	roles := make([]Role, 0)
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.IsSystem); err != nil {
			return nil, fmt.Errorf("scan user role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user roles: %w", err)
	}
	return roles, nil
}

func (r *Repo) PermissionsForRole(ctx context.Context, roleID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx, permissionsForRoleQuery, roleID)
	if err != nil {
		return nil, fmt.Errorf("list role permissions: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect role permissions: %w", err)
	}
	return names, nil
}

func (r *Repo) GrantsForUser(ctx context.Context, userID uuid.UUID) ([]domain.Grant, error) {
	rows, err := r.pool.Query(ctx, grantsForUserQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("list user grants: %w", err)
	}
	defer rows.Close()

	grants := make([]domain.Grant, 0)
	for rows.Next() {
		var g domain.Grant
		if err := rows.Scan(&g.Permission, &g.Granted); err != nil {
			return nil, fmt.Errorf("scan user grant: %w", err)
		}
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user grants: %w", err)
	}
	return grants, nil
}

func (r *Repo) DeskIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, deskIDsForUserQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("list user desks: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("collect user desks: %w", err)
	}
	return ids, nil
}

func (r *Repo) GetLeadAccess(ctx context.Context, leadID uuid.UUID) (domain.LeadAccess, error) {
	var lead domain.LeadAccess
	err := r.pool.QueryRow(ctx, leadAccessQuery, leadID).Scan(&lead.LeadID, &lead.DeskID, &lead.AssignedTo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.LeadAccess{}, apperr.NotFound("lead not found")
		}
		return domain.LeadAccess{}, fmt.Errorf("load lead access: %w", err)
	}
	return lead, nil
}
