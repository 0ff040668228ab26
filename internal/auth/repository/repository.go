package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"deskcrm_backend/platform/apperr"
	"deskcrm_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, display_name, password_hash, is_active, created_at, updated_at`

const (
	getUserByEmailQuery = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	getUserByIDQuery    = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	createRefreshTokenQuery = `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)`
	getRefreshTokenQuery = `
		SELECT user_id, expires_at, revoked_at FROM refresh_tokens
		WHERE token_hash = $1`
	revokeRefreshTokenQuery = `
		UPDATE refresh_tokens SET revoked_at = now()
		WHERE token_hash = $1 AND revoked_at IS NULL`

	lockUserQuery    = `SELECT id FROM users WHERE id = $1 FOR UPDATE`
	findRolesQuery   = `SELECT id, name FROM roles WHERE name = ANY($1)`
	clearRolesQuery  = `DELETE FROM user_roles WHERE user_id = $1`
	assignRolesQuery = `INSERT INTO user_roles (user_id, role_id) SELECT $1, unnest($2::uuid[])`
)

type Repo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func (r *Repo) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, getUserByEmailQuery, email))
}

func (r *Repo) GetUserByID(ctx context.Context, userID uuid.UUID) (User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, getUserByIDQuery, userID))
}

func (r *Repo) CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	if _, err := r.pool.Exec(ctx, createRefreshTokenQuery, userID, tokenHash, expiresAt); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

func (r *Repo) GetRefreshToken(ctx context.Context, tokenHash string) (RefreshToken, error) {
	var t RefreshToken
	err := r.pool.QueryRow(ctx, getRefreshTokenQuery, tokenHash).Scan(&t.UserID, &t.ExpiresAt, &t.RevokedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return RefreshToken{}, apperr.NotFound("refresh token not found")
	}
	if err != nil {
		return RefreshToken{}, fmt.Errorf("get refresh token: %w", err)
	}
	return t, nil
}

func (r *Repo) RevokeRefreshToken(ctx context.Context, tokenHash string) (bool, error) {
	tag, err := r.pool.Exec(ctx, revokeRefreshTokenQuery, tokenHash)
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repo) SetUserRoles(ctx context.Context, userID uuid.UUID, roles []string) ([]string, error) {
	var applied []string
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var locked uuid.UUID
		if err := tx.QueryRow(ctx, lockUserQuery, userID).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.NotFound("user not found")
			}
			return fmt.Errorf("lock user: %w", err)
		}

		rows, err := tx.Query(ctx, findRolesQuery, roles)
		if err != nil {
			return fmt.Errorf("find roles: %w", err)
		}
		found := make(map[string]uuid.UUID)
		for rows.Next() {
			var id uuid.UUID
			var name string
			if err := rows.Scan(&id, &name); err != nil {
				rows.Close()
				return fmt.Errorf("scan role: %w", err)
			}
			found[name] = id
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("find roles: %w", err)
		}

		var unknown []string
		for _, name := range roles {
			if _, ok := found[name]; !ok {
				unknown = append(unknown, name)
			}
		}
		if len(unknown) > 0 {
			return apperr.Validation("unknown roles").WithDetails(unknown)
		}

		ids := make([]uuid.UUID, 0, len(found))
		applied = make([]string, 0, len(found))
		for name, id := range found {
			ids = append(ids, id)
			applied = append(applied, name)
		}
		sort.Strings(applied)

		if _, err := tx.Exec(ctx, clearRolesQuery, userID); err != nil {
			return fmt.Errorf("clear roles: %w", err)
		}
		if _, err := tx.Exec(ctx, assignRolesQuery, userID, ids); err != nil {
			return fmt.Errorf("assign roles: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return applied, nil
}
