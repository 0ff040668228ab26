package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID
	Email        string
	DisplayName  string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type RefreshToken struct {
	UserID    uuid.UUID
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// Repository defines the interface for authentication data operations.
type Repository interface {
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (User, error)

	CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (RefreshToken, error)
	// RevokeRefreshToken reports whether an unrevoked token was revoked.
	RevokeRefreshToken(ctx context.Context, tokenHash string) (bool, error)

	// SetUserRoles replaces the user's roles and returns the applied names.
	SetUserRoles(ctx context.Context, userID uuid.UUID, roles []string) ([]string, error)
}

// Ensure Repo implements Repository
var _ Repository = (*Repo)(nil)
