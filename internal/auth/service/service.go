package service

import (
	"context"
	"strings"
	"time"

	accessdomain "deskcrm_backend/internal/access/domain"
	"deskcrm_backend/internal/auth/password"
	"deskcrm_backend/internal/auth/repository"
	"deskcrm_backend/internal/auth/token"
	"deskcrm_backend/internal/auth/transport"
	"deskcrm_backend/internal/events"
	"deskcrm_backend/platform/apperr"
	"deskcrm_backend/platform/config"
	"deskcrm_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	msgInvalidCredentials = "invalid credentials"
	msgInvalidRefresh     = "invalid refresh token"
	msgExpiredRefresh     = "refresh token expired"

	refreshTokenBytes = 48
	defaultRefreshTTL = 30 * 24 * time.Hour
)

type Service struct {
	repo       repository.Repository
	issuer     *token.Issuer
	refreshTTL time.Duration
	bus        events.Bus
	log        *logger.Logger
	now        func() time.Time
}

func New(repo repository.Repository, cfg config.AuthServiceConfig, bus events.Bus, log *logger.Logger) *Service {
	refreshTTL := cfg.GetRefreshTokenTTL()
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}
	return &Service{
		repo:       repo,
		issuer:     token.NewIssuer(cfg.GetJWTAccessSecret(), cfg.GetAccessTokenTTL()),
		refreshTTL: refreshTTL,
		bus:        bus,
		log:        log,
		now:        time.Now,
	}
}

// SignIn verifies the credentials and issues a token pair. Unknown users,
// inactive users and wrong passwords are indistinguishable to the caller.
func (s *Service) SignIn(ctx context.Context, req transport.SignInRequest) (transport.TokenResponse, error) {
	email := strings.TrimSpace(req.Email)
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			s.log.AuthEvent("sign_in", email, false, "unknown user")
			return transport.TokenResponse{}, apperr.Unauthorized(msgInvalidCredentials)
		}
		return transport.TokenResponse{}, err
	}
	if !user.IsActive {
		s.log.AuthEvent("sign_in", email, false, "inactive user")
		return transport.TokenResponse{}, apperr.Unauthorized(msgInvalidCredentials)
	}
	if err := password.Compare(user.PasswordHash, req.Password); err != nil {
		s.log.AuthEvent("sign_in", email, false, "wrong password")
		return transport.TokenResponse{}, apperr.Unauthorized(msgInvalidCredentials)
	}

	s.log.AuthEvent("sign_in", email, true, "")
	return s.issueTokens(ctx, user.ID)
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued. A token can be rotated once.
func (s *Service) Refresh(ctx context.Context, raw string) (transport.TokenResponse, error) {
	hash := token.HashSHA256(raw)
	stored, err := s.repo.GetRefreshToken(ctx, hash)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return transport.TokenResponse{}, apperr.Unauthorized(msgInvalidRefresh)
		}
		return transport.TokenResponse{}, err
	}
	if stored.RevokedAt != nil {
		return transport.TokenResponse{}, apperr.Unauthorized(msgInvalidRefresh)
	}
	if s.now().After(stored.ExpiresAt) {
		_, _ = s.repo.RevokeRefreshToken(ctx, hash)
		return transport.TokenResponse{}, apperr.Unauthorized(msgExpiredRefresh)
	}

	user, err := s.repo.GetUserByID(ctx, stored.UserID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return transport.TokenResponse{}, apperr.Unauthorized(msgInvalidRefresh)
		}
		return transport.TokenResponse{}, err
	}
	if !user.IsActive {
		return transport.TokenResponse{}, apperr.Unauthorized(msgInvalidRefresh)
	}

	revoked, err := s.repo.RevokeRefreshToken(ctx, hash)
	if err != nil {
		return transport.TokenResponse{}, err
	}
	if !revoked {
		return transport.TokenResponse{}, apperr.Unauthorized(msgInvalidRefresh)
	}
	return s.issueTokens(ctx, user.ID)
}

// SignOut revokes the refresh token. Unknown tokens are ignored.
func (s *Service) SignOut(ctx context.Context, raw string) error {
	_, err := s.repo.RevokeRefreshToken(ctx, token.HashSHA256(raw))
	return err
}

// SetUserRoles replaces a user's roles and drops their cached permissions.
func (s *Service) SetUserRoles(ctx context.Context, actor *accessdomain.Identity, userID uuid.UUID, roles []string) (transport.UserRolesResponse, error) {
	if actor == nil || !actor.Can(accessdomain.OpManageAccess) {
		return transport.UserRolesResponse{}, apperr.Forbidden("missing permission " + string(accessdomain.PermManageAccess))
	}

	names := normalizeRoles(roles)
	if len(names) == 0 {
		return transport.UserRolesResponse{}, apperr.Validation("at least one role is required")
	}

	applied, err := s.repo.SetUserRoles(ctx, userID, names)
	if err != nil {
		return transport.UserRolesResponse{}, err
	}

	if err := s.bus.PublishSync(ctx, events.PermissionsChanged{BaseEvent: events.NewBaseEvent(), UserID: userID}); err != nil {
		s.log.WithContext(ctx).Warn("permission cache invalidation failed", "userId", userID, "error", err)
	}
	s.log.Info("user roles updated", "userId", userID, "roles", applied, "by", actor.ID)
	return transport.UserRolesResponse{UserID: userID.String(), Roles: applied}, nil
}

func normalizeRoles(roles []string) []string {
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		name := strings.TrimSpace(r)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func (s *Service) issueTokens(ctx context.Context, userID uuid.UUID) (transport.TokenResponse, error) {
	accessToken, expiresAt, err := s.issuer.SignAccess(userID)
	if err != nil {
		return transport.TokenResponse{}, err
	}

	refreshToken, err := token.GenerateRandomToken(refreshTokenBytes)
	if err != nil {
		return transport.TokenResponse{}, err
	}
	refreshExpiresAt := s.now().Add(s.refreshTTL)
	if err := s.repo.CreateRefreshToken(ctx, userID, token.HashSHA256(refreshToken), refreshExpiresAt); err != nil {
		return transport.TokenResponse{}, err
	}

	return transport.TokenResponse{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		TokenType:        "Bearer",
		ExpiresAt:        expiresAt,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}
