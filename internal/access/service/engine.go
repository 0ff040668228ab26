package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"deskcrm_backend/internal/access/cache"
	"deskcrm_backend/internal/access/domain"
	"deskcrm_backend/internal/access/repository"
	"deskcrm_backend/internal/events"
	"deskcrm_backend/platform/apperr"
	"deskcrm_backend/platform/config"
	"deskcrm_backend/platform/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	accessTokenType = "access"

	errMissingToken = "missing token"
	errInvalidToken = "invalid token"
	errExpiredToken = "token expired"
)

// PermissionCache holds resolved permission sets between requests.
type PermissionCache interface {
	Get(ctx context.Context, userID uuid.UUID) (cache.Resolved, bool, error)
	Set(ctx context.Context, userID uuid.UUID, entry cache.Resolved) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

// Engine authenticates bearer tokens, resolves effective permissions and
// answers row-level access questions.
type Engine struct {
	repo   repository.Repository
	cache  PermissionCache
	secret []byte
	group  singleflight.Group
	log    *logger.Logger
	now    func() time.Time

	// generations counts invalidations per user. A load that started before
	// an invalidation must not write its result to the cache.
	genMu       sync.Mutex
	generations map[uuid.UUID]uint64
}

// New creates an engine. A nil cache re-resolves permissions on every request.
func New(repo repository.Repository, permCache PermissionCache, cfg config.JWTConfig, log *logger.Logger) *Engine {
	return &Engine{
		repo:   repo,
		cache:  permCache,
		secret: []byte(cfg.GetJWTAccessSecret()),
		log:    log,
		now:    time.Now,

		generations: make(map[uuid.UUID]uint64),
	}
}

// Authenticate validates an access token and resolves the caller's identity.
func (e *Engine) Authenticate(ctx context.Context, rawToken string) (*domain.Identity, error) {
	if rawToken == "" {
		return nil, apperr.Unauthorized(errMissingToken)
	}

	userID, err := e.parseAccessToken(rawToken)
	if err != nil {
		return nil, err
	}

	id, err := e.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	return id, nil
}

func (e *Engine) parseAccessToken(rawToken string) (uuid.UUID, error) {
	parsed, err := jwt.Parse(rawToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return e.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(e.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, apperr.Unauthorized(errExpiredToken)
		}
		return uuid.Nil, apperr.Unauthorized(errInvalidToken)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return uuid.Nil, apperr.Unauthorized(errInvalidToken)
	}

	if tokenType, _ := claims["type"].(string); tokenType != accessTokenType {
		return uuid.Nil, apperr.Unauthorized(errInvalidToken)
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, apperr.Unauthorized(errInvalidToken)
	}
	return userID, nil
}

// Resolve builds the identity of a user from the cache or the catalog.
// Inactive and unknown users fail authentication.
func (e *Engine) Resolve(ctx context.Context, userID uuid.UUID) (*domain.Identity, error) {
	entry, err := e.resolved(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !entry.Active {
		return nil, apperr.Unauthorized(errInvalidToken)
	}
	return domain.NewIdentity(userID, entry.Roles, domain.NewPermissionSet(entry.Permissions...), entry.DeskIDs), nil
}

func (e *Engine) resolved(ctx context.Context, userID uuid.UUID) (cache.Resolved, error) {
	if e.cache != nil {
		entry, ok, err := e.cache.Get(ctx, userID)
		if err != nil {
			e.log.WithContext(ctx).Warn("permission cache read failed", "userId", userID, "error", err)
		} else if ok {
			return entry, nil
		}
	}

	// The load is shared by every concurrent caller for the user, so it must
	// not die with the first caller's request.
	loadCtx := context.WithoutCancel(ctx)
	value, err, _ := e.group.Do(userID.String(), func() (interface{}, error) {
		gen := e.generation(userID)
		entry, err := e.loadFromCatalog(loadCtx, userID)
		if err != nil {
			return cache.Resolved{}, err
		}
		if e.cache != nil && e.generation(userID) == gen {
			if err := e.cache.Set(loadCtx, userID, entry); err != nil {
				e.log.WithContext(ctx).Warn("permission cache write failed", "userId", userID, "error", err)
			}
		}
		return entry, nil
	})
	if err != nil {
		return cache.Resolved{}, err
	}
	return value.(cache.Resolved), nil
}

func (e *Engine) loadFromCatalog(ctx context.Context, userID uuid.UUID) (cache.Resolved, error) {
	var (
		active bool
		roles  []repository.Role
		grants []domain.Grant
		desks  []uuid.UUID
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		active, err = e.repo.UserIsActive(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		roles, err = e.repo.RolesForUser(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		grants, err = e.repo.GrantsForUser(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		desks, err = e.repo.DeskIDsForUser(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return cache.Resolved{}, fmt.Errorf("resolve permissions: %w", err)
	}

	var (
		mu        sync.Mutex
		rolePerms []string
	)
	roleNames := make([]string, 0, len(roles))
	pg, pctx := errgroup.WithContext(ctx)
	for _, role := range roles {
		roleNames = append(roleNames, role.Name)
		pg.Go(func() error {
			perms, err := e.repo.PermissionsForRole(pctx, role.ID)
			if err != nil {
				return err
			}
			mu.Lock()
			rolePerms = append(rolePerms, perms...)
			mu.Unlock()
			return nil
		})
	}
	if err := pg.Wait(); err != nil {
		return cache.Resolved{}, fmt.Errorf("resolve role permissions: %w", err)
	}

	return cache.Resolved{
		Active:      active,
		Roles:       roleNames,
		Permissions: domain.Effective(rolePerms, grants).Names(),
		DeskIDs:     desks,
		ResolvedAt:  e.now(),
	}, nil
}

// HasPermission is an exact membership test.
func (e *Engine) HasPermission(id *domain.Identity, name string) bool {
	return id != nil && id.HasPermission(name)
}

// CanAccessLead reports whether the identity may read or mutate the lead.
// Any lookup failure or missing lead yields false.
func (e *Engine) CanAccessLead(ctx context.Context, id *domain.Identity, leadID uuid.UUID) bool {
	if id == nil {
		return false
	}

	lead, err := e.repo.GetLeadAccess(ctx, leadID)
	if err != nil {
		if !apperr.Is(err, apperr.KindNotFound) {
			e.log.WithContext(ctx).Error("lead access lookup failed", "leadId", leadID, "error", err)
		}
		return false
	}

	if !id.CanAccess(lead) {
		e.log.WithContext(ctx).AccessDenied(id.ID.String(), "lead:"+leadID.String(), id.LeadScope().String())
		return false
	}
	return true
}

// LeadsFilter returns the listing filter for the identity.
func (e *Engine) LeadsFilter(id *domain.Identity) domain.LeadFilter {
	if id == nil {
		return domain.LeadFilter{Scope: domain.ScopeNone}
	}
	return id.LeadsFilter()
}

func (e *Engine) generation(userID uuid.UUID) uint64 {
	e.genMu.Lock()
	defer e.genMu.Unlock()
	return e.generations[userID]
}

// Invalidate drops any cached resolution for the user. Loads already in
// flight still answer their callers but no longer populate the cache, and
// later callers start a fresh load.
func (e *Engine) Invalidate(ctx context.Context, userID uuid.UUID) error {
	e.genMu.Lock()
	e.generations[userID]++
	e.genMu.Unlock()
	e.group.Forget(userID.String())

	if e.cache == nil {
		return nil
	}
	return e.cache.Delete(ctx, userID)
}

// Handle invalidates cached permissions when a user's grants change.
func (e *Engine) Handle(ctx context.Context, event events.Event) error {
	switch ev := event.(type) {
	case events.PermissionsChanged:
		return e.Invalidate(ctx, ev.UserID)
	default:
		return nil
	}
}
