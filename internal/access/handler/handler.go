package handler

import (
	"context"
	"net/http"

	"deskcrm_backend/internal/access/domain"
	"deskcrm_backend/internal/access/transport"
	"deskcrm_backend/platform/httpkit"
	"deskcrm_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Authenticator resolves a bearer token into an identity.
type Authenticator interface {
	Authenticate(ctx context.Context, rawToken string) (*domain.Identity, error)
}

// Handler serves identity endpoints and the authentication middleware.
type Handler struct {
	auth Authenticator
}

// New creates a new access handler.
func New(auth Authenticator) *Handler {
	return &Handler{auth: auth}
}

// Authenticate validates the bearer token and stores the resolved identity on
// the request. The user id is also attached to the request context for logging.
func (h *Handler) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken, _ := httpkit.ExtractBearerToken(c.GetHeader("Authorization"))

		id, err := h.auth.Authenticate(c.Request.Context(), rawToken)
		if err != nil {
			httpkit.HandleError(c, err)
			c.Abort()
			return
		}

		httpkit.SetIdentity(c, id)
		ctx := context.WithValue(c.Request.Context(), logger.UserIDKey, id.ID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// MustGetIdentity returns the resolved identity or aborts with 401.
func MustGetIdentity(c *gin.Context) *domain.Identity {
	raw := httpkit.MustGetIdentity(c)
	if raw == nil {
		return nil
	}
	id, ok := raw.(*domain.Identity)
	if !ok {
		httpkit.Abort(c, http.StatusUnauthorized, "unauthorized")
		return nil
	}
	return id
}

// GetMyPermissions returns the caller's resolved roles, permissions and desks.
// GET /api/v1/users/me/permissions
func (h *Handler) GetMyPermissions(c *gin.Context) {
	id := MustGetIdentity(c)
	if id == nil {
		return
	}

	desks := id.DeskIDs
	if desks == nil {
		desks = []uuid.UUID{}
	}
	roles := id.Roles
	if roles == nil {
		roles = []string{}
	}

	httpkit.OK(c, transport.IdentityResponse{
		UserID:      id.ID,
		Roles:       roles,
		Permissions: id.Permissions.Names(),
		DeskIDs:     desks,
		LeadScope:   id.LeadScope().String(),
	})
}
