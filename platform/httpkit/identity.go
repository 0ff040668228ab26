// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextIdentityKey is the gin context key for the resolved caller identity.
const ContextIdentityKey = "identity"

// Identity represents the authenticated caller.
// This interface abstracts identity extraction from the web framework,
// allowing middleware to check permissions without depending on the access module.
type Identity interface {
	// UserID returns the authenticated user's ID.
	UserID() uuid.UUID
	// HasPermission reports exact membership in the effective permission set.
	HasPermission(name string) bool
}

// SetIdentity stores the resolved identity on the request.
func SetIdentity(c *gin.Context, id Identity) {
	c.Set(ContextIdentityKey, id)
}

// GetIdentity extracts the Identity from a Gin context.
// Returns false if the request was not authenticated.
func GetIdentity(c *gin.Context) (Identity, bool) {
	value, ok := c.Get(ContextIdentityKey)
	if !ok {
		return nil, false
	}
	id, ok := value.(Identity)
	return id, ok && id != nil
}

// MustGetIdentity extracts the Identity from a Gin context.
// If the user is not authenticated, it aborts with 401 Unauthorized and returns nil.
func MustGetIdentity(c *gin.Context) Identity {
	id, ok := GetIdentity(c)
	if !ok {
		Abort(c, http.StatusUnauthorized, errMissingToken)
		return nil
	}
	return id
}
