package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"deskcrm_backend/internal/access/domain"
	"deskcrm_backend/platform/apperr"
	"deskcrm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthenticator struct {
	tokens map[string]*domain.Identity
}

func (f fakeAuthenticator) Authenticate(_ context.Context, rawToken string) (*domain.Identity, error) {
	if id, ok := f.tokens[rawToken]; ok {
		return id, nil
	}
	return nil, apperr.Unauthorized("invalid token")
}

func newRouter(t *testing.T, id *domain.Identity) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := New(fakeAuthenticator{tokens: map[string]*domain.Identity{"good": id}})
	engine := gin.New()
	engine.GET("/users/me/permissions", h.Authenticate(), h.GetMyPermissions)
	return engine
}

func TestGetMyPermissions(t *testing.T) {
	desk := uuid.New()
	id := domain.NewIdentity(uuid.New(), []string{"desk_manager"}, domain.NewPermissionSet("leads.view.desk", "change_lead_state"), []uuid.UUID{desk})
	engine := newRouter(t, id)

	req := httptest.NewRequest(http.MethodGet, "/users/me/permissions", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Permissions []string `json:"permissions"`
			LeadScope   string   `json:"leadScope"`
			DeskIDs     []string `json:"deskIds"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, []string{"change_lead_state", "leads.view.desk"}, body.Data.Permissions)
	assert.Equal(t, "desk", body.Data.LeadScope)
	assert.Equal(t, []string{desk.String()}, body.Data.DeskIDs)
}

func TestAuthenticateRejectsMissingAndBadTokens(t *testing.T) {
	engine := newRouter(t, domain.NewIdentity(uuid.New(), nil, nil, nil))

	for _, header := range []string{"", "Bearer bad", "Basic good"} {
		req := httptest.NewRequest(http.MethodGet, "/users/me/permissions", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		var env httpkit.Envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Equal(t, apperr.CodeAuthenticationRequired, env.ErrorCode)
	}
}
