package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"deskcrm_backend/platform/httpkit"
	"deskcrm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(nil, validator.New())
	engine := gin.New()
	h.RegisterRoutes(engine.Group("/auth"))
	engine.PUT("/admin/users/:id/roles", h.SetUserRoles)
	return engine
}

func do(engine *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, httpkit.Envelope) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	var env httpkit.Envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestSignInValidatesBody(t *testing.T) {
	for name, body := range map[string]string{
		"missing password": `{"email":"jan@example.com"}`,
		"bad email":        `{"email":"jan","password":"x"}`,
	} {
		rec, env := do(newRouter(), http.MethodPost, "/auth/sign-in", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
		assert.Equal(t, msgValidationFailed, env.Message, name)
	}

	rec, env := do(newRouter(), http.MethodPost, "/auth/sign-in", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgInvalidRequest, env.Message)
}

func TestRefreshRequiresToken(t *testing.T) {
	rec, env := do(newRouter(), http.MethodPost, "/auth/refresh", `{}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgValidationFailed, env.Message)
}

func TestSetUserRolesChecksInputBeforeIdentity(t *testing.T) {
	rec, env := do(newRouter(), http.MethodPut, "/admin/users/7/roles", `{"roles":["agent"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgInvalidUserID, env.Message)

	path := "/admin/users/" + uuid.NewString() + "/roles"
	rec, env = do(newRouter(), http.MethodPut, path, `{"roles":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgValidationFailed, env.Message)

	rec, _ = do(newRouter(), http.MethodPut, path, `{"roles":["agent"]}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
