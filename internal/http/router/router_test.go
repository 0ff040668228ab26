package router

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"deskcrm_backend/internal/access/domain"
	apphttp "deskcrm_backend/internal/http"
	"deskcrm_backend/platform/httpkit"
	"deskcrm_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type httpConfig struct{}

func (httpConfig) GetHTTPAddr() string      { return ":0" }
func (httpConfig) GetCORSAllowAll() bool    { return false }
func (httpConfig) GetCORSOrigins() []string { return []string{"http://localhost:4200"} }
func (httpConfig) GetCORSAllowCreds() bool  { return true }

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type probeModule struct{}

func (probeModule) Name() string { return "probe" }

func (probeModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/probe", func(c *gin.Context) { httpkit.Message(c, "ok") })
	ctx.Admin.GET("/probe", func(c *gin.Context) { httpkit.Message(c, "ok") })
}

func newApp(health apphttp.HealthChecker, perms ...string) *apphttp.App {
	gin.SetMode(gin.TestMode)
	return &apphttp.App{
		Config: httpConfig{},
		Logger: logger.NewWithWriter("production", io.Discard),
		Health: health,
		AuthMiddleware: func(c *gin.Context) {
			if c.GetHeader("Authorization") == "" {
				httpkit.Abort(c, http.StatusUnauthorized, "missing token")
				return
			}
			httpkit.SetIdentity(c, domain.NewIdentity(uuid.New(), nil, domain.NewPermissionSet(perms...), nil))
			c.Next()
		},
		Modules: []apphttp.Module{probeModule{}},
	}
}

func serve(engine *gin.Engine, path string, authed bool) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authed {
		req.Header.Set("Authorization", "Bearer x")
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec.Code
}

func TestHealth(t *testing.T) {
	assert.Equal(t, http.StatusOK, serve(New(newApp(pinger{})), "/api/health", false))
	assert.Equal(t, http.StatusServiceUnavailable, serve(New(newApp(pinger{err: errors.New("down")})), "/api/health", false))
}

func TestProtectedAndAdminGroups(t *testing.T) {
	agent := New(newApp(pinger{}, "leads.view.assigned"))
	assert.Equal(t, http.StatusUnauthorized, serve(agent, "/api/v1/probe", false))
	assert.Equal(t, http.StatusOK, serve(agent, "/api/v1/probe", true))
	assert.Equal(t, http.StatusForbidden, serve(agent, "/api/v1/admin/probe", true))

	admin := New(newApp(pinger{}, "access.manage"))
	assert.Equal(t, http.StatusOK, serve(admin, "/api/v1/admin/probe", true))
}
