package handler

import (
	"net/http"

	accesshandler "deskcrm_backend/internal/access/handler"
	"deskcrm_backend/internal/auth/service"
	"deskcrm_backend/internal/auth/transport"
	"deskcrm_backend/platform/httpkit"
	"deskcrm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidUserID    = "invalid user id"
)

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sign-in", h.SignIn)
	rg.POST("/refresh", h.Refresh)
	rg.POST("/sign-out", h.SignOut)
}

func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}

// POST /api/v1/auth/sign-in
func (h *Handler) SignIn(c *gin.Context) {
	var req transport.SignInRequest
	if !h.bind(c, &req) {
		return
	}

	tokens, err := h.svc.SignIn(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, tokens)
}

// POST /api/v1/auth/refresh
func (h *Handler) Refresh(c *gin.Context) {
	var req transport.RefreshRequest
	if !h.bind(c, &req) {
		return
	}

	tokens, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, tokens)
}

// POST /api/v1/auth/sign-out
func (h *Handler) SignOut(c *gin.Context) {
	var req transport.SignOutRequest
	if !h.bind(c, &req) {
		return
	}

	if httpkit.HandleError(c, h.svc.SignOut(c.Request.Context(), req.RefreshToken)) {
		return
	}
	httpkit.Message(c, "signed out")
}

// SetUserRoles replaces the roles of a user.
// PUT /api/v1/admin/users/:id/roles
func (h *Handler) SetUserRoles(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidUserID, nil)
		return
	}
	var req transport.SetUserRolesRequest
	if !h.bind(c, &req) {
		return
	}
	identity := accesshandler.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.SetUserRoles(c.Request.Context(), identity, userID, req.Roles)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
