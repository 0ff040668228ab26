package handler

import (
	"net/http"

	accesshandler "deskcrm_backend/internal/access/handler"
	"deskcrm_backend/internal/leads/lifecycle"
	"deskcrm_backend/internal/leads/management"
	"deskcrm_backend/internal/leads/transport"
	"deskcrm_backend/platform/httpkit"
	"deskcrm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for leads.
type Handler struct {
	mgmt      *management.Service
	lifecycle *lifecycle.Service
	val       *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidLeadID    = "invalid lead id"
)

// New creates a new leads handler.
func New(mgmt *management.Service, lc *lifecycle.Service, val *validator.Validator) *Handler {
	return &Handler{mgmt: mgmt, lifecycle: lc, val: val}
}

func parseLeadID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return uuid.Nil, false
	}
	return id, true
}

// List returns the leads the caller may see.
// GET /api/v1/leads
func (h *Handler) List(c *gin.Context) {
	var req transport.ListLeadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := accesshandler.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.mgmt.List(c.Request.Context(), identity, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetByID returns one lead.
// GET /api/v1/leads/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}
	identity := accesshandler.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.mgmt.GetByID(c.Request.Context(), identity, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// AvailableStates returns the states a lead may move to next.
// GET /api/v1/leads/:id/available-states
func (h *Handler) AvailableStates(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}
	identity := accesshandler.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.lifecycle.GetAvailableStates(c.Request.Context(), identity, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ChangeState moves a lead to another pipeline state.
// POST /api/v1/leads/:id/state
func (h *Handler) ChangeState(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}
	var req transport.ChangeStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := accesshandler.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.lifecycle.ChangeState(c.Request.Context(), identity, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// History returns the state history of a lead, newest first.
// GET /api/v1/leads/:id/history
func (h *Handler) History(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}
	identity := accesshandler.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.lifecycle.GetHistory(c.Request.Context(), identity, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
