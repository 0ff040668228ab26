package handler

import (
	"net/http"

	accesshandler "deskcrm_backend/internal/access/handler"
	"deskcrm_backend/internal/desks/service"
	"deskcrm_backend/internal/desks/transport"
	"deskcrm_backend/platform/httpkit"
	"deskcrm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for desk pipelines.
type Handler struct {
	states      *service.Registry
	transitions *service.Transitions
	val         *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidDeskID    = "invalid desk id"
	msgInvalidStateID   = "invalid state id"
	msgInvalidEdgeID    = "invalid transition id"
)

// New creates a new desks handler.
func New(states *service.Registry, transitions *service.Transitions, val *validator.Validator) *Handler {
	return &Handler{states: states, transitions: transitions, val: val}
}

func parseID(c *gin.Context, param, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msg, nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) bindJSON(c *gin.Context, req interface{}) bool {
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

// ListStates lists a desk's pipeline states.
// GET /api/v1/desks/:deskId/states
func (h *Handler) ListStates(c *gin.Context) {
	deskID, ok := parseID(c, "deskId", msgInvalidDeskID)
	if !ok {
		return
	}
	var req transport.ListStatesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	identity := accesshandler.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.states.ListStates(c.Request.Context(), identity, deskID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CreateState adds a state to a desk.
// POST /api/v1/desks/:deskId/states
func (h *Handler) CreateState(c *gin.Context) {
	deskID, ok := parseID(c, "deskId", msgInvalidDeskID)
	if !ok {
		return
	}
	var req transport.CreateStateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	identity := accesshandler.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.states.CreateState(c.Request.Context(), identity, deskID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// SeedStates creates the default pipeline in an empty desk.
// POST /api/v1/desks/:deskId/states/seed
func (h *Handler) SeedStates(c *gin.Context) {
	deskID, ok := parseID(c, "deskId", msgInvalidDeskID)
	if !ok {
		return
	}
	identity := accesshandler.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.states.SeedDefaults(c.Request.Context(), identity, deskID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// ReorderStates rewrites the order of a desk's states.
// PUT /api/v1/desks/:deskId/states/order
func (h *Handler) ReorderStates(c *gin.Context) {
	deskID, ok := parseID(c, "deskId", msgInvalidDeskID)
	if !ok {
		return
	}
	var req transport.ReorderStatesRequest
	if !h.bindJSON(c, &req) {
		return
	}
	identity := accesshandler.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.states.Reorder(c.Request.Context(), identity, deskID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// DeactivateState soft-deletes a state.
// PATCH /api/v1/desk-states/:id/deactivate
func (h *Handler) DeactivateState(c *gin.Context) {
	stateID, ok := parseID(c, "id", msgInvalidStateID)
	if !ok {
		return
	}
	identity := accesshandler.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.states.DeactivateState(c.Request.Context(), identity, stateID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// SetSelectable toggles whether a state can be chosen as a target.
// PATCH /api/v1/desk-states/:id/selectable
func (h *Handler) SetSelectable(c *gin.Context) {
	stateID, ok := parseID(c, "id", msgInvalidStateID)
	if !ok {
		return
	}
	var req transport.SetSelectableRequest
	if !h.bindJSON(c, &req) {
		return
	}
	identity := accesshandler.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.states.SetSelectable(c.Request.Context(), identity, stateID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// NextStates lists the states reachable in one hop from a state.
// GET /api/v1/desk-states/:id/next
func (h *Handler) NextStates(c *gin.Context) {
	stateID, ok := parseID(c, "id", msgInvalidStateID)
	if !ok {
		return
	}
	identity := accesshandler.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.transitions.NextStates(c.Request.Context(), identity, stateID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CheckTransition reports whether one state may move to another.
// GET /api/v1/desk-states/:id/next/:toId
func (h *Handler) CheckTransition(c *gin.Context) {
	fromID, ok := parseID(c, "id", msgInvalidStateID)
	if !ok {
		return
	}
	toID, ok := parseID(c, "toId", msgInvalidStateID)
	if !ok {
		return
	}
	identity := accesshandler.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.transitions.CheckTransition(c.Request.Context(), identity, fromID, toID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListTransitions lists a desk's edges.
// GET /api/v1/desks/:deskId/transitions
func (h *Handler) ListTransitions(c *gin.Context) {
	deskID, ok := parseID(c, "deskId", msgInvalidDeskID)
	if !ok {
		return
	}
	identity := accesshandler.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.transitions.List(c.Request.Context(), identity, deskID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CreateTransition adds an edge to a desk.
// POST /api/v1/desks/:deskId/transitions
func (h *Handler) CreateTransition(c *gin.Context) {
	deskID, ok := parseID(c, "deskId", msgInvalidDeskID)
	if !ok {
		return
	}
	var req transport.CreateTransitionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	identity := accesshandler.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.transitions.Add(c.Request.Context(), identity, deskID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// DeleteTransition removes an edge.
// DELETE /api/v1/transitions/:id
func (h *Handler) DeleteTransition(c *gin.Context) {
	edgeID, ok := parseID(c, "id", msgInvalidEdgeID)
	if !ok {
		return
	}
	identity := accesshandler.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if httpkit.HandleError(c, h.transitions.Remove(c.Request.Context(), identity, edgeID)) {
		return
	}
	httpkit.Message(c, "transition removed")
}
