// Package handler provides HTTP handlers for the technician roster.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fieldops_backend/internal/technicians/service"
	"fieldops_backend/internal/technicians/transport"
	"fieldops_backend/platform/httpkit"
	"fieldops_backend/platform/validator"
)

// Handler handles HTTP requests for technicians.
type Handler struct {
	svc      *service.Service
	resolver *service.Resolver
	val      *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid technician ID"
)

// New creates a new technicians handler.
func New(svc *service.Service, resolver *service.Resolver, val *validator.Validator) *Handler {
	return &Handler{svc: svc, resolver: resolver, val: val}
}

// List retrieves the technician roster with filters.
// GET /api/v1/technicians
func (h *Handler) List(c *gin.Context) {
	var req transport.ListTechniciansRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.List(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetByID retrieves a technician by ID.
// GET /api/v1/technicians/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Create adds a technician to the roster.
// POST /api/v1/admin/technicians
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.ValidationError(c, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// Update changes roster fields on a technician.
// PUT /api/v1/admin/technicians/:id
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	var req transport.UpdateTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.ValidationError(c, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Update(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Block marks a technician ineligible for new assignments.
// PATCH /api/v1/admin/technicians/:id/block
func (h *Handler) Block(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	var req transport.BlockTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.ValidationError(c, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Block(c.Request.Context(), id, req.Reason, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Unblock lifts a block.
// PATCH /api/v1/admin/technicians/:id/unblock
func (h *Handler) Unblock(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Unblock(c.Request.Context(), id, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// SetOverride replaces the per-technician compensation override.
// PUT /api/v1/admin/technicians/:id/compensation
func (h *Handler) SetOverride(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	var req transport.OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.ValidationError(c, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.SetOverride(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ClearOverride removes the compensation override.
// DELETE /api/v1/admin/technicians/:id/compensation
func (h *Handler) ClearOverride(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.ClearOverride(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Candidates returns the ranked assignment candidate list for a work order.
// GET /api/v1/work-orders/:id/candidates
func (h *Handler) Candidates(c *gin.Context) {
	workOrderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid work order ID", nil)
		return
	}

	result, err := h.resolver.CandidatesForJob(c.Request.Context(), workOrderID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
