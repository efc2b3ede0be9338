// Package handler provides HTTP handlers for work orders.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fieldops_backend/internal/workorders/service"
	"fieldops_backend/internal/workorders/transport"
	"fieldops_backend/platform/httpkit"
	"fieldops_backend/platform/validator"
)

// Handler handles HTTP requests for work orders.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid work order ID"
)

// New creates a new work orders handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// List retrieves work orders with filters.
// GET /api/v1/work-orders
func (h *Handler) List(c *gin.Context) {
	var req transport.ListWorkOrdersRequest
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

// GetByID retrieves a work order, embedding the payment record when present.
// GET /api/v1/work-orders/:id
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

// Create converts a service request into a Pending work order.
// POST /api/v1/work-orders
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateWorkOrderRequest
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

// Assign gives a pending work order to a technician.
// POST /api/v1/work-orders/:id/assign
func (h *Handler) Assign(c *gin.Context) {
	h.transition(c, func(id, actorID uuid.UUID) (transport.WorkOrderResponse, error) {
		var req transport.AssignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return transport.WorkOrderResponse{}, errBadBody
		}
		if err := h.val.Struct(req); err != nil {
			return transport.WorkOrderResponse{}, errBadBody
		}
		return h.svc.Assign(c.Request.Context(), id, req, actorID)
	})
}

// Reassign moves the work order to a different technician.
// POST /api/v1/work-orders/:id/reassign
func (h *Handler) Reassign(c *gin.Context) {
	h.transition(c, func(id, actorID uuid.UUID) (transport.WorkOrderResponse, error) {
		var req transport.ReassignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return transport.WorkOrderResponse{}, errBadBody
		}
		if err := h.val.Struct(req); err != nil {
			return transport.WorkOrderResponse{}, errBadBody
		}
		return h.svc.Reassign(c.Request.Context(), id, req, actorID)
	})
}

// Reschedule updates schedule fields.
// PUT /api/v1/work-orders/:id/schedule
func (h *Handler) Reschedule(c *gin.Context) {
	h.transition(c, func(id, actorID uuid.UUID) (transport.WorkOrderResponse, error) {
		var req transport.ScheduleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return transport.WorkOrderResponse{}, errBadBody
		}
		if err := h.val.Struct(req); err != nil {
			return transport.WorkOrderResponse{}, errBadBody
		}
		return h.svc.Reschedule(c.Request.Context(), id, req, actorID)
	})
}

// Start moves an assigned work order to In Progress.
// POST /api/v1/work-orders/:id/start
func (h *Handler) Start(c *gin.Context) {
	h.transition(c, func(id, actorID uuid.UUID) (transport.WorkOrderResponse, error) {
		return h.svc.Start(c.Request.Context(), id, actorID)
	})
}

// Complete finishes the job and opens the payment record.
// POST /api/v1/work-orders/:id/complete
func (h *Handler) Complete(c *gin.Context) {
	h.transition(c, func(id, actorID uuid.UUID) (transport.WorkOrderResponse, error) {
		return h.svc.Complete(c.Request.Context(), id, actorID)
	})
}

// Cancel terminates a pending or assigned work order.
// POST /api/v1/work-orders/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	h.transition(c, func(id, actorID uuid.UUID) (transport.WorkOrderResponse, error) {
		var req transport.CancelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return transport.WorkOrderResponse{}, errBadBody
		}
		if err := h.val.Struct(req); err != nil {
			return transport.WorkOrderResponse{}, errBadBody
		}
		return h.svc.Cancel(c.Request.Context(), id, req, actorID)
	})
}

// errBadBody marks a malformed or invalid request body inside a transition
// closure; it never leaves this package.
var errBadBody = &badBodyError{}

type badBodyError struct{}

func (*badBodyError) Error() string { return msgInvalidRequest }

// transition factors the shared shape of lifecycle endpoints: parse the ID,
// require an authenticated actor, run the operation, map the error.
func (h *Handler) transition(c *gin.Context, run func(id, actorID uuid.UUID) (transport.WorkOrderResponse, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := run(id, identity.UserID())
	if err == errBadBody {
		httpkit.ValidationError(c, msgValidationFailed, nil)
		return
	}
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
