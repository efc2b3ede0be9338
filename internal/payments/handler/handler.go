// Package handler provides HTTP handlers for payment verification.
package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fieldops_backend/internal/payments/service"
	"fieldops_backend/internal/payments/transport"
	"fieldops_backend/platform/httpkit"
	"fieldops_backend/platform/validator"
)

// Handler handles HTTP requests for payment records.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid work order ID"
)

// New creates a new payments handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// GetByWorkOrder retrieves the payment record for a work order.
// GET /api/v1/work-orders/:id/payment
func (h *Handler) GetByWorkOrder(c *gin.Context) {
	workOrderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.GetByWorkOrder(c.Request.Context(), workOrderID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// UploadProof records proof of payment. Multipart requests carry the image
// in the "image" field; JSON requests pass a pre-uploaded proofImageRef.
// POST /api/v1/work-orders/:id/payment/proof
func (h *Handler) UploadProof(c *gin.Context) {
	workOrderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.UploadProofRequest
	var image *service.ProofImage

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		if err := c.ShouldBind(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		image, err = readProofImage(c)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "could not read proof image", nil)
			return
		}
	} else {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.ValidationError(c, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.UploadProof(c.Request.Context(), workOrderID, req, image, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Verify settles an uploaded proof with an APPROVE or REJECT action.
// POST /api/v1/work-orders/:id/payment/verify
func (h *Handler) Verify(c *gin.Context) {
	workOrderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	var req transport.VerifyRequest
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

	result, err := h.svc.Decide(c.Request.Context(), workOrderID, req, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Payout marks a booked commission as paid out.
// POST /api/v1/work-orders/:id/payment/payout
func (h *Handler) Payout(c *gin.Context) {
	workOrderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.MarkPayoutPaid(c.Request.Context(), workOrderID, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// List retrieves payment records with an optional status filter.
// GET /api/v1/payments
func (h *Handler) List(c *gin.Context) {
	var req transport.ListPaymentsRequest
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

// Stats returns the aggregate dispatcher view.
// GET /api/v1/payments/stats
func (h *Handler) Stats(c *gin.Context) {
	result, err := h.svc.Stats(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func readProofImage(c *gin.Context) (*service.ProofImage, error) {
	header, err := c.FormFile("image")
	if err != nil {
		// The image field is optional at the HTTP layer; the service decides
		// whether a ref suffices.
		return nil, nil
	}
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return &service.ProofImage{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
