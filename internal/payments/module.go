// Package payments provides the payment verification bounded context:
// proof uploads, the approve/reject decision, commission booking, and
// payout tracking for completed work orders.
package payments

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"fieldops_backend/internal/compensation"
	"fieldops_backend/internal/events"
	apphttp "fieldops_backend/internal/http"
	"fieldops_backend/internal/metrics"
	"fieldops_backend/internal/payments/handler"
	"fieldops_backend/internal/payments/repository"
	"fieldops_backend/internal/payments/service"
	"fieldops_backend/internal/storage"
	"fieldops_backend/platform/httpkit"
	"fieldops_backend/platform/logger"
	"fieldops_backend/platform/validator"
)

// Module is the payments bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the payments module. Storage and cache
// may be nil; the work order source and technician directory come from the
// sibling modules.
func NewModule(
	pool *pgxpool.Pool,
	val *validator.Validator,
	log *logger.Logger,
	bus events.Bus,
	m *metrics.DispatchMetrics,
	store storage.StorageService,
	cache *redis.Client,
	workOrders service.WorkOrderSource,
	directory service.TechnicianDirectory,
	defaults compensation.Defaults,
	proofBucket string,
	statsTTL time.Duration,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, workOrders, directory, store, cache, bus, log, m, defaults, proofBucket, statsTTL)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "payments"
}

// Service returns the service layer for cross-module ports.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts payment routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	perOrder := ctx.Protected.Group("/work-orders")
	perOrder.GET("/:id/payment", m.handler.GetByWorkOrder)

	// Technicians upload proof from the field.
	upload := perOrder.Group("")
	upload.Use(httpkit.RequireAnyRole(httpkit.RoleAdmin, httpkit.RoleDispatcher, httpkit.RoleTechnician))
	upload.POST("/:id/payment/proof", m.handler.UploadProof)

	// Verification and payout are dispatcher decisions.
	decide := perOrder.Group("")
	decide.Use(httpkit.RequireAnyRole(httpkit.RoleAdmin, httpkit.RoleDispatcher))
	decide.POST("/:id/payment/verify", m.handler.Verify)
	decide.POST("/:id/payment/payout", m.handler.Payout)

	listing := ctx.Protected.Group("/payments")
	listing.Use(httpkit.RequireAnyRole(httpkit.RoleAdmin, httpkit.RoleDispatcher))
	listing.GET("", m.handler.List)
	listing.GET("/stats", m.handler.Stats)
}
