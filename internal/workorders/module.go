// Package workorders provides the work order lifecycle bounded context:
// creation from service requests, assignment, scheduling, and the state
// machine through completion or cancellation.
package workorders

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"fieldops_backend/internal/events"
	apphttp "fieldops_backend/internal/http"
	"fieldops_backend/internal/metrics"
	"fieldops_backend/internal/workorders/handler"
	"fieldops_backend/internal/workorders/repository"
	"fieldops_backend/internal/workorders/service"
	"fieldops_backend/platform/httpkit"
	"fieldops_backend/platform/logger"
	"fieldops_backend/platform/validator"
)

// Module is the work orders bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the work orders module. The gate and
// payment viewer are implemented by the technicians and payments modules and
// wired in at startup.
func NewModule(
	pool *pgxpool.Pool,
	val *validator.Validator,
	log *logger.Logger,
	bus events.Bus,
	m *metrics.DispatchMetrics,
	gate service.TechnicianGate,
	payments service.PaymentViewer,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, gate, payments, bus, log, m)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "workorders"
}

// Service returns the service layer for cross-module ports.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts work order routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/work-orders")
	group.GET("", m.handler.List)
	group.GET("/:id", m.handler.GetByID)

	// Technicians drive their own jobs; dispatchers can do everything.
	field := group.Group("")
	field.Use(httpkit.RequireAnyRole(httpkit.RoleAdmin, httpkit.RoleDispatcher, httpkit.RoleTechnician))
	field.POST("/:id/start", m.handler.Start)
	field.POST("/:id/complete", m.handler.Complete)

	dispatch := group.Group("")
	dispatch.Use(httpkit.RequireAnyRole(httpkit.RoleAdmin, httpkit.RoleDispatcher, httpkit.RoleCallCenter))
	dispatch.POST("", m.handler.Create)

	control := group.Group("")
	control.Use(httpkit.RequireAnyRole(httpkit.RoleAdmin, httpkit.RoleDispatcher))
	control.POST("/:id/assign", m.handler.Assign)
	control.POST("/:id/reassign", m.handler.Reassign)
	control.PUT("/:id/schedule", m.handler.Reschedule)
	control.POST("/:id/cancel", m.handler.Cancel)
}
