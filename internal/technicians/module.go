// Package technicians provides the technician roster bounded context:
// roster CRUD, blocking, compensation overrides, and assignment candidate
// ranking.
package technicians

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"fieldops_backend/internal/compensation"
	"fieldops_backend/internal/events"
	apphttp "fieldops_backend/internal/http"
	"fieldops_backend/internal/metrics"
	"fieldops_backend/internal/technicians/handler"
	"fieldops_backend/internal/technicians/repository"
	"fieldops_backend/internal/technicians/service"
	"fieldops_backend/platform/httpkit"
	"fieldops_backend/platform/logger"
	"fieldops_backend/platform/validator"
)

// Module is the technicians bounded context module implementing http.Module.
type Module struct {
	handler  *handler.Handler
	service  *service.Service
	resolver *service.Resolver
	repo     repository.Repository
}

// NewModule creates and initializes the technicians module. The locator is
// implemented by the work orders module and wired in at startup.
func NewModule(
	pool *pgxpool.Pool,
	val *validator.Validator,
	log *logger.Logger,
	bus events.Bus,
	defaults compensation.Defaults,
	m *metrics.DispatchMetrics,
	locator service.WorkOrderLocator,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, log, defaults)
	resolver := service.NewResolver(repo, locator, nil, m, log)
	h := handler.New(svc, resolver, val)

	return &Module{
		handler:  h,
		service:  svc,
		resolver: resolver,
		repo:     repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "technicians"
}

// Service returns the service layer for cross-module ports.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts technician routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/technicians")
	group.GET("", m.handler.List)
	group.GET("/:id", m.handler.GetByID)

	// Candidate ranking hangs off the work order resource.
	candidates := ctx.Protected.Group("/work-orders")
	candidates.Use(httpkit.RequireAnyRole(httpkit.RoleAdmin, httpkit.RoleDispatcher))
	candidates.GET("/:id/candidates", m.handler.Candidates)

	// Roster and pay changes are admin-only.
	admin := ctx.Admin.Group("/technicians")
	admin.POST("", m.handler.Create)
	admin.PUT("/:id", m.handler.Update)
	admin.PATCH("/:id/block", m.handler.Block)
	admin.PATCH("/:id/unblock", m.handler.Unblock)
	admin.PUT("/:id/compensation", m.handler.SetOverride)
	admin.DELETE("/:id/compensation", m.handler.ClearOverride)
}
