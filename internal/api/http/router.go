package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-insight/internal/api/http/handlers"
	"github.com/spec-kit/incident-insight/internal/auth"
	"github.com/spec-kit/incident-insight/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Workflow       *handlers.WorkflowHandler
	Reports        *handlers.ReportsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	app.Post("/auth/login", cfg.Auth.Login)

	protected := app.Group("", cfg.AuthMiddleware.Handle)
	protected.Get("/auth/me", cfg.Auth.Me)
	protected.Post("/auth/password/change", cfg.Auth.ChangePassword)

	tickets := protected.Group("/tickets")
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/timeline", cfg.Tickets.GetTimeline)
	tickets.Get("/:id/score", cfg.Tickets.GetScore)

	tickets.Post("/:id/comments", cfg.Workflow.Comment)
	tickets.Post("/:id/escalate", cfg.Workflow.Escalate)
	tickets.Post("/:id/validate", cfg.Workflow.Validate)
	tickets.Post("/:id/reject", cfg.Workflow.Reject)
	tickets.Post("/:id/feedback", cfg.Workflow.SubmitFeedback)

	tickets.Post("/:id/take", auth.RequireRole(domain.RoleTechnician), cfg.Workflow.TakeInCharge)
	tickets.Post("/:id/resolve", auth.RequireRole(domain.RoleTechnician, domain.RoleDSI, domain.RoleDeputyDSI, domain.RoleAdmin), cfg.Workflow.Resolve)

	tickets.Post("/:id/assign", auth.RequireManager(), cfg.Workflow.Assign)
	tickets.Post("/:id/reopen", auth.RequireManager(), cfg.Workflow.Reopen)
	tickets.Patch("/:id/status", auth.RequireManager(), cfg.Workflow.UpdateStatus)
	tickets.Post("/:id/delegate", auth.RequireRole(domain.RoleDSI, domain.RoleAdmin), cfg.Workflow.Delegate)

	protected.Get("/reports/metrics", cfg.Reports.FleetMetrics)
}
