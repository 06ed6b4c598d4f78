package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/fieldwork-go-api/internal/config"
	"github.com/noah-isme/fieldwork-go-api/internal/handler"
	"github.com/noah-isme/fieldwork-go-api/internal/middleware"
	"github.com/noah-isme/fieldwork-go-api/internal/models"
	"github.com/noah-isme/fieldwork-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	PlacementHandler         *handler.PlacementHandler
	PendingSupervisorHandler *handler.PendingSupervisorHandler
	TimesheetHandler         *handler.TimesheetHandler
	NotificationHandler      *handler.NotificationHandler
	DashboardHandler         *handler.DashboardHandler
	JWTMiddleware            fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Placement lifecycle
	if deps.PlacementHandler != nil {
		placements := api.Group("/placements", jwtMiddleware)
		deps.PlacementHandler.Register(placements)
	}

	// Supervisor vetting is a faculty/admin concern
	if deps.PendingSupervisorHandler != nil {
		pending := api.Group("/pending-supervisors", jwtMiddleware,
			middleware.RequireRole(models.RoleFaculty, models.RoleAdmin))
		deps.PendingSupervisorHandler.Register(pending)
	}

	// Timesheets & weekly journals
	if deps.TimesheetHandler != nil {
		timesheets := api.Group("/timesheets", jwtMiddleware)
		deps.TimesheetHandler.Register(timesheets)
	}

	// Notification inbox & stream
	if deps.NotificationHandler != nil {
		notifications := api.Group("/notifications", jwtMiddleware)
		deps.NotificationHandler.Register(notifications)
	}

	// Student dashboard
	if deps.DashboardHandler != nil {
		dashboard := api.Group("/dashboard", jwtMiddleware)
		deps.DashboardHandler.Register(dashboard)
	}
}
