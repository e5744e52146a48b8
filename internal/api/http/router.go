package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/spec-kit/ticket-tracker/internal/api/http/handlers"
	"github.com/spec-kit/ticket-tracker/internal/auth"
	"github.com/spec-kit/ticket-tracker/internal/web"
)

// RouteConfig bundles dependencies for route registration. Web may be nil
// to serve only the JSON API.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Web            *web.Handler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	api := app.Group("/api", cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE",
	}), cfg.Tickets.RequireStore)

	api.Get("/tickets", cfg.Tickets.ListTickets)
	api.Get("/tickets/:id", cfg.Tickets.GetTicket)

	// The guard sits on the write routes only, so unknown /api paths
	// still fall through to the 404 handler.
	guard := cfg.AuthMiddleware.Handle
	api.Post("/tickets", guard, cfg.Tickets.CreateTicket)
	api.Put("/tickets/:id", guard, cfg.Tickets.UpdateTicket)
	api.Delete("/tickets/:id", guard, cfg.Tickets.DeleteTicket)

	if cfg.Web != nil {
		cfg.Web.Register(app)
	}
	app.Use(notFoundHandler)
}
