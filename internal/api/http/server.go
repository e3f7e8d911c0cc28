package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ownerdesk/ticket-engine/internal/api/http/handlers"
	"github.com/ownerdesk/ticket-engine/internal/app"
	"github.com/ownerdesk/ticket-engine/internal/auth"
)

// NewServer builds the fiber app with middlewares and every route.
func NewServer(c *app.Container) *fiber.App {
	cfg := c.Config
	server := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(server, c.Logger, c.Metrics, cfg.App.RequestTimeout())

	RegisterRoutes(server, RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, c.Postgres, c.Redis),
		Directory:      handlers.NewDirectoryHandler(c.Auth, c.Directory),
		Tickets:        handlers.NewTicketsHandler(c.Tickets, c.Ownership, c.Timeline, c.Priority, c.Alerts),
		Envelopes:      handlers.NewEnvelopesHandler(c.Envelopes),
		Resolutions:    handlers.NewResolutionsHandler(c.Resolutions),
		Queues:         handlers.NewQueueHandler(c.Priority),
		Alerts:         handlers.NewAlertsHandler(c.Alerts),
		Calibration:    handlers.NewCalibrationHandler(c.Calibration),
		AuthMiddleware: auth.NewAuthMiddleware(c.Tokens, c.Repos.Agents),
		Metrics:        c.Metrics,
	})
	return server
}
