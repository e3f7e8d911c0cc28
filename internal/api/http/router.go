package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/ownerdesk/ticket-engine/internal/api/http/handlers"
	"github.com/ownerdesk/ticket-engine/internal/auth"
	"github.com/ownerdesk/ticket-engine/internal/domain"
	"github.com/ownerdesk/ticket-engine/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Directory      *handlers.DirectoryHandler
	Tickets        *handlers.TicketsHandler
	Envelopes      *handlers.EnvelopesHandler
	Resolutions    *handlers.ResolutionsHandler
	Queues         *handlers.QueueHandler
	Alerts         *handlers.AlertsHandler
	Calibration    *handlers.CalibrationHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))

	app.Post("/auth/agents/login", cfg.Directory.Login)

	supervisors := auth.RequireAgentRole(domain.AgentRoleManager, domain.AgentRoleAdmin)
	approvers := auth.RequireAgentRole(domain.AgentRoleTeamLead, domain.AgentRoleManager, domain.AgentRoleAdmin)

	api := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAgentRole())

	api.Get("/agents/me", cfg.Directory.Me)
	api.Get("/agents/me/envelopes", cfg.Envelopes.MyEnvelopes)
	api.Get("/agents/me/pending-approvals", approvers, cfg.Resolutions.PendingApprovals)
	api.Get("/agents/me/work-queue", cfg.Queues.MyWorkQueue)
	api.Get("/agents/me/alerts", cfg.Alerts.MyAlerts)
	api.Get("/agents/:id", cfg.Directory.GetAgent)

	api.Post("/companies", cfg.Directory.CreateCompany)
	api.Post("/contacts", cfg.Directory.CreateContact)

	tickets := api.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/accept", cfg.Tickets.AcceptTicket)
	tickets.Post("/:id/transfer", supervisors, cfg.Tickets.TransferTicket)
	tickets.Post("/:id/release", cfg.Tickets.ReleaseTicket)
	tickets.Post("/:id/status", cfg.Tickets.ChangeStatus)
	tickets.Post("/:id/replies", cfg.Tickets.AddReply)
	tickets.Post("/:id/flags", cfg.Tickets.AddFlag)
	tickets.Delete("/:id/flags/:flagID", cfg.Tickets.ClearFlag)
	tickets.Get("/:id/timeline", cfg.Tickets.Timeline)
	tickets.Get("/:id/score", cfg.Tickets.Score)
	tickets.Post("/:id/alerts/check", cfg.Tickets.CheckAlerts)
	tickets.Post("/:id/envelopes", cfg.Envelopes.CreateEnvelope)
	tickets.Get("/:id/envelopes", cfg.Envelopes.OwnerView)
	tickets.Get("/:id/expert-view", cfg.Envelopes.ExpertView)
	tickets.Post("/:id/resolutions", cfg.Resolutions.CreateResolution)

	envelopes := api.Group("/envelopes")
	envelopes.Post("/:id/accept", cfg.Envelopes.AcceptEnvelope)
	envelopes.Post("/:id/notes", cfg.Envelopes.AddNote)
	envelopes.Post("/:id/complete", cfg.Envelopes.CompleteEnvelope)

	api.Post("/resolutions/:id/approve", approvers, cfg.Resolutions.ApproveResolution)

	api.Get("/teams/:id", cfg.Directory.GetTeam)
	api.Get("/teams/:id/queue", cfg.Queues.TeamQueue)

	api.Post("/alerts/check", supervisors, cfg.Alerts.Sweep)
	api.Post("/alerts/:id/acknowledge", cfg.Alerts.Acknowledge)

	calibration := api.Group("/calibration", supervisors)
	calibration.Get("/queue", cfg.Calibration.Queue)
	calibration.Get("/report", cfg.Calibration.Report)
	calibration.Post("/:id/review", cfg.Calibration.Review)

	admin := api.Group("/admin", auth.RequireAgentRole(domain.AgentRoleAdmin))
	admin.Post("/teams", cfg.Directory.CreateTeam)
	admin.Post("/agents", cfg.Directory.CreateAgent)
	admin.Patch("/agents/:id", cfg.Directory.UpdateAgent)
}
