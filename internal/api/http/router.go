package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-platform/internal/api/http/handlers"
	"github.com/spec-kit/support-platform/internal/auth"
	"github.com/spec-kit/support-platform/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Guest          *handlers.GuestHandler
	Embed          *handlers.EmbedHandler
	Conversations  *handlers.ConversationsHandler
	Staff          *handlers.StaffHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/users/register", cfg.Auth.RegisterUser)
	authGroup.Post("/users/login", cfg.Auth.LoginUser)
	authGroup.Post("/clients/login", cfg.Auth.LoginClient)

	// Anonymous widget and guest surface. No bearer auth; the embed path
	// authorizes through capability tokens and both paths are rate limited.
	app.Post("/embed/tickets", cfg.Embed.CreateTicket)
	guest := app.Group("/guest")
	guest.Post("/tickets", cfg.Guest.CreateTicket)
	guest.Post("/tickets/track", cfg.Guest.TrackTicket)

	// Public conversation surface shared by guests; authenticated clients
	// pass through the optional middleware and resolve to their account.
	conversations := app.Group("/conversations", cfg.AuthMiddleware.HandleOptional)
	conversations.Post("/", cfg.Conversations.StartConversation)
	conversations.Get("/:id", cfg.Conversations.GetConversation)
	conversations.Post("/:id/messages", cfg.Conversations.SendMessage)
	conversations.Get("/:id/messages", cfg.Conversations.ListMessages)
	conversations.Post("/:id/read", cfg.Conversations.MarkRead)

	// Client portal.
	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleClient))
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)

	// Staff console.
	staff := app.Group("/staff", cfg.AuthMiddleware.Handle,
		auth.RequireRole(domain.RoleAdmin, domain.RoleEditor, domain.RoleSupportAgent))
	staff.Get("/tickets", cfg.Tickets.ListStaffTickets)
	staff.Get("/tickets/:id", cfg.Tickets.GetStaffTicket)
	staff.Get("/tickets/:id/history", cfg.Tickets.ListTicketHistory)
	staff.Post("/tickets/:id/assign", cfg.Tickets.AssignTicket)
	staff.Post("/tickets/:id/transition", cfg.Tickets.TransitionTicket)
	staff.Post("/tickets/:id/escalate", cfg.Tickets.EscalateTicket)

	staff.Get("/conversations", cfg.Conversations.ListInbox)
	staff.Get("/conversations/archived", cfg.Conversations.ListArchived)
	staff.Post("/conversations/bulk-delete", cfg.Conversations.BulkDeleteConversations)
	staff.Post("/conversations/:id/claim", cfg.Conversations.ClaimConversation)
	staff.Post("/conversations/:id/close", cfg.Conversations.CloseConversation)
	staff.Post("/conversations/:id/reopen", cfg.Conversations.ReopenConversation)
	staff.Post("/conversations/:id/archive", cfg.Conversations.ArchiveConversation)
	staff.Post("/conversations/:id/restore", cfg.Conversations.RestoreConversation)
	staff.Post("/conversations/:id/convert", cfg.Conversations.ConvertToTicket)
	staff.Delete("/conversations/:id", cfg.Conversations.DeleteConversation)

	// Administration.
	admin := app.Group("/admin", cfg.AuthMiddleware.Handle,
		auth.RequireRole(domain.RoleAdmin, domain.RoleEditor))
	admin.Put("/users/role", cfg.Auth.ChangeRole)
	admin.Post("/staff", cfg.Staff.CreateStaff)
	admin.Get("/staff", cfg.Staff.ListStaff)
	admin.Get("/staff/audit", cfg.Staff.RunAudit)
	admin.Put("/staff/:id", cfg.Staff.UpdateStaff)
	admin.Post("/embed-tokens", cfg.Embed.CreateToken)
	admin.Get("/embed-tokens", cfg.Embed.ListTokens)
	admin.Put("/embed-tokens/:id", cfg.Embed.UpdateToken)
	admin.Delete("/embed-tokens/:id", cfg.Embed.DeleteToken)
}
