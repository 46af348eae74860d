package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/driftchat/chat-service/internal/middleware"
	"github.com/driftchat/chat-service/internal/ws"
)

// Register wires every route. All /api/v1 routes require a verified session.
func Register(app *fiber.App, verifier *middleware.Verifier, hub *ws.Hub,
	users *UserHandler, convs *ConversationHandler, messages *MessageHandler, typing *TypingHandler) {

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	app.Get("/ws", websocket.New(hub.HandleWebsocket))

	api := app.Group("/api/v1", middleware.Auth(verifier))

	api.Post("/users/sync", users.Sync)
	api.Patch("/users/me/status", users.UpdateStatus)
	api.Post("/users/me/heartbeat", users.Heartbeat)
	api.Get("/users", users.List)

	api.Get("/conversations", convs.List)
	api.Post("/conversations/dm", convs.CreateDM)
	api.Post("/conversations/group", convs.CreateGroup)
	api.Get("/conversations/:id", convs.Get)
	api.Post("/conversations/:id/read", convs.MarkAsRead)
	api.Post("/conversations/:id/ephemeral", convs.ToggleEphemeral)

	api.Get("/conversations/:id/messages", messages.List)
	api.Post("/conversations/:id/messages", messages.Send)
	api.Delete("/messages/:id", messages.Delete)
	api.Post("/messages/:id/reactions", messages.ToggleReaction)

	api.Post("/conversations/:id/typing", typing.Update)
	api.Get("/conversations/:id/typing", typing.Active)
}
