package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/websocket/v2"

	"github.com/yourorg/social-app/services/dm-service/internal/auth"
	"github.com/yourorg/social-app/services/dm-service/internal/handlers"
	"github.com/yourorg/social-app/services/dm-service/internal/metrics"
	"github.com/yourorg/social-app/services/dm-service/internal/middleware"
	"github.com/yourorg/social-app/services/dm-service/internal/ws"
)

func Register(app *fiber.App, h *handlers.DMHandler, wsrv *ws.Server, verifier *auth.Verifier) {
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"status": "ok"}) })
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(wsrv.HandleWS()))

	api := app.Group("/api/v1", middleware.JWTAuth(verifier))
	api.Get("/threads", h.ListThreads)
	api.Get("/summary", h.Summary)
	api.Get("/conversation/with/:contactId", h.OpenWithContact)
	api.Post("/conversation/with/:contactId", h.SendMessage)
	api.Get("/conversation/:id", h.GetConversation)
	api.Post("/conversation/:id/read", h.MarkRead)
}
