package routes

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/smiletime/smiletime-api/handlers"
	"github.com/smiletime/smiletime-api/middleware"
)

func MessagingRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	conversations := api.Group("/conversations", middleware.Protected())
	conversations.Get("", handlers.GetUserConversations)
	conversations.Post("", handlers.CreateConversation)
	conversations.Get("/partners", handlers.GetConversationPartners)
	conversations.Get("/:conversationId", handlers.GetConversationByID)
	conversations.Post("/:conversationId/leave", handlers.LeaveConversation)
	conversations.Post("/:conversationId/read", handlers.MarkConversationRead)
	conversations.Get("/:conversationId/messages", handlers.GetConversationMessages)

	messages := api.Group("/messages", middleware.Protected())
	messages.Post("", handlers.CreateMessage)
	messages.Get("/mine", handlers.GetMyMessages)
	messages.Delete("/:messageId", handlers.DeleteMessage)

	api.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	api.Get("/ws", websocket.New(handlers.ServeWs))
}
