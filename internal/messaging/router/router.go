package router

import (
	"context"

	"social_network_service/internal/messaging/api/handlers"
	"social_network_service/internal/messaging/app"
	"social_network_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes 注册私訊與通知相關的路由
// @title Social Network Messaging API
// @version 1.0
// @description API documentation for the messaging service
// @host localhost:8084
// @BasePath /
func RegisterRoutes(
	r *fiber.App,
	messagingWebsocket *app.MessagingWebsocketHandler,
	messageHandler *handlers.MessageHandler,
	notificationHandler *handlers.NotificationHandler,
	presenceHandler *handlers.PresenceHandler,
) {
	r.Get("/swagger/*", swagger.HandlerDefault)
	r.Get("/", handlers.ConnectCheck)
	r.Post("/debug", handlers.DebugLogFlag)

	r.Use(middlewares.JWTMiddleware())

	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		messagingWebsocket.HandleConnection(context.Background(), c)
	}))

	messageRoutes := r.Group("/messages")
	messageRoutes.Post("/", messageHandler.SendMessage)
	messageRoutes.Get("/conversations", messageHandler.ListConversations)
	messageRoutes.Post("/conversations", messageHandler.CreateConversation)
	messageRoutes.Get("/conversation/:id", messageHandler.GetConversationMessages)
	messageRoutes.Put("/conversation/:id/read", messageHandler.MarkConversationRead)
	messageRoutes.Delete("/:id", messageHandler.DeleteMessage)

	notificationRoutes := r.Group("/notifications")
	notificationRoutes.Get("/", notificationHandler.ListNotifications)
	notificationRoutes.Put("/:id/read", notificationHandler.MarkNotificationRead)

	presenceRoutes := r.Group("/presence")
	presenceRoutes.Get("/online", presenceHandler.OnlineUsers)
	presenceRoutes.Get("/:id", presenceHandler.IsOnline)
}
