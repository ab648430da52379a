package router

import (
	"github.com/gin-gonic/gin"

	"github.com/olegbratus/gigflow-backend/internal/config"
	"github.com/olegbratus/gigflow-backend/internal/http/handlers"
	"github.com/olegbratus/gigflow-backend/internal/http/middleware"
	"github.com/olegbratus/gigflow-backend/internal/service"
)

// SetupRouter собирает все маршруты API.
func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	orderHandler *handlers.OrderHandler,
	messageHandler *handlers.MessageHandler,
	presenceHandler *handlers.PresenceHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	// Вебсокет авторизуется токеном в query-параметре.
	api.GET("/ws", wsHandler.Handle)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.POST("/orders", orderHandler.Create)
		protected.GET("/orders/my", orderHandler.ListMy)
		protected.GET("/orders/:id", middleware.UUIDValidator("id"), orderHandler.Get)
		protected.PUT("/orders/:id/status", middleware.UUIDValidator("id"), orderHandler.UpdateStatus)
		protected.PUT("/orders/:id/deliverables", middleware.UUIDValidator("id"), orderHandler.SubmitDeliverables)

		protected.POST("/messages/send", messageHandler.Send)
		protected.GET("/messages/conversations", messageHandler.Conversations)
		protected.GET("/messages/conversation/:userId", middleware.UUIDValidator("userId"), messageHandler.Conversation)
		protected.GET("/messages/thread/:conversationId", messageHandler.Thread)
		protected.PUT("/messages/mark-read", messageHandler.MarkRead)
		protected.GET("/messages/unread-count", messageHandler.UnreadCount)

		protected.GET("/presence/:id", middleware.UUIDValidator("id"), presenceHandler.Get)
	}

	return r
}
