package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/luftkuhl/ninethree-backend/internal/handlers"
	"github.com/luftkuhl/ninethree-backend/internal/middleware"
)

type RouterDeps struct {
	AuthMW        *middleware.AuthMiddleware
	Auth          *handlers.AuthHandler
	Profile       *handlers.ProfileHandler
	Conversations *handlers.ConversationHandler
	Chat          *handlers.ChatHandler
	Images        *handlers.ImageHandler
	Health        *handlers.HealthHandler
	AllowOrigins  []string
}

func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("ninethree-backend"))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     deps.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	public := router.Group("/api/v1")
	{
		public.GET("/healthcheck", deps.Health.Healthcheck)
		public.POST("/auth/register", deps.Auth.Register)
		public.POST("/auth/login", deps.Auth.Login)
	}

	protected := router.Group("/api/v1")
	protected.Use(deps.AuthMW.RequireAuth())
	{
		protected.GET("/stats", deps.Health.Stats)

		protected.GET("/profile", deps.Profile.Get)
		protected.PUT("/profile", deps.Profile.Put)

		protected.GET("/conversations", deps.Conversations.List)
		protected.POST("/conversations", deps.Conversations.Create)
		protected.GET("/conversations/:id", deps.Conversations.Get)
		protected.PUT("/conversations/:id/title", deps.Conversations.Rename)
		protected.DELETE("/conversations/:id", deps.Conversations.Delete)
		protected.POST("/conversations/:id/ask", deps.Chat.Ask)

		protected.POST("/images", deps.Images.Upload)
		protected.GET("/images/:name", deps.Images.Get)
	}

	return router
}
