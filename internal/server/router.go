package server

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/synthsense/synthsense-backend/internal/handlers"
	"github.com/synthsense/synthsense-backend/internal/middleware"
)

type RouterConfig struct {
	ServiceName string

	AuthHandler       *handlers.AuthHandler
	AuthMiddleware    *middleware.AuthMiddleware
	UserHandler       *handlers.UserHandler
	PersonaHandler    *handlers.PersonaHandler
	ExperimentHandler *handlers.ExperimentHandler
	SSEHandler        *handlers.SSEHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(middleware.CORS())
	router.Use(otelgin.Middleware(cfg.ServiceName))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	api := router.Group("/api")
	{
		api.POST("/register", cfg.AuthHandler.Register)
		api.POST("/login", cfg.AuthHandler.Login)
	}

	// ===============
	// || Protected ||
	// ===============
	protected := api.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Auth
	protected.POST("/refresh", cfg.AuthHandler.Refresh)
	protected.POST("/logout", cfg.AuthHandler.Logout)
	// SSE
	protected.GET("/sse/stream", cfg.SSEHandler.SSEStream)
	protected.POST("/sse/subscribe", cfg.SSEHandler.SSESubscribe)
	protected.POST("/sse/unsubscribe", cfg.SSEHandler.SSEUnsubscribe)
	// User
	protected.GET("/user", cfg.UserHandler.GetMe)
	protected.PATCH("/user", cfg.UserHandler.UpdateName)
	// Personas
	protected.GET("/personas/groups", cfg.PersonaHandler.ListGroups)
	protected.GET("/personas/groups/:group", cfg.PersonaHandler.ListGroupPersonas)
	protected.POST("/personas/generate", cfg.PersonaHandler.Generate)
	protected.GET("/personas/jobs/:id", cfg.PersonaHandler.GetJob)
	protected.GET("/personas/jobs/:id/personas", cfg.PersonaHandler.ListPersonas)
	// Experiments
	protected.POST("/experiments", cfg.ExperimentHandler.Create)
	protected.GET("/experiments", cfg.ExperimentHandler.List)
	protected.GET("/experiments/:id", cfg.ExperimentHandler.Get)
	protected.DELETE("/experiments/:id", cfg.ExperimentHandler.Delete)
	protected.POST("/experiments/:id/run", cfg.ExperimentHandler.Run)
	protected.GET("/experiments/:id/status", cfg.ExperimentHandler.RunStatus)
	protected.GET("/experiments/:id/responses", cfg.ExperimentHandler.Responses)

	return router
}
