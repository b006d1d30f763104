package app

import (
	"github.com/gin-gonic/gin"

	"github.com/synthsense/synthsense-backend/internal/server"
)

func wireRouter(cfg Config, handlers Handlers, middleware Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		ServiceName:       cfg.ServiceName,
		AuthHandler:       handlers.Auth,
		AuthMiddleware:    middleware.Auth,
		UserHandler:       handlers.User,
		PersonaHandler:    handlers.Persona,
		ExperimentHandler: handlers.Experiment,
		SSEHandler:        handlers.SSE,
	})
}
