package app

import (
	"github.com/synthsense/synthsense-backend/internal/handlers"
	"github.com/synthsense/synthsense-backend/internal/logger"
	"github.com/synthsense/synthsense-backend/internal/sse"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	User       *handlers.UserHandler
	Persona    *handlers.PersonaHandler
	Experiment *handlers.ExperimentHandler
	SSE        *handlers.SSEHandler
}

func wireHandlers(log *logger.Logger, services Services, sseHub *sse.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Auth:       handlers.NewAuthHandler(services.Auth),
		User:       handlers.NewUserHandler(services.User),
		Persona:    handlers.NewPersonaHandler(services.Persona),
		Experiment: handlers.NewExperimentHandler(services.Experiment),
		SSE:        handlers.NewSSEHandler(log, sseHub),
	}
}
