package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gorm.io/gorm"

	"github.com/synthsense/synthsense-backend/internal/ai"
	redisclient "github.com/synthsense/synthsense-backend/internal/clients/redis"
	"github.com/synthsense/synthsense-backend/internal/logger"
	"github.com/synthsense/synthsense-backend/internal/services"
	"github.com/synthsense/synthsense-backend/internal/simulation"
	"github.com/synthsense/synthsense-backend/internal/sse"
)

type Services struct {
	Auth       services.AuthService
	User       services.UserService
	Persona    services.PersonaService
	Experiment services.ExperimentService
	Notifier   services.Notifier

	AIClient    ai.Client
	StatusCache redisclient.StatusCache
	SSEBus      redisclient.SSEBus
}

func wireServices(ctx context.Context, db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, hub *sse.SSEHub) (Services, error) {
	log.Info("Wiring services...")

	client, err := ai.NewFromEnv(ctx, log)
	if err != nil {
		return Services{}, fmt.Errorf("init AI client: %w", err)
	}
	client = ai.Audited(client, reposet.AICallLog, log)

	var emitter services.SSEEmitter = &services.HubEmitter{Hub: hub}
	var statusCache redisclient.StatusCache
	var sseBus redisclient.SSEBus
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		statusCache, err = redisclient.NewStatusCache(log)
		if err != nil {
			return Services{}, fmt.Errorf("init redis status cache: %w", err)
		}
		sseBus, err = redisclient.NewSSEBus(log)
		if err != nil {
			return Services{}, fmt.Errorf("init redis SSE bus: %w", err)
		}
		// Events published by other replicas reach this hub's clients.
		if fErr := sseBus.StartForwarder(ctx, hub.Broadcast); fErr != nil {
			return Services{}, fmt.Errorf("start redis SSE forwarder: %w", fErr)
		}
		emitter = &services.RedisEmitter{Bus: sseBus}
	} else {
		log.Warn("REDIS_ADDR not set; run status polling falls back to postgres and SSE stays single-instance")
		statusCache = noopStatusCache{}
	}

	notifier := services.NewNotifier(emitter)

	authSvc := services.NewAuthService(db, log, reposet.User, reposet.UserToken, cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	userSvc := services.NewUserService(db, log, reposet.User, notifier)
	personaSvc := services.NewPersonaService(db, log, client, reposet.PersonaGenerationJob, reposet.Persona, notifier)

	raterCfg := simulation.DefaultRaterConfig()
	raterCfg.MaxRetries = cfg.SimMaxRetries
	rater := simulation.NewRater(client, log, raterCfg)

	experimentSvc := services.NewExperimentService(
		db, log, client, rater, cfg.SimConcurrency,
		reposet.Experiment, reposet.SurveyResponse,
		personaSvc, notifier, statusCache, cfg.SimMinSample,
	)

	return Services{
		Auth:        authSvc,
		User:        userSvc,
		Persona:     personaSvc,
		Experiment:  experimentSvc,
		Notifier:    notifier,
		AIClient:    client,
		StatusCache: statusCache,
		SSEBus:      sseBus,
	}, nil
}
