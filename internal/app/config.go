package app

import (
	"time"

	"github.com/synthsense/synthsense-backend/internal/logger"
	"github.com/synthsense/synthsense-backend/internal/utils"
)

type Config struct {
	ServiceName     string
	JWTSecretKey    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Simulation pipeline knobs.
	SimConcurrency int
	SimMinSample   int
	SimMaxRetries  int
}

func LoadConfig(log *logger.Logger) Config {
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTLSeconds := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTLSeconds := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
	return Config{
		ServiceName:     utils.GetEnv("SERVICE_NAME", "synthsense-backend", log),
		JWTSecretKey:    jwtSecretKey,
		AccessTokenTTL:  time.Duration(accessTokenTTLSeconds) * time.Second,
		RefreshTokenTTL: time.Duration(refreshTokenTTLSeconds) * time.Second,
		SimConcurrency:  utils.GetEnvAsInt("SIM_CONCURRENCY", 50, log),
		SimMinSample:    utils.GetEnvAsInt("SIM_MIN_SAMPLE", 1, log),
		SimMaxRetries:   utils.GetEnvAsInt("SIM_MAX_RETRIES", 2, log),
	}
}
