package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/synthsense/synthsense-backend/internal/logger"
)

// RunStatus is the pollable snapshot of an in-flight experiment run. It lives
// in redis so status polls never touch postgres while a batch is running.
type RunStatus struct {
	ExperimentID uuid.UUID `json:"experiment_id"`
	Status       string    `json:"status"`
	Completed    int       `json:"completed"`
	Failed       int       `json:"failed"`
	Total        int       `json:"total"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type StatusCache interface {
	Set(ctx context.Context, status RunStatus) error
	Get(ctx context.Context, experimentID uuid.UUID) (*RunStatus, error)
	Delete(ctx context.Context, experimentID uuid.UUID) error
	Close() error
}

type statusCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewStatusCache(log *logger.Logger) (StatusCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &statusCache{
		log: log.With("service", "RedisStatusCache"),
		rdb: rdb,
		ttl: time.Hour,
	}, nil
}

func statusKey(experimentID uuid.UUID) string {
	return "experiment:run_status:" + experimentID.String()
}

func (c *statusCache) Set(ctx context.Context, status RunStatus) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("redis status cache not initialized")
	}
	status.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, statusKey(status.ExperimentID), raw, c.ttl).Err()
}

func (c *statusCache) Get(ctx context.Context, experimentID uuid.UUID) (*RunStatus, error) {
	if c == nil || c.rdb == nil {
		return nil, fmt.Errorf("redis status cache not initialized")
	}
	raw, err := c.rdb.Get(ctx, statusKey(experimentID)).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var status RunStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *statusCache) Delete(ctx context.Context, experimentID uuid.UUID) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("redis status cache not initialized")
	}
	return c.rdb.Del(ctx, statusKey(experimentID)).Err()
}

func (c *statusCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
