package app

import (
	"context"

	"github.com/google/uuid"

	redisclient "github.com/synthsense/synthsense-backend/internal/clients/redis"
)

// noopStatusCache stands in when redis is not configured. Run status reads
// fall through to the experiments table.
type noopStatusCache struct{}

func (noopStatusCache) Set(ctx context.Context, status redisclient.RunStatus) error {
	return nil
}

func (noopStatusCache) Get(ctx context.Context, experimentID uuid.UUID) (*redisclient.RunStatus, error) {
	return nil, nil
}

func (noopStatusCache) Delete(ctx context.Context, experimentID uuid.UUID) error {
	return nil
}

func (noopStatusCache) Close() error { return nil }
