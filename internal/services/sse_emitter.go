package services

import (
	"context"

	redisclient "github.com/synthsense/synthsense-backend/internal/clients/redis"
	"github.com/synthsense/synthsense-backend/internal/sse"
)

type SSEEmitter interface {
	Emit(ctx context.Context, msg sse.SSEMessage)
}

type HubEmitter struct{ Hub *sse.SSEHub }

func (e *HubEmitter) Emit(ctx context.Context, msg sse.SSEMessage) {
	e.Hub.Broadcast(msg)
}

// RedisEmitter publishes to the shared bus; the local hub receives the
// message through the forwarder like every other replica.
type RedisEmitter struct{ Bus redisclient.SSEBus }

func (e *RedisEmitter) Emit(ctx context.Context, msg sse.SSEMessage) {
	_ = e.Bus.Publish(ctx, msg)
}
