package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RoomTracker marks rooms live in this process with an expiring key so
// operators (or other instances) can see which rooms are being played.
// RoomService calls MarkActive on every join and applied command, which
// pushes the expiry out, and MarkInactive on teardown.
type RoomTracker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRoomTracker(client *redis.Client, ttl time.Duration) *RoomTracker {
	return &RoomTracker{client: client, ttl: ttl}
}

func (t *RoomTracker) MarkActive(ctx context.Context, roomKey string) error {
	return t.client.Set(ctx, t.key(roomKey), "1", t.ttl).Err()
}

func (t *RoomTracker) MarkInactive(ctx context.Context, roomKey string) error {
	return t.client.Del(ctx, t.key(roomKey)).Err()
}

func (t *RoomTracker) key(roomKey string) string {
	return "quizroom:active:" + roomKey
}
