// Package presence keeps advisory per-auction viewer counts in redis.
// The counts feed the auction room UI only; they carry no authority over
// bidding and callers must treat failures as noise.
package presence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Tracker struct {
	client *redis.Client
}

func NewTracker(client *redis.Client) *Tracker {
	return &Tracker{client: client}
}

func key(stuffID uuid.UUID) string {
	return fmt.Sprintf("auction:%s:participants", stuffID)
}

// Push increments the viewer count for an auction room.
func (t *Tracker) Push(ctx context.Context, stuffID uuid.UUID) (int64, error) {
	return t.client.Incr(ctx, key(stuffID)).Result()
}

// Pop decrements the viewer count, clamping at zero.
func (t *Tracker) Pop(ctx context.Context, stuffID uuid.UUID) (int64, error) {
	count, err := t.client.Decr(ctx, key(stuffID)).Result()
	if err != nil {
		return 0, err
	}
	if count < 0 {
		if err := t.client.Set(ctx, key(stuffID), 0, 0).Err(); err != nil {
			return 0, err
		}
		count = 0
	}
	return count, nil
}

// Count reads the current viewer count.
func (t *Tracker) Count(ctx context.Context, stuffID uuid.UUID) (int64, error) {
	count, err := t.client.Get(ctx, key(stuffID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return count, err
}
