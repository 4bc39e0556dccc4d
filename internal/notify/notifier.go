// Package notify delivers realtime notifications over redis pub/sub and
// persists a copy of each one. Delivery is best-effort: failures are logged
// by callers and never abort the operation that raised the notification.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"fxchange/internal/models"
	"fxchange/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ModChannel is the shared receiver key moderators subscribe to.
const ModChannel = "moderators"

// Input describes one notification fan-out request.
type Input struct {
	Content      string      `json:"content"`
	ActorID      uuid.UUID   `json:"actor_id"`
	TargetID     string      `json:"target_id"`
	Type         string      `json:"type"` // stuff | transaction | common
	Receivers    []uuid.UUID `json:"receivers"`
	ForModerator bool        `json:"for_moderator"`
}

// Dispatcher publishes notifications to per-user redis channels keyed
// "{type}:{userID}" and writes the Notification row.
type Dispatcher struct {
	client *redis.Client
	repo   *repository.Repository
}

func NewDispatcher(client *redis.Client, repo *repository.Repository) *Dispatcher {
	return &Dispatcher{client: client, repo: repo}
}

// Notify persists the notification and publishes it to every receiver's
// channel, plus the moderator broadcast channel when requested.
func (d *Dispatcher) Notify(ctx context.Context, input Input) error {
	receivers := make([]string, 0, len(input.Receivers))
	for _, r := range input.Receivers {
		receivers = append(receivers, r.String())
	}

	record := &models.Notification{
		Content:   input.Content,
		ActorID:   input.ActorID,
		TargetID:  input.TargetID,
		Type:      input.Type,
		Receivers: strings.Join(receivers, ","),
		ForMod:    input.ForModerator,
	}
	if err := d.repo.CreateNotification(ctx, record); err != nil {
		return fmt.Errorf("failed to persist notification: %w", err)
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	channels := make([]string, 0, len(receivers)+1)
	for _, r := range receivers {
		channels = append(channels, input.Type+":"+r)
	}
	if input.ForModerator {
		channels = append(channels, input.Type+":"+ModChannel)
	}

	for _, channel := range channels {
		if err := d.client.Publish(ctx, channel, payload).Err(); err != nil {
			return fmt.Errorf("failed to publish to %s: %w", channel, err)
		}
	}
	return nil
}
