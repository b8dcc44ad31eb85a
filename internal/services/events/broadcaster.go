package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeSceneChanged        EventType = "scene.changed"
	EventTypeAchievementUnlocked EventType = "achievement.unlocked"
	EventTypeGameEnded           EventType = "game.ended"
	EventTypeSaveWritten         EventType = "save.written"
	EventTypeItemUsed            EventType = "item.used"
)

// Event represents a generic event structure
type Event struct {
	Type      EventType      `json:"type"`
	PlayerID  string         `json:"player_id"`
	Slot      int            `json:"slot"`
	RequestID string         `json:"request_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// NewEvent builds an event for a player's save slot, stamped with the current time
func NewEvent(eventType EventType, playerID uuid.UUID, slot int, data map[string]any) Event {
	return Event{
		Type:      eventType,
		PlayerID:  playerID.String(),
		Slot:      slot,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// Publisher delivers player events to whatever is listening.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Channel returns the Pub/Sub channel carrying a player's events
func Channel(playerID string) string {
	return fmt.Sprintf("player-events:%s", playerID)
}

// Broadcaster publishes events to Redis Pub/Sub
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

var _ Publisher = (*Broadcaster)(nil)

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Publish publishes an event to the player-specific channel
func (b *Broadcaster) Publish(ctx context.Context, event Event) error {
	channel := Channel(event.PlayerID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
		"request_id", event.RequestID,
	)

	return nil
}
