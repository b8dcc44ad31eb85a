package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/novel-engine/pkg/state"
	"github.com/jwebster45206/novel-engine/pkg/storage"
)

// RedisStorage implements the Storage interface using Redis.
// Each slot is a hash at save:{player}:{slot}; saves:{player} indexes the
// player's written slot numbers.
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
}

// Ensure RedisStorage implements Storage interface
var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance. redisURL is either a
// redis:// URL or a bare host:port address.
func NewRedisStorage(redisURL string, logger *slog.Logger) (*RedisStorage, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}

	return &RedisStorage{
		client: redis.NewClient(opt),
		logger: logger,
	}, nil
}

// Client returns the underlying Redis client so other services can share the connection
func (r *RedisStorage) Client() *redis.Client {
	return r.client
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

func slotKey(playerID uuid.UUID, slot int) string {
	return fmt.Sprintf("save:%s:%d", playerID, slot)
}

func indexKey(playerID uuid.UUID) string {
	return "saves:" + playerID.String()
}

// Save slot operations

func (r *RedisStorage) SaveSlot(ctx context.Context, save *state.Save) error {
	if save == nil {
		return fmt.Errorf("save cannot be nil")
	}
	save.UpdatedAt = time.Now().UTC()

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, slotKey(save.PlayerID, save.Slot),
			"chapter", save.Chapter,
			"scene_id", save.SceneID,
			"payload", save.Payload,
			"updated_at", save.UpdatedAt.Format(time.RFC3339Nano),
		)
		pipe.SAdd(ctx, indexKey(save.PlayerID), save.Slot)
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to save slot", "player_id", save.PlayerID, "slot", save.Slot, "error", err)
		return fmt.Errorf("failed to save slot: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadSlot(ctx context.Context, playerID uuid.UUID, slot int) (*state.Save, error) {
	fields, err := r.client.HGetAll(ctx, slotKey(playerID, slot)).Result()
	if err != nil {
		r.logger.Error("Failed to load slot", "player_id", playerID, "slot", slot, "error", err)
		return nil, fmt.Errorf("failed to load slot: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil // Return nil for not found
	}
	return saveFromHash(playerID, slot, fields)
}

func (r *RedisStorage) DeleteSlot(ctx context.Context, playerID uuid.UUID, slot int) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, slotKey(playerID, slot))
		pipe.SRem(ctx, indexKey(playerID), slot)
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to delete slot", "player_id", playerID, "slot", slot, "error", err)
		return fmt.Errorf("failed to delete slot: %w", err)
	}
	return nil
}

func (r *RedisStorage) ListSlots(ctx context.Context, playerID uuid.UUID) ([]*state.Save, error) {
	members, err := r.client.SMembers(ctx, indexKey(playerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}

	slots := make([]int, 0, len(members))
	for _, m := range members {
		slot, err := strconv.Atoi(m)
		if err != nil {
			r.logger.Warn("Ignoring malformed slot index entry", "player_id", playerID, "member", m)
			continue
		}
		slots = append(slots, slot)
	}
	sort.Ints(slots)

	cmds := make([]*redis.MapStringStringCmd, len(slots))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, slot := range slots {
			cmds[i] = pipe.HGetAll(ctx, slotKey(playerID, slot))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}

	saves := make([]*state.Save, 0, len(slots))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			// Index entry outlived its hash
			continue
		}
		save, err := saveFromHash(playerID, slots[i], fields)
		if err != nil {
			return nil, err
		}
		saves = append(saves, save)
	}
	return saves, nil
}

func saveFromHash(playerID uuid.UUID, slot int, fields map[string]string) (*state.Save, error) {
	save := &state.Save{
		PlayerID: playerID,
		Slot:     slot,
		SceneID:  fields["scene_id"],
		Payload:  fields["payload"],
	}
	if v := fields["chapter"]; v != "" {
		chapter, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("slot %d: malformed chapter %q: %w", slot, v, err)
		}
		save.Chapter = chapter
	}
	if v := fields["updated_at"]; v != "" {
		updatedAt, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("slot %d: malformed updated_at %q: %w", slot, v, err)
		}
		save.UpdatedAt = updatedAt
	}
	return save, nil
}
