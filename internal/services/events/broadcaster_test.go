package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestBroadcaster_Publish(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	playerID := uuid.New()
	sub := client.Subscribe(ctx, Channel(playerID.String()))
	defer sub.Close()
	_, err := sub.Receive(ctx) // subscription confirmation
	require.NoError(t, err)

	b := NewBroadcaster(client, testLogger())
	event := NewEvent(EventTypeAchievementUnlocked, playerID, 2, map[string]any{"achievement_id": "first_friend"})
	event.RequestID = "req-1"
	require.NoError(t, b.Publish(ctx, event))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "player-events:"+playerID.String(), msg.Channel)

	var got Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, EventTypeAchievementUnlocked, got.Type)
	assert.Equal(t, playerID.String(), got.PlayerID)
	assert.Equal(t, 2, got.Slot)
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, "first_friend", got.Data["achievement_id"])
}

func TestBroadcaster_PublishFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	b := NewBroadcaster(client, testLogger())
	err := b.Publish(context.Background(), NewEvent(EventTypeSaveWritten, uuid.New(), 1, nil))
	assert.Error(t, err)
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	ctx := context.Background()
	player := uuid.New()

	require.NoError(t, r.Publish(ctx, NewEvent(EventTypeSceneChanged, player, 1, nil)))
	require.NoError(t, r.Publish(ctx, NewEvent(EventTypeAchievementUnlocked, player, 1, nil)))
	require.NoError(t, r.Publish(ctx, NewEvent(EventTypeSceneChanged, player, 1, nil)))

	assert.Len(t, r.Events(), 3)
	assert.Len(t, r.OfType(EventTypeSceneChanged), 2)
	assert.Empty(t, r.OfType(EventTypeGameEnded))

	r.Reset()
	assert.Empty(t, r.Events())
}

func TestLogPublisher(t *testing.T) {
	p := NewLogPublisher(testLogger())
	assert.NoError(t, p.Publish(context.Background(), NewEvent(EventTypeItemUsed, uuid.New(), 1, map[string]any{"item_id": "umbrella"})))
}
