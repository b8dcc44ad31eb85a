package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jwebster45206/novel-engine/pkg/state"
)

// Storage defines the persistence interface for player save slots.
// Story content is loaded from disk by the story package and is not stored here.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Save slot operations
	SaveSlot(ctx context.Context, save *state.Save) error
	// LoadSlot returns nil, nil when the slot has never been written
	LoadSlot(ctx context.Context, playerID uuid.UUID, slot int) (*state.Save, error)
	DeleteSlot(ctx context.Context, playerID uuid.UUID, slot int) error
	// ListSlots returns the player's saves ordered by slot number
	ListSlots(ctx context.Context, playerID uuid.UUID) ([]*state.Save, error)
}
