package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/novel-engine/pkg/state"
)

type slotKey struct {
	player uuid.UUID
	slot   int
}

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu        sync.RWMutex
	saves     map[slotKey]state.Save
	pingError error
	saveError error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		saves: make(map[slotKey]state.Save),
	}
}

// SetPingSuccess configures the mock to succeed on ping
func (m *MockStorage) SetPingSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = nil
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError configures the mock to fail every SaveSlot call; nil clears it
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

// SaveSlot mocks writing a save slot. The record is copied.
func (m *MockStorage) SaveSlot(ctx context.Context, save *state.Save) error {
	if save == nil {
		return errors.New("save cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	stored := *save
	stored.UpdatedAt = time.Now().UTC()
	m.saves[slotKey{save.PlayerID, save.Slot}] = stored
	save.UpdatedAt = stored.UpdatedAt
	return nil
}

// LoadSlot mocks reading a save slot
func (m *MockStorage) LoadSlot(ctx context.Context, playerID uuid.UUID, slot int) (*state.Save, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	save, exists := m.saves[slotKey{playerID, slot}]
	if !exists {
		return nil, nil // Return nil for not found
	}
	return &save, nil
}

// DeleteSlot mocks deleting a save slot
func (m *MockStorage) DeleteSlot(ctx context.Context, playerID uuid.UUID, slot int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.saves, slotKey{playerID, slot})
	return nil
}

// ListSlots mocks listing a player's saves
func (m *MockStorage) ListSlots(ctx context.Context, playerID uuid.UUID) ([]*state.Save, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	saves := []*state.Save{}
	for key, save := range m.saves {
		if key.player == playerID {
			s := save
			saves = append(saves, &s)
		}
	}
	sort.Slice(saves, func(i, j int) bool { return saves[i].Slot < saves[j].Slot })
	return saves, nil
}
