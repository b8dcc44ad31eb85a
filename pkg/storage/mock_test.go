package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jwebster45206/novel-engine/pkg/state"
)

func newTestSave(t *testing.T, player uuid.UUID, slot int, sceneID string) *state.Save {
	t.Helper()
	gs := state.NewGameState()
	gs.CurrentSceneID = sceneID
	gs.CurrentChapter = 1
	save, err := state.NewSave(player, slot, gs)
	if err != nil {
		t.Fatalf("Failed to build save: %v", err)
	}
	return save
}

func TestMockStorage_SaveAndLoadSlot(t *testing.T) {
	mockStorage := NewMockStorage()
	ctx := context.Background()
	player := uuid.New()

	if err := mockStorage.SaveSlot(ctx, newTestSave(t, player, 1, "ch1_scene_2")); err != nil {
		t.Fatalf("Failed to save slot: %v", err)
	}

	loaded, err := mockStorage.LoadSlot(ctx, player, 1)
	if err != nil {
		t.Fatalf("Failed to load slot: %v", err)
	}
	if loaded == nil {
		t.Fatal("Expected non-nil save")
	}
	if loaded.SceneID != "ch1_scene_2" {
		t.Errorf("Expected scene 'ch1_scene_2', got %q", loaded.SceneID)
	}
	if loaded.UpdatedAt.IsZero() {
		t.Error("Expected UpdatedAt to be set")
	}
}

func TestMockStorage_LoadEmptySlot(t *testing.T) {
	mockStorage := NewMockStorage()

	loaded, err := mockStorage.LoadSlot(context.Background(), uuid.New(), 3)
	if err != nil {
		t.Fatalf("Expected no error for empty slot, got: %v", err)
	}
	if loaded != nil {
		t.Error("Expected nil for empty slot")
	}
}

func TestMockStorage_ListAndDelete(t *testing.T) {
	mockStorage := NewMockStorage()
	ctx := context.Background()
	player := uuid.New()
	other := uuid.New()

	for _, slot := range []int{3, 1, 2} {
		if err := mockStorage.SaveSlot(ctx, newTestSave(t, player, slot, "ch1_scene_1")); err != nil {
			t.Fatalf("Failed to save slot %d: %v", slot, err)
		}
	}
	if err := mockStorage.SaveSlot(ctx, newTestSave(t, other, 1, "ch1_scene_1")); err != nil {
		t.Fatalf("Failed to save other player's slot: %v", err)
	}

	saves, err := mockStorage.ListSlots(ctx, player)
	if err != nil {
		t.Fatalf("Failed to list slots: %v", err)
	}
	if len(saves) != 3 {
		t.Fatalf("Expected 3 saves, got %d", len(saves))
	}
	for i, save := range saves {
		if save.Slot != i+1 {
			t.Errorf("Expected slot %d at index %d, got %d", i+1, i, save.Slot)
		}
	}

	if err := mockStorage.DeleteSlot(ctx, player, 2); err != nil {
		t.Fatalf("Failed to delete slot: %v", err)
	}
	saves, _ = mockStorage.ListSlots(ctx, player)
	if len(saves) != 2 {
		t.Errorf("Expected 2 saves after delete, got %d", len(saves))
	}
}

func TestMockStorage_Errors(t *testing.T) {
	mockStorage := NewMockStorage()
	ctx := context.Background()

	if err := mockStorage.SaveSlot(ctx, nil); err == nil {
		t.Error("Expected error saving nil")
	}

	boom := errors.New("disk full")
	mockStorage.SetSaveError(boom)
	if err := mockStorage.SaveSlot(ctx, newTestSave(t, uuid.New(), 1, "ch1_scene_1")); !errors.Is(err, boom) {
		t.Errorf("Expected save error, got %v", err)
	}

	mockStorage.SetPingError(boom)
	if err := mockStorage.Ping(ctx); !errors.Is(err, boom) {
		t.Errorf("Expected ping error, got %v", err)
	}
	mockStorage.SetPingSuccess()
	if err := mockStorage.Ping(ctx); err != nil {
		t.Errorf("Expected ping success, got %v", err)
	}
}
