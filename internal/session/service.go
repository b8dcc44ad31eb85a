// Package session runs player requests against saved progress: it loads a
// save slot, applies the core engine, persists the result, and publishes
// events about what changed.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	applog "github.com/jwebster45206/novel-engine/internal/logger"
	"github.com/jwebster45206/novel-engine/internal/services/events"
	"github.com/jwebster45206/novel-engine/pkg/achievement"
	"github.com/jwebster45206/novel-engine/pkg/engine"
	"github.com/jwebster45206/novel-engine/pkg/inventory"
	"github.com/jwebster45206/novel-engine/pkg/relationship"
	"github.com/jwebster45206/novel-engine/pkg/state"
	"github.com/jwebster45206/novel-engine/pkg/storage"
	"github.com/jwebster45206/novel-engine/pkg/story"
)

var (
	ErrSlotEmpty    = errors.New("save slot is empty")
	ErrInvalidSlot  = errors.New("invalid save slot")
	ErrGameEnded    = errors.New("story has already ended")
	ErrInvalidState = errors.New("invalid game state")
)

// Outcome is the result of one resolved choice, with everything a client
// needs to render what comes next.
type Outcome struct {
	*engine.Result
	NewAchievements []string      `json:"new_achievements"`
	Scene           *story.Scene  `json:"scene,omitempty"`  // Next scene; nil when the story ended
	Ending          *story.Ending `json:"ending,omitempty"` // Set when the story ended on a catalogued ending
}

type slotKey struct {
	player uuid.UUID
	slot   int
}

// Service serializes requests per save slot. Different slots proceed in parallel.
type Service struct {
	content   *story.Store
	storage   storage.Storage
	publisher events.Publisher
	logger    *slog.Logger
	maxSlots  int

	mu    sync.Mutex
	locks map[slotKey]*sync.Mutex
}

func NewService(content *story.Store, store storage.Storage, publisher events.Publisher, maxSlots int, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.NewLogPublisher(logger)
	}
	return &Service{
		content:   content,
		storage:   store,
		publisher: publisher,
		logger:    logger,
		maxSlots:  maxSlots,
		locks:     make(map[slotKey]*sync.Mutex),
	}
}

// Content returns the story the service plays.
func (s *Service) Content() *story.Store {
	return s.content
}

// MaxSlots returns the highest valid slot number.
func (s *Service) MaxSlots() int {
	return s.maxSlots
}

func (s *Service) lock(player uuid.UUID, slot int) func() {
	key := slotKey{player, slot}
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (s *Service) checkSlot(slot int) error {
	if slot < 1 || slot > s.maxSlots {
		return fmt.Errorf("%w: %d (must be between 1 and %d)", ErrInvalidSlot, slot, s.maxSlots)
	}
	return nil
}

// newState returns a fresh state positioned at the opening scene.
func (s *Service) newState() *state.GameState {
	gs := state.NewGameState()
	opening := s.content.OpeningScene()
	gs.CurrentSceneID = opening.ID
	gs.CurrentChapter = opening.Chapter
	return gs
}

// load reads a slot. Missing slots yield ErrSlotEmpty.
func (s *Service) load(ctx context.Context, player uuid.UUID, slot int) (*state.GameState, error) {
	save, err := s.storage.LoadSlot(ctx, player, slot)
	if err != nil {
		return nil, err
	}
	if save == nil {
		return nil, fmt.Errorf("%w: player %s slot %d", ErrSlotEmpty, player, slot)
	}
	gs, err := save.State()
	if err != nil {
		return nil, fmt.Errorf("slot %d: %w", slot, err)
	}
	if gs.CurrentSceneID == "" && !gs.Ended {
		opening := s.content.OpeningScene()
		gs.CurrentSceneID = opening.ID
		gs.CurrentChapter = opening.Chapter
	}
	return gs, nil
}

func (s *Service) write(ctx context.Context, player uuid.UUID, slot int, gs *state.GameState) (*state.Save, error) {
	save, err := state.NewSave(player, slot, gs)
	if err != nil {
		return nil, err
	}
	if err := s.storage.SaveSlot(ctx, save); err != nil {
		return nil, err
	}
	s.publish(ctx, events.NewEvent(events.EventTypeSaveWritten, player, slot, map[string]any{
		"scene_id": save.SceneID,
		"chapter":  save.Chapter,
	}))
	return save, nil
}

// publish delivers an event. Delivery failures are logged, never returned.
func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		applog.WithError(s.logger, err).Warn("Failed to publish event", "event_type", event.Type, "player_id", event.PlayerID)
	}
}

// validate checks that a caller-supplied state points into the loaded story.
func (s *Service) validate(gs *state.GameState) error {
	if gs.CurrentSceneID != "" {
		if _, err := s.content.GetScene(gs.CurrentSceneID); err != nil {
			return fmt.Errorf("%w: unknown scene %q", ErrInvalidState, gs.CurrentSceneID)
		}
	}
	if gs.EndingID != "" {
		if _, err := s.content.GetEnding(gs.EndingID); err != nil {
			return fmt.Errorf("%w: unknown ending %q", ErrInvalidState, gs.EndingID)
		}
	}
	return nil
}

// NewGame starts a new playthrough in slot, replacing whatever was there.
func (s *Service) NewGame(ctx context.Context, player uuid.UUID, slot int) (*state.Save, error) {
	if err := s.checkSlot(slot); err != nil {
		return nil, err
	}
	unlock := s.lock(player, slot)
	defer unlock()

	gs := s.newState()
	save, err := s.write(ctx, player, slot, gs)
	if err != nil {
		return nil, err
	}
	s.logger.Info("New game started", "player_id", player, "slot", slot, "scene_id", gs.CurrentSceneID)
	return save, nil
}

// Load returns the state stored in slot.
func (s *Service) Load(ctx context.Context, player uuid.UUID, slot int) (*state.GameState, error) {
	if err := s.checkSlot(slot); err != nil {
		return nil, err
	}
	return s.load(ctx, player, slot)
}

// Save overwrites slot with gs after checking it references known content.
func (s *Service) Save(ctx context.Context, player uuid.UUID, slot int, gs *state.GameState) (*state.Save, error) {
	if err := s.checkSlot(slot); err != nil {
		return nil, err
	}
	gs = gs.Clone()
	if err := s.validate(gs); err != nil {
		return nil, err
	}
	if gs.CurrentSceneID == "" && !gs.Ended {
		opening := s.content.OpeningScene()
		gs.CurrentSceneID = opening.ID
		gs.CurrentChapter = opening.Chapter
	}

	unlock := s.lock(player, slot)
	defer unlock()
	return s.write(ctx, player, slot, gs)
}

// Delete clears slot. Deleting an empty slot is not an error.
func (s *Service) Delete(ctx context.Context, player uuid.UUID, slot int) error {
	if err := s.checkSlot(slot); err != nil {
		return err
	}
	unlock := s.lock(player, slot)
	defer unlock()
	return s.storage.DeleteSlot(ctx, player, slot)
}

// List returns every written slot for player.
func (s *Service) List(ctx context.Context, player uuid.UUID) ([]*state.Save, error) {
	return s.storage.ListSlots(ctx, player)
}

// Export returns the encoded state of slot.
func (s *Service) Export(ctx context.Context, player uuid.UUID, slot int) (string, error) {
	gs, err := s.Load(ctx, player, slot)
	if err != nil {
		return "", err
	}
	return state.Encode(gs)
}

// Import decodes payload and stores it in slot.
func (s *Service) Import(ctx context.Context, player uuid.UUID, slot int, payload string) (*state.Save, error) {
	gs, err := state.Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	return s.Save(ctx, player, slot, gs)
}

// Apply resolves a choice against a caller-held state without touching
// storage. Newly met achievements are merged into the returned state.
func (s *Service) Apply(sceneID, choiceID string, gs *state.GameState) (*Outcome, error) {
	return s.resolve(sceneID, choiceID, gs)
}

func (s *Service) resolve(sceneID, choiceID string, gs *state.GameState) (*Outcome, error) {
	result, err := engine.ResolveChoice(s.content, sceneID, choiceID, gs)
	if err != nil {
		return nil, err
	}

	evaluated := achievement.Evaluate(s.content.ListAchievements(), result.State)
	fresh := achievement.NewlyUnlocked(evaluated, result.State.UnlockedAchievements)
	result.State.UnlockedAchievements.Add(fresh...)

	out := &Outcome{Result: result, NewAchievements: fresh}
	if out.NewAchievements == nil {
		out.NewAchievements = []string{}
	}
	if result.Ended {
		if result.EndingID != "" {
			if ending, err := s.content.GetEnding(result.EndingID); err == nil {
				out.Ending = ending
			}
		}
	} else if next, err := s.content.GetScene(result.NextSceneID); err == nil {
		out.Scene = next
	}
	return out, nil
}

// Choose resolves choiceID at the slot's current scene and saves the result.
// An empty slot plays from the opening scene.
func (s *Service) Choose(ctx context.Context, player uuid.UUID, slot int, choiceID string) (*Outcome, error) {
	if err := s.checkSlot(slot); err != nil {
		return nil, err
	}
	unlock := s.lock(player, slot)
	defer unlock()

	gs, err := s.load(ctx, player, slot)
	if errors.Is(err, ErrSlotEmpty) {
		gs, err = s.newState(), nil
	}
	if err != nil {
		return nil, err
	}
	if gs.Ended {
		return nil, fmt.Errorf("%w: ending %q", ErrGameEnded, gs.EndingID)
	}

	sceneID := gs.CurrentSceneID
	out, err := s.resolve(sceneID, choiceID, gs)
	if err != nil {
		return nil, err
	}

	if _, err := s.write(ctx, player, slot, out.State); err != nil {
		return nil, err
	}

	if out.Ended {
		s.publish(ctx, events.NewEvent(events.EventTypeGameEnded, player, slot, map[string]any{
			"scene_id":  sceneID,
			"ending_id": out.EndingID,
		}))
	} else {
		s.publish(ctx, events.NewEvent(events.EventTypeSceneChanged, player, slot, map[string]any{
			"from_scene_id": sceneID,
			"scene_id":      out.NextSceneID,
			"chapter":       out.State.CurrentChapter,
		}))
	}
	for _, id := range out.NewAchievements {
		s.publish(ctx, events.NewEvent(events.EventTypeAchievementUnlocked, player, slot, map[string]any{
			"achievement_id": id,
		}))
	}

	s.logger.Debug("Choice resolved",
		"player_id", player,
		"slot", slot,
		"scene_id", sceneID,
		"choice_id", choiceID,
		"next_scene_id", out.NextSceneID,
		"ended", out.Ended)
	return out, nil
}

// UseItem consumes one unit of itemID from the slot's inventory.
func (s *Service) UseItem(ctx context.Context, player uuid.UUID, slot int, itemID string) (*state.GameState, error) {
	if err := s.checkSlot(slot); err != nil {
		return nil, err
	}
	unlock := s.lock(player, slot)
	defer unlock()

	gs, err := s.load(ctx, player, slot)
	if err != nil {
		return nil, err
	}
	if err := gs.UseItem(itemID); err != nil {
		return nil, fmt.Errorf("%w: %s", err, itemID)
	}
	if _, err := s.write(ctx, player, slot, gs); err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewEvent(events.EventTypeItemUsed, player, slot, map[string]any{
		"item_id":   itemID,
		"remaining": gs.Quantity(itemID),
	}))
	return gs, nil
}

// Achievements lists every achievement with the slot's unlock status.
func (s *Service) Achievements(ctx context.Context, player uuid.UUID, slot int) ([]achievement.Status, error) {
	gs, err := s.Load(ctx, player, slot)
	if err != nil {
		return nil, err
	}
	return achievement.Statuses(s.content.ListAchievements(), gs.UnlockedAchievements), nil
}

// Gallery lists every CG with the slot's unlock status.
func (s *Service) Gallery(ctx context.Context, player uuid.UUID, slot int) ([]achievement.GalleryEntry, error) {
	gs, err := s.Load(ctx, player, slot)
	if err != nil {
		return nil, err
	}
	return achievement.Gallery(s.content.ListGallery(), gs), nil
}

// Inventory returns the slot's items merged with catalogue details.
func (s *Service) Inventory(ctx context.Context, player uuid.UUID, slot int) ([]inventory.Enriched, error) {
	gs, err := s.Load(ctx, player, slot)
	if err != nil {
		return nil, err
	}
	return inventory.Enrich(s.content, inventory.Entries(gs)), nil
}

// Relationships returns the slot's standing with each character it has met.
func (s *Service) Relationships(ctx context.Context, player uuid.UUID, slot int) ([]relationship.Standing, error) {
	gs, err := s.Load(ctx, player, slot)
	if err != nil {
		return nil, err
	}
	return relationship.Standings(gs, s.content.SpeakerName), nil
}
