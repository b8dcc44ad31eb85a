// Package engine resolves player choices against the scene graph.
//
// Resolution is a pure transform: it consults the content store, works on a
// copy of the caller's state, and never performs I/O.
package engine

import (
	"errors"
	"fmt"

	"github.com/jwebster45206/novel-engine/pkg/conditionals"
	"github.com/jwebster45206/novel-engine/pkg/state"
	"github.com/jwebster45206/novel-engine/pkg/story"
)

var (
	ErrSceneNotFound = errors.New("scene not found")
	ErrInvalidChoice = errors.New("invalid choice")
	ErrChoiceLocked  = errors.New("choice is locked")
)

// SceneSource looks up scenes by ID. *story.Store implements it.
type SceneSource interface {
	GetScene(id string) (*story.Scene, error)
}

var _ SceneSource = (*story.Store)(nil)

// Result is the outcome of resolving one choice.
type Result struct {
	NextSceneID string           `json:"next_scene_id,omitempty"` // Empty when the story ended
	State       *state.GameState `json:"state"`
	Chapter     int              `json:"chapter"` // Chapter of the scene the choice was made in
	Ended       bool             `json:"ended"`
	EndingID    string           `json:"ending_id,omitempty"`
}

// ResolveChoice applies choiceID in sceneID to gs and returns the next scene
// and the updated state. gs is never modified; nil is treated as a new game.
func ResolveChoice(src SceneSource, sceneID, choiceID string, gs *state.GameState) (*Result, error) {
	scene, err := src.GetScene(sceneID)
	if err != nil {
		if errors.Is(err, story.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSceneNotFound, sceneID)
		}
		return nil, err
	}

	choice, ok := scene.Choice(choiceID)
	if !ok {
		return nil, fmt.Errorf("%w: %s in scene %s", ErrInvalidChoice, choiceID, sceneID)
	}

	if gs == nil {
		gs = state.NewGameState()
	}
	if !conditionals.Evaluate(choice.When, gs) {
		return nil, fmt.Errorf("%w: %s in scene %s", ErrChoiceLocked, choiceID, sceneID)
	}

	next := gs.Clone()
	for stat, delta := range choice.StatChanges {
		next.AddStat(stat, delta)
	}
	for npc, delta := range choice.RelationshipChanges {
		next.AddRelationship(npc, delta)
	}
	for itemID, delta := range choice.InventoryChanges {
		next.AdjustItem(itemID, delta)
	}
	next.SetFlags(scene.SetFlags)

	result := &Result{
		NextSceneID: choice.NextScene,
		State:       next,
		Chapter:     scene.Chapter,
	}

	if choice.IsEnding() {
		result.Ended = true
		result.EndingID = choice.Ending
		next.Ended = true
		next.EndingID = choice.Ending
		next.CurrentChapter = scene.Chapter
		return result, nil
	}

	next.CurrentSceneID = choice.NextScene
	next.CurrentChapter = scene.Chapter
	// A dangling reference is a content error caught at load; it never fails resolution.
	if target, err := src.GetScene(choice.NextScene); err == nil {
		next.CurrentChapter = target.Chapter
	}
	return result, nil
}

// AvailableChoices returns the choices in scene whose gate passes for gs,
// in authored order.
func AvailableChoices(scene *story.Scene, gs *state.GameState) []story.Choice {
	if gs == nil {
		gs = state.NewGameState()
	}
	out := make([]story.Choice, 0, len(scene.Choices))
	for _, c := range scene.Choices {
		if conditionals.Evaluate(c.When, gs) {
			out = append(out, c)
		}
	}
	return out
}
