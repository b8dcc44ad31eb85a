package state

import (
	"errors"
	"maps"
	"sort"
)

// ErrItemUnavailable is returned when using an item the player does not hold.
var ErrItemUnavailable = errors.New("item not available")

// GameState is the complete mutable state of one player's playthrough.
// Absent keys read as zero values: stat 0, flag false, quantity 0, points 0.
type GameState struct {
	Stats                map[string]int  `json:"stats"`
	Flags                map[string]bool `json:"flags"`
	Inventory            map[string]int  `json:"inventory"`           // Item ID → quantity, always > 0
	Relationships        map[string]int  `json:"relationship_points"` // NPC ID → accumulated points
	UnlockedAchievements IDSet           `json:"unlocked_achievements"`
	CurrentSceneID       string          `json:"current_scene_id"`
	CurrentChapter       int             `json:"current_chapter"`
	Ended                bool            `json:"ended,omitempty"`     // Set once a choice without a next scene resolves
	EndingID             string          `json:"ending_id,omitempty"` // Ending reached, when the content names one
}

// NewGameState returns the canonical empty state.
func NewGameState() *GameState {
	return &GameState{
		Stats:                make(map[string]int),
		Flags:                make(map[string]bool),
		Inventory:            make(map[string]int),
		Relationships:        make(map[string]int),
		UnlockedAchievements: make(IDSet),
	}
}

// Clone returns a deep copy. A nil receiver yields a fresh empty state.
func (gs *GameState) Clone() *GameState {
	if gs == nil {
		return NewGameState()
	}
	clone := &GameState{
		Stats:                maps.Clone(gs.Stats),
		Flags:                maps.Clone(gs.Flags),
		Inventory:            maps.Clone(gs.Inventory),
		Relationships:        maps.Clone(gs.Relationships),
		UnlockedAchievements: gs.UnlockedAchievements.Clone(),
		CurrentSceneID:       gs.CurrentSceneID,
		CurrentChapter:       gs.CurrentChapter,
		Ended:                gs.Ended,
		EndingID:             gs.EndingID,
	}
	clone.normalize()
	return clone
}

// normalize replaces nil maps and drops non-positive inventory entries.
func (gs *GameState) normalize() {
	if gs.Stats == nil {
		gs.Stats = make(map[string]int)
	}
	if gs.Flags == nil {
		gs.Flags = make(map[string]bool)
	}
	if gs.Inventory == nil {
		gs.Inventory = make(map[string]int)
	}
	if gs.Relationships == nil {
		gs.Relationships = make(map[string]int)
	}
	if gs.UnlockedAchievements == nil {
		gs.UnlockedAchievements = make(IDSet)
	}
	for id, qty := range gs.Inventory {
		if qty <= 0 {
			delete(gs.Inventory, id)
		}
	}
}

// These getters satisfy conditionals.StateView.

func (gs *GameState) Stat(name string) int {
	return gs.Stats[name]
}

func (gs *GameState) Flag(name string) bool {
	return gs.Flags[name]
}

func (gs *GameState) Quantity(itemID string) int {
	return gs.Inventory[itemID]
}

func (gs *GameState) RelationshipPoints(npcID string) int {
	return gs.Relationships[npcID]
}

// AddStat adds delta to a stat, treating an absent stat as 0.
func (gs *GameState) AddStat(name string, delta int) {
	if gs.Stats == nil {
		gs.Stats = make(map[string]int)
	}
	gs.Stats[name] += delta
}

// AddRelationship adds delta to an NPC's relationship points.
func (gs *GameState) AddRelationship(npcID string, delta int) {
	if gs.Relationships == nil {
		gs.Relationships = make(map[string]int)
	}
	gs.Relationships[npcID] += delta
}

// SetFlags merges flags into the state; incoming values win.
func (gs *GameState) SetFlags(flags map[string]bool) {
	if len(flags) == 0 {
		return
	}
	if gs.Flags == nil {
		gs.Flags = make(map[string]bool)
	}
	maps.Copy(gs.Flags, flags)
}

// AdjustItem changes an item's quantity by delta. The result is clamped at 0
// and an entry reaching 0 is removed.
func (gs *GameState) AdjustItem(itemID string, delta int) {
	if gs.Inventory == nil {
		gs.Inventory = make(map[string]int)
	}
	qty := gs.Inventory[itemID] + delta
	if qty <= 0 {
		delete(gs.Inventory, itemID)
		return
	}
	gs.Inventory[itemID] = qty
}

// UseItem consumes one unit of an item.
func (gs *GameState) UseItem(itemID string) error {
	if gs.Inventory[itemID] <= 0 {
		return ErrItemUnavailable
	}
	gs.AdjustItem(itemID, -1)
	return nil
}

// ItemIDs returns held item IDs, sorted.
func (gs *GameState) ItemIDs() []string {
	ids := make([]string, 0, len(gs.Inventory))
	for id := range gs.Inventory {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
