// Package achievement evaluates stat-threshold achievements against a game state.
package achievement

import (
	"sort"

	"github.com/jwebster45206/novel-engine/pkg/state"
	"github.com/jwebster45206/novel-engine/pkg/story"
)

// Evaluate returns the IDs of every achievement whose rule the state
// satisfies, sorted. The result is computed from the stats alone; it does not
// consult gs.UnlockedAchievements.
func Evaluate(defs []story.AchievementDef, gs *state.GameState) []string {
	if gs == nil {
		gs = state.NewGameState()
	}
	unlocked := make([]string, 0, len(defs))
	for _, def := range defs {
		if def.Rule.Stat == "" {
			continue
		}
		if gs.Stat(def.Rule.Stat) >= def.Rule.Min {
			unlocked = append(unlocked, def.ID)
		}
	}
	sort.Strings(unlocked)
	return unlocked
}

// NewlyUnlocked returns the evaluated IDs not already in known, in input order.
func NewlyUnlocked(evaluated []string, known state.IDSet) []string {
	var fresh []string
	for _, id := range evaluated {
		if !known.Has(id) {
			fresh = append(fresh, id)
		}
	}
	return fresh
}

// Status is an achievement definition paired with whether the player has it.
type Status struct {
	story.AchievementDef
	Unlocked bool `json:"unlocked"`
}

// Statuses lists every definition with its unlock flag, in definition order.
func Statuses(defs []story.AchievementDef, unlocked state.IDSet) []Status {
	out := make([]Status, len(defs))
	for i, def := range defs {
		out[i] = Status{AchievementDef: def, Unlocked: unlocked.Has(def.ID)}
	}
	return out
}

// GalleryEntry is a CG paired with whether the player has unlocked it.
type GalleryEntry struct {
	story.CG
	Unlocked bool `json:"unlocked"`
}

// Gallery lists every CG in definition order. A CG unlocks when its flag is
// set in gs; one without a flag is always unlocked.
func Gallery(cgs []*story.CG, gs *state.GameState) []GalleryEntry {
	if gs == nil {
		gs = state.NewGameState()
	}
	out := make([]GalleryEntry, len(cgs))
	for i, cg := range cgs {
		out[i] = GalleryEntry{CG: *cg, Unlocked: cg.UnlockFlag == "" || gs.Flag(cg.UnlockFlag)}
	}
	return out
}
