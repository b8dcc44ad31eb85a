// Package relationship maps accumulated relationship points to named tiers.
package relationship

import (
	"sort"

	"github.com/jwebster45206/novel-engine/pkg/state"
)

// Tier is a named relationship level.
type Tier string

const (
	Stranger     Tier = "Stranger"
	Acquaintance Tier = "Acquaintance"
	Friend       Tier = "Friend"
	Close        Tier = "Close"
	Love         Tier = "Love"
)

type level struct {
	min  int
	tier Tier
}

// levels is ordered by ascending threshold.
var levels = []level{
	{0, Stranger},
	{20, Acquaintance},
	{40, Friend},
	{60, Close},
	{80, Love},
}

// TierOf returns the tier with the highest threshold not above points.
// Negative points are Stranger.
func TierOf(points int) Tier {
	tier := Stranger
	for _, l := range levels {
		if points < l.min {
			break
		}
		tier = l.tier
	}
	return tier
}

// NextThreshold returns the points needed for the next tier above points,
// or false when points are already in the top tier.
func NextThreshold(points int) (int, bool) {
	for _, l := range levels {
		if points < l.min {
			return l.min, true
		}
	}
	return 0, false
}

// Standing is one NPC's relationship summary.
type Standing struct {
	NPCID      string `json:"npc_id"`
	Name       string `json:"name,omitempty"`
	Points     int    `json:"points"`
	Tier       Tier   `json:"tier"`
	ToNextTier int    `json:"to_next_tier,omitempty"` // 0 in the top tier
}

// Standings summarizes every NPC in the state, sorted by NPC ID.
// name resolves display names and may be nil.
func Standings(gs *state.GameState, name func(npcID string) string) []Standing {
	if gs == nil {
		return []Standing{}
	}
	ids := make([]string, 0, len(gs.Relationships))
	for id := range gs.Relationships {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Standing, 0, len(ids))
	for _, id := range ids {
		points := gs.Relationships[id]
		s := Standing{NPCID: id, Points: points, Tier: TierOf(points)}
		if name != nil {
			s.Name = name(id)
		}
		if next, ok := NextThreshold(points); ok {
			s.ToNextTier = next - points
		}
		out = append(out, s)
	}
	return out
}
