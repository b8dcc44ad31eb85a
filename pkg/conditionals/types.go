package conditionals

// ChoiceWhen gates a choice on the player's current state.
// Every populated field must hold; an empty clause always passes.
type ChoiceWhen struct {
	Flags           map[string]bool `json:"flags,omitempty" yaml:"flags,omitempty"`                       // Flag must equal the given value (absent flag reads false)
	MinStats        map[string]int  `json:"min_stats,omitempty" yaml:"min_stats,omitempty"`               // Stat >= value
	MaxStats        map[string]int  `json:"max_stats,omitempty" yaml:"max_stats,omitempty"`               // Stat <= value
	Items           map[string]int  `json:"items,omitempty" yaml:"items,omitempty"`                       // Held quantity >= value
	MinRelationship map[string]int  `json:"min_relationship,omitempty" yaml:"min_relationship,omitempty"` // Relationship points >= value
}

// StateView provides the minimal interface needed to evaluate conditionals
// This avoids import cycles with the state package
type StateView interface {
	Stat(name string) int
	Flag(name string) bool
	Quantity(itemID string) int
	RelationshipPoints(npcID string) int
}

// IsEmpty reports whether the clause has no conditions.
func (w *ChoiceWhen) IsEmpty() bool {
	return w == nil || (len(w.Flags) == 0 &&
		len(w.MinStats) == 0 &&
		len(w.MaxStats) == 0 &&
		len(w.Items) == 0 &&
		len(w.MinRelationship) == 0)
}

// Evaluate checks if all conditions in a When clause are met.
// A nil or empty clause is always satisfied.
func Evaluate(when *ChoiceWhen, view StateView) bool {
	if when.IsEmpty() {
		return true
	}

	for name, want := range when.Flags {
		if view.Flag(name) != want {
			return false
		}
	}

	for name, min := range when.MinStats {
		if view.Stat(name) < min {
			return false
		}
	}

	for name, max := range when.MaxStats {
		if view.Stat(name) > max {
			return false
		}
	}

	for itemID, qty := range when.Items {
		if view.Quantity(itemID) < qty {
			return false
		}
	}

	for npcID, min := range when.MinRelationship {
		if view.RelationshipPoints(npcID) < min {
			return false
		}
	}

	return true
}
