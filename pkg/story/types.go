package story

import "github.com/jwebster45206/novel-engine/pkg/conditionals"

// Scene is a single unit of narrative: dialogue followed by a set of choices.
type Scene struct {
	ID         string          `json:"id" yaml:"id"`
	Chapter    int             `json:"chapter" yaml:"chapter"`
	Title      string          `json:"title,omitempty" yaml:"title,omitempty"`
	Background string          `json:"background,omitempty" yaml:"background,omitempty"` // Background image key for the client
	Dialogue   []DialogueLine  `json:"dialogue" yaml:"dialogue"`
	Choices    []Choice        `json:"choices" yaml:"choices"`
	SetFlags   map[string]bool `json:"set_flags,omitempty" yaml:"set_flags,omitempty"` // Merged into player flags whenever a choice in this scene resolves
}

// Choice is a player-selectable option within a scene.
type Choice struct {
	ID                  string                   `json:"id" yaml:"id"`
	Text                string                   `json:"text,omitempty" yaml:"text,omitempty"`
	StatChanges         map[string]int           `json:"stat_changes,omitempty" yaml:"stat_changes,omitempty"`
	RelationshipChanges map[string]int           `json:"relationship_changes,omitempty" yaml:"relationship_changes,omitempty"` // NPC ID → point delta
	InventoryChanges    map[string]int           `json:"inventory_changes,omitempty" yaml:"inventory_changes,omitempty"`       // Item ID → quantity delta
	NextScene           string                   `json:"next_scene,omitempty" yaml:"next_scene,omitempty"`                     // Empty means the story ends here
	Ending              string                   `json:"ending,omitempty" yaml:"ending,omitempty"`                             // Ending reached when NextScene is empty
	When                *conditionals.ChoiceWhen `json:"when,omitempty" yaml:"when,omitempty"`
}

// IsEnding reports whether resolving the choice ends the story.
func (c *Choice) IsEnding() bool {
	return c.NextScene == ""
}

// Choice returns the choice with the given ID.
func (s *Scene) Choice(id string) (*Choice, bool) {
	for i := range s.Choices {
		if s.Choices[i].ID == id {
			return &s.Choices[i], true
		}
	}
	return nil, false
}

// Character is static reference data for a speaking character.
type Character struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Color       string            `json:"color,omitempty" yaml:"color,omitempty"`         // Name tag color, e.g. "#ff77aa"
	Portraits   map[string]string `json:"portraits,omitempty" yaml:"portraits,omitempty"` // Expression → image path
}

// Item is a catalogue entry used to enrich inventory entries.
// Any authored fields beyond name and description are kept in Attributes.
type Item struct {
	ID          string         `json:"id"`
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
}

// AchievementRule unlocks an achievement once a stat reaches a minimum.
type AchievementRule struct {
	Stat string `json:"stat" yaml:"stat"`
	Min  int    `json:"min" yaml:"min"`
}

// AchievementDef is a static achievement definition.
type AchievementDef struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Rule        AchievementRule `json:"rule"`
}

// CG is a gallery illustration. It is unlocked once UnlockFlag is set;
// an empty UnlockFlag means it is always shown.
type CG struct {
	ID         string `json:"id" yaml:"id"`
	Title      string `json:"title" yaml:"title"`
	Image      string `json:"image,omitempty" yaml:"image,omitempty"`
	UnlockFlag string `json:"unlock_flag,omitempty" yaml:"unlock_flag,omitempty"`
}

// Ending describes one of the story's conclusions.
type Ending struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Kind        string `json:"kind,omitempty" yaml:"kind,omitempty"` // e.g. "good", "normal", "bad"
}
