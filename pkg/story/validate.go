package story

import (
	"regexp"
	"sort"
)

var validIDRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

// IsValidID reports whether id is lowercase snake_case.
func IsValidID(id string) bool {
	return validIDRegex.MatchString(id)
}

// validate checks ID formats and cross references once every file is loaded.
// Scenes are visited in load order so the first problem reported is stable.
func (s *Store) validate(origins map[string]string) error {
	for _, id := range sortedKeys(s.characters) {
		if !IsValidID(id) {
			return loadErr(s.root, "character ID '%s' should be lowercase snake_case", id)
		}
	}
	for _, id := range sortedKeys(s.items) {
		if !IsValidID(id) {
			return loadErr(s.root, "item ID '%s' should be lowercase snake_case", id)
		}
	}
	for _, id := range sortedKeys(s.achievements) {
		if !IsValidID(id) {
			return loadErr(s.root, "achievement ID '%s' should be lowercase snake_case", id)
		}
	}
	for _, id := range sortedKeys(s.endings) {
		if !IsValidID(id) {
			return loadErr(s.root, "ending ID '%s' should be lowercase snake_case", id)
		}
	}

	for _, id := range s.sceneOrder {
		if err := s.validateScene(s.scenes[id], origins[id]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) validateScene(scene *Scene, path string) error {
	if !IsValidID(scene.ID) {
		return loadErr(path, "scene ID '%s' should be lowercase snake_case", scene.ID)
	}
	for flag := range scene.SetFlags {
		if !IsValidID(flag) {
			return loadErr(path, "scene %s: flag name '%s' should be lowercase snake_case", scene.ID, flag)
		}
	}

	for i, line := range scene.Dialogue {
		if line.Text == "" {
			return loadErr(path, "scene %s dialogue #%d: missing text", scene.ID, i)
		}
		if line.Speaker != "" && len(s.characters) > 0 {
			if _, ok := s.characters[line.Speaker]; !ok {
				return loadErr(path, "scene %s dialogue #%d: unknown speaker '%s'", scene.ID, i, line.Speaker)
			}
		}
	}

	seen := make(map[string]bool, len(scene.Choices))
	for _, choice := range scene.Choices {
		if seen[choice.ID] {
			return loadErr(path, "scene %s: duplicate choice id '%s'", scene.ID, choice.ID)
		}
		seen[choice.ID] = true

		if !IsValidID(choice.ID) {
			return loadErr(path, "scene %s: choice ID '%s' should be lowercase snake_case", scene.ID, choice.ID)
		}
		for stat := range choice.StatChanges {
			if !IsValidID(stat) {
				return loadErr(path, "scene %s choice %s: stat name '%s' should be lowercase snake_case", scene.ID, choice.ID, stat)
			}
		}
		if choice.NextScene != "" {
			if _, ok := s.scenes[choice.NextScene]; !ok {
				return loadErr(path, "scene %s choice %s: next_scene '%s' does not exist", scene.ID, choice.ID, choice.NextScene)
			}
		}
		if choice.Ending != "" {
			if choice.NextScene != "" {
				return loadErr(path, "scene %s choice %s: ending set on a choice that continues to '%s'", scene.ID, choice.ID, choice.NextScene)
			}
			if _, ok := s.endings[choice.Ending]; !ok && len(s.endings) > 0 {
				return loadErr(path, "scene %s choice %s: ending '%s' does not exist", scene.ID, choice.ID, choice.Ending)
			}
		}
		for itemID := range choice.InventoryChanges {
			if _, ok := s.items[itemID]; !ok && len(s.items) > 0 {
				return loadErr(path, "scene %s choice %s: unknown item '%s'", scene.ID, choice.ID, itemID)
			}
		}
		for npcID := range choice.RelationshipChanges {
			if _, ok := s.characters[npcID]; !ok && len(s.characters) > 0 {
				return loadErr(path, "scene %s choice %s: unknown character '%s'", scene.ID, choice.ID, npcID)
			}
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
