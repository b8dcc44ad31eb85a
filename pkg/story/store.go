// Package story loads authored visual-novel content (scenes, characters,
// items, achievements, endings and gallery CGs) into a read-only, indexed Store.
package story

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Store is the in-memory index of all authored content.
// It is never modified after Load returns, so it is safe for concurrent use.
// Values returned by its accessors are shared and must be treated as read-only.
type Store struct {
	root         string
	scenes       map[string]*Scene
	sceneOrder   []string // Load order; the first entry is the opening scene
	characters   map[string]*Character
	items        map[string]*Item
	achievements map[string]AchievementDef
	endings      map[string]*Ending
	gallery      map[string]*CG
}

// Load parses every content file under root and builds the scene index.
// It returns a *ContentLoadError for malformed or inconsistent content and a
// *DuplicateSceneIDError when two scenes share an ID.
func Load(root string) (*Store, error) {
	s := &Store{
		root:         root,
		scenes:       make(map[string]*Scene),
		characters:   make(map[string]*Character),
		items:        make(map[string]*Item),
		achievements: make(map[string]AchievementDef),
		endings:      make(map[string]*Ending),
		gallery:      make(map[string]*CG),
	}

	var err error
	if path := findCatalog(root, charactersFile); path != "" {
		if s.characters, err = decodeCharacters(path); err != nil {
			return nil, err
		}
	}
	if path := findCatalog(root, itemsFile); path != "" {
		if s.items, err = decodeItems(path); err != nil {
			return nil, err
		}
	}
	if path := findCatalog(root, achievementFile); path != "" {
		if s.achievements, err = decodeAchievements(path); err != nil {
			return nil, err
		}
	}
	if path := findCatalog(root, endingsFile); path != "" {
		if s.endings, err = decodeEndings(path); err != nil {
			return nil, err
		}
	}

	if path := findCatalog(root, galleryFile); path != "" {
		if s.gallery, err = decodeGallery(path); err != nil {
			return nil, err
		}
	}

	files, err := chapterFiles(root)
	if err != nil {
		return nil, err
	}

	origins := make(map[string]string) // scene ID → file it came from
	for _, path := range files {
		var chapter chapterRecord
		if err := decodeFile(path, &chapter, true); err != nil {
			return nil, err
		}
		if chapter.Scenes == nil {
			return nil, loadErr(path, "missing required field 'scenes'")
		}

		for i, record := range *chapter.Scenes {
			scene, err := record.toScene(path, i)
			if err != nil {
				return nil, err
			}
			if first, exists := origins[scene.ID]; exists {
				return nil, &DuplicateSceneIDError{SceneID: scene.ID, FirstPath: first, SecondPath: path}
			}
			origins[scene.ID] = path
			s.scenes[scene.ID] = scene
			s.sceneOrder = append(s.sceneOrder, scene.ID)
		}
	}

	if len(s.sceneOrder) == 0 {
		return nil, loadErr(root, "content has no scenes")
	}

	if err := s.validate(origins); err != nil {
		return nil, err
	}

	return s, nil
}

// Root returns the directory the store was loaded from.
func (s *Store) Root() string {
	return s.root
}

// GetScene returns the scene with the given ID.
func (s *Store) GetScene(id string) (*Scene, error) {
	scene, ok := s.scenes[id]
	if !ok {
		return nil, fmt.Errorf("scene %q: %w", id, ErrNotFound)
	}
	return scene, nil
}

// OpeningScene returns the first scene of the first chapter file.
func (s *Store) OpeningScene() *Scene {
	return s.scenes[s.sceneOrder[0]]
}

// SceneIDs returns all scene IDs in load order.
func (s *Store) SceneIDs() []string {
	return append([]string(nil), s.sceneOrder...)
}

// Chapters returns the distinct chapter numbers, ascending.
func (s *Store) Chapters() []int {
	seen := make(map[int]bool)
	var chapters []int
	for _, scene := range s.scenes {
		if !seen[scene.Chapter] {
			seen[scene.Chapter] = true
			chapters = append(chapters, scene.Chapter)
		}
	}
	sort.Ints(chapters)
	return chapters
}

// ListAchievements returns every achievement definition, sorted by ID.
func (s *Store) ListAchievements() []AchievementDef {
	defs := make([]AchievementDef, 0, len(s.achievements))
	for _, def := range s.achievements {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs
}

// GetItem returns the catalogue entry for an item.
func (s *Store) GetItem(id string) (*Item, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("item %q: %w", id, ErrNotFound)
	}
	return item, nil
}

// ItemCount returns the number of catalogued items.
func (s *Store) ItemCount() int {
	return len(s.items)
}

// GetCharacter returns the character with the given ID.
func (s *Store) GetCharacter(id string) (*Character, error) {
	c, ok := s.characters[id]
	if !ok {
		return nil, fmt.Errorf("character %q: %w", id, ErrNotFound)
	}
	return c, nil
}

// ListCharacters returns every character, sorted by ID.
func (s *Store) ListCharacters() []*Character {
	out := make([]*Character, 0, len(s.characters))
	for _, c := range s.characters {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetEnding returns the ending with the given ID.
func (s *Store) GetEnding(id string) (*Ending, error) {
	e, ok := s.endings[id]
	if !ok {
		return nil, fmt.Errorf("ending %q: %w", id, ErrNotFound)
	}
	return e, nil
}

// ListEndings returns every ending, sorted by ID.
func (s *Store) ListEndings() []*Ending {
	out := make([]*Ending, 0, len(s.endings))
	for _, e := range s.endings {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// EndingCount returns the number of authored endings.
func (s *Store) EndingCount() int {
	return len(s.endings)
}

// ListGallery returns every CG sorted by ID.
func (s *Store) ListGallery() []*CG {
	out := make([]*CG, 0, len(s.gallery))
	for _, cg := range s.gallery {
		out = append(out, cg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SpeakerName returns the display name for a speaker or NPC ID.
// Unknown IDs are title-cased, so "old_man" becomes "Old Man".
func (s *Store) SpeakerName(id string) string {
	if c, ok := s.characters[id]; ok {
		return c.Name
	}
	return DisplayName(id)
}

// DisplayName turns a snake_case ID into a title-cased label.
func DisplayName(id string) string {
	caser := cases.Title(language.English)
	return caser.String(strings.ReplaceAll(id, "_", " "))
}
