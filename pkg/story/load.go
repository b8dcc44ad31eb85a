package story

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jwebster45206/novel-engine/pkg/conditionals"
	"gopkg.in/yaml.v3"
)

// Content directory layout, relative to the root passed to Load.
const (
	chaptersDir     = "chapters"
	chapterPrefix   = "chapter_"
	charactersFile  = "characters/characters"
	itemsFile       = "items/items"
	achievementFile = "events/achievements"
	endingsFile     = "endings/endings"
	galleryFile     = "gallery/gallery"
)

var contentExts = []string{".json", ".yaml", ".yml"}

// Records with pointer fields let required fields be told apart from zero values.

type chapterRecord struct {
	Title  string         `json:"title,omitempty" yaml:"title,omitempty"`
	Scenes *[]sceneRecord `json:"scenes" yaml:"scenes"`
}

type sceneRecord struct {
	ID         *string         `json:"id" yaml:"id"`
	Chapter    *int            `json:"chapter" yaml:"chapter"`
	Title      string          `json:"title" yaml:"title"`
	Background string          `json:"background" yaml:"background"`
	Dialogue   *[]DialogueLine `json:"dialogue" yaml:"dialogue"`
	Choices    *[]choiceRecord `json:"choices" yaml:"choices"`
	SetFlags   map[string]bool `json:"set_flags" yaml:"set_flags"`
}

type choiceRecord struct {
	ID                  *string                  `json:"id" yaml:"id"`
	Text                string                   `json:"text" yaml:"text"`
	StatChanges         map[string]int           `json:"stat_changes" yaml:"stat_changes"`
	RelationshipChanges map[string]int           `json:"relationship_changes" yaml:"relationship_changes"`
	InventoryChanges    map[string]int           `json:"inventory_changes" yaml:"inventory_changes"`
	NextScene           *string                  `json:"next_scene" yaml:"next_scene"`
	Ending              string                   `json:"ending" yaml:"ending"`
	When                *conditionals.ChoiceWhen `json:"when" yaml:"when"`
}

type characterRecord struct {
	Name        *string           `json:"name" yaml:"name"`
	Description string            `json:"description" yaml:"description"`
	Color       string            `json:"color" yaml:"color"`
	Portraits   map[string]string `json:"portraits" yaml:"portraits"`
}

type achievementRecord struct {
	Title       *string `json:"title" yaml:"title"`
	Description string  `json:"description" yaml:"description"`
	Rule        *struct {
		Stat *string `json:"stat" yaml:"stat"`
		Min  int     `json:"min" yaml:"min"`
	} `json:"rule" yaml:"rule"`
}

type endingRecord struct {
	Title       *string `json:"title" yaml:"title"`
	Description string  `json:"description" yaml:"description"`
	Kind        string  `json:"kind" yaml:"kind"`
}

type cgRecord struct {
	Title      *string `json:"title" yaml:"title"`
	Image      string  `json:"image" yaml:"image"`
	UnlockFlag string  `json:"unlock_flag" yaml:"unlock_flag"`
}

// decodeFile decodes a JSON or YAML file into v, chosen by extension.
// Strict decoding rejects unknown fields.
func decodeFile(path string, v any, strict bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &ContentLoadError{Path: path, Reason: "failed to read file", Err: err}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		if strict {
			dec.DisallowUnknownFields()
		}
		if err := dec.Decode(v); err != nil {
			return &ContentLoadError{Path: path, Reason: "malformed JSON", Err: err}
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(strict)
		if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
			return &ContentLoadError{Path: path, Reason: "malformed YAML", Err: err}
		}
	default:
		return loadErr(path, "unsupported content file extension")
	}
	return nil
}

// findCatalog returns the path of base with the first supported extension
// that exists, or "" if there is none.
func findCatalog(root, base string) string {
	for _, ext := range contentExts {
		path := filepath.Join(root, filepath.FromSlash(base)+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// chapterFiles lists chapter files in lexical order.
func chapterFiles(root string) ([]string, error) {
	dir := filepath.Join(root, chaptersDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &ContentLoadError{Path: dir, Reason: "failed to read chapters directory", Err: err}
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), chapterPrefix) {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		for _, supported := range contentExts {
			if ext == supported {
				files = append(files, filepath.Join(dir, entry.Name()))
				break
			}
		}
	}
	sort.Strings(files)

	if len(files) == 0 {
		return nil, loadErr(dir, "no chapter files found")
	}
	return files, nil
}

func (r *sceneRecord) toScene(path string, index int) (*Scene, error) {
	if r.ID == nil || *r.ID == "" {
		return nil, loadErr(path, "scene #%d: missing required field 'id'", index)
	}
	id := *r.ID
	if r.Chapter == nil {
		return nil, loadErr(path, "scene %s: missing required field 'chapter'", id)
	}
	if r.Dialogue == nil {
		return nil, loadErr(path, "scene %s: missing required field 'dialogue'", id)
	}
	if r.Choices == nil {
		return nil, loadErr(path, "scene %s: missing required field 'choices'", id)
	}

	scene := &Scene{
		ID:         id,
		Chapter:    *r.Chapter,
		Title:      r.Title,
		Background: r.Background,
		Dialogue:   *r.Dialogue,
		Choices:    make([]Choice, 0, len(*r.Choices)),
		SetFlags:   r.SetFlags,
	}

	for i, cr := range *r.Choices {
		if cr.ID == nil || *cr.ID == "" {
			return nil, loadErr(path, "scene %s choice #%d: missing required field 'id'", id, i)
		}
		choice := Choice{
			ID:                  *cr.ID,
			Text:                cr.Text,
			StatChanges:         cr.StatChanges,
			RelationshipChanges: cr.RelationshipChanges,
			InventoryChanges:    cr.InventoryChanges,
			Ending:              cr.Ending,
			When:                cr.When,
		}
		if cr.NextScene != nil {
			choice.NextScene = *cr.NextScene
		}
		scene.Choices = append(scene.Choices, choice)
	}

	return scene, nil
}

// decodeItems keeps unknown item fields as attributes rather than rejecting them.
func decodeItems(path string) (map[string]*Item, error) {
	raw := make(map[string]map[string]any)
	if err := decodeFile(path, &raw, false); err != nil {
		return nil, err
	}

	items := make(map[string]*Item, len(raw))
	for id, fields := range raw {
		item := &Item{ID: id}
		for key, value := range fields {
			switch key {
			case "id":
				// The map key is authoritative
			case "name":
				name, ok := value.(string)
				if !ok {
					return nil, loadErr(path, "item %s: 'name' must be a string", id)
				}
				item.Name = name
			case "description":
				desc, ok := value.(string)
				if !ok {
					return nil, loadErr(path, "item %s: 'description' must be a string", id)
				}
				item.Description = desc
			default:
				if item.Attributes == nil {
					item.Attributes = make(map[string]any)
				}
				item.Attributes[key] = value
			}
		}
		items[id] = item
	}
	return items, nil
}

func decodeCharacters(path string) (map[string]*Character, error) {
	raw := make(map[string]characterRecord)
	if err := decodeFile(path, &raw, false); err != nil {
		return nil, err
	}

	characters := make(map[string]*Character, len(raw))
	for id, r := range raw {
		if r.Name == nil || *r.Name == "" {
			return nil, loadErr(path, "character %s: missing required field 'name'", id)
		}
		characters[id] = &Character{
			ID:          id,
			Name:        *r.Name,
			Description: r.Description,
			Color:       r.Color,
			Portraits:   r.Portraits,
		}
	}
	return characters, nil
}

func decodeAchievements(path string) (map[string]AchievementDef, error) {
	raw := make(map[string]achievementRecord)
	if err := decodeFile(path, &raw, true); err != nil {
		return nil, err
	}

	defs := make(map[string]AchievementDef, len(raw))
	for id, r := range raw {
		if r.Title == nil || *r.Title == "" {
			return nil, loadErr(path, "achievement %s: missing required field 'title'", id)
		}
		if r.Rule == nil {
			return nil, loadErr(path, "achievement %s: missing required field 'rule'", id)
		}
		if r.Rule.Stat == nil || *r.Rule.Stat == "" {
			return nil, loadErr(path, "achievement %s: missing required field 'rule.stat'", id)
		}
		defs[id] = AchievementDef{
			ID:          id,
			Title:       *r.Title,
			Description: r.Description,
			Rule:        AchievementRule{Stat: *r.Rule.Stat, Min: r.Rule.Min},
		}
	}
	return defs, nil
}

func decodeEndings(path string) (map[string]*Ending, error) {
	raw := make(map[string]endingRecord)
	if err := decodeFile(path, &raw, true); err != nil {
		return nil, err
	}

	endings := make(map[string]*Ending, len(raw))
	for id, r := range raw {
		if r.Title == nil || *r.Title == "" {
			return nil, loadErr(path, "ending %s: missing required field 'title'", id)
		}
		endings[id] = &Ending{
			ID:          id,
			Title:       *r.Title,
			Description: r.Description,
			Kind:        r.Kind,
		}
	}
	return endings, nil
}

func decodeGallery(path string) (map[string]*CG, error) {
	raw := make(map[string]cgRecord)
	if err := decodeFile(path, &raw, true); err != nil {
		return nil, err
	}

	gallery := make(map[string]*CG, len(raw))
	for id, r := range raw {
		if r.Title == nil || *r.Title == "" {
			return nil, loadErr(path, "cg %s: missing required field 'title'", id)
		}
		if r.UnlockFlag != "" && !IsValidID(r.UnlockFlag) {
			return nil, loadErr(path, "cg %s: flag name '%s' should be lowercase snake_case", id, r.UnlockFlag)
		}
		gallery[id] = &CG{
			ID:         id,
			Title:      *r.Title,
			Image:      r.Image,
			UnlockFlag: r.UnlockFlag,
		}
	}
	return gallery, nil
}
