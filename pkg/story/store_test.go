package story

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeContent lays out a content tree under a temp dir and returns its root.
func writeContent(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, body := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	return root
}

const minimalChapter = `{
  "scenes": [
    {
      "id": "ch1_scene_1",
      "chapter": 1,
      "dialogue": ["Hello."],
      "choices": [
        {"id": "c1", "stat_changes": {"affection": 5}, "next_scene": null},
        {"id": "c2", "next_scene": "ch1_scene_2"}
      ],
      "set_flags": {"met_rina": true}
    },
    {
      "id": "ch1_scene_2",
      "chapter": 1,
      "dialogue": [],
      "choices": []
    }
  ]
}`

func TestLoad_SampleContent(t *testing.T) {
	store, err := Load(filepath.Join("..", "..", "data", "story"))
	require.NoError(t, err)

	assert.Equal(t, "ch1_scene_1", store.OpeningScene().ID)
	assert.Equal(t, []int{1, 2}, store.Chapters())
	assert.Len(t, store.SceneIDs(), 4)
	assert.Len(t, store.ListCharacters(), 2)
	assert.Equal(t, 3, store.ItemCount())
	assert.Equal(t, 4, store.EndingCount())
	require.Len(t, store.ListGallery(), 2)
	assert.Equal(t, "festival_night", store.ListGallery()[0].ID)
	assert.Equal(t, "at_festival", store.ListGallery()[0].UnlockFlag)
	assert.Equal(t, filepath.Join("..", "..", "data", "story"), store.Root())

	// Scenes from the YAML chapter are indexed alongside JSON ones
	scene, err := store.GetScene("ch2_scene_1")
	require.NoError(t, err)
	assert.Equal(t, 2, scene.Chapter)
	assert.Equal(t, DialogueLine{Text: "Paper lanterns sway over the crowd. It smells like rain."}, scene.Dialogue[0])
	assert.Equal(t, "rina", scene.Dialogue[1].Speaker)

	choice, ok := scene.Choice("use_ticket")
	require.True(t, ok)
	require.NotNil(t, choice.When)
	assert.Equal(t, map[string]int{"festival_ticket": 1}, choice.When.Items)
	assert.Equal(t, -1, choice.InventoryChanges["festival_ticket"])
}

func TestLoad_Minimal(t *testing.T) {
	root := writeContent(t, map[string]string{
		"chapters/chapter_1.json": minimalChapter,
	})

	store, err := Load(root)
	require.NoError(t, err)

	scene, err := store.GetScene("ch1_scene_1")
	require.NoError(t, err)
	assert.Equal(t, 1, scene.Chapter)
	assert.Equal(t, map[string]bool{"met_rina": true}, scene.SetFlags)

	c1, ok := scene.Choice("c1")
	require.True(t, ok)
	assert.True(t, c1.IsEnding())
	assert.Equal(t, map[string]int{"affection": 5}, c1.StatChanges)

	_, ok = scene.Choice("nonexistent")
	assert.False(t, ok)

	// Optional catalogues default to empty
	assert.Empty(t, store.ListAchievements())
	assert.Empty(t, store.ListCharacters())
	_, err = store.GetItem("umbrella")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Lookups(t *testing.T) {
	root := writeContent(t, map[string]string{
		"chapters/chapter_1.json": minimalChapter,
		"items/items.json": `{
			"umbrella": {"name": "Umbrella", "description": "Large enough for two.", "icon": "umbrella.png", "weight": 2}
		}`,
		"events/achievements.json": `{
			"devoted": {"title": "Devoted", "rule": {"stat": "affection", "min": 80}},
			"brave_heart": {"title": "Brave Heart", "rule": {"stat": "courage", "min": 10}}
		}`,
		"characters/characters.yaml": "rina:\n  name: Rina\n  nickname: Ri\n",
		"endings/endings.json":       `{"early_night": {"title": "An Early Night", "kind": "normal"}}`,
	})

	store, err := Load(root)
	require.NoError(t, err)

	t.Run("get scene miss", func(t *testing.T) {
		_, err := store.GetScene("missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("item attributes keep unknown fields", func(t *testing.T) {
		item, err := store.GetItem("umbrella")
		require.NoError(t, err)
		assert.Equal(t, "Umbrella", item.Name)
		assert.Equal(t, "Large enough for two.", item.Description)
		assert.Equal(t, "umbrella.png", item.Attributes["icon"])
		assert.Equal(t, float64(2), item.Attributes["weight"])
	})

	t.Run("achievements sorted by id", func(t *testing.T) {
		defs := store.ListAchievements()
		require.Len(t, defs, 2)
		assert.Equal(t, "brave_heart", defs[0].ID)
		assert.Equal(t, AchievementRule{Stat: "affection", Min: 80}, defs[1].Rule)
	})

	t.Run("characters ignore unknown fields", func(t *testing.T) {
		c, err := store.GetCharacter("rina")
		require.NoError(t, err)
		assert.Equal(t, "Rina", c.Name)
	})

	t.Run("endings", func(t *testing.T) {
		e, err := store.GetEnding("early_night")
		require.NoError(t, err)
		assert.Equal(t, "normal", e.Kind)
		_, err = store.GetEnding("nope")
		assert.ErrorIs(t, err, ErrNotFound)
		require.Len(t, store.ListEndings(), 1)
		assert.Equal(t, "early_night", store.ListEndings()[0].ID)
	})

	t.Run("speaker names", func(t *testing.T) {
		assert.Equal(t, "Rina", store.SpeakerName("rina"))
		assert.Equal(t, "Old Man", store.SpeakerName("old_man"))
	})
}

func TestLoad_DuplicateSceneID(t *testing.T) {
	root := writeContent(t, map[string]string{
		"chapters/chapter_1.json": minimalChapter,
		"chapters/chapter_2.json": `{"scenes": [{"id": "ch1_scene_2", "chapter": 2, "dialogue": [], "choices": []}]}`,
	})

	_, err := Load(root)
	require.Error(t, err)

	var dupErr *DuplicateSceneIDError
	require.True(t, errors.As(err, &dupErr), "expected DuplicateSceneIDError, got %T: %v", err, err)
	assert.Equal(t, "ch1_scene_2", dupErr.SceneID)
	assert.Contains(t, dupErr.FirstPath, "chapter_1.json")
	assert.Contains(t, dupErr.SecondPath, "chapter_2.json")
}

func TestLoad_ContentErrors(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		contains string
	}{
		{
			name:     "missing chapters directory",
			files:    map[string]string{"items/items.json": `{}`},
			contains: "failed to read chapters directory",
		},
		{
			name:     "no chapter files",
			files:    map[string]string{"chapters/readme.txt": "nothing"},
			contains: "no chapter files found",
		},
		{
			name:     "malformed json",
			files:    map[string]string{"chapters/chapter_1.json": `{"scenes": [`},
			contains: "malformed JSON",
		},
		{
			name:     "malformed yaml",
			files:    map[string]string{"chapters/chapter_1.yaml": "scenes: [\n  - id: a\n  bad"},
			contains: "malformed YAML",
		},
		{
			name:     "unknown scene field",
			files:    map[string]string{"chapters/chapter_1.json": `{"scenes": [{"id": "a", "chapter": 1, "dialogue": [], "choices": [], "music": "x"}]}`},
			contains: "malformed JSON",
		},
		{
			name:     "missing scenes field",
			files:    map[string]string{"chapters/chapter_1.json": `{"title": "Empty"}`},
			contains: "missing required field 'scenes'",
		},
		{
			name:     "missing scene id",
			files:    map[string]string{"chapters/chapter_1.json": `{"scenes": [{"chapter": 1, "dialogue": [], "choices": []}]}`},
			contains: "missing required field 'id'",
		},
		{
			name:     "missing chapter",
			files:    map[string]string{"chapters/chapter_1.json": `{"scenes": [{"id": "a", "dialogue": [], "choices": []}]}`},
			contains: "missing required field 'chapter'",
		},
		{
			name:     "missing dialogue",
			files:    map[string]string{"chapters/chapter_1.json": `{"scenes": [{"id": "a", "chapter": 1, "choices": []}]}`},
			contains: "missing required field 'dialogue'",
		},
		{
			name:     "missing choices",
			files:    map[string]string{"chapters/chapter_1.json": `{"scenes": [{"id": "a", "chapter": 1, "dialogue": []}]}`},
			contains: "missing required field 'choices'",
		},
		{
			name:     "missing choice id",
			files:    map[string]string{"chapters/chapter_1.json": `{"scenes": [{"id": "a", "chapter": 1, "dialogue": [], "choices": [{"text": "hi"}]}]}`},
			contains: "choice #0: missing required field 'id'",
		},
		{
			name:     "no scenes",
			files:    map[string]string{"chapters/chapter_1.json": `{"scenes": []}`},
			contains: "content has no scenes",
		},
		{
			name:     "dangling next scene",
			files:    map[string]string{"chapters/chapter_1.json": `{"scenes": [{"id": "a", "chapter": 1, "dialogue": [], "choices": [{"id": "go", "next_scene": "b"}]}]}`},
			contains: "next_scene 'b' does not exist",
		},
		{
			name:     "duplicate choice id",
			files:    map[string]string{"chapters/chapter_1.json": `{"scenes": [{"id": "a", "chapter": 1, "dialogue": [], "choices": [{"id": "x"}, {"id": "x"}]}]}`},
			contains: "duplicate choice id 'x'",
		},
		{
			name:     "invalid scene id",
			files:    map[string]string{"chapters/chapter_1.json": `{"scenes": [{"id": "Scene-One", "chapter": 1, "dialogue": [], "choices": []}]}`},
			contains: "should be lowercase snake_case",
		},
		{
			name:     "dialogue without text",
			files:    map[string]string{"chapters/chapter_1.json": `{"scenes": [{"id": "a", "chapter": 1, "dialogue": [{"speaker": "rina"}], "choices": []}]}`},
			contains: "missing text",
		},
		{
			name: "unknown speaker",
			files: map[string]string{
				"characters/characters.json": `{"rina": {"name": "Rina"}}`,
				"chapters/chapter_1.json":    `{"scenes": [{"id": "a", "chapter": 1, "dialogue": [{"speaker": "yuki", "text": "hi"}], "choices": []}]}`,
			},
			contains: "unknown speaker 'yuki'",
		},
		{
			name: "unknown ending",
			files: map[string]string{
				"endings/endings.json":    `{"early_night": {"title": "An Early Night"}}`,
				"chapters/chapter_1.json": `{"scenes": [{"id": "a", "chapter": 1, "dialogue": [], "choices": [{"id": "end", "ending": "nope"}]}]}`,
			},
			contains: "ending 'nope' does not exist",
		},
		{
			name: "unknown inventory item",
			files: map[string]string{
				"items/items.json":        `{"umbrella": {"name": "Umbrella"}}`,
				"chapters/chapter_1.json": `{"scenes": [{"id": "a", "chapter": 1, "dialogue": [], "choices": [{"id": "take", "inventory_changes": {"sword": 1}}]}]}`,
			},
			contains: "unknown item 'sword'",
		},
		{
			name: "unknown relationship npc",
			files: map[string]string{
				"characters/characters.json": `{"ayumi": {"name": "Ayumi"}}`,
				"chapters/chapter_1.json":    `{"scenes": [{"id": "a", "chapter": 1, "dialogue": [], "choices": [{"id": "smile", "relationship_changes": {"rina": 1}}]}]}`,
			},
			contains: "unknown character 'rina'",
		},
		{
			name: "achievement without rule stat",
			files: map[string]string{
				"chapters/chapter_1.json":  minimalChapter,
				"events/achievements.json": `{"devoted": {"title": "Devoted", "rule": {"min": 80}}}`,
			},
			contains: "missing required field 'rule.stat'",
		},
		{
			name: "character without name",
			files: map[string]string{
				"chapters/chapter_1.json":    minimalChapter,
				"characters/characters.json": `{"rina": {"description": "no name"}}`,
			},
			contains: "missing required field 'name'",
		},
		{
			name: "cg without title",
			files: map[string]string{
				"chapters/chapter_1.json": minimalChapter,
				"gallery/gallery.json":    `{"sunset": {"image": "cg/sunset.png"}}`,
			},
			contains: "cg sunset: missing required field 'title'",
		},
		{
			name: "cg with invalid flag",
			files: map[string]string{
				"chapters/chapter_1.json": minimalChapter,
				"gallery/gallery.json":    `{"sunset": {"title": "Sunset", "unlock_flag": "Saw-Sunset"}}`,
			},
			contains: "flag name 'Saw-Sunset' should be lowercase snake_case",
		},
		{
			name: "item name of wrong type",
			files: map[string]string{
				"chapters/chapter_1.json": minimalChapter,
				"items/items.json":        `{"umbrella": {"name": 7}}`,
			},
			contains: "'name' must be a string",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := writeContent(t, tt.files)

			store, err := Load(root)
			require.Error(t, err)
			assert.Nil(t, store)

			var loadErr *ContentLoadError
			require.True(t, errors.As(err, &loadErr), "expected ContentLoadError, got %T: %v", err, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestLoader_LoadsOnce(t *testing.T) {
	var calls atomic.Int32
	root := writeContent(t, map[string]string{"chapters/chapter_1.json": minimalChapter})
	loader := newLoader(func() (*Store, error) {
		calls.Add(1)
		return Load(root)
	})

	var wg sync.WaitGroup
	stores := make([]*Store, 16)
	for i := range stores {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := loader.Store()
			if err != nil {
				t.Errorf("Store() error: %v", err)
				return
			}
			stores[i] = s
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, s := range stores {
		assert.Same(t, stores[0], s)
	}
}

func TestLoader_CachesError(t *testing.T) {
	loader := NewLoader(t.TempDir())

	_, err1 := loader.Store()
	_, err2 := loader.Store()
	require.Error(t, err1)
	assert.Equal(t, err1, err2)
}

func TestLoad_ReferencesWithoutCatalogues(t *testing.T) {
	root := writeContent(t, map[string]string{
		"chapters/chapter_1.json": `{"scenes": [{"id": "a", "chapter": 1, "dialogue": [{"speaker": "rina", "text": "Take this."}], "choices": [
			{"id": "take", "inventory_changes": {"key": 1}, "relationship_changes": {"rina": 5}, "ending": "kept_key"}
		]}]}`,
	})

	store, err := Load(root)
	require.NoError(t, err)

	scene, err := store.GetScene("a")
	require.NoError(t, err)
	require.Len(t, scene.Choices, 1)
	assert.Equal(t, map[string]int{"key": 1}, scene.Choices[0].InventoryChanges)
	assert.Equal(t, map[string]int{"rina": 5}, scene.Choices[0].RelationshipChanges)
	assert.Equal(t, "kept_key", scene.Choices[0].Ending)

	_, err = store.GetEnding("kept_key")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Rina", store.SpeakerName("rina"))
}
