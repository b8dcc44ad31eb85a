package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jwebster45206/novel-engine/pkg/story"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <content-dir> [--strict]\n", os.Args[0])
		os.Exit(1)
	}

	dir := os.Args[1]
	strict := len(os.Args) > 2 && os.Args[2] == "--strict"

	fmt.Printf("Validating %s...\n", dir)
	store, err := story.Load(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("  scenes:       %d\n", len(store.SceneIDs()))
	fmt.Printf("  chapters:     %d\n", len(store.Chapters()))
	fmt.Printf("  characters:   %d\n", len(store.ListCharacters()))
	fmt.Printf("  items:        %d\n", store.ItemCount())
	fmt.Printf("  achievements: %d\n", len(store.ListAchievements()))
	fmt.Printf("  endings:      %d\n", store.EndingCount())
	fmt.Printf("  gallery:      %d\n", len(store.ListGallery()))

	linter := &ContentLinter{}
	linter.lint(store)
	if len(linter.warnings) > 0 {
		fmt.Printf("Warnings:\n%s\n", strings.Join(linter.warnings, "\n"))
		if strict {
			fmt.Fprintln(os.Stderr, "Validation failed: warnings are fatal with --strict")
			os.Exit(1)
		}
	}

	fmt.Printf("Story content in %s is valid!\n", store.Root())
}

// ContentLinter reports content that loads but cannot play as intended:
// unreachable scenes, endings no choice leads to, achievements whose
// stat never changes and CGs whose unlock flag is never set.
type ContentLinter struct {
	warnings []string
}

func (l *ContentLinter) lint(store *story.Store) {
	reachable := reachableScenes(store)
	usedEndings := make(map[string]bool)
	changedStats := make(map[string]bool)
	setFlags := make(map[string]bool)

	for _, id := range store.SceneIDs() {
		scene, err := store.GetScene(id)
		if err != nil {
			continue
		}
		if !reachable[id] {
			l.addWarning(fmt.Sprintf("scene '%s' is not reachable from the opening scene", id))
		}
		for flag, value := range scene.SetFlags {
			if value {
				setFlags[flag] = true
			}
		}
		if len(scene.Choices) == 0 {
			l.addWarning(fmt.Sprintf("scene '%s' has no choices and no ending", id))
		}
		for _, choice := range scene.Choices {
			if choice.Ending != "" {
				usedEndings[choice.Ending] = true
			}
			for stat, delta := range choice.StatChanges {
				if delta > 0 {
					changedStats[stat] = true
				}
			}
		}
	}

	for _, ending := range store.ListEndings() {
		if !usedEndings[ending.ID] {
			l.addWarning(fmt.Sprintf("ending '%s' is never reached by any choice", ending.ID))
		}
	}

	for _, def := range store.ListAchievements() {
		if def.Rule.Stat == "" {
			l.addWarning(fmt.Sprintf("achievement '%s' has no rule stat and can never unlock", def.ID))
			continue
		}
		if def.Rule.Min > 0 && !changedStats[def.Rule.Stat] {
			l.addWarning(fmt.Sprintf("achievement '%s' needs stat '%s' but no choice raises it", def.ID, def.Rule.Stat))
		}
	}

	for _, cg := range store.ListGallery() {
		if cg.UnlockFlag != "" && !setFlags[cg.UnlockFlag] {
			l.addWarning(fmt.Sprintf("cg '%s' unlocks on flag '%s' but no scene sets it", cg.ID, cg.UnlockFlag))
		}
	}

	sort.Strings(l.warnings)
}

func (l *ContentLinter) addWarning(msg string) {
	l.warnings = append(l.warnings, "  - "+msg)
}

// reachableScenes walks next_scene links from the opening scene.
func reachableScenes(store *story.Store) map[string]bool {
	seen := map[string]bool{}
	queue := []string{store.OpeningScene().ID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true

		scene, err := store.GetScene(id)
		if err != nil {
			continue
		}
		for _, choice := range scene.Choices {
			if choice.NextScene != "" && !seen[choice.NextScene] {
				queue = append(queue, choice.NextScene)
			}
		}
	}
	return seen
}
