package runner

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/novel-engine/internal/handlers"
	"github.com/jwebster45206/novel-engine/internal/services/events"
	"github.com/jwebster45206/novel-engine/internal/session"
	"github.com/jwebster45206/novel-engine/pkg/state"
	"github.com/jwebster45206/novel-engine/pkg/storage"
	"github.com/jwebster45206/novel-engine/pkg/story"
)

func setupTestRunner(t *testing.T) *Runner {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	content, err := story.Load("../../data/story")
	require.NoError(t, err)

	store := storage.NewMockStorage()
	sessions := session.NewService(content, store, &events.Recorder{}, 3, logger)
	srv := httptest.NewServer(handlers.NewRouter(sessions, store, logger))
	t.Cleanup(srv.Close)

	r := NewRunner(srv.URL + "/")
	r.Logger = t.Logf
	return r
}

func TestRunner_Cases(t *testing.T) {
	r := setupTestRunner(t)

	files, err := filepath.Glob("../cases/*.json")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		jobs, err := LoadTestSuiteWithExpansion(file, "../cases")
		require.NoError(t, err)

		for _, job := range jobs {
			t.Run(job.Name, func(t *testing.T) {
				result, err := r.RunSuite(context.Background(), job.Suite)
				require.NoError(t, err)
				assert.Len(t, result.Results, len(job.Suite.Steps))
				for _, step := range result.Results {
					assert.True(t, step.Success, "step %s: %v", step.StepName, step.Error)
				}
			})
		}
	}
}

func TestRunner_ReportsFailedExpectation(t *testing.T) {
	r := setupTestRunner(t)
	wrong := "ch2_scene_2"

	suite := TestSuite{
		Name: "wrong scene",
		Steps: []TestStep{
			{Name: "unpack", Choice: "c2", Expectations: Expectations{SceneID: &wrong}},
			{Name: "ticket", Choice: "accept_ticket"},
		},
	}

	result, err := r.RunSuite(context.Background(), suite)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected scene ch2_scene_2, got ch1_scene_2")
	require.Len(t, result.Results, 2, "continue mode runs every step")
	assert.False(t, result.Results[0].Success)
	assert.True(t, result.Results[1].Success)

	r.ErrorHandlingMode = ErrorHandlingExit
	result, err = r.RunSuite(context.Background(), suite)
	require.Error(t, err)
	assert.Len(t, result.Results, 1)
}

func TestRunner_StepWithoutAction(t *testing.T) {
	r := setupTestRunner(t)

	_, err := r.RunSuite(context.Background(), TestSuite{Name: "empty step", Steps: []TestStep{{Name: "nothing"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neither choice nor use_item")
}

func TestRunner_BadSeed(t *testing.T) {
	r := setupTestRunner(t)

	seed := state.NewGameState()
	seed.CurrentSceneID = "nowhere"
	_, err := r.RunSuite(context.Background(), TestSuite{Name: "bad seed", SeedGameState: seed})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to seed slot")
}

func TestLoadTestSuiteWithExpansion(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
	}
	write("a.json", `{"name": "a", "steps": [{"choice": "c1"}]}`)
	write("b.json", `{"name": "b", "steps": [{"choice": "c2"}]}`)
	write("inner.json", `{"name": "inner", "cases": ["b.json"]}`)
	write("all.json", `{"name": "all", "cases": ["a.json", "inner.json"]}`)
	write("broken.json", `{"name": "broken", "cases": ["missing.json"]}`)

	jobs, err := LoadTestSuiteWithExpansion(filepath.Join(dir, "all.json"), dir)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "a", jobs[0].Name)
	assert.Equal(t, "b", jobs[1].Name)

	_, err = LoadTestSuiteWithExpansion(filepath.Join(dir, "broken.json"), dir)
	assert.Error(t, err)
}

func TestCheckExpectations_Inventory(t *testing.T) {
	gs := state.NewGameState()
	gs.Inventory["umbrella"] = 1

	assert.NoError(t, checkExpectations(Expectations{Inventory: map[string]int{"umbrella": 1}}, gs, nil))
	assert.Error(t, checkExpectations(Expectations{Inventory: map[string]int{}}, gs, nil))
	assert.Error(t, checkExpectations(Expectations{Inventory: map[string]int{"umbrella": 2}}, gs, nil))
	assert.NoError(t, checkExpectations(Expectations{NewAchievements: []string{"b", "a"}}, gs, []string{"a", "b"}))
	assert.Error(t, checkExpectations(Expectations{UnlockedAchievements: []string{"devoted"}}, gs, nil))
}
