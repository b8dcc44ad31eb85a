package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/novel-engine/internal/handlers"
	"github.com/jwebster45206/novel-engine/internal/session"
	"github.com/jwebster45206/novel-engine/pkg/state"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner plays scripted test suites against a running novel-engine API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 30 * time.Second},
		Logger:            func(string, ...interface{}) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Recursively load (in case a sequence references another sequence)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite plays a complete test suite as a fresh player
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results:  make([]TestResult, 0, len(suite.Steps)),
		PlayerID: uuid.New(),
	}

	slot := suite.Slot
	if slot == 0 {
		slot = 1
	}

	if err := r.seedSlot(ctx, result.PlayerID, slot, suite.SeedGameState); err != nil {
		result.Error = fmt.Errorf("failed to seed slot: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.runStep(ctx, result.PlayerID, slot, step, suite.SeedGameState)
		stepResult.TestName = suite.Name
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

func (r *Runner) savesURL(player uuid.UUID, path string) string {
	return fmt.Sprintf("%s/v1/players/%s/saves%s", r.BaseURL, player, path)
}

// seedSlot starts a new game, or writes seed over the slot when one is given
func (r *Runner) seedSlot(ctx context.Context, player uuid.UUID, slot int, seed *state.GameState) error {
	if seed == nil {
		status, body, err := r.send(ctx, http.MethodPost, r.savesURL(player, fmt.Sprintf("/%d", slot)), nil)
		if err != nil {
			return err
		}
		if status != http.StatusCreated {
			return fmt.Errorf("new game returned %d: %s", status, string(body))
		}
		return nil
	}

	status, body, err := r.send(ctx, http.MethodPut, r.savesURL(player, fmt.Sprintf("/%d", slot)), seed)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("seed returned %d: %s", status, string(body))
	}
	return nil
}

// send issues a JSON request and returns the status and raw body
func (r *Runner) send(ctx context.Context, method, url string, payload any) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to execute %s request: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// getState reads the slot's current state
func (r *Runner) getState(ctx context.Context, player uuid.UUID, slot int) (*state.GameState, error) {
	status, body, err := r.send(ctx, http.MethodGet, r.savesURL(player, fmt.Sprintf("/%d", slot)), nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("get slot returned %d: %s", status, string(body))
	}

	var resp handlers.SlotResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode slot: %w", err)
	}
	return resp.State, nil
}

// runStep performs one action and checks its expectations
func (r *Runner) runStep(ctx context.Context, player uuid.UUID, slot int, step TestStep, seed *state.GameState) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name}
	fail := func(err error) TestResult {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	if step.Choice == ResetSlotStep {
		if err := r.seedSlot(ctx, player, slot, seed); err != nil {
			return fail(fmt.Errorf("failed to reset slot: %w", err))
		}
		result.IsReset = true
	}

	var (
		status int
		body   []byte
		err    error
	)
	switch {
	case result.IsReset:
		status = http.StatusOK
	case step.Choice != "":
		status, body, err = r.send(ctx, http.MethodPost, r.savesURL(player, fmt.Sprintf("/%d/choice", slot)), handlers.ChooseRequest{ChoiceID: step.Choice})
	case step.UseItem != "":
		status, body, err = r.send(ctx, http.MethodPost, r.savesURL(player, fmt.Sprintf("/%d/items/%s/use", slot, step.UseItem)), nil)
	default:
		return fail(fmt.Errorf("step has neither choice nor use_item"))
	}
	if err != nil {
		return fail(err)
	}

	exp := step.Expectations
	wantStatus := http.StatusOK
	if exp.Status != nil {
		wantStatus = *exp.Status
	}
	if status != wantStatus {
		return fail(fmt.Errorf("expected status %d, got %d: %s", wantStatus, status, string(body)))
	}

	if exp.ErrorContains != "" {
		var errResp handlers.ErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			return fail(fmt.Errorf("expected an error body, got %s", string(body)))
		}
		if !strings.Contains(errResp.Error, exp.ErrorContains) {
			return fail(fmt.Errorf("expected error to contain '%s', got '%s'", exp.ErrorContains, errResp.Error))
		}
	}

	var newAchievements []string
	if step.Choice != "" && !result.IsReset && status == http.StatusOK {
		var out session.Outcome
		if err := json.Unmarshal(body, &out); err != nil {
			return fail(fmt.Errorf("failed to decode outcome: %w", err))
		}
		newAchievements = out.NewAchievements
	}

	gs, err := r.getState(ctx, player, slot)
	if err != nil {
		return fail(fmt.Errorf("failed to get state after step: %w", err))
	}

	if err := checkExpectations(exp, gs, newAchievements); err != nil {
		return fail(fmt.Errorf("expectation failed: %w", err))
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

// checkExpectations validates the expectations against the state after a step
func checkExpectations(exp Expectations, gs *state.GameState, newAchievements []string) error {
	if exp.SceneID != nil && gs.CurrentSceneID != *exp.SceneID {
		return fmt.Errorf("expected scene %s, got %s", *exp.SceneID, gs.CurrentSceneID)
	}

	if exp.Chapter != nil && gs.CurrentChapter != *exp.Chapter {
		return fmt.Errorf("expected chapter %d, got %d", *exp.Chapter, gs.CurrentChapter)
	}

	if exp.IsEnded != nil && gs.Ended != *exp.IsEnded {
		return fmt.Errorf("expected is_ended to be %t, got %t", *exp.IsEnded, gs.Ended)
	}

	if exp.EndingID != nil && gs.EndingID != *exp.EndingID {
		return fmt.Errorf("expected ending %s, got %s", *exp.EndingID, gs.EndingID)
	}

	for stat, want := range exp.Stats {
		if got := gs.Stat(stat); got != want {
			return fmt.Errorf("expected stat %s to be %d, got %d", stat, want, got)
		}
	}

	for flag, want := range exp.Flags {
		if got := gs.Flag(flag); got != want {
			return fmt.Errorf("expected flag %s to be %t, got %t", flag, want, got)
		}
	}

	// Full inventory check
	if exp.Inventory != nil {
		for itemID, want := range exp.Inventory {
			if got := gs.Quantity(itemID); got != want {
				return fmt.Errorf("expected %d of '%s', got %d. Actual inventory: %v", want, itemID, got, gs.Inventory)
			}
		}
		for itemID := range gs.Inventory {
			if _, ok := exp.Inventory[itemID]; !ok {
				return fmt.Errorf("inventory contains unexpected item '%s'. Expected inventory: %v, Actual: %v", itemID, exp.Inventory, gs.Inventory)
			}
		}
	}

	for npc, want := range exp.Relationships {
		if got := gs.RelationshipPoints(npc); got != want {
			return fmt.Errorf("expected relationship with %s to be %d, got %d", npc, want, got)
		}
	}

	if exp.NewAchievements != nil {
		got := slices.Clone(newAchievements)
		want := slices.Clone(exp.NewAchievements)
		sort.Strings(got)
		sort.Strings(want)
		if !slices.Equal(got, want) {
			return fmt.Errorf("expected new achievements %v, got %v", want, got)
		}
	}

	for _, id := range exp.UnlockedAchievements {
		if !gs.UnlockedAchievements.Has(id) {
			return fmt.Errorf("expected achievement %s to be unlocked", id)
		}
	}

	return nil
}
