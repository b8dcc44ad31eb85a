package runner

import (
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/novel-engine/pkg/state"
)

// ResetSlotStep as a step's choice re-seeds the slot instead of choosing
const ResetSlotStep = "RESET_SLOT"

// TestSuite defines a complete playthrough test
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name          string           `json:"name"`
	Slot          int              `json:"slot,omitempty"`            // Save slot to play in; defaults to 1
	SeedGameState *state.GameState `json:"seed_game_state,omitempty"` // Starting state; omitted means a new game
	Steps         []TestStep       `json:"steps,omitempty"`
	Cases         []string         `json:"cases,omitempty"` // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep is one player action and its expected outcome.
// Exactly one of Choice or UseItem is set.
type TestStep struct {
	Name         string       `json:"name,omitempty"`
	Choice       string       `json:"choice,omitempty"`
	UseItem      string       `json:"use_item,omitempty"`
	Expectations Expectations `json:"expect"`
}

// Expectations defines what to check after a test step executes
type Expectations struct {
	Status        *int   `json:"status,omitempty"`         // HTTP status of the action; defaults to 200
	ErrorContains string `json:"error_contains,omitempty"` // Substring of the API error message

	SceneID              *string         `json:"scene_id,omitempty"`
	Chapter              *int            `json:"chapter,omitempty"`
	IsEnded              *bool           `json:"is_ended,omitempty"`
	EndingID             *string         `json:"ending_id,omitempty"`
	Stats                map[string]int  `json:"stats,omitempty"`
	Flags                map[string]bool `json:"flags,omitempty"`
	Inventory            map[string]int  `json:"inventory,omitempty"` // Full inventory contents
	Relationships        map[string]int  `json:"relationships,omitempty"`
	NewAchievements      []string        `json:"new_achievements,omitempty"` // Exactly the achievements unlocked by this step
	UnlockedAchievements []string        `json:"unlocked_achievements,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName string
	StepName string
	Success  bool
	Error    error
	Duration time.Duration
	IsReset  bool // True for RESET_SLOT steps (should not count toward pass/fail metrics)
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	PlayerID uuid.UUID // Player the suite played as
}
