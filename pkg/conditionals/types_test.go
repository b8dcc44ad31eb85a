package conditionals

import (
	"testing"
)

// mockStateView implements StateView for testing
type mockStateView struct {
	stats         map[string]int
	flags         map[string]bool
	items         map[string]int
	relationships map[string]int
}

func (m *mockStateView) Stat(name string) int                { return m.stats[name] }
func (m *mockStateView) Flag(name string) bool               { return m.flags[name] }
func (m *mockStateView) Quantity(itemID string) int          { return m.items[itemID] }
func (m *mockStateView) RelationshipPoints(npcID string) int { return m.relationships[npcID] }

func TestEvaluate(t *testing.T) {
	view := &mockStateView{
		stats:         map[string]int{"affection": 40, "courage": 5},
		flags:         map[string]bool{"met_rina": true},
		items:         map[string]int{"umbrella": 1},
		relationships: map[string]int{"rina": 25},
	}

	tests := []struct {
		name     string
		when     *ChoiceWhen
		expected bool
	}{
		{
			name:     "nil clause always passes",
			when:     nil,
			expected: true,
		},
		{
			name:     "empty clause always passes",
			when:     &ChoiceWhen{},
			expected: true,
		},
		{
			name:     "flag set",
			when:     &ChoiceWhen{Flags: map[string]bool{"met_rina": true}},
			expected: true,
		},
		{
			name:     "absent flag reads false",
			when:     &ChoiceWhen{Flags: map[string]bool{"met_yuki": false}},
			expected: true,
		},
		{
			name:     "absent flag required true",
			when:     &ChoiceWhen{Flags: map[string]bool{"met_yuki": true}},
			expected: false,
		},
		{
			name:     "min stat met exactly",
			when:     &ChoiceWhen{MinStats: map[string]int{"affection": 40}},
			expected: true,
		},
		{
			name:     "min stat not met",
			when:     &ChoiceWhen{MinStats: map[string]int{"affection": 41}},
			expected: false,
		},
		{
			name:     "absent stat reads zero",
			when:     &ChoiceWhen{MaxStats: map[string]int{"jealousy": 0}},
			expected: true,
		},
		{
			name:     "max stat exceeded",
			when:     &ChoiceWhen{MaxStats: map[string]int{"courage": 4}},
			expected: false,
		},
		{
			name:     "item held",
			when:     &ChoiceWhen{Items: map[string]int{"umbrella": 1}},
			expected: true,
		},
		{
			name:     "item missing",
			when:     &ChoiceWhen{Items: map[string]int{"flower": 1}},
			expected: false,
		},
		{
			name:     "relationship below minimum",
			when:     &ChoiceWhen{MinRelationship: map[string]int{"rina": 40}},
			expected: false,
		},
		{
			name: "all conditions must hold",
			when: &ChoiceWhen{
				Flags:           map[string]bool{"met_rina": true},
				MinStats:        map[string]int{"affection": 10},
				MinRelationship: map[string]int{"rina": 30},
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.when, view); got != tt.expected {
				t.Errorf("Evaluate() = %v, expected %v", got, tt.expected)
			}
		})
	}
}
