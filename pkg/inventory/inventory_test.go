package inventory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/novel-engine/pkg/state"
	"github.com/jwebster45206/novel-engine/pkg/story"
)

type mapCatalog map[string]*story.Item

func (m mapCatalog) GetItem(id string) (*story.Item, error) {
	item, ok := m[id]
	if !ok {
		return nil, fmt.Errorf("%w: item %s", story.ErrNotFound, id)
	}
	return item, nil
}

func TestEnrich(t *testing.T) {
	catalog := mapCatalog{
		"umbrella": {
			ID:          "umbrella",
			Name:        "Umbrella",
			Description: "Large enough for two.",
			Attributes:  map[string]any{"icon": "items/umbrella.png"},
		},
	}

	tests := []struct {
		name     string
		entries  []Entry
		expected []Enriched
	}{
		{
			name:     "empty input",
			entries:  nil,
			expected: []Enriched{},
		},
		{
			name:    "known item",
			entries: []Entry{{ItemID: "umbrella", Qty: 2}},
			expected: []Enriched{{
				ItemID:      "umbrella",
				Qty:         2,
				Name:        "Umbrella",
				Description: "Large enough for two.",
				Attributes:  map[string]any{"icon": "items/umbrella.png"},
			}},
		},
		{
			name:     "missing item keeps id and quantity",
			entries:  []Entry{{ItemID: "ghost_item", Qty: 1}},
			expected: []Enriched{{ItemID: "ghost_item", Qty: 1}},
		},
		{
			name:    "order preserved",
			entries: []Entry{{ItemID: "ghost_item", Qty: 1}, {ItemID: "umbrella", Qty: 1}},
			expected: []Enriched{
				{ItemID: "ghost_item", Qty: 1},
				{ItemID: "umbrella", Qty: 1, Name: "Umbrella", Description: "Large enough for two.", Attributes: map[string]any{"icon": "items/umbrella.png"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Enrich(catalog, tt.entries))
		})
	}
}

func TestEnrich_DoesNotShareAttributes(t *testing.T) {
	catalog := mapCatalog{"hair_clip": {ID: "hair_clip", Attributes: map[string]any{"rarity": "rare"}}}

	out := Enrich(catalog, []Entry{{ItemID: "hair_clip", Qty: 1}})
	out[0].Attributes["rarity"] = "common"

	assert.Equal(t, "rare", catalog["hair_clip"].Attributes["rarity"])
}

func TestEntries(t *testing.T) {
	gs := state.NewGameState()
	gs.AdjustItem("umbrella", 1)
	gs.AdjustItem("festival_ticket", 2)

	assert.Equal(t, []Entry{
		{ItemID: "festival_ticket", Qty: 2},
		{ItemID: "umbrella", Qty: 1},
	}, Entries(gs))
	assert.Empty(t, Entries(nil))
}

func TestEnrich_SampleContent(t *testing.T) {
	store, err := story.Load("../../data/story")
	require.NoError(t, err)

	out := Enrich(store, []Entry{{ItemID: "hair_clip", Qty: 1}, {ItemID: "ghost_item", Qty: 3}})
	require.Len(t, out, 2)
	assert.Equal(t, "Hair Clip", out[0].Name)
	assert.Equal(t, true, out[0].Attributes["giftable"])
	assert.Equal(t, Enriched{ItemID: "ghost_item", Qty: 3}, out[1])
}
