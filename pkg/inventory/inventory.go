// Package inventory joins a player's held items with catalogue metadata.
package inventory

import (
	"maps"

	"github.com/jwebster45206/novel-engine/pkg/state"
	"github.com/jwebster45206/novel-engine/pkg/story"
)

// Entry is one held item.
type Entry struct {
	ItemID string `json:"item_id"`
	Qty    int    `json:"qty"`
}

// Enriched is an entry merged with its catalogue record. Items missing from
// the catalogue keep only ItemID and Qty.
type Enriched struct {
	ItemID      string         `json:"item_id"`
	Qty         int            `json:"qty"`
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
}

// ItemCatalog looks up item metadata. *story.Store implements it.
type ItemCatalog interface {
	GetItem(id string) (*story.Item, error)
}

var _ ItemCatalog = (*story.Store)(nil)

// Enrich merges each entry with its catalogue record, preserving order.
func Enrich(catalog ItemCatalog, entries []Entry) []Enriched {
	out := make([]Enriched, 0, len(entries))
	for _, e := range entries {
		en := Enriched{ItemID: e.ItemID, Qty: e.Qty}
		if catalog != nil {
			if item, err := catalog.GetItem(e.ItemID); err == nil && item != nil {
				en.Name = item.Name
				en.Description = item.Description
				en.Attributes = maps.Clone(item.Attributes)
			}
		}
		out = append(out, en)
	}
	return out
}

// Entries lists the state's inventory, sorted by item ID.
func Entries(gs *state.GameState) []Entry {
	if gs == nil {
		return []Entry{}
	}
	ids := gs.ItemIDs()
	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		out = append(out, Entry{ItemID: id, Qty: gs.Quantity(id)})
	}
	return out
}
