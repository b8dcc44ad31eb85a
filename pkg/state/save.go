package state

import (
	"time"

	"github.com/google/uuid"
)

// Save is one persisted save slot. Payload is the Encode output; Chapter and
// SceneID are denormalized from it so slots can be listed without decoding.
type Save struct {
	PlayerID  uuid.UUID `json:"player_id"`
	Slot      int       `json:"slot"`
	Chapter   int       `json:"chapter"`
	SceneID   string    `json:"scene_id"`
	Payload   string    `json:"payload"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSave encodes gs into a save record for the given slot.
func NewSave(playerID uuid.UUID, slot int, gs *GameState) (*Save, error) {
	payload, err := Encode(gs)
	if err != nil {
		return nil, err
	}
	s := &Save{
		PlayerID: playerID,
		Slot:     slot,
		Payload:  payload,
	}
	if gs != nil {
		s.Chapter = gs.CurrentChapter
		s.SceneID = gs.CurrentSceneID
	}
	return s, nil
}

// State decodes the slot's payload.
func (s *Save) State() (*GameState, error) {
	return Decode(s.Payload)
}
