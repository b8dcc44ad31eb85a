package state

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Encode serializes a game state to its durable JSON text.
// Map keys and set members are emitted in sorted order, so equal states
// always encode to identical text.
func Encode(gs *GameState) (string, error) {
	if gs == nil {
		gs = NewGameState()
	}
	data, err := json.Marshal(gs)
	if err != nil {
		return "", fmt.Errorf("failed to encode game state: %w", err)
	}
	return string(data), nil
}

// Decode parses text produced by Encode. An empty or blank payload is a
// slot that was never written and decodes to NewGameState().
func Decode(payload string) (*GameState, error) {
	if strings.TrimSpace(payload) == "" {
		return NewGameState(), nil
	}

	var gs GameState
	if err := json.Unmarshal([]byte(payload), &gs); err != nil {
		return nil, fmt.Errorf("failed to decode game state: %w", err)
	}
	gs.normalize()
	return &gs, nil
}
