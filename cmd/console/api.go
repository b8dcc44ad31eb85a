package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/novel-engine/internal/handlers"
	"github.com/jwebster45206/novel-engine/internal/session"
	"github.com/jwebster45206/novel-engine/pkg/achievement"
	"github.com/jwebster45206/novel-engine/pkg/inventory"
	"github.com/jwebster45206/novel-engine/pkg/relationship"
	"github.com/jwebster45206/novel-engine/pkg/state"
)

// errSlotEmpty is returned when the API reports an empty save slot.
var errSlotEmpty = errors.New("save slot is empty")

// APIClient talks to the novel engine API on behalf of one player.
type APIClient struct {
	client  *http.Client
	baseURL string
	player  uuid.UUID
}

func NewAPIClient(baseURL string, player uuid.UUID, timeout time.Duration) *APIClient {
	return &APIClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		player:  player,
	}
}

func (c *APIClient) testConnection() bool {
	resp, err := c.client.Get(c.baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

func (c *APIClient) savesURL(path string) string {
	return fmt.Sprintf("%s/v1/players/%s/saves%s", c.baseURL, c.player, path)
}

// do sends a JSON request and decodes the response into out. Any status other
// than want is turned into an error carrying the API's message.
func (c *APIClient) do(method, url string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != want {
		var errorResp handlers.ErrorResponse
		if err := json.Unmarshal(respBody, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(respBody))
		}
		if resp.StatusCode == http.StatusNotFound && strings.HasPrefix(errorResp.Error, session.ErrSlotEmpty.Error()) {
			return errSlotEmpty
		}
		return errors.New(errorResp.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *APIClient) listSaves() ([]*state.Save, error) {
	var saves []*state.Save
	if err := c.do(http.MethodGet, c.savesURL(""), nil, http.StatusOK, &saves); err != nil {
		return nil, err
	}
	return saves, nil
}

func (c *APIClient) newGame(slot int) (*handlers.SlotResponse, error) {
	var resp handlers.SlotResponse
	if err := c.do(http.MethodPost, c.savesURL(fmt.Sprintf("/%d", slot)), nil, http.StatusCreated, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *APIClient) getSlot(slot int) (*handlers.SlotResponse, error) {
	var resp handlers.SlotResponse
	if err := c.do(http.MethodGet, c.savesURL(fmt.Sprintf("/%d", slot)), nil, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// openSlot resumes a save, or starts a new game when the slot is empty.
func (c *APIClient) openSlot(slot int) (*handlers.SlotResponse, error) {
	resp, err := c.getSlot(slot)
	if errors.Is(err, errSlotEmpty) {
		return c.newGame(slot)
	}
	return resp, err
}

func (c *APIClient) choose(slot int, choiceID string) (*session.Outcome, error) {
	var out session.Outcome
	req := handlers.ChooseRequest{ChoiceID: choiceID}
	if err := c.do(http.MethodPost, c.savesURL(fmt.Sprintf("/%d/choice", slot)), req, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) useItem(slot int, itemID string) (*handlers.SlotResponse, error) {
	var resp handlers.SlotResponse
	if err := c.do(http.MethodPost, c.savesURL(fmt.Sprintf("/%d/items/%s/use", slot, itemID)), nil, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Sidebar is everything the status panel shows for a slot.
type Sidebar struct {
	Relationships []relationship.Standing
	Achievements  []achievement.Status
	Inventory     []inventory.Enriched
}

func (c *APIClient) sidebar(slot int) (*Sidebar, error) {
	var sb Sidebar
	if err := c.do(http.MethodGet, c.savesURL(fmt.Sprintf("/%d/relationships", slot)), nil, http.StatusOK, &sb.Relationships); err != nil {
		return nil, err
	}
	if err := c.do(http.MethodGet, c.savesURL(fmt.Sprintf("/%d/achievements", slot)), nil, http.StatusOK, &sb.Achievements); err != nil {
		return nil, err
	}
	if err := c.do(http.MethodGet, c.savesURL(fmt.Sprintf("/%d/inventory", slot)), nil, http.StatusOK, &sb.Inventory); err != nil {
		return nil, err
	}
	return &sb, nil
}

func (c *APIClient) exportSlot(slot int) (string, error) {
	var resp handlers.ExportResponse
	if err := c.do(http.MethodGet, c.savesURL(fmt.Sprintf("/%d/export", slot)), nil, http.StatusOK, &resp); err != nil {
		return "", err
	}
	return resp.Payload, nil
}

func (c *APIClient) importSlot(slot int, payload string) error {
	req := handlers.ImportRequest{Slot: slot, Payload: payload}
	return c.do(http.MethodPost, c.savesURL("/import"), req, http.StatusCreated, nil)
}
