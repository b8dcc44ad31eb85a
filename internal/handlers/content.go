package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/novel-engine/internal/session"
	"github.com/jwebster45206/novel-engine/pkg/engine"
	"github.com/jwebster45206/novel-engine/pkg/inventory"
	"github.com/jwebster45206/novel-engine/pkg/state"
	"github.com/jwebster45206/novel-engine/pkg/story"
)

// SceneLine is a dialogue line with the speaker's display name resolved.
type SceneLine struct {
	Speaker     string `json:"speaker,omitempty"`
	SpeakerName string `json:"speaker_name,omitempty"`
	Text        string `json:"text"`
	Expression  string `json:"expression,omitempty"`
}

// SceneResponse is a scene ready for display.
type SceneResponse struct {
	ID         string          `json:"id"`
	Chapter    int             `json:"chapter"`
	Title      string          `json:"title,omitempty"`
	Background string          `json:"background,omitempty"`
	Dialogue   []SceneLine     `json:"dialogue"`
	Choices    []story.Choice  `json:"choices"`
	SetFlags   map[string]bool `json:"set_flags,omitempty"`
}

func newSceneResponse(content *story.Store, scene *story.Scene, choices []story.Choice) SceneResponse {
	lines := make([]SceneLine, len(scene.Dialogue))
	for i, l := range scene.Dialogue {
		lines[i] = SceneLine{Speaker: l.Speaker, Text: l.Text, Expression: l.Expression}
		if l.Speaker != "" {
			lines[i].SpeakerName = content.SpeakerName(l.Speaker)
		}
	}
	return SceneResponse{
		ID:         scene.ID,
		Chapter:    scene.Chapter,
		Title:      scene.Title,
		Background: scene.Background,
		Dialogue:   lines,
		Choices:    choices,
		SetFlags:   scene.SetFlags,
	}
}

// SceneHandler serves scenes.
// Routes:
// GET /v1/scenes/{id}                        - Scene with every choice
// GET /v1/scenes/{id}?player={uuid}&slot={n} - Scene with the choices open to that save
type SceneHandler struct {
	sessions *session.Service
	logger   *slog.Logger
}

func NewSceneHandler(sessions *session.Service, logger *slog.Logger) *SceneHandler {
	return &SceneHandler{sessions: sessions, logger: logger}
}

func (h *SceneHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, h.logger, r, http.MethodGet)
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/scenes"), "/")
	if id == "" {
		writeError(w, h.logger, http.StatusBadRequest, "Scene ID is required")
		return
	}

	content := h.sessions.Content()
	scene, err := content.GetScene(id)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}

	choices := scene.Choices
	if playerParam := r.URL.Query().Get("player"); playerParam != "" {
		player, err := uuid.Parse(playerParam)
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "Invalid player ID format")
			return
		}
		slot, err := strconv.Atoi(r.URL.Query().Get("slot"))
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "Invalid slot")
			return
		}
		gs, err := h.sessions.Load(r.Context(), player, slot)
		if err != nil {
			writeServiceError(w, h.logger, r, err)
			return
		}
		choices = engine.AvailableChoices(scene, gs)
	}

	writeJSON(w, h.logger, http.StatusOK, newSceneResponse(content, scene, choices))
}

// ChoiceRequest resolves a choice against a caller-held state.
type ChoiceRequest struct {
	SceneID  string          `json:"scene_id"`
	ChoiceID string          `json:"choice_id"`
	State    json.RawMessage `json:"state,omitempty"` // Encoded game state; omitted means a new game
}

// ChoiceHandler resolves choices without touching storage.
// Routes:
// POST /v1/choice - Resolve a choice; returns the next scene and updated state
type ChoiceHandler struct {
	sessions *session.Service
	logger   *slog.Logger
}

func NewChoiceHandler(sessions *session.Service, logger *slog.Logger) *ChoiceHandler {
	return &ChoiceHandler{sessions: sessions, logger: logger}
}

func (h *ChoiceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, h.logger, r, http.MethodPost)
		return
	}

	var req ChoiceRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SceneID == "" || req.ChoiceID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "scene_id and choice_id are required")
		return
	}

	gs, err := state.Decode(string(req.State))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid state: "+err.Error())
		return
	}

	out, err := h.sessions.Apply(req.SceneID, req.ChoiceID, gs)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, out)
}

// CatalogHandler serves static story reference data.
// Routes:
// GET /v1/characters    - All characters
// GET /v1/achievements  - All achievement definitions
// GET /v1/gallery      - All gallery CGs
// GET /v1/endings/{id}  - One ending
type CatalogHandler struct {
	content *story.Store
	logger  *slog.Logger
}

func NewCatalogHandler(content *story.Store, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{content: content, logger: logger}
}

func (h *CatalogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, h.logger, r, http.MethodGet)
		return
	}

	switch path := strings.TrimSuffix(r.URL.Path, "/"); {
	case path == "/v1/characters":
		writeJSON(w, h.logger, http.StatusOK, h.content.ListCharacters())
	case path == "/v1/achievements":
		writeJSON(w, h.logger, http.StatusOK, h.content.ListAchievements())
	case path == "/v1/gallery":
		writeJSON(w, h.logger, http.StatusOK, h.content.ListGallery())
	case strings.HasPrefix(path, "/v1/endings/"):
		ending, err := h.content.GetEnding(strings.TrimPrefix(path, "/v1/endings/"))
		if err != nil {
			writeServiceError(w, h.logger, r, err)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, ending)
	default:
		writeError(w, h.logger, http.StatusNotFound, "Not found")
	}
}

// EnrichRequest lists inventory entries to enrich.
type EnrichRequest struct {
	Inventory []inventory.Entry `json:"inventory"`
}

// InventoryHandler joins caller-supplied inventory entries with item details.
// Routes:
// POST /v1/inventory/enrich
type InventoryHandler struct {
	content *story.Store
	logger  *slog.Logger
}

func NewInventoryHandler(content *story.Store, logger *slog.Logger) *InventoryHandler {
	return &InventoryHandler{content: content, logger: logger}
}

func (h *InventoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, h.logger, r, http.MethodPost)
		return
	}

	var req EnrichRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, inventory.Enrich(h.content, req.Inventory))
}
