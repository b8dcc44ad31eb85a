package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/novel-engine/internal/session"
	"github.com/jwebster45206/novel-engine/pkg/engine"
	"github.com/jwebster45206/novel-engine/pkg/state"
	"github.com/jwebster45206/novel-engine/pkg/story"
)

// SlotResponse is a save slot with the scene the player is looking at.
type SlotResponse struct {
	PlayerID string           `json:"player_id"`
	Slot     int              `json:"slot"`
	State    *state.GameState `json:"state"`
	Scene    *SceneResponse   `json:"scene,omitempty"`
	Ending   *story.Ending    `json:"ending,omitempty"`
}

type ChooseRequest struct {
	ChoiceID string `json:"choice_id"`
}

type ImportRequest struct {
	Slot    int    `json:"slot"`
	Payload string `json:"payload"`
}

type ExportResponse struct {
	Slot    int    `json:"slot"`
	Payload string `json:"payload"`
}

// SavesHandler exposes a player's save slots.
// Routes:
// GET    /v1/players/{player}/saves                       - List slots
// POST   /v1/players/{player}/saves/import                - Import an exported payload
// POST   /v1/players/{player}/saves/{slot}                - Start a new game in the slot
// GET    /v1/players/{player}/saves/{slot}                - Read the slot
// PUT    /v1/players/{player}/saves/{slot}                - Overwrite the slot's state
// DELETE /v1/players/{player}/saves/{slot}                - Clear the slot
// POST   /v1/players/{player}/saves/{slot}/choice         - Make a choice
// POST   /v1/players/{player}/saves/{slot}/items/{id}/use - Use one item
// GET    /v1/players/{player}/saves/{slot}/achievements
// GET    /v1/players/{player}/saves/{slot}/gallery
// GET    /v1/players/{player}/saves/{slot}/inventory
// GET    /v1/players/{player}/saves/{slot}/relationships
// GET    /v1/players/{player}/saves/{slot}/export
type SavesHandler struct {
	sessions *session.Service
	logger   *slog.Logger
}

func NewSavesHandler(sessions *session.Service, logger *slog.Logger) *SavesHandler {
	return &SavesHandler{sessions: sessions, logger: logger}
}

func (h *SavesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/players"), "/"), "/")
	if len(parts) < 2 || parts[1] != "saves" {
		writeError(w, h.logger, http.StatusNotFound, "Not found")
		return
	}

	player, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid player ID", "id", parts[0], "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid player ID format")
		return
	}

	rest := parts[2:]
	if len(rest) == 0 {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, h.logger, r, http.MethodGet)
			return
		}
		h.handleList(w, r, player)
		return
	}

	if rest[0] == "import" && len(rest) == 1 {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, h.logger, r, http.MethodPost)
			return
		}
		h.handleImport(w, r, player)
		return
	}

	slot, err := strconv.Atoi(rest[0])
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid slot")
		return
	}

	switch {
	case len(rest) == 1:
		switch r.Method {
		case http.MethodPost:
			h.handleNewGame(w, r, player, slot)
		case http.MethodGet:
			h.handleRead(w, r, player, slot)
		case http.MethodPut:
			h.handleWrite(w, r, player, slot)
		case http.MethodDelete:
			h.handleDelete(w, r, player, slot)
		default:
			methodNotAllowed(w, h.logger, r, http.MethodPost, http.MethodGet, http.MethodPut, http.MethodDelete)
		}

	case len(rest) == 2 && rest[1] == "choice":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, h.logger, r, http.MethodPost)
			return
		}
		h.handleChoice(w, r, player, slot)

	case len(rest) == 4 && rest[1] == "items" && rest[3] == "use":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, h.logger, r, http.MethodPost)
			return
		}
		h.handleUseItem(w, r, player, slot, rest[2])

	case len(rest) == 2:
		if r.Method != http.MethodGet {
			methodNotAllowed(w, h.logger, r, http.MethodGet)
			return
		}
		h.handleView(w, r, player, slot, rest[1])

	default:
		writeError(w, h.logger, http.StatusNotFound, "Not found")
	}
}

func (h *SavesHandler) handleList(w http.ResponseWriter, r *http.Request, player uuid.UUID) {
	saves, err := h.sessions.List(r.Context(), player)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, saves)
}

// slotResponse attaches the current scene, or the ending once the story is over.
func (h *SavesHandler) slotResponse(player uuid.UUID, slot int, gs *state.GameState) SlotResponse {
	resp := SlotResponse{PlayerID: player.String(), Slot: slot, State: gs}
	content := h.sessions.Content()
	if gs.Ended {
		if ending, err := content.GetEnding(gs.EndingID); err == nil {
			resp.Ending = ending
		}
		return resp
	}
	if scene, err := content.GetScene(gs.CurrentSceneID); err == nil {
		sr := newSceneResponse(content, scene, engine.AvailableChoices(scene, gs))
		resp.Scene = &sr
	}
	return resp
}

func (h *SavesHandler) handleNewGame(w http.ResponseWriter, r *http.Request, player uuid.UUID, slot int) {
	save, err := h.sessions.NewGame(r.Context(), player, slot)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	gs, err := save.State()
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, h.slotResponse(player, slot, gs))
}

func (h *SavesHandler) handleRead(w http.ResponseWriter, r *http.Request, player uuid.UUID, slot int) {
	gs, err := h.sessions.Load(r.Context(), player, slot)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, h.slotResponse(player, slot, gs))
}

func (h *SavesHandler) handleWrite(w http.ResponseWriter, r *http.Request, player uuid.UUID, slot int) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	gs, err := state.Decode(string(body))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid state: "+err.Error())
		return
	}
	save, err := h.sessions.Save(r.Context(), player, slot, gs)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, save)
}

func (h *SavesHandler) handleDelete(w http.ResponseWriter, r *http.Request, player uuid.UUID, slot int) {
	if err := h.sessions.Delete(r.Context(), player, slot); err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SavesHandler) handleChoice(w http.ResponseWriter, r *http.Request, player uuid.UUID, slot int) {
	var req ChooseRequest
	if err := decodeBody(w, r, &req); err != nil || req.ChoiceID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "choice_id is required")
		return
	}
	out, err := h.sessions.Choose(r.Context(), player, slot, req.ChoiceID)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, out)
}

func (h *SavesHandler) handleUseItem(w http.ResponseWriter, r *http.Request, player uuid.UUID, slot int, itemID string) {
	if _, err := h.sessions.Content().GetItem(itemID); err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	gs, err := h.sessions.UseItem(r.Context(), player, slot, itemID)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, h.slotResponse(player, slot, gs))
}

func (h *SavesHandler) handleView(w http.ResponseWriter, r *http.Request, player uuid.UUID, slot int, view string) {
	ctx := r.Context()
	var (
		body any
		err  error
	)
	switch view {
	case "achievements":
		body, err = h.sessions.Achievements(ctx, player, slot)
	case "gallery":
		body, err = h.sessions.Gallery(ctx, player, slot)
	case "inventory":
		body, err = h.sessions.Inventory(ctx, player, slot)
	case "relationships":
		body, err = h.sessions.Relationships(ctx, player, slot)
	case "export":
		var payload string
		payload, err = h.sessions.Export(ctx, player, slot)
		body = ExportResponse{Slot: slot, Payload: payload}
	default:
		writeError(w, h.logger, http.StatusNotFound, "Not found")
		return
	}
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, body)
}

func (h *SavesHandler) handleImport(w http.ResponseWriter, r *http.Request, player uuid.UUID) {
	var req ImportRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Payload) == "" {
		writeError(w, h.logger, http.StatusBadRequest, "payload is required")
		return
	}
	save, err := h.sessions.Import(r.Context(), player, req.Slot, req.Payload)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, save)
}
