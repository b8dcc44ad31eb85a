package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/novel-engine/internal/session"
	"github.com/jwebster45206/novel-engine/pkg/storage"
)

// NewRouter registers every API route on a new mux.
func NewRouter(sessions *session.Service, store storage.Storage, logger *slog.Logger) *http.ServeMux {
	content := sessions.Content()
	mux := http.NewServeMux()

	mux.Handle("/health", NewHealthHandler(store, content, logger))

	mux.Handle("/v1/scenes/", NewSceneHandler(sessions, logger))
	mux.Handle("/v1/choice", NewChoiceHandler(sessions, logger))

	catalogHandler := NewCatalogHandler(content, logger)
	mux.Handle("/v1/characters", catalogHandler)
	mux.Handle("/v1/achievements", catalogHandler)
	mux.Handle("/v1/gallery", catalogHandler)
	mux.Handle("/v1/endings/", catalogHandler)

	mux.Handle("/v1/inventory/enrich", NewInventoryHandler(content, logger))

	mux.Handle("/v1/players/", NewSavesHandler(sessions, logger))

	return mux
}
