package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/novel-engine/internal/middleware"
	"github.com/jwebster45206/novel-engine/pkg/engine"
)

func TestWriteServiceError_LogsRequestAndError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
		wantLevel  string
	}{
		{
			name:       "internal failure is logged and hidden",
			err:        errors.New("disk full"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   "Internal server error",
			wantLevel:  "ERROR",
		},
		{
			name:       "rejection is passed through",
			err:        fmt.Errorf("%w: nope", engine.ErrInvalidChoice),
			wantStatus: http.StatusBadRequest,
			wantBody:   "invalid choice: nope",
			wantLevel:  "DEBUG",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			h := middleware.Logger(log, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeServiceError(w, log, r, tt.err)
			}))

			req := httptest.NewRequest(http.MethodGet, "/v1/characters", nil)
			req.Header.Set(middleware.RequestIDHeader, "req-42")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantBody, resp.Error)

			// First record comes from writeServiceError, the second from the middleware.
			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			require.Len(t, lines, 2)
			var record map[string]any
			require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
			assert.Equal(t, tt.wantLevel, record["level"])
			assert.Equal(t, tt.err.Error(), record["error"])
			assert.Equal(t, "req-42", record["request_id"])
		})
	}
}
