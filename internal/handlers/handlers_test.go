package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/novel-engine/internal/services/events"
	"github.com/jwebster45206/novel-engine/internal/session"
	"github.com/jwebster45206/novel-engine/pkg/storage"
	"github.com/jwebster45206/novel-engine/pkg/story"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

func testContent(t *testing.T) *story.Store {
	t.Helper()
	content, err := story.Load("../../data/story")
	require.NoError(t, err)
	return content
}

type testServer struct {
	handler  http.Handler
	storage  *storage.MockStorage
	recorder *events.Recorder
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := testLogger()
	store := storage.NewMockStorage()
	recorder := &events.Recorder{}
	sessions := session.NewService(testContent(t), store, recorder, 3, logger)
	return &testServer{
		handler:  NewRouter(sessions, store, logger),
		storage:  store,
		recorder: recorder,
	}
}

// do sends a request and decodes a JSON response into out when out is non-nil.
func (s *testServer) do(t *testing.T, method, path string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)

	if out != nil {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), out), "body: %s", rr.Body.String())
	}
	return rr
}
