package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareAssignsRequestIDAndLogs(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", false)

	var seenRoute string
	var seenStatus int
	var ctxID string

	r := chi.NewRouter()
	r.Use(Middleware(log, func(route string, status int) {
		seenRoute, seenStatus = route, status
	}))
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		ctxID, _ = RequestIDFromContext(r.Context())
		FromContext(r.Context()).Debug().Msg("inside handler")
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/7", nil))

	id := rec.Header().Get(HeaderRequestID)
	require.NotEmpty(t, id)
	assert.Equal(t, id, ctxID)
	assert.Equal(t, "/items/{id}", seenRoute)
	assert.Equal(t, http.StatusTeapot, seenStatus)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[1], &entry))
	assert.Equal(t, id, entry["request_id"])
	assert.Equal(t, "request completed", entry["message"])
	assert.EqualValues(t, http.StatusTeapot, entry["status"])
}

func TestMiddlewareKeepsIncomingRequestID(t *testing.T) {
	h := Middleware(NewWithWriter(&bytes.Buffer{}, "info", false), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(HeaderRequestID))
}

func TestNewFallsBackToInfo(t *testing.T) {
	l := NewWithWriter(&bytes.Buffer{}, "nonsense", false)
	assert.Equal(t, "info", l.GetLevel().String())
}
