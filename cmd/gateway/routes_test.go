package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubenschmidt/persian-voice-chat/internal/reply"
	"github.com/hubenschmidt/persian-voice-chat/internal/trace"
)

type fakeTraces struct {
	lastLimit, lastOffset int
}

func (f *fakeTraces) ListSessions(_ context.Context, limit, offset int) ([]trace.Session, int, error) {
	f.lastLimit, f.lastOffset = limit, offset
	return []trace.Session{{ID: "s1", TurnCount: 2}}, 1, nil
}

func (f *fakeTraces) GetSession(_ context.Context, id string) (*trace.Session, []trace.Turn, error) {
	if id != "s1" {
		return nil, nil, sql.ErrNoRows
	}
	return &trace.Session{ID: "s1"}, []trace.Turn{{ID: "t1", Intent: "greeting"}}, nil
}

func (f *fakeTraces) IntentCounts(context.Context) (map[string]int, error) {
	return map[string]int{"greeting": 3}, nil
}

func newMux(traces traceReader) *http.ServeMux {
	mux := http.NewServeMux()
	registerRoutes(mux, deps{
		cfg:       config{traceSessionPageSize: 20},
		engine:    reply.NewEngine(nil),
		wsHandler: http.NotFoundHandler(),
		traces:    traces,
		started:   time.Now(),
	})
	return mux
}

func get(t *testing.T, mux http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]any
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	rec, body := get(t, newMux(nil), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, false, body["tracing"])
}

func TestClassifyEndpoint(t *testing.T) {
	rec, body := get(t, newMux(nil), "/api/classify?text="+url.QueryEscape("هوا چطوره"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, reply.IntentWeather, body["intent"])
	assert.NotEmpty(t, body["reply"])

	rec, _ = get(t, newMux(nil), "/api/classify")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIntentsEndpoint(t *testing.T) {
	_, body := get(t, newMux(nil), "/api/intents")
	intents, ok := body["intents"].([]any)
	require.True(t, ok)
	assert.Equal(t, reply.IntentGreeting, intents[0])
	assert.Equal(t, reply.IntentGeneral, intents[len(intents)-1])
}

func TestMetricsExposed(t *testing.T) {
	rec, _ := get(t, newMux(nil), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gateway_connections_active")
}

func TestTraceRoutes(t *testing.T) {
	traces := &fakeTraces{}
	mux := newMux(traces)

	rec, body := get(t, mux, "/api/traces/sessions?limit=5&offset=bogus")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["total"])
	assert.Equal(t, 5, traces.lastLimit)
	assert.Equal(t, 0, traces.lastOffset)

	rec, body = get(t, mux, "/api/traces/sessions/s1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["turns"], 1)

	rec, _ = get(t, mux, "/api/traces/sessions/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, body = get(t, mux, "/api/traces/intents")
	assert.Equal(t, map[string]any{"greeting": float64(3)}, body["intents"])
}

func TestTraceRoutesDisabled(t *testing.T) {
	rec, _ := get(t, newMux(nil), "/api/traces/sessions")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
