package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hubenschmidt/persian-voice-chat/internal/reply"
	"github.com/hubenschmidt/persian-voice-chat/internal/trace"
)

// traceReader is the query side of the trace store.
type traceReader interface {
	ListSessions(ctx context.Context, limit, offset int) ([]trace.Session, int, error)
	GetSession(ctx context.Context, id string) (*trace.Session, []trace.Turn, error)
	IntentCounts(ctx context.Context) (map[string]int, error)
}

type deps struct {
	cfg       config
	engine    *reply.Engine
	wsHandler http.Handler
	traces    traceReader
	started   time.Time
}

// registerRoutes wires all HTTP endpoints to the shared mux.
func registerRoutes(mux *http.ServeMux, d deps) {
	mux.Handle("/ws/chat", d.wsHandler)
	mux.HandleFunc("GET /health", d.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/classify", d.handleClassify)
	mux.HandleFunc("GET /api/intents", d.handleIntents)
	registerTraceRoutes(mux, d.traces, d.cfg.traceSessionPageSize)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response", "error", err)
	}
}

func (d deps) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"uptime_seconds": int(time.Since(d.started).Seconds()),
		"tracing":        d.traces != nil,
	})
}

// handleClassify runs the rule engine without a websocket, for debugging keyword sets.
func (d deps) handleClassify(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	if text == "" {
		http.Error(w, "missing text", http.StatusBadRequest)
		return
	}
	res := d.engine.Reply(text)
	writeJSON(w, http.StatusOK, map[string]any{
		"text":       text,
		"normalized": reply.Normalize(text),
		"intent":     res.Intent,
		"confidence": res.Confidence,
		"emotion":    res.Emotion,
		"reply":      res.Text,
	})
}

func (d deps) handleIntents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"intents": d.engine.Intents()})
}

func registerTraceRoutes(mux *http.ServeMux, store traceReader, pageSize int) {
	mux.HandleFunc("GET /api/traces/sessions", func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			http.Error(w, "tracing disabled", http.StatusNotFound)
			return
		}
		limit := queryInt(r, "limit", pageSize)
		offset := queryInt(r, "offset", 0)
		sessions, total, err := store.ListSessions(r.Context(), limit, offset)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions, "total": total})
	})

	mux.HandleFunc("GET /api/traces/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			http.Error(w, "tracing disabled", http.StatusNotFound)
			return
		}
		sess, turns, err := store.GetSession(r.Context(), r.PathValue("id"))
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"session": sess, "turns": turns})
	})

	mux.HandleFunc("GET /api/traces/intents", func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			http.Error(w, "tracing disabled", http.StatusNotFound)
			return
		}
		counts, err := store.IntentCounts(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"intents": counts})
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
