package main

import (
	"time"

	"github.com/hubenschmidt/persian-voice-chat/internal/env"
	"github.com/hubenschmidt/persian-voice-chat/internal/ws"
)

type config struct {
	port                 string
	maxConcurrent        int
	maxTextLength        int
	traceDatabaseURL     string
	readTimeout          time.Duration
	shutdownTimeout      time.Duration
	traceSessionPageSize int
	maxRequestsPerMinute int
	environment          string
}

func loadConfig() config {
	return config{
		port:                 env.Str("GATEWAY_PORT", "8000"),
		maxConcurrent:        env.Int("MAX_CONCURRENT_CONNECTIONS", 100),
		maxTextLength:        env.Int("MAX_TEXT_LENGTH", ws.DefaultMaxTextLength),
		traceDatabaseURL:     env.Str("TRACE_DATABASE_URL", ""),
		readTimeout:          env.Duration("WS_READ_TIMEOUT", 90*time.Second),
		shutdownTimeout:      env.Duration("SHUTDOWN_TIMEOUT", 15*time.Second),
		traceSessionPageSize: env.Int("TRACE_SESSION_PAGE_SIZE", 20),
		maxRequestsPerMinute: env.Int("MAX_REQUESTS_PER_MINUTE", 60),
		environment:          env.Str("ENVIRONMENT", "development"),
	}
}
