package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hubenschmidt/persian-voice-chat/internal/clock"
	"github.com/hubenschmidt/persian-voice-chat/internal/reply"
	"github.com/hubenschmidt/persian-voice-chat/internal/trace"
	"github.com/hubenschmidt/persian-voice-chat/internal/ws"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := run(); err != nil {
		slog.Error("gateway failed", "error", err)
		os.Exit(1)
	}
	slog.Info("gateway stopped")
}

func run() error {
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine := reply.NewEngine(nil)
	hcfg := ws.HandlerConfig{
		Engine:        engine,
		MaxConcurrent: cfg.maxConcurrent,
		MaxTextLength: cfg.maxTextLength,
		ReadTimeout:   cfg.readTimeout,
	}
	d := deps{cfg: cfg, engine: engine, started: time.Now()}

	if cfg.traceDatabaseURL != "" {
		openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		store, err := trace.Open(openCtx, cfg.traceDatabaseURL)
		cancel()
		if err != nil {
			slog.Warn("tracing disabled", "error", err)
		} else {
			defer store.Close()
			hcfg.Traces = store
			d.traces = store
			slog.Info("tracing enabled")
		}
	}

	d.wsHandler = ws.NewHandler(hcfg)
	mux := http.NewServeMux()
	registerRoutes(mux, d)

	addr := ":" + cfg.port
	srv := &http.Server{Addr: addr, Handler: withMiddleware(cfg, clock.Real(), mux), ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("gateway starting", "addr", addr, "max_concurrent", cfg.maxConcurrent, "environment", cfg.environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
