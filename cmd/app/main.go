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

	"signal_hub/internal/api"
	"signal_hub/internal/app"
	"signal_hub/internal/domain"
	"signal_hub/internal/service"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// 1. Pprof Server (for performance profiling)
	go func() {
		// Localhost only for security
		slog.Info("🕵️ Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := bootstrap.Config

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Core Signal Pipeline
	positions := service.NewPositionMemory(cfg.PositionMaxAge())
	cache := service.NewSignalCache(cfg.Freshness())
	symbols := domain.NewSymbolTable(cfg.Signals.Aliases, cfg.Signals.DefaultSymbol)

	broadcaster := service.NewBroadcaster(
		positions,
		cache,
		bootstrap.Storage,
		symbols,
		cfg.Signals.PipThreshold,
		cfg.Server.InternalKey,
		slog.Default(),
	)

	// 5. Websocket Hub (live push alongside the pull endpoint)
	hub := api.NewHub(bootstrap.Storage, slog.Default())
	broadcaster.SetNotifier(hub.Broadcast)

	// 6. HTTP Server
	server := api.NewServer(broadcaster, bootstrap.Storage, bootstrap.Feedback, hub, cfg.Server.InternalKey, slog.Default())
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "✅ Signal Hub listening", slog.String("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("❌ HTTP server failed", slog.Any("error", err))
			stop()
		}
	}()

	slog.InfoContext(ctx, "✨ Signal Hub fully operational. Press Ctrl+C to exit.")

	// Wait for shutdown signal
	<-ctx.Done()

	slog.InfoContext(ctx, "👋 Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Forced shutdown", slog.Any("error", err))
	}
}
