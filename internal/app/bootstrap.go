package app

import (
	"log/slog"
	"time"

	"signal_hub/internal/infra"
	"signal_hub/internal/infra/storage"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config   *infra.Config
	Storage  *storage.Storage
	Feedback *infra.FeedbackLog
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logger, DB, feedback log)
func (b *Bootstrap) Initialize() error {
	slog.Info("🚀 Bootstrapping Signal Hub...")

	// 1. Load Config
	cfg, err := infra.LoadConfig("configs/config.yaml")
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	b.Storage = store
	if err := store.EnsureInternalKey(cfg.Server.InternalKey, time.Now()); err != nil {
		return err
	}
	slog.Info("✅ Database initialized")

	// 4. Initialize Feedback Log
	feedback, err := infra.NewFeedbackLog(cfg.Storage.FeedbackPath)
	if err != nil {
		return err
	}
	b.Feedback = feedback
	slog.Info("✅ Feedback log ready")

	return nil
}
