package infra

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewLogger_UsesConfiguredFile(t *testing.T) {
	dir := t.TempDir()
	var cfg Config
	cfg.Logging.File = filepath.Join(dir, "logs", "hub.log")
	cfg.Logging.Level = "debug"
	cfg.Logging.MaxSizeMB = 1
	cfg.Logging.MaxBackups = 1
	cfg.Logging.MaxAgeDays = 1

	log := NewLogger(&cfg)
	if log == nil {
		t.Fatal("expected a logger")
	}
	log.Info("startup check entry")

	// The configured directory is created and the log file lands in it
	if _, err := os.Stat(cfg.Logging.File); err != nil {
		t.Errorf("expected log file at configured path: %v", err)
	}
}
