package main

import (
	"os"
	"path/filepath"
	"testing"

	"shuttle/internal/config"
)

func TestPrepareCreatesDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.BridgeDir = filepath.Join(root, "bridge")
	cfg.Paths.DownloadsDir = filepath.Join(root, "downloads")
	cfg.Paths.DataDir = filepath.Join(root, "data")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	cfg.Intake.Enabled = false

	opts, err := prepare(&cfg)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if opts.LogLevel != cfg.Logging.Level {
		t.Fatalf("expected log level %q, got %q", cfg.Logging.Level, opts.LogLevel)
	}

	for _, dir := range []string{cfg.Paths.BridgeDir, cfg.Paths.DataDir, cfg.Paths.LogDir} {
		if _, err := os.Stat(dir); err != nil {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
	if _, err := os.Stat(cfg.Paths.DownloadsDir); !os.IsNotExist(err) {
		t.Fatalf("expected downloads dir to stay absent while intake disabled, got %v", err)
	}
}

func TestPrepareNilConfig(t *testing.T) {
	if _, err := prepare(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}
