package main

import (
	"fmt"

	"shuttle/internal/config"
	"shuttle/internal/daemonrun"
)

// prepare validates the loaded configuration and derives runtime options
// for the daemon loop. The session token is left empty so resolution falls
// through to SHUTTLE_SESSION; service units set that variable per instance.
func prepare(cfg *config.Config) (daemonrun.Options, error) {
	if cfg == nil {
		return daemonrun.Options{}, fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return daemonrun.Options{}, fmt.Errorf("prepare directories: %w", err)
	}
	return daemonrun.Options{LogLevel: cfg.Logging.Level}, nil
}
