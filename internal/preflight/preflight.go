package preflight

import (
	"context"
	"strings"

	"shuttle/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Bridge and data directories (always checked)
	results = append(results, CheckDirectoryAccess("Bridge directory", cfg.Paths.BridgeDir))
	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))

	// Downloads directory (when intake is enabled)
	if cfg.Intake.Enabled {
		results = append(results, CheckDirectoryAccess("Downloads directory", cfg.Paths.DownloadsDir))
	}

	// Ntfy topic (when configured)
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic))
	}

	return results
}

// Failures filters results down to the checks that did not pass.
func Failures(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
