package main

import (
	"encoding/json"
	"testing"
	"time"

	"shuttle/internal/history"
)

func seedHistory(t *testing.T, env *cliTestEnv, name, assetType, path string) history.Entry {
	t.Helper()
	entry, err := env.hist.Add(history.Entry{
		AssetName:              name,
		AssetType:              assetType,
		AssetPath:              path,
		ImportTimestampEpochMs: time.Now().UnixMilli(),
	})
	if err != nil {
		t.Fatalf("seed history: %v", err)
	}
	return entry
}

func TestHistoryList(t *testing.T) {
	env := setupCLITestEnv(t)

	seedHistory(t, env, "Alpha", "show", "/srv/assets/Alpha")
	seedHistory(t, env, "Beta", "film", "/srv/assets/Beta")

	out, _, err := runCLI(t, []string{"history", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "Alpha")
	requireContains(t, out, "Beta")
	requireContains(t, out, "Film")
}

func TestHistoryListLimit(t *testing.T) {
	env := setupCLITestEnv(t)

	seedHistory(t, env, "Oldest", "show", "/srv/assets/Oldest")
	seedHistory(t, env, "Newest", "show", "/srv/assets/Newest")

	out, _, err := runCLI(t, []string{"history", "list", "--limit", "1", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("history list --limit: %v", err)
	}

	var entries []map[string]any
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0]["assetName"] != "Newest" {
		t.Fatalf("expected newest entry first, got %v", entries[0]["assetName"])
	}
}

func TestHistoryClear(t *testing.T) {
	env := setupCLITestEnv(t)

	seedHistory(t, env, "Alpha", "show", "/srv/assets/Alpha")

	out, _, err := runCLI(t, []string{"history", "clear"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("history clear: %v", err)
	}
	requireContains(t, out, "History cleared")

	if env.hist.Len() != 0 {
		t.Fatalf("expected empty history, got %d entries", env.hist.Len())
	}

	out, _, err = runCLI(t, []string{"history", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("history list after clear: %v", err)
	}
	requireContains(t, out, "History is empty")
}

// TestHistoryFallbackWithoutDaemon reads the history file directly when the
// daemon socket is gone.
func TestHistoryFallbackWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)

	seedHistory(t, env, "Alpha", "show", "/srv/assets/Alpha")

	env.server.Close()

	out, _, err := runCLI(t, []string{"history", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("history list without daemon: %v", err)
	}
	requireContains(t, out, "Alpha")
}
