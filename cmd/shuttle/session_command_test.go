package main

import (
	"encoding/json"
	"testing"
	"time"

	"shuttle/internal/bridge"
)

func TestSessionShowsBridgeFiles(t *testing.T) {
	env := setupCLITestEnv(t)

	br := bridge.New(env.cfg.Paths.BridgeDir)
	if err := br.WriteHeartbeat("sess-cli", bridge.HeartbeatRecord{TimestampEpochSeconds: time.Now().Unix()}); err != nil {
		t.Fatalf("seed heartbeat: %v", err)
	}

	out, _, err := runCLI(t, []string{"session"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	requireContains(t, out, "Session")
	requireContains(t, out, "Bridge Files")
	requireContains(t, out, "sess-cli")
	requireContains(t, out, "Fresh")
	requireContains(t, out, "heartbeat-sess-cli.json")
}

func TestSessionJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"session", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("session --json: %v", err)
	}

	var view map[string]any
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if view["session_id"] != "sess-cli" {
		t.Fatalf("expected session_id sess-cli, got %v", view["session_id"])
	}
	files, ok := view["files"].(map[string]any)
	if !ok {
		t.Fatalf("expected files object, got %v", view["files"])
	}
	for _, key := range []string{"lock", "heartbeat", "focus", "request", "completion"} {
		if _, ok := files[key]; !ok {
			t.Fatalf("missing %q path in session JSON", key)
		}
	}
}
