package main

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"shuttle/internal/testsupport"
)

func TestImportsStatusAndList(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	alpha := testsupport.NewAcquisition(t, env.store, "/srv/assets/Alpha", "")
	if err := env.store.MarkValidated(ctx, alpha.ID, "Alpha", "show", false); err != nil {
		t.Fatalf("validate alpha: %v", err)
	}
	beta := testsupport.NewAcquisition(t, env.store, "/srv/assets/Beta", "")
	if err := env.store.MarkFailed(ctx, beta.ID, "no peer response"); err != nil {
		t.Fatalf("fail beta: %v", err)
	}

	out, _, err := runCLI(t, []string{"imports", "status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("imports status: %v", err)
	}
	requireContains(t, out, "Validated")
	requireContains(t, out, "Failed")

	out, _, err = runCLI(t, []string{"imports", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("imports list: %v", err)
	}
	requireContains(t, out, "Alpha")
	requireContains(t, out, "Beta")
	requireContains(t, out, "no peer response")
}

func TestImportsListStatusFilter(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	testsupport.NewAcquisition(t, env.store, "/srv/assets/Alpha", "")
	beta := testsupport.NewAcquisition(t, env.store, "/srv/assets/Beta", "")
	if err := env.store.MarkFailed(ctx, beta.ID, "boom"); err != nil {
		t.Fatalf("fail beta: %v", err)
	}

	out, _, err := runCLI(t, []string{"imports", "list", "--status", "failed"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("imports list --status: %v", err)
	}
	requireContains(t, out, "Beta")
	if strings.Contains(out, "Alpha") {
		t.Fatalf("expected filtered list to omit Alpha, got:\n%s", out)
	}
}

func TestImportsClear(t *testing.T) {
	env := setupCLITestEnv(t)

	testsupport.NewAcquisition(t, env.store, "/srv/assets/Alpha", "")
	testsupport.NewAcquisition(t, env.store, "/srv/assets/Beta", "")

	out, _, err := runCLI(t, []string{"imports", "clear"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("imports clear: %v", err)
	}
	requireContains(t, out, "Cleared 2 catalog entries")

	out, _, err = runCLI(t, []string{"imports", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("imports list after clear: %v", err)
	}
	requireContains(t, out, "Catalog is empty")
}

func TestImportsListJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	testsupport.NewAcquisition(t, env.store, "/srv/assets/Alpha", "")
	testsupport.NewAcquisition(t, env.store, "/srv/assets/Beta", "")

	out, _, err := runCLI(t, []string{"imports", "list", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("imports list --json: %v", err)
	}

	var items []map[string]any
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	for _, item := range items {
		if _, ok := item["id"]; !ok {
			t.Fatal("missing 'id' key in JSON item")
		}
		if item["status"] != "pending" {
			t.Fatalf("expected pending status, got %v", item["status"])
		}
	}
}

// TestImportsFallbackWithoutDaemon exercises direct catalog access when no
// daemon socket is listening.
func TestImportsFallbackWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)

	testsupport.NewAcquisition(t, env.store, "/srv/assets/Alpha", "")

	env.server.Close()

	out, _, err := runCLI(t, []string{"imports", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("imports list without daemon: %v", err)
	}
	requireContains(t, out, "Alpha")
}
