package daemon

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"shuttle/internal/bridge"
	"shuttle/internal/catalog"
	"shuttle/internal/config"
)

func newIntakeFixture(t *testing.T) (*Daemon, *intakeMonitor, config.Config) {
	t.Helper()
	cfg := newTestConfig(t)
	cfg.Intake.Enabled = true
	d := newTestDaemon(t, &cfg)
	if d.intake == nil {
		t.Fatal("intake monitor not constructed")
	}
	// Drive polls by hand instead of running the loop.
	d.intake.ctx = context.Background()
	return d, d.intake, cfg
}

func writeZip(t *testing.T, path string, members map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range members {
		entry, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := entry.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func backdate(t *testing.T, path string, age time.Duration) {
	t.Helper()
	past := time.Now().Add(-age)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatal(err)
	}
}

func TestEligibleBundle(t *testing.T) {
	dir := t.TempDir()
	want := map[string]bool{
		"rock.zip":         true,
		"ROCK.ZIP":         true,
		"scene.tar.gz":     true,
		"rock.zip.part":    false,
		"model.crdownload": false,
		".hidden.zip":      false,
		"notes.txt":        false,
		"folder.zip":       false,
	}
	for name := range want {
		if name == "folder.zip" {
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "folder.zip"), 0o755); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for _, entry := range entries {
		if got := eligibleBundle(entry); got != want[entry.Name()] {
			t.Errorf("eligibleBundle(%q) = %v, want %v", entry.Name(), got, want[entry.Name()])
		}
	}
}

func TestIntakePollAcquiresSettledBundle(t *testing.T) {
	d, m, cfg := newIntakeFixture(t)

	bundle := filepath.Join(cfg.Paths.DownloadsDir, "rock_x1234.zip")
	writeZip(t, bundle, map[string]string{"model.fbx": "payload"})
	backdate(t, bundle, 10*time.Second)

	m.poll()

	rows, err := d.catalog.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one catalog row, got %d", len(rows))
	}
	if rows[0].Status != catalog.StatusRequested {
		t.Fatalf("status = %q, want %q", rows[0].Status, catalog.StatusRequested)
	}
	if pending, _ := d.bridge.RequestPending(); !pending {
		t.Fatal("request should be waiting on the bridge")
	}
	if _, err := os.Stat(bundle); !os.IsNotExist(err) {
		t.Fatal("bundle should be deleted after extraction")
	}

	// A second poll must not start another acquisition for the same bundle
	// name even though the handled entry was pruned with the bundle.
	m.poll()
	rows, err = d.catalog.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one catalog row after second poll, got %d", len(rows))
	}

	target := filepath.Join(cfg.Paths.DownloadsDir, "rock_x1234")
	if err := d.bridge.WriteCompletion(bridge.Completion{AssetPath: target}); err != nil {
		t.Fatalf("WriteCompletion failed: %v", err)
	}
	waitFor(t, 3*time.Second, func() bool {
		rows, err := d.catalog.List(context.Background(), catalog.StatusImported)
		return err == nil && len(rows) == 1
	}, "acquisition never reached imported")
	d.pipeline.Wait()
}

func TestIntakePollSkipsFreshBundle(t *testing.T) {
	d, m, cfg := newIntakeFixture(t)

	bundle := filepath.Join(cfg.Paths.DownloadsDir, "rock_fresh.zip")
	writeZip(t, bundle, map[string]string{"model.fbx": "payload"})

	m.poll()

	rows, err := d.catalog.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("fresh bundle should not be acquired yet, got %d rows", len(rows))
	}

	backdate(t, bundle, 10*time.Second)
	m.poll()

	rows, err = d.catalog.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("settled bundle should be acquired, got %d rows", len(rows))
	}

	target := filepath.Join(cfg.Paths.DownloadsDir, "rock_fresh")
	if err := d.bridge.WriteCompletion(bridge.Completion{AssetPath: target}); err != nil {
		t.Fatalf("WriteCompletion failed: %v", err)
	}
	d.pipeline.Wait()
}

func TestIntakeForgetsRemovedBundles(t *testing.T) {
	_, m, cfg := newIntakeFixture(t)

	bundle := filepath.Join(cfg.Paths.DownloadsDir, "gone.zip")
	if err := os.WriteFile(bundle, []byte("not an archive"), 0o644); err != nil {
		t.Fatal(err)
	}
	backdate(t, bundle, 10*time.Second)

	m.poll()
	m.mu.Lock()
	_, tracked := m.handled[bundle]
	m.mu.Unlock()
	if !tracked {
		t.Fatal("bundle should be tracked after pickup")
	}

	if err := os.Remove(bundle); err != nil {
		t.Fatal(err)
	}
	m.poll()
	m.mu.Lock()
	_, tracked = m.handled[bundle]
	m.mu.Unlock()
	if tracked {
		t.Fatal("removed bundle should be forgotten")
	}
}
