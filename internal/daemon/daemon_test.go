package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"shuttle/internal/bridge"
	"shuttle/internal/catalog"
	"shuttle/internal/config"
	"shuttle/internal/history"
	"shuttle/internal/logging"
	"shuttle/internal/session"
)

func newTestConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.BridgeDir = t.TempDir()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.DownloadsDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Protocol.CompletionPollMs = 25
	cfg.Protocol.CompletionTimeout = 5
	cfg.Intake.Enabled = false
	return cfg
}

func newTestDaemon(t *testing.T, cfg *config.Config) *Daemon {
	t.Helper()
	logger := logging.NewNop()

	store, err := catalog.Open(cfg.CatalogPath())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	hist := history.NewStore(cfg.HistoryPath(), cfg.History.MaxEntries, logger)
	identity := session.Identity{ID: "sess-test", PID: os.Getpid()}

	d, err := New(cfg, store, hist, identity, logger)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestDaemonStartStop(t *testing.T) {
	cfg := newTestConfig(t)
	d := newTestDaemon(t, &cfg)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected running status")
	}
	if status.SessionID != "sess-test" || status.Degraded {
		t.Fatalf("session identity mismatch: %+v", status)
	}
	if status.PeerState != "waiting_grace" {
		t.Fatalf("peer state mismatch: %q", status.PeerState)
	}

	// The session lock record should appear on the bridge.
	b := bridge.New(cfg.Paths.BridgeDir)
	waitFor(t, 2*time.Second, func() bool {
		_, obs, _ := b.ObserveLock("sess-test")
		return obs == bridge.Valid
	}, "session lock record not written")

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected stopped status")
	}
	if _, obs, _ := b.ObserveLock("sess-test"); obs != bridge.Absent {
		t.Fatal("session lock record should be removed on stop")
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := newTestConfig(t)
	first := newTestDaemon(t, &cfg)
	second := newTestDaemon(t, &cfg)
	ctx := context.Background()

	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected second instance to be refused")
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("Start after release failed: %v", err)
	}
	second.Stop()
}

func TestDaemonImportFlow(t *testing.T) {
	cfg := newTestConfig(t)
	d := newTestDaemon(t, &cfg)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer d.Stop()

	folder := filepath.Join(cfg.Paths.DownloadsDir, "rock_x1234")
	if err := os.MkdirAll(folder, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(folder, "model.fbx"), []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}

	acq, err := d.ImportFile(ctx, folder)
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}
	if acq.Status != catalog.StatusRequested {
		t.Fatalf("status mismatch: %q", acq.Status)
	}

	// Act as the peer: consume the request, then answer it.
	req, obs, err := d.bridge.ObserveRequest()
	if err != nil || obs != bridge.Valid {
		t.Fatalf("request not readable: obs=%v err=%v", obs, err)
	}
	if err := d.bridge.ConsumeRequest(); err != nil {
		t.Fatalf("ConsumeRequest failed: %v", err)
	}
	if err := d.bridge.WriteCompletion(bridge.Completion{AssetPath: req.AssetPath}); err != nil {
		t.Fatalf("WriteCompletion failed: %v", err)
	}

	waitFor(t, 3*time.Second, func() bool {
		return d.history.Len() == 1
	}, "import never reached history")

	status := d.Status(ctx)
	if status.LastImport == nil {
		t.Fatal("status should report last import")
	}
	if status.CatalogStats[catalog.StatusImported] != 1 {
		t.Fatalf("catalog stats mismatch: %+v", status.CatalogStats)
	}
	if status.RequestPending {
		t.Fatal("request slot should be consumed")
	}
}

func TestDaemonImportRejectsMissingArtifact(t *testing.T) {
	cfg := newTestConfig(t)
	d := newTestDaemon(t, &cfg)
	ctx := context.Background()

	if _, err := d.ImportFile(ctx, "/nope"); err == nil {
		t.Fatal("expected error while stopped")
	}

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer d.Stop()

	if _, err := d.ImportFile(ctx, ""); err == nil {
		t.Fatal("expected error for empty path")
	}
	if _, err := d.ImportFile(ctx, filepath.Join(cfg.Paths.DownloadsDir, "ghost.zip")); err == nil {
		t.Fatal("expected error for missing artifact")
	}
}

func TestDaemonPeerLostTriggersCallback(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Protocol.HeartbeatGrace = 0
	cfg.Protocol.HeartbeatInterval = 1
	cfg.Protocol.HeartbeatTimeout = 2
	d := newTestDaemon(t, &cfg)

	lost := make(chan struct{})
	d.OnPeerLost(func() { close(lost) })

	// A heartbeat well past the staleness threshold.
	b := bridge.New(cfg.Paths.BridgeDir)
	stale := bridge.HeartbeatRecord{TimestampEpochSeconds: time.Now().Add(-time.Minute).Unix()}
	if err := b.WriteHeartbeat("sess-test", stale); err != nil {
		t.Fatalf("WriteHeartbeat failed: %v", err)
	}

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer d.Stop()

	select {
	case <-lost:
	case <-time.After(5 * time.Second):
		t.Fatal("peer-lost callback never fired")
	}

	status := d.Status(ctx)
	if status.PeerState != "terminated" {
		t.Fatalf("peer state mismatch: %q", status.PeerState)
	}
	if !status.PeerLost {
		t.Fatal("status should flag peer loss")
	}
}
