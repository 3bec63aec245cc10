package importer_test

import (
	"archive/zip"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"shuttle/internal/bridge"
	"shuttle/internal/catalog"
	"shuttle/internal/config"
	"shuttle/internal/history"
	"shuttle/internal/importer"
	"shuttle/internal/logging"
	"shuttle/internal/session"
)

type recordingNotifier struct {
	mu        sync.Mutex
	completed []string
	failed    []string
}

func (r *recordingNotifier) NotifyImportCompleted(_ context.Context, assetName, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, assetName)
	return nil
}

func (r *recordingNotifier) NotifyImportFailed(_ context.Context, assetName, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, assetName)
	return nil
}

func (r *recordingNotifier) NotifyPeerLost(context.Context, string) error     { return nil }
func (r *recordingNotifier) NotifyError(context.Context, error, string) error { return nil }
func (r *recordingNotifier) TestNotification(context.Context) error           { return nil }

func (r *recordingNotifier) completions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.completed...)
}

func (r *recordingNotifier) failures() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.failed...)
}

type fixture struct {
	ctx       context.Context
	cfg       *config.Config
	bridge    *bridge.Bridge
	catalog   *catalog.Store
	history   *history.Store
	pipeline  *importer.Pipeline
	results   chan importer.Result
	notifier  *recordingNotifier
	downloads string
}

func newFixture(t *testing.T, completionTimeout time.Duration) *fixture {
	return newFixtureWithLogger(t, completionTimeout, logging.NewNop())
}

func newFixtureWithLogger(t *testing.T, completionTimeout time.Duration, logger *slog.Logger) *fixture {
	t.Helper()

	cfg := config.Default()
	cfg.Paths.BridgeDir = t.TempDir()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.DownloadsDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	b := bridge.New(cfg.Paths.BridgeDir)
	channel := bridge.NewChannel(b, 25*time.Millisecond, completionTimeout, logger)

	store, err := catalog.Open(cfg.CatalogPath())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	hist := history.NewStore(cfg.HistoryPath(), 50, logger)

	results := make(chan importer.Result, 4)
	collab := importer.CollaboratorFunc(func(res importer.Result) { results <- res })
	notifier := &recordingNotifier{}
	identity := session.Identity{ID: "sess-1", PID: os.Getpid()}

	pipeline := importer.NewWithCollaborators(&cfg, channel, store, hist, identity, notifier, collab, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		pipeline.Wait()
	})

	return &fixture{
		ctx:       ctx,
		cfg:       &cfg,
		bridge:    b,
		catalog:   store,
		history:   hist,
		pipeline:  pipeline,
		results:   results,
		notifier:  notifier,
		downloads: cfg.Paths.DownloadsDir,
	}
}

func (f *fixture) awaitResult(t *testing.T) importer.Result {
	t.Helper()
	select {
	case res := <-f.results:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for pipeline outcome")
	}
	return importer.Result{}
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

func TestAcquireEndToEndFromBundle(t *testing.T) {
	f := newFixture(t, 5*time.Second)
	bundle := filepath.Join(f.downloads, "rock_x1234.zip")
	writeZip(t, bundle, map[string]string{
		"model.fbx":     "binary model payload",
		"asset.json":    `{"name": "Rock X1234", "type": "model"}`,
		"thumbnail.png": "png bytes",
	})

	acq, err := f.pipeline.Acquire(f.ctx, bundle)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if acq.Status != catalog.StatusRequested {
		t.Fatalf("status mismatch: %q", acq.Status)
	}
	if acq.AlreadyExisted {
		t.Fatal("fresh bundle should not report alreadyExisted")
	}

	target := filepath.Join(f.downloads, "rock_x1234")
	req, obs, err := f.bridge.ObserveRequest()
	if err != nil || obs != bridge.Valid {
		t.Fatalf("request not readable: obs=%v err=%v", obs, err)
	}
	if req.AssetPath != target {
		t.Fatalf("request asset path mismatch: %q", req.AssetPath)
	}
	if req.AssetName != "Rock X1234" || req.AssetType != "model" {
		t.Fatalf("request metadata mismatch: %+v", req)
	}
	if req.ThumbnailPath == "" {
		t.Fatal("request thumbnail path not set")
	}
	if req.SessionID != "sess-1" {
		t.Fatalf("request session mismatch: %q", req.SessionID)
	}
	if _, err := os.Stat(bundle); !os.IsNotExist(err) {
		t.Fatal("bundle should be deleted after extraction")
	}

	if err := f.bridge.WriteCompletion(bridge.Completion{AssetPath: target, AssetName: "Rock X1234"}); err != nil {
		t.Fatalf("WriteCompletion failed: %v", err)
	}

	res := f.awaitResult(t)
	if res.Err != nil {
		t.Fatalf("unexpected pipeline error: %v", res.Err)
	}
	if res.Completion == nil || res.Completion.AssetPath != target {
		t.Fatalf("completion mismatch: %+v", res.Completion)
	}
	if !strings.HasPrefix(res.InlineThumbnail, "data:image/png;base64,") {
		t.Fatalf("inline thumbnail mismatch: %q", res.InlineThumbnail)
	}
	if res.HistoryEntry == nil {
		t.Fatal("history entry missing from result")
	}

	if f.history.Len() != 1 {
		t.Fatalf("history length mismatch: %d", f.history.Len())
	}
	entries := f.history.Entries()
	if entries[0].AssetName != "Rock X1234" {
		t.Fatalf("history entry mismatch: %+v", entries[0])
	}
	if entries[0].CachedThumbnail == "" {
		t.Fatal("history entry should record cached thumbnail")
	}
	if _, err := os.Stat(entries[0].CachedThumbnail); err != nil {
		t.Fatalf("cached thumbnail missing: %v", err)
	}

	got, err := f.catalog.GetByID(f.ctx, acq.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != catalog.StatusImported {
		t.Fatalf("catalog status mismatch: %q", got.Status)
	}

	if _, obs, _ := f.bridge.ObserveCompletion(); obs != bridge.Absent {
		t.Fatal("completion slot should be consumed")
	}
	if completions := f.notifier.completions(); len(completions) != 1 || completions[0] != "Rock X1234" {
		t.Fatalf("completion notifications mismatch: %v", completions)
	}
}

func TestAcquireDedupSkipsReacquisition(t *testing.T) {
	f := newFixture(t, 5*time.Second)
	folder := filepath.Join(f.downloads, "rock_live")
	if err := os.MkdirAll(folder, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(folder, "model.fbx"), []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}

	acq, err := f.pipeline.Acquire(f.ctx, folder)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if !acq.AlreadyExisted {
		t.Fatal("valid pre-existing folder should report alreadyExisted")
	}
	if acq.Status != catalog.StatusRequested {
		t.Fatalf("status mismatch: %q", acq.Status)
	}

	req, obs, err := f.bridge.ObserveRequest()
	if err != nil || obs != bridge.Valid {
		t.Fatalf("request not readable: obs=%v err=%v", obs, err)
	}
	if req.AssetPath != folder {
		t.Fatalf("request asset path mismatch: %q", req.AssetPath)
	}

	if err := f.bridge.WriteCompletion(bridge.Completion{AssetPath: folder}); err != nil {
		t.Fatalf("WriteCompletion failed: %v", err)
	}
	res := f.awaitResult(t)
	if !res.AlreadyExisted {
		t.Fatal("result should carry alreadyExisted")
	}
}

func TestAcquireSelfHealsEmptyFolder(t *testing.T) {
	f := newFixture(t, 5*time.Second)
	bundle := filepath.Join(f.downloads, "rock_x1234.zip")
	writeZip(t, bundle, map[string]string{"model.fbx": "payload"})

	target := filepath.Join(f.downloads, "rock_x1234")
	if err := os.MkdirAll(target, 0o755); err != nil {
		t.Fatal(err)
	}

	acq, err := f.pipeline.Acquire(f.ctx, bundle)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if acq.Status != catalog.StatusRequested {
		t.Fatalf("status mismatch: %q", acq.Status)
	}
	if acq.AlreadyExisted {
		t.Fatal("empty prior folder should not count as existing")
	}
	if _, err := os.Stat(filepath.Join(target, "model.fbx")); err != nil {
		t.Fatalf("extracted payload missing: %v", err)
	}

	if err := f.bridge.WriteCompletion(bridge.Completion{AssetPath: target}); err != nil {
		t.Fatalf("WriteCompletion failed: %v", err)
	}
	if res := f.awaitResult(t); res.Err != nil {
		t.Fatalf("unexpected pipeline error: %v", res.Err)
	}
}

func TestAcquireTimeoutSurfacesFailure(t *testing.T) {
	f := newFixture(t, 150*time.Millisecond)
	folder := filepath.Join(f.downloads, "rock_slow")
	if err := os.MkdirAll(folder, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(folder, "model.fbx"), []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}

	acq, err := f.pipeline.Acquire(f.ctx, folder)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	res := f.awaitResult(t)
	if !errors.Is(res.Err, bridge.ErrNoResponse) {
		t.Fatalf("expected ErrNoResponse, got %v", res.Err)
	}

	got, err := f.catalog.GetByID(f.ctx, acq.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != catalog.StatusFailed {
		t.Fatalf("catalog status mismatch: %q", got.Status)
	}
	if got.ErrorMessage != "no import completion before timeout" {
		t.Fatalf("error message mismatch: %q", got.ErrorMessage)
	}
	if failures := f.notifier.failures(); len(failures) != 1 {
		t.Fatalf("failure notifications mismatch: %v", failures)
	}
	if f.history.Len() != 0 {
		t.Fatal("timed-out import must not reach history")
	}
}

func TestAcquireRejectsInvalidFolder(t *testing.T) {
	f := newFixture(t, 5*time.Second)
	folder := filepath.Join(f.downloads, "notes")
	if err := os.MkdirAll(folder, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(folder, "readme.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	acq, err := f.pipeline.Acquire(f.ctx, folder)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if acq.Status != catalog.StatusFailed {
		t.Fatalf("status mismatch: %q", acq.Status)
	}
	if _, err := os.Stat(folder); !os.IsNotExist(err) {
		t.Fatal("invalid folder should be removed")
	}
	if pending, _ := f.bridge.RequestPending(); pending {
		t.Fatal("no request should be written for invalid content")
	}
	select {
	case res := <-f.results:
		t.Fatalf("unexpected collaborator callback: %+v", res)
	default:
	}
}

func TestAcquireSkipsInFlightAcquisition(t *testing.T) {
	f := newFixture(t, 5*time.Second)
	folder := filepath.Join(f.downloads, "rock_dup")
	if err := os.MkdirAll(folder, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(folder, "model.fbx"), []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}

	first, err := f.pipeline.Acquire(f.ctx, folder)
	if err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	second, err := f.pipeline.Acquire(f.ctx, folder)
	if err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected in-flight row reuse, got %d and %d", first.ID, second.ID)
	}

	rows, err := f.catalog.List(f.ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected single catalog row, got %d", len(rows))
	}

	if err := f.bridge.WriteCompletion(bridge.Completion{AssetPath: folder}); err != nil {
		t.Fatalf("WriteCompletion failed: %v", err)
	}
	f.awaitResult(t)
}

func TestAcquireReportsExtractionFailure(t *testing.T) {
	f := newFixture(t, 5*time.Second)
	bundle := filepath.Join(f.downloads, "rock_bad.zip")
	if err := os.WriteFile(bundle, []byte("not actually a zip"), 0o644); err != nil {
		t.Fatal(err)
	}

	acq, err := f.pipeline.Acquire(f.ctx, bundle)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if acq.Status != catalog.StatusFailed {
		t.Fatalf("status mismatch: %q", acq.Status)
	}
	if !strings.Contains(acq.ErrorMessage, "extraction failed") {
		t.Fatalf("error message mismatch: %q", acq.ErrorMessage)
	}

	res := f.awaitResult(t)
	if res.Err == nil {
		t.Fatal("expected error-flagged outcome")
	}
	if res.Request.AssetPath != bundle {
		t.Fatalf("outcome should carry the un-extracted path, got %q", res.Request.AssetPath)
	}
	if _, err := os.Stat(bundle); err != nil {
		t.Fatalf("failed bundle should stay on disk: %v", err)
	}
	if failures := f.notifier.failures(); len(failures) != 1 {
		t.Fatalf("failure notifications mismatch: %v", failures)
	}
}

func TestAcquireRejectsEmptyPath(t *testing.T) {
	f := newFixture(t, time.Second)
	if _, err := f.pipeline.Acquire(f.ctx, "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestAcquireCarriesRequestContextInLogs(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "shuttle.log")
	logger, err := logging.New(logging.Options{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	f := newFixtureWithLogger(t, 5*time.Second, logger)

	folder := filepath.Join(f.downloads, "rock_ctx")
	if err := os.MkdirAll(folder, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(folder, "model.fbx"), []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(folder, "asset.json"), []byte(`{"name": "RockCtx", "type": "model"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := f.pipeline.Acquire(f.ctx, folder); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	req, obs, err := f.bridge.ObserveRequest()
	if err != nil || obs != bridge.Valid {
		t.Fatalf("request not readable: obs=%v err=%v", obs, err)
	}
	if err := f.bridge.WriteCompletion(bridge.Completion{AssetPath: folder}); err != nil {
		t.Fatalf("WriteCompletion failed: %v", err)
	}
	if res := f.awaitResult(t); res.Err != nil {
		t.Fatalf("unexpected pipeline error: %v", res.Err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "request_id="+req.RequestID) {
		t.Fatalf("log output missing request id correlation:\n%s", out)
	}
	if !strings.Contains(out, "asset=RockCtx") {
		t.Fatalf("log output missing asset name:\n%s", out)
	}
	if !strings.Contains(out, "import completed") {
		t.Fatalf("log output missing completion line:\n%s", out)
	}
}
