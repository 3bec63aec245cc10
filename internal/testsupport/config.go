package testsupport

import (
	"path/filepath"
	"testing"

	"shuttle/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Protocol timings are tightened so handshake tests finish quickly, and the
// downloads watcher starts disabled; tests opt in with WithIntake.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.BridgeDir = filepath.Join(base, "bridge")
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.DownloadsDir = filepath.Join(base, "downloads")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Protocol.CompletionPollMs = 25
	cfgVal.Protocol.CompletionTimeout = 5
	cfgVal.Intake.Enabled = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	return builder.cfg
}

// WithIntake enables the downloads directory watcher on the test config.
func WithIntake() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Intake.Enabled = true
	}
}

// WithNtfyTopic sets the notification topic on the test config.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithCompletionTimeout overrides how long the daemon waits for peer
// completions, in seconds.
func WithCompletionTimeout(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Protocol.CompletionTimeout = seconds
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.BridgeDir)
}
