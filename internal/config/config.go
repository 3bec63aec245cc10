package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	// BridgeDir is the process-shared scratch directory holding every
	// protocol file exchanged with the external consumer.
	BridgeDir    string `toml:"bridge_dir"`
	DownloadsDir string `toml:"downloads_dir"`
	DataDir      string `toml:"data_dir"`
	LogDir       string `toml:"log_dir"`
}

// Session contains session ownership policy.
type Session struct {
	// Exclusive promotes the advisory session lock to an OS-level file
	// lock; a second keeper for the same session then refuses to start.
	Exclusive bool `toml:"exclusive"`
}

// Protocol contains bridge timing configuration. Second-scale values are
// plain seconds; sub-second poll periods carry an explicit _ms suffix.
type Protocol struct {
	LockRefresh       int  `toml:"lock_refresh"`
	HeartbeatGrace    int  `toml:"heartbeat_grace"`
	HeartbeatInterval int  `toml:"heartbeat_interval"`
	HeartbeatTimeout  int  `toml:"heartbeat_timeout"`
	FocusPollMs       int  `toml:"focus_poll_ms"`
	CompletionPollMs  int  `toml:"completion_poll_ms"`
	CompletionTimeout int  `toml:"completion_timeout"`
	UseFsnotify       bool `toml:"use_fsnotify"`
}

// Intake contains configuration for the downloads-directory poller that
// feeds finished artifacts into the acquisition pipeline.
type Intake struct {
	Enabled      bool `toml:"enabled"`
	PollInterval int  `toml:"poll_interval"`
	QuietSeconds int  `toml:"quiet_seconds"`
}

// History contains configuration for the import history file.
type History struct {
	MaxEntries int `toml:"max_entries"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Imports        bool   `toml:"imports"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	// RetentionDays prunes rotated daemon logs older than this many days.
	// Zero disables pruning.
	RetentionDays int `toml:"retention_days"`
}

// Config encapsulates all configuration values for shuttle.
//
// Configuration sections by subsystem:
//   - Paths: bridge, downloads, data, and log directories
//   - Session: lock exclusivity policy
//   - Protocol: bridge polling periods, grace windows, and timeouts
//   - Intake: downloads-directory artifact pickup
//   - History: import history retention
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Session       Session       `toml:"session"`
	Protocol      Protocol      `toml:"protocol"`
	Intake        Intake        `toml:"intake"`
	History       History       `toml:"history"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/shuttle/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a file existed at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("shuttle.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.BridgeDir, c.Paths.DataDir, c.Paths.LogDir, c.ThumbnailCacheDir()}
	if c.Intake.Enabled {
		dirs = append(dirs, c.Paths.DownloadsDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the location of the import history file.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.DataDir, "import-history.json")
}

// CatalogPath returns the location of the acquisition catalog database.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.Paths.DataDir, "catalog.db")
}

// ThumbnailCacheDir returns the directory holding cached thumbnail copies.
func (c *Config) ThumbnailCacheDir() string {
	return filepath.Join(c.Paths.DataDir, "thumbnails")
}

// SocketPath returns the location of the daemon control socket.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.LogDir, "shuttled.sock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
