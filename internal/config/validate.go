package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateProtocol(); err != nil {
		return err
	}
	if err := c.validateIntake(); err != nil {
		return err
	}
	if err := c.validateHistory(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.BridgeDir) == "" {
		return errors.New("paths.bridge_dir must be set")
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateProtocol() error {
	if err := ensurePositiveMap(map[string]int{
		"protocol.lock_refresh":       c.Protocol.LockRefresh,
		"protocol.heartbeat_interval": c.Protocol.HeartbeatInterval,
		"protocol.heartbeat_timeout":  c.Protocol.HeartbeatTimeout,
		"protocol.focus_poll_ms":      c.Protocol.FocusPollMs,
		"protocol.completion_poll_ms": c.Protocol.CompletionPollMs,
		"protocol.completion_timeout": c.Protocol.CompletionTimeout,
	}); err != nil {
		return err
	}
	if c.Protocol.HeartbeatGrace < 0 {
		return errors.New("protocol.heartbeat_grace must not be negative")
	}
	// A threshold at or below the check period would flag a live peer as
	// dead on ordinary poll jitter.
	if c.Protocol.HeartbeatTimeout <= c.Protocol.HeartbeatInterval {
		return errors.New("protocol.heartbeat_timeout must be greater than protocol.heartbeat_interval")
	}
	if c.Protocol.FocusPollMs >= 1000 {
		return errors.New("protocol.focus_poll_ms must stay sub-second")
	}
	if c.Protocol.CompletionPollMs >= 1000 {
		return errors.New("protocol.completion_poll_ms must stay sub-second")
	}
	return nil
}

func (c *Config) validateIntake() error {
	if !c.Intake.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Paths.DownloadsDir) == "" {
		return errors.New("paths.downloads_dir must be set when intake.enabled is true")
	}
	return ensurePositiveMap(map[string]int{
		"intake.poll_interval": c.Intake.PollInterval,
		"intake.quiet_seconds": c.Intake.QuietSeconds,
	})
}

func (c *Config) validateHistory() error {
	if c.History.MaxEntries <= 0 {
		return errors.New("history.max_entries must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for name, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
