package config

const (
	defaultBridgeDir    = "~/.local/share/shuttle/bridge"
	defaultDownloadsDir = "~/.local/share/shuttle/downloads"
	defaultDataDir      = "~/.local/share/shuttle/data"
	defaultLogDir       = "~/.local/share/shuttle/logs"

	defaultLockRefresh       = 15
	defaultHeartbeatGrace    = 30
	defaultHeartbeatInterval = 10
	defaultHeartbeatTimeout  = 90
	defaultFocusPollMs       = 250
	defaultCompletionPollMs  = 500
	defaultCompletionTimeout = 60

	defaultIntakePollInterval = 2
	defaultIntakeQuietSeconds = 2

	defaultHistoryMaxEntries = 50

	defaultNotifyRequestTimeout = 10

	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			BridgeDir:    defaultBridgeDir,
			DownloadsDir: defaultDownloadsDir,
			DataDir:      defaultDataDir,
			LogDir:       defaultLogDir,
		},
		Session: Session{
			Exclusive: false,
		},
		Protocol: Protocol{
			LockRefresh:       defaultLockRefresh,
			HeartbeatGrace:    defaultHeartbeatGrace,
			HeartbeatInterval: defaultHeartbeatInterval,
			HeartbeatTimeout:  defaultHeartbeatTimeout,
			FocusPollMs:       defaultFocusPollMs,
			CompletionPollMs:  defaultCompletionPollMs,
			CompletionTimeout: defaultCompletionTimeout,
			UseFsnotify:       true,
		},
		Intake: Intake{
			Enabled:      true,
			PollInterval: defaultIntakePollInterval,
			QuietSeconds: defaultIntakeQuietSeconds,
		},
		History: History{
			MaxEntries: defaultHistoryMaxEntries,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Imports:        true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
