package config

const (
	// BackendSQLite stores preferences in a SQLite database.
	BackendSQLite = "sqlite"
	// BackendFile stores preferences in a lock-guarded JSON file.
	BackendFile = "file"
)

const (
	defaultAPIBaseURL              = "http://localhost:8000"
	defaultAPITimeoutSeconds       = 30
	defaultAPIBurst                = 1
	defaultStateDirFallback        = "~/.local/state/clipdeck"
	defaultLogDir                  = "~/.local/share/clipdeck/logs"
	defaultDownloadDir             = "~/Videos/clipdeck"
	defaultPollIntervalSeconds     = 5
	defaultMaxDownloadMB           = 2048
	defaultNotifyRequestTimeout    = 10
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultStateBackend            = BackendSQLite
	defaultNotifyRenderStarted     = false
	defaultNotifyRenderCompleted   = true
	defaultNotifyRenderFailed      = true
	defaultExportAllowPrivateHosts = false
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		API: API{
			BaseURL:        defaultAPIBaseURL,
			TimeoutSeconds: defaultAPITimeoutSeconds,
			Burst:          defaultAPIBurst,
		},
		Paths: Paths{
			StateDir:    defaultStateDir(),
			LogDir:      defaultLogDir,
			DownloadDir: defaultDownloadDir,
		},
		State: State{
			Backend: defaultStateBackend,
		},
		Polling: Polling{
			IntervalSeconds: defaultPollIntervalSeconds,
		},
		Export: Export{
			AllowPrivateHosts: defaultExportAllowPrivateHosts,
			MaxDownloadMB:     defaultMaxDownloadMB,
		},
		Notifications: Notifications{
			RequestTimeout:  defaultNotifyRequestTimeout,
			RenderStarted:   defaultNotifyRenderStarted,
			RenderCompleted: defaultNotifyRenderCompleted,
			RenderFailed:    defaultNotifyRenderFailed,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
