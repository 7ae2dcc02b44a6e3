package config

const (
	defaultConfigPath           = "~/.config/cbir/config.toml"
	defaultBaseURL              = "http://localhost:5000"
	defaultRequestTimeout       = 30
	defaultSessionPath          = "~/.config/cbir/session.json"
	defaultPollIntervalMS       = 5000
	defaultNotifyRequestTimeout = 10
	defaultJournalPath          = "~/.local/share/cbir/journal.db"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogMaxSizeMB         = 10
	defaultLogMaxBackups        = 5
	defaultLogMaxAgeDays        = 30
	minPollIntervalMS           = 100
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Backend: Backend{
			BaseURL:        defaultBaseURL,
			RequestTimeout: defaultRequestTimeout,
		},
		Session: Session{
			Path:                 defaultSessionPath,
			RequireAuthForUpload: true,
			PersonalizeSearch:    true,
		},
		Poller: Poller{
			IntervalMS: defaultPollIntervalMS,
		},
		Notifications: Notifications{
			Console:        true,
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Journal: Journal{
			Enabled: true,
			Path:    defaultJournalPath,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
		},
	}
}
