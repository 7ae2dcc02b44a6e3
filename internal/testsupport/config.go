package testsupport

import (
	"path/filepath"
	"testing"

	"cbir/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp paths per test. Console
// notifications and ntfy are off so tests observe the sink they inject.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Backend.BaseURL = "http://127.0.0.1:1"
	cfgVal.Backend.RequestTimeout = 5
	cfgVal.Session.Path = filepath.Join(base, "config", "session.json")
	cfgVal.Journal.Path = filepath.Join(base, "data", "journal.db")
	cfgVal.Poller.IntervalMS = 100
	cfgVal.Notifications.Console = false
	cfgVal.Notifications.NtfyTopic = ""
	cfgVal.Logging.Level = "error"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithBackend points the config at a fake backend.
func WithBackend(b *Backend) ConfigOption {
	return func(cb *configBuilder) {
		cb.cfg.Backend.BaseURL = b.URL()
	}
}

// WithBaseURL overrides the backend base URL.
func WithBaseURL(url string) ConfigOption {
	return func(cb *configBuilder) {
		cb.cfg.Backend.BaseURL = url
	}
}

// WithoutJournal disables the activity journal.
func WithoutJournal() ConfigOption {
	return func(cb *configBuilder) {
		cb.cfg.Journal.Enabled = false
	}
}

// WithAnonymousUploads turns off the session gate on uploads.
func WithAnonymousUploads() ConfigOption {
	return func(cb *configBuilder) {
		cb.cfg.Session.RequireAuthForUpload = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(filepath.Dir(cfg.Session.Path))
}
