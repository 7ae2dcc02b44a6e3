package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"cbir/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("CBIR_BASE_URL", "")
	t.Setenv("CBIR_SESSION_PATH", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantSession := filepath.Join(tempHome, ".config", "cbir", "session.json")
	if cfg.Session.Path != wantSession {
		t.Fatalf("unexpected session path: got %q want %q", cfg.Session.Path, wantSession)
	}
	wantJournal := filepath.Join(tempHome, ".local", "share", "cbir", "journal.db")
	if cfg.Journal.Path != wantJournal {
		t.Fatalf("unexpected journal path: got %q want %q", cfg.Journal.Path, wantJournal)
	}
	if cfg.Backend.BaseURL != "http://localhost:5000" {
		t.Fatalf("unexpected base url: %q", cfg.Backend.BaseURL)
	}
	if !cfg.Session.RequireAuthForUpload {
		t.Fatal("expected uploads to require auth by default")
	}
	if cfg.PollInterval() != 5*time.Second {
		t.Fatalf("unexpected poll interval: %s", cfg.PollInterval())
	}
	if cfg.RequestTimeout() != 30*time.Second {
		t.Fatalf("unexpected request timeout: %s", cfg.RequestTimeout())
	}
	if cfg.Logging.File != "" {
		t.Fatalf("expected no log file by default, got %q", cfg.Logging.File)
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("CBIR_BASE_URL", "")
	t.Setenv("CBIR_SESSION_PATH", "")

	configPath := filepath.Join(tempHome, "config.toml")
	content := `[backend]
base_url = "cbir.internal:8080/"
request_timeout = 5

[session]
path = "~/state/session.json"
require_auth_for_upload = false

[poller]
interval_ms = 250

[logging]
format = "JSON"
level = "DEBUG"
file = "~/logs/cbir.log"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config %q to exist, got %q exists=%v", configPath, resolved, exists)
	}
	if cfg.Backend.BaseURL != "http://cbir.internal:8080" {
		t.Fatalf("unexpected base url: %q", cfg.Backend.BaseURL)
	}
	if cfg.RequestTimeout() != 5*time.Second {
		t.Fatalf("unexpected timeout: %s", cfg.RequestTimeout())
	}
	if cfg.Session.Path != filepath.Join(tempHome, "state", "session.json") {
		t.Fatalf("unexpected session path: %q", cfg.Session.Path)
	}
	if cfg.Session.RequireAuthForUpload {
		t.Fatal("expected require_auth_for_upload override")
	}
	if cfg.PollInterval() != 250*time.Millisecond {
		t.Fatalf("unexpected poll interval: %s", cfg.PollInterval())
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
	if cfg.Logging.File != filepath.Join(tempHome, "logs", "cbir.log") {
		t.Fatalf("unexpected log file: %q", cfg.Logging.File)
	}
}

func TestEnvironmentFallbacks(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("CBIR_BASE_URL", "https://images.example.com")
	t.Setenv("CBIR_NTFY_TOPIC", "https://ntfy.sh/cbir-test")
	t.Setenv("CBIR_SESSION_PATH", filepath.Join(tempHome, "s.json"))

	cfg, _, _, err := config.Load(filepath.Join(tempHome, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Backend.BaseURL != "https://images.example.com" {
		t.Fatalf("expected env base url, got %q", cfg.Backend.BaseURL)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.sh/cbir-test" {
		t.Fatalf("expected env ntfy topic, got %q", cfg.Notifications.NtfyTopic)
	}
	if cfg.Session.Path != filepath.Join(tempHome, "s.json") {
		t.Fatalf("expected env session path, got %q", cfg.Session.Path)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "scheme",
			mutate: func(c *config.Config) { c.Backend.BaseURL = "ftp://example.com" },
			want:   "backend.base_url",
		},
		{
			name:   "poll interval",
			mutate: func(c *config.Config) { c.Poller.IntervalMS = 10 },
			want:   "poller.interval_ms",
		},
		{
			name:   "dedup window",
			mutate: func(c *config.Config) { c.Notifications.DedupWindowSeconds = -1 },
			want:   "dedup_window_seconds",
		},
		{
			name:   "ntfy topic",
			mutate: func(c *config.Config) { c.Notifications.NtfyTopic = "just-a-topic" },
			want:   "ntfy_topic",
		},
		{
			name:   "log level",
			mutate: func(c *config.Config) { c.Logging.Level = "verbose" },
			want:   "logging.level",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("CBIR_BASE_URL", "")
	t.Setenv("CBIR_SESSION_PATH", "")
	target := filepath.Join(tempHome, "nested", "config.toml")

	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	if decoded.Poller.IntervalMS != 5000 {
		t.Fatalf("unexpected sample poll interval: %d", decoded.Poller.IntervalMS)
	}

	if _, _, exists, err := config.Load(target); err != nil || !exists {
		t.Fatalf("expected sample to load, exists=%v err=%v", exists, err)
	}
}

func TestEnsureDirectoriesCreatesParents(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Session.Path = filepath.Join(base, "a", "session.json")
	cfg.Journal.Path = filepath.Join(base, "b", "journal.db")
	cfg.Logging.File = filepath.Join(base, "c", "cbir.log")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{"a", "b", "c"} {
		if info, err := os.Stat(filepath.Join(base, dir)); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}
